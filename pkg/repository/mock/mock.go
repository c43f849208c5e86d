package mock

import (
	"context"
	"encoding/json"

	"github.com/garnizeh/hnjobs/pkg/models"
	"github.com/garnizeh/hnjobs/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	Stories  *StoryRepo
	Comments *CommentRepo
	Admins   *AdminRepo
	Schemas  *SchemaRepo
	Queue    *Queue
}

func NewMocks() *Mocks {
	return &Mocks{
		Stories:  &StoryRepo{},
		Comments: &CommentRepo{},
		Admins:   &AdminRepo{},
		Schemas:  &SchemaRepo{},
		Queue:    &Queue{},
	}
}

type StoryRepo struct {
	Stored    []models.Story
	CreateErr error
	nextID    int64
}

var _ repository.StoryRepo = (*StoryRepo)(nil)

func (m *StoryRepo) CreateStory(ctx context.Context, s *models.Story) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	for i := range m.Stored {
		if m.Stored[i].HNID == s.HNID {
			return 0, repository.ErrDuplicate
		}
	}
	m.nextID++
	stored := *s
	stored.ID = m.nextID
	m.Stored = append(m.Stored, stored)
	return stored.ID, nil
}

func (m *StoryRepo) GetStoryByID(ctx context.Context, id int64) (*models.Story, error) {
	for i := range m.Stored {
		if m.Stored[i].ID == id {
			s := m.Stored[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (m *StoryRepo) GetStoryByHNID(ctx context.Context, hnID int64) (*models.Story, error) {
	for i := range m.Stored {
		if m.Stored[i].HNID == hnID {
			s := m.Stored[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (m *StoryRepo) GetStoryByMonth(ctx context.Context, month string) (*models.Story, error) {
	for i := range m.Stored {
		if m.Stored[i].Month == month {
			s := m.Stored[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (m *StoryRepo) UpdateStoryCounters(ctx context.Context, id, kidsCount, descendantsCount, score int64) error {
	for i := range m.Stored {
		if m.Stored[i].ID == id {
			m.Stored[i].KidsCount = kidsCount
			m.Stored[i].DescendantsCount = descendantsCount
			m.Stored[i].Score = score
			return nil
		}
	}
	return repository.ErrNotFound
}

type CommentRepo struct {
	Stored    []models.Comment
	CreateErr error
	UpdateErr error
	nextID    int64
}

var _ repository.CommentRepo = (*CommentRepo)(nil)

func (m *CommentRepo) CreateComment(ctx context.Context, c *models.Comment) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	for i := range m.Stored {
		if m.Stored[i].HNID == c.HNID {
			return 0, repository.ErrDuplicate
		}
	}
	m.nextID++
	stored := *c
	stored.ID = m.nextID
	if stored.ProcessedStatus == "" {
		stored.ProcessedStatus = models.StatusPending
	}
	m.Stored = append(m.Stored, stored)
	return stored.ID, nil
}

func (m *CommentRepo) BatchCreateComments(ctx context.Context, cs []models.Comment) (int64, error) {
	var saved int64
	for i := range cs {
		if _, err := m.CreateComment(ctx, &cs[i]); err != nil {
			if err == repository.ErrDuplicate {
				continue
			}
			return saved, err
		}
		saved++
	}
	return saved, nil
}

func (m *CommentRepo) GetCommentByID(ctx context.Context, id int64) (*models.Comment, error) {
	for i := range m.Stored {
		if m.Stored[i].ID == id {
			c := m.Stored[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (m *CommentRepo) GetCommentByHNID(ctx context.Context, hnID int64) (*models.Comment, error) {
	for i := range m.Stored {
		if m.Stored[i].HNID == hnID {
			c := m.Stored[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (m *CommentRepo) ListCommentsByStory(ctx context.Context, storyID int64, limit, offset int) ([]models.Comment, error) {
	var out []models.Comment
	for i := range m.Stored {
		if m.Stored[i].StoryID == storyID {
			out = append(out, m.Stored[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *CommentRepo) ListPending(ctx context.Context, limit int) ([]models.Comment, error) {
	var out []models.Comment
	for i := range m.Stored {
		if m.Stored[i].ProcessedStatus == models.StatusPending {
			out = append(out, m.Stored[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *CommentRepo) ListCompletedByMonth(ctx context.Context, month string) ([]models.Comment, error) {
	var out []models.Comment
	for i := range m.Stored {
		if m.Stored[i].ProcessedStatus == models.StatusCompleted {
			out = append(out, m.Stored[i])
		}
	}
	return out, nil
}

func (m *CommentRepo) ClaimPending(ctx context.Context, id int64) (bool, error) {
	for i := range m.Stored {
		if m.Stored[i].ID == id {
			if m.Stored[i].ProcessedStatus != models.StatusPending {
				return false, nil
			}
			m.Stored[i].ProcessedStatus = models.StatusProcessing
			return true, nil
		}
	}
	return false, nil
}

func (m *CommentRepo) UpdateStatus(ctx context.Context, id int64, status string, structuredData json.RawMessage) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	switch status {
	case models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusFailed:
	default:
		return repository.ErrInvalidStatus
	}
	for i := range m.Stored {
		if m.Stored[i].ID == id {
			m.Stored[i].ProcessedStatus = status
			m.Stored[i].StructuredData = structuredData
			return nil
		}
	}
	return repository.ErrNotFound
}

type AdminRepo struct {
	Stored    *models.Admin
	CreateErr error
}

var _ repository.AdminRepo = (*AdminRepo)(nil)

func (m *AdminRepo) CreateAdmin(ctx context.Context, a *models.Admin) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	if m.Stored != nil && m.Stored.Email == a.Email {
		return 0, repository.ErrDuplicate
	}
	m.Stored = &models.Admin{ID: 1, Email: a.Email, PasswordHash: a.PasswordHash}
	return 1, nil
}

func (m *AdminRepo) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	if m.Stored != nil && m.Stored.Email == email {
		return m.Stored, nil
	}
	return nil, nil
}

type SchemaRepo struct {
	Stored []models.Schema
	nextID int64
}

var _ repository.SchemaRepo = (*SchemaRepo)(nil)

func (m *SchemaRepo) CreateSchema(ctx context.Context, version, description, schemaJSON string) (int64, error) {
	for i := range m.Stored {
		if m.Stored[i].Version == version {
			m.Stored[i].Description = description
			m.Stored[i].SchemaJSON = schemaJSON
			return m.Stored[i].ID, nil
		}
	}
	m.nextID++
	m.Stored = append(m.Stored, models.Schema{ID: m.nextID, Version: version, Description: description, SchemaJSON: schemaJSON})
	return m.nextID, nil
}

func (m *SchemaRepo) GetSchemaByVersion(ctx context.Context, version string) (*models.Schema, error) {
	for i := range m.Stored {
		if m.Stored[i].Version == version {
			s := m.Stored[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (m *SchemaRepo) ListSchemas(ctx context.Context) ([]models.Schema, error) {
	return m.Stored, nil
}

// Queue records enqueued jobs so handler tests can assert on what was
// scheduled without running a worker pool.
type Queue struct {
	Enqueued   []QueuedJob
	EnqueueErr error
}

type QueuedJob struct {
	Type    string
	Payload any
}

func (m *Queue) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	if m.EnqueueErr != nil {
		return 0, m.EnqueueErr
	}
	m.Enqueued = append(m.Enqueued, QueuedJob{Type: typ, Payload: payload})
	return int64(len(m.Enqueued)), nil
}
