package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/garnizeh/hnjobs/pkg/models"
)

// Sentinel errors surfaced by repository implementations so callers can map
// store-level constraint violations without parsing driver messages.
var (
	// ErrDuplicate is returned when an insert collides with an existing hn_id.
	ErrDuplicate = errors.New("record already exists")
	// ErrNotFound is returned by updates that matched no row.
	ErrNotFound = errors.New("record not found")
	// ErrMissingStory is returned when a comment references a story id that
	// was never inserted.
	ErrMissingStory = errors.New("comment references unknown story")
	// ErrInvalidStatus is returned for a status outside the allowed set.
	ErrInvalidStatus = errors.New("invalid processed status")
	// ErrInvalidTransition is returned when a status change would skip the
	// pending -> processing -> completed|failed order.
	ErrInvalidTransition = errors.New("illegal status transition")
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

type StoryRepo interface {
	CreateStory(ctx context.Context, s *models.Story) (int64, error)
	GetStoryByID(ctx context.Context, id int64) (*models.Story, error)
	GetStoryByHNID(ctx context.Context, hnID int64) (*models.Story, error)
	GetStoryByMonth(ctx context.Context, month string) (*models.Story, error)
	UpdateStoryCounters(ctx context.Context, id, kidsCount, descendantsCount, score int64) error
}

type CommentRepo interface {
	CreateComment(ctx context.Context, c *models.Comment) (int64, error)
	BatchCreateComments(ctx context.Context, cs []models.Comment) (int64, error)
	GetCommentByID(ctx context.Context, id int64) (*models.Comment, error)
	GetCommentByHNID(ctx context.Context, hnID int64) (*models.Comment, error)
	ListCommentsByStory(ctx context.Context, storyID int64, limit, offset int) ([]models.Comment, error)
	ListPending(ctx context.Context, limit int) ([]models.Comment, error)
	ListCompletedByMonth(ctx context.Context, month string) ([]models.Comment, error)

	// ClaimPending atomically moves a pending comment to processing and
	// reports whether this caller won the claim.
	ClaimPending(ctx context.Context, id int64) (bool, error)
	// UpdateStatus applies a legal status transition and stores (or clears)
	// the extracted structured data.
	UpdateStatus(ctx context.Context, id int64, status string, structuredData json.RawMessage) error
}

type AdminRepo interface {
	CreateAdmin(ctx context.Context, a *models.Admin) (int64, error)
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
}

type SchemaRepo interface {
	CreateSchema(ctx context.Context, version, description, schemaJSON string) (int64, error)
	GetSchemaByVersion(ctx context.Context, version string) (*models.Schema, error)
	ListSchemas(ctx context.Context) ([]models.Schema, error)
}

type TemplateRepo interface {
	GetTemplate(ctx context.Context, name, version string) (*models.Template, error)
}

type JobRepo interface {
	Enqueue(ctx context.Context, j *models.BackgroundJob) (int64, error)
}

// Repository bundles the individual contracts for components that need
// several of them.
type Repository struct {
	Story    StoryRepo
	Comment  CommentRepo
	Admin    AdminRepo
	Schema   SchemaRepo
	Template TemplateRepo
	Job      JobRepo
}
