package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garnizeh/hnjobs/internal/db"
	"github.com/garnizeh/hnjobs/pkg/models"
	"github.com/garnizeh/hnjobs/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn *db.DB
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.StoryRepo = (*SQLiteRepo)(nil)
var _ repository.CommentRepo = (*SQLiteRepo)(nil)
var _ repository.AdminRepo = (*SQLiteRepo)(nil)
var _ repository.SchemaRepo = (*SQLiteRepo)(nil)
var _ repository.TemplateRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB) *SQLiteRepo {
	return &SQLiteRepo{conn: conn}
}

// Story methods
func (r *SQLiteRepo) CreateStory(ctx context.Context, s *models.Story) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("story is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO stories (hn_id, title, month, kids_count, descendants_count, score, created_time, fetched_time) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.HNID, s.Title, s.Month, s.KidsCount, s.DescendantsCount, s.Score, s.CreatedTime, now())
	if err != nil {
		return 0, mapConstraintErr(err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetStoryByID(ctx context.Context, id int64) (*models.Story, error) {
	return r.scanStory(r.conn.QueryRow(ctx, `SELECT id, hn_id, title, month, kids_count, descendants_count, score, created_time, fetched_time FROM stories WHERE id = ?`, id))
}

func (r *SQLiteRepo) GetStoryByHNID(ctx context.Context, hnID int64) (*models.Story, error) {
	return r.scanStory(r.conn.QueryRow(ctx, `SELECT id, hn_id, title, month, kids_count, descendants_count, score, created_time, fetched_time FROM stories WHERE hn_id = ?`, hnID))
}

func (r *SQLiteRepo) GetStoryByMonth(ctx context.Context, month string) (*models.Story, error) {
	return r.scanStory(r.conn.QueryRow(ctx, `SELECT id, hn_id, title, month, kids_count, descendants_count, score, created_time, fetched_time FROM stories WHERE month = ? ORDER BY id LIMIT 1`, month))
}

func (r *SQLiteRepo) UpdateStoryCounters(ctx context.Context, id, kidsCount, descendantsCount, score int64) error {
	res, err := r.conn.Exec(ctx, `UPDATE stories SET kids_count = ?, descendants_count = ?, score = ?, fetched_time = ? WHERE id = ?`,
		kidsCount, descendantsCount, score, now(), id)
	if err != nil {
		return mapConstraintErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepo) scanStory(row *sql.Row) (*models.Story, error) {
	var s models.Story
	var title sql.NullString
	var created sql.NullInt64
	if err := row.Scan(&s.ID, &s.HNID, &title, &s.Month, &s.KidsCount, &s.DescendantsCount, &s.Score, &created, &s.FetchedTime); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if title.Valid {
		s.Title = &title.String
	}
	if created.Valid {
		s.CreatedTime = &created.Int64
	}

	return &s, nil
}

// mapConstraintErr translates sqlite constraint violations into the sentinel
// errors callers are expected to branch on.
func mapConstraintErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, msg)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %s", repository.ErrMissingStory, msg)
	case strings.Contains(msg, "CHECK constraint failed") && strings.Contains(msg, "processed_status"):
		return fmt.Errorf("%w: %s", repository.ErrInvalidStatus, msg)
	}
	return err
}

func now() int64 {
	return time.Now().UTC().Unix()
}
