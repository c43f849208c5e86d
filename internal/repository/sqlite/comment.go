package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/garnizeh/hnjobs/pkg/models"
	"github.com/garnizeh/hnjobs/pkg/repository"
)

const commentColumns = `id, hn_id, story_id, story_text, structured_data, processed_status, created_time, fetched_time`

func (r *SQLiteRepo) CreateComment(ctx context.Context, c *models.Comment) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("comment is nil")
	}

	status := c.ProcessedStatus
	if status == "" {
		status = models.StatusPending
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO comments (hn_id, story_id, story_text, structured_data, processed_status, created_time, fetched_time) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.HNID, c.StoryID, c.StoryText, nullableJSON(c.StructuredData), status, c.CreatedTime, now())
	if err != nil {
		return 0, mapConstraintErr(err)
	}

	return res.LastInsertId()
}

// BatchCreateComments inserts comments skipping hn_ids that are already
// ingested, and returns the number of rows actually inserted. Each insert
// runs inside a single transaction so a partial batch is never visible.
func (r *SQLiteRepo) BatchCreateComments(ctx context.Context, cs []models.Comment) (int64, error) {
	if len(cs) == 0 {
		return 0, nil
	}

	tx, err := r.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	var inserted int64
	for i := range cs {
		c := &cs[i]
		status := c.ProcessedStatus
		if status == "" {
			status = models.StatusPending
		}
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO comments (hn_id, story_id, story_text, structured_data, processed_status, created_time, fetched_time) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.HNID, c.StoryID, c.StoryText, nullableJSON(c.StructuredData), status, c.CreatedTime, now())
		if err != nil {
			_ = tx.Rollback()
			return 0, mapConstraintErr(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *SQLiteRepo) GetCommentByID(ctx context.Context, id int64) (*models.Comment, error) {
	return scanComment(r.conn.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
}

func (r *SQLiteRepo) GetCommentByHNID(ctx context.Context, hnID int64) (*models.Comment, error) {
	return scanComment(r.conn.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE hn_id = ?`, hnID))
}

func (r *SQLiteRepo) ListCommentsByStory(ctx context.Context, storyID int64, limit, offset int) ([]models.Comment, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT `+commentColumns+` FROM comments WHERE story_id = ? ORDER BY id LIMIT ? OFFSET ?`, storyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectComments(rows)
}

func (r *SQLiteRepo) ListPending(ctx context.Context, limit int) ([]models.Comment, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT `+commentColumns+` FROM comments WHERE processed_status = ? ORDER BY id LIMIT ?`, models.StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectComments(rows)
}

func (r *SQLiteRepo) ListCompletedByMonth(ctx context.Context, month string) ([]models.Comment, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT c.id, c.hn_id, c.story_id, c.story_text, c.structured_data, c.processed_status, c.created_time, c.fetched_time FROM comments c JOIN stories s ON s.id = c.story_id WHERE s.month = ? AND c.processed_status = ? ORDER BY c.id`, month, models.StatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectComments(rows)
}

// ClaimPending is the worker claim discipline: a conditional UPDATE that only
// succeeds while the row is still pending, so concurrent claimants cannot
// both win the same comment.
func (r *SQLiteRepo) ClaimPending(ctx context.Context, id int64) (bool, error) {
	res, err := r.conn.Exec(ctx, `UPDATE comments SET processed_status = ? WHERE id = ? AND processed_status = ?`,
		models.StatusProcessing, id, models.StatusPending)
	if err != nil {
		return false, mapConstraintErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// legalPrior maps a target status to the statuses it may transition from.
var legalPrior = map[string][]string{
	models.StatusProcessing: {models.StatusPending},
	models.StatusCompleted:  {models.StatusProcessing},
	models.StatusFailed:     {models.StatusProcessing},
	models.StatusPending:    {models.StatusFailed},
}

// UpdateStatus applies a legal transition and stores the extracted data.
// A nil structuredData clears the column, which is what a failed extraction
// wants. The status value itself is re-checked by the store's CHECK
// constraint; transition order is enforced here because the schema only
// constrains the value set.
func (r *SQLiteRepo) UpdateStatus(ctx context.Context, id int64, status string, structuredData json.RawMessage) error {
	prior, ok := legalPrior[status]
	if !ok {
		return fmt.Errorf("%w: %q", repository.ErrInvalidStatus, status)
	}

	args := make([]any, 0, len(prior)+3)
	args = append(args, status, nullableJSON(structuredData), id)
	q := `UPDATE comments SET processed_status = ?, structured_data = ? WHERE id = ? AND processed_status IN (`
	for i, p := range prior {
		if i > 0 {
			q += ", "
		}
		q += "?"
		args = append(args, p)
	}
	q += `)`

	res, err := r.conn.Exec(ctx, q, args...)
	if err != nil {
		return mapConstraintErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// distinguish a missing row from an out-of-order transition
		existing, gerr := r.GetCommentByID(ctx, id)
		if gerr != nil {
			return gerr
		}
		if existing == nil {
			return repository.ErrNotFound
		}
		return fmt.Errorf("%w: %s -> %s", repository.ErrInvalidTransition, existing.ProcessedStatus, status)
	}
	return nil
}

func scanComment(row *sql.Row) (*models.Comment, error) {
	var c models.Comment
	var text, data sql.NullString
	var created sql.NullInt64
	if err := row.Scan(&c.ID, &c.HNID, &c.StoryID, &text, &data, &c.ProcessedStatus, &created, &c.FetchedTime); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	applyNullable(&c, text, data, created)
	return &c, nil
}

func collectComments(rows *sql.Rows) ([]models.Comment, error) {
	var out []models.Comment
	for rows.Next() {
		var c models.Comment
		var text, data sql.NullString
		var created sql.NullInt64
		if err := rows.Scan(&c.ID, &c.HNID, &c.StoryID, &text, &data, &c.ProcessedStatus, &created, &c.FetchedTime); err != nil {
			return nil, err
		}

		applyNullable(&c, text, data, created)
		out = append(out, c)
	}

	return out, rows.Err()
}

func applyNullable(c *models.Comment, text, data sql.NullString, created sql.NullInt64) {
	if text.Valid {
		c.StoryText = &text.String
	}
	if data.Valid {
		c.StructuredData = json.RawMessage(data.String)
	}
	if created.Valid {
		c.CreatedTime = &created.Int64
	}
}

func nullableJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
