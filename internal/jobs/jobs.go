package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/garnizeh/hnjobs/pkg/models"
)

// Job types known to the worker pool.
const (
	TypeSyncThread     = "hn.sync_thread"
	TypeExtractPosting = "ai.extract_posting"
)

// SyncThreadPayload asks the syncer to ingest a hiring thread by HN id.
type SyncThreadPayload struct {
	HNID int64 `json:"hn_id"`
}

// ExtractPostingPayload asks the processor to extract one comment.
type ExtractPostingPayload struct {
	CommentID int64 `json:"comment_id"`
}

// Handler is the function that processes a job
type Handler func(ctx context.Context, j *models.BackgroundJob) error

// ErrMaxAttempts indicates the job reached max attempts
var ErrMaxAttempts = errors.New("max attempts reached")

// BackoffDuration returns exponential backoff duration for attempt n
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	max := 5 * time.Minute
	if d > max {
		return max
	}
	return d
}
