package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/garnizeh/hnjobs/internal/jobs"
	"github.com/garnizeh/hnjobs/pkg/models"
	"github.com/garnizeh/hnjobs/pkg/repository"
)

var processorLogger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func SetProcessorLogger(l *slog.Logger) {
	if l != nil {
		processorLogger = l
	}
}

// ErrAlreadyClaimed indicates another worker won the pending claim first.
var ErrAlreadyClaimed = errors.New("comment already claimed")

// Processor runs the extraction pipeline over pending comments. Claiming is
// an atomic conditional move pending -> processing, so concurrent workers
// never extract the same comment twice.
type Processor struct {
	engine   *Engine
	comments repository.CommentRepo
}

func NewProcessor(engine *Engine, comments repository.CommentRepo) *Processor {
	return &Processor{engine: engine, comments: comments}
}

// ProcessComment claims one comment and moves it to completed with its
// structured data, or to failed with the column cleared. A lost claim is
// reported as ErrAlreadyClaimed so callers can treat it as a no-op.
func (p *Processor) ProcessComment(ctx context.Context, id int64) error {
	claimed, err := p.comments.ClaimPending(ctx, id)
	if err != nil {
		return fmt.Errorf("claim comment %d: %w", id, err)
	}
	if !claimed {
		return fmt.Errorf("%w: %d", ErrAlreadyClaimed, id)
	}

	c, err := p.comments.GetCommentByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load comment %d: %w", id, err)
	}
	if c == nil {
		return repository.ErrNotFound
	}

	var text string
	if c.StoryText != nil {
		text = CleanHTML(*c.StoryText)
	}
	if text == "" {
		return p.fail(ctx, id, errors.New("empty posting text"))
	}

	extracted, err := p.engine.ExtractPosting(ctx, text)
	if err != nil {
		return p.fail(ctx, id, err)
	}

	data, err := json.Marshal(extracted)
	if err != nil {
		return p.fail(ctx, id, fmt.Errorf("marshal extraction: %w", err))
	}

	if err := p.comments.UpdateStatus(ctx, id, models.StatusCompleted, data); err != nil {
		return fmt.Errorf("complete comment %d: %w", id, err)
	}

	processorLogger.Info("comment processed", "comment_id", id, "company", extracted.Company)
	return nil
}

// HandleExtractJob runs ProcessComment for a queued extraction job. The
// queue can hold more than one job for the same comment (the syncer
// enqueues one and every scheduler sweep enqueues another), so losing the
// claim means the work happened elsewhere, not that the job failed.
func (p *Processor) HandleExtractJob(ctx context.Context, payload json.RawMessage) error {
	var req jobs.ExtractPostingPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decode extraction payload: %w", err)
	}
	if err := p.ProcessComment(ctx, req.CommentID); err != nil && !errors.Is(err, ErrAlreadyClaimed) {
		return err
	}
	return nil
}

// ProcessPending sweeps up to limit pending comments and returns how many
// completed and how many failed.
func (p *Processor) ProcessPending(ctx context.Context, limit int) (completed, failed int, err error) {
	pending, err := p.comments.ListPending(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("list pending: %w", err)
	}

	for i := range pending {
		if ctx.Err() != nil {
			return completed, failed, ctx.Err()
		}
		if perr := p.ProcessComment(ctx, pending[i].ID); perr != nil {
			if errors.Is(perr, ErrAlreadyClaimed) {
				continue
			}
			failed++
			continue
		}
		completed++
	}

	processorLogger.Info("pending sweep finished", "completed", completed, "failed", failed)
	return completed, failed, nil
}

// fail records the failed transition and clears any stale structured data.
// The original processing error is what the caller should see.
func (p *Processor) fail(ctx context.Context, id int64, cause error) error {
	if err := p.comments.UpdateStatus(ctx, id, models.StatusFailed, nil); err != nil {
		processorLogger.Error("mark comment failed", "comment_id", id, "err", err)
	}
	processorLogger.Warn("extraction failed", "comment_id", id, "err", cause)
	return fmt.Errorf("extract comment %d: %w", id, cause)
}
