package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/garnizeh/hnjobs/internal/config"
	"github.com/garnizeh/hnjobs/internal/jobs"
	"github.com/garnizeh/hnjobs/pkg/repository"
)

// Enqueuer matches the worker pool's enqueue helper.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

// Scheduler periodically re-syncs the configured hiring threads and sweeps
// still-pending comments into extraction jobs. Hiring threads stay active
// for a whole month, so the interval is coarse (daily by default).
type Scheduler struct {
	cfg      config.SchedulerConfig
	queue    Enqueuer
	comments repository.CommentRepo
	logger   *slog.Logger

	mu     sync.Mutex
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	active bool
}

func New(cfg config.SchedulerConfig, queue Enqueuer, comments repository.CommentRepo, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{cfg: cfg, queue: queue, comments: comments, logger: logger, stop: make(chan struct{})}
}

// Start kicks off an immediate run and then ticks at the configured interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return
	}
	s.ticker = time.NewTicker(s.cfg.Interval)
	s.active = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce(ctx)
		for {
			select {
			case <-s.ticker.C:
				s.runOnce(ctx)
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the ticker and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	s.active = false
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	for _, hnID := range s.cfg.ThreadIDs {
		payload := jobs.SyncThreadPayload{HNID: hnID}
		if _, err := s.queue.Enqueue(ctx, jobs.TypeSyncThread, payload, 50, 3); err != nil {
			s.logger.Error("enqueue thread sync", slog.Int64("hn_id", hnID), slog.Any("err", err))
			continue
		}
		s.logger.Info("thread sync scheduled", slog.Int64("hn_id", hnID))
	}

	// sweep comments that never made it into the queue (e.g. after a crash)
	pending, err := s.comments.ListPending(ctx, 0)
	if err != nil {
		s.logger.Error("list pending", slog.Any("err", err))
		return
	}
	for i := range pending {
		payload := jobs.ExtractPostingPayload{CommentID: pending[i].ID}
		if _, err := s.queue.Enqueue(ctx, jobs.TypeExtractPosting, payload, 100, 3); err != nil {
			s.logger.Error("enqueue extraction", slog.Int64("comment_id", pending[i].ID), slog.Any("err", err))
		}
	}
	if len(pending) > 0 {
		s.logger.Info("pending sweep scheduled", slog.Int("count", len(pending)))
	}
}
