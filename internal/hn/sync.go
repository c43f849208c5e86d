package hn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garnizeh/hnjobs/internal/jobs"
	"github.com/garnizeh/hnjobs/pkg/models"
	"github.com/garnizeh/hnjobs/pkg/repository"
)

// SyncResult summarizes one thread ingestion run.
type SyncResult struct {
	HNID            int64 `json:"hn_id"`
	StoryID         int64 `json:"story_id"`
	CommentsFetched int   `json:"comments_fetched"`
	CommentsSaved   int64 `json:"comments_saved"`
}

// Enqueuer is the subset of the job queue the syncer needs to schedule
// extraction work for freshly ingested comments.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

// Syncer ingests a hiring thread: the story row first, then every child
// comment as a pending job posting.
type Syncer struct {
	client   *Client
	stories  repository.StoryRepo
	comments repository.CommentRepo
	queue    Enqueuer
	logger   *slog.Logger
}

func NewSyncer(client *Client, stories repository.StoryRepo, comments repository.CommentRepo, queue Enqueuer, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{client: client, stories: stories, comments: comments, queue: queue, logger: logger}
}

// SyncThread fetches a hiring thread from the HN API and persists it.
// The story must be stored before its comments: the comments table rejects
// rows whose story_id has no matching story.
func (s *Syncer) SyncThread(ctx context.Context, hnID int64) (*SyncResult, error) {
	item, err := s.client.FetchItem(ctx, hnID)
	if err != nil {
		return nil, fmt.Errorf("fetch story %d: %w", hnID, err)
	}
	if item.Type != "story" {
		return nil, fmt.Errorf("item %d is a %q, not a story", hnID, item.Type)
	}

	storyID, err := s.upsertStory(ctx, item)
	if err != nil {
		return nil, err
	}

	fetched, err := s.client.FetchItems(ctx, item.Kids)
	if err != nil {
		return nil, fmt.Errorf("fetch comments for %d: %w", hnID, err)
	}

	comments := make([]models.Comment, 0, len(fetched))
	for i := range fetched {
		k := &fetched[i]
		if k.Type != "comment" || k.Text == "" {
			continue
		}
		c := models.Comment{
			HNID:            k.ID,
			StoryID:         storyID,
			ProcessedStatus: models.StatusPending,
		}
		text := k.Text
		c.StoryText = &text
		if k.Time > 0 {
			t := k.Time
			c.CreatedTime = &t
		}
		comments = append(comments, c)
	}

	saved, err := s.comments.BatchCreateComments(ctx, comments)
	if err != nil {
		return nil, fmt.Errorf("store comments for %d: %w", hnID, err)
	}

	s.logger.Info("thread synced",
		slog.Int64("hn_id", hnID),
		slog.Int("comments_fetched", len(comments)),
		slog.Int64("comments_saved", saved),
	)

	if s.queue != nil {
		s.enqueueExtractions(ctx, storyID)
	}

	return &SyncResult{HNID: hnID, StoryID: storyID, CommentsFetched: len(comments), CommentsSaved: saved}, nil
}

// upsertStory creates the story row or, when the thread was ingested before,
// refreshes its counters. A duplicate hn_id is the normal re-sync path, not
// an error.
func (s *Syncer) upsertStory(ctx context.Context, item *Item) (int64, error) {
	story := &models.Story{
		HNID:             item.ID,
		Month:            MonthOf(item.Time),
		KidsCount:        int64(len(item.Kids)),
		DescendantsCount: item.Descendants,
		Score:            item.Score,
	}
	if item.Title != "" {
		title := item.Title
		story.Title = &title
	}
	if item.Time > 0 {
		t := item.Time
		story.CreatedTime = &t
	}

	id, err := s.stories.CreateStory(ctx, story)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return 0, fmt.Errorf("store story %d: %w", item.ID, err)
	}

	existing, err := s.stories.GetStoryByHNID(ctx, item.ID)
	if err != nil {
		return 0, fmt.Errorf("load existing story %d: %w", item.ID, err)
	}
	if existing == nil {
		return 0, fmt.Errorf("story %d vanished after duplicate insert", item.ID)
	}
	if err := s.stories.UpdateStoryCounters(ctx, existing.ID, story.KidsCount, story.DescendantsCount, story.Score); err != nil {
		return 0, fmt.Errorf("refresh story %d counters: %w", item.ID, err)
	}
	return existing.ID, nil
}

func (s *Syncer) enqueueExtractions(ctx context.Context, storyID int64) {
	pending, err := s.comments.ListPending(ctx, 0)
	if err != nil {
		s.logger.Warn("list pending after sync", slog.Any("err", err))
		return
	}
	for i := range pending {
		if pending[i].StoryID != storyID {
			continue
		}
		payload := jobs.ExtractPostingPayload{CommentID: pending[i].ID}
		if _, err := s.queue.Enqueue(ctx, jobs.TypeExtractPosting, payload, 100, 3); err != nil {
			s.logger.Warn("enqueue extraction", slog.Int64("comment_id", pending[i].ID), slog.Any("err", err))
		}
	}
}

// MonthOf derives the "YYYY-MM" bucket from a unix timestamp, falling back
// to the current month when the item carries no timestamp.
func MonthOf(unix int64) string {
	t := time.Now().UTC()
	if unix > 0 {
		t = time.Unix(unix, 0).UTC()
	}
	return t.Format("2006-01")
}
