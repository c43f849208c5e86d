package hn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/garnizeh/hnjobs/internal/config"
)

var (
	ErrCircuitOpen = errors.New("hn circuit open")
	// ErrItemNotFound is returned for ids the API reports as missing.
	ErrItemNotFound = errors.New("hn item not found")
)

// Item is a Hacker News item as served by the Firebase API. A hiring thread
// is a "story" item whose kids are the job posting comments.
type Item struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	By          string  `json:"by,omitempty"`
	Time        int64   `json:"time,omitempty"`
	Text        string  `json:"text,omitempty"`
	Parent      int64   `json:"parent,omitempty"`
	Kids        []int64 `json:"kids,omitempty"`
	Title       string  `json:"title,omitempty"`
	Score       int64   `json:"score,omitempty"`
	Descendants int64   `json:"descendants,omitempty"`
	Deleted     bool    `json:"deleted,omitempty"`
	Dead        bool    `json:"dead,omitempty"`
}

// Client talks to the Hacker News Firebase API with per-request timeouts,
// retries, a polite inter-request delay and a circuit breaker.
type Client struct {
	cfg    config.HNConfig
	client *http.Client

	failures  int32
	openUntil int64 // unix nano
}

// package-level logger; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by internal/hn. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

func NewClient(cfg config.HNConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, client: httpClient}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}

	if time.Now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}

	// attempt half-open: reset failures and allow a request
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *Client) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, time.Now().Add(c.cfg.CircuitReset).UnixNano())
	}
}

// FetchItem retrieves a single item by id. A JSON "null" body (the API's way
// of saying the id does not exist) maps to ErrItemNotFound.
func (c *Client) FetchItem(ctx context.Context, id int64) (*Item, error) {
	if c.isCircuitOpen() {
		return nil, ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		item, err := c.fetchOnce(ctx, id)
		if err == nil || errors.Is(err, ErrItemNotFound) || ctx.Err() != nil {
			return item, err
		}

		lastErr = err
		c.recordFailure()
		time.Sleep(c.cfg.Backoff * time.Duration(attempt+1))
		if c.isCircuitOpen() {
			return nil, ErrCircuitOpen
		}
	}

	return nil, fmt.Errorf("fetch item %d failed after retries: %w", id, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, id int64) (*Item, error) {
	ctxReq, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	u := fmt.Sprintf("%s/item/%d.json", c.cfg.BaseURL, id)
	req, err := http.NewRequestWithContext(ctxReq, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("item endpoint returned status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 || string(b) == "null" {
		return nil, fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}

	var item Item
	if err := json.Unmarshal(b, &item); err != nil {
		return nil, fmt.Errorf("decode item %d: %w", id, err)
	}

	atomic.StoreInt32(&c.failures, 0)
	return &item, nil
}

// FetchItems retrieves many items, skipping deleted/dead/missing ones, with
// the configured delay between requests to stay polite to the API.
func (c *Client) FetchItems(ctx context.Context, ids []int64) ([]Item, error) {
	out := make([]Item, 0, len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if i > 0 && c.cfg.RequestDelay > 0 {
			time.Sleep(c.cfg.RequestDelay)
		}

		item, err := c.FetchItem(ctx, id)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				continue
			}
			logger.Warn("fetch item failed", slog.Int64("id", id), slog.Any("err", err))
			continue
		}
		if item.Deleted || item.Dead {
			continue
		}

		out = append(out, *item)
		if (i+1)%10 == 0 {
			logger.Info("fetch progress", slog.Int("done", i+1), slog.Int("total", len(ids)))
		}
	}
	return out, nil
}
