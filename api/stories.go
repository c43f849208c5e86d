package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/garnizeh/hnjobs/pkg/models"
	"github.com/garnizeh/hnjobs/pkg/repository"
	"github.com/gorilla/mux"
)

type StoriesHandler struct {
	storyRepo   repository.StoryRepo
	commentRepo repository.CommentRepo
}

func NewStoriesHandler(sr repository.StoryRepo, cr repository.CommentRepo) *StoriesHandler {
	return &StoriesHandler{storyRepo: sr, commentRepo: cr}
}

type postStoryRequest struct {
	HNID             int64   `json:"hn_id"`
	Title            *string `json:"title,omitempty"`
	Month            string  `json:"month"`
	KidsCount        int64   `json:"kids_count"`
	DescendantsCount int64   `json:"descendants_count"`
	Score            int64   `json:"score"`
	CreatedTime      *int64  `json:"created_time,omitempty"`
}

type postStoryResponse struct {
	ID int64 `json:"id"`
}

func (h *StoriesHandler) CreateStory(w http.ResponseWriter, r *http.Request) {
	var req postStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if req.HNID <= 0 {
		http.Error(w, "hn_id is required", http.StatusBadRequest)
		return
	}
	req.Month = strings.TrimSpace(req.Month)
	if !validMonth(req.Month) {
		http.Error(w, "month must be in YYYY-MM form", http.StatusBadRequest)
		return
	}
	if req.KidsCount < 0 || req.DescendantsCount < 0 || req.Score < 0 {
		http.Error(w, "counters must be non-negative", http.StatusBadRequest)
		return
	}

	s := &models.Story{
		HNID:             req.HNID,
		Title:            req.Title,
		Month:            req.Month,
		KidsCount:        req.KidsCount,
		DescendantsCount: req.DescendantsCount,
		Score:            req.Score,
		CreatedTime:      req.CreatedTime,
	}
	id, err := h.storyRepo.CreateStory(r.Context(), s)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			http.Error(w, "story already ingested", http.StatusConflict)
			return
		}
		http.Error(w, "failed to store story", http.StatusInternalServerError)
		return
	}

	writeJSON(w, postStoryResponse{ID: id}, http.StatusCreated)
}

func (h *StoriesHandler) GetStory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid story id", http.StatusBadRequest)
		return
	}

	s, err := h.storyRepo.GetStoryByID(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load story", http.StatusInternalServerError)
		return
	}
	if s == nil {
		http.Error(w, "story not found", http.StatusNotFound)
		return
	}

	writeJSON(w, s, http.StatusOK)
}

func (h *StoriesHandler) ListStoryComments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid story id", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	limit := 100
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	offset := 0
	if o := q.Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	comments, err := h.commentRepo.ListCommentsByStory(r.Context(), id, limit, offset)
	if err != nil {
		http.Error(w, "failed to list comments", http.StatusInternalServerError)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	resp := map[string]any{
		"limit":  limit,
		"offset": offset,
		"items":  comments,
	}
	writeJSON(w, resp, http.StatusOK)
}

// JobsByMonth returns the completed job postings for a month's hiring
// thread. Accepts "YYYY-MM" or an English month name; defaults to the
// current month.
func (h *StoriesHandler) JobsByMonth(w http.ResponseWriter, r *http.Request) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	month, err := normalizeMonth(month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	comments, err := h.commentRepo.ListCompletedByMonth(r.Context(), month)
	if err != nil {
		http.Error(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	resp := map[string]any{
		"month": month,
		"count": len(comments),
		"items": comments,
	}
	writeJSON(w, resp, http.StatusOK)
}

func validMonth(s string) bool {
	_, err := time.Parse("2006-01", s)
	return err == nil
}

// normalizeMonth maps "", "2025-01" and "january" to a "YYYY-MM" bucket.
func normalizeMonth(s string) (string, error) {
	now := time.Now().UTC()
	if s == "" {
		return now.Format("2006-01"), nil
	}
	if validMonth(s) {
		return s, nil
	}

	name := strings.ToLower(s)
	name = strings.ToUpper(name[:1]) + name[1:]
	if t, err := time.Parse("January", name); err == nil {
		return time.Date(now.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Format("2006-01"), nil
	}

	return "", errors.New("invalid month")
}
