package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/garnizeh/hnjobs/pkg/models"
	"github.com/garnizeh/hnjobs/pkg/repository"
)

type CommentsHandler struct {
	commentRepo repository.CommentRepo
}

func NewCommentsHandler(cr repository.CommentRepo) *CommentsHandler {
	return &CommentsHandler{commentRepo: cr}
}

type postCommentRequest struct {
	HNID        int64   `json:"hn_id"`
	StoryID     int64   `json:"story_id"`
	StoryText   *string `json:"story_text,omitempty"`
	CreatedTime *int64  `json:"created_time,omitempty"`
}

type postCommentResponse struct {
	ID int64 `json:"id"`
}

// CreateComment inserts a single job posting. The new row always starts as
// pending; extraction results arrive later through the processing pipeline.
func (h *CommentsHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req postCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if req.HNID <= 0 {
		http.Error(w, "hn_id is required", http.StatusBadRequest)
		return
	}
	if req.StoryID <= 0 {
		http.Error(w, "story_id is required", http.StatusBadRequest)
		return
	}
	if req.StoryText != nil {
		trimmed := strings.TrimSpace(*req.StoryText)
		req.StoryText = &trimmed
	}

	c := &models.Comment{
		HNID:            req.HNID,
		StoryID:         req.StoryID,
		StoryText:       req.StoryText,
		ProcessedStatus: models.StatusPending,
		CreatedTime:     req.CreatedTime,
	}
	id, err := h.commentRepo.CreateComment(r.Context(), c)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			http.Error(w, "comment already ingested", http.StatusConflict)
		case errors.Is(err, repository.ErrMissingStory):
			http.Error(w, "story_id does not reference a stored story", http.StatusUnprocessableEntity)
		default:
			http.Error(w, "failed to store comment", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, postCommentResponse{ID: id}, http.StatusCreated)
}

// GetComment looks a comment up by its HN id (?hn_id=...).
func (h *CommentsHandler) GetComment(w http.ResponseWriter, r *http.Request) {
	hnStr := r.URL.Query().Get("hn_id")
	if hnStr == "" {
		http.Error(w, "hn_id is required", http.StatusBadRequest)
		return
	}
	hnID, err := strconv.ParseInt(hnStr, 10, 64)
	if err != nil || hnID <= 0 {
		http.Error(w, "invalid hn_id", http.StatusBadRequest)
		return
	}

	c, err := h.commentRepo.GetCommentByHNID(r.Context(), hnID)
	if err != nil {
		http.Error(w, "failed to load comment", http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.Error(w, "comment not found", http.StatusNotFound)
		return
	}

	writeJSON(w, c, http.StatusOK)
}
