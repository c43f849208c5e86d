package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/garnizeh/hnjobs/internal/ai"
	"github.com/garnizeh/hnjobs/internal/jobs"
	"github.com/garnizeh/hnjobs/pkg/models"
	"github.com/garnizeh/hnjobs/pkg/repository"
	"github.com/gorilla/mux"
	"github.com/qri-io/jsonschema"
)

// Enqueuer matches the worker pool's enqueue helper so handlers can schedule
// background work without holding the pool itself.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

// AdminHandler owns every endpoint that updates stored rows or triggers
// processing. All of them sit behind JWT auth: there is no public update
// policy on stories or comments.
type AdminHandler struct {
	commentRepo repository.CommentRepo
	schemaRepo  repository.SchemaRepo
	queue       Enqueuer
	processor   *ai.Processor
	engine      *ai.Engine
}

func NewAdminHandler(cr repository.CommentRepo, sr repository.SchemaRepo, queue Enqueuer, processor *ai.Processor, engine *ai.Engine) *AdminHandler {
	return &AdminHandler{commentRepo: cr, schemaRepo: sr, queue: queue, processor: processor, engine: engine}
}

// SyncThread enqueues a full thread ingestion for an HN story id.
func (h *AdminHandler) SyncThread(w http.ResponseWriter, r *http.Request) {
	hnID, err := strconv.ParseInt(mux.Vars(r)["hnID"], 10, 64)
	if err != nil || hnID <= 0 {
		http.Error(w, "invalid hn id", http.StatusBadRequest)
		return
	}

	jobID, err := h.queue.Enqueue(r.Context(), jobs.TypeSyncThread, jobs.SyncThreadPayload{HNID: hnID}, 50, 3)
	if err != nil {
		http.Error(w, "failed to enqueue sync", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"job_id": jobID, "hn_id": hnID}, http.StatusAccepted)
}

// ProcessPending sweeps pending comments into extraction jobs.
func (h *AdminHandler) ProcessPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.commentRepo.ListPending(r.Context(), 0)
	if err != nil {
		http.Error(w, "failed to list pending comments", http.StatusInternalServerError)
		return
	}

	enqueued := 0
	for i := range pending {
		if _, err := h.queue.Enqueue(r.Context(), jobs.TypeExtractPosting, jobs.ExtractPostingPayload{CommentID: pending[i].ID}, 100, 3); err != nil {
			logger.Error("enqueue extraction", "comment_id", pending[i].ID, "err", err)
			continue
		}
		enqueued++
	}

	writeJSON(w, map[string]any{"pending": len(pending), "enqueued": enqueued}, http.StatusAccepted)
}

// ProcessComment runs the extraction pipeline synchronously for one comment,
// addressed by its HN id.
func (h *AdminHandler) ProcessComment(w http.ResponseWriter, r *http.Request) {
	hnID, err := strconv.ParseInt(mux.Vars(r)["hnID"], 10, 64)
	if err != nil || hnID <= 0 {
		http.Error(w, "invalid hn id", http.StatusBadRequest)
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

	if err := h.processor.ProcessComment(r.Context(), c.ID); err != nil {
		if errors.Is(err, ai.ErrAlreadyClaimed) {
			http.Error(w, "comment is already being processed", http.StatusConflict)
			return
		}
		http.Error(w, fmt.Sprintf("processing failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	updated, err := h.commentRepo.GetCommentByHNID(r.Context(), hnID)
	if err != nil || updated == nil {
		http.Error(w, "failed to reload comment", http.StatusInternalServerError)
		return
	}

	writeJSON(w, updated, http.StatusOK)
}

type statusUpdateRequest struct {
	Status         string          `json:"status"`
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
}

// UpdateStatus applies a status transition by comment id. The repository
// rejects both out-of-set values and out-of-order transitions.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid comment id", http.StatusBadRequest)
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	switch req.Status {
	case models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusFailed:
	default:
		http.Error(w, "status must be one of pending, processing, completed, failed", http.StatusBadRequest)
		return
	}

	if err := h.commentRepo.UpdateStatus(r.Context(), id, req.Status, req.StructuredData); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			http.Error(w, "comment not found", http.StatusNotFound)
		case errors.Is(err, repository.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, repository.ErrInvalidStatus):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "failed to update status", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReloadSchemas recompiles the extraction schemas from the store.
func (h *AdminHandler) ReloadSchemas(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ReloadSchemas(r.Context()); err != nil {
		http.Error(w, fmt.Sprintf("reload schemas: %v", err), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSchema returns a single extraction schema by version.
func (h *AdminHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	version := mux.Vars(r)["version"]

	s, err := h.schemaRepo.GetSchemaByVersion(r.Context(), version)
	if err != nil {
		http.Error(w, fmt.Sprintf("load schema: %v", err), http.StatusInternalServerError)
		return
	}
	if s == nil {
		http.Error(w, "schema not found", http.StatusNotFound)
		return
	}

	writeJSON(w, s, http.StatusOK)
}

func (h *AdminHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	rows, err := h.schemaRepo.ListSchemas(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("list schemas: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, rows, http.StatusOK)
}

type schemaPayload struct {
	Version     string          `json:"version"`
	Description string          `json:"description,omitempty"`
	SchemaJSON  json.RawMessage `json:"schema_json"`
}

// CreateOrUpdateSchema validates and stores an extraction schema.
func (h *AdminHandler) CreateOrUpdateSchema(w http.ResponseWriter, r *http.Request) {
	var p schemaPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if p.Version == "" {
		http.Error(w, "version required", http.StatusBadRequest)
		return
	}

	// basic compile check using qri-io/jsonschema
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(p.SchemaJSON, rs); err != nil {
		http.Error(w, fmt.Sprintf("invalid schema json: %v", err), http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	if _, err := h.schemaRepo.CreateSchema(ctx, p.Version, p.Description, string(p.SchemaJSON)); err != nil {
		http.Error(w, fmt.Sprintf("store schema: %v", err), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
