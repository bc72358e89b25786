package handlers

import (
	"context"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mockbird/mockbird/internal/backend"
	"github.com/mockbird/mockbird/internal/editor"
	"github.com/mockbird/mockbird/internal/log"
	"github.com/mockbird/mockbird/internal/project"
	"github.com/mockbird/mockbird/internal/web/sse"
)

// SSE event types for the edit stream.
const (
	EventChunk  = "chunk"
	EventMerged = "merged"
)

// ChunkPayload carries one streamed model fragment.
type ChunkPayload struct {
	Text string `json:"text"`
}

// MergedPayload closes a successful edit with the new document.
type MergedPayload struct {
	Document string `json:"document"`
}

// Edits runs one edit cycle per request and streams its progress.
type Edits struct {
	logger   log.Logger
	store    *project.Store
	projects *Projects
}

// EditsConfig carries the dependencies for the edits handler. Projects
// is reused for session opening so both handlers wire sessions the
// same way.
type EditsConfig struct {
	Logger   log.Logger
	Store    *project.Store
	Projects *Projects
}

func NewEdits(cfg EditsConfig) *Edits {
	return &Edits{logger: cfg.Logger, store: cfg.Store, projects: cfg.Projects}
}

// RegisterRoutes registers the edit route, wrapped by limit when
// non-nil.
func (h *Edits) RegisterRoutes(mux *http.ServeMux, limit func(http.Handler) http.Handler) {
	create := http.Handler(http.HandlerFunc(h.Create))
	if limit != nil {
		create = limit(create)
	}
	mux.Handle("POST /api/projects/{id}/edits", create)
}

type editRequest struct {
	Instruction string `json:"instruction"`
}

func (r editRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Instruction, validation.Required, validation.Length(1, 4000)),
	)
}

// Create streams one edit: chunk events while the model responds, then
// either a merged event with the new document or a single error event.
// The user's instruction lands in history before the request starts so
// the conversation stays complete even when the edit fails.
func (h *Edits) Create(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	sess, ok := h.projects.openSession(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	projectID := r.PathValue("id")
	if _, err := h.store.AppendMessage(ctx, projectID, project.RoleUser, req.Instruction); err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "HISTORY_FAILED", err.Error())
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "STREAM_FAILED", err.Error())
		return
	}

	h.logger.Debug("edit stream started", "project_id", projectID)

	onChunk := func(cctx context.Context, chunk string) error {
		return writer.WriteEvent(cctx, EventChunk, ChunkPayload{Text: chunk})
	}
	if err := sess.Apply(ctx, req.Instruction, onChunk); err != nil {
		if ctx.Err() != nil {
			h.logger.Info("edit client disconnected", "project_id", projectID)
			return
		}
		_ = writer.WriteError(editErrorCode(err), err.Error())
		return
	}

	_ = writer.WriteEvent(ctx, EventMerged, MergedPayload{Document: sess.Bundle()})
	h.logger.Info("edit stream completed", "project_id", projectID)
}

// editErrorCode maps session errors to machine-readable event codes.
func editErrorCode(err error) string {
	switch {
	case errors.Is(err, editor.ErrBusy):
		return "BUSY"
	case errors.Is(err, editor.ErrClosed):
		return "SESSION_CLOSED"
	case errors.Is(err, editor.ErrEmptyInstruction):
		return "EMPTY_INSTRUCTION"
	case errors.Is(err, editor.ErrEmptyResponse), errors.Is(err, editor.ErrResponseTooShort):
		return "UNUSABLE_RESPONSE"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	case errors.Is(err, backend.ErrCircuitOpen):
		return "MODEL_UNAVAILABLE"
	default:
		return "EDIT_FAILED"
	}
}
