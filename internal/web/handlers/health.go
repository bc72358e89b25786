package handlers

import (
	"net/http"

	"github.com/mockbird/mockbird/internal/log"
)

// Health answers liveness probes.
type Health struct {
	logger log.Logger
}

func NewHealth(logger log.Logger) *Health {
	return &Health{logger: logger}
}

func (h *Health) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Check)
}

func (h *Health) Check(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}
