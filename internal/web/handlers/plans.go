package handlers

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/mockbird/mockbird/internal/log"
	"github.com/mockbird/mockbird/internal/plan"
	"github.com/mockbird/mockbird/internal/webref"
)

// Plans turns ideas into project plans without creating a project.
type Plans struct {
	logger  log.Logger
	planner *plan.Generator
	fetcher *webref.Fetcher
}

// PlansConfig carries the dependencies for the plans handler. Fetcher
// may be nil, which disables reference import.
type PlansConfig struct {
	Logger  log.Logger
	Planner *plan.Generator
	Fetcher *webref.Fetcher
}

func NewPlans(cfg PlansConfig) *Plans {
	return &Plans{logger: cfg.Logger, planner: cfg.Planner, fetcher: cfg.Fetcher}
}

// RegisterRoutes registers the plan route, wrapped by limit when
// non-nil.
func (h *Plans) RegisterRoutes(mux *http.ServeMux, limit func(http.Handler) http.Handler) {
	create := http.Handler(http.HandlerFunc(h.Create))
	if limit != nil {
		create = limit(create)
	}
	mux.Handle("POST /api/plans", create)
}

type planRequest struct {
	Idea         string `json:"idea"`
	ReferenceURL string `json:"reference_url"`
}

func (r planRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Idea, validation.Required, validation.Length(1, 2000)),
		validation.Field(&r.ReferenceURL, is.URL),
	)
}

type planResponse struct {
	Plan      *plan.Plan        `json:"plan"`
	Markdown  string            `json:"markdown"`
	HTML      string            `json:"html"`
	Reference *webref.Reference `json:"reference,omitempty"`
}

func (h *Plans) Create(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ctx := r.Context()

	var reference string
	var ref *webref.Reference
	if req.ReferenceURL != "" {
		fetched, ok := h.fetchReference(w, r, req.ReferenceURL)
		if !ok {
			return
		}
		ref = fetched
		reference = webref.Digest([]webref.Reference{*fetched})
	}

	p, err := h.planner.Generate(ctx, req.Idea, reference)
	if err != nil {
		status, code := planErrorStatus(err)
		writeError(w, h.logger, status, code, err.Error())
		return
	}

	html, err := p.HTML()
	if err != nil {
		h.logger.Warn("render plan HTML", "error", err)
	}
	writeJSON(w, h.logger, http.StatusOK, planResponse{
		Plan:      p,
		Markdown:  p.Markdown(),
		HTML:      string(html),
		Reference: ref,
	})
}

// fetchReference resolves a reference URL, writing the HTTP error
// itself when the fetch cannot be used.
func (h *Plans) fetchReference(w http.ResponseWriter, r *http.Request, rawURL string) (*webref.Reference, bool) {
	if h.fetcher == nil {
		writeError(w, h.logger, http.StatusBadRequest, "REFERENCE_DISABLED", "reference import is not enabled")
		return nil, false
	}
	ref, err := h.fetcher.Fetch(r.Context(), rawURL)
	if err != nil {
		status := http.StatusBadGateway
		code := "REFERENCE_FAILED"
		if errors.Is(err, webref.ErrBlockedURL) || errors.Is(err, webref.ErrEmptyURL) {
			status = http.StatusBadRequest
			code = "REFERENCE_REJECTED"
		}
		writeError(w, h.logger, status, code, err.Error())
		return nil, false
	}
	return &ref, true
}

func planErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, plan.ErrEmptyIdea):
		return http.StatusBadRequest, "EMPTY_IDEA"
	case errors.Is(err, plan.ErrInvalidPlan), errors.Is(err, plan.ErrEmptyResponse):
		return http.StatusBadGateway, "UNUSABLE_PLAN"
	default:
		return http.StatusBadGateway, "PLAN_FAILED"
	}
}
