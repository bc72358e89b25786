package handlers

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/mockbird/mockbird/internal/editor"
	"github.com/mockbird/mockbird/internal/inspect"
	"github.com/mockbird/mockbird/internal/log"
	"github.com/mockbird/mockbird/internal/plan"
	"github.com/mockbird/mockbird/internal/preview"
	"github.com/mockbird/mockbird/internal/project"
	"github.com/mockbird/mockbird/internal/vfs"
	"github.com/mockbird/mockbird/internal/webref"
	"github.com/mockbird/mockbird/internal/workspace"
)

// Projects implements the project lifecycle: create from an idea, list,
// rename, save, delete, and everything scoped under one project (files,
// preview, problems, messages, events).
type Projects struct {
	logger    log.Logger
	store     *project.Store
	manager   *editor.Manager
	planner   *plan.Generator
	generator *editor.Generator
	renderer  *preview.Renderer
	broker    *preview.Broker
	fetcher   *webref.Fetcher
	tracker   *workspace.Tracker
	dataDir   string
}

// ProjectsConfig carries the dependencies for the projects handler.
// Fetcher may be nil (no reference import); Tracker may be nil (no
// workspace mirror); DataDir may be empty (the last-open project is
// not recorded).
type ProjectsConfig struct {
	Logger    log.Logger
	Store     *project.Store
	Manager   *editor.Manager
	Planner   *plan.Generator
	Generator *editor.Generator
	Renderer  *preview.Renderer
	Broker    *preview.Broker
	Fetcher   *webref.Fetcher
	Tracker   *workspace.Tracker
	DataDir   string
}

func NewProjects(cfg ProjectsConfig) *Projects {
	return &Projects{
		logger:    cfg.Logger,
		store:     cfg.Store,
		manager:   cfg.Manager,
		planner:   cfg.Planner,
		generator: cfg.Generator,
		renderer:  cfg.Renderer,
		broker:    cfg.Broker,
		fetcher:   cfg.Fetcher,
		tracker:   cfg.Tracker,
		dataDir:   cfg.DataDir,
	}
}

// RegisterRoutes registers all project routes. The generation-heavy
// create route is wrapped by limit when non-nil.
func (h *Projects) RegisterRoutes(mux *http.ServeMux, limit func(http.Handler) http.Handler) {
	create := http.Handler(http.HandlerFunc(h.Create))
	if limit != nil {
		create = limit(create)
	}

	mux.HandleFunc("GET /api/projects", h.List)
	mux.Handle("POST /api/projects", create)
	mux.HandleFunc("GET /api/projects/{id}", h.Get)
	mux.HandleFunc("PUT /api/projects/{id}", h.Update)
	mux.HandleFunc("DELETE /api/projects/{id}", h.Delete)

	mux.HandleFunc("GET /api/projects/{id}/files", h.ListFiles)
	mux.HandleFunc("POST /api/projects/{id}/files", h.CreateFile)
	mux.HandleFunc("PUT /api/projects/{id}/files/{fileID}", h.UpdateFile)
	mux.HandleFunc("DELETE /api/projects/{id}/files/{fileID}", h.DeleteFile)
	mux.HandleFunc("PUT /api/projects/{id}/files/{fileID}/activate", h.ActivateFile)

	mux.HandleFunc("GET /api/projects/{id}/preview", h.Preview)
	mux.HandleFunc("GET /api/projects/{id}/problems", h.Problems)
	mux.HandleFunc("GET /api/projects/{id}/messages", h.Messages)
	mux.HandleFunc("GET /api/projects/{id}/events", h.Events)
}

type createProjectRequest struct {
	Idea         string `json:"idea"`
	Title        string `json:"title"`
	ReferenceURL string `json:"reference_url"`
}

func (r createProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Idea, validation.Required, validation.Length(1, 2000)),
		validation.Field(&r.Title, validation.Length(0, 200)),
		validation.Field(&r.ReferenceURL, is.URL),
	)
}

// Create runs the full bootstrap: plan the idea, pick a title, generate
// the first document, and persist the project.
func (h *Projects) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
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
	if req.ReferenceURL != "" {
		if h.fetcher == nil {
			writeError(w, h.logger, http.StatusBadRequest, "REFERENCE_DISABLED", "reference import is not enabled")
			return
		}
		ref, err := h.fetcher.Fetch(ctx, req.ReferenceURL)
		if err != nil {
			status := http.StatusBadGateway
			code := "REFERENCE_FAILED"
			if errors.Is(err, webref.ErrBlockedURL) {
				status = http.StatusBadRequest
				code = "REFERENCE_REJECTED"
			}
			writeError(w, h.logger, status, code, err.Error())
			return
		}
		reference = webref.Digest([]webref.Reference{ref})
	}

	p, err := h.planner.Generate(ctx, req.Idea, reference)
	if err != nil {
		status, code := planErrorStatus(err)
		writeError(w, h.logger, status, code, err.Error())
		return
	}

	title := req.Title
	if title == "" {
		title = p.Name
	}
	if title == "" {
		title = h.generator.GenerateTitle(ctx, req.Idea)
	}

	doc, err := h.generator.GenerateApp(ctx, p, nil)
	if err != nil {
		writeError(w, h.logger, http.StatusBadGateway, "GENERATION_FAILED", err.Error())
		return
	}

	proj, err := h.store.Create(ctx, title, doc)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "CREATE_FAILED", err.Error())
		return
	}

	h.recordCurrent(proj.ID)
	h.broker.Publish(preview.Event{Type: preview.EventProject, ProjectID: proj.ID, Data: map[string]any{"action": "created", "project": proj}})
	h.logger.Info("project created", "project_id", proj.ID, "title", proj.Title)

	writeJSON(w, h.logger, http.StatusCreated, map[string]any{"project": proj, "plan": p})
}

func (h *Projects) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "LIST_FAILED", err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"projects": projects})
}

func (h *Projects) Get(w http.ResponseWriter, r *http.Request) {
	proj, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"project": proj})
}

type updateProjectRequest struct {
	Title string `json:"title"`
}

func (r updateProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(0, 200)),
	)
}

// Update saves the open session's bundled code and optionally renames
// the project.
func (h *Projects) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ctx := r.Context()
	if req.Title != "" {
		if err := h.store.Rename(ctx, id, req.Title); err != nil {
			h.writeStoreError(w, err)
			return
		}
	}
	if _, ok := h.manager.Get(id); ok {
		if _, err := h.manager.Save(ctx, id); err != nil {
			writeError(w, h.logger, http.StatusInternalServerError, "SAVE_FAILED", err.Error())
			return
		}
	}

	proj, err := h.store.Get(ctx, id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.broker.Publish(preview.Event{Type: preview.EventProject, ProjectID: id, Data: map[string]any{"action": "updated", "project": proj}})
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"project": proj})
}

func (h *Projects) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	h.manager.Close(id)
	h.renderer.Forget(id)
	if err := h.store.Delete(ctx, id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.clearCurrentIf(id)
	h.broker.Publish(preview.Event{Type: preview.EventProject, ProjectID: id, Data: map[string]any{"action": "deleted"}})
	h.logger.Info("project deleted", "project_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// fileResponse is how a virtual file appears on the wire.
type fileResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

func toFileResponse(f vfs.VirtualFile) fileResponse {
	return fileResponse{ID: f.ID, Name: f.Name, Language: string(f.Language), Content: f.Content}
}

func (h *Projects) ListFiles(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.openSession(w, r)
	if !ok {
		return
	}
	files := sess.Files()
	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"files":     out,
		"active_id": sess.Active().ID,
	})
}

type createFileRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (r createFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Content, validation.Length(0, 1<<20)),
	)
}

func (h *Projects) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	sess, ok := h.openSession(w, r)
	if !ok {
		return
	}
	file, err := sess.CreateFile(req.Name, req.Content)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, map[string]any{"file": toFileResponse(file)})
}

type updateFileRequest struct {
	Content string `json:"content"`
}

func (r updateFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Length(0, 1<<20)),
	)
}

func (h *Projects) UpdateFile(w http.ResponseWriter, r *http.Request) {
	var req updateFileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	sess, ok := h.openSession(w, r)
	if !ok {
		return
	}
	fileID := r.PathValue("fileID")
	if err := sess.UpdateFile(fileID, req.Content); err != nil {
		h.writeSessionError(w, err)
		return
	}
	file, err := sess.File(fileID)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"file": toFileResponse(file)})
}

func (h *Projects) DeleteFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.openSession(w, r)
	if !ok {
		return
	}
	if err := sess.DeleteFile(r.PathValue("fileID")); err != nil {
		h.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Projects) ActivateFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.openSession(w, r)
	if !ok {
		return
	}
	if err := sess.SetActive(r.PathValue("fileID")); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"active_id": sess.Active().ID})
}

// Preview serves the live bundled document. The sandbox policy keeps
// generated scripts runnable while isolating them from the studio
// origin.
func (h *Projects) Preview(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.openSession(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "sandbox allow-scripts")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write([]byte(sess.Bundle())); err != nil {
		h.logger.Debug("write preview", "error", err)
	}
}

func (h *Projects) Problems(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.openSession(w, r)
	if !ok {
		return
	}
	report := inspect.Inspect(sess.Bundle())
	writeJSON(w, h.logger, http.StatusOK, report)
}

func (h *Projects) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := h.store.Get(ctx, id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	messages, err := h.store.Messages(ctx, id)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "MESSAGES_FAILED", err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"messages": messages})
}

// Events streams the shared broker to the client. Every event payload
// carries its project ID, so a subscriber sees at least the project it
// asked for.
func (h *Projects) Events(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Get(r.Context(), r.PathValue("id")); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.broker.ServeHTTP(w, r)
}

// openSession returns the project's live session, opening and wiring
// it on first use. On failure the HTTP error is already written.
func (h *Projects) openSession(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	id := r.PathValue("id")
	if sess, ok := h.manager.Get(id); ok {
		return sess, true
	}

	sess, err := h.manager.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "NOT_FOUND", "project not found")
		} else {
			writeError(w, h.logger, http.StatusInternalServerError, "OPEN_FAILED", err.Error())
		}
		return nil, false
	}

	h.trackPreview(id, sess)
	if h.tracker != nil {
		h.tracker.Follow(id, sess)
	}
	h.recordCurrent(id)
	return sess, true
}

// trackPreview points the debounced renderer at the session. The
// render pass also runs inspection and publishes the report, so every
// merge produces both a preview and a fresh problem list.
func (h *Projects) trackPreview(projectID string, sess *editor.Session) {
	h.renderer.Track(projectID, func() string {
		doc := sess.Bundle()
		report := inspect.Inspect(doc)
		h.logger.Info("document inspected", "project_id", projectID, "problems", report.Summary())
		h.broker.PublishProblems(projectID, report)
		return doc
	})
}

func (h *Projects) recordCurrent(projectID string) {
	if h.dataDir == "" {
		return
	}
	id, err := uuid.Parse(projectID)
	if err != nil {
		return
	}
	if err := workspace.SaveCurrent(h.dataDir, id); err != nil {
		h.logger.Warn("record current project", "error", err)
	}
}

func (h *Projects) clearCurrentIf(projectID string) {
	if h.dataDir == "" {
		return
	}
	current, err := workspace.LoadCurrent(h.dataDir)
	if err != nil || current == nil || current.String() != projectID {
		return
	}
	if err := workspace.ClearCurrent(h.dataDir); err != nil {
		h.logger.Warn("clear current project", "error", err)
	}
}

func (h *Projects) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "NOT_FOUND", "project not found")
	case errors.Is(err, project.ErrEmptyTitle):
		writeError(w, h.logger, http.StatusBadRequest, "EMPTY_TITLE", "title must not be empty")
	default:
		writeError(w, h.logger, http.StatusInternalServerError, "STORE_FAILED", err.Error())
	}
}

func (h *Projects) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vfs.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "FILE_NOT_FOUND", "file not found")
	case errors.Is(err, vfs.ErrInvalidName):
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_NAME", "file name is not allowed")
	case errors.Is(err, vfs.ErrRootFile):
		writeError(w, h.logger, http.StatusConflict, "ROOT_FILE", "the root document cannot be removed")
	case errors.Is(err, vfs.ErrLastFile):
		writeError(w, h.logger, http.StatusConflict, "LAST_FILE", "a project needs at least one file")
	case errors.Is(err, vfs.ErrDuplicateRoot):
		writeError(w, h.logger, http.StatusConflict, "DUPLICATE_ROOT", "the project already has a root document")
	case errors.Is(err, editor.ErrClosed):
		writeError(w, h.logger, http.StatusConflict, "SESSION_CLOSED", "the session is closed")
	default:
		writeError(w, h.logger, http.StatusInternalServerError, "SESSION_FAILED", err.Error())
	}
}
