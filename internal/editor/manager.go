package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mockbird/mockbird/internal/backend"
	"github.com/mockbird/mockbird/internal/bundle"
	"github.com/mockbird/mockbird/internal/log"
	"github.com/mockbird/mockbird/internal/project"
	"github.com/mockbird/mockbird/internal/vfs"
)

// ErrNoSession indicates no session is open for the project.
var ErrNoSession = errors.New("no open session")

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	Projects *project.Store
	Client   backend.Client
	Logger   log.Logger

	// OnMutate runs after any store mutation in any open session, with
	// the project ID. The web layer points this at the preview
	// debouncers. Optional.
	OnMutate func(projectID string)

	Temperature      float32
	MaxTokens        int
	MinResponseBytes int
}

// Manager is the registry of open edit sessions, one per project, and the
// only place sessions are created and torn down. Opening reconstructs the
// file store from the last saved document; closing discards the session
// without saving.
type Manager struct {
	projects *project.Store
	client   backend.Client
	logger   log.Logger
	onMutate func(projectID string)

	temperature float32
	maxTokens   int
	minBytes    int

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Projects == nil {
		return nil, errors.New("project store is required")
	}
	if cfg.Client == nil {
		return nil, errors.New("backend client is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Manager{
		projects:    cfg.Projects,
		client:      cfg.Client,
		logger:      cfg.Logger,
		onMutate:    cfg.OnMutate,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		minBytes:    cfg.MinResponseBytes,
		sessions:    make(map[string]*Session),
	}, nil
}

// Open returns the session for a project, creating it from the saved
// document on first use.
func (m *Manager) Open(ctx context.Context, projectID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[projectID]; ok {
		return sess, nil
	}

	p, err := m.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	store, err := vfs.New(bundle.Extract(p.Code)...)
	if err != nil {
		return nil, fmt.Errorf("reconstruct file store: %w", err)
	}

	var onMutate func()
	if m.onMutate != nil {
		notify := m.onMutate
		onMutate = func() { notify(projectID) }
	}

	sess, err := New(Config{
		ProjectID:        projectID,
		Store:            store,
		Client:           m.client,
		Logger:           m.logger,
		History:          &projectHistory{store: m.projects, projectID: projectID},
		OnMutate:         onMutate,
		Temperature:      m.temperature,
		MaxTokens:        m.maxTokens,
		MinResponseBytes: m.minBytes,
	})
	if err != nil {
		return nil, err
	}

	m.sessions[projectID] = sess
	m.logger.Debug("session opened", "project_id", projectID, "files", store.Len())
	return sess, nil
}

// Get returns an already-open session.
func (m *Manager) Get(projectID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[projectID]
	return sess, ok
}

// Save flattens a session's store into the project record and returns the
// saved document.
func (m *Manager) Save(ctx context.Context, projectID string) (string, error) {
	m.mu.Lock()
	sess, ok := m.sessions[projectID]
	m.mu.Unlock()
	if !ok {
		return "", ErrNoSession
	}

	doc := sess.Bundle()
	if err := m.projects.SaveCode(ctx, projectID, doc); err != nil {
		return "", err
	}
	m.logger.Debug("session saved", "project_id", projectID, "document_bytes", len(doc))
	return doc, nil
}

// Close discards a project's session. Unsaved changes are dropped; an
// in-flight edit completes against the closed session and is discarded.
func (m *Manager) Close(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[projectID]; ok {
		sess.Close()
		delete(m.sessions, projectID)
	}
}

// CloseAll discards every open session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		sess.Close()
		delete(m.sessions, id)
	}
}

// projectHistory binds a session's history sink to one project's chat log.
type projectHistory struct {
	store     *project.Store
	projectID string
}

func (h *projectHistory) Append(ctx context.Context, role, text string) error {
	_, err := h.store.AppendMessage(ctx, h.projectID, role, text)
	return err
}
