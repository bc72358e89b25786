// Package editor owns the AI edit cycle: one session per open project,
// bundling the file store into a prompt, streaming the model's reply,
// and merging validated output back by root-file replacement.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mockbird/mockbird/internal/backend"
	"github.com/mockbird/mockbird/internal/bundle"
	"github.com/mockbird/mockbird/internal/log"
	"github.com/mockbird/mockbird/internal/vfs"
)

// DefaultMinResponseBytes is the plausibility floor for model responses.
// Anything shorter after fence stripping is treated as truncated output
// and rejected without touching the store.
const DefaultMinResponseBytes = 80

// Roles recorded against the project history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// History is the sink for user-visible conversation entries. A Session
// writes to it exactly once per failed edit; successful edits write
// nothing, because the updated document is the reply.
type History interface {
	Append(ctx context.Context, role, text string) error
}

// Config wires a Session.
type Config struct {
	ProjectID string
	Store     *vfs.Store
	Client    backend.Client
	Logger    log.Logger

	// History receives failure messages. Optional.
	History History

	// OnMutate runs after every store mutation, including merges, while
	// the session lock is held. It must not call back into the session.
	// The web layer points this at the preview debouncer. Optional.
	OnMutate func()

	Temperature      float32
	MaxTokens        int
	MinResponseBytes int // 0 uses DefaultMinResponseBytes
}

// validate checks that all required collaborators are present.
func (cfg Config) validate() error {
	if cfg.ProjectID == "" {
		return errors.New("project id is required")
	}
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.Client == nil {
		return errors.New("backend client is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Session owns the virtual file store of one open project and runs its
// edit cycles. All store access goes through the session, so a merge can
// never race a manual file operation.
//
// The lock is released while a generation call is in flight; the
// Requesting state keeps further edits out during that window. Manual
// file operations stay allowed while an edit streams, matching the
// editing surface, where only the edit input is disabled.
type Session struct {
	id       string
	client   backend.Client
	history  History
	logger   log.Logger
	onMutate func()

	temperature float32
	maxTokens   int
	minBytes    int

	mu     sync.Mutex
	store  *vfs.Store
	state  State
	closed bool
}

// New creates a Session over an existing store.
func New(cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("editor session config: %w", err)
	}
	minBytes := cfg.MinResponseBytes
	if minBytes <= 0 {
		minBytes = DefaultMinResponseBytes
	}
	return &Session{
		id:          cfg.ProjectID,
		client:      cfg.Client,
		history:     cfg.History,
		logger:      cfg.Logger,
		onMutate:    cfg.OnMutate,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		minBytes:    minBytes,
		store:       cfg.Store,
		state:       StateIdle,
	}, nil
}

// ID returns the project ID the session serves.
func (s *Session) ID() string { return s.id }

// State returns the current edit-cycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close marks the session discarded. An in-flight edit that completes
// afterwards is dropped without touching the store or the history.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Apply runs one edit cycle: bundle the store, send it with the
// instruction, validate the streamed reply, and replace the root file's
// content with the reply's root document. Auxiliary files are never
// touched, even when the new root embeds fresh style or script blocks;
// the merge never reconciles, by contract.
//
// onChunk receives response fragments as they stream; fragment boundaries
// are arbitrary. On any failure the store is unchanged, exactly one
// failure message goes to the history sink, and no retry is attempted.
func (s *Session) Apply(ctx context.Context, instruction string, onChunk backend.StreamCallback) error {
	if strings.TrimSpace(instruction) == "" {
		return ErrEmptyInstruction
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = StateRequesting
	current := bundle.Document(s.store.Files())
	s.mu.Unlock()

	s.logger.Debug("edit requested", "project_id", s.id, "instruction_bytes", len(instruction))

	raw, genErr := s.client.Generate(ctx, backend.Request{
		System:      editSystemPrompt,
		Prompt:      fmt.Sprintf(editPromptTemplate, current, instruction),
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}, onChunk)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		// Torn down mid-request. Drop the orphaned response.
		s.state = StateIdle
		return ErrClosed
	}

	if genErr != nil {
		return s.fail(ctx, fmt.Errorf("generate edit: %w", genErr))
	}

	cleaned := backend.StripFences(raw)
	if err := validateResponse(cleaned, s.minBytes); err != nil {
		return s.fail(ctx, err)
	}

	s.state = StateMerging
	files := bundle.Extract(cleaned)
	root := s.store.Root()
	if err := s.store.UpdateContent(root.ID, files[0].Content); err != nil {
		return s.fail(ctx, fmt.Errorf("merge root: %w", err))
	}
	s.state = StateIdle
	s.logger.Info("edit merged", "project_id", s.id, "response_bytes", len(cleaned))
	s.notifyMutate()
	return nil
}

// fail records a failure and returns the session to Idle. The store is
// untouched; the user sees exactly one message and may resubmit.
func (s *Session) fail(ctx context.Context, err error) error {
	s.state = StateFailed
	s.logger.Warn("edit failed", "project_id", s.id, "error", err)
	if s.history != nil {
		// The request context may already be dead when the failure is a
		// timeout; the message must still land.
		ctx = context.WithoutCancel(ctx)
		if herr := s.history.Append(ctx, RoleModel, failureMessage(err)); herr != nil {
			s.logger.Warn("record failure message", "project_id", s.id, "error", herr)
		}
	}
	s.state = StateIdle
	return err
}

// validateResponse applies the plausibility checks shared by edits and
// whole-app generation.
func validateResponse(cleaned string, minBytes int) error {
	if cleaned == "" {
		return ErrEmptyResponse
	}
	if len(cleaned) < minBytes {
		return fmt.Errorf("%w: %d bytes, need at least %d", ErrResponseTooShort, len(cleaned), minBytes)
	}
	return nil
}

// failureMessage maps an edit failure to the single user-visible message
// recorded in the history.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The edit timed out before a full response arrived. Your files were not changed. Please try again."
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, ErrResponseTooShort):
		return "The model returned an unusable response, so nothing was changed. Try rephrasing the instruction."
	default:
		return "Something went wrong while applying the edit. Your files were not changed. Please try again."
	}
}

func (s *Session) notifyMutate() {
	if s.onMutate != nil {
		s.onMutate()
	}
}

// Bundle returns the store flattened into a single document.
func (s *Session) Bundle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bundle.Document(s.store.Files())
}

// Files returns a snapshot of the store's files in order.
func (s *Session) Files() []vfs.VirtualFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Files()
}

// File returns one file by ID.
func (s *Session) File(id string) (vfs.VirtualFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.File(id)
}

// Root returns the root markup file.
func (s *Session) Root() vfs.VirtualFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Root()
}

// Active returns the file currently open in the editor.
func (s *Session) Active() vfs.VirtualFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Active()
}

// SetActive points the editor at another file.
func (s *Session) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.store.SetActive(id)
}

// CreateFile adds a file, inferring its language from the name.
func (s *Session) CreateFile(name, content string) (vfs.VirtualFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return vfs.VirtualFile{}, ErrClosed
	}
	f, err := s.store.Create(name, content)
	if err != nil {
		return vfs.VirtualFile{}, err
	}
	s.notifyMutate()
	return f, nil
}

// UpdateFile replaces a file's content.
func (s *Session) UpdateFile(id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.store.UpdateContent(id, content); err != nil {
		return err
	}
	s.notifyMutate()
	return nil
}

// DeleteFile removes a file, subject to the store's guards: the last file
// and the root file are refused.
func (s *Session) DeleteFile(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.notifyMutate()
	return nil
}
