package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mockbird/mockbird/internal/log"
	"github.com/mockbird/mockbird/internal/security"
	"github.com/mockbird/mockbird/internal/vfs"
)

// DefaultQuiescence is how long the watcher waits after the last disk
// event before importing, so editor save bursts land as one update.
const DefaultQuiescence = 300 * time.Millisecond

// Project is the slice of an edit session the mirror needs.
type Project interface {
	Files() []vfs.VirtualFile
	UpdateFile(id, content string) error
}

// Config carries the dependencies for a Mirror.
type Config struct {
	// Dir is the directory the project is mirrored into.
	Dir string

	Project Project
	Logger  log.Logger

	// Quiescence overrides DefaultQuiescence when positive.
	Quiescence time.Duration
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Dir) == "" {
		return errors.New("mirror directory is required")
	}
	if c.Project == nil {
		return errors.New("project is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Mirror keeps an open project's files on disk. Export writes every
// file into the directory; Watch imports edited contents back into the
// project after a quiet period.
type Mirror struct {
	scope      *security.Scope
	project    Project
	logger     log.Logger
	quiescence time.Duration

	// lastWritten remembers what Export put on disk per file name, so
	// the watcher can tell an external edit from its own echo.
	mu          sync.Mutex
	lastWritten map[string]string
}

// NewMirror creates a Mirror and its directory.
func NewMirror(cfg Config) (*Mirror, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid mirror config: %w", err)
	}
	scope, err := security.NewScope(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve mirror directory: %w", err)
	}
	if err := os.MkdirAll(scope.Base(), 0o750); err != nil {
		return nil, fmt.Errorf("create mirror directory: %w", err)
	}
	quiescence := cfg.Quiescence
	if quiescence <= 0 {
		quiescence = DefaultQuiescence
	}
	return &Mirror{
		scope:       scope,
		project:     cfg.Project,
		logger:      cfg.Logger,
		quiescence:  quiescence,
		lastWritten: map[string]string{},
	}, nil
}

// Dir returns the absolute mirror directory.
func (m *Mirror) Dir() string {
	return m.scope.Base()
}

// Export writes every project file into the mirror directory. Files
// whose content already matches the last export are skipped.
func (m *Mirror) Export() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, file := range m.project.Files() {
		if m.lastWritten[file.Name] == file.Content {
			continue
		}
		path, err := m.scope.Resolve(file.Name)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", file.Name, err)
		}
		if err := os.WriteFile(path, []byte(file.Content), 0o644); err != nil {
			return fmt.Errorf("write %q: %w", file.Name, err)
		}
		m.lastWritten[file.Name] = file.Content
	}
	return nil
}

// Watch processes disk events until ctx is cancelled, importing
// changed file contents back into the project. Unknown file names and
// the mirror's own exports are ignored.
func (m *Mirror) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(m.scope.Base()); err != nil {
		return fmt.Errorf("watch %s: %w", m.scope.Base(), err)
	}
	m.logger.Info("workspace mirror watching", "dir", m.scope.Base())

	pending := map[string]struct{}{}
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	schedule := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(m.quiescence)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(m.quiescence)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			m.logger.Info("workspace mirror stopped")
			return nil

		case <-flushCh:
			m.importPending(pending)
			pending = map[string]struct{}{}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !m.scope.Contains(ev.Name) {
				continue
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") {
				continue
			}
			pending[name] = struct{}{}
			schedule()

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.Error("workspace watcher error", "error", werr)
		}
	}
}

// importPending reads each pending file and pushes changed contents
// into the project. Per-file failures are logged and skipped so one
// bad file cannot stall the rest.
func (m *Mirror) importPending(pending map[string]struct{}) {
	if len(pending) == 0 {
		return
	}

	byName := map[string]vfs.VirtualFile{}
	for _, f := range m.project.Files() {
		byName[f.Name] = f
	}

	for name := range pending {
		file, ok := byName[name]
		if !ok {
			m.logger.Debug("ignoring unknown workspace file", "name", name)
			continue
		}
		path, err := m.scope.Resolve(name)
		if err != nil {
			m.logger.Debug("ignoring unsafe workspace file", "name", name, "error", err)
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			m.logger.Warn("workspace read failed", "name", name, "error", err)
			continue
		}
		content := string(data)

		m.mu.Lock()
		echo := m.lastWritten[name] == content
		m.mu.Unlock()
		if echo || content == file.Content {
			continue
		}

		if err := m.project.UpdateFile(file.ID, content); err != nil {
			m.logger.Warn("workspace import failed", "name", name, "error", err)
			continue
		}
		m.mu.Lock()
		m.lastWritten[name] = content
		m.mu.Unlock()
		m.logger.Info("imported workspace change", "name", name, "bytes", len(content))
	}
}
