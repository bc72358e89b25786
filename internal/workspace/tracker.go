package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/mockbird/mockbird/internal/log"
)

// Tracker keeps a single Mirror pointed at the most recently opened
// project. Opening another project stops the previous watcher and
// exports the new project's files into the directory.
type Tracker struct {
	dir        string
	quiescence time.Duration
	logger     log.Logger

	mu      sync.Mutex
	current string
	mirror  *Mirror
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTracker creates a Tracker mirroring into dir. Quiescence is passed
// through to each Mirror; zero uses the default.
func NewTracker(dir string, quiescence time.Duration, logger log.Logger) *Tracker {
	return &Tracker{dir: dir, quiescence: quiescence, logger: logger}
}

// Follow mirrors proj into the tracker directory, replacing whatever
// project was followed before. Mirror failures are logged, not
// returned: an unusable mirror directory must not block editing.
func (t *Tracker) Follow(projectID string, proj Project) {
	t.mu.Lock()
	if t.current == projectID && t.mirror != nil {
		t.mu.Unlock()
		return
	}
	stop := t.detachLocked()
	t.mu.Unlock()
	stop()

	m, err := NewMirror(Config{
		Dir:        t.dir,
		Project:    proj,
		Logger:     t.logger,
		Quiescence: t.quiescence,
	})
	if err != nil {
		t.logger.Warn("workspace mirror unavailable", "dir", t.dir, "error", err)
		return
	}
	if err := m.Export(); err != nil {
		t.logger.Warn("workspace export failed", "project_id", projectID, "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	t.mu.Lock()
	// A concurrent Follow may have installed its own watcher while this
	// one was stopping the old one. Last writer wins.
	stop = t.detachLocked()
	t.current = projectID
	t.mirror = m
	t.cancel = cancel
	t.done = done
	t.mu.Unlock()
	stop()

	go func() {
		defer close(done)
		if err := m.Watch(ctx); err != nil {
			t.logger.Error("workspace watcher exited", "project_id", projectID, "error", err)
		}
	}()
}

// Export re-exports the followed project's files. Calls for projects
// the tracker is not following are ignored.
func (t *Tracker) Export(projectID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mirror == nil || t.current != projectID {
		return
	}
	if err := t.mirror.Export(); err != nil {
		t.logger.Warn("workspace export failed", "project_id", projectID, "error", err)
	}
}

// Close stops the watcher and waits for it to exit.
func (t *Tracker) Close() {
	t.mu.Lock()
	stop := t.detachLocked()
	t.mu.Unlock()
	stop()
}

// detachLocked removes the active watcher from the tracker and returns
// a function that cancels and joins it. The join must run after the
// lock is released: the watcher's import path calls Export, which takes
// the lock, so joining under it would deadlock.
func (t *Tracker) detachLocked() func() {
	cancel, done := t.cancel, t.done
	t.current, t.mirror, t.cancel, t.done = "", nil, nil, nil
	if cancel == nil {
		return func() {}
	}
	return func() {
		cancel()
		<-done
	}
}
