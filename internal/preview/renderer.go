package preview

import (
	"sync"
	"time"

	"github.com/mockbird/mockbird/internal/log"
)

// Renderer owns one debouncer per open project and publishes rendered
// documents to the broker. It is the single reactive value the editing
// surface observes: whenever a project's store changes, its bundled
// document is recomputed after the quiet period and broadcast.
type Renderer struct {
	broker     *Broker
	logger     log.Logger
	quiescence time.Duration

	mu         sync.Mutex
	debouncers map[string]*Debouncer
}

// NewRenderer creates a Renderer publishing through broker.
func NewRenderer(broker *Broker, quiescence time.Duration, logger log.Logger) *Renderer {
	if quiescence <= 0 {
		quiescence = DefaultQuiescence
	}
	return &Renderer{
		broker:     broker,
		logger:     logger,
		quiescence: quiescence,
		debouncers: make(map[string]*Debouncer),
	}
}

// Track starts debounced rendering for a project. render is typically the
// session's Bundle method. Tracking an already-tracked project replaces
// its debouncer.
func (r *Renderer) Track(projectID string, render RenderFunc) {
	d := NewDebouncer(r.quiescence, render, func(doc string) {
		r.broker.PublishPreview(projectID, doc)
		r.logger.Debug("preview published", "project_id", projectID, "document_bytes", len(doc))
	})

	r.mu.Lock()
	old := r.debouncers[projectID]
	r.debouncers[projectID] = d
	r.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// Notify marks a mutation for a project. Untracked projects are ignored.
func (r *Renderer) Notify(projectID string) {
	r.mu.Lock()
	d := r.debouncers[projectID]
	r.mu.Unlock()
	if d != nil {
		d.Notify()
	}
}

// Forget stops rendering for a project.
func (r *Renderer) Forget(projectID string) {
	r.mu.Lock()
	d := r.debouncers[projectID]
	delete(r.debouncers, projectID)
	r.mu.Unlock()
	if d != nil {
		d.Close()
	}
}

// Close stops every debouncer.
func (r *Renderer) Close() {
	r.mu.Lock()
	debouncers := r.debouncers
	r.debouncers = make(map[string]*Debouncer)
	r.mu.Unlock()

	for _, d := range debouncers {
		d.Close()
	}
}
