// Package preview turns store mutations into rendered documents: a
// debouncer per open project waits for edits to settle, then the bundled
// document is pushed to every subscribed client over SSE.
package preview

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
)

// Event types broadcast by the broker.
const (
	EventPreview  = "preview.updated"
	EventProblems = "problems.updated"
	EventEdit     = "edit.state"
	EventProject  = "project.updated"
)

// Event is one server-sent event. ProjectID scopes it; clients filter on
// the project they have open.
type Event struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Broker fans events out to SSE clients.
//
// Concurrency model: a single event loop owns the client set. Public
// methods talk to the loop through channels, so no mutexes are required,
// and every method is safe after Close.
type Broker struct {
	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a Broker and starts its loop.
func NewBroker() *Broker {
	b := &Broker{
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})

	broadcast := func(event Event) {
		payload, err := json.Marshal(event)
		if err != nil {
			return
		}
		raw := fmt.Appendf(nil, "event: %s\ndata: %s\n\n", event.Type, payload)

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client and returns its channel. The channel is closed
// on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishPreview broadcasts a freshly bundled document.
func (b *Broker) PublishPreview(projectID, doc string) {
	b.Publish(Event{Type: EventPreview, ProjectID: projectID, Data: doc})
}

// PublishProblems broadcasts an inspection report.
func (b *Broker) PublishProblems(projectID string, report any) {
	b.Publish(Event{Type: EventProblems, ProjectID: projectID, Data: report})
}

// ServeHTTP streams events to one client until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
