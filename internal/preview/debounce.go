package preview

import (
	"sync/atomic"
	"time"
)

// DefaultQuiescence is how long mutations must stop before a render runs.
// Roughly a typing pause: long enough to skip per-keystroke renders, short
// enough to feel live.
const DefaultQuiescence = 800 * time.Millisecond

// RenderFunc produces the value published after a quiet period. It runs
// on the debouncer's goroutine.
type RenderFunc func() string

// Debouncer coalesces bursts of mutations into one render per quiet
// period: every Notify restarts the timer, and only when it expires does
// the render run and its result get published.
type Debouncer struct {
	quiescence time.Duration
	render     RenderFunc
	publish    func(string)

	notifyCh chan struct{}
	stopCh   chan struct{}
	stopped  chan struct{}
	closed   atomic.Bool
}

// NewDebouncer creates a Debouncer and starts its loop. publish receives
// each rendered value.
func NewDebouncer(quiescence time.Duration, render RenderFunc, publish func(string)) *Debouncer {
	if quiescence <= 0 {
		quiescence = DefaultQuiescence
	}
	d := &Debouncer{
		quiescence: quiescence,
		render:     render,
		publish:    publish,
		notifyCh:   make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Debouncer) run() {
	defer close(d.stopped)

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(d.quiescence)
			fire = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d.quiescence)
	}

	for {
		select {
		case <-d.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-d.notifyCh:
			schedule()
		case <-fire:
			d.publish(d.render())
		}
	}
}

// Notify records a mutation and restarts the quiet period. It never
// blocks: when a notification is already pending, the restart it asks for
// is covered, so the send is dropped. That keeps Notify safe to call from
// code holding the session lock even while the loop is rendering.
func (d *Debouncer) Notify() {
	if d.closed.Load() {
		return
	}
	select {
	case d.notifyCh <- struct{}{}:
	default:
	}
}

// Close stops the loop. A pending render is abandoned.
func (d *Debouncer) Close() {
	if d.closed.CompareAndSwap(false, true) {
		close(d.stopCh)
	}
	<-d.stopped
}
