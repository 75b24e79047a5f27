// Package schedulertest provides test doubles for the scheduler package.
package schedulertest

import (
	"context"
	"sync"
	"time"

	"github.com/flemzord/deltime/internal/scheduler"
)

// Recorder is a scheduler.Handler that keeps every event it receives.
type Recorder[P any] struct {
	mu     sync.Mutex
	events []scheduler.Event[P]
	notify chan struct{}
}

// Compile-time interface check.
var _ scheduler.Handler[string] = (*Recorder[string])(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder[P any]() *Recorder[P] {
	return &Recorder[P]{notify: make(chan struct{}, 1)}
}

// HandleEvent implements scheduler.Handler.
func (r *Recorder[P]) HandleEvent(_ context.Context, ev scheduler.Event[P]) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder[P]) Events() []scheduler.Event[P] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]scheduler.Event[P], len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of the recorded events in arrival order.
func (r *Recorder[P]) Kinds() []scheduler.EventKind {
	events := r.Events()
	out := make([]scheduler.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

// WaitFor blocks until match returns true for a recorded event or the
// timeout elapses. It reports whether a matching event was seen.
func (r *Recorder[P]) WaitFor(timeout time.Duration, match func(scheduler.Event[P]) bool) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		for _, ev := range r.Events() {
			if match(ev) {
				return true
			}
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			return false
		}
	}
}

// Clock is a manually advanced time source for scheduler.Config.Now.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock set to t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
