package scheduler

import (
	"context"
	"time"
)

// EventKind identifies a lifecycle event.
type EventKind int

const (
	// EventTick is a heartbeat for a task that is not due yet.
	EventTick EventKind = iota + 1
	// EventFinish is the terminal event of a Once task.
	EventFinish
	// EventFinishCycle is emitted each time a repeating task fires.
	EventFinishCycle
	// EventExpired is the terminal event of a Once date task whose target
	// had already passed when it was registered.
	EventExpired
)

func (k EventKind) String() string {
	switch k {
	case EventTick:
		return "tick"
	case EventFinish:
		return "finish"
	case EventFinishCycle:
		return "finish_cycle"
	case EventExpired:
		return "expired"
	default:
		return "none"
	}
}

// Terminal reports whether no further event follows for the task.
func (k EventKind) Terminal() bool {
	return k == EventFinish || k == EventExpired
}

// Progress describes how far a task is towards its next firing.
// For interval triggers the unit is passes, for date triggers seconds.
type Progress struct {
	Current uint64
	Total   uint64
}

// Event is a lifecycle event delivered to the consumer.
type Event[P any] struct {
	Kind    EventKind
	TaskID  TaskID
	Payload P

	// Next is the rewritten target of a date task after a FinishCycle.
	// It is the zero time when the trigger was not rewritten.
	Next time.Time

	Progress Progress
}

// HasNext reports whether the event carries a rewritten target date.
func (e Event[P]) HasNext() bool {
	return !e.Next.IsZero()
}

// Handler consumes lifecycle events. HandleEvent runs outside the store lock,
// so it may register new tasks.
type Handler[P any] interface {
	HandleEvent(ctx context.Context, ev Event[P])
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc[P any] func(ctx context.Context, ev Event[P])

// HandleEvent implements Handler.
func (f HandlerFunc[P]) HandleEvent(ctx context.Context, ev Event[P]) {
	f(ctx, ev)
}

// Consume delivers every event from r to h until ctx is done or the receiver
// is closed.
func Consume[P any](ctx context.Context, r *Receiver[P], h Handler[P]) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.closed:
			return nil
		case ev := <-r.ch:
			h.HandleEvent(ctx, ev)
		}
	}
}
