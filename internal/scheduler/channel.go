package scheduler

import (
	"context"
	"sync"
)

// Sender is the producing half of an event channel. It is owned by exactly
// one tick loop.
type Sender[P any] struct {
	ch     chan Event[P]
	closed <-chan struct{}
}

// Receiver is the consuming half of an event channel.
type Receiver[P any] struct {
	ch        chan Event[P]
	closed    chan struct{}
	closeOnce sync.Once
}

// NewChannel returns a bound sender/receiver pair buffering up to capacity
// events. A capacity below one is raised to one.
func NewChannel[P any](capacity int) (*Sender[P], *Receiver[P]) {
	if capacity < 1 {
		capacity = 1
	}
	ch := make(chan Event[P], capacity)
	closed := make(chan struct{})
	return &Sender[P]{ch: ch, closed: closed}, &Receiver[P]{ch: ch, closed: closed}
}

// Send delivers ev, blocking while the channel is full. It returns
// ErrConsumerGone once the receiver is closed and ctx.Err() if ctx is done
// first.
func (s *Sender[P]) Send(ctx context.Context, ev Event[P]) error {
	select {
	case <-s.closed:
		return ErrConsumerGone
	default:
	}
	select {
	case s.ch <- ev:
		return nil
	case <-s.closed:
		return ErrConsumerGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C returns the channel events arrive on.
func (r *Receiver[P]) C() <-chan Event[P] {
	return r.ch
}

// Close drops the receiver. Pending and future sends are discarded.
// Safe to call more than once.
func (r *Receiver[P]) Close() {
	r.closeOnce.Do(func() { close(r.closed) })
}

// Done is closed once the receiver has been dropped.
func (r *Receiver[P]) Done() <-chan struct{} {
	return r.closed
}
