package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Default values applied by Config.
const (
	DefaultPeriod   = time.Minute
	DefaultCapacity = 16
)

// Config configures a Scheduler.
type Config struct {
	// Period is the sleep between two passes.
	Period time.Duration
	// Capacity is the buffer size of channels returned by Channel.
	Capacity int
	// Now returns the current time. Injectable for tests.
	Now func() time.Time
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Period <= 0 {
		c.Period = DefaultPeriod
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Scheduler tracks armed tasks and advances them once per period. P is the
// opaque payload carried by every event of a task.
type Scheduler[P any] struct {
	cfg Config

	mu    sync.RWMutex
	tasks store[P]
	pass  uint64 // number of the next pass, guarded by mu

	passes  atomic.Uint64
	running atomic.Bool
}

// New creates a Scheduler with no tasks.
func New[P any](cfg Config) *Scheduler[P] {
	return &Scheduler[P]{cfg: cfg.withDefaults()}
}

// Channel returns a sender/receiver pair sized by Config.Capacity. The sender
// is meant for exactly one Run.
func (s *Scheduler[P]) Channel() (*Sender[P], *Receiver[P]) {
	return NewChannel[P](s.cfg.Capacity)
}

// AddIntervalTask arms a task that fires every minutes passes.
func (s *Scheduler[P]) AddIntervalTask(payload P, minutes uint32, strategy Strategy) (TaskID, error) {
	if minutes == 0 {
		return 0, ErrInvalidInterval
	}
	if !strategy.valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidStrategy, int(strategy))
	}
	return s.add(payload, Interval{Minutes: minutes}, strategy), nil
}

// AddDateTask arms a task that fires once the clock reaches at. A target in
// the past is accepted and resolves on the next pass.
func (s *Scheduler[P]) AddDateTask(payload P, at time.Time, strategy Strategy) (TaskID, error) {
	if at.IsZero() {
		return 0, ErrInvalidDate
	}
	if !strategy.valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidStrategy, int(strategy))
	}
	return s.add(payload, AbsoluteDate{At: at}, strategy), nil
}

func (s *Scheduler[P]) add(payload P, trigger Trigger, strategy Strategy) TaskID {
	now := s.cfg.Now()
	e := &entry[P]{
		payload: payload,
		taskState: taskState{
			trigger:    trigger,
			strategy:   strategy,
			cycleStart: now,
		},
	}
	if d, ok := trigger.(AbsoluteDate); ok && !d.At.After(now) {
		e.pastDue = true
	}

	s.mu.Lock()
	e.armedPass = s.pass
	id := s.tasks.add(e)
	s.mu.Unlock()

	s.cfg.Logger.Debug("scheduler: task armed",
		"task_id", uint64(id),
		"trigger", trigger.String(),
		"strategy", strategy.String(),
		"pass", e.armedPass,
	)
	return id
}

// Run evaluates every armed task once per period and sends the resulting
// events to out. It blocks until ctx is done and returns ctx.Err(). Only one
// Run may be active at a time.
func (s *Scheduler[P]) Run(ctx context.Context, out *Sender[P]) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.cfg.Logger.Info("scheduler: started", "period", s.cfg.Period.String())

	timer := time.NewTimer(s.cfg.Period)
	defer timer.Stop()

	for {
		if err := s.runPass(ctx, out); err != nil {
			s.cfg.Logger.Info("scheduler: stopped", "passes", s.passes.Load())
			return err
		}

		timer.Reset(s.cfg.Period)
		select {
		case <-ctx.Done():
			s.cfg.Logger.Info("scheduler: stopped", "passes", s.passes.Load())
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// runPass evaluates every unfinished task under the write lock, sends one
// event per task, applies the resulting mutations and sweeps finished tasks.
func (s *Scheduler[P]) runPass(ctx context.Context, out *Sender[P]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Now()
	for _, e := range s.tasks.tasks {
		if e.finished {
			continue
		}

		o := evaluate(e.taskState, s.pass-e.armedPass, now)
		if o.kind != 0 {
			err := out.Send(ctx, Event[P]{
				Kind:     o.kind,
				TaskID:   e.id,
				Payload:  e.payload,
				Next:     o.next,
				Progress: o.progress,
			})
			if err != nil && !errors.Is(err, ErrConsumerGone) {
				return err
			}
			if o.kind != EventTick {
				s.cfg.Logger.Debug("scheduler: task fired",
					"task_id", uint64(e.id),
					"event", o.kind.String(),
					"pass", s.pass,
				)
			}
		}
		e.apply(o, now)
	}

	s.tasks.sweep()
	s.pass++
	s.passes.Add(1)
	return nil
}

// Len returns the number of armed tasks.
func (s *Scheduler[P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks.len()
}

// Passes returns the number of completed passes.
func (s *Scheduler[P]) Passes() uint64 {
	return s.passes.Load()
}

// Snapshot returns a copy of the armed tasks in registration order.
func (s *Scheduler[P]) Snapshot() []TaskInfo[P] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks.snapshot()
}
