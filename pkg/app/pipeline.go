package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/flemzord/deltime/internal/scheduler"
	"github.com/flemzord/deltime/internal/task"
)

// pipeline runs the scheduler and the event consumer as one component.
type pipeline struct {
	sched   *scheduler.Scheduler[*task.Job]
	handler scheduler.Handler[*task.Job]
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (p *pipeline) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)
	sender, receiver := p.sched.Channel()

	p.wg.Go(func() {
		if err := p.sched.Run(ctx, sender); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("scheduler stopped", "error", err)
		}
		receiver.Close()
	})
	p.wg.Go(func() {
		if err := scheduler.Consume(ctx, receiver, p.handler); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("event consumer stopped", "error", err)
		}
	})
	return nil
}

func (p *pipeline) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// idleWatch wraps a handler and closes Idle once every registered job has
// reached a terminal status.
type idleWatch struct {
	next     scheduler.Handler[*task.Job]
	registry *task.Registry

	once sync.Once
	idle chan struct{}
}

func newIdleWatch(next scheduler.Handler[*task.Job], registry *task.Registry) *idleWatch {
	return &idleWatch{next: next, registry: registry, idle: make(chan struct{})}
}

func (w *idleWatch) HandleEvent(ctx context.Context, ev scheduler.Event[*task.Job]) {
	w.next.HandleEvent(ctx, ev)
	if allTerminal(w.registry.List()) {
		w.once.Do(func() { close(w.idle) })
	}
}

// Idle is closed when no job is left to run.
func (w *idleWatch) Idle() <-chan struct{} {
	return w.idle
}

func allTerminal(jobs []*task.Job) bool {
	if len(jobs) == 0 {
		return false
	}
	for _, job := range jobs {
		if !job.Status().Terminal() {
			return false
		}
	}
	return true
}
