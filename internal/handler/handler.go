// Package handler consumes scheduler events for deletion jobs: it performs
// the removals, drives the progress bars and records the outcome.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/deltime/internal/history"
	"github.com/flemzord/deltime/internal/metrics"
	"github.com/flemzord/deltime/internal/notify"
	"github.com/flemzord/deltime/internal/remover"
	"github.com/flemzord/deltime/internal/scheduler"
	"github.com/flemzord/deltime/internal/task"
)

// Remover deletes the target of a job.
type Remover interface {
	Remove(ctx context.Context, path, mask string) (remover.Result, error)
}

// Recorder stores history entries.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Publisher receives a notice for every handled event. Publish must not block.
type Publisher interface {
	Publish(n Notice)
}

// Config holds the collaborators of a Handler. Only Remover is required.
type Config struct {
	Remover   Remover
	History   Recorder
	Metrics   *metrics.Metrics
	Bell      *notify.Bell
	Publisher Publisher
	Now       func() time.Time
	Logger    *slog.Logger
}

// Handler implements scheduler.Handler for *task.Job payloads.
type Handler struct {
	cfg Config
}

// Compile-time interface check.
var _ scheduler.Handler[*task.Job] = (*Handler)(nil)

// New creates a Handler.
func New(cfg Config) *Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{cfg: cfg}
}

// HandleEvent implements scheduler.Handler.
func (h *Handler) HandleEvent(ctx context.Context, ev scheduler.Event[*task.Job]) {
	job := ev.Payload
	if job == nil {
		h.cfg.Logger.Warn("handler: event without job", "task_id", uint64(ev.TaskID), "event", ev.Kind.String())
		return
	}
	h.cfg.Metrics.ObserveEvent(ev.Kind.String())

	n := newNotice(ev, h.cfg.Now())
	switch ev.Kind {
	case scheduler.EventTick:
		if bar := job.Bar(); bar != nil {
			bar.Tick(ev.Progress.Current, ev.Progress.Total)
		}
	case scheduler.EventFinish:
		h.finish(ctx, ev, &n)
	case scheduler.EventFinishCycle:
		h.cycle(ctx, ev, &n)
	case scheduler.EventExpired:
		h.expired(ctx, ev, &n)
	}

	if h.cfg.Publisher != nil {
		h.cfg.Publisher.Publish(n)
	}
}

func (h *Handler) finish(ctx context.Context, ev scheduler.Event[*task.Job], n *Notice) {
	job := ev.Payload
	res, err := h.cfg.Remover.Remove(ctx, job.Def.Path, job.Def.Mask)
	job.RecordRun(err)
	n.setResult(res, err)

	bar := job.Bar()
	if err != nil {
		job.SetStatus(task.StatusFailed)
		if bar != nil {
			bar.Fail(err.Error())
		}
		h.cfg.Bell.Error()
		h.cfg.Logger.Error("handler: removal failed",
			"task_id", uint64(ev.TaskID), "path", job.Def.Path, "error", err)
	} else {
		job.SetStatus(task.StatusDone)
		if bar != nil {
			bar.Done()
		}
		h.cfg.Bell.OK()
		h.cfg.Logger.Info("handler: removed",
			"task_id", uint64(ev.TaskID), "path", job.Def.Path, "target", string(res.Target), "removed", res.Removed)
	}

	h.record(ctx, ev, n)
}

func (h *Handler) cycle(ctx context.Context, ev scheduler.Event[*task.Job], n *Notice) {
	job := ev.Payload
	bar := job.Bar()

	// A monthly job whose next date does not exist fires a last cycle without
	// a rewritten target and is then dropped by the scheduler.
	last := !ev.HasNext() && !job.Def.Date.IsZero()

	total := ev.Progress.Total
	if ev.HasNext() {
		job.SetTarget(ev.Next)
		total = secondsUntil(h.cfg.Now(), ev.Next)
	}
	if bar != nil && !last {
		bar.Cycle(total, ev.Next)
	}

	res, err := h.cfg.Remover.Remove(ctx, job.Def.Path, job.Def.Mask)
	job.RecordRun(err)
	n.setResult(res, err)
	if err != nil {
		h.cfg.Logger.Warn("handler: cycle removal failed",
			"task_id", uint64(ev.TaskID), "path", job.Def.Path, "error", err)
	} else {
		h.cfg.Logger.Info("handler: cycle removed",
			"task_id", uint64(ev.TaskID), "path", job.Def.Path, "removed", res.Removed)
	}

	if last {
		job.SetStatus(task.StatusDone)
		if bar != nil {
			if err != nil {
				bar.Fail(err.Error())
			} else {
				bar.Done()
			}
		}
	}

	h.record(ctx, ev, n)
}

func (h *Handler) expired(ctx context.Context, ev scheduler.Event[*task.Job], n *Notice) {
	job := ev.Payload
	job.SetStatus(task.StatusExpired)

	msg := fmt.Sprintf("time of operation with `%s` has already passed", job.Def.Path)
	if bar := job.Bar(); bar != nil {
		bar.Fail(msg)
	}
	h.cfg.Bell.Error()
	h.cfg.Logger.Warn("handler: task expired", "task_id", uint64(ev.TaskID), "path", job.Def.Path)

	n.Result = string(history.ResultExpired)
	n.Error = msg
	h.record(ctx, ev, n)
}

// Missing records a job whose path did not exist at registration. It is
// meant to be used as the registrar's OnMissing callback.
func (h *Handler) Missing(ctx context.Context, job *task.Job) {
	n := Notice{
		Kind:   "missing",
		At:     h.cfg.Now(),
		Path:   job.Def.Path,
		Mask:   job.Def.Mask,
		Source: job.Source,
		Hash:   job.Hash,
		Result: string(history.ResultMissing),
		Error:  fmt.Sprintf("file `%s` does not exist", job.Def.Path),
	}
	h.cfg.Metrics.ObserveRemoval(n.Result)
	h.store(ctx, job, 0, n)
	if h.cfg.Publisher != nil {
		h.cfg.Publisher.Publish(n)
	}
}

func (h *Handler) record(ctx context.Context, ev scheduler.Event[*task.Job], n *Notice) {
	h.cfg.Metrics.ObserveRemoval(n.Result)
	h.store(ctx, ev.Payload, ev.TaskID, *n)
}

func (h *Handler) store(ctx context.Context, job *task.Job, id scheduler.TaskID, n Notice) {
	if h.cfg.History == nil {
		return
	}
	err := h.cfg.History.Record(ctx, history.Entry{
		At:      n.At,
		TaskID:  uint64(id),
		JobHash: job.Hash,
		Path:    job.Def.Path,
		Mask:    job.Def.Mask,
		Source:  job.Source,
		Event:   n.Kind,
		Result:  history.Result(n.Result),
		Removed: n.Removed,
		Error:   n.Error,
	})
	if err != nil {
		h.cfg.Logger.Error("handler: history record failed", "path", job.Def.Path, "error", err)
	}
}

func secondsUntil(now, at time.Time) uint64 {
	if !at.After(now) {
		return 0
	}
	return uint64(at.Sub(now) / time.Second)
}
