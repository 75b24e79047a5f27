package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Pruner deletes history rows older than a point in time.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// HistoryPruneJob deletes history rows older than Retention.
type HistoryPruneJob struct {
	Store        Pruner
	Retention    time.Duration
	ScheduleExpr string // empty = default "0 * * * *"
	Now          func() time.Time
	Logger       *slog.Logger
}

// Compile-time interface check.
var _ Job = (*HistoryPruneJob)(nil)

// Name implements Job.
func (j *HistoryPruneJob) Name() string { return "history_prune" }

// Schedule implements Job.
func (j *HistoryPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run removes the expired rows. A zero retention keeps everything.
func (j *HistoryPruneJob) Run(ctx context.Context) error {
	if j.Retention <= 0 {
		return nil
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}

	pruned, err := j.Store.Prune(ctx, now().Add(-j.Retention))
	if err != nil {
		return fmt.Errorf("cron: history prune: %w", err)
	}
	if pruned > 0 && j.Logger != nil {
		j.Logger.Info("cron: pruned history", "count", pruned, "retention", j.Retention.String())
	}
	return nil
}

// RescanJob periodically runs Rescan, used to re-register configured tasks
// whose path did not exist yet.
type RescanJob struct {
	Rescan       func(ctx context.Context) error
	ScheduleExpr string // empty = default "*/5 * * * *"
}

// Compile-time interface check.
var _ Job = (*RescanJob)(nil)

// Name implements Job.
func (j *RescanJob) Name() string { return "missing_rescan" }

// Schedule implements Job.
func (j *RescanJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run implements Job.
func (j *RescanJob) Run(ctx context.Context) error {
	if j.Rescan == nil {
		return nil
	}
	return j.Rescan(ctx)
}
