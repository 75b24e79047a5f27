package cron

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/flemzord/deltime/internal/cron/crontest"
)

func TestHistoryPruneJob_Defaults(t *testing.T) {
	t.Parallel()

	j := &HistoryPruneJob{}
	if j.Name() != "history_prune" {
		t.Errorf("name = %q", j.Name())
	}
	if j.Schedule() != "0 * * * *" {
		t.Errorf("schedule = %q", j.Schedule())
	}

	j.ScheduleExpr = "*/15 * * * *"
	if j.Schedule() != "*/15 * * * *" {
		t.Errorf("custom schedule = %q", j.Schedule())
	}
}

func TestHistoryPruneJob_Run(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)
	store := &crontest.MockPruner{
		PruneFunc: func(before time.Time) (int64, error) {
			if want := now.Add(-48 * time.Hour); !before.Equal(want) {
				t.Errorf("before = %v, want %v", before, want)
			}
			return 4, nil
		},
	}

	j := &HistoryPruneJob{
		Store:     store,
		Retention: 48 * time.Hour,
		Now:       func() time.Time { return now },
		Logger:    slog.New(slog.DiscardHandler),
	}
	if err := j.Run(t.Context()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.PruneCalls.Load() != 1 {
		t.Errorf("prune calls = %d, want 1", store.PruneCalls.Load())
	}
}

func TestHistoryPruneJob_ZeroRetention(t *testing.T) {
	t.Parallel()

	store := &crontest.MockPruner{}
	j := &HistoryPruneJob{Store: store}
	if err := j.Run(t.Context()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.PruneCalls.Load() != 0 {
		t.Error("zero retention should not prune")
	}
}

func TestHistoryPruneJob_Error(t *testing.T) {
	t.Parallel()

	boom := errors.New("locked")
	j := &HistoryPruneJob{
		Store:     &crontest.MockPruner{PruneFunc: func(time.Time) (int64, error) { return 0, boom }},
		Retention: time.Hour,
	}
	if err := j.Run(t.Context()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestRescanJob(t *testing.T) {
	t.Parallel()

	var calls int
	j := &RescanJob{Rescan: func(context.Context) error { calls++; return nil }}
	if j.Name() != "missing_rescan" || j.Schedule() != "*/5 * * * *" {
		t.Errorf("name/schedule = %q/%q", j.Name(), j.Schedule())
	}
	if err := j.Run(t.Context()); err != nil || calls != 1 {
		t.Errorf("Run = %v, calls = %d", err, calls)
	}
	if err := (&RescanJob{}).Run(t.Context()); err != nil {
		t.Errorf("nil Rescan: %v", err)
	}
}
