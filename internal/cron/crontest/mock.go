// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/deltime/internal/cron"
)

// MockJob is a configurable test double for cron.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu    sync.Mutex
	calls int
}

// Compile-time interface check.
var _ cron.Job = (*MockJob)(nil)

// Name implements cron.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements cron.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements cron.Job and increments the call counter.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns the number of times Run was called.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockPruner is a test double for cron.Pruner.
type MockPruner struct {
	PruneFunc  func(before time.Time) (int64, error)
	PruneCalls atomic.Int32
}

// Compile-time interface check.
var _ cron.Pruner = (*MockPruner)(nil)

// Prune implements cron.Pruner.
func (m *MockPruner) Prune(_ context.Context, before time.Time) (int64, error) {
	m.PruneCalls.Add(1)
	if m.PruneFunc != nil {
		return m.PruneFunc(before)
	}
	return 0, nil
}
