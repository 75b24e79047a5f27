package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule reports whether expr is a valid 5-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("cron: invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Scheduler runs registered jobs on their schedules. A job never overlaps
// with itself: a tick that finds the previous run still going is skipped.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	locks  map[string]*sync.Mutex
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs must be registered before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		locks:  make(map[string]*sync.Mutex),
		logger: logger,
	}
}

// RegisterJob adds a job. It fails on a duplicate name or an invalid
// schedule, so configuration errors surface before Start.
func (s *Scheduler) RegisterJob(j Job) error {
	if err := ValidateSchedule(j.Schedule()); err != nil {
		return fmt.Errorf("cron: job %q: %w", j.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.locks[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	s.locks[name] = &sync.Mutex{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Start begins executing the registered jobs. Job contexts derive from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("cron: scheduler already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithParser(parser))

	for _, job := range s.jobs {
		lock := s.locks[job.Name()]
		if _, err := c.AddFunc(job.Schedule(), func() { s.runJob(ctx, job, lock) }); err != nil {
			cancel()
			return fmt.Errorf("cron: add job %q: %w", job.Name(), err)
		}
	}

	s.cron = c
	s.cancel = cancel
	c.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.jobs))
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, job Job, lock *sync.Mutex) {
	if !lock.TryLock() {
		s.logger.Warn("cron: job still running, skipping tick", "job", job.Name())
		return
	}
	defer lock.Unlock()

	s.logger.Debug("cron: job started", "job", job.Name())
	if err := job.Run(ctx); err != nil {
		s.logger.Error("cron: job failed", "job", job.Name(), "error", err)
		return
	}
	s.logger.Debug("cron: job completed", "job", job.Name())
}

// Stop cancels running jobs and waits for them to return, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	s.cancel()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return fmt.Errorf("cron: stop: %w", ctx.Err())
	}
	s.cron = nil
	s.logger.Info("cron: scheduler stopped")
	return nil
}
