package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/deltime/internal/progress"
	"github.com/flemzord/deltime/internal/scheduler"
)

// Armer is the registration side of the scheduler.
type Armer interface {
	AddIntervalTask(job *Job, minutes uint32, strategy scheduler.Strategy) (scheduler.TaskID, error)
	AddDateTask(job *Job, at time.Time, strategy scheduler.Strategy) (scheduler.TaskID, error)
}

// Exister reports whether a path exists.
type Exister interface {
	Exists(path string) bool
}

// RegistrarConfig configures a Registrar.
type RegistrarConfig struct {
	Scheduler Armer
	Registry  *Registry
	Board     *progress.Board
	Files     Exister
	Now       func() time.Time
	Logger    *slog.Logger

	// OnMissing is called for every job whose path does not exist.
	OnMissing func(ctx context.Context, job *Job)

	// Guard rejects definitions whose path must not be deleted.
	Guard func(path string) error
}

// Registrar is the single path through which producers arm jobs.
type Registrar struct {
	cfg RegistrarConfig
}

// NewRegistrar creates a Registrar.
func NewRegistrar(cfg RegistrarConfig) *Registrar {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	return &Registrar{cfg: cfg}
}

// Registry returns the registry jobs are recorded in.
func (r *Registrar) Registry() *Registry {
	return r.cfg.Registry
}

// Summary counts the outcome of one Register call.
type Summary struct {
	Armed      int
	Duplicates int
	Missing    int
	Invalid    int
	Jobs       []*Job
}

// Register arms every new definition. Definitions already registered are
// skipped, unless their path was missing and has appeared since. A job whose
// path does not exist gets a failed bar and is not armed. The returned error
// joins every rejected definition; valid ones are armed regardless.
func (r *Registrar) Register(ctx context.Context, defs []Definition, source string) (Summary, error) {
	var (
		sum  Summary
		errs []error
	)

	for i, def := range defs {
		err := def.Validate()
		if err == nil && r.cfg.Guard != nil {
			err = r.cfg.Guard(def.Path)
		}
		if err != nil {
			sum.Invalid++
			errs = append(errs, fmt.Errorf("task: %s[%d] %q: %w", source, i, def.Path, err))
			continue
		}

		job, claimed := r.cfg.Registry.Claim(NewJob(def, source))
		if !claimed && !r.retry(job) {
			sum.Duplicates++
			continue
		}

		if !r.cfg.Files.Exists(def.Path) {
			sum.Missing++
			r.missing(ctx, job)
			continue
		}

		if err := r.arm(job); err != nil {
			job.SetStatus(StatusFailed)
			errs = append(errs, fmt.Errorf("task: %s[%d] %q: %w", source, i, def.Path, err))
			continue
		}

		sum.Armed++
		sum.Jobs = append(sum.Jobs, job)
	}

	if sum.Armed+sum.Missing+sum.Invalid > 0 {
		r.cfg.Logger.Info("task: definitions registered",
			"source", source,
			"armed", sum.Armed,
			"duplicates", sum.Duplicates,
			"missing", sum.Missing,
			"invalid", sum.Invalid,
		)
	}
	return sum, errors.Join(errs...)
}

// retry reports whether an already registered job should be armed again:
// only jobs whose path was missing qualify, once the path exists.
func (r *Registrar) retry(job *Job) bool {
	if job.Status() != StatusMissing || !r.cfg.Files.Exists(job.Def.Path) {
		return false
	}
	return job.transition(StatusPending, StatusMissing)
}

func (r *Registrar) missing(ctx context.Context, job *Job) {
	first := job.transition(StatusMissing, StatusPending)
	if !first {
		return
	}
	reason := fmt.Sprintf("file `%s` does not exist", job.Def.Path)
	if r.cfg.Board != nil {
		job.SetBar(r.cfg.Board.NewFailedBar(job.Def.Path, reason))
	}
	r.cfg.Logger.Warn("task: path does not exist, job not armed", "path", job.Def.Path, "source", job.Source)
	if r.cfg.OnMissing != nil {
		r.cfg.OnMissing(ctx, job)
	}
}

func (r *Registrar) arm(job *Job) error {
	def := job.Def
	now := r.cfg.Now()

	var (
		id  scheduler.TaskID
		err error
	)
	switch trig := def.Trigger().(type) {
	case scheduler.Interval:
		if r.cfg.Board != nil {
			job.SetBar(r.cfg.Board.NewIntervalBar(def.DisplayName(), def.Repeat.Repeating(), trig.Minutes))
		}
		id, err = r.cfg.Scheduler.AddIntervalTask(job, trig.Minutes, def.Repeat)
	case scheduler.AbsoluteDate:
		job.SetTarget(trig.At)
		if r.cfg.Board != nil {
			job.SetBar(r.cfg.Board.NewDateBar(def.DisplayName(), def.Repeat.Repeating(), trig.At, secondsUntil(now, trig.At)))
		}
		id, err = r.cfg.Scheduler.AddDateTask(job, trig.At, def.Repeat)
	}
	if err != nil {
		if bar := job.Bar(); bar != nil {
			bar.Fail(err.Error())
		}
		return err
	}

	job.armed(id, now)
	job.transition(StatusArmed, StatusPending)
	r.cfg.Logger.Debug("task: job armed",
		"task_id", uint64(id),
		"path", def.Path,
		"trigger", def.Trigger().String(),
		"repeat", def.Repeat.String(),
		"source", job.Source,
	)
	return nil
}

func secondsUntil(now, at time.Time) uint64 {
	if !at.After(now) {
		return 0
	}
	return uint64(at.Sub(now) / time.Second)
}
