package task

import (
	"slices"
	"sync"
	"time"

	"github.com/flemzord/deltime/internal/progress"
	"github.com/flemzord/deltime/internal/scheduler"
)

// Well-known job sources.
const (
	SourceConfig  = "config"
	SourceCLI     = "cli"
	SourceGateway = "gateway"
	SourceMCP     = "mcp"
)

// RemovableSource names jobs discovered on a mounted volume.
func RemovableSource(mountPoint string) string {
	return "removable:" + mountPoint
}

// Status is the lifecycle state of a job as seen by its owner.
type Status string

const (
	StatusPending Status = "pending"
	StatusArmed   Status = "armed"
	StatusMissing Status = "missing"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusExpired Status = "expired"
)

// Terminal reports whether the job will not run again.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusExpired
}

// Job is the payload carried by the scheduler for one deletion job. The
// scheduler never looks inside; the event handler updates the display and
// bookkeeping fields between events.
type Job struct {
	Def    Definition
	Source string
	Hash   string

	mu        sync.Mutex
	id        scheduler.TaskID
	status    Status
	target    time.Time
	armedAt   time.Time
	runs      int
	lastError string
	bar       *progress.Bar
}

// NewJob creates a pending job for def.
func NewJob(def Definition, source string) *Job {
	return &Job{
		Def:    def,
		Source: source,
		Hash:   def.Hash(),
		status: StatusPending,
		target: def.Date.Time,
	}
}

// ID is the scheduler task id, zero until the job is armed.
func (j *Job) ID() scheduler.TaskID {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.id
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// SetStatus records a new status. Terminal statuses are final.
func (j *Job) SetStatus(s Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.status = s
}

// transition moves the job to `to` if its status is one of from.
func (j *Job) transition(to Status, from ...Status) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !slices.Contains(from, j.status) {
		return false
	}
	j.status = to
	return true
}

// Target is the current target date of a date job, rewritten on each cycle.
func (j *Job) Target() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.target
}

func (j *Job) SetTarget(t time.Time) {
	j.mu.Lock()
	j.target = t
	j.mu.Unlock()
}

// Bar returns the job's progress bar, nil until one is attached.
func (j *Job) Bar() *progress.Bar {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.bar
}

// SetBar attaches the progress bar driven by the job's events.
func (j *Job) SetBar(b *progress.Bar) {
	j.mu.Lock()
	j.bar = b
	j.mu.Unlock()
}

func (j *Job) armed(id scheduler.TaskID, at time.Time) {
	j.mu.Lock()
	j.id = id
	j.armedAt = at
	j.mu.Unlock()
}

// RecordRun counts one deletion attempt and keeps its error, if any.
func (j *Job) RecordRun(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	if err != nil {
		j.lastError = err.Error()
	} else {
		j.lastError = ""
	}
}

// Snapshot is a point-in-time copy of a job, safe to serialise.
type Snapshot struct {
	Hash      string           `json:"hash"`
	ID        scheduler.TaskID `json:"id"`
	Source    string           `json:"source"`
	Def       Definition       `json:"definition"`
	Status    Status           `json:"status"`
	Target    *time.Time       `json:"target,omitempty"`
	ArmedAt   *time.Time       `json:"armed_at,omitempty"`
	Runs      int              `json:"runs"`
	LastError string           `json:"last_error,omitempty"`
}

// Snapshot returns a copy of the job state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Snapshot{
		Hash:      j.Hash,
		ID:        j.id,
		Source:    j.Source,
		Def:       j.Def,
		Status:    j.status,
		Runs:      j.runs,
		LastError: j.lastError,
	}
	if !j.target.IsZero() {
		t := j.target
		s.Target = &t
	}
	if !j.armedAt.IsZero() {
		t := j.armedAt
		s.ArmedAt = &t
	}
	return s
}
