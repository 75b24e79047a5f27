package scheduler

import (
	"slices"
	"time"
)

// TaskID identifies a task for its whole lifetime, including cycles that
// rewrite its trigger.
type TaskID uint64

// entry is one armed task in the store.
type entry[P any] struct {
	id        TaskID
	payload   P
	finished  bool
	armedPass uint64
	taskState
}

// apply stores the evaluator's decision on the entry.
func (e *entry[P]) apply(o outcome, now time.Time) {
	if o.trigger != nil {
		e.trigger = o.trigger
		e.cycleStart = now
		e.pastDue = false
	}
	if o.finished {
		e.finished = true
	}
}

// store is the task collection. It is not safe for concurrent use on its
// own; the Scheduler guards it with a single RWMutex.
type store[P any] struct {
	tasks  []*entry[P]
	lastID TaskID
}

func (s *store[P]) add(e *entry[P]) TaskID {
	s.lastID++
	e.id = s.lastID
	s.tasks = append(s.tasks, e)
	return e.id
}

// sweep drops every finished task.
func (s *store[P]) sweep() {
	s.tasks = slices.DeleteFunc(s.tasks, func(e *entry[P]) bool { return e.finished })
}

func (s *store[P]) len() int {
	return len(s.tasks)
}

// TaskInfo is a read-only view of an armed task.
type TaskInfo[P any] struct {
	ID        TaskID
	Trigger   Trigger
	Strategy  Strategy
	Payload   P
	ArmedPass uint64
}

func (s *store[P]) snapshot() []TaskInfo[P] {
	out := make([]TaskInfo[P], 0, len(s.tasks))
	for _, e := range s.tasks {
		out = append(out, TaskInfo[P]{
			ID:        e.id,
			Trigger:   e.trigger,
			Strategy:  e.strategy,
			Payload:   e.payload,
			ArmedPass: e.armedPass,
		})
	}
	return out
}
