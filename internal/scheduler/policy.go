package scheduler

import "time"

// taskState is the part of a task the policy evaluator reads.
type taskState struct {
	trigger  Trigger
	strategy Strategy

	// pastDue is set when a date trigger was already due at registration.
	pastDue bool

	// cycleStart is when the current date cycle was armed; progress of a
	// date trigger is measured from it.
	cycleStart time.Time
}

// outcome is the evaluator's decision for one task in one pass.
type outcome struct {
	kind     EventKind
	trigger  Trigger // rewritten trigger, nil when unchanged
	next     time.Time
	finished bool
	progress Progress
}

// evaluate maps a task state, the task's elapsed pass count and the current
// time to at most one event and the task's next state. It has no side effects.
func evaluate(st taskState, elapsed uint64, now time.Time) outcome {
	switch t := st.trigger.(type) {
	case Interval:
		return evaluateInterval(t, st.strategy, elapsed)
	case AbsoluteDate:
		return evaluateDate(t, st, now)
	default:
		return outcome{}
	}
}

func evaluateInterval(t Interval, strategy Strategy, elapsed uint64) outcome {
	n := uint64(t.Minutes)
	if n == 0 {
		// Never fires. Registration rejects zero intervals.
		return outcome{}
	}

	if elapsed == 0 {
		// The arming pass is silent for interval triggers.
		return outcome{}
	}

	pos := elapsed % n
	if pos != 0 {
		return outcome{kind: EventTick, progress: Progress{Current: pos, Total: n}}
	}

	done := Progress{Current: n, Total: n}
	if strategy == Once {
		return outcome{kind: EventFinish, finished: true, progress: done}
	}
	return outcome{kind: EventFinishCycle, progress: done}
}

func evaluateDate(t AbsoluteDate, st taskState, now time.Time) outcome {
	total := secondsBetween(st.cycleStart, t.At)
	if now.Before(t.At) {
		current := min(secondsBetween(st.cycleStart, now), total)
		return outcome{kind: EventTick, progress: Progress{Current: current, Total: total}}
	}

	done := Progress{Current: total, Total: total}
	switch st.strategy {
	case Daily, Forever:
		next, _ := nextDay(t.At)
		return outcome{
			kind:     EventFinishCycle,
			trigger:  AbsoluteDate{At: next},
			next:     next,
			progress: done,
		}
	case Monthly:
		next, ok := nextMonth(t.At)
		if !ok {
			return outcome{kind: EventFinishCycle, finished: true, progress: done}
		}
		return outcome{
			kind:     EventFinishCycle,
			trigger:  AbsoluteDate{At: next},
			next:     next,
			progress: done,
		}
	default:
		kind := EventFinish
		if st.pastDue {
			kind = EventExpired
		}
		return outcome{kind: kind, finished: true, progress: done}
	}
}

// nextDay keeps the wall-clock time and moves one calendar day.
func nextDay(t time.Time) (time.Time, bool) {
	return t.AddDate(0, 0, 1), true
}

// nextMonth keeps the day of month and the wall-clock time and moves one
// calendar month. It fails when the day does not exist in that month
// (e.g. the 31st followed by a 30-day month).
func nextMonth(t time.Time) (time.Time, bool) {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	next := time.Date(y, m+1, d, hh, mm, ss, t.Nanosecond(), t.Location())
	if next.Day() != d {
		return time.Time{}, false
	}
	return next, true
}

func secondsBetween(from, to time.Time) uint64 {
	if !to.After(from) {
		return 0
	}
	return uint64(to.Sub(from) / time.Second)
}
