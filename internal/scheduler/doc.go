// Package scheduler implements the recurring task scheduler behind deltime.
//
// A Scheduler tracks any number of tasks, each armed with a Trigger (an
// Interval counted in passes or an AbsoluteDate) and a Strategy that decides
// whether a due task retires or rearms. A single goroutine runs the tick loop:
// once per period it locks the task store, evaluates every unfinished task,
// sends at most one Event per task on a bounded channel, sweeps the finished
// ones and sleeps.
//
// The payload type P is opaque to the scheduler. It is shared with the
// consumer, which receives events through a Receiver and must not block
// indefinitely: a full channel stalls the whole pass.
package scheduler
