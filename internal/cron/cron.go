// Package cron runs deltime's maintenance jobs (history pruning, rescans of
// missing paths) on standard 5-field cron expressions.
package cron

import "context"

// Job is a periodic maintenance task.
type Job interface {
	// Name identifies the job in logs. It must be unique per Scheduler.
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "0 * * * *").
	Schedule() string

	// Run executes the job once. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}
