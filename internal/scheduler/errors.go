package scheduler

import "errors"

// Sentinel errors returned by the registration API and the event channel.
var (
	ErrInvalidInterval = errors.New("scheduler: interval must be at least one minute")
	ErrInvalidDate     = errors.New("scheduler: target date must be set")
	ErrInvalidStrategy = errors.New("scheduler: unknown repeating strategy")
	ErrConsumerGone    = errors.New("scheduler: event consumer is gone")
	ErrAlreadyRunning  = errors.New("scheduler: already running")
)
