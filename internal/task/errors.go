package task

import "errors"

var (
	ErrNoPath       = errors.New("task: path is required")
	ErrNoTrigger    = errors.New("task: one of interval or date is required")
	ErrBothTriggers = errors.New("task: interval and date are mutually exclusive")
	ErrBadDate      = errors.New("task: unrecognised date")
)
