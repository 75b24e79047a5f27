package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Trigger is the condition that arms a task. It is either an Interval or an
// AbsoluteDate; no other implementation can exist outside this package.
type Trigger interface {
	isTrigger()
	String() string
}

// Interval fires every time the task's elapsed pass count reaches a positive
// multiple of Minutes.
type Interval struct {
	Minutes uint32
}

func (Interval) isTrigger() {}

func (i Interval) String() string {
	return fmt.Sprintf("every %dm", i.Minutes)
}

// AbsoluteDate fires once the current time reaches At.
type AbsoluteDate struct {
	At time.Time
}

func (AbsoluteDate) isTrigger() {}

func (d AbsoluteDate) String() string {
	return "at " + d.At.Format(time.RFC3339)
}

// Strategy decides what happens to a task when its trigger fires.
type Strategy int

const (
	// Once retires the task after it fires.
	Once Strategy = iota
	// Daily rearms a date trigger one calendar day later.
	Daily
	// Forever behaves like Daily; interval triggers keep firing indefinitely.
	Forever
	// Monthly rearms a date trigger on the same day of the next month.
	Monthly
)

var strategyNames = [...]string{
	Once:    "once",
	Daily:   "daily",
	Forever: "forever",
	Monthly: "monthly",
}

func (s Strategy) valid() bool {
	return s >= Once && s <= Monthly
}

// Repeating reports whether the strategy rearms the task instead of retiring it.
func (s Strategy) Repeating() bool {
	return s != Once
}

func (s Strategy) String() string {
	if !s.valid() {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// ParseStrategy converts the textual form of a strategy. Matching is case
// insensitive and the historical spelling "dialy" is accepted for Daily.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "once":
		return Once, nil
	case "daily", "dialy":
		return Daily, nil
	case "forever":
		return Forever, nil
	case "monthly":
		return Monthly, nil
	}
	return Once, fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStrategy, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
