package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// DateLayout is the layout of target dates shown next to date bars.
const DateLayout = "02.01.2006 15:04:05"

// Status is the display state of a bar.
type Status int

const (
	StatusWaiting Status = iota
	StatusCycling
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusCycling:
		return "cycling"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Kind tells interval bars (counted in passes) from date bars (counted in
// seconds).
type Kind int

const (
	KindInterval Kind = iota
	KindDate
)

// State is a snapshot of a bar.
type State struct {
	Kind    Kind
	Status  Status
	Current uint64
	Total   uint64
	Target  time.Time
	Cycles  uint64
	Message string
}

// Bar is the display side of one job. Its state is kept here and mirrored
// onto the mpb bar; mpb calls are made outside the lock because decorators
// read the state from the render goroutine.
type Bar struct {
	mu        sync.Mutex
	kind      Kind
	repeating bool
	name      string
	state     State

	bar *mpb.Bar
}

var barStyle = mpb.BarStyle().Lbound("[").Filler("●").Tip("●").Padding("∙").Rbound("]")

// NewIntervalBar adds a bar counting the passes of an interval job. name is
// the displayed path, empty when the job is not visible.
func (b *Board) NewIntervalBar(name string, repeating bool, minutes uint32) *Bar {
	bar := &Bar{
		kind:      KindInterval,
		repeating: repeating,
		name:      name,
		state:     State{Kind: KindInterval, Total: uint64(minutes)},
	}
	bar.bar = b.p.New(0, barStyle,
		mpb.PrependDecorators(
			decor.Elapsed(decor.ET_STYLE_HHMMSS, decor.WC{W: 9}),
			decor.Any(bar.glyph, decor.WC{W: 3}),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("%d/%d", decor.WC{W: 8}),
			decor.Any(bar.message),
		),
	)
	bar.bar.SetTotal(int64(minutes), false)
	return b.track(bar)
}

// NewDateBar adds a bar counting the seconds left until target.
func (b *Board) NewDateBar(name string, repeating bool, target time.Time, seconds uint64) *Bar {
	bar := &Bar{
		kind:      KindDate,
		repeating: repeating,
		name:      name,
		state:     State{Kind: KindDate, Total: seconds, Target: target},
	}
	bar.bar = b.p.New(0, barStyle,
		mpb.PrependDecorators(
			decor.Elapsed(decor.ET_STYLE_HHMMSS, decor.WC{W: 9}),
			decor.Any(bar.glyph, decor.WC{W: 3}),
		),
		mpb.AppendDecorators(
			decor.Any(bar.message),
		),
	)
	bar.bar.SetTotal(int64(seconds), false)
	return b.track(bar)
}

// NewFailedBar adds a bar for a job that could not be armed.
func (b *Board) NewFailedBar(name, reason string) *Bar {
	bar := b.NewIntervalBar(name, false, 1)
	bar.Fail(reason)
	return bar
}

// Tick moves the bar to current out of total.
func (b *Bar) Tick(current, total uint64) {
	b.mu.Lock()
	if b.state.Status == StatusDone || b.state.Status == StatusFailed {
		b.mu.Unlock()
		return
	}
	b.state.Current = min(current, total)
	b.state.Total = total
	b.mu.Unlock()

	b.bar.SetTotal(int64(total), false)
	b.bar.SetCurrent(int64(min(current, total)))
}

// Done completes the bar.
func (b *Bar) Done() {
	b.mu.Lock()
	if b.state.Status == StatusDone || b.state.Status == StatusFailed {
		b.mu.Unlock()
		return
	}
	b.state.Status = StatusDone
	b.state.Current = b.state.Total
	total := b.state.Total
	b.mu.Unlock()

	b.bar.SetTotal(int64(total), true)
}

// Fail aborts the bar and shows msg instead of the label.
func (b *Bar) Fail(msg string) {
	b.mu.Lock()
	if b.state.Status == StatusDone || b.state.Status == StatusFailed {
		b.mu.Unlock()
		return
	}
	b.state.Status = StatusFailed
	b.state.Message = msg
	b.mu.Unlock()

	b.bar.Abort(false)
}

// Cycle restarts the bar after a repeating job fired. A non-zero next is
// the job's new target date; total is the length of the new cycle.
func (b *Bar) Cycle(total uint64, next time.Time) {
	b.mu.Lock()
	if b.state.Status == StatusDone || b.state.Status == StatusFailed {
		b.mu.Unlock()
		return
	}
	b.state.Status = StatusCycling
	b.state.Cycles++
	b.state.Current = 0
	b.state.Total = total
	if !next.IsZero() {
		b.state.Target = next
	}
	b.mu.Unlock()

	b.bar.SetTotal(int64(total), false)
	b.bar.SetCurrent(0)
}

// SetMessage shows msg next to the bar without changing its status.
func (b *Bar) SetMessage(msg string) {
	b.mu.Lock()
	b.state.Message = msg
	b.mu.Unlock()
}

// State returns a snapshot of the bar.
func (b *Bar) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Label is the text shown next to the bar.
func (b *Bar) Label() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.labelLocked()
}

func (b *Bar) labelLocked() string {
	if b.kind == KindDate {
		return DateLabel(b.state.Target, b.name)
	}
	if b.name == "" {
		return ""
	}
	return "-> " + b.name
}

func (b *Bar) message(decor.Statistics) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	label := b.labelLocked()
	if b.state.Message == "" {
		if b.kind == KindDate {
			return "[" + label + "]"
		}
		return label
	}
	if label == "" {
		return b.state.Message
	}
	return label + ": " + b.state.Message
}

func (b *Bar) glyph(decor.Statistics) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state.Status {
	case StatusDone:
		return "✅"
	case StatusFailed:
		return "❌"
	}
	if b.repeating || b.state.Cycles > 0 {
		return "🔃"
	}
	return "⌛"
}

// DateLabel formats a date bar label: the target date, followed by the
// path when name is not empty.
func DateLabel(target time.Time, name string) string {
	label := target.Format(DateLayout)
	if name != "" {
		label += " -> " + name
	}
	return label
}
