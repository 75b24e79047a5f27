// Package notify emits audible notifications on the terminal.
package notify

import (
	"io"
	"sync"
	"time"
)

const bel = '\a'

// DefaultGap is the pause between two tones of a pattern.
const DefaultGap = 200 * time.Millisecond

// Tone patterns, in number of bells.
const (
	okTones    = 2
	errorTones = 3
)

// Bell rings the terminal bell. A nil or disabled Bell is a no-op.
type Bell struct {
	mu      sync.Mutex
	w       io.Writer
	gap     time.Duration
	enabled bool
}

// NewBell creates a Bell writing to w. A non-positive gap rings the tones
// back to back.
func NewBell(w io.Writer, enabled bool, gap time.Duration) *Bell {
	return &Bell{w: w, enabled: enabled && w != nil, gap: gap}
}

// OK rings the success pattern.
func (b *Bell) OK() { b.ring(okTones) }

// Error rings the failure pattern.
func (b *Bell) Error() { b.ring(errorTones) }

func (b *Bell) ring(n int) {
	if b == nil || !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range n {
		if i > 0 && b.gap > 0 {
			time.Sleep(b.gap)
		}
		// A terminal that cannot be written to is not worth reporting.
		_, _ = b.w.Write([]byte{bel})
	}
}
