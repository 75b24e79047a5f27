// Package progress renders one terminal progress bar per armed deletion job.
package progress

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/vbauerster/mpb/v8"
)

// DefaultWidth is the bar width used when Config.Width is not set.
const DefaultWidth = 40

// Config configures a Board.
type Config struct {
	// Enabled turns rendering on. A disabled board still tracks bar state.
	Enabled bool
	Width   int
	// Output defaults to os.Stdout.
	Output io.Writer
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}
	if !c.Enabled {
		c.Output = io.Discard
	}
	return c
}

// Board is the container all bars are rendered in.
type Board struct {
	p      *mpb.Progress
	cancel context.CancelFunc

	mu     sync.Mutex
	bars   []*Bar
	closed bool
}

// NewBoard starts a rendering container bound to ctx.
func NewBoard(ctx context.Context, cfg Config) *Board {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(ctx)
	return &Board{
		p: mpb.NewWithContext(ctx,
			mpb.WithOutput(cfg.Output),
			mpb.WithWidth(cfg.Width),
			mpb.ContainerOptional(mpb.WithAutoRefresh(), cfg.Enabled),
		),
		cancel: cancel,
	}
}

// Bars returns the bars created so far.
func (b *Board) Bars() []*Bar {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Bar, len(b.bars))
	copy(out, b.bars)
	return out
}

func (b *Board) track(bar *Bar) *Bar {
	b.mu.Lock()
	b.bars = append(b.bars, bar)
	b.mu.Unlock()
	return bar
}

// Close stops rendering. Bars of repeating jobs never complete, so the
// container is cancelled before waiting on it. Safe to call more than once.
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.p.Wait()
}
