// Package reload re-arms configured tasks when the configuration file
// changes, detected by polling, or when the process receives SIGHUP.
package reload

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const defaultPollInterval = 5 * time.Second

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// ConfigPath is the path to the configuration file to watch.
	ConfigPath string

	// PollInterval is how often to check for file changes.
	// Defaults to 5 seconds if zero.
	PollInterval time.Duration
}

func (c WatcherConfig) pollIntervalOrDefault() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return defaultPollInterval
}

// EventType describes the type of file change event.
type EventType string

const (
	// EventModified indicates the config file was modified.
	EventModified EventType = "modified"
	// EventCreated indicates the config file appeared after the watcher started.
	EventCreated EventType = "created"
)

// Event represents a file change notification.
type Event struct {
	Type       EventType
	ConfigPath string
}

// fileState is what the watcher compares between two polls.
type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

// Watcher polls a configuration file for modifications.
type Watcher struct {
	cfg     WatcherConfig
	events  chan Event
	stop    chan struct{}
	stopped chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWatcher creates a new file watcher.
func NewWatcher(cfg WatcherConfig) *Watcher {
	return &Watcher{
		cfg:     cfg,
		events:  make(chan Event, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins polling the config file for changes. Only the first call
// starts the goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.startOnce.Do(func() {
		w.started.Store(true)
		initial := w.stat()
		go w.poll(ctx, initial)
	})
	return nil
}

// Events returns the channel of file change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher. Safe to call multiple times and before Start.
func (w *Watcher) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if !w.started.Load() {
		return nil
	}
	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Watcher) poll(ctx context.Context, last fileState) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.cfg.pollIntervalOrDefault())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			current := w.stat()
			if !current.exists {
				// Keep last so that a file replaced by rename is seen as modified.
				continue
			}
			if current == last {
				continue
			}

			typ := EventModified
			if !last.exists {
				typ = EventCreated
			}
			last = current

			select {
			case w.events <- Event{Type: typ, ConfigPath: w.cfg.ConfigPath}:
			default:
				// A reload is already pending.
			}
		}
	}
}

func (w *Watcher) stat() fileState {
	info, err := os.Stat(w.cfg.ConfigPath)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}
