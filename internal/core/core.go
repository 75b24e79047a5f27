package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const shutdownTimeout = 30 * time.Second

// App manages the lifecycle of an ordered set of components.
type App struct {
	ctx    *AppContext
	logger *slog.Logger

	mu         sync.Mutex
	components []component
	cancel     context.CancelFunc
}

type component struct {
	name    string
	value   any
	started bool
}

// NewApp creates an App with the given context.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// Add appends a component. c may implement Starter, Stopper, both or
// neither. Components are started in the order they are added.
func (a *App) Add(name string, c any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.components = append(a.components, component{name: name, value: c})
}

// Names returns the component names in start order.
func (a *App) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, len(a.components))
	for i, c := range a.components {
		names[i] = c.name
	}
	return names
}

// Start starts every Starter in order. If one fails, the components started
// before it are stopped in reverse order and the error is returned. The
// context passed to components is cancelled by Stop.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	for i := range a.components {
		c := &a.components[i]
		s, ok := c.value.(Starter)
		if !ok {
			c.started = true
			continue
		}
		a.logger.Debug("starting component", "name", c.name)
		if err := s.Start(ctx); err != nil {
			a.logger.Error("component start failed", "name", c.name, "error", err)
			a.stopLocked(i - 1)
			cancel()
			return fmt.Errorf("starting %s: %w", c.name, err)
		}
		c.started = true
	}
	a.logger.Info("all components started", "count", len(a.components))
	return nil
}

// Stop stops every started component in reverse order with a timeout.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked(len(a.components) - 1)
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) stopLocked(fromIndex int) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := fromIndex; i >= 0; i-- {
		c := &a.components[i]
		if !c.started {
			continue
		}
		if s, ok := c.value.(Stopper); ok {
			a.logger.Debug("stopping component", "name", c.name)
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("component stop error", "name", c.name, "error", err)
			}
		}
		c.started = false
	}
}
