package core

import "context"

// Starter is implemented by components that run background work
// (goroutines, listeners, watchers). ctx lives as long as the App.
type Starter interface {
	Start(ctx context.Context) error
}

// Stopper is implemented by components that release resources.
// Called during shutdown in reverse order of Start.
type Stopper interface {
	Stop(ctx context.Context) error
}

// StarterFunc adapts a function to Starter.
type StarterFunc func(ctx context.Context) error

// Start implements Starter.
func (f StarterFunc) Start(ctx context.Context) error { return f(ctx) }

// StopperFunc adapts a function to Stopper.
type StopperFunc func(ctx context.Context) error

// Stop implements Stopper.
func (f StopperFunc) Stop(ctx context.Context) error { return f(ctx) }

// Hooks bundles optional start and stop functions into one component.
type Hooks struct {
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

// Start implements Starter.
func (h Hooks) Start(ctx context.Context) error {
	if h.OnStart == nil {
		return nil
	}
	return h.OnStart(ctx)
}

// Stop implements Stopper.
func (h Hooks) Stop(ctx context.Context) error {
	if h.OnStop == nil {
		return nil
	}
	return h.OnStop(ctx)
}
