// Package daemon runs deltime under the operating system service manager
// (systemd, launchd, Windows services) through kardianos/service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/kardianos/service"
)

const (
	// DefaultName is the service name registered with the manager.
	DefaultName = "deltime"

	defaultStopTimeout = 30 * time.Second
)

// ErrUnknownAction is returned by Control for an action the service
// manager does not support.
var ErrUnknownAction = errors.New("daemon: unknown service action")

// RunFunc runs the application until ctx is cancelled.
type RunFunc func(ctx context.Context) error

// Options configures the installed service.
type Options struct {
	Name        string
	DisplayName string
	Description string

	// ConfigPath is passed to `deltime service run --config`.
	ConfigPath string

	// UserService installs a per-user unit where supported.
	UserService bool

	StopTimeout time.Duration
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.DisplayName == "" {
		o.DisplayName = "deltime"
	}
	if o.Description == "" {
		o.Description = "Deletes files and directories on a schedule."
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = defaultStopTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// ServiceConfig returns the manager configuration for o.
func (o Options) ServiceConfig() *service.Config {
	o = o.withDefaults()
	args := []string{"service", "run"}
	if o.ConfigPath != "" {
		args = append(args, "--config", o.ConfigPath)
	}
	opts := service.KeyValue{}
	if o.UserService {
		opts["UserService"] = true
	}
	return &service.Config{
		Name:        o.Name,
		DisplayName: o.DisplayName,
		Description: o.Description,
		Arguments:   args,
		Option:      opts,
	}
}

// Program adapts a RunFunc to service.Interface.
type Program struct {
	run         RunFunc
	logger      *slog.Logger
	stopTimeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

var _ service.Interface = (*Program)(nil)

// NewProgram creates a Program running run.
func NewProgram(run RunFunc, opts Options) *Program {
	opts = opts.withDefaults()
	return &Program{run: run, logger: opts.Logger, stopTimeout: opts.StopTimeout}
}

// Start implements service.Interface. It must not block.
func (p *Program) Start(service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("daemon: already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func(done chan<- error) {
		err := p.run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("daemon: run failed", "error", err)
		}
		done <- err
	}(p.done)

	p.logger.Info("daemon: started")
	return nil
}

// Stop implements service.Interface. It waits for the run function to
// return, up to the stop timeout.
func (p *Program) Stop(service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case err := <-done:
		p.logger.Info("daemon: stopped")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-time.After(p.stopTimeout):
		return fmt.Errorf("daemon: run did not return within %s", p.stopTimeout)
	}
}

// New builds the service for run.
func New(run RunFunc, opts Options) (service.Service, error) {
	svc, err := service.New(NewProgram(run, opts), opts.ServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}
	return svc, nil
}

// Actions lists the actions Control accepts.
func Actions() []string {
	return service.ControlAction[:]
}

// Control sends action (start, stop, restart, install, uninstall) to the
// service manager.
func Control(svc service.Service, action string) error {
	if !slices.Contains(Actions(), action) {
		return fmt.Errorf("%w %q (valid: %v)", ErrUnknownAction, action, Actions())
	}
	if err := service.Control(svc, action); err != nil {
		return fmt.Errorf("daemon: %s: %w", action, err)
	}
	return nil
}

// Status reports the service state as text.
func Status(svc service.Service) (string, error) {
	st, err := svc.Status()
	switch {
	case errors.Is(err, service.ErrNotInstalled):
		return "not installed", nil
	case err != nil:
		return "", fmt.Errorf("daemon: status: %w", err)
	}
	switch st {
	case service.StatusRunning:
		return "running", nil
	case service.StatusStopped:
		return "stopped", nil
	default:
		return "unknown", nil
	}
}
