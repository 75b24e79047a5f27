// Package app provides the shared entry point of the deltime commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/flemzord/deltime/internal/config"
	"github.com/flemzord/deltime/internal/reload"
	"github.com/flemzord/deltime/internal/task"
)

// Params configures the main application loop.
type Params struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.ResolvePath is called; finding no file is not fatal.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// LogLevel overrides log.level from the configuration.
	LogLevel string

	// Tasks are armed with the cli source next to the configured ones.
	Tasks []task.Definition

	// ExitWhenDone returns from Run once every job is done, failed or
	// expired. Only Tasks are armed: configured tasks, removable media and
	// configuration reloads are left out.
	ExitWhenDone bool

	// MCP serves the MCP protocol on Stdin/Stdout. Bars and bell are off.
	MCP bool

	// DisableSignals leaves SIGINT, SIGTERM and SIGHUP alone, for callers
	// such as the service manager that own the process signals.
	DisableSignals bool

	// Streams default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (p *Params) defaults() {
	if p.Stdin == nil {
		p.Stdin = os.Stdin
	}
	if p.Stdout == nil {
		p.Stdout = os.Stdout
	}
	if p.Stderr == nil {
		p.Stderr = os.Stderr
	}
}

// ErrTaskMissing is returned when ExitWhenDone is set and a command line
// task targets a path that does not exist.
var ErrTaskMissing = errors.New("app: task target does not exist")

// Run loads configuration, starts every component, and blocks until ctx is
// cancelled, a shutdown signal is received, or (with ExitWhenDone) no job is
// left. SIGHUP and file-change events re-read the configuration and arm the
// tasks it adds.
func Run(ctx context.Context, params Params) error {
	params.defaults()

	cfgPath, cfg, err := loadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	logger, err := NewLogger(cfg.Log, params.LogLevel, params.Stderr, cfg.Secrets()...)
	if err != nil {
		return err
	}
	if cfgPath == "" {
		logger.Warn("no configuration file found, waiting for removable media or submitted tasks",
			"searched", config.SearchPaths())
	} else {
		logger.Info("configuration loaded", "path", cfgPath, "tasks", len(cfg.Tasks))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d, err := build(ctx, cfg, cfgPath, params, logger)
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.registerInitial(ctx, params); err != nil {
		return err
	}

	if err := d.app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		d.app.Stop()
		logger.Info("shutdown complete")
	}()

	// --- signal handling ---
	sigCh := make(chan os.Signal, 1)
	if !params.DisableSignals {
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigCh)
	}

	var fileEvents <-chan reload.Event
	if d.cfgWatcher != nil {
		fileEvents = d.cfgWatcher.Events()
	}
	var idle <-chan struct{}
	if params.ExitWhenDone {
		idle = d.idle.Idle()
	}

	// --- main event loop ---
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down", "reason", context.Cause(ctx))
			return nil
		case <-idle:
			logger.Info("all tasks finished")
			return nil
		case <-d.mcpDone:
			logger.Info("mcp client disconnected")
			return nil
		case sig := <-sigCh:
			if sig != syscall.SIGHUP {
				logger.Info("shutdown signal received", "signal", sig.String())
				return nil
			}
			logger.Info("SIGHUP received, reloading configuration")
			if err := d.reload(ctx); err != nil {
				logger.Error("reload failed", "error", err)
			}
		case evt := <-fileEvents:
			logger.Info("config file changed, reloading", "path", evt.ConfigPath, "type", string(evt.Type))
			if err := d.reload(ctx); err != nil {
				logger.Error("reload failed", "error", err)
			}
		}
	}
}

// loadConfig resolves, loads and validates the configuration. With no
// explicit path and no file found, the defaults are used and the returned
// path is empty.
func loadConfig(explicit string) (string, *config.Config, error) {
	path, err := config.ResolvePath(explicit)
	if errors.Is(err, config.ErrNotFound) {
		return "", config.Default(), nil
	}
	if err != nil {
		return "", nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return "", nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return "", nil, err
	}
	return path, cfg, nil
}

// registerInitial arms the configured tasks and the command line tasks.
func (d *deps) registerInitial(ctx context.Context, params Params) error {
	if !params.ExitWhenDone {
		if _, err := d.registrar.Register(ctx, d.sources.configTasks(), task.SourceConfig); err != nil {
			d.logger.Error("some configured tasks were rejected", "error", err)
		}
	}
	if len(params.Tasks) == 0 {
		return nil
	}

	sum, err := d.registrar.Register(ctx, params.Tasks, task.SourceCLI)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if params.ExitWhenDone && sum.Missing > 0 {
		return ErrTaskMissing
	}
	return nil
}
