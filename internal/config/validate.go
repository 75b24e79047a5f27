package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/deltime/internal/cron"
)

// ErrNotFound is returned by ResolvePath when no configuration file exists.
var ErrNotFound = errors.New("config: no configuration file found")

// minTick keeps the scheduler from spinning.
const minTick = time.Second

// Validate checks the structural validity of a Config once defaults are
// applied. Every problem is reported.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: %q)", cfg.Version, CurrentVersion))
	}

	if cfg.Tick < minTick {
		errs = append(errs, fmt.Errorf("config: tick must be at least %s, got %s", minTick, cfg.Tick))
	}
	if cfg.ChannelCapacity < 1 {
		errs = append(errs, fmt.Errorf("config: channel_capacity must be positive, got %d", cfg.ChannelCapacity))
	}

	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateTasks(cfg)...)

	if err := cfg.Removable.Validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.History.IsEnabled() {
		if err := cfg.History.Validate(); err != nil {
			errs = append(errs, err)
		}
		if err := cron.ValidateSchedule(cfg.History.PruneSchedule); err != nil {
			errs = append(errs, fmt.Errorf("config: history.prune_schedule: %w", err))
		}
	}
	if err := cfg.Gateway.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Progress.Width < 0 {
		errs = append(errs, fmt.Errorf("config: progress.width must be non-negative, got %d", cfg.Progress.Width))
	}

	return errors.Join(errs...)
}

func validateLog(l LogConfig) []error {
	var errs []error
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: log.level %q is not one of debug, info, warn, error", l.Level))
	}
	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format %q is not one of text, json", l.Format))
	}
	return errs
}

func validateTasks(cfg *Config) []error {
	var errs []error
	guard := cfg.Guard()
	for i, def := range cfg.Tasks {
		err := def.Validate()
		if err == nil {
			err = guard.Check(def.Path)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("config: tasks[%d] (%s): %w", i, def.Path, err))
		}
	}
	return errs
}
