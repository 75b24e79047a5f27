// Package config handles YAML configuration loading, environment variable
// expansion, defaults and structural validation for deltime.
package config

import (
	"time"

	"github.com/flemzord/deltime/internal/gateway"
	"github.com/flemzord/deltime/internal/history"
	"github.com/flemzord/deltime/internal/removable"
	"github.com/flemzord/deltime/internal/security"
	"github.com/flemzord/deltime/internal/task"
	"github.com/flemzord/deltime/internal/telemetry"
)

// CurrentVersion is the only supported config format version.
const CurrentVersion = "1"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Tick is the scheduler period. Defaults to one minute.
	Tick time.Duration `yaml:"tick,omitempty"`

	// ChannelCapacity is the event channel buffer. Defaults to 16.
	ChannelCapacity int `yaml:"channel_capacity,omitempty"`

	// DataDir holds the history database. Defaults to the XDG data dir.
	DataDir string `yaml:"data_dir,omitempty"`

	Log LogConfig `yaml:"log,omitempty"`

	// Tasks are the deletion jobs armed at start and on every reload.
	Tasks []task.Definition `yaml:"tasks,omitempty"`

	// ProtectedPaths are refused as deletion targets, in addition to the
	// filesystem root and the home directory.
	ProtectedPaths []string `yaml:"protected_paths,omitempty"`

	Removable removable.Config `yaml:"removable,omitempty"`
	History   history.Config   `yaml:"history,omitempty"`
	Gateway   gateway.Config   `yaml:"gateway,omitempty"`
	Telemetry telemetry.Config `yaml:"telemetry,omitempty"`
	Progress  ProgressConfig   `yaml:"progress,omitempty"`
	Notify    NotifyConfig     `yaml:"notify,omitempty"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level,omitempty"`
	// Format is text or json. Defaults to text.
	Format string `yaml:"format,omitempty"`
}

// ProgressConfig controls the terminal progress bars.
type ProgressConfig struct {
	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled,omitempty"`
	Width   int   `yaml:"width,omitempty"`
}

// IsEnabled reports whether bars are rendered.
func (p ProgressConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// NotifyConfig controls the audible notification.
type NotifyConfig struct {
	// Bell defaults to true.
	Bell *bool `yaml:"bell,omitempty"`
}

// BellEnabled reports whether the terminal bell rings.
func (n NotifyConfig) BellEnabled() bool {
	return n.Bell == nil || *n.Bell
}

// Guard returns the path guard for ProtectedPaths.
func (c *Config) Guard() *security.PathGuard {
	return security.NewPathGuard(c.ProtectedPaths...)
}

// Secrets returns the configured credentials that must not appear in logs.
func (c *Config) Secrets() []string {
	secrets := []string{c.Gateway.Auth.BearerToken, c.Gateway.Auth.BasicPass}
	for _, v := range c.Telemetry.Headers {
		secrets = append(secrets, v)
	}
	return secrets
}
