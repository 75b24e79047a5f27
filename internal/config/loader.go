package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/deltime/internal/scheduler"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a YAML configuration file, expands environment variables,
// parses it into a Config struct and applies defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse expands environment variables in raw, decodes it and applies
// defaults. Unknown keys are rejected.
func Parse(raw []byte) (*Config, error) {
	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("expanding variables: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	cfg.defaults()
	return &cfg, nil
}

// Default returns an empty configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	cfg.defaults()
	return cfg
}

func (c *Config) defaults() {
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if c.Tick <= 0 {
		c.Tick = scheduler.DefaultPeriod
	}
	if c.ChannelCapacity <= 0 {
		c.ChannelCapacity = scheduler.DefaultCapacity
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	c.Removable.Defaults()
	c.History.Defaults(c.DataDir)
	c.Gateway.Defaults()
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "deltime"
	}
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/deltime if set, otherwise ~/.local/share/deltime.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "deltime")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "deltime")
}

// ResolvePath returns explicit when set, otherwise the first existing file
// of $XDG_CONFIG_HOME/deltime/deltime.yaml, ~/.config/deltime/deltime.yaml
// and ./deltime.yaml.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	candidates := SearchPaths()
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w (searched: %v)", ErrNotFound, candidates)
}

// SearchPaths lists the locations ResolvePath looks at, in order.
func SearchPaths() []string {
	var candidates []string
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "deltime", "deltime.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "deltime", "deltime.yaml"))
	}
	return append(candidates, "deltime.yaml")
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns in raw YAML bytes.
// Returns an error listing all unresolved variables (no default, no env value).
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])
		hasDefault := len(subs) > 2 && subs[2] != nil

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if hasDefault {
			return subs[2]
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}
