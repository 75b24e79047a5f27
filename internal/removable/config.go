package removable

import (
	"errors"
	"fmt"
	"time"
)

// Config configures the removable media watcher.
type Config struct {
	// Enabled turns the watcher on. Defaults to true.
	Enabled *bool `yaml:"enabled"`

	// Roots are the directories volumes get mounted under.
	Roots []string `yaml:"roots"`

	// FileName is the task file looked up at the root of a volume.
	FileName string `yaml:"file_name"`

	// Settle is the pause between two probes of a new directory.
	Settle time.Duration `yaml:"settle"`

	// Attempts is how many times a new directory is probed.
	Attempts int `yaml:"attempts"`

	// ScanOnStart probes the volumes already mounted when the watcher starts.
	ScanOnStart bool `yaml:"scan_on_start"`

	// ProbeRate caps the number of probes per second across all volumes.
	ProbeRate float64 `yaml:"probe_rate"`
}

// Defaults fills unset fields.
func (c *Config) Defaults() {
	if c.Enabled == nil {
		t := true
		c.Enabled = &t
	}
	if len(c.Roots) == 0 {
		c.Roots = []string{"/media", "/run/media"}
	}
	if c.FileName == "" {
		c.FileName = "deltime.yaml"
	}
	if c.Settle <= 0 {
		c.Settle = time.Second
	}
	if c.Attempts <= 0 {
		c.Attempts = 10
	}
	if c.ProbeRate <= 0 {
		c.ProbeRate = 5
	}
}

// IsEnabled reports whether the watcher runs.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Validate checks the settings once defaults are applied.
func (c *Config) Validate() error {
	var errs []error
	if c.Attempts < 0 {
		errs = append(errs, fmt.Errorf("removable: attempts must be positive, got %d", c.Attempts))
	}
	if c.Settle < 0 {
		errs = append(errs, fmt.Errorf("removable: settle must be positive, got %s", c.Settle))
	}
	for i, root := range c.Roots {
		if root == "" {
			errs = append(errs, fmt.Errorf("removable: roots[%d] is empty", i))
		}
	}
	if c.FileName != "" && c.FileName != baseName(c.FileName) {
		errs = append(errs, errors.New("removable: file_name must be a bare file name"))
	}
	return errors.Join(errs...)
}
