package history

import (
	"fmt"
	"time"
)

const (
	defaultBusyTimeout   = 5000
	defaultDBFile        = "history.db"
	defaultRetention     = 30 * 24 * time.Hour
	defaultPruneSchedule = "0 * * * *"
)

// Config holds the deletion history settings.
type Config struct {
	// Enabled turns history recording on. Defaults to true.
	Enabled *bool `yaml:"enabled"`

	// Path is the database file path. Defaults to {DataDir}/history.db.
	Path string `yaml:"path"`

	// Retention is how long rows are kept. Defaults to 720h.
	Retention time.Duration `yaml:"retention"`

	// PruneSchedule is the cron expression of the pruning job.
	PruneSchedule string `yaml:"prune_schedule"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`
}

// Defaults fills unset fields. dataDir is where the database lives when
// Path is empty.
func (c *Config) Defaults(dataDir string) {
	if c.Enabled == nil {
		t := true
		c.Enabled = &t
	}
	if c.Path == "" && dataDir != "" {
		c.Path = dataDir + "/" + defaultDBFile
	}
	if c.Retention == 0 {
		c.Retention = defaultRetention
	}
	if c.PruneSchedule == "" {
		c.PruneSchedule = defaultPruneSchedule
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
}

// IsEnabled reports whether history is recorded.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Validate checks the settings once defaults are applied.
func (c *Config) Validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("history: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	if c.Retention < 0 {
		return fmt.Errorf("history: retention must be non-negative, got %s", c.Retention)
	}
	return nil
}
