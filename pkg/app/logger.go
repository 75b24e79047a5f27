package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/flemzord/deltime/internal/config"
	"github.com/flemzord/deltime/internal/security"
)

// NewLogger builds the process logger from the log section. A non-empty
// levelOverride replaces the configured level. Secrets are redacted from
// every record.
func NewLogger(cfg config.LogConfig, levelOverride string, w io.Writer, secrets ...string) (*slog.Logger, error) {
	name := cfg.Level
	if levelOverride != "" {
		name = levelOverride
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return nil, fmt.Errorf("app: invalid log level %q: %w", name, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch cfg.Format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("app: invalid log format %q", cfg.Format)
	}
	return slog.New(security.NewRedactingHandler(h, security.NewRedactor(secrets...))), nil
}
