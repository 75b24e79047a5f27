package reload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flemzord/deltime/internal/config"
	"github.com/flemzord/deltime/internal/task"
)

// Producer arms task definitions.
type Producer interface {
	Register(ctx context.Context, defs []task.Definition, source string) (task.Summary, error)
}

// Handler reloads the configuration file and arms the tasks it lists that
// are not armed yet. Tasks removed from the file keep running; settings
// other than tasks need a restart.
type Handler struct {
	producer Producer
	logger   *slog.Logger

	// mu serialises reloads triggered by SIGHUP and by the watcher.
	mu sync.Mutex
}

// NewHandler creates a reload handler.
func NewHandler(producer Producer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{producer: producer, logger: logger}
}

// HandleReload loads a fresh config from disk, validates it and registers
// its tasks.
func (h *Handler) HandleReload(ctx context.Context, configPath string) (task.Summary, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return task.Summary{}, fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return task.Summary{}, fmt.Errorf("validating config: %w", err)
	}
	return h.HandleReloadFromConfig(ctx, cfg)
}

// HandleReloadFromConfig registers the tasks of a pre-loaded, already
// validated config.
func (h *Handler) HandleReloadFromConfig(ctx context.Context, cfg *config.Config) (task.Summary, error) {
	if err := ctx.Err(); err != nil {
		return task.Summary{}, fmt.Errorf("context cancelled before reload: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Valid definitions are armed even when others are rejected.
	sum, err := h.producer.Register(ctx, cfg.Tasks, task.SourceConfig)
	h.logger.Info("configuration reloaded",
		"armed", sum.Armed,
		"duplicates", sum.Duplicates,
		"missing", sum.Missing,
		"invalid", sum.Invalid,
	)
	if err != nil {
		return sum, fmt.Errorf("registering tasks: %w", err)
	}
	return sum, nil
}
