// Package gateway exposes the daemon over HTTP: health, Prometheus metrics,
// task listing and submission, deletion history and a websocket event stream.
// It binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/flemzord/deltime/internal/history"
	"github.com/flemzord/deltime/internal/task"
)

// Tasks lists the registered jobs.
type Tasks interface {
	List() []*task.Job
}

// Producer arms task definitions.
type Producer interface {
	Register(ctx context.Context, defs []task.Definition, source string) (task.Summary, error)
}

// HistoryReader returns recent history entries.
type HistoryReader interface {
	Recent(ctx context.Context, n int) ([]history.Entry, error)
}

// SchedulerStats is the scheduler introspection shown by /status.
type SchedulerStats interface {
	Len() int
	Passes() uint64
}

// Deps are the collaborators served by the gateway. Nil fields disable the
// routes that need them.
type Deps struct {
	Tasks     Tasks
	Producer  Producer
	History   HistoryReader
	Scheduler SchedulerStats
	Metrics   http.Handler
	Hub       *Hub
	Version   string
	Logger    *slog.Logger
}

// Gateway is the HTTP server.
type Gateway struct {
	config    Config
	deps      Deps
	logger    *slog.Logger
	limiter   *rate.Limiter
	server    *http.Server
	startedAt time.Time
}

// New creates a Gateway. cfg defaults are applied.
func New(cfg Config, deps Deps) *Gateway {
	cfg.Defaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Hub == nil {
		deps.Hub = NewHub()
	}
	return &Gateway{
		config:    cfg,
		deps:      deps,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Limit(cfg.AuthRate), max(1, int(cfg.AuthRate))),
		startedAt: time.Now(),
	}
}

// Hub returns the event hub websocket clients subscribe to.
func (g *Gateway) Hub() *Hub {
	return g.deps.Hub
}

// Handler returns the router, for embedding and tests.
func (g *Gateway) Handler() http.Handler {
	return g.buildRouter()
}

// Start listens on the bind address and serves in the background.
func (g *Gateway) Start(ctx context.Context) error {
	g.startedAt = time.Now()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}
	return g.Serve(ln)
}

// Serve serves on ln in the background.
func (g *Gateway) Serve(ln net.Listener) error {
	g.server = &http.Server{
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
