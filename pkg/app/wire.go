package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/deltime/internal/config"
	"github.com/flemzord/deltime/internal/core"
	"github.com/flemzord/deltime/internal/cron"
	"github.com/flemzord/deltime/internal/gateway"
	"github.com/flemzord/deltime/internal/handler"
	"github.com/flemzord/deltime/internal/history"
	"github.com/flemzord/deltime/internal/mcpserver"
	"github.com/flemzord/deltime/internal/metrics"
	"github.com/flemzord/deltime/internal/notify"
	"github.com/flemzord/deltime/internal/progress"
	"github.com/flemzord/deltime/internal/reload"
	"github.com/flemzord/deltime/internal/removable"
	"github.com/flemzord/deltime/internal/remover"
	"github.com/flemzord/deltime/internal/scheduler"
	"github.com/flemzord/deltime/internal/task"
	"github.com/flemzord/deltime/internal/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

// deps holds the assembled application.
type deps struct {
	logger    *slog.Logger
	app       *core.App
	registry  *task.Registry
	registrar *task.Registrar
	sources   *taskSources
	idle      *idleWatch

	cfgPath    string
	cfgWatcher *reload.Watcher
	reloader   *reload.Handler

	// mcpDone is closed when the MCP client goes away; nil without MCP.
	mcpDone chan struct{}

	closers []func()
}

// build creates every component and adds the long-running ones to the
// lifecycle in start order: tracing, pipeline, cron, removable media,
// gateway, MCP, config watcher.
func build(ctx context.Context, cfg *config.Config, cfgPath string, params Params, logger *slog.Logger) (_ *deps, err error) {
	appCtx := core.NewAppContext(logger, cfg.DataDir)
	d := &deps{
		logger:  logger,
		app:     core.NewApp(appCtx),
		cfgPath: cfgPath,
		sources: &taskSources{config: cfg.Tasks, cli: params.Tasks, skipConfig: params.ExitWhenDone},
	}
	defer func() {
		if err != nil {
			d.close()
		}
	}()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, params.Version)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, func() {
		sctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	})

	sched := scheduler.New[*task.Job](scheduler.Config{
		Period:   cfg.Tick,
		Capacity: cfg.ChannelCapacity,
		Logger:   appCtx.ForComponent("scheduler").Logger,
	})
	mtr := metrics.New(sched)

	var store *history.Store
	if cfg.History.IsEnabled() {
		store, err = history.Open(ctx, cfg.History)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func() { _ = store.Close() })
		if err := mtr.WatchDB(store.DB(), "history"); err != nil {
			logger.Warn("history metrics unavailable", "error", err)
		}
	}

	interactive := !params.MCP
	board := progress.NewBoard(ctx, progress.Config{
		Enabled: interactive && cfg.Progress.IsEnabled(),
		Width:   cfg.Progress.Width,
		Output:  params.Stdout,
	})
	d.closers = append(d.closers, board.Close)

	rm := remover.New(nil, appCtx.ForComponent("remover").Logger)
	hub := gateway.NewHub()

	cfgHandler := handler.Config{
		Remover:   rm,
		Metrics:   mtr,
		Bell:      notify.NewBell(params.Stdout, interactive && cfg.Notify.BellEnabled(), notify.DefaultGap),
		Publisher: hub,
		Logger:    appCtx.ForComponent("handler").Logger,
	}
	if store != nil {
		cfgHandler.History = store
	}
	h := handler.New(cfgHandler)

	d.registry = task.NewRegistry()
	d.registrar = task.NewRegistrar(task.RegistrarConfig{
		Scheduler: sched,
		Registry:  d.registry,
		Board:     board,
		Files:     rm,
		Logger:    appCtx.ForComponent("task").Logger,
		OnMissing: h.Missing,
		Guard:     cfg.Guard().Check,
	})
	d.reloader = reload.NewHandler(d.registrar, appCtx.ForComponent("reload").Logger)
	d.idle = newIdleWatch(h, d.registry)

	d.app.Add("pipeline", &pipeline{
		sched:   sched,
		handler: d.idle,
		logger:  appCtx.ForComponent("pipeline").Logger,
	})

	crons := cron.NewScheduler(appCtx.ForComponent("cron").Logger)
	if store != nil {
		if err := crons.RegisterJob(&cron.HistoryPruneJob{
			Store:        store,
			Retention:    cfg.History.Retention,
			ScheduleExpr: cfg.History.PruneSchedule,
			Logger:       appCtx.ForComponent("cron").Logger,
		}); err != nil {
			return nil, err
		}
	}
	if err := crons.RegisterJob(&cron.RescanJob{
		Rescan: func(ctx context.Context) error { return d.sources.rescan(ctx, d.registrar) },
	}); err != nil {
		return nil, err
	}
	d.app.Add("cron", crons)

	if cfg.Removable.IsEnabled() && !params.ExitWhenDone {
		d.app.Add("removable", removable.NewWatcher(removable.WatcherConfig{
			Config:    cfg.Removable,
			Load:      loadTasks,
			Registrar: d.registrar,
			Logger:    appCtx.ForComponent("removable").Logger,
		}))
	}

	if cfg.Gateway.Enabled {
		gwDeps := gateway.Deps{
			Tasks:     d.registry,
			Producer:  d.registrar,
			Scheduler: sched,
			Metrics:   mtr.Handler(),
			Hub:       hub,
			Version:   params.Version,
			Logger:    appCtx.ForComponent("gateway").Logger,
		}
		if store != nil {
			gwDeps.History = store
		}
		d.app.Add("gateway", gateway.New(cfg.Gateway, gwDeps))
	}

	if params.MCP {
		mcpDeps := mcpserver.Deps{
			Tasks:    d.registry,
			Producer: d.registrar,
			Version:  params.Version,
			Logger:   appCtx.ForComponent("mcp").Logger,
		}
		if store != nil {
			mcpDeps.History = store
		}
		srv := mcpserver.New(mcpDeps)
		d.mcpDone = make(chan struct{})
		d.app.Add("mcp", core.StarterFunc(func(ctx context.Context) error {
			go func() {
				defer close(d.mcpDone)
				if err := srv.Serve(ctx, params.Stdin, params.Stdout); err != nil {
					logger.Error("mcp server stopped", "error", err)
				}
			}()
			return nil
		}))
	}

	if cfgPath != "" && !params.ExitWhenDone {
		d.cfgWatcher = reload.NewWatcher(reload.WatcherConfig{ConfigPath: cfgPath})
		d.app.Add("config-watcher", d.cfgWatcher)
	}

	logger.Debug("components assembled", "components", d.app.Names())
	return d, nil
}

// close releases what build acquired, in reverse order.
func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// reload re-reads the configuration file and arms the tasks it adds.
func (d *deps) reload(ctx context.Context) error {
	if d.cfgPath == "" {
		return errors.New("no configuration file to reload")
	}
	cfg, err := config.Load(d.cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	d.sources.setConfig(cfg.Tasks)
	_, err = d.reloader.HandleReloadFromConfig(ctx, cfg)
	return err
}

// loadTasks reads the task list of a configuration file found on a volume.
func loadTasks(path string) ([]task.Definition, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg.Tasks, nil
}

// taskSources remembers the definitions armed from the configuration file
// and the command line, so that jobs whose path was missing can be retried.
type taskSources struct {
	mu         sync.Mutex
	config     []task.Definition
	cli        []task.Definition
	skipConfig bool
}

func (s *taskSources) configTasks() []task.Definition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

func (s *taskSources) setConfig(defs []task.Definition) {
	s.mu.Lock()
	s.config = defs
	s.mu.Unlock()
}

// rescan re-registers every known definition. Armed ones are duplicates;
// missing ones are armed if their path has appeared.
func (s *taskSources) rescan(ctx context.Context, p reload.Producer) error {
	s.mu.Lock()
	cfgDefs, cliDefs, skip := s.config, s.cli, s.skipConfig
	s.mu.Unlock()

	var errs []error
	if !skip && len(cfgDefs) > 0 {
		if _, err := p.Register(ctx, cfgDefs, task.SourceConfig); err != nil {
			errs = append(errs, err)
		}
	}
	if len(cliDefs) > 0 {
		if _, err := p.Register(ctx, cliDefs, task.SourceCLI); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
