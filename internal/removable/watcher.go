// Package removable registers the task files of volumes mounted under the
// configured roots.
package removable

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/flemzord/deltime/internal/task"
)

// Loader reads the task definitions of a task file.
type Loader func(path string) ([]task.Definition, error)

// Registrar arms definitions on behalf of a source.
type Registrar interface {
	Register(ctx context.Context, defs []task.Definition, source string) (task.Summary, error)
}

// WatcherConfig holds the watcher settings and collaborators.
type WatcherConfig struct {
	Config

	Load      Loader
	Registrar Registrar

	// MountsFile is the mount table. Defaults to /proc/mounts.
	MountsFile string

	Logger *slog.Logger
}

// Watcher watches the roots for new directories and registers the task file
// of every new mount point that carries one.
type Watcher struct {
	cfg     WatcherConfig
	mounts  mountTable
	limiter *rate.Limiter
	logger  *slog.Logger

	mu      sync.Mutex
	probing map[string]struct{}
	loaded  map[string]struct{}
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher. Call Start to begin watching.
func NewWatcher(cfg WatcherConfig) *Watcher {
	cfg.Defaults()
	if cfg.MountsFile == "" {
		cfg.MountsFile = DefaultMountsFile
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		cfg:     cfg,
		mounts:  mountTable{path: cfg.MountsFile},
		limiter: rate.NewLimiter(rate.Limit(cfg.ProbeRate), 1),
		logger:  logger,
		probing: make(map[string]struct{}),
		loaded:  make(map[string]struct{}),
	}
}

// Start watches every existing root and the directories directly below it.
// Roots that do not exist are skipped with a warning.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("removable: create watcher: %w", err)
	}

	watched := 0
	for _, root := range w.cfg.Roots {
		if err := fsw.Add(root); err != nil {
			w.logger.Warn("removable: root not watched", "root", root, "error", err)
			continue
		}
		watched++
		for _, sub := range subdirs(root) {
			if err := fsw.Add(sub); err == nil {
				watched++
			}
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.fsw = fsw
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(ctx, fsw)

	if w.cfg.ScanOnStart {
		w.scan(ctx)
	}

	w.logger.Info("removable: watching", "roots", strings.Join(w.cfg.Roots, ","), "dirs", watched)
	return nil
}

// Stop ends the watch and waits for in-flight probes.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, fsw := w.cancel, w.fsw
	w.cancel, w.fsw = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	closeErr := fsw.Close()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("removable: stop: %w", ctx.Err())
	}
	if closeErr != nil {
		return fmt.Errorf("removable: close watcher: %w", closeErr)
	}
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("removable: watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	dir := filepath.Clean(ev.Name)
	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return
		}
		// /run/media/<user> appears before the volumes below it.
		if w.isRoot(filepath.Dir(dir)) {
			_ = fsw.Add(dir)
		}
		w.spawnProbe(ctx, dir)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.mu.Lock()
		delete(w.loaded, dir)
		w.mu.Unlock()
	}
}

func (w *Watcher) isRoot(dir string) bool {
	return slices.ContainsFunc(w.cfg.Roots, func(r string) bool { return filepath.Clean(r) == dir })
}

// scan probes the mount points already present under the roots.
func (w *Watcher) scan(ctx context.Context) {
	mounts, err := w.mounts.load()
	if err != nil {
		w.logger.Debug("removable: mount table unavailable, scanning roots", "error", err)
		for _, root := range w.cfg.Roots {
			for _, sub := range subdirs(root) {
				w.spawnProbe(ctx, sub)
			}
		}
		return
	}
	for _, m := range mounts {
		if w.underRoot(m.Point) {
			w.spawnProbe(ctx, m.Point)
		}
	}
}

func (w *Watcher) underRoot(p string) bool {
	p = filepath.Clean(p)
	for _, root := range w.cfg.Roots {
		if strings.HasPrefix(p, filepath.Clean(root)+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) spawnProbe(ctx context.Context, dir string) {
	w.mu.Lock()
	if _, busy := w.probing[dir]; busy {
		w.mu.Unlock()
		return
	}
	if _, done := w.loaded[dir]; done {
		w.mu.Unlock()
		return
	}
	w.probing[dir] = struct{}{}
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.probing, dir)
			w.mu.Unlock()
		}()

		ok, err := w.Probe(ctx, dir)
		if err != nil {
			w.logger.Warn("removable: probe failed", "dir", dir, "error", err)
			return
		}
		if ok {
			w.mu.Lock()
			w.loaded[dir] = struct{}{}
			w.mu.Unlock()
		}
	}()
}

// Probe checks dir up to Attempts times, Settle apart, until it is a mount
// point carrying the task file, then registers the file's definitions. It
// reports whether a task file was registered.
func (w *Watcher) Probe(ctx context.Context, dir string) (bool, error) {
	file := filepath.Join(dir, w.cfg.FileName)

	for attempt := 1; attempt <= w.cfg.Attempts; attempt++ {
		if err := w.limiter.Wait(ctx); err != nil {
			return false, err
		}

		mounted, err := w.mounts.isMount(dir)
		if err != nil {
			return false, err
		}
		if mounted && fileExists(file) {
			return true, w.register(ctx, dir, file)
		}

		if attempt == w.cfg.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(w.cfg.Settle):
		}
	}

	w.logger.Debug("removable: no task file", "dir", dir, "attempts", w.cfg.Attempts)
	return false, nil
}

func (w *Watcher) register(ctx context.Context, dir, file string) error {
	defs, err := w.cfg.Load(file)
	if err != nil {
		return fmt.Errorf("removable: loading %s: %w", file, err)
	}
	sum, err := w.cfg.Registrar.Register(ctx, defs, task.RemovableSource(dir))
	w.logger.Info("removable: task file registered",
		"dir", dir,
		"definitions", len(defs),
		"armed", sum.Armed,
		"missing", sum.Missing,
	)
	if err != nil {
		return fmt.Errorf("removable: registering %s: %w", file, err)
	}
	return nil
}

func subdirs(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(root, e.Name()))
		}
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
