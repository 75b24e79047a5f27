// Package remover deletes the targets of deletion jobs: a file, a whole
// directory, or the files of a directory matching a glob mask.
package remover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/flemzord/deltime/internal/remover"

// Target describes what a removal operated on.
type Target string

const (
	TargetFile   Target = "file"
	TargetDir    Target = "dir"
	TargetMasked Target = "masked"
)

// Result reports a completed removal.
type Result struct {
	Target Target
	// Removed counts deleted entries. A recursive directory removal counts as one.
	Removed int
}

// Remover deletes paths on an afero filesystem.
type Remover struct {
	fs     afero.Fs
	logger *slog.Logger
	tracer trace.Tracer
}

// New creates a Remover. A nil fs uses the operating system filesystem.
func New(fsys afero.Fs, logger *slog.Logger) *Remover {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Remover{
		fs:     fsys,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Fs returns the filesystem the remover works on.
func (r *Remover) Fs() afero.Fs {
	return r.fs
}

// Exists reports whether path exists.
func (r *Remover) Exists(path string) bool {
	ok, err := afero.Exists(r.fs, path)
	return err == nil && ok
}

// Remove deletes path. A file is removed whatever the mask. A directory
// with a mask keeps the directory and removes the regular files directly
// inside it whose name matches the mask. A directory without a mask is
// removed recursively.
func (r *Remover) Remove(ctx context.Context, path, mask string) (res Result, err error) {
	ctx, span := r.tracer.Start(ctx, "remover.Remove", trace.WithAttributes(
		attribute.String("deltime.path", path),
		attribute.String("deltime.mask", mask),
	))
	defer func() {
		span.SetAttributes(
			attribute.String("deltime.target", string(res.Target)),
			attribute.Int("deltime.removed", res.Removed),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	info, err := r.fs.Stat(path)
	if err != nil {
		return Result{}, classify(path, err)
	}

	if !info.IsDir() {
		if err := r.fs.Remove(path); err != nil {
			return Result{Target: TargetFile}, classify(path, err)
		}
		r.logger.Debug("remover: file removed", "path", path)
		return Result{Target: TargetFile, Removed: 1}, nil
	}

	if mask == "" {
		if err := r.fs.RemoveAll(path); err != nil {
			return Result{Target: TargetDir}, classify(path, err)
		}
		r.logger.Debug("remover: directory removed", "path", path)
		return Result{Target: TargetDir, Removed: 1}, nil
	}

	return r.removeMasked(ctx, path, mask)
}

func (r *Remover) removeMasked(ctx context.Context, dir, mask string) (Result, error) {
	res := Result{Target: TargetMasked}
	if _, err := filepath.Match(mask, ""); err != nil {
		return res, fmt.Errorf("%w: %q", ErrBadMask, mask)
	}

	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return res, classify(dir, err)
	}

	var errs []error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !entry.Mode().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(mask, entry.Name()); !ok {
			continue
		}

		name := filepath.Join(dir, entry.Name())
		if err := r.fs.Remove(name); err != nil {
			errs = append(errs, classify(name, err))
			continue
		}
		res.Removed++
	}

	r.logger.Debug("remover: masked files removed", "path", dir, "mask", mask, "removed", res.Removed)
	return res, errors.Join(errs...)
}

func classify(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EBUSY):
		return fmt.Errorf("%w: %s", ErrPermission, path)
	default:
		return fmt.Errorf("remover: removing %s: %w", path, err)
	}
}
