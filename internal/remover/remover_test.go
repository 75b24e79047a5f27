package remover

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func seed(t *testing.T, fsys afero.Fs, files ...string) {
	t.Helper()
	for _, f := range files {
		if err := afero.WriteFile(fsys, f, []byte("x"), 0o644); err != nil {
			t.Fatalf("seeding %s: %v", f, err)
		}
	}
}

func TestRemove_File(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	seed(t, fsys, "/data/report.pdf")
	r := New(fsys, nil)

	res, err := r.Remove(t.Context(), "/data/report.pdf", "")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if res.Target != TargetFile || res.Removed != 1 {
		t.Errorf("result = %+v", res)
	}
	if r.Exists("/data/report.pdf") {
		t.Error("file still exists")
	}
}

func TestRemove_FileIgnoresMask(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	seed(t, fsys, "/data/report.pdf")

	res, err := New(fsys, nil).Remove(t.Context(), "/data/report.pdf", "*.tmp")
	if err != nil || res.Target != TargetFile {
		t.Fatalf("Remove = %+v, %v", res, err)
	}
}

func TestRemove_DirRecursive(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	seed(t, fsys, "/cache/a.tmp", "/cache/sub/b.tmp")
	r := New(fsys, nil)

	res, err := r.Remove(t.Context(), "/cache", "")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if res.Target != TargetDir {
		t.Errorf("target = %s, want dir", res.Target)
	}
	if r.Exists("/cache") || r.Exists("/cache/sub/b.tmp") {
		t.Error("directory tree still exists")
	}
}

func TestRemove_DirMasked(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	seed(t, fsys, "/cache/a.tmp", "/cache/b.tmp", "/cache/keep.log", "/cache/sub/c.tmp")
	r := New(fsys, nil)

	res, err := r.Remove(t.Context(), "/cache", "*.tmp")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if res.Target != TargetMasked || res.Removed != 2 {
		t.Errorf("result = %+v, want 2 masked removals", res)
	}

	for path, want := range map[string]bool{
		"/cache":           true,
		"/cache/a.tmp":     false,
		"/cache/b.tmp":     false,
		"/cache/keep.log":  true,
		"/cache/sub/c.tmp": true,
	} {
		if got := r.Exists(path); got != want {
			t.Errorf("Exists(%s) = %v, want %v", path, got, want)
		}
	}
}

func TestRemove_Errors(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	seed(t, mem, "/ro/file.txt", "/dir/a.tmp")

	tests := []struct {
		name string
		fs   afero.Fs
		path string
		mask string
		want error
	}{
		{name: "missing", fs: mem, path: "/nope", want: ErrNotFound},
		{name: "read only file", fs: afero.NewReadOnlyFs(mem), path: "/ro/file.txt", want: ErrPermission},
		{name: "read only dir", fs: afero.NewReadOnlyFs(mem), path: "/ro", want: ErrPermission},
		{name: "read only masked", fs: afero.NewReadOnlyFs(mem), path: "/dir", mask: "*.tmp", want: ErrPermission},
		{name: "bad mask", fs: mem, path: "/dir", mask: "[", want: ErrBadMask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.fs, nil).Remove(t.Context(), tt.path, tt.mask)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRemove_CanceledMasked(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	seed(t, fsys, "/cache/a.tmp")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := New(fsys, nil).Remove(ctx, "/cache", "*.tmp")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRemove_Span(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	fsys := afero.NewMemMapFs()
	seed(t, fsys, "/data/a")
	r := New(fsys, nil)
	r.tracer = tp.Tracer(tracerName)

	_, _ = r.Remove(t.Context(), "/data/a", "")
	_, _ = r.Remove(t.Context(), "/data/a", "")

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "remover.Remove" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code == codes.Error {
		t.Error("successful removal marked as error")
	}
	if spans[1].Status().Code != codes.Error {
		t.Error("failed removal not marked as error")
	}
}
