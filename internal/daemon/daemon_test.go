package daemon

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kardianos/service"
)

func quiet() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestProgram_StartStop(t *testing.T) {
	t.Parallel()

	var (
		started atomic.Bool
		stopped atomic.Bool
	)
	p := NewProgram(func(ctx context.Context) error {
		started.Store(true)
		<-ctx.Done()
		stopped.Store(true)
		return ctx.Err()
	}, Options{Logger: quiet()})

	if err := p.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(nil); err == nil {
		t.Error("second Start should fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for !started.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := p.Stop(nil); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !stopped.Load() {
		t.Error("run did not observe cancellation")
	}
	if err := p.Stop(nil); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestProgram_RunError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	p := NewProgram(func(context.Context) error { return boom }, Options{Logger: quiet()})
	if err := p.Start(nil); err != nil {
		t.Fatal(err)
	}
	if err := p.Stop(nil); !errors.Is(err, boom) {
		t.Errorf("Stop error = %v, want boom", err)
	}
}

func TestProgram_StopTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)
	p := NewProgram(func(context.Context) error {
		<-release
		return nil
	}, Options{Logger: quiet(), StopTimeout: 20 * time.Millisecond})

	if err := p.Start(nil); err != nil {
		t.Fatal(err)
	}
	if err := p.Stop(nil); err == nil {
		t.Error("expected timeout error")
	}
}

func TestOptions_ServiceConfig(t *testing.T) {
	t.Parallel()

	cfg := Options{ConfigPath: "/etc/deltime/deltime.yaml", UserService: true}.ServiceConfig()
	if cfg.Name != DefaultName || cfg.Description == "" {
		t.Errorf("cfg = %+v", cfg)
	}
	want := []string{"service", "run", "--config", "/etc/deltime/deltime.yaml"}
	if !slices.Equal(cfg.Arguments, want) {
		t.Errorf("arguments = %v, want %v", cfg.Arguments, want)
	}
	if cfg.Option["UserService"] != true {
		t.Error("UserService option not set")
	}

	bare := Options{Name: "custom"}.ServiceConfig()
	if !slices.Equal(bare.Arguments, []string{"service", "run"}) || bare.Name != "custom" {
		t.Errorf("bare = %+v", bare)
	}
}

type fakeService struct {
	service.Service
	status service.Status
	err    error
}

func (f fakeService) Status() (service.Status, error) { return f.status, f.err }

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		svc  fakeService
		want string
	}{
		{fakeService{status: service.StatusRunning}, "running"},
		{fakeService{status: service.StatusStopped}, "stopped"},
		{fakeService{status: service.StatusUnknown}, "unknown"},
		{fakeService{err: service.ErrNotInstalled}, "not installed"},
	}
	for _, tt := range tests {
		got, err := Status(tt.svc)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if got != tt.want {
			t.Errorf("Status = %q, want %q", got, tt.want)
		}
	}

	if _, err := Status(fakeService{err: errors.New("dbus down")}); err == nil {
		t.Error("expected error")
	}
}

func TestControl_UnknownAction(t *testing.T) {
	t.Parallel()

	err := Control(fakeService{}, "explode")
	if !errors.Is(err, ErrUnknownAction) {
		t.Errorf("error = %v, want ErrUnknownAction", err)
	}
	if !slices.Contains(Actions(), "install") {
		t.Errorf("actions = %v", Actions())
	}
}
