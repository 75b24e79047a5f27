package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/deltime/internal/config"
	"github.com/flemzord/deltime/internal/history"
	"github.com/flemzord/deltime/internal/task"
)

// writeConfig writes a minimal config whose state lives under dir.
func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "deltime.yaml")
	content := "version: \"1\"\n" +
		"tick: 1s\n" +
		"data_dir: " + filepath.Join(dir, "data") + "\n" +
		"removable: {enabled: false}\n" +
		"notify: {bell: false}\n" +
		"progress: {enabled: false}\n" +
		extra
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func quietParams(cfgPath string) Params {
	return Params{
		ConfigPath:     cfgPath,
		DisableSignals: true,
		Stdin:          strings.NewReader(""),
		Stdout:         io.Discard,
		Stderr:         io.Discard,
	}
}

func TestRun_InvalidConfigPath(t *testing.T) {
	t.Parallel()

	err := Run(t.Context(), quietParams("/nonexistent/config.yaml"))
	if err == nil {
		t.Error("expected error for invalid config path")
	}
}

func TestRun_InvalidConfigContent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: ["), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Run(t.Context(), quietParams(path)); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestRun_ValidationFailure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "badversion.yaml")
	if err := os.WriteFile(path, []byte("version: \"9\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Run(t.Context(), quietParams(path)); err == nil {
		t.Error("expected validation error")
	}
}

func TestRun_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	params := quietParams(writeConfig(t, t.TempDir(), ""))
	params.LogLevel = "loud"
	if err := Run(t.Context(), params); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestRun_ExitWhenDoneRemovesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	params := quietParams(writeConfig(t, dir, ""))
	params.Tasks = []task.Definition{{Path: target, Interval: 1}}
	params.ExitWhenDone = true

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Second)
	defer cancel()
	if err := Run(ctx, params); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("Run returned because of the test timeout")
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("target still exists: %v", err)
	}

	store, err := history.Open(context.Background(), history.Config{Path: filepath.Join(dir, "data", "history.db")})
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer func() { _ = store.Close() }()
	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Path != target || entries[0].Result != history.ResultOK || entries[0].Source != task.SourceCLI {
		t.Errorf("history = %+v", entries)
	}
}

func TestRun_ExitWhenDoneMissingTarget(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	params := quietParams(writeConfig(t, dir, ""))
	params.Tasks = []task.Definition{{Path: filepath.Join(dir, "absent"), Interval: 1}}
	params.ExitWhenDone = true

	if err := Run(t.Context(), params); !errors.Is(err, ErrTaskMissing) {
		t.Errorf("error = %v, want ErrTaskMissing", err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	params := quietParams(writeConfig(t, dir, "gateway: {enabled: true, bind: \"127.0.0.1:0\"}\n"))
	var logs bytes.Buffer
	params.Stderr = &logs

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, params) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !strings.Contains(logs.String(), "shutdown complete") {
		t.Errorf("logs:\n%s", logs.String())
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	path, cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if path != "" || cfg.Version != config.CurrentVersion {
		t.Errorf("path = %q, cfg = %+v", path, cfg)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(config.LogConfig{Level: "warn", Format: "json"}, "", &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Errorf("output = %s", buf.String())
	}

	buf.Reset()
	logger, err = NewLogger(config.LogConfig{Level: "warn", Format: "text"}, "debug", &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("override ignored: %s", buf.String())
	}

	if _, err := NewLogger(config.LogConfig{Level: "info", Format: "xml"}, "", &buf); err == nil {
		t.Error("expected error for unknown format")
	}

	buf.Reset()
	logger, err = NewLogger(config.LogConfig{Level: "info"}, "", &buf, "gw-token")
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("request", "authorization", "Bearer gw-token")
	if strings.Contains(buf.String(), "gw-token") {
		t.Errorf("secret logged: %s", buf.String())
	}
}

func TestAllTerminal(t *testing.T) {
	t.Parallel()

	done := task.NewJob(task.Definition{Path: "/a", Interval: 1}, task.SourceCLI)
	done.SetStatus(task.StatusDone)
	expired := task.NewJob(task.Definition{Path: "/b", Interval: 1}, task.SourceCLI)
	expired.SetStatus(task.StatusExpired)
	armed := task.NewJob(task.Definition{Path: "/c", Interval: 1}, task.SourceCLI)
	armed.SetStatus(task.StatusArmed)

	if allTerminal(nil) {
		t.Error("no jobs is not idle")
	}
	if !allTerminal([]*task.Job{done, expired}) {
		t.Error("terminal jobs not idle")
	}
	if allTerminal([]*task.Job{done, armed}) {
		t.Error("armed job reported idle")
	}
}
