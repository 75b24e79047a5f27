package removable

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/deltime/internal/task"
)

const sampleMounts = `sysfs /sys sysfs rw,nosuid,nodev,noexec,relatime 0 0
proc /proc proc rw,nosuid,nodev,noexec,relatime 0 0
/dev/sda2 / ext4 rw,relatime 0 0
/dev/sdb1 /media/alice/MY\040DISK vfat rw,nosuid,nodev,relatime,uid=1000 0 0
/dev/sdc1 /run/media/bob/back\134slash exfat rw 0 0
broken
`

func TestParseMounts(t *testing.T) {
	t.Parallel()

	mounts, err := ParseMounts(strings.NewReader(sampleMounts))
	if err != nil {
		t.Fatalf("ParseMounts: %v", err)
	}
	if len(mounts) != 5 {
		t.Fatalf("got %d mounts, want 5", len(mounts))
	}

	usb := mounts[3]
	if usb.Device != "/dev/sdb1" || usb.Point != "/media/alice/MY DISK" || usb.FSType != "vfat" {
		t.Errorf("mount = %+v", usb)
	}
	if !strings.HasPrefix(usb.Options, "rw,nosuid") {
		t.Errorf("options = %q", usb.Options)
	}
	if got := mounts[4].Point; got != `/run/media/bob/back\slash` {
		t.Errorf("point = %q", got)
	}
}

func TestUnescapeOctal(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"plain":        "plain",
		`a\040b`:       "a b",
		`tab\011here`:  "tab\there",
		`trailing\04`:  `trailing\04`,
		`not\089octal`: `not\089octal`,
	}
	for in, want := range tests {
		if got := unescapeOctal(in); got != want {
			t.Errorf("unescapeOctal(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMountTable_IsMount(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mounts")
	if err := os.WriteFile(path, []byte(sampleMounts), 0o600); err != nil {
		t.Fatal(err)
	}
	table := mountTable{path: path}

	if ok, err := table.isMount("/media/alice/MY DISK/"); err != nil || !ok {
		t.Errorf("isMount(usb) = %v, %v", ok, err)
	}
	if ok, _ := table.isMount("/media/alice"); ok {
		t.Error("parent directory reported as mount point")
	}

	missing := mountTable{path: filepath.Join(t.TempDir(), "absent")}
	if ok, err := missing.isMount("/anything"); err != nil || !ok {
		t.Errorf("absent table = %v, %v; want every dir accepted", ok, err)
	}
}

type fakeRegistrar struct {
	mu      sync.Mutex
	sources []string
	defs    [][]task.Definition
	called  chan struct{}
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{called: make(chan struct{}, 8)}
}

func (f *fakeRegistrar) Register(_ context.Context, defs []task.Definition, source string) (task.Summary, error) {
	f.mu.Lock()
	f.sources = append(f.sources, source)
	f.defs = append(f.defs, defs)
	f.mu.Unlock()
	f.called <- struct{}{}
	return task.Summary{Armed: len(defs)}, nil
}

func (f *fakeRegistrar) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sources...)
}

func staticLoader(defs ...task.Definition) Loader {
	return func(string) ([]task.Definition, error) { return defs, nil }
}

func newTestWatcher(t *testing.T, root string, reg Registrar, load Loader) *Watcher {
	t.Helper()
	return NewWatcher(WatcherConfig{
		Config: Config{
			Roots:     []string{root},
			Settle:    10 * time.Millisecond,
			Attempts:  50,
			ProbeRate: 1000,
		},
		Load:       load,
		Registrar:  reg,
		MountsFile: filepath.Join(t.TempDir(), "no-mounts"),
		Logger:     slog.New(slog.DiscardHandler),
	})
}

func TestWatcher_Probe(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	vol := filepath.Join(root, "USB")
	if err := os.Mkdir(vol, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vol, "deltime.yaml"), []byte("tasks: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	reg := newFakeRegistrar()
	w := newTestWatcher(t, root, reg, staticLoader(task.Definition{Path: "/x", Interval: 1}))

	ok, err := w.Probe(t.Context(), vol)
	if err != nil || !ok {
		t.Fatalf("Probe = %v, %v", ok, err)
	}
	if got := reg.calls(); len(got) != 1 || got[0] != "removable:"+vol {
		t.Errorf("sources = %v", got)
	}
}

func TestWatcher_ProbeGivesUp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	reg := newFakeRegistrar()
	w := newTestWatcher(t, root, reg, staticLoader())
	w.cfg.Attempts = 2

	ok, err := w.Probe(t.Context(), root)
	if err != nil || ok {
		t.Errorf("Probe = %v, %v; want false, nil", ok, err)
	}
	if len(reg.calls()) != 0 {
		t.Error("registrar called without a task file")
	}
}

func TestWatcher_ProbeNotMounted(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "deltime.yaml"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	mounts := filepath.Join(t.TempDir(), "mounts")
	if err := os.WriteFile(mounts, []byte("/dev/sda1 / ext4 rw 0 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	reg := newFakeRegistrar()
	w := newTestWatcher(t, root, reg, staticLoader())
	w.mounts = mountTable{path: mounts}
	w.cfg.Attempts = 1

	if ok, _ := w.Probe(t.Context(), root); ok {
		t.Error("unmounted directory accepted")
	}
}

func TestWatcher_ProbeLoadError(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "deltime.yaml"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("bad yaml")
	w := newTestWatcher(t, root, newFakeRegistrar(), func(string) ([]task.Definition, error) { return nil, boom })

	if _, err := w.Probe(t.Context(), root); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestWatcher_DetectsNewVolume(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	reg := newFakeRegistrar()
	w := newTestWatcher(t, root, reg, staticLoader(task.Definition{Path: "/x", Interval: 1}))

	if err := w.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop(context.Background()) })

	// A user directory first, then the volume below it.
	vol := filepath.Join(root, "alice", "STICK")
	if err := os.Mkdir(filepath.Join(root, "alice"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := os.Mkdir(vol, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vol, "deltime.yaml"), []byte("tasks: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reg.called:
	case <-time.After(5 * time.Second):
		t.Fatal("volume task file never registered")
	}
	if got := reg.calls(); got[0] != "removable:"+vol {
		t.Errorf("source = %q", got[0])
	}

	if err := w.Stop(t.Context()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestWatcher_ScanOnStart(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	vol := filepath.Join(root, "DISK")
	if err := os.Mkdir(vol, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vol, "deltime.yaml"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	reg := newFakeRegistrar()
	w := newTestWatcher(t, root, reg, staticLoader())
	w.cfg.ScanOnStart = true
	w.cfg.Attempts = 1

	if err := w.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = w.Stop(context.Background()) }()

	select {
	case <-reg.called:
	case <-time.After(5 * time.Second):
		t.Fatal("existing volume not scanned")
	}
}

func TestConfig_DefaultsValidate(t *testing.T) {
	t.Parallel()

	var c Config
	c.Defaults()
	if !c.IsEnabled() || c.FileName != "deltime.yaml" || c.Attempts != 10 || c.Settle != time.Second || len(c.Roots) != 2 {
		t.Errorf("defaults = %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	bad := Config{Attempts: -1, Roots: []string{""}, FileName: "dir/deltime.yaml"}
	err := bad.Validate()
	if err == nil {
		t.Fatal("invalid config accepted")
	}
	for _, want := range []string{"attempts", "roots[0]", "file_name"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
