package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ErrProtectedPath is returned for a deletion target the guard refuses.
var ErrProtectedPath = errors.New("security: protected path")

// PathGuard refuses deletion jobs that target a filesystem root, the user
// home directory or a configured path. Paths below a protected one are
// allowed.
type PathGuard struct {
	protected []string
}

// NewPathGuard creates a guard protecting the defaults plus extra.
func NewPathGuard(extra ...string) *PathGuard {
	g := &PathGuard{}
	g.add(string(filepath.Separator))
	if home, err := os.UserHomeDir(); err == nil {
		g.add(home)
	}
	for _, p := range extra {
		g.add(p)
	}
	return g
}

func (g *PathGuard) add(p string) {
	if p == "" {
		return
	}
	p = normalize(p)
	if !slices.Contains(g.protected, p) {
		g.protected = append(g.protected, p)
	}
}

// Protected returns the normalized protected paths.
func (g *PathGuard) Protected() []string {
	return slices.Clone(g.protected)
}

// Check returns ErrProtectedPath if path is protected.
func (g *PathGuard) Check(path string) error {
	p := normalize(path)
	if isVolumeRoot(p) || slices.Contains(g.protected, p) {
		return fmt.Errorf("%w: %s", ErrProtectedPath, path)
	}
	return nil
}

func normalize(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// isVolumeRoot matches "/" and Windows drive roots such as `C:\`.
func isVolumeRoot(p string) bool {
	vol := filepath.VolumeName(p)
	return p == vol+string(filepath.Separator) || (vol != "" && p == vol)
}
