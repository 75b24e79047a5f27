package removable

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMountsFile is the kernel mount table.
const DefaultMountsFile = "/proc/mounts"

// Mount is one line of the mount table.
type Mount struct {
	Device  string
	Point   string
	FSType  string
	Options string
}

// ParseMounts reads a mount table in the /proc/mounts format. Octal escapes
// (\040 for a space) in the device and mount point are decoded. Malformed
// lines are skipped.
func ParseMounts(r io.Reader) ([]Mount, error) {
	var out []Mount
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		m := Mount{
			Device: unescapeOctal(fields[0]),
			Point:  unescapeOctal(fields[1]),
			FSType: fields[2],
		}
		if len(fields) > 3 {
			m.Options = fields[3]
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("removable: reading mount table: %w", err)
	}
	return out, nil
}

// unescapeOctal decodes the \ooo sequences the kernel uses for whitespace
// and backslashes in mount table fields.
func unescapeOctal(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && isOctal(s[i+1]) && isOctal(s[i+2]) && isOctal(s[i+3]) {
			b.WriteByte((s[i+1]-'0')<<6 | (s[i+2]-'0')<<3 | (s[i+3] - '0'))
			i += 3
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

// mountTable answers whether a directory is a mount point.
type mountTable struct {
	path string
}

// isMount reports whether dir is a mount point. When the table does not
// exist (non-Linux systems) every directory is accepted.
func (t mountTable) isMount(dir string) (bool, error) {
	mounts, err := t.load()
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	dir = filepath.Clean(dir)
	for _, m := range mounts {
		if filepath.Clean(m.Point) == dir {
			return true, nil
		}
	}
	return false, nil
}

func (t mountTable) load() ([]Mount, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseMounts(f)
}

func baseName(p string) string {
	return filepath.Base(filepath.Clean(p))
}
