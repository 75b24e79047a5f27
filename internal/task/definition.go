// Package task defines deletion jobs: their configuration form, the payload
// carried through the scheduler and the registration path shared by every
// producer (configuration, removable media, gateway, MCP, command line).
package task

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/flemzord/deltime/internal/scheduler"
)

// Definition is one deletion job as written in configuration.
type Definition struct {
	Path string `yaml:"path" json:"path"`
	// Mask is a glob applied to the files of a directory target.
	Mask string `yaml:"mask,omitempty" json:"mask,omitempty"`
	// Interval is the period in minutes. Exclusive with Date.
	Interval uint32             `yaml:"interval,omitempty" json:"interval,omitempty"`
	Date     Date               `yaml:"date,omitempty" json:"date,omitzero"`
	Repeat   scheduler.Strategy `yaml:"repeat,omitempty" json:"repeat"`
	// Visible shows the path next to the progress bar.
	Visible bool `yaml:"visible,omitempty" json:"visible,omitempty"`
}

// Validate reports every structural problem of the definition.
func (d Definition) Validate() error {
	var errs []error
	if strings.TrimSpace(d.Path) == "" {
		errs = append(errs, ErrNoPath)
	}
	switch {
	case d.Interval == 0 && d.Date.IsZero():
		errs = append(errs, ErrNoTrigger)
	case d.Interval > 0 && !d.Date.IsZero():
		errs = append(errs, ErrBothTriggers)
	}
	if _, err := d.Repeat.MarshalText(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Trigger returns the scheduler trigger of a valid definition.
func (d Definition) Trigger() scheduler.Trigger {
	if d.Interval > 0 {
		return scheduler.Interval{Minutes: d.Interval}
	}
	return scheduler.AbsoluteDate{At: d.Date.Time}
}

// Hash identifies the job. Two producers submitting the same definition
// arm it only once. Visibility is a display setting and does not count.
func (d Definition) Hash() string {
	h := sha256.New()
	for _, part := range []string{
		d.Path,
		d.Mask,
		strconv.FormatUint(uint64(d.Interval), 10),
		strconv.FormatInt(d.Date.Unix(), 10),
		d.Repeat.String(),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// DisplayName is the path shown next to the bar, empty when not visible.
func (d Definition) DisplayName() string {
	if !d.Visible {
		return ""
	}
	if d.Mask != "" {
		return fmt.Sprintf("%s (%s)", d.Path, d.Mask)
	}
	return d.Path
}
