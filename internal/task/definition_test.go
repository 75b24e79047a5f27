package task

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/deltime/internal/scheduler"
)

func TestDefinition_YAML(t *testing.T) {
	t.Parallel()

	src := `
- path: /tmp/report.pdf
  date: "2026-10-26T13:23:52"
  repeat: once
  visible: true
- path: /var/tmp/cache
  mask: "*.tmp"
  interval: 30
  repeat: dialy
`
	var defs []Definition
	if err := yaml.Unmarshal([]byte(src), &defs); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d definitions, want 2", len(defs))
	}

	want := time.Date(2026, time.October, 26, 13, 23, 52, 0, time.Local)
	if !defs[0].Date.Equal(want) {
		t.Errorf("date = %v, want %v", defs[0].Date.Time, want)
	}
	if !defs[0].Visible || defs[0].Repeat != scheduler.Once {
		t.Errorf("first definition = %+v", defs[0])
	}
	if defs[1].Interval != 30 || defs[1].Mask != "*.tmp" || defs[1].Repeat != scheduler.Daily {
		t.Errorf("second definition = %+v", defs[1])
	}

	for i, d := range defs {
		if err := d.Validate(); err != nil {
			t.Errorf("definition %d: %v", i, err)
		}
	}
}

func TestDefinition_Validate(t *testing.T) {
	t.Parallel()

	date := Date{Time: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tests := []struct {
		name string
		def  Definition
		want []error
	}{
		{name: "no path", def: Definition{Interval: 1}, want: []error{ErrNoPath}},
		{name: "no trigger", def: Definition{Path: "/x"}, want: []error{ErrNoTrigger}},
		{name: "both triggers", def: Definition{Path: "/x", Interval: 1, Date: date}, want: []error{ErrBothTriggers}},
		{name: "bad strategy", def: Definition{Path: "/x", Interval: 1, Repeat: scheduler.Strategy(7)}, want: []error{scheduler.ErrInvalidStrategy}},
		{name: "everything wrong", def: Definition{Interval: 1, Date: date}, want: []error{ErrNoPath, ErrBothTriggers}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.def.Validate()
			for _, want := range tt.want {
				if !errors.Is(err, want) {
					t.Errorf("err = %v, want %v", err, want)
				}
			}
		})
	}
}

func TestDefinition_Trigger(t *testing.T) {
	t.Parallel()

	if trig, ok := (Definition{Interval: 5}).Trigger().(scheduler.Interval); !ok || trig.Minutes != 5 {
		t.Errorf("interval trigger = %v", trig)
	}

	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	if trig, ok := (Definition{Date: Date{Time: at}}).Trigger().(scheduler.AbsoluteDate); !ok || !trig.At.Equal(at) {
		t.Errorf("date trigger = %v", trig)
	}
}

func TestDefinition_Hash(t *testing.T) {
	t.Parallel()

	a := Definition{Path: "/x", Interval: 2, Repeat: scheduler.Forever}
	b := a
	b.Visible = true
	c := a
	c.Mask = "*.log"

	if a.Hash() != b.Hash() {
		t.Error("visibility changed the hash")
	}
	if a.Hash() == c.Hash() {
		t.Error("mask did not change the hash")
	}
	if len(a.Hash()) != 16 {
		t.Errorf("hash length = %d, want 16", len(a.Hash()))
	}
}

func TestDefinition_DisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		def  Definition
		want string
	}{
		{def: Definition{Path: "/x"}, want: ""},
		{def: Definition{Path: "/x", Visible: true}, want: "/x"},
		{def: Definition{Path: "/x", Mask: "*.tmp", Visible: true}, want: "/x (*.tmp)"},
	}
	for _, tt := range tests {
		if got := tt.def.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", tt.def, got, tt.want)
		}
	}
}

func TestDefinition_JSON(t *testing.T) {
	t.Parallel()

	var def Definition
	body := `{"path":"/tmp/a","date":"2026-10-26 13:23:52","repeat":"monthly"}`
	if err := json.Unmarshal([]byte(body), &def); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if def.Repeat != scheduler.Monthly || def.Date.IsZero() {
		t.Fatalf("definition = %+v", def)
	}

	out, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Definition
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal(%s): %v", out, err)
	}
	if !back.Date.Equal(def.Date.Time) || back.Hash() != def.Hash() {
		t.Errorf("round trip changed the definition: %s", out)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	want := time.Date(2022, time.October, 26, 13, 23, 52, 0, time.Local)
	for _, in := range []string{
		"2022-10-26T13:23:52",
		"2022-10-26 13:23:52",
		"26.10.2022 13:23:52",
		" 2022-10-26T13:23:52 ",
	} {
		got, err := ParseDate(in)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", in, got.Time, want)
		}
	}

	if got, err := ParseDate("2022-10-26T13:23:52+02:00"); err != nil || got.UTC().Hour() != 11 {
		t.Errorf("RFC3339 = %v, %v", got.Time, err)
	}
	if _, err := ParseDate("tomorrow"); !errors.Is(err, ErrBadDate) {
		t.Errorf("err = %v, want ErrBadDate", err)
	}
}
