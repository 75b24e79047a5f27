package notify

import (
	"bytes"
	"strings"
	"testing"
)

func TestBell_Patterns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	b := NewBell(&buf, true, 0)

	b.OK()
	if got := buf.String(); got != strings.Repeat("\a", 2) {
		t.Errorf("ok pattern = %q", got)
	}

	buf.Reset()
	b.Error()
	if got := buf.String(); got != strings.Repeat("\a", 3) {
		t.Errorf("error pattern = %q", got)
	}
}

func TestBell_Disabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewBell(&buf, false, 0).Error()
	if buf.Len() != 0 {
		t.Errorf("disabled bell wrote %q", buf.String())
	}

	var nilBell *Bell
	nilBell.OK()
	NewBell(nil, true, 0).OK()
}
