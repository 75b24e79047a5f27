package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	armed  int
	passes uint64
}

func (f fakeSource) Len() int       { return f.armed }
func (f fakeSource) Passes() uint64 { return f.passes }

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New(nil)
	m.ObserveEvent("tick")
	m.ObserveEvent("tick")
	m.ObserveEvent("finish")
	m.ObserveRemoval("ok")

	if got := testutil.ToFloat64(m.events.WithLabelValues("tick")); got != 2 {
		t.Errorf("tick events = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.events.WithLabelValues("finish")); got != 1 {
		t.Errorf("finish events = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.removals.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok removals = %v, want 1", got)
	}
}

func TestMetrics_SourceFuncs(t *testing.T) {
	t.Parallel()

	m := New(fakeSource{armed: 3, passes: 42})

	n, err := testutil.GatherAndCount(m.Registry(), "deltime_tasks_armed", "deltime_passes_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 2 {
		t.Errorf("series = %d, want 2", n)
	}

	expected := `
# HELP deltime_tasks_armed Tasks currently armed in the scheduler.
# TYPE deltime_tasks_armed gauge
deltime_tasks_armed 3
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "deltime_tasks_armed"); err != nil {
		t.Error(err)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveEvent("tick")
	m.ObserveRemoval("error")
	if err := m.WatchDB(nil, "history"); err != nil {
		t.Errorf("WatchDB on nil: %v", err)
	}
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := New(fakeSource{armed: 1})
	m.ObserveEvent("expired")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`deltime_events_total{kind="expired"} 1`, "deltime_tasks_armed 1"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}
