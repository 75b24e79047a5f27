// Package metrics exposes deltime counters in the Prometheus format.
package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "deltime"

// Source is the scheduler introspection used by the gauge functions.
type Source interface {
	Len() int
	Passes() uint64
}

// Metrics owns a private registry. A nil *Metrics ignores every observation.
type Metrics struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	removals *prometheus.CounterVec
}

// New creates the registry and registers the deltime collectors. When src is
// non-nil, the armed-task gauge and pass counter read from it.
func New(src Source) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Scheduler events handled, by kind.",
		}, []string{"kind"}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removals_total",
			Help:      "Deletion attempts, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.events,
		m.removals,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if src != nil {
		reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tasks_armed",
				Help:      "Tasks currently armed in the scheduler.",
			}, func() float64 { return float64(src.Len()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_total",
				Help:      "Scheduler passes completed.",
			}, func() float64 { return float64(src.Passes()) }),
		)
	}
	return m
}

// WatchDB exports connection pool statistics of db under the given name.
func (m *Metrics) WatchDB(db *sql.DB, name string) error {
	if m == nil || db == nil {
		return nil
	}
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// ObserveEvent counts one handled event.
func (m *Metrics) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

// ObserveRemoval counts one deletion attempt.
func (m *Metrics) ObserveRemoval(result string) {
	if m == nil {
		return
	}
	m.removals.WithLabelValues(result).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
