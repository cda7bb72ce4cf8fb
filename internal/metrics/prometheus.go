// Package metrics exposes session activity to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/graydb/internal/database"
)

// DefaultNamespace prefixes every metric name when none is configured.
const DefaultNamespace = "graydb"

// StatsSource supplies the collector counters exported as graydb_collector_total.
type StatsSource interface {
	Snapshot() database.Stats
}

// PrometheusMetrics is a database.Observer backed by a private registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	eventsTotal *prometheus.CounterVec
	lastEvent   *prometheus.GaugeVec
}

var _ database.Observer = (*PrometheusMetrics)(nil)

// New creates the metrics set and registers Go/process collectors.
// When stats is non-nil its counters are exported on every scrape.
func New(namespace string, stats StatsSource) *PrometheusMetrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	pm := &PrometheusMetrics{
		registry: registry,

		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_events_total",
				Help:      "Session notifications by driver and category",
			},
			[]string{"driver", "category"},
		),

		lastEvent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_last_event_timestamp_seconds",
				Help:      "Unix time of the most recent notification per driver",
			},
			[]string{"driver"},
		),
	}

	registry.MustRegister(pm.eventsTotal, pm.lastEvent)

	start := time.Now()
	registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the metrics set was created",
		},
		func() float64 { return time.Since(start).Seconds() },
	))

	if stats != nil {
		registry.MustRegister(newStatsCollector(namespace, stats))
	}

	return pm
}

// Observe counts ev.
func (pm *PrometheusMetrics) Observe(_ context.Context, ev database.Event) {
	pm.eventsTotal.WithLabelValues(ev.Driver, string(ev.Category)).Inc()
	at := ev.Time
	if at.IsZero() {
		at = time.Now()
	}
	pm.lastEvent.WithLabelValues(ev.Driver).Set(float64(at.UnixNano()) / float64(time.Second))
}

// Handler serves the registry in the Prometheus exposition format.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry for custom collectors.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// statsCollector reads a Stats snapshot at scrape time.
type statsCollector struct {
	source StatsSource
	desc   *prometheus.Desc
}

func newStatsCollector(namespace string, source StatsSource) *statsCollector {
	return &statsCollector{
		source: source,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "collector", "total"),
			"Process-wide statement counters",
			[]string{"counter"}, nil,
		),
	}
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Snapshot()
	for _, v := range []struct {
		name  string
		value uint64
	}{
		{"queries", s.Queries},
		{"selects", s.Selects},
		{"inserts", s.Inserts},
		{"updates", s.Updates},
		{"deletes", s.Deletes},
		{"writes", s.Writes},
		{"reads", s.Reads},
	} {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(v.value), v.name)
	}
}
