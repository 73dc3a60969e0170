// Package observability provides Prometheus metrics for pipeline runs.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crop-stress-lab/internal/domain"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "crop_stress_lab"

// Cache kinds.
const (
	CacheResponse = "response"
	CacheBundle   = "bundle"
)

// Metrics holds the Prometheus metrics of the pipeline. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	RunsTotal     *prometheus.CounterVec
	PhaseDuration *prometheus.HistogramVec

	// Propagation metrics
	ReportersProcessed prometheus.Counter
	PartnerSkips       *prometheus.CounterVec
	MaskFallbacks      prometheus.Counter

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Storage metrics
	RowsStored *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics registers all metrics on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of experiment runs by status",
		}, []string{"experiment", "status"}),
		PhaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "phase_duration_seconds",
			Help:      "Duration of pipeline phases in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		}, []string{"phase"}),

		ReportersProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "propagation",
			Name:      "reporters_processed_total",
			Help:      "Total number of reporters propagated",
		}),
		PartnerSkips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "propagation",
			Name:      "partner_skips_total",
			Help:      "Total number of skipped trade partners by reason",
		}, []string{"reason"}),
		MaskFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "propagation",
			Name:      "mask_fallbacks_total",
			Help:      "Country masks resolved to the nearest cell",
		}),

		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits by kind",
		}, []string{"kind"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache misses by kind",
		}, []string{"kind"}),

		RowsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "rows_stored_total",
			Help:      "Rows written by table",
		}, []string{"table"}),

		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last completed run",
		}),
	}
}

// Registry returns the registry the metrics were registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(experiment, status string, finished time.Time) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(experiment, status).Inc()
	if status == domain.RunStatusCompleted {
		m.LastSuccessfulRun.Set(float64(finished.Unix()))
	}
}

// ObservePhase records the duration of a phase started at start.
func (m *Metrics) ObservePhase(phase string, start time.Time) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

// RecordPropagation adds the counts of one propagation run.
func (m *Metrics) RecordPropagation(reporters, fallbacks int, skips map[string]int) {
	if m == nil {
		return
	}
	m.ReportersProcessed.Add(float64(reporters))
	m.MaskFallbacks.Add(float64(fallbacks))
	for reason, n := range skips {
		m.PartnerSkips.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordCache records a cache lookup of kind.
func (m *Metrics) RecordCache(kind string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(kind).Inc()
	} else {
		m.CacheMisses.WithLabelValues(kind).Inc()
	}
}

// RecordRows adds n written rows of table.
func (m *Metrics) RecordRows(table string, n int) {
	if m == nil {
		return
	}
	m.RowsStored.WithLabelValues(table).Add(float64(n))
}
