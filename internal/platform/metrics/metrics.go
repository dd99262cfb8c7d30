// Package metrics holds the Prometheus collectors for fusion runs and stream reads
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "osrp"

// Metrics is the set of collectors shared by services
// build one per process with New and pass it through modkit.Deps
type Metrics struct {
	reg *prometheus.Registry

	// fusion units (participant x day) by outcome: ok, failed, skipped
	Units       *prometheus.CounterVec
	UnitSeconds prometheus.Histogram

	// windows emitted and how many carried a label
	Windows        prometheus.Counter
	LabeledWindows prometheus.Counter

	// stream reads by stream kind and outcome
	Reads       *prometheus.CounterVec
	ReadRows    *prometheus.CounterVec
	Malformed   *prometheus.CounterVec
	ReadRetries prometheus.Counter

	// read-through cache lookups by result: hit, miss
	Cache *prometheus.CounterVec
}

// New registers every collector on a fresh registry
// process and go runtime collectors are included so /metrics is useful on its own
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,

		Units: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fusion_units_total",
			Help:      "Participant-day fusion units by outcome",
		}, []string{"outcome"}),

		UnitSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fusion_unit_duration_seconds",
			Help:      "Wall time of one participant-day unit including reads",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		Windows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_windows_total",
			Help:      "Feature windows emitted",
		}),

		LabeledWindows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_windows_labeled_total",
			Help:      "Feature windows that carried an EMA label",
		}),

		Reads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reads_total",
			Help:      "Stream range reads by kind and outcome",
		}, []string{"kind", "outcome"}),

		ReadRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_rows_total",
			Help:      "Rows returned by stream reads",
		}, []string{"kind"}),

		Malformed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_rows_malformed_total",
			Help:      "Rows dropped at the reader boundary for missing required fields",
		}, []string{"kind"}),

		ReadRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_read_retries_total",
			Help:      "Retries issued against the backing stores",
		}),

		Cache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_cache_lookups_total",
			Help:      "Read-through cache lookups by result",
		}, []string{"result"}),
	}
}

// Registry exposes the underlying registry for tests and custom collectors
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// the helpers below are nil-safe so services can run without a registry in tests

// ObserveRead records one stream read
func (m *Metrics) ObserveRead(kind, outcome string, rows, malformed int) {
	if m == nil {
		return
	}
	m.Reads.WithLabelValues(kind, outcome).Inc()
	if rows > 0 {
		m.ReadRows.WithLabelValues(kind).Add(float64(rows))
	}
	if malformed > 0 {
		m.Malformed.WithLabelValues(kind).Add(float64(malformed))
	}
}

// Retry records one store retry
func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.ReadRetries.Inc()
}

// CacheLookup records a cache hit or miss
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.Cache.WithLabelValues("hit").Inc()
		return
	}
	m.Cache.WithLabelValues("miss").Inc()
}

// ObserveUnit records one finished fusion unit
func (m *Metrics) ObserveUnit(outcome string, seconds float64, windows, labeled int) {
	if m == nil {
		return
	}
	m.Units.WithLabelValues(outcome).Inc()
	m.UnitSeconds.Observe(seconds)
	m.Windows.Add(float64(windows))
	m.LabeledWindows.Add(float64(labeled))
}
