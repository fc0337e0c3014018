package metrics

import (
	"strings"
	"time"

	"doc_builder_app_go/services/pagination"

	"github.com/prometheus/client_golang/prometheus"
)

// Config labels every series with the service and environment
type Config struct {
	ServiceName string
	Environment string
}

// Metrics holds the pagination and export instruments. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	measureDuration *prometheus.HistogramVec
	pages           prometheus.Histogram
	cacheHits       prometheus.Counter
	exports         *prometheus.CounterVec
	purgedExports   prometheus.Counter
}

// New registers the instruments on registerer. A nil registerer uses the
// default Prometheus registry.
func New(registerer prometheus.Registerer, cfg Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	constLabels := cfg.labels()

	measureDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "docbuilder_pagination_measure_seconds",
			Help:        "Duration of measurement passes by resulting state.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			ConstLabels: constLabels,
		},
		[]string{"state"}, // paginated | fallback
	)

	pages := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "docbuilder_pagination_pages",
			Help:        "Pages produced per resolved measurement pass.",
			Buckets:     []float64{1, 2, 3, 5, 10, 20, 50},
			ConstLabels: constLabels,
		},
	)

	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "docbuilder_pagination_cache_hits_total",
			Help:        "Content versions resolved from the shared outcome cache.",
			ConstLabels: constLabels,
		},
	)

	exports := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "docbuilder_exports_total",
			Help:        "PDF exports by result.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // paginated | fallback | failed
	)

	purgedExports := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "docbuilder_exports_purged_total",
			Help:        "Exports removed by the retention job.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(measureDuration, pages, cacheHits, exports, purgedExports)

	return &Metrics{
		measureDuration: measureDuration,
		pages:           pages,
		cacheHits:       cacheHits,
		exports:         exports,
		purgedExports:   purgedExports,
	}
}

// ObserveMeasurement implements pagination.Observer
func (m *Metrics) ObserveMeasurement(state pagination.State, pages int, took time.Duration) {
	if m == nil {
		return
	}
	m.measureDuration.WithLabelValues(state.String()).Observe(took.Seconds())
	m.pages.Observe(float64(pages))
}

// ObserveCacheHit implements pagination.Observer
func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// IncExport counts an export attempt
func (m *Metrics) IncExport(result string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(result).Inc()
}

// AddPurgedExports counts exports removed by retention
func (m *Metrics) AddPurgedExports(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.purgedExports.Add(float64(n))
}

// RegisterControllerGauge exposes the number of live pagination controllers
func RegisterControllerGauge(registerer prometheus.Registerer, cfg Config, count func() int) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	registerer.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "docbuilder_pagination_controllers",
			Help:        "Documents with a live pagination controller.",
			ConstLabels: cfg.labels(),
		},
		func() float64 { return float64(count()) },
	))
}

func (cfg Config) labels() prometheus.Labels {
	return prometheus.Labels{
		"service": orDefault(cfg.ServiceName, "doc-builder"),
		"env":     orDefault(cfg.Environment, "unknown"),
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
