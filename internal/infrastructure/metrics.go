package infrastructure

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline-level prometheus instruments.
// One instance per application; registered against its own registry so
// tests can create metrics without global collisions.
type Metrics struct {
	registry *prometheus.Registry

	ComputeTotal    prometheus.Counter
	EmptySelections prometheus.Counter
	RecordsDropped  prometheus.Counter
	RecordsLoaded   prometheus.Gauge
	ComputeDuration prometheus.Histogram
}

// NewMetrics creates and registers the application metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ComputeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salespulse_pipeline_computations_total",
			Help: "Number of full pipeline computations executed.",
		}),
		EmptySelections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salespulse_empty_selections_total",
			Help: "Number of filter selections that matched no records.",
		}),
		RecordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salespulse_records_dropped_total",
			Help: "Number of dataset rows dropped for unparsable dates.",
		}),
		RecordsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salespulse_records_loaded",
			Help: "Number of sales records held by the record store.",
		}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "salespulse_pipeline_compute_seconds",
			Help:    "Duration of full pipeline computations.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		m.ComputeTotal,
		m.EmptySelections,
		m.RecordsDropped,
		m.RecordsLoaded,
		m.ComputeDuration,
	)

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
