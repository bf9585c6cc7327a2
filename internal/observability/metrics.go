package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cruise_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for product generation.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	CruiseFailures  prometheus.Counter
	TimelineEvents  prometheus.Gauge

	// Product metrics.
	ProductsGenerated         *prometheus.CounterVec   // labels: product, outcome={success,error}
	ProductGenerationDuration *prometheus.HistogramVec // labels: product

	// Timeline construction metrics.
	EnrichmentSteps *prometheus.CounterVec // labels: step, outcome={applied,absent,failed}

	// Station lookups.
	StationCache *prometheus.CounterVec // labels: result={hit,miss}

	// Notifications.
	NotificationsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates metrics registered with reg. Batch commands use a
// private registry since nothing scrapes them.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.PipelineRunning,
		m.CruiseFailures,
		m.TimelineEvents,
		m.ProductsGenerated,
		m.ProductGenerationDuration,
		m.EnrichmentSteps,
		m.StationCache,
		m.NotificationsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a generation run is in progress, 0 otherwise.",
		}),
		CruiseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cruise_failures_total",
			Help:      "Cruises whose product generation failed.",
		}),
		TimelineEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timeline_events",
			Help:      "Number of events in the most recently built timeline.",
		}),
		ProductsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_generated_total",
			Help:      "Data products generated by product and outcome.",
		}, []string{"product", "outcome"}),
		ProductGenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "product_generation_duration_seconds",
			Help:      "Time to build and write one data product.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"product"}),
		EnrichmentSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_steps_total",
			Help:      "Optional timeline steps by step and outcome.",
		}, []string{"step", "outcome"}),
		StationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_cache_total",
			Help:      "Station list cache lookups by result.",
		}, []string{"result"}),
		NotificationsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_published_total",
			Help:      "Product notifications published by outcome.",
		}, []string{"outcome"}),
	}
}
