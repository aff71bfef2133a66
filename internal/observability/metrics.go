package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a
// collection run.
type Metrics struct {
	APIRequests        *prometheus.CounterVec // labels: endpoint={site,iv}, outcome={success,transient_error,permanent_error}
	APIRetries         prometheus.Counter
	APIRequestDuration *prometheus.HistogramVec // labels: endpoint={site,iv}
	RateLimitWait      prometheus.Histogram

	ReadingsWritten prometheus.Counter
	SitesSkipped    prometheus.Counter
	Partitions      *prometheus.CounterVec // labels: outcome={success,failed,resumed}

	PartitionDuration prometheus.Histogram
	RunActive         prometheus.Gauge
}

// NewMetrics creates and registers all run metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.APIRequests,
		m.APIRetries,
		m.APIRequestDuration,
		m.RateLimitWait,
		m.ReadingsWritten,
		m.SitesSkipped,
		m.Partitions,
		m.PartitionDuration,
		m.RunActive,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "water_etl",
			Name:      "api_requests_total",
			Help:      "NWIS API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		APIRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "water_etl",
			Name:      "api_retries_total",
			Help:      "Retried NWIS API requests after transient failures.",
		}),
		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "water_etl",
			Name:      "api_request_duration_seconds",
			Help:      "NWIS API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		RateLimitWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "water_etl",
			Name:      "rate_limit_wait_seconds",
			Help:      "Time spent waiting on the shared request throttle.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		ReadingsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "water_etl",
			Name:      "readings_written_total",
			Help:      "Deduplicated readings written to partition files.",
		}),
		SitesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "water_etl",
			Name:      "sites_skipped_total",
			Help:      "Sites skipped because their batch failed permanently.",
		}),
		Partitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "water_etl",
			Name:      "partitions_total",
			Help:      "Completed partitions by outcome.",
		}, []string{"outcome"}),
		PartitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "water_etl",
			Name:      "partition_duration_seconds",
			Help:      "Duration of a complete partition collection.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "water_etl",
			Name:      "run_active",
			Help:      "1 while a collection run is in progress, 0 otherwise.",
		}),
	}
}
