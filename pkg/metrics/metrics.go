// Package metrics provides Prometheus metrics for the price-oracle system.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AggregationDuration is a histogram of aggregation pass duration.
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "price_aggregation_duration_seconds",
			Help:    "Duration of price aggregation passes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"instrument"},
	)

	// SourceFailuresTotal is a counter of adapter query failures.
	SourceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_failures_total",
			Help: "Total number of failed adapter queries",
		},
		[]string{"instrument", "source"},
	)

	// StaleReadingsTotal is a counter of readings excluded by the freshness filter.
	StaleReadingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stale_readings_total",
			Help: "Total number of readings excluded for exceeding max staleness",
		},
		[]string{"instrument", "source"},
	)

	// SourcesUsed is a gauge of sources contributing to the latest aggregate.
	SourcesUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aggregate_sources_used",
			Help: "Number of sources used in the latest aggregate per instrument",
		},
		[]string{"instrument"},
	)

	// RefreshesTotal is a counter of cache refresh attempts.
	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregate_refreshes_total",
			Help: "Total number of aggregate cache refreshes",
		},
		[]string{"instrument", "status"},
	)

	// CacheValidity is a gauge of cached aggregate validity.
	CacheValidity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aggregate_cache_valid",
			Help: "Whether the cached aggregate is valid and fresh (1=yes, 0=no)",
		},
		[]string{"instrument"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)
)

// Init initializes Prometheus metrics registry.
func Init() {
	prometheus.MustRegister(
		AggregationDuration,
		SourceFailuresTotal,
		StaleReadingsTotal,
		SourcesUsed,
		RefreshesTotal,
		CacheValidity,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr string) error {
	http.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      http.DefaultServeMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordAggregation records an aggregation pass.
func RecordAggregation(instrument string, used int, duration time.Duration) {
	AggregationDuration.WithLabelValues(instrument).Observe(duration.Seconds())
	SourcesUsed.WithLabelValues(instrument).Set(float64(used))
}

// RecordSourceFailure records a failed adapter query.
func RecordSourceFailure(instrument, source string) {
	SourceFailuresTotal.WithLabelValues(instrument, source).Inc()
}

// RecordStaleReading records a reading excluded by the freshness filter.
func RecordStaleReading(instrument, source string) {
	StaleReadingsTotal.WithLabelValues(instrument, source).Inc()
}

// RecordRefresh records a cache refresh attempt.
func RecordRefresh(instrument, status string) {
	RefreshesTotal.WithLabelValues(instrument, status).Inc()
}

// RecordCacheValidity records whether the cached aggregate is valid and fresh.
func RecordCacheValidity(instrument string, valid bool) {
	val := 0.0
	if valid {
		val = 1.0
	}
	CacheValidity.WithLabelValues(instrument).Set(val)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
