package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics for the worker's health and metrics endpoints
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Run metrics describe whole pipeline executions
var (
	// RunsTotal counts pipeline runs by outcome (success|degraded|failed)
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Time taken by one pipeline run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5min
		},
	)

	DegradedSources = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_degraded_sources",
			Help: "Sources whose fetch failed in the last run",
		},
	)

	LastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_last_success_timestamp_seconds",
			Help: "Unix time of the last run that persisted its snapshot",
		},
	)

	SourcesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sources_total",
			Help: "Number of configured sources",
		},
	)
)

// Source metrics break a run down per blog
var (
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Time taken to fetch one listing page",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source_id"},
	)

	SourceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_errors_total",
			Help: "Total number of listing fetch failures",
		},
		[]string{"source_id", "error_type"},
	)

	PostsFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posts_fetched_total",
			Help: "Raw post records scraped from listing pages",
		},
		[]string{"source_id"},
	)

	PostsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posts_dropped_total",
			Help: "Raw post records rejected by validation",
		},
		[]string{"source_id"},
	)

	ChangesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "changes_detected_total",
			Help: "Changes detected by kind",
		},
		[]string{"source_id", "kind"},
	)
)

// RecordHTTPRequest records an HTTP request served by the worker
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
