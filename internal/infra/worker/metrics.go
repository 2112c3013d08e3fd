package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"post-alert/internal/pkg/config"
)

// Job triggers.
const (
	TriggerOnce = "once"
	TriggerCron = "cron"
)

// WorkerMetrics tracks the scheduling side of the worker: configuration
// fallbacks and job executions. Pipeline outcomes are recorded by the
// observability/metrics package.
type WorkerMetrics struct {
	*config.ConfigMetrics

	// JobRunsTotal counts job executions by trigger and status (success, degraded, failure).
	JobRunsTotal *prometheus.CounterVec

	// JobSkippedTotal counts cron ticks dropped because the previous run was still going.
	JobSkippedTotal prometheus.Counter

	// JobDurationSeconds observes whole-job wall time, including setup.
	JobDurationSeconds prometheus.Histogram

	// NextRunTimestamp is the Unix time of the next scheduled run.
	NextRunTimestamp prometheus.Gauge
}

// NewWorkerMetrics registers the worker metrics on reg, or on the default
// registry when reg is nil.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker", reg),

		JobRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_job_runs_total",
			Help: "Total number of pipeline jobs by trigger and status",
		}, []string{"trigger", "status"}),

		JobSkippedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "worker_job_skipped_total",
			Help: "Total number of scheduled jobs skipped because a run was still in progress",
		}),

		JobDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of pipeline jobs in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		NextRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "worker_next_run_timestamp",
			Help: "Unix timestamp of the next scheduled pipeline job",
		}),
	}
}

// RecordJob counts one finished job and observes its duration.
func (m *WorkerMetrics) RecordJob(trigger, status string, d time.Duration) {
	m.JobRunsTotal.WithLabelValues(trigger, status).Inc()
	m.JobDurationSeconds.Observe(d.Seconds())
}

// RecordSkipped counts a scheduled job that did not start.
func (m *WorkerMetrics) RecordSkipped() {
	m.JobSkippedTotal.Inc()
}

// SetNextRun publishes the next scheduled run time.
func (m *WorkerMetrics) SetNextRun(t time.Time) {
	if t.IsZero() {
		m.NextRunTimestamp.Set(0)
		return
	}
	m.NextRunTimestamp.Set(float64(t.Unix()))
}
