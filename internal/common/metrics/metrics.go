// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	// outcome is the command the handler sent back for the job
	WorkerJobOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_job_outcomes_total",
			Help: "Handled jobs by the terminal command sent to the broker",
		},
		[]string{"task_type", "outcome"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	GrantsMatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grants_matched_total",
			Help: "Grants that passed the inclusion gate across all match runs",
		},
	)

	// reason is "province" or "threshold"
	GrantsExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grants_excluded_total",
			Help: "Grants dropped from match results, by reason",
		},
		[]string{"reason"},
	)

	UsageLimitDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_limit_denied_total",
			Help: "Requests refused because the monthly feature limit was reached",
		},
		[]string{"feature"},
	)

	CatalogCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grant_catalog_cache_lookups_total",
			Help: "Grant catalog cache lookups by result",
		},
		[]string{"result"},
	)
)

// RecordCompleted increments the completion counter for a task.
func RecordCompleted(taskType string) {
	WorkerJobsCompleted.WithLabelValues(taskType).Inc()
}

// RecordFailed increments the failure counter for a task and error code.
func RecordFailed(taskType, code string) {
	WorkerJobsFailed.WithLabelValues(taskType, code).Inc()
}
