// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkflowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Total number of committed application status transitions",
		},
		[]string{"action", "from", "to"},
	)

	WorkflowTransitionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transition_failures_total",
			Help: "Total number of rejected or failed transition attempts",
		},
		[]string{"action", "error_code"},
	)

	WorkflowSideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_side_effect_failures_total",
			Help: "Total number of best-effort side effects that failed after a commit",
		},
		[]string{"effect"},
	)

	WorkflowOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workflow_operation_duration_seconds",
			Help:    "Duration of workflow operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests by route and status code",
		},
		[]string{"route", "method", "code"},
	)

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
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
