// Package metrics exposes prometheus instruments for the background
// scheduler.
package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	SchedulerErrorTypeDeadlineExceeded = "deadline_exceeded"
	SchedulerErrorTypeBusinessRule     = "business_rule"
	SchedulerErrorTypeDB               = "db"
)

// SchedulerMetrics captures job-loop health signals.
type SchedulerMetrics struct {
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobTimeouts    *prometheus.CounterVec
	jobErrors      *prometheus.CounterVec
	batchProcessed *prometheus.CounterVec
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the singleton scheduler metrics registry.
func Scheduler() *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer)
	})
	return schedulerMetrics
}

// ResetSchedulerMetricsForTest resets the scheduler metrics singleton for tests.
func ResetSchedulerMetricsForTest() {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
}

func newSchedulerMetrics(registerer prometheus.Registerer) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sellerledger_scheduler_job_runs_total",
		Help: "Scheduler job runs by name.",
	}, []string{"job"})
	// Tracks job latency to keep settlement and payout batches within
	// their windows.
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sellerledger_scheduler_job_duration_seconds",
		Help:    "Scheduler job latency to protect settlement and payout freshness.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300, 600},
	}, []string{"job"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sellerledger_scheduler_job_timeout_total",
		Help: "Scheduler job timeouts that can delay seller payouts.",
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sellerledger_scheduler_job_error_total",
		Help: "Scheduler job errors by type for reliability triage.",
	}, []string{"job", "error_type"})
	batchProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sellerledger_scheduler_batch_processed_total",
		Help: "Scheduler batch items processed to gauge payout throughput.",
	}, []string{"job"})

	registerer.MustRegister(jobRuns, jobDuration, jobTimeouts, jobErrors, batchProcessed)

	return &SchedulerMetrics{
		jobRuns:        jobRuns,
		jobDuration:    jobDuration,
		jobTimeouts:    jobTimeouts,
		jobErrors:      jobErrors,
		batchProcessed: batchProcessed,
	}
}

// IncJobRun increments the run counter for a scheduler job.
func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil || m.jobRuns == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

// ObserveJobDuration records scheduler job latency in seconds.
func (m *SchedulerMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil || m.jobDuration == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// IncJobTimeout increments the timeout counter for the scheduler job.
func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil || m.jobTimeouts == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

// IncJobError increments the scheduler job error counter with classification.
func (m *SchedulerMetrics) IncJobError(job string, err error) {
	if m == nil || m.jobErrors == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifySchedulerErrorType(err)).Inc()
}

// AddBatchProcessed increments the batch processed counter for a job by count.
func (m *SchedulerMetrics) AddBatchProcessed(job string, count int) {
	if m == nil || m.batchProcessed == nil || count <= 0 {
		return
	}
	m.batchProcessed.WithLabelValues(job).Add(float64(count))
}

// ClassifySchedulerErrorType returns a low-cardinality error type for logging.
func ClassifySchedulerErrorType(err error) string {
	if err == nil {
		return SchedulerErrorTypeBusinessRule
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SchedulerErrorTypeDeadlineExceeded
	}
	if isDBError(err) {
		return SchedulerErrorTypeDB
	}
	return SchedulerErrorTypeBusinessRule
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	return errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrDuplicatedKey)
}
