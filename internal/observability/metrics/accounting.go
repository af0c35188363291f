package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	StoreReasonDeadlineExceeded     = "deadline_exceeded"
	StoreReasonCanceled             = "canceled"
	StoreReasonLockTimeout          = "lock_timeout"
	StoreReasonSerializationFailure = "serialization_failure"
	StoreReasonUniqueViolation      = "unique_violation"
	StoreReasonUnknown              = "unknown"
)

const (
	RefoldReasonMiss     = "miss"
	RefoldReasonStale    = "stale"
	RefoldReasonRollover = "rollover"
)

// AccountingMetrics captures usage tracker health for the Prometheus endpoint.
type AccountingMetrics struct {
	refolds     *prometheus.CounterVec
	foldEvents  prometheus.Histogram
	lockWait    *prometheus.HistogramVec
	storeErrors *prometheus.CounterVec
	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

func NewAccountingMetrics(cfg Config, registerer prometheus.Registerer) (*AccountingMetrics, error) {
	constLabels := constLabelsFor(cfg)
	m := &AccountingMetrics{
		refolds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "consensus_usage_refolds_total",
			Help:        "Aggregates rebuilt from the usage event log, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		foldEvents: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "consensus_usage_fold_events",
			Help:        "Number of events folded when an aggregate is rebuilt.",
			Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
			ConstLabels: constLabels,
		}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "consensus_user_lock_wait_seconds",
			Help:        "Time spent waiting for the per-user accounting lock.",
			Buckets:     []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			ConstLabels: constLabels,
		}, []string{"scope"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "consensus_store_errors_total",
			Help:        "Storage failures by operation and low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"operation", "reason"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "consensus_scheduler_job_runs_total",
			Help:        "Scheduler job runs by job and outcome.",
			ConstLabels: constLabels,
		}, []string{"job", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "consensus_scheduler_job_duration_seconds",
			Help:        "Scheduler job duration.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"job"}),
	}
	if registerer == nil || !cfg.PrometheusEnabled {
		return m, nil
	}
	var err error
	if m.refolds, err = registerCollector(registerer, m.refolds); err != nil {
		return nil, err
	}
	if m.foldEvents, err = registerCollector(registerer, m.foldEvents); err != nil {
		return nil, err
	}
	if m.lockWait, err = registerCollector(registerer, m.lockWait); err != nil {
		return nil, err
	}
	if m.storeErrors, err = registerCollector(registerer, m.storeErrors); err != nil {
		return nil, err
	}
	if m.jobRuns, err = registerCollector(registerer, m.jobRuns); err != nil {
		return nil, err
	}
	if m.jobDuration, err = registerCollector(registerer, m.jobDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *AccountingMetrics) ObserveRefold(reason string, events int) {
	if m == nil {
		return
	}
	m.refolds.WithLabelValues(reason).Inc()
	m.foldEvents.Observe(float64(events))
}

// ObserveLockWait records how long a caller queued for a user's lock; scope is "local" or "redis".
func (m *AccountingMetrics) ObserveLockWait(scope string, wait time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(scope).Observe(wait.Seconds())
}

func (m *AccountingMetrics) ObserveStoreError(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation, ClassifyStoreReason(err)).Inc()
}

// ObserveJob records one scheduler job run; outcome is "ok", "error", "timeout" or "skipped".
func (m *AccountingMetrics) ObserveJob(job, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
	if outcome != "skipped" {
		m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
	}
}

// ClassifyStoreReason maps a storage error to a bounded label value.
func ClassifyStoreReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return StoreReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return StoreReasonCanceled
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return StoreReasonUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return StoreReasonLockTimeout
		case "40001":
			return StoreReasonSerializationFailure
		case "23505":
			return StoreReasonUniqueViolation
		}
	}
	return StoreReasonUnknown
}
