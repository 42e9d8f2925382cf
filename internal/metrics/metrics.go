// Package metrics exposes Prometheus instrumentation for the batcher.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Collector records batch, job and worker metrics. A nil *Collector is valid
// and records nothing.
type Collector struct {
	batchesTotal  prometheus.Counter
	batchDuration prometheus.Histogram
	batchSize     prometheus.Histogram

	jobsTotal   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec

	workersActive prometheus.Gauge
	pendingJobs   prometheus.Gauge

	logger *zap.Logger
}

// NewCollector creates a collector registering its metrics with registerer,
// prometheus.DefaultRegisterer is used when registerer is nil. Metrics already
// registered under the same namespace (for example by another batcher in the
// same process) are shared instead of registered twice.
func NewCollector(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.batchesTotal = register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_total",
		Help:      "Total number of processed batches",
	}))
	c.batchDuration = register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_duration_seconds",
		Help:      "Time from dispatch to the last collected result",
		Buckets:   prometheus.DefBuckets,
	}))
	c.batchSize = register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_size_jobs",
		Help:      "Number of jobs per batch",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}))
	c.jobsTotal = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Total number of executed jobs",
	}, []string{"function", "status"}))
	c.jobDuration = register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Job execution duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"function"}))
	c.workersActive = register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "workers_active",
		Help:      "Number of running workers",
	}))
	c.pendingJobs = register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_jobs",
		Help:      "Number of enqueued jobs awaiting dispatch",
	}))

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordBatch records a processed batch
func (c *Collector) RecordBatch(size int, duration time.Duration) {
	if c == nil {
		return
	}
	c.batchesTotal.Inc()
	c.batchSize.Observe(float64(size))
	c.batchDuration.Observe(duration.Seconds())
}

// RecordJob records an executed job
func (c *Collector) RecordJob(function string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	c.jobsTotal.WithLabelValues(function, status).Inc()
	c.jobDuration.WithLabelValues(function).Observe(duration.Seconds())
}

// WorkerStarted increments active workers
func (c *Collector) WorkerStarted() {
	if c == nil {
		return
	}
	c.workersActive.Inc()
}

// WorkerStopped decrements active workers
func (c *Collector) WorkerStopped() {
	if c == nil {
		return
	}
	c.workersActive.Dec()
}

// AddPending adjusts the number of jobs awaiting dispatch
func (c *Collector) AddPending(delta int) {
	if c == nil {
		return
	}
	c.pendingJobs.Add(float64(delta))
}

// register registers collector or returns the equal collector registered before
func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}
	var registered prometheus.AlreadyRegisteredError
	if errors.As(err, &registered) {
		if existing, ok := registered.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(err)
}
