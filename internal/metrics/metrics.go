// Package metrics exposes Prometheus collectors for the worker service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksTotal           *prometheus.CounterVec
	fetchDurationSeconds *prometheus.HistogramVec
	coreRequestsTotal    *prometheus.CounterVec
	queueDepth           prometheus.Gauge
	taskRetriesTotal     prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		tasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_tasks_total",
				Help: "Total number of tasks processed, labeled by task name and final status.",
			},
			[]string{"task", "status"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collector_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies, labeled by source type.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"type"},
		)

		coreRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "core_api_requests_total",
				Help: "Total number of control-plane API calls, labeled by endpoint and result code.",
			},
			[]string{"endpoint", "code"},
		)

		queueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "collector_queue_depth",
				Help: "Current number of tasks waiting in the queue.",
			},
		)

		taskRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "collector_task_retries_total",
				Help: "Total number of task re-enqueues caused by transport failures.",
			},
		)
	})
}

// ObserveTask records a finished task by name and final status.
func ObserveTask(task, status string) {
	if tasksTotal == nil {
		return
	}
	tasksTotal.WithLabelValues(task, status).Inc()
}

// ObserveFetch records the duration of one fetch attempt for a source type.
func ObserveFetch(sourceType string, d time.Duration) {
	if fetchDurationSeconds == nil {
		return
	}
	fetchDurationSeconds.WithLabelValues(sourceType).Observe(d.Seconds())
}

// ObserveCoreRequest records one control-plane API call.
func ObserveCoreRequest(endpoint, code string) {
	if coreRequestsTotal == nil {
		return
	}
	coreRequestsTotal.WithLabelValues(endpoint, code).Inc()
}

// SetQueueDepth records the current queue backlog.
func SetQueueDepth(n int) {
	if queueDepth == nil {
		return
	}
	queueDepth.Set(float64(n))
}

// ObserveRetry counts one task re-enqueue.
func ObserveRetry() {
	if taskRetriesTotal == nil {
		return
	}
	taskRetriesTotal.Inc()
}
