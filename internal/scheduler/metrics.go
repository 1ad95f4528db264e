package scheduler

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// taskMetrics is a handful
// of promauto collectors registered exactly once via sync.Once, so
// repeated Service construction in tests never double-registers.
type taskMetrics struct {
	runs      prometheus.Counter
	succeeded *prometheus.CounterVec
	durations prometheus.Observer
	queued    prometheus.Gauge
}

var (
	taskMetricsOnce sync.Once
	taskMetricsInst *taskMetrics
)

func globalTaskMetrics() *taskMetrics {
	taskMetricsOnce.Do(func() {
		taskMetricsInst = newTaskMetrics()
	})
	return taskMetricsInst
}

func newTaskMetrics() *taskMetrics {
	return &taskMetrics{
		runs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "dashost",
			Subsystem: "scheduler",
			Name:      "task_runs_total",
			Help:      "Total task executions started by the scheduler.",
		}),
		succeeded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashost",
			Subsystem: "scheduler",
			Name:      "task_runs_result_total",
			Help:      "Task executions labeled by outcome.",
		}, []string{"outcome"}),
		durations: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dashost",
			Subsystem: "scheduler",
			Name:      "task_duration_seconds",
			Help:      "Duration of task executions.",
			Buckets:   prometheus.DefBuckets,
		}),
		queued: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "dashost",
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Number of descriptors currently queued.",
		}),
	}
}

func (m *taskMetrics) recordRun() func(success bool) {
	if m == nil {
		return func(bool) {}
	}
	m.runs.Inc()
	timer := prometheus.NewTimer(m.durations)
	return func(success bool) {
		timer.ObserveDuration()
		outcome := "success"
		if !success {
			outcome = "failure"
		}
		m.succeeded.WithLabelValues(outcome).Inc()
	}
}

func (m *taskMetrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queued.Set(float64(n))
}
