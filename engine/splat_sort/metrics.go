package splat_sort

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Job outcome label values for the jobs counter.
const (
	outcomeSubmitted = "submitted"
	outcomeDropped   = "dropped"
	outcomeCompleted = "completed"
	outcomeCanceled  = "canceled"
)

type schedulerMetrics struct {
	jobs        *prometheus.CounterVec
	jobSeconds  prometheus.Histogram
	renderCount prometheus.Gauge
}

// newSchedulerMetrics creates the scheduler collectors and registers them. Collectors already
// registered by another scheduler on the same registerer are shared.
func newSchedulerMetrics(reg prometheus.Registerer) *schedulerMetrics {
	m := &schedulerMetrics{
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splat",
			Subsystem: "sort",
			Name:      "jobs_total",
			Help:      "Sort requests by outcome: submitted, dropped while in flight, completed, canceled.",
		}, []string{"outcome"}),
		jobSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "splat",
			Subsystem: "sort",
			Name:      "job_seconds",
			Help:      "Time from sort job submission to its completion message.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		renderCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "splat",
			Subsystem: "sort",
			Name:      "render_count",
			Help:      "Number of splats in the most recently published draw order.",
		}),
	}

	m.jobs = register(reg, m.jobs)
	m.jobSeconds = register(reg, m.jobSeconds)
	m.renderCount = register(reg, m.renderCount)
	return m
}

// register adds c to reg, returning the already registered collector on a duplicate.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}
