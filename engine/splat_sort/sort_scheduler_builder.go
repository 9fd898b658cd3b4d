package splat_sort

import (
	"github.com/Carmen-Shannon/oxy-splat/engine/profiler"
	"github.com/prometheus/client_golang/prometheus"
)

// SortSchedulerBuilderOption is a functional option for configuring a SortScheduler.
type SortSchedulerBuilderOption func(*sortSchedulerImpl)

// WithConfig sets the culling and resort policy. The values are used as given; start from
// DefaultConfig to override single fields.
//
// Parameters:
//   - cfg: the sort policy
//
// Returns:
//   - SortSchedulerBuilderOption: option function to apply
func WithConfig(cfg Config) SortSchedulerBuilderOption {
	return func(s *sortSchedulerImpl) {
		s.config = cfg
	}
}

// WithRegisterer sets the Prometheus registerer for the scheduler's collectors. By default
// each scheduler registers into its own private registry.
//
// Parameters:
//   - reg: the registerer to use
//
// Returns:
//   - SortSchedulerBuilderOption: option function to apply
func WithRegisterer(reg prometheus.Registerer) SortSchedulerBuilderOption {
	return func(s *sortSchedulerImpl) {
		s.registry = reg
	}
}

// WithProfiler reports completed sort latencies to a profiler.
//
// Parameters:
//   - p: the profiler to feed
//
// Returns:
//   - SortSchedulerBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) SortSchedulerBuilderOption {
	return func(s *sortSchedulerImpl) {
		s.profiler = p
	}
}
