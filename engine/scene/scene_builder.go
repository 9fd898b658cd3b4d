package scene

import (
	"github.com/Carmen-Shannon/oxy-splat/engine/profiler"
	"github.com/Carmen-Shannon/oxy-splat/engine/spatial_index"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat_sort"
	"github.com/prometheus/client_golang/prometheus"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithSortConfig sets the culling and resort policy of the scene's scheduler.
//
// Parameters:
//   - cfg: the sort policy
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSortConfig(cfg splat_sort.Config) SceneBuilderOption {
	return func(s *scene) {
		s.schedulerOptions = append(s.schedulerOptions, splat_sort.WithConfig(cfg))
	}
}

// WithRegisterer registers the scene scheduler's metrics with reg.
//
// Parameters:
//   - reg: the Prometheus registerer
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRegisterer(reg prometheus.Registerer) SceneBuilderOption {
	return func(s *scene) {
		s.schedulerOptions = append(s.schedulerOptions, splat_sort.WithRegisterer(reg))
	}
}

// WithProfiler reports the scene's sort latencies to p, typically the engine's profiler.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) SceneBuilderOption {
	return func(s *scene) {
		s.schedulerOptions = append(s.schedulerOptions, splat_sort.WithProfiler(p))
	}
}

// WithSpatialIndexOptions configures the spatial index built on each Load.
//
// Parameters:
//   - options: spatial index options such as bucket size and depth
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSpatialIndexOptions(options ...spatial_index.SpatialIndexBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.indexOptions = append(s.indexOptions, options...)
	}
}
