package loader

import "github.com/Carmen-Shannon/oxy-splat/common"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithSplatData is an option builder that pre-populates the cache with splat data, for
// procedurally generated clouds that never touch disk.
//
// Parameters:
//   - key: the cache key for the data
//   - data: the splat data to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithSplatData(key string, data *common.SplatData) LoaderBuilderOption {
	return func(l *loader) {
		l.sceneCache[key] = data
	}
}
