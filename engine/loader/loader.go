package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/logger"
)

// LoaderBackendType identifies the splat file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeSplat selects the packed .splat backend, plain or zstd-compressed.
	BackendTypeSplat LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	sceneCache map[string]*common.SplatData

	backend loaderBackend
}

// Loader defines the public-facing interface for loading and caching splat clouds.
// It abstracts the file format behind a generic backend and manages a cache of
// previously loaded clouds. Cached data is shared and must be treated as read-only.
type Loader interface {
	// Load reads a splat file and caches the result by path.
	// If the path is already cached, the cached data is returned.
	// Files ending in .splat.zst are decompressed; .splat files are read as is.
	//
	// Parameters:
	//   - path: the file path to the splat file
	//
	// Returns:
	//   - *common.SplatData: the loaded and cached splat data
	//   - error: error if the format is unsupported or decoding fails
	Load(path string) (*common.SplatData, error)

	// LoadReader decodes splat data from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded data
	//   - r: the reader providing splat data
	//   - compressed: true if the stream is zstd-compressed
	//
	// Returns:
	//   - *common.SplatData: the loaded splat data
	//   - error: error if decoding fails
	LoadReader(name string, r io.Reader, compressed bool) (*common.SplatData, error)

	// Get retrieves cached splat data by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *common.SplatData: the cached data or nil
	Get(name string) *common.SplatData

	// Scenes returns a copy of the cache.
	//
	// Returns:
	//   - map[string]*common.SplatData: all cached splat data keyed by name
	Scenes() map[string]*common.SplatData
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeSplat)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		sceneCache: make(map[string]*common.SplatData),
	}

	switch backendType {
	case BackendTypeSplat:
		l.backend = newSplatLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*common.SplatData, error) {
	l.mu.RLock()
	if cached, ok := l.sceneCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	compressed, err := resolveFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := l.backend.Load(path, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.store(path, data, compressed)
	return data, nil
}

func (l *loader) LoadReader(name string, r io.Reader, compressed bool) (*common.SplatData, error) {
	l.mu.RLock()
	if cached, ok := l.sceneCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	data, err := l.backend.LoadReader(r, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	l.store(name, data, compressed)
	return data, nil
}

func (l *loader) Get(name string) *common.SplatData {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sceneCache[name]
}

func (l *loader) Scenes() map[string]*common.SplatData {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*common.SplatData, len(l.sceneCache))
	for k, v := range l.sceneCache {
		result[k] = v
	}
	return result
}

func (l *loader) store(name string, data *common.SplatData, compressed bool) {
	l.mu.Lock()
	l.sceneCache[name] = data
	l.mu.Unlock()

	logger.Logger().Info("splat data loaded", "name", name, "splats", data.Count(), "compressed", compressed)
}

// resolveFormat reports whether a path names a compressed splat file.
func resolveFormat(path string) (compressed bool, err error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, SplatExtension+ZstdExtension):
		return true, nil
	case strings.HasSuffix(lower, SplatExtension):
		return false, nil
	default:
		return false, fmt.Errorf("unsupported splat format: %s", filepath.Ext(path))
	}
}
