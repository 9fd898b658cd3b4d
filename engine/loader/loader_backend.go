package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-splat/common"
)

// loaderBackend defines the generic interface for loading splat data from files or streams.
// Concrete implementations (e.g., splatLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load decodes splat data from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//   - compressed: true if the file is zstd-compressed
	//
	// Returns:
	//   - *common.SplatData: the decoded splat arrays
	//   - error: error if loading fails
	Load(path string, compressed bool) (*common.SplatData, error)

	// LoadReader decodes splat data from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing splat data
	//   - compressed: true if the stream is zstd-compressed
	//
	// Returns:
	//   - *common.SplatData: the decoded splat arrays
	//   - error: error if loading fails
	LoadReader(r io.Reader, compressed bool) (*common.SplatData, error)
}
