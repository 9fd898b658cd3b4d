package spatial_index

// SpatialIndexBuilderOption is a functional option for configuring a SpatialIndex.
type SpatialIndexBuilderOption func(*spatialIndexImpl)

// WithMaxSplatsPerBucket sets the leaf capacity below which a node is no longer split.
// Values < 1 are ignored.
//
// Parameters:
//   - n: maximum splats per leaf bucket
//
// Returns:
//   - SpatialIndexBuilderOption: option function to apply
func WithMaxSplatsPerBucket(n int) SpatialIndexBuilderOption {
	return func(s *spatialIndexImpl) {
		if n >= 1 {
			s.maxSplatsPerBucket = n
		}
	}
}

// WithMaxDepth sets the maximum octree depth. Leaves at this depth keep all of their
// splats regardless of capacity. Negative values are ignored.
//
// Parameters:
//   - depth: maximum tree depth
//
// Returns:
//   - SpatialIndexBuilderOption: option function to apply
func WithMaxDepth(depth int) SpatialIndexBuilderOption {
	return func(s *spatialIndexImpl) {
		if depth >= 0 {
			s.maxDepth = depth
		}
	}
}
