package spatial_index

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
)

type spatialIndexImpl struct {
	mu *sync.RWMutex

	maxSplatsPerBucket int
	maxDepth           int

	splatCount int
	buckets    []*LeafBucket
}

// SpatialIndex partitions a scene's splats into leaf buckets with known bounds. It is built
// once per scene load and read by the sort scheduler every frame.
type SpatialIndex interface {
	// Build partitions the given splat data, replacing any previous partition.
	//
	// Parameters:
	//   - data: the scene's splat arrays
	//
	// Returns:
	//   - error: common.ErrEmptyScene or a validation error for malformed data
	Build(data *common.SplatData) error

	// LeafBuckets returns the non-empty leaf buckets in a stable order. The same bucket
	// pointers are returned on every call until the next Build.
	//
	// Returns:
	//   - []*LeafBucket: the leaf buckets
	LeafBuckets() []*LeafBucket

	// SplatCount returns the number of splats covered by the index.
	//
	// Returns:
	//   - int: total splats across all buckets
	SplatCount() int
}

var _ SpatialIndex = &spatialIndexImpl{}

// NewSpatialIndex creates an empty octree-backed SpatialIndex. Leaves are split until they
// hold at most 256 splats or the tree is 8 levels deep.
//
// Parameters:
//   - options: functional options to configure the index
//
// Returns:
//   - SpatialIndex: the new, unbuilt index
func NewSpatialIndex(options ...SpatialIndexBuilderOption) SpatialIndex {
	s := &spatialIndexImpl{
		mu:                 &sync.RWMutex{},
		maxSplatsPerBucket: 256,
		maxDepth:           8,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *spatialIndexImpl) Build(data *common.SplatData) error {
	if err := data.Validate(); err != nil {
		return fmt.Errorf("spatial index: %w", err)
	}

	n := data.Count()
	members := make([]uint32, n)
	for i := range members {
		members[i] = uint32(i)
	}

	lo, hi := data.Bounds()
	// Pad zero-extent axes so a flat or single-point cloud still has a usable box.
	for a := range 3 {
		if hi[a]-lo[a] < 1e-4 {
			lo[a] -= 0.5
			hi[a] += 0.5
		}
	}

	var buckets []*LeafBucket
	s.split(data, members, lo, hi, 0, &buckets)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = buckets
	s.splatCount = n
	return nil
}

func (s *spatialIndexImpl) LeafBuckets() []*LeafBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buckets
}

func (s *spatialIndexImpl) SplatCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.splatCount
}

// split recursively partitions members into octants of the box [lo, hi]. Leaves are
// appended depth-first, so the resulting bucket order is deterministic.
func (s *spatialIndexImpl) split(data *common.SplatData, members []uint32, lo, hi [3]float32, depth int, out *[]*LeafBucket) {
	if len(members) == 0 {
		return
	}

	center := [3]float32{(lo[0] + hi[0]) / 2, (lo[1] + hi[1]) / 2, (lo[2] + hi[2]) / 2}
	if len(members) <= s.maxSplatsPerBucket || depth >= s.maxDepth {
		*out = append(*out, &LeafBucket{
			ID:      len(*out),
			Center:  center,
			Min:     lo,
			Max:     hi,
			Indexes: members,
		})
		return
	}

	var octants [8][]uint32
	for _, idx := range members {
		p := data.Position(int(idx))
		octants[octant(p, center)] = append(octants[octant(p, center)], idx)
	}

	for o := range octants {
		childLo, childHi := lo, hi
		for a := range 3 {
			if o&(1<<a) != 0 {
				childLo[a] = center[a]
			} else {
				childHi[a] = center[a]
			}
		}
		s.split(data, octants[o], childLo, childHi, depth+1, out)
	}
}

// octant returns the child index of p relative to center; bit a is set when p lies on
// the positive side of axis a.
func octant(p, center [3]float32) int {
	o := 0
	for a := range 3 {
		if p[a] >= center[a] {
			o |= 1 << a
		}
	}
	return o
}
