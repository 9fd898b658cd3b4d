package splat_sort

import (
	"cmp"
	"errors"
	"slices"

	"github.com/Carmen-Shannon/oxy-splat/engine/spatial_index"
)

// ErrIndexBufferOverflow is returned when the candidate buckets hold more indices than the
// index buffer can take.
var ErrIndexBufferOverflow = errors.New("candidate indices overflow index buffer")

// NodeOrderer orders candidate buckets front to back and packs their members into the
// in-buffer, splitting them into a near band that needs per-splat ordering and a far band
// that keeps bucket order.
type NodeOrderer struct {
	maxDistanceToSort float32
}

// NewNodeOrderer creates an orderer with the near-band distance of cfg.
//
// Parameters:
//   - cfg: the sort policy
//
// Returns:
//   - *NodeOrderer: the new orderer
func NewNodeOrderer(cfg Config) *NodeOrderer {
	return &NodeOrderer{maxDistanceToSort: cfg.MaximumDistanceToSort}
}

// Order sorts candidates ascending by DistanceToCamera. Ties are left in no particular order.
//
// Parameters:
//   - candidates: the candidate list, sorted in place
func (o *NodeOrderer) Order(candidates []*spatial_index.LeafBucket) {
	slices.SortFunc(candidates, func(a, b *spatial_index.LeafBucket) int {
		return cmp.Compare(a.DistanceToCamera, b.DistanceToCamera)
	})
}

// Pack copies every candidate's member indices into in, contiguously and in candidate order.
// The fine count covers the leading run of buckets within the near band; on a list sorted by
// Order that is exactly the buckets with DistanceToCamera at or below the threshold.
//
// Parameters:
//   - candidates: the ordered candidate list
//   - in: destination index buffer
//
// Returns:
//   - total: number of indices written
//   - fine: number of leading indices that need per-splat ordering
//   - err: ErrIndexBufferOverflow if in is too small; in is left partially written
func (o *NodeOrderer) Pack(candidates []*spatial_index.LeafBucket, in []uint32) (total, fine int, err error) {
	near := true
	for _, b := range candidates {
		n := len(b.Indexes)
		if total+n > len(in) {
			return total, fine, ErrIndexBufferOverflow
		}
		copy(in[total:total+n], b.Indexes)
		total += n

		if near && b.DistanceToCamera <= o.maxDistanceToSort {
			fine += n
		} else {
			near = false
		}
	}
	return total, fine, nil
}
