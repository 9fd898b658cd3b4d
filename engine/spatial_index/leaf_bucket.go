package spatial_index

import "github.com/Carmen-Shannon/oxy-splat/common"

// LeafBucket is a fixed, non-overlapping group of splats produced once per scene load.
// Membership never changes after the index is built; only DistanceToCamera is rewritten
// each frame by the visibility culler.
type LeafBucket struct {
	// ID is the bucket's position in the index's leaf order.
	ID int

	// Center is the center of the bucket's bounding box.
	Center [3]float32

	// Min and Max are the corners of the bucket's axis-aligned bounding box.
	Min, Max [3]float32

	// Indexes holds the member splat indices in storage order.
	Indexes []uint32

	// DistanceToCamera is the distance from the camera to Center, written per frame.
	DistanceToCamera float32
}

// Size returns the bounding-sphere-equivalent size of the bucket, the length of its box diagonal.
//
// Returns:
//   - float32: ‖Max − Min‖
func (b *LeafBucket) Size() float32 {
	return common.Distance3(b.Max, b.Min)
}
