package splat_sort

import (
	"math"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/spatial_index"
)

// VisibilityCuller selects the leaf buckets worth sorting for the current camera. The test is
// intentionally loose: a bucket is dropped only if it is outside both the horizontal and the
// vertical view angle, widened by the slack, and the camera is outside its own extent.
type VisibilityCuller struct {
	slack float32

	toBucket   [3]float32
	horizontal [3]float32
	vertical   [3]float32
}

// NewVisibilityCuller creates a culler with the frustum slack of cfg.
//
// Parameters:
//   - cfg: the sort policy
//
// Returns:
//   - *VisibilityCuller: the new culler
func NewVisibilityCuller(cfg Config) *VisibilityCuller {
	return &VisibilityCuller{slack: cfg.FrustumSlack}
}

// Cull builds the candidate list for a view. Every bucket's DistanceToCamera is written,
// including buckets that end up culled.
//
// Parameters:
//   - buckets: all leaf buckets of the scene
//   - view: the current camera view
//   - gatherAllNodes: keep every bucket regardless of the visibility test
//   - dst: slice reused for the result; its contents are overwritten
//
// Returns:
//   - []*spatial_index.LeafBucket: the candidate list, in input order
//   - int: the total number of splats in the candidate list
func (c *VisibilityCuller) Cull(buckets []*spatial_index.LeafBucket, view View, gatherAllNodes bool, dst []*spatial_index.LeafBucket) ([]*spatial_index.LeafBucket, int) {
	dst = dst[:0]
	total := 0

	minCosX := float32(math.Cos(float64(view.HalfFovX))) - c.slack
	minCosY := float32(math.Cos(float64(view.HalfFovY))) - c.slack

	for _, b := range buckets {
		cosH, cosV, dist := c.measure(b, &view)
		b.DistanceToCamera = dist

		if !gatherAllNodes && cosH < minCosX && cosV < minCosY && dist > b.Size() {
			continue
		}
		dst = append(dst, b)
		total += len(b.Indexes)
	}
	return dst, total
}

// measure returns the horizontal and vertical view-angle cosines of a bucket center and its
// distance from the camera. The camera looks down -Z in view space.
func (c *VisibilityCuller) measure(b *spatial_index.LeafBucket, view *View) (cosH, cosV, dist float32) {
	c.toBucket = common.Sub3(b.Center, view.Position)
	dist = common.Length3(c.toBucket)
	c.toBucket = common.TransformDirection(view.ViewMatrix[:], common.Normalize3(c.toBucket))

	c.horizontal = common.Normalize3([3]float32{c.toBucket[0], 0, c.toBucket[2]})
	c.vertical = common.Normalize3([3]float32{0, c.toBucket[1], c.toBucket[2]})

	return -c.horizontal[2], -c.vertical[2], dist
}
