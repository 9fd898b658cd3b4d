package splat_sort

import (
	"math"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/spatial_index"
)

// forwardView returns a view at pos looking down -Z with a 45 degree half field of view.
func forwardView(pos [3]float32) View {
	var m [16]float32
	common.Identity(m[:])
	m[12], m[13], m[14] = -pos[0], -pos[1], -pos[2]
	return View{
		ViewMatrix: m,
		Position:   pos,
		Forward:    [3]float32{0, 0, -1},
		HalfFovX:   math.Pi / 4,
		HalfFovY:   math.Pi / 4,
	}
}

// bucketAt returns a cube bucket of half extent h around center with the given members.
func bucketAt(id int, center [3]float32, h float32, indexes ...uint32) *spatial_index.LeafBucket {
	return &spatial_index.LeafBucket{
		ID:      id,
		Center:  center,
		Min:     [3]float32{center[0] - h, center[1] - h, center[2] - h},
		Max:     [3]float32{center[0] + h, center[1] + h, center[2] + h},
		Indexes: indexes,
	}
}

// seq returns n consecutive indices starting at from.
func seq(from, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(from + i)
	}
	return out
}
