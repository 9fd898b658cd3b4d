// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ErrEmptyScene is returned when splat data holds no splats.
var ErrEmptyScene = errors.New("splat data is empty")

// SplatData holds the immutable per-scene splat arrays. A splat's identity is its index
// into these arrays; only its rank in the draw order changes from frame to frame.
type SplatData struct {
	// Positions holds the world-space center of each splat, 3 floats per splat.
	Positions []float32

	// Scales holds the per-axis standard deviation of each splat, 3 floats per splat.
	Scales []float32

	// Rotations holds the orientation of each splat as a quaternion (w, x, y, z), 4 floats per splat.
	Rotations []float32

	// Colors holds the RGBA color of each splat, 4 bytes per splat.
	Colors []uint8
}

// Count returns the number of splats described by the position array.
//
// Returns:
//   - int: the splat count
func (d *SplatData) Count() int {
	if d == nil {
		return 0
	}
	return len(d.Positions) / 3
}

// Validate checks that the data is non-empty and every attribute array matches the splat count.
//
// Returns:
//   - error: ErrEmptyScene for empty data, or a descriptive error for mismatched arrays
func (d *SplatData) Validate() error {
	n := d.Count()
	if n == 0 {
		return ErrEmptyScene
	}
	if len(d.Positions) != n*3 {
		return fmt.Errorf("positions length %d is not a multiple of 3", len(d.Positions))
	}
	if len(d.Scales) != n*3 {
		return fmt.Errorf("scales length %d, want %d", len(d.Scales), n*3)
	}
	if len(d.Rotations) != n*4 {
		return fmt.Errorf("rotations length %d, want %d", len(d.Rotations), n*4)
	}
	if len(d.Colors) != n*4 {
		return fmt.Errorf("colors length %d, want %d", len(d.Colors), n*4)
	}
	return nil
}

// Position returns the center of the splat at index i.
//
// Parameters:
//   - i: the splat index
//
// Returns:
//   - [3]float32: the world-space center
func (d *SplatData) Position(i int) [3]float32 {
	return [3]float32{d.Positions[i*3], d.Positions[i*3+1], d.Positions[i*3+2]}
}

// Bounds returns the axis-aligned bounding box enclosing every splat center.
//
// Returns:
//   - min, max: the box corners, both zero for empty data
func (d *SplatData) Bounds() (min, max [3]float32) {
	n := d.Count()
	if n == 0 {
		return
	}
	min = d.Position(0)
	max = min
	for i := 1; i < n; i++ {
		p := d.Position(i)
		for a := range 3 {
			if p[a] < min[a] {
				min[a] = p[a]
			}
			if p[a] > max[a] {
				max[a] = p[a]
			}
		}
	}
	return
}

// Fingerprint hashes every attribute array with xxhash64. Two loads of identical data share
// a fingerprint, which lets static GPU uploads be skipped when nothing changed.
//
// Returns:
//   - uint64: the content hash
func (d *SplatData) Fingerprint() uint64 {
	h := xxhash.New()
	_, _ = h.Write(SliceToBytes(d.Positions))
	_, _ = h.Write(SliceToBytes(d.Scales))
	_, _ = h.Write(SliceToBytes(d.Rotations))
	_, _ = h.Write(d.Colors)
	return h.Sum64()
}
