package splat_sort

import (
	"math"

	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
)

// View is the per-frame camera state consumed by the culler, the change detector, and the
// sort job.
type View struct {
	ViewMatrix [16]float32
	Position   [3]float32
	Forward    [3]float32

	// HalfFovX and HalfFovY are the horizontal and vertical half field-of-view angles in radians.
	HalfFovX float32
	HalfFovY float32
}

// NewView captures the current state of a camera from a single camera snapshot.
//
// Parameters:
//   - cam: the camera to read
//
// Returns:
//   - View: the captured view
func NewView(cam camera.Camera) View {
	return ViewFromSnapshot(cam.Snapshot())
}

// ViewFromSnapshot builds a view from captured camera state.
//
// Parameters:
//   - snap: the camera snapshot
//
// Returns:
//   - View: the view for snap
func ViewFromSnapshot(snap camera.Snapshot) View {
	hx, hy := HalfFov(snap.FocalX, snap.FocalY, snap.Width, snap.Height)
	return View{
		ViewMatrix: snap.ViewMatrix,
		Position:   snap.Position,
		Forward:    snap.Forward,
		HalfFovX:   hx,
		HalfFovY:   hy,
	}
}

// HalfFov derives the horizontal and vertical half field-of-view angles from focal lengths
// and the viewport size, all in pixels.
//
// Parameters:
//   - focalX, focalY: focal lengths in pixels
//   - width, height: viewport size in pixels
//
// Returns:
//   - x, y: half angles in radians
func HalfFov(focalX, focalY float32, width, height int) (x, y float32) {
	x = float32(math.Atan(float64(width) / 2 / float64(focalX)))
	y = float32(math.Atan(float64(height) / 2 / float64(focalY)))
	return x, y
}
