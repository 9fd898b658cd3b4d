package splat_sort

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
	"github.com/stretchr/testify/assert"
)

func TestNewViewUsesOneSnapshot(t *testing.T) {
	cam := camera.NewCamera(
		camera.WithPosition(3, 4, 5),
		camera.WithTarget(3, 4, -5),
		camera.WithFov(math.Pi/2),
		camera.WithViewport(800, 600),
	)
	snap := cam.Snapshot()
	view := NewView(cam)

	assert.Equal(t, ViewFromSnapshot(snap), view)
	assert.Equal(t, snap.ViewMatrix, view.ViewMatrix)
	assert.Equal(t, [3]float32{3, 4, 5}, view.Position)
	assert.Equal(t, [3]float32{0, 0, -1}, view.Forward)
	assert.InDelta(t, math.Pi/4, view.HalfFovY, 1e-6)
	assert.InDelta(t, math.Atan(4.0/3.0), view.HalfFovX, 1e-6)
}
