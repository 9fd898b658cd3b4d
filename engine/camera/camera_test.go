package camera

import (
	"math"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/stretchr/testify/assert"
)

func TestNewCameraDefaults(t *testing.T) {
	c := NewCamera()
	assert.Equal(t, [3]float32{0, 0, 10}, c.Position())
	assert.Equal(t, [3]float32{0, 0, -1}, c.Forward())

	w, h := c.Viewport()
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
}

func TestFocalLengthMatchesFov(t *testing.T) {
	c := NewCamera(WithFov(math.Pi/2), WithViewport(800, 600))
	fx, fy := c.FocalLength()
	// tan(45deg) == 1, so the focal length is half the viewport height.
	assert.InDelta(t, 300, fy, 1e-3)
	assert.Equal(t, fx, fy)
}

func TestSetPositionUpdatesViewMatrix(t *testing.T) {
	c := NewCamera(WithPosition(0, 0, 0), WithTarget(0, 0, -1))
	before := c.ViewMatrix()

	c.SetPosition(0, 0, 5)
	after := c.ViewMatrix()
	assert.NotEqual(t, before, after)
	assert.InDelta(t, -5, after[14], 1e-6)
}

func TestSetViewportIgnoresInvalidSize(t *testing.T) {
	c := NewCamera(WithViewport(640, 480))
	c.SetViewport(0, 100)
	w, h := c.Viewport()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestSnapshotMatchesAccessors(t *testing.T) {
	c := NewCamera(WithPosition(1, 2, 3), WithTarget(1, 2, -7), WithFov(math.Pi/2), WithViewport(800, 600))
	snap := c.Snapshot()

	fx, fy := c.FocalLength()
	w, h := c.Viewport()
	assert.Equal(t, c.ViewMatrix(), snap.ViewMatrix)
	assert.Equal(t, c.Position(), snap.Position)
	assert.Equal(t, c.Forward(), snap.Forward)
	assert.Equal(t, fx, snap.FocalX)
	assert.Equal(t, fy, snap.FocalY)
	assert.Equal(t, w, snap.Width)
	assert.Equal(t, h, snap.Height)
}

func TestSnapshotIsConsistentUnderConcurrentMoves(t *testing.T) {
	c := NewCamera(WithTarget(0, 0, 0))
	poses := [][3]float32{{0, 0, 10}, {10, 0, 0}}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				p := poses[i%2]
				c.SetPosition(p[0], p[1], p[2])
			}
		}
	}()

	var want [16]float32
	for i := 0; i < 500; i++ {
		snap := c.Snapshot()
		common.LookAt(want[:], snap.Position[0], snap.Position[1], snap.Position[2], 0, 0, 0, 0, 1, 0)
		if !assert.Equal(t, want, snap.ViewMatrix) {
			break
		}
		assert.Equal(t, common.Normalize3(common.Sub3([3]float32{}, snap.Position)), snap.Forward)
	}
	close(stop)
	wg.Wait()
}
