package splat_sort

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func forwardWithCosine(c float64) [3]float32 {
	return [3]float32{0, float32(math.Sqrt(1 - c*c)), float32(-c)}
}

func TestViewChangeDetectorFirstCheckAlwaysResorts(t *testing.T) {
	d := NewViewChangeDetector(DefaultConfig())
	assert.True(t, d.ShouldResort([3]float32{}, [3]float32{0, 0, -1}, false))

	_, _, ok := d.Snapshot()
	assert.False(t, ok)
}

func TestViewChangeDetectorThresholds(t *testing.T) {
	origin := [3]float32{}
	ahead := [3]float32{0, 0, -1}

	tests := []struct {
		name     string
		position [3]float32
		forward  [3]float32
		force    bool
		want     bool
	}{
		{"unchanged", origin, ahead, false, false},
		{"forced", origin, ahead, true, true},
		{"small rotation", origin, forwardWithCosine(0.99), false, false},
		{"large rotation", origin, forwardWithCosine(0.9), false, true},
		{"opposite direction", origin, [3]float32{0, 0, 1}, false, true},
		{"small translation", [3]float32{0.99, 0, 0}, ahead, false, false},
		{"translation at threshold", [3]float32{1, 0, 0}, ahead, false, true},
		{"large translation", [3]float32{0, 3, 4}, ahead, false, true},
		{"unnormalized forward", origin, [3]float32{0, 0, -5}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewViewChangeDetector(DefaultConfig())
			d.Record(origin, ahead)
			assert.Equal(t, tt.want, d.ShouldResort(tt.position, tt.forward, tt.force))
		})
	}
}

func TestViewChangeDetectorDriftAccumulates(t *testing.T) {
	d := NewViewChangeDetector(DefaultConfig())
	d.Record([3]float32{}, [3]float32{0, 0, -1})

	// Each step is below the threshold, but the snapshot does not move without Record.
	steps := 0
	for x := float32(0.25); !d.ShouldResort([3]float32{x, 0, 0}, [3]float32{0, 0, -1}, false); x += 0.25 {
		steps++
	}
	assert.Equal(t, 3, steps)
}

func TestViewChangeDetectorResetAndSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TranslationChange = 5
	d := NewViewChangeDetector(cfg)
	d.Record([3]float32{1, 2, 3}, [3]float32{0, 0, -2})

	pos, fwd, ok := d.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, [3]float32{1, 2, 3}, pos)
	assert.Equal(t, [3]float32{0, 0, -1}, fwd)
	assert.False(t, d.ShouldResort([3]float32{4, 2, 3}, [3]float32{0, 0, -1}, false))

	d.Reset()
	assert.True(t, d.ShouldResort([3]float32{1, 2, 3}, [3]float32{0, 0, -1}, false))
}
