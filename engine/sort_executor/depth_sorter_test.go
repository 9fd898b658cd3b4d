package sort_executor

import (
	"context"
	"math/rand"
	"testing"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityView() [16]float32 {
	var m [16]float32
	common.Identity(m[:])
	return m
}

// linePositions places splat i at z = -depths[i] in front of an identity view.
func linePositions(depths ...float32) []float32 {
	out := make([]float32, len(depths)*3)
	for i, d := range depths {
		out[i*3+2] = -d
	}
	return out
}

func TestDepthSorterFineBandBackToFront(t *testing.T) {
	positions := linePositions(5, 1, 9, 3, 7)
	in := []uint32{0, 1, 2, 3, 4}
	out := make([]uint32, 5)

	s := newDepthSorter(DefaultDepthBins)
	require.NoError(t, s.sort(context.Background(), identityView(), positions, in, out, 5, 5))
	assert.Equal(t, []uint32{2, 4, 0, 3, 1}, out)
}

func TestDepthSorterFarBandKeepsPackedOrder(t *testing.T) {
	positions := linePositions(4, 2, 100, 300, 200, 50)
	in := []uint32{0, 1, 3, 2, 4, 5}
	out := make([]uint32, 6)

	s := newDepthSorter(DefaultDepthBins)
	require.NoError(t, s.sort(context.Background(), identityView(), positions, in, out, 5, 2))

	// Refined: [1 0] then packed [3 2 4]; emitted reversed. out[5] is untouched.
	assert.Equal(t, []uint32{4, 2, 3, 0, 1, 0}, out)
}

func TestDepthSorterRandomOrdering(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	const n = 20000
	positions := make([]float32, n*3)
	for i := range positions {
		positions[i] = r.Float32()*400 - 200
	}
	in := make([]uint32, n)
	for i := range in {
		in[i] = uint32(i)
	}
	r.Shuffle(n, func(i, j int) { in[i], in[j] = in[j], in[i] })
	out := make([]uint32, n)

	var view [16]float32
	common.LookAt(view[:], 10, 20, 300, 0, 0, 0, 0, 1, 0)

	s := newDepthSorter(DefaultDepthBins)
	require.NoError(t, s.sort(context.Background(), view, positions, in, out, n, n))

	depth := func(i uint32) float32 {
		return common.ViewDepth(view[:], positions[i*3], positions[i*3+1], positions[i*3+2])
	}
	minD, maxD := depth(out[n-1]), depth(out[0])
	tolerance := (maxD - minD) / float32(DefaultDepthBins-1) * 1.01

	seen := make([]bool, n)
	for i, idx := range out {
		require.False(t, seen[idx], "index %d emitted twice", idx)
		seen[idx] = true
		if i > 0 {
			assert.GreaterOrEqual(t, depth(out[i-1])+tolerance, depth(idx), "position %d", i)
		}
	}
}

func TestDepthSorterEqualDepthsAreStable(t *testing.T) {
	positions := linePositions(2, 2, 2)
	out := make([]uint32, 3)
	s := newDepthSorter(16)
	require.NoError(t, s.sort(context.Background(), identityView(), positions, []uint32{2, 0, 1}, out, 3, 3))
	assert.Equal(t, []uint32{1, 0, 2}, out)
}

func TestDepthSorterErrors(t *testing.T) {
	s := newDepthSorter(16)
	out := []uint32{7, 7}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.sort(ctx, identityView(), linePositions(1, 2), []uint32{0, 1}, out, 2, 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []uint32{7, 7}, out)

	err = s.sort(context.Background(), identityView(), linePositions(1), []uint32{0, 5}, out, 2, 2)
	assert.ErrorIs(t, err, errIndexOutOfRange)
	assert.Equal(t, []uint32{7, 7}, out)
}

func TestDepthSorterEmptyJob(t *testing.T) {
	s := newDepthSorter(16)
	assert.NoError(t, s.sort(context.Background(), identityView(), nil, nil, nil, 0, 0))
}
