package spatial_index

import (
	"math/rand"
	"testing"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomCloud(n int, seed int64) *common.SplatData {
	r := rand.New(rand.NewSource(seed))
	d := &common.SplatData{
		Positions: make([]float32, n*3),
		Scales:    make([]float32, n*3),
		Rotations: make([]float32, n*4),
		Colors:    make([]uint8, n*4),
	}
	for i := range d.Positions {
		d.Positions[i] = r.Float32()*200 - 100
	}
	for i := 0; i < n; i++ {
		d.Rotations[i*4] = 1
	}
	return d
}

func TestBuildPartitionsEverySplatOnce(t *testing.T) {
	data := randomCloud(5000, 1)
	idx := NewSpatialIndex(WithMaxSplatsPerBucket(64))
	require.NoError(t, idx.Build(data))

	assert.Equal(t, 5000, idx.SplatCount())

	seen := make([]int, data.Count())
	for _, b := range idx.LeafBuckets() {
		assert.NotEmpty(t, b.Indexes)
		assert.LessOrEqual(t, len(b.Indexes), 64)
		for _, i := range b.Indexes {
			seen[i]++
			p := data.Position(int(i))
			for a := range 3 {
				assert.GreaterOrEqual(t, p[a], b.Min[a])
				assert.LessOrEqual(t, p[a], b.Max[a])
			}
		}
	}
	for i, c := range seen {
		assert.Equal(t, 1, c, "splat %d", i)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	data := randomCloud(1000, 7)
	a, b := NewSpatialIndex(WithMaxSplatsPerBucket(32)), NewSpatialIndex(WithMaxSplatsPerBucket(32))
	require.NoError(t, a.Build(data))
	require.NoError(t, b.Build(data))

	require.Equal(t, len(a.LeafBuckets()), len(b.LeafBuckets()))
	for i := range a.LeafBuckets() {
		assert.Equal(t, i, a.LeafBuckets()[i].ID)
		assert.Equal(t, a.LeafBuckets()[i].Indexes, b.LeafBuckets()[i].Indexes)
	}
}

func TestBuildStopsAtMaxDepth(t *testing.T) {
	// Every splat in the same place can never be separated by splitting.
	data := randomCloud(100, 3)
	for i := range data.Positions {
		data.Positions[i] = 5
	}
	idx := NewSpatialIndex(WithMaxSplatsPerBucket(1), WithMaxDepth(3))
	require.NoError(t, idx.Build(data))
	require.Len(t, idx.LeafBuckets(), 1)
	assert.Len(t, idx.LeafBuckets()[0].Indexes, 100)
	assert.Greater(t, idx.LeafBuckets()[0].Size(), float32(0))
}

func TestBuildRejectsEmptyScene(t *testing.T) {
	idx := NewSpatialIndex()
	assert.ErrorIs(t, idx.Build(&common.SplatData{}), common.ErrEmptyScene)
	assert.Empty(t, idx.LeafBuckets())
}

func TestLeafBucketSize(t *testing.T) {
	b := &LeafBucket{Min: [3]float32{0, 0, 0}, Max: [3]float32{3, 4, 0}}
	assert.InDelta(t, 5, b.Size(), 1e-6)
}
