package sort_executor

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-splat/common"
)

// DefaultDepthBins is the number of quantized depth buckets used by the counting sort.
const DefaultDepthBins = 1 << 16

var errIndexOutOfRange = errors.New("splat index out of range")

// depthSorter orders splat indices by camera-space depth with a counting sort over quantized
// depths. Scratch slices grow to the largest job seen and are reused; a sorter must only be
// used by one job at a time.
type depthSorter struct {
	bins int

	depths []float32
	keys   []uint32
	counts []uint32
	sorted []uint32
}

func newDepthSorter(bins int) *depthSorter {
	return &depthSorter{
		bins:   bins,
		counts: make([]uint32, bins),
	}
}

// sort refines in[:fine] nearest-first, keeps in[fine:total] in packed order, and writes the
// whole refined sequence to out[:total] reversed, farthest first. The context is checked
// between phases so a canceled job stops without writing out.
func (s *depthSorter) sort(ctx context.Context, view [16]float32, positions []float32, in, out []uint32, total, fine int) error {
	s.depths = grow(s.depths, fine)
	s.keys = grow(s.keys, fine)
	s.sorted = grow(s.sorted, fine)

	minDepth, maxDepth := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for i, idx := range in[:fine] {
		p := int(idx) * 3
		if p+2 >= len(positions) {
			return fmt.Errorf("depth sort: index %d: %w", idx, errIndexOutOfRange)
		}
		d := common.ViewDepth(view[:], positions[p], positions[p+1], positions[p+2])
		s.depths[i] = d
		minDepth = min(minDepth, d)
		maxDepth = max(maxDepth, d)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if fine > 0 {
		clear(s.counts)
		scale := float32(0)
		if maxDepth > minDepth {
			scale = float32(s.bins-1) / (maxDepth - minDepth)
		}
		for i, d := range s.depths[:fine] {
			k := min(uint32((d-minDepth)*scale), uint32(s.bins-1))
			s.keys[i] = k
			s.counts[k]++
		}

		// Exclusive prefix sum turns counts into first slots.
		var sum uint32
		for i, c := range s.counts {
			s.counts[i] = sum
			sum += c
		}
		for i, idx := range in[:fine] {
			k := s.keys[i]
			s.sorted[s.counts[k]] = idx
			s.counts[k]++
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	last := total - 1
	for i, idx := range s.sorted[:fine] {
		out[last-i] = idx
	}
	for i := fine; i < total; i++ {
		out[last-i] = in[i]
	}
	return nil
}

func grow[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}
