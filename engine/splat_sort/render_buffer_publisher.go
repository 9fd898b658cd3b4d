package splat_sort

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/splat_buffers"
)

type renderBufferPublisherImpl struct {
	mu *sync.Mutex

	buffers splat_buffers.SplatBuffers

	hasStatic         bool
	staticFingerprint uint64

	renderCount int
}

// RenderBufferPublisher writes finished draw orders and static splat attributes into the
// GPU-facing buffers. Publishes are serialized, so it is safe to call from a job completion
// handler.
type RenderBufferPublisher interface {
	// PublishStatic uploads packed colors and precomputed covariances. Data with the same
	// fingerprint as the last upload is skipped, so this runs once per scene load.
	//
	// Parameters:
	//   - data: the scene's splat arrays
	//
	// Returns:
	//   - error: error if the upload fails
	PublishStatic(data *common.SplatData) error

	// Publish writes order[:renderCount] as the draw order and sets the active instance count
	// to renderCount. renderCount is clamped to [0, len(order)].
	//
	// Parameters:
	//   - order: the draw-order index array
	//   - renderCount: number of splats to draw
	//
	// Returns:
	//   - error: error if the index upload fails; the instance count is left unchanged
	Publish(order []uint32, renderCount int) error

	// RenderCount returns the instance count set by the last successful Publish.
	RenderCount() int

	// Reset forgets the static upload so the next PublishStatic always uploads.
	Reset()
}

var _ RenderBufferPublisher = &renderBufferPublisherImpl{}

// NewRenderBufferPublisher creates a publisher targeting the given buffers.
// Panics if buffers is nil.
//
// Parameters:
//   - buffers: the GPU-facing buffers to write
//
// Returns:
//   - RenderBufferPublisher: the new publisher
func NewRenderBufferPublisher(buffers splat_buffers.SplatBuffers) RenderBufferPublisher {
	if buffers == nil {
		panic("splat_sort: NewRenderBufferPublisher requires non-nil SplatBuffers")
	}
	return &renderBufferPublisherImpl{
		mu:      &sync.Mutex{},
		buffers: buffers,
	}
}

func (p *renderBufferPublisherImpl) PublishStatic(data *common.SplatData) error {
	fingerprint := data.Fingerprint()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasStatic && p.staticFingerprint == fingerprint {
		return nil
	}

	colors := splat_buffers.PackColors(data.Colors)
	covariances := splat_buffers.ComputeCovariances(data.Scales, data.Rotations)
	if err := p.buffers.WriteAttributes(common.SliceToBytes(colors), common.SliceToBytes(covariances)); err != nil {
		return fmt.Errorf("publish static attributes: %w", err)
	}
	p.hasStatic = true
	p.staticFingerprint = fingerprint
	return nil
}

func (p *renderBufferPublisherImpl) Publish(order []uint32, renderCount int) error {
	renderCount = common.Clamp(renderCount, 0, len(order))

	p.mu.Lock()
	defer p.mu.Unlock()
	if renderCount > 0 {
		if err := p.buffers.WriteIndices(0, common.SliceToBytes(order[:renderCount])); err != nil {
			return fmt.Errorf("publish draw order: %w", err)
		}
	}
	p.buffers.SetInstanceCount(uint32(renderCount))
	p.renderCount = renderCount
	return nil
}

func (p *renderBufferPublisherImpl) RenderCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renderCount
}

func (p *renderBufferPublisherImpl) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasStatic = false
	p.staticFingerprint = 0
}
