package splat_buffers

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Byte sizes of one splat's entry in each GPU buffer.
const (
	IndexStride      = 4
	ColorStride      = 4
	CovarianceStride = 6 * 4
)

// wgpuSplatBuffers owns the storage buffers read by the splat vertex shader.
type wgpuSplatBuffers struct {
	mu *sync.Mutex

	queue *wgpu.Queue

	indexBuffer      *wgpu.Buffer
	colorBuffer      *wgpu.Buffer
	covarianceBuffer *wgpu.Buffer

	splatCount    int
	instanceCount uint32
}

// WGPUSplatBuffers is a SplatBuffers backed by WebGPU storage buffers.
type WGPUSplatBuffers interface {
	SplatBuffers

	// IndexBuffer returns the draw-order index storage buffer.
	IndexBuffer() *wgpu.Buffer

	// ColorBuffer returns the packed color storage buffer.
	ColorBuffer() *wgpu.Buffer

	// CovarianceBuffer returns the covariance storage buffer.
	CovarianceBuffer() *wgpu.Buffer
}

var _ WGPUSplatBuffers = &wgpuSplatBuffers{}

// NewWGPUSplatBuffers creates the index, color, and covariance storage buffers sized for
// splatCount splats.
//
// Parameters:
//   - device: the device that allocates the buffers
//   - queue: the queue used for buffer writes
//   - splatCount: number of splats in the scene
//
// Returns:
//   - WGPUSplatBuffers: the allocated buffers
//   - error: error if any buffer allocation fails
func NewWGPUSplatBuffers(device *wgpu.Device, queue *wgpu.Queue, splatCount int) (WGPUSplatBuffers, error) {
	if splatCount <= 0 {
		return nil, fmt.Errorf("splat buffers: splat count must be positive, got %d", splatCount)
	}

	b := &wgpuSplatBuffers{
		mu:         &sync.Mutex{},
		queue:      queue,
		splatCount: splatCount,
	}

	create := func(label string, stride int) (*wgpu.Buffer, error) {
		return device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            label,
			Size:             uint64(splatCount * stride),
			Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
	}

	var err error
	if b.indexBuffer, err = create("Splat Index Buffer", IndexStride); err != nil {
		return nil, fmt.Errorf("splat buffers: create index buffer: %w", err)
	}
	if b.colorBuffer, err = create("Splat Color Buffer", ColorStride); err != nil {
		b.Release()
		return nil, fmt.Errorf("splat buffers: create color buffer: %w", err)
	}
	if b.covarianceBuffer, err = create("Splat Covariance Buffer", CovarianceStride); err != nil {
		b.Release()
		return nil, fmt.Errorf("splat buffers: create covariance buffer: %w", err)
	}

	return b, nil
}

func (b *wgpuSplatBuffers) WriteIndices(offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if offset+uint64(len(data)) > uint64(b.splatCount*IndexStride) {
		return fmt.Errorf("splat buffers: index write of %d bytes at %d overflows buffer", len(data), offset)
	}
	if len(data) == 0 {
		return nil
	}
	b.queue.WriteBuffer(b.indexBuffer, offset, data)
	return nil
}

func (b *wgpuSplatBuffers) WriteAttributes(colors, covariances []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(colors) > b.splatCount*ColorStride || len(covariances) > b.splatCount*CovarianceStride {
		return fmt.Errorf("splat buffers: attribute data exceeds %d splats", b.splatCount)
	}
	if len(colors) > 0 {
		b.queue.WriteBuffer(b.colorBuffer, 0, colors)
	}
	if len(covariances) > 0 {
		b.queue.WriteBuffer(b.covarianceBuffer, 0, covariances)
	}
	return nil
}

func (b *wgpuSplatBuffers) SetInstanceCount(n uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.instanceCount = n
}

func (b *wgpuSplatBuffers) InstanceCount() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.instanceCount
}

func (b *wgpuSplatBuffers) IndexBuffer() *wgpu.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.indexBuffer
}

func (b *wgpuSplatBuffers) ColorBuffer() *wgpu.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.colorBuffer
}

func (b *wgpuSplatBuffers) CovarianceBuffer() *wgpu.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.covarianceBuffer
}

func (b *wgpuSplatBuffers) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, buf := range []**wgpu.Buffer{&b.indexBuffer, &b.colorBuffer, &b.covarianceBuffer} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
	b.instanceCount = 0
}
