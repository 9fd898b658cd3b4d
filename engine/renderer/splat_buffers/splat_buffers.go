package splat_buffers

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// SplatBuffers is the GPU-facing destination of the splat draw order and the static per-splat
// attributes. The rasterization pipeline reads the index buffer to decide draw order and
// draws InstanceCount instances.
type SplatBuffers interface {
	// WriteIndices writes draw-order index bytes at the given byte offset of the index buffer.
	//
	// Parameters:
	//   - offset: destination byte offset
	//   - data: little-endian uint32 splat indices
	//
	// Returns:
	//   - error: error if the write does not fit the buffer
	WriteIndices(offset uint64, data []byte) error

	// WriteAttributes uploads the static per-splat attributes.
	//
	// Parameters:
	//   - colors: packed RGBA8 colors, 4 bytes per splat
	//   - covariances: 3D covariance upper triangles, 24 bytes per splat
	//
	// Returns:
	//   - error: error if the data does not fit the buffers
	WriteAttributes(colors, covariances []byte) error

	// SetInstanceCount sets the number of splats the next draw call renders.
	//
	// Parameters:
	//   - n: the active instance count
	SetInstanceCount(n uint32)

	// InstanceCount returns the active instance count.
	//
	// Returns:
	//   - uint32: the number of splats drawn
	InstanceCount() uint32

	// Release frees any resources held by the buffers.
	Release()
}

// memorySplatBuffers keeps CPU-side copies of everything written. It backs headless runs and
// tests, and mirrors what a GPU implementation would hold.
type memorySplatBuffers struct {
	mu *sync.Mutex

	indices       []byte
	colors        []byte
	covariances   []byte
	instanceCount uint32

	indexWrites     int
	attributeWrites int
}

// MemorySplatBuffers is a SplatBuffers held in host memory with read-back accessors.
type MemorySplatBuffers interface {
	SplatBuffers

	// Indices returns a copy of the first n uint32 indices in the index buffer.
	//
	// Parameters:
	//   - n: number of indices to read
	//
	// Returns:
	//   - []uint32: the indices
	Indices(n int) []uint32

	// Colors returns a copy of the packed color bytes.
	Colors() []byte

	// Covariances returns a copy of the covariance bytes.
	Covariances() []byte

	// IndexWrites returns how many times WriteIndices has been called.
	IndexWrites() int

	// AttributeWrites returns how many times WriteAttributes has been called.
	AttributeWrites() int
}

var _ MemorySplatBuffers = &memorySplatBuffers{}

// NewMemorySplatBuffers creates an empty host-memory SplatBuffers. The index buffer grows
// to fit any write.
//
// Returns:
//   - MemorySplatBuffers: the new buffers
func NewMemorySplatBuffers() MemorySplatBuffers {
	return &memorySplatBuffers{mu: &sync.Mutex{}}
}

func (m *memorySplatBuffers) WriteIndices(offset uint64, data []byte) error {
	if len(data)%4 != 0 {
		return fmt.Errorf("splat buffers: index data length %d is not a multiple of 4", len(data))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	end := int(offset) + len(data)
	if end > len(m.indices) {
		grown := make([]byte, end)
		copy(grown, m.indices)
		m.indices = grown
	}
	copy(m.indices[offset:], data)
	m.indexWrites++
	return nil
}

func (m *memorySplatBuffers) WriteAttributes(colors, covariances []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.colors = append(m.colors[:0], colors...)
	m.covariances = append(m.covariances[:0], covariances...)
	m.attributeWrites++
	return nil
}

func (m *memorySplatBuffers) SetInstanceCount(n uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instanceCount = n
}

func (m *memorySplatBuffers) InstanceCount() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instanceCount
}

func (m *memorySplatBuffers) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indices, m.colors, m.covariances = nil, nil, nil
	m.instanceCount = 0
}

func (m *memorySplatBuffers) Indices(n int) []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	n = min(n, len(m.indices)/4)
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(m.indices[i*4:])
	}
	return out
}

func (m *memorySplatBuffers) Colors() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.colors...)
}

func (m *memorySplatBuffers) Covariances() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.covariances...)
}

func (m *memorySplatBuffers) IndexWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexWrites
}

func (m *memorySplatBuffers) AttributeWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attributeWrites
}
