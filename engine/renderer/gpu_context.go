package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/engine/logger"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/splat_buffers"
	"github.com/cogentcore/webgpu/wgpu"
)

// gpuContextImpl is the implementation of the GPUContext interface.
type gpuContextImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	deviceLabel          string

	buffers []splat_buffers.WGPUSplatBuffers
}

// GPUContext owns a headless WebGPU device and the splat storage buffers created on it.
// No surface is created; presenting the buffers is left to whatever pipeline binds them.
type GPUContext interface {
	// Device returns the WebGPU device.
	Device() *wgpu.Device

	// Queue returns the device's queue.
	Queue() *wgpu.Queue

	// NewSplatBuffers creates storage buffers sized for splatCount splats. The buffers are
	// released with the context.
	//
	// Parameters:
	//   - splatCount: the scene's splat count
	//
	// Returns:
	//   - splat_buffers.WGPUSplatBuffers: the new buffers
	//   - error: error if buffer creation fails
	NewSplatBuffers(splatCount int) (splat_buffers.WGPUSplatBuffers, error)

	// Release frees every buffer created through the context, then the device.
	Release()
}

var _ GPUContext = &gpuContextImpl{}

// NewGPUContext requests an adapter and device. Unlike an on-screen renderer, failure is
// reported as an error so callers can fall back to host-memory buffers.
//
// Parameters:
//   - options: functional options to configure the context
//
// Returns:
//   - GPUContext: the new context
//   - error: error if no adapter or device is available
func NewGPUContext(options ...GPUContextBuilderOption) (GPUContext, error) {
	g := &gpuContextImpl{
		mu:          &sync.Mutex{},
		deviceLabel: "Splat Device",
	}
	for _, option := range options {
		option(g)
	}

	g.instance = wgpu.CreateInstance(nil)
	a, err := g.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: g.forceFallbackAdapter,
	})
	if err != nil {
		g.instance.Release()
		return nil, fmt.Errorf("gpu context: request adapter: %w", err)
	}
	g.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: g.deviceLabel,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		g.adapter.Release()
		g.instance.Release()
		return nil, fmt.Errorf("gpu context: request device: %w", err)
	}
	g.device = d
	g.queue = d.GetQueue()

	logger.Logger().Info("gpu context ready", "device", g.deviceLabel, "fallback", g.forceFallbackAdapter)
	return g, nil
}

func (g *gpuContextImpl) Device() *wgpu.Device {
	return g.device
}

func (g *gpuContextImpl) Queue() *wgpu.Queue {
	return g.queue
}

func (g *gpuContextImpl) NewSplatBuffers(splatCount int) (splat_buffers.WGPUSplatBuffers, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.device == nil {
		return nil, fmt.Errorf("gpu context: released")
	}

	b, err := splat_buffers.NewWGPUSplatBuffers(g.device, g.queue, splatCount)
	if err != nil {
		return nil, err
	}
	g.buffers = append(g.buffers, b)
	return b, nil
}

func (g *gpuContextImpl) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.device == nil {
		return
	}

	for _, b := range g.buffers {
		b.Release()
	}
	g.buffers = nil

	g.device.Release()
	g.adapter.Release()
	g.instance.Release()
	g.queue, g.device, g.adapter, g.instance = nil, nil, nil, nil
}
