package renderer

// GPUContextBuilderOption is a functional option applied to a GPU context during construction via NewGPUContext.
type GPUContextBuilderOption func(*gpuContextImpl)

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - GPUContextBuilderOption: a function that applies the option to a context
func WithForceSoftwareRenderer(force bool) GPUContextBuilderOption {
	return func(g *gpuContextImpl) {
		g.forceFallbackAdapter = force
	}
}

// WithDeviceLabel sets the debug label of the requested device.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - GPUContextBuilderOption: a function that applies the option to a context
func WithDeviceLabel(label string) GPUContextBuilderOption {
	return func(g *gpuContextImpl) {
		if label != "" {
			g.deviceLabel = label
		}
	}
}
