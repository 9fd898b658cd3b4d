package sort_executor

// SortExecutorBuilderOption is a functional option for configuring a SortExecutor.
type SortExecutorBuilderOption func(*sortExecutorImpl)

// WithInboxSize sets how many messages Send can queue before reporting ErrExecutorBusy.
// Values below 1 are ignored.
//
// Parameters:
//   - n: the inbox capacity
//
// Returns:
//   - SortExecutorBuilderOption: option function to apply
func WithInboxSize(n int) SortExecutorBuilderOption {
	return func(e *sortExecutorImpl) {
		if n > 0 {
			e.inboxSize = n
		}
	}
}

// WithDepthBins sets the depth quantization of the counting sort. Values below 2 are ignored.
//
// Parameters:
//   - n: the number of depth bins
//
// Returns:
//   - SortExecutorBuilderOption: option function to apply
func WithDepthBins(n int) SortExecutorBuilderOption {
	return func(e *sortExecutorImpl) {
		if n > 1 {
			e.depthBins = n
		}
	}
}
