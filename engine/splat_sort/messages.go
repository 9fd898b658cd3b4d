package splat_sort

import (
	"errors"
	"time"
)

// ErrExecutorBusy is returned by SortExecutor.Send when the executor cannot accept a message
// without blocking.
var ErrExecutorBusy = errors.New("sort executor busy")

// ErrExecutorClosed is returned by SortExecutor.Send after the executor has shut down.
var ErrExecutorClosed = errors.New("sort executor closed")

// IndexBuffers is the in/out index buffer pair, both sized to the scene's splat count.
// Whoever holds the pointer owns both slices: the scheduler while Idle, the job message
// while InFlight. In is filled by the node orderer, Out by the sort executor.
type IndexBuffers struct {
	In  []uint32
	Out []uint32
}

// NewIndexBuffers allocates a buffer pair for n splats with In seeded to the identity
// permutation.
//
// Parameters:
//   - n: the scene's splat count
//
// Returns:
//   - *IndexBuffers: the new buffer pair
func NewIndexBuffers(n int) *IndexBuffers {
	b := &IndexBuffers{
		In:  make([]uint32, n),
		Out: make([]uint32, n),
	}
	for i := range b.In {
		b.In[i] = uint32(i)
	}
	return b
}

// SchedulerMessage is a message sent from the scheduler to the sort executor. Concrete types
// are InitMessage, PositionsMessage, and SortJob.
type SchedulerMessage interface {
	schedulerMessage()
}

// InitMessage starts the setup handshake for a newly loaded scene.
type InitMessage struct {
	SplatCount int
}

// PositionsMessage delivers the static splat centers, 3 floats per splat. It is sent once per
// scene load. The executor may read but never modify Positions.
type PositionsMessage struct {
	Positions []float32
}

// SortJob asks the executor to order the packed candidate indices in Buffers.In. The first
// FineSortCount entries need per-splat ordering; the rest keep their packed order.
type SortJob struct {
	ID             uint64
	ViewMatrix     [16]float32
	CameraPosition [3]float32
	TotalCount     int
	FineSortCount  int
	Buffers        *IndexBuffers
}

func (InitMessage) schedulerMessage()      {}
func (PositionsMessage) schedulerMessage() {}
func (SortJob) schedulerMessage()          {}

// ExecutorMessage is a message sent from the sort executor to the scheduler. Concrete types
// are SetupPhase1Complete, SetupComplete, SortDone, and SortCanceled.
type ExecutorMessage interface {
	executorMessage()
}

// SetupPhase1Complete tells the scheduler the executor is ready to receive positions.
type SetupPhase1Complete struct{}

// SetupComplete tells the scheduler the executor holds the positions and accepts jobs.
type SetupComplete struct{}

// SortDone returns buffer ownership with Buffers.Out[:RenderCount] holding the draw order.
type SortDone struct {
	JobID       uint64
	Buffers     *IndexBuffers
	RenderCount int
	Elapsed     time.Duration
}

// SortCanceled returns buffer ownership for a job the executor aborted. Nothing is published.
type SortCanceled struct {
	JobID   uint64
	Buffers *IndexBuffers
}

func (SetupPhase1Complete) executorMessage() {}
func (SetupComplete) executorMessage()       {}
func (SortDone) executorMessage()            {}
func (SortCanceled) executorMessage()        {}

// SortExecutor is the asynchronous channel pair between the scheduler and whatever computes
// the draw order.
type SortExecutor interface {
	// Send delivers a message to the executor without blocking.
	//
	// Parameters:
	//   - msg: the message to deliver
	//
	// Returns:
	//   - error: ErrExecutorBusy or ErrExecutorClosed if the message was not accepted
	Send(msg SchedulerMessage) error

	// Messages returns the channel on which the executor publishes replies.
	//
	// Returns:
	//   - <-chan ExecutorMessage: the reply channel
	Messages() <-chan ExecutorMessage
}
