package sort_executor

import (
	"context"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/logger"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat_sort"
)

const (
	defaultInboxSize  = 4
	defaultOutboxSize = 8
)

type sortExecutorImpl struct {
	mu *sync.Mutex

	inbox  chan splat_sort.SchedulerMessage
	outbox chan splat_sort.ExecutorMessage
	done   chan struct{}
	closed sync.Once

	inboxSize int
	depthBins int

	// pool runs sort jobs on a single reusable worker so the loop stays responsive.
	pool   worker.DynamicWorkerPool
	sorter *depthSorter

	splatCount int
	positions  []float32

	cancelJob context.CancelFunc
	taskID    int
}

// SortExecutor is the reference asynchronous sort executor. Run drives the message loop;
// sorting happens off the loop on a worker pool, so the loop keeps accepting messages while
// a job is running.
type SortExecutor interface {
	splat_sort.SortExecutor

	// Run processes messages until ctx is canceled or Close is called.
	//
	// Parameters:
	//   - ctx: the context bounding the loop and every job it starts
	//
	// Returns:
	//   - error: ctx.Err() if ctx ended the loop, nil after Close
	Run(ctx context.Context) error

	// CancelInFlight aborts the running job, if any. The job replies SortCanceled.
	CancelInFlight()

	// Close stops the loop and cancels the running job. Pending replies are discarded and
	// later sends fail with ErrExecutorClosed.
	Close()
}

var _ SortExecutor = &sortExecutorImpl{}

// NewSortExecutor creates an executor. Call Run in its own goroutine to start it.
//
// Parameters:
//   - options: functional options to configure the executor
//
// Returns:
//   - SortExecutor: the new executor
func NewSortExecutor(options ...SortExecutorBuilderOption) SortExecutor {
	e := &sortExecutorImpl{
		mu:        &sync.Mutex{},
		done:      make(chan struct{}),
		inboxSize: defaultInboxSize,
		depthBins: DefaultDepthBins,
	}
	for _, option := range options {
		option(e)
	}

	e.inbox = make(chan splat_sort.SchedulerMessage, e.inboxSize)
	e.outbox = make(chan splat_sort.ExecutorMessage, defaultOutboxSize)
	e.pool = worker.NewDynamicWorkerPool(1, 4, 1*time.Second)
	e.sorter = newDepthSorter(e.depthBins)
	return e
}

func (e *sortExecutorImpl) Send(msg splat_sort.SchedulerMessage) error {
	select {
	case <-e.done:
		return splat_sort.ErrExecutorClosed
	default:
	}

	select {
	case e.inbox <- msg:
		return nil
	default:
		return splat_sort.ErrExecutorBusy
	}
}

func (e *sortExecutorImpl) Messages() <-chan splat_sort.ExecutorMessage {
	return e.outbox
}

func (e *sortExecutorImpl) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			e.Close()
			return ctx.Err()
		case <-e.done:
			return nil
		case msg := <-e.inbox:
			e.handle(ctx, msg)
		}
	}
}

func (e *sortExecutorImpl) CancelInFlight() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelJob != nil {
		e.cancelJob()
	}
}

func (e *sortExecutorImpl) Close() {
	e.closed.Do(func() {
		close(e.done)
		e.CancelInFlight()
	})
}

func (e *sortExecutorImpl) handle(ctx context.Context, msg splat_sort.SchedulerMessage) {
	switch m := msg.(type) {
	case splat_sort.InitMessage:
		e.CancelInFlight()
		e.mu.Lock()
		e.splatCount = m.SplatCount
		e.positions = nil
		e.mu.Unlock()
		e.reply(splat_sort.SetupPhase1Complete{})
	case splat_sort.PositionsMessage:
		e.mu.Lock()
		if len(m.Positions) != e.splatCount*3 {
			logger.Logger().Warn("sort executor: positions do not match splat count", "floats", len(m.Positions), "splats", e.splatCount)
		}
		e.positions = m.Positions
		e.mu.Unlock()
		e.reply(splat_sort.SetupComplete{})
	case splat_sort.SortJob:
		e.startJob(ctx, m)
	default:
		logger.Logger().Warn("sort executor: unknown scheduler message", "message", msg)
	}
}

// startJob hands a job to the pool. A job that cannot run is answered with SortCanceled so
// buffer ownership always returns to the scheduler.
func (e *sortExecutorImpl) startJob(ctx context.Context, job splat_sort.SortJob) {
	e.mu.Lock()
	if e.positions == nil || job.Buffers == nil || e.cancelJob != nil {
		busy := e.cancelJob != nil
		e.mu.Unlock()
		logger.Logger().Warn("sort executor: rejecting job", "job", job.ID, "busy", busy)
		e.reply(splat_sort.SortCanceled{JobID: job.ID, Buffers: job.Buffers})
		return
	}

	jobCtx, cancel := context.WithCancel(ctx)
	e.cancelJob = cancel
	positions := e.positions
	e.taskID++
	id := e.taskID
	e.mu.Unlock()

	total := common.Clamp(job.TotalCount, 0, min(len(job.Buffers.In), len(job.Buffers.Out)))
	fine := common.Clamp(job.FineSortCount, 0, total)

	e.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			start := time.Now()
			err := e.sorter.sort(jobCtx, job.ViewMatrix, positions, job.Buffers.In, job.Buffers.Out, total, fine)

			e.mu.Lock()
			e.cancelJob = nil
			e.mu.Unlock()
			cancel()

			if err != nil {
				logger.Logger().Debug("sort executor: job canceled", "job", job.ID, "error", err)
				e.reply(splat_sort.SortCanceled{JobID: job.ID, Buffers: job.Buffers})
				return nil, err
			}
			e.reply(splat_sort.SortDone{
				JobID:       job.ID,
				Buffers:     job.Buffers,
				RenderCount: total,
				Elapsed:     time.Since(start),
			})
			return nil, nil
		},
	})
}

func (e *sortExecutorImpl) reply(msg splat_sort.ExecutorMessage) {
	select {
	case e.outbox <- msg:
	case <-e.done:
	}
}
