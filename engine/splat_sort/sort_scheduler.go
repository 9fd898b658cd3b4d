package splat_sort

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/logger"
	"github.com/Carmen-Shannon/oxy-splat/engine/profiler"
	"github.com/Carmen-Shannon/oxy-splat/engine/spatial_index"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrNotStarted is returned when a scheduler operation needs a scene and none was started.
var ErrNotStarted = errors.New("sort scheduler has no scene")

// JobState is the scheduler's job state. Exactly one sort job may be in flight.
type JobState int

const (
	// JobStateIdle means the scheduler owns the index buffers and may submit a job.
	JobStateIdle JobState = iota

	// JobStateInFlight means a job owns the index buffers; new requests are dropped.
	JobStateInFlight
)

// String returns the state name.
func (s JobState) String() string {
	switch s {
	case JobStateIdle:
		return "idle"
	case JobStateInFlight:
		return "in_flight"
	default:
		return fmt.Sprintf("JobState(%d)", int(s))
	}
}

// SchedulerStats counts scheduler activity since the last Start.
type SchedulerStats struct {
	Submitted uint64
	Dropped   uint64
	Completed uint64
	Canceled  uint64

	LastTotalCount    int
	LastFineSortCount int
	LastRenderCount   int
}

type sortSchedulerImpl struct {
	mu *sync.Mutex

	executor  SortExecutor
	publisher RenderBufferPublisher
	config    Config
	detector  *ViewChangeDetector
	culler    *VisibilityCuller
	orderer   *NodeOrderer
	metrics   *schedulerMetrics
	profiler  *profiler.Profiler
	registry  prometheus.Registerer

	data    *common.SplatData
	index   spatial_index.SpatialIndex
	sceneID uuid.UUID

	state            JobState
	buffers          *IndexBuffers
	candidates       []*spatial_index.LeafBucket
	positionsPending bool // phase 1 acknowledged, positions not yet accepted by the executor
	positionsSent    bool
	ready            bool

	forcePending     bool
	gatherAllPending bool

	nextJobID   uint64
	inFlightID  uint64
	submittedAt time.Time

	stats SchedulerStats
}

// SortScheduler owns the handshake with a SortExecutor: buffer allocation and ownership,
// job submission, in-flight tracking, and publication of finished orders. All methods are
// safe for concurrent use, but the intended discipline is a single frame-driving goroutine
// calling Update, which is also where executor replies are consumed.
type SortScheduler interface {
	// Start begins the setup handshake for a scene whose spatial index is already built.
	// Any job still in flight for a previous scene is abandoned and its reply ignored.
	// If the init message cannot be sent, the previous scene stays in effect untouched.
	//
	// Parameters:
	//   - data: the scene's splat arrays
	//   - index: the scene's built spatial index
	//
	// Returns:
	//   - error: error if the data is empty or the init message cannot be sent
	Start(data *common.SplatData, index spatial_index.SpatialIndex) error

	// Update is the per-frame entry point. It consumes every pending executor reply without
	// blocking, then requests a sort if the view changed enough or a resort was forced.
	//
	// Parameters:
	//   - view: the current camera view
	//   - force: bypass the view change thresholds this frame
	//
	// Returns:
	//   - bool: true if a sort job was submitted this frame
	Update(view View, force bool) bool

	// RequestSort culls, orders, and packs the candidate buckets and submits a sort job. It is
	// a no-op returning false while a job is in flight or before setup completes.
	//
	// Parameters:
	//   - view: the camera view to sort for
	//   - gatherAllNodes: disable culling for this pass
	//
	// Returns:
	//   - bool: true if a job was submitted
	RequestSort(view View, gatherAllNodes bool) bool

	// HandleMessage applies one executor reply.
	//
	// Parameters:
	//   - msg: the reply to apply
	HandleMessage(msg ExecutorMessage)

	// ForceResort makes the next Update submit a sort regardless of camera motion.
	ForceResort()

	// State returns the current job state.
	State() JobState

	// Ready reports whether setup has completed for the current scene.
	Ready() bool

	// SceneID returns the identifier assigned by the last Start, or uuid.Nil.
	SceneID() uuid.UUID

	// Stats returns the activity counters for the current scene.
	Stats() SchedulerStats

	// Config returns the sort policy in effect.
	Config() Config
}

var _ SortScheduler = &sortSchedulerImpl{}

// NewSortScheduler creates an idle scheduler bound to an executor and a publisher.
// Panics if either is nil.
//
// Parameters:
//   - executor: the asynchronous sort executor
//   - publisher: the publisher for finished draw orders
//   - options: functional options to configure the scheduler
//
// Returns:
//   - SortScheduler: the new scheduler
func NewSortScheduler(executor SortExecutor, publisher RenderBufferPublisher, options ...SortSchedulerBuilderOption) SortScheduler {
	if executor == nil {
		panic("splat_sort: NewSortScheduler requires a non-nil SortExecutor")
	}
	if publisher == nil {
		panic("splat_sort: NewSortScheduler requires a non-nil RenderBufferPublisher")
	}

	s := &sortSchedulerImpl{
		mu:        &sync.Mutex{},
		executor:  executor,
		publisher: publisher,
		config:    DefaultConfig(),
	}
	for _, option := range options {
		option(s)
	}

	s.detector = NewViewChangeDetector(s.config)
	s.culler = NewVisibilityCuller(s.config)
	s.orderer = NewNodeOrderer(s.config)
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newSchedulerMetrics(s.registry)
	return s
}

func (s *sortSchedulerImpl) Start(data *common.SplatData, index spatial_index.SpatialIndex) error {
	if index == nil {
		return fmt.Errorf("sort scheduler: %w", ErrNotStarted)
	}
	if err := data.Validate(); err != nil {
		return fmt.Errorf("sort scheduler: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.executor.Send(InitMessage{SplatCount: data.Count()}); err != nil {
		return fmt.Errorf("sort scheduler: send init: %w", err)
	}

	s.data = data
	s.index = index
	s.sceneID = uuid.New()
	s.state = JobStateIdle
	s.buffers = nil
	s.candidates = s.candidates[:0]
	s.positionsPending = false
	s.positionsSent = false
	s.ready = false
	s.forcePending = false
	s.gatherAllPending = false
	s.inFlightID = 0
	s.stats = SchedulerStats{}
	s.detector.Reset()
	s.publisher.Reset()

	logger.Logger().Info("sort scheduler starting", "scene", s.sceneID, "splats", data.Count(), "buckets", len(index.LeafBuckets()))
	return nil
}

func (s *sortSchedulerImpl) Update(view View, force bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drainLocked()
	if !s.ready {
		if s.positionsPending {
			s.sendPositionsLocked()
		}
		return false
	}
	if !s.detector.ShouldResort(view.Position, view.Forward, force || s.forcePending) {
		return false
	}
	return s.requestSortLocked(view, s.gatherAllPending)
}

func (s *sortSchedulerImpl) RequestSort(view View, gatherAllNodes bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestSortLocked(view, gatherAllNodes)
}

func (s *sortSchedulerImpl) HandleMessage(msg ExecutorMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handleLocked(msg)
}

func (s *sortSchedulerImpl) ForceResort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forcePending = true
}

func (s *sortSchedulerImpl) State() JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *sortSchedulerImpl) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *sortSchedulerImpl) SceneID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneID
}

func (s *sortSchedulerImpl) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *sortSchedulerImpl) Config() Config {
	return s.config
}

// drainLocked applies every reply already waiting on the executor channel.
// Caller must hold the mutex.
func (s *sortSchedulerImpl) drainLocked() {
	for {
		select {
		case msg := <-s.executor.Messages():
			s.handleLocked(msg)
		default:
			return
		}
	}
}

// requestSortLocked refills the in-buffer and submits a job if the scheduler is idle and ready.
// Caller must hold the mutex.
func (s *sortSchedulerImpl) requestSortLocked(view View, gatherAllNodes bool) bool {
	if s.state == JobStateInFlight {
		s.stats.Dropped++
		s.metrics.jobs.WithLabelValues(outcomeDropped).Inc()
		return false
	}
	if !s.ready || s.buffers == nil {
		return false
	}

	var total int
	s.candidates, total = s.culler.Cull(s.index.LeafBuckets(), view, gatherAllNodes, s.candidates)
	s.orderer.Order(s.candidates)
	packed, fine, err := s.orderer.Pack(s.candidates, s.buffers.In)
	if err != nil {
		logger.Logger().Warn("sort scheduler: pack failed", "scene", s.sceneID, "candidates", total, "capacity", len(s.buffers.In), "error", err)
		return false
	}

	buffers := s.buffers
	job := SortJob{
		ID:             s.nextJobID + 1,
		ViewMatrix:     view.ViewMatrix,
		CameraPosition: view.Position,
		TotalCount:     packed,
		FineSortCount:  fine,
		Buffers:        buffers,
	}

	// Ownership moves with the job; the scheduler keeps no reference while in flight.
	s.buffers = nil
	s.state = JobStateInFlight
	if err := s.executor.Send(job); err != nil {
		s.buffers = buffers
		s.state = JobStateIdle
		logger.Logger().Warn("sort scheduler: submit failed", "scene", s.sceneID, "job", job.ID, "error", err)
		return false
	}

	s.nextJobID = job.ID
	s.inFlightID = job.ID
	s.submittedAt = time.Now()
	s.detector.Record(view.Position, view.Forward)
	s.forcePending = false
	s.gatherAllPending = false

	s.stats.Submitted++
	s.stats.LastTotalCount = packed
	s.stats.LastFineSortCount = fine
	s.metrics.jobs.WithLabelValues(outcomeSubmitted).Inc()

	logger.Logger().Debug("sort job submitted", "scene", s.sceneID, "job", job.ID, "candidates", len(s.candidates), "total", packed, "fine", fine, "gather_all", gatherAllNodes)
	return true
}

// handleLocked dispatches one executor reply. Caller must hold the mutex.
func (s *sortSchedulerImpl) handleLocked(msg ExecutorMessage) {
	switch m := msg.(type) {
	case SetupPhase1Complete:
		s.onSetupPhase1()
	case SetupComplete:
		s.onSetupComplete()
	case SortDone:
		s.onSortDone(m)
	case SortCanceled:
		s.onSortCanceled(m)
	default:
		logger.Logger().Warn("sort scheduler: unknown executor message", "type", fmt.Sprintf("%T", msg))
	}
}

// onSetupPhase1 allocates the buffer pair and sends positions, once per scene load.
func (s *sortSchedulerImpl) onSetupPhase1() {
	if s.data == nil || s.positionsPending || s.positionsSent {
		logger.Logger().Warn("sort scheduler: unexpected setup phase 1 reply", "scene", s.sceneID)
		return
	}

	s.buffers = NewIndexBuffers(s.data.Count())
	s.positionsPending = true
	s.sendPositionsLocked()
}

// sendPositionsLocked sends the scene positions. A failed send stays pending and is retried
// by the next Update. Caller must hold the mutex.
func (s *sortSchedulerImpl) sendPositionsLocked() {
	if err := s.executor.Send(PositionsMessage{Positions: s.data.Positions}); err != nil {
		logger.Logger().Warn("sort scheduler: send positions failed, retrying next update", "scene", s.sceneID, "error", err)
		return
	}
	s.positionsPending = false
	s.positionsSent = true
}

// onSetupComplete publishes the static attributes and the identity order and arms the first
// full-scene sort.
func (s *sortSchedulerImpl) onSetupComplete() {
	if !s.positionsSent || s.ready {
		logger.Logger().Warn("sort scheduler: unexpected setup complete reply", "scene", s.sceneID)
		return
	}

	if err := s.publisher.PublishStatic(s.data); err != nil {
		logger.Logger().Warn("sort scheduler: static publish failed", "scene", s.sceneID, "error", err)
	}
	if err := s.publisher.Publish(s.buffers.In, len(s.buffers.In)); err != nil {
		logger.Logger().Warn("sort scheduler: initial publish failed", "scene", s.sceneID, "error", err)
	}
	s.metrics.renderCount.Set(float64(len(s.buffers.In)))
	s.stats.LastRenderCount = len(s.buffers.In)

	s.ready = true
	s.forcePending = true
	s.gatherAllPending = true
	logger.Logger().Info("sort executor ready", "scene", s.sceneID, "splats", len(s.buffers.In))
}

// reclaim validates a job reply and takes back buffer ownership. It reports false for replies
// that do not match the in-flight job.
func (s *sortSchedulerImpl) reclaim(jobID uint64, buffers *IndexBuffers) bool {
	if s.state != JobStateInFlight || jobID != s.inFlightID {
		logger.Logger().Warn("sort scheduler: stale job reply", "scene", s.sceneID, "job", jobID, "in_flight", s.inFlightID, "state", s.state)
		return false
	}

	s.state = JobStateIdle
	s.inFlightID = 0
	if buffers == nil || len(buffers.In) != s.data.Count() || len(buffers.Out) != s.data.Count() {
		logger.Logger().Warn("sort scheduler: job returned invalid buffers, reallocating", "scene", s.sceneID, "job", jobID)
		s.buffers = NewIndexBuffers(s.data.Count())
		return false
	}
	s.buffers = buffers
	return true
}

func (s *sortSchedulerImpl) onSortDone(m SortDone) {
	if !s.reclaim(m.JobID, m.Buffers) {
		return
	}

	latency := time.Since(s.submittedAt)
	if err := s.publisher.Publish(s.buffers.Out, m.RenderCount); err != nil {
		logger.Logger().Warn("sort scheduler: publish failed", "scene", s.sceneID, "job", m.JobID, "error", err)
	}

	s.stats.Completed++
	s.stats.LastRenderCount = s.publisher.RenderCount()
	s.metrics.jobs.WithLabelValues(outcomeCompleted).Inc()
	s.metrics.jobSeconds.Observe(latency.Seconds())
	s.metrics.renderCount.Set(float64(s.stats.LastRenderCount))
	if s.profiler != nil {
		s.profiler.ObserveSort(latency)
	}
	logger.Logger().Debug("sort job done", "scene", s.sceneID, "job", m.JobID, "render_count", m.RenderCount, "latency", latency, "executor_time", m.Elapsed)
}

func (s *sortSchedulerImpl) onSortCanceled(m SortCanceled) {
	if !s.reclaim(m.JobID, m.Buffers) {
		s.forcePending = true
		return
	}

	// The previously published order stays in effect; resubmit on the next frame.
	s.forcePending = true
	s.stats.Canceled++
	s.metrics.jobs.WithLabelValues(outcomeCanceled).Inc()
	logger.Logger().Debug("sort job canceled", "scene", s.sceneID, "job", m.JobID)
}
