package splat_sort

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/profiler"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/splat_buffers"
	"github.com/Carmen-Shannon/oxy-splat/engine/spatial_index"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor records every message and replies only when the test pushes a reply.
// sendErr fails every send; jobErr fails only sort jobs.
type fakeExecutor struct {
	sent    []SchedulerMessage
	replies chan ExecutorMessage
	jobErr  error
	sendErr error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{replies: make(chan ExecutorMessage, 8)}
}

func (f *fakeExecutor) Send(msg SchedulerMessage) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	if _, ok := msg.(SortJob); ok && f.jobErr != nil {
		return f.jobErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeExecutor) Messages() <-chan ExecutorMessage {
	return f.replies
}

func (f *fakeExecutor) jobs() []SortJob {
	var out []SortJob
	for _, m := range f.sent {
		if j, ok := m.(SortJob); ok {
			out = append(out, j)
		}
	}
	return out
}

func (f *fakeExecutor) lastJob(t *testing.T) SortJob {
	t.Helper()
	jobs := f.jobs()
	require.NotEmpty(t, jobs)
	return jobs[len(jobs)-1]
}

// fakeIndex serves a fixed bucket list.
type fakeIndex struct {
	buckets []*spatial_index.LeafBucket
}

func (f *fakeIndex) Build(*common.SplatData) error            { return nil }
func (f *fakeIndex) LeafBuckets() []*spatial_index.LeafBucket { return f.buckets }
func (f *fakeIndex) SplatCount() int {
	n := 0
	for _, b := range f.buckets {
		n += len(b.Indexes)
	}
	return n
}

type schedulerFixture struct {
	scheduler SortScheduler
	impl      *sortSchedulerImpl
	executor  *fakeExecutor
	buffers   splat_buffers.MemorySplatBuffers
	data      *common.SplatData
}

// threeBucketScene places 5 splats in each of three buckets at distances 10, 50 and 200 down -Z.
func threeBucketScene() (*common.SplatData, *fakeIndex) {
	index := &fakeIndex{buckets: []*spatial_index.LeafBucket{
		bucketAt(0, [3]float32{0, 0, -200}, 1, seq(0, 5)...),
		bucketAt(1, [3]float32{0, 0, -10}, 1, seq(5, 5)...),
		bucketAt(2, [3]float32{0, 0, -50}, 1, seq(10, 5)...),
	}}
	return testSplats(15), index
}

func newSchedulerFixture(t *testing.T, options ...SortSchedulerBuilderOption) *schedulerFixture {
	t.Helper()
	f := &schedulerFixture{
		executor: newFakeExecutor(),
		buffers:  splat_buffers.NewMemorySplatBuffers(),
	}
	f.scheduler = NewSortScheduler(f.executor, NewRenderBufferPublisher(f.buffers), options...)
	f.impl = f.scheduler.(*sortSchedulerImpl)

	var index *fakeIndex
	f.data, index = threeBucketScene()
	require.NoError(t, f.scheduler.Start(f.data, index))
	return f
}

// completeSetup runs the two-phase handshake and returns the first, full-scene job.
func (f *schedulerFixture) completeSetup(t *testing.T, view View) SortJob {
	t.Helper()
	f.executor.replies <- SetupPhase1Complete{}
	require.False(t, f.scheduler.Update(view, false))
	f.executor.replies <- SetupComplete{}
	require.True(t, f.scheduler.Update(view, false))
	return f.executor.lastJob(t)
}

func TestSortSchedulerSetupHandshake(t *testing.T) {
	f := newSchedulerFixture(t)
	view := forwardView([3]float32{})

	require.Len(t, f.executor.sent, 1)
	assert.Equal(t, InitMessage{SplatCount: 15}, f.executor.sent[0])
	assert.NotEqual(t, uuid.Nil, f.scheduler.SceneID())
	assert.False(t, f.scheduler.Ready())
	assert.False(t, f.scheduler.RequestSort(view, true))

	f.executor.replies <- SetupPhase1Complete{}
	assert.False(t, f.scheduler.Update(view, true))
	require.Len(t, f.executor.sent, 2)
	assert.Equal(t, PositionsMessage{Positions: f.data.Positions}, f.executor.sent[1])

	f.executor.replies <- SetupComplete{}
	assert.True(t, f.scheduler.Update(view, false))
	assert.True(t, f.scheduler.Ready())
	assert.Equal(t, JobStateInFlight, f.scheduler.State())

	// Identity order is published until the first sort lands.
	assert.Equal(t, seq(0, 15), f.buffers.Indices(15))
	assert.Equal(t, uint32(15), f.buffers.InstanceCount())
	assert.Equal(t, 1, f.buffers.AttributeWrites())

	job := f.executor.lastJob(t)
	assert.Equal(t, 15, job.TotalCount)
	assert.Equal(t, view.ViewMatrix, job.ViewMatrix)
	assert.Equal(t, view.Position, job.CameraPosition)
	assert.Nil(t, f.impl.buffers)
}

func TestSortSchedulerThreeBucketJob(t *testing.T) {
	f := newSchedulerFixture(t)
	job := f.completeSetup(t, forwardView([3]float32{}))

	assert.Equal(t, 15, job.TotalCount)
	assert.Equal(t, 10, job.FineSortCount)
	want := append(append(seq(5, 5), seq(10, 5)...), seq(0, 5)...)
	assert.Equal(t, want, job.Buffers.In[:job.TotalCount])

	stats := f.scheduler.Stats()
	assert.Equal(t, uint64(1), stats.Submitted)
	assert.Equal(t, 15, stats.LastTotalCount)
	assert.Equal(t, 10, stats.LastFineSortCount)
}

func TestSortSchedulerDropsWhileInFlight(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newSchedulerFixture(t, WithRegisterer(reg))
	view := forwardView([3]float32{})
	job := f.completeSetup(t, view)

	assert.False(t, f.scheduler.Update(forwardView([3]float32{30, 0, 0}), true))
	assert.False(t, f.scheduler.RequestSort(view, false))
	assert.Equal(t, JobStateInFlight, f.scheduler.State())
	assert.Len(t, f.executor.jobs(), 1)
	assert.Equal(t, uint64(2), f.scheduler.Stats().Dropped)
	assert.Equal(t, float64(2), testutil.ToFloat64(f.impl.metrics.jobs.WithLabelValues(outcomeDropped)))

	for i := range job.Buffers.Out {
		job.Buffers.Out[i] = uint32(14 - i)
	}
	f.executor.replies <- SortDone{JobID: job.ID, Buffers: job.Buffers, RenderCount: 12}
	assert.False(t, f.scheduler.Update(view, false))
	assert.Equal(t, JobStateIdle, f.scheduler.State())

	assert.Equal(t, job.Buffers.Out[:12], f.buffers.Indices(12))
	assert.Equal(t, uint32(12), f.buffers.InstanceCount())
	assert.Equal(t, 12, f.scheduler.Stats().LastRenderCount)

	// The reclaimed pair travels with the next job.
	require.True(t, f.scheduler.Update(view, true))
	next := f.executor.lastJob(t)
	assert.Same(t, job.Buffers, next.Buffers)
	assert.Greater(t, next.ID, job.ID)

	assert.Equal(t, float64(2), testutil.ToFloat64(f.impl.metrics.jobs.WithLabelValues(outcomeSubmitted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.impl.metrics.jobs.WithLabelValues(outcomeCompleted)))
	assert.Equal(t, float64(12), testutil.ToFloat64(f.impl.metrics.renderCount))
	assert.Equal(t, 1, testutil.CollectAndCount(f.impl.metrics.jobSeconds))
}

func TestSortSchedulerViewChangeGatesSubmission(t *testing.T) {
	f := newSchedulerFixture(t)
	view := forwardView([3]float32{})
	job := f.completeSetup(t, view)
	f.executor.replies <- SortDone{JobID: job.ID, Buffers: job.Buffers, RenderCount: 15}

	assert.False(t, f.scheduler.Update(forwardView([3]float32{0.5, 0, 0}), false))
	assert.Equal(t, JobStateIdle, f.scheduler.State())
	assert.True(t, f.scheduler.Update(forwardView([3]float32{1.5, 0, 0}), false))
	assert.Len(t, f.executor.jobs(), 2)
}

func TestSortSchedulerCanceledJobResubmits(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newSchedulerFixture(t, WithRegisterer(reg))
	view := forwardView([3]float32{})
	job := f.completeSetup(t, view)

	f.executor.replies <- SortCanceled{JobID: job.ID, Buffers: job.Buffers}
	assert.True(t, f.scheduler.Update(view, false))
	assert.Same(t, job.Buffers, f.executor.lastJob(t).Buffers)

	// Canceled jobs publish nothing; the identity order stays.
	assert.Equal(t, seq(0, 15), f.buffers.Indices(15))
	assert.Equal(t, uint64(1), f.scheduler.Stats().Canceled)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.impl.metrics.jobs.WithLabelValues(outcomeCanceled)))
}

func TestSortSchedulerIgnoresStaleReplies(t *testing.T) {
	f := newSchedulerFixture(t)
	view := forwardView([3]float32{})
	job := f.completeSetup(t, view)

	f.scheduler.HandleMessage(SortDone{JobID: job.ID + 100, Buffers: NewIndexBuffers(15), RenderCount: 3})
	assert.Equal(t, JobStateInFlight, f.scheduler.State())
	assert.Equal(t, uint32(15), f.buffers.InstanceCount())

	f.scheduler.HandleMessage(SortDone{JobID: job.ID, Buffers: job.Buffers, RenderCount: 15})
	assert.Equal(t, JobStateIdle, f.scheduler.State())

	f.scheduler.HandleMessage(SortDone{JobID: job.ID, Buffers: job.Buffers, RenderCount: 1})
	assert.Equal(t, uint32(15), f.buffers.InstanceCount())
	assert.Equal(t, uint64(1), f.scheduler.Stats().Completed)
}

func TestSortSchedulerReallocatesInvalidBuffers(t *testing.T) {
	f := newSchedulerFixture(t)
	view := forwardView([3]float32{})
	job := f.completeSetup(t, view)

	f.scheduler.HandleMessage(SortDone{JobID: job.ID, Buffers: nil, RenderCount: 15})
	assert.Equal(t, JobStateIdle, f.scheduler.State())
	require.NotNil(t, f.impl.buffers)
	assert.Len(t, f.impl.buffers.In, 15)
	assert.Zero(t, f.scheduler.Stats().Completed)
}

func TestSortSchedulerSubmitFailureKeepsBuffers(t *testing.T) {
	f := newSchedulerFixture(t)
	view := forwardView([3]float32{})
	job := f.completeSetup(t, view)
	f.scheduler.HandleMessage(SortDone{JobID: job.ID, Buffers: job.Buffers, RenderCount: 15})

	f.executor.jobErr = ErrExecutorBusy
	assert.False(t, f.scheduler.RequestSort(view, false))
	assert.Equal(t, JobStateIdle, f.scheduler.State())
	assert.Same(t, job.Buffers, f.impl.buffers)
	assert.Equal(t, uint64(1), f.scheduler.Stats().Submitted)

	f.executor.jobErr = nil
	assert.True(t, f.scheduler.RequestSort(view, false))
	assert.Same(t, job.Buffers, f.executor.lastJob(t).Buffers)
}

func TestSortSchedulerCullsOutsideView(t *testing.T) {
	f := newSchedulerFixture(t)
	job := f.completeSetup(t, forwardView([3]float32{}))
	f.scheduler.HandleMessage(SortDone{JobID: job.ID, Buffers: job.Buffers, RenderCount: 15})

	// Looking back up +Z: every bucket is behind the camera.
	back := forwardView([3]float32{})
	back.ViewMatrix[0], back.ViewMatrix[10] = -1, -1
	back.Forward = [3]float32{0, 0, 1}
	require.True(t, f.scheduler.Update(back, false))

	next := f.executor.lastJob(t)
	assert.Zero(t, next.TotalCount)
	assert.Zero(t, next.FineSortCount)
}

func TestSortSchedulerRestartAbandonsInFlightJob(t *testing.T) {
	f := newSchedulerFixture(t)
	view := forwardView([3]float32{})
	job := f.completeSetup(t, view)
	firstScene := f.scheduler.SceneID()

	data, index := threeBucketScene()
	require.NoError(t, f.scheduler.Start(data, index))
	assert.NotEqual(t, firstScene, f.scheduler.SceneID())
	assert.Equal(t, JobStateIdle, f.scheduler.State())
	assert.False(t, f.scheduler.Ready())
	assert.Zero(t, f.scheduler.Stats().Submitted)

	f.scheduler.HandleMessage(SortDone{JobID: job.ID, Buffers: job.Buffers, RenderCount: 15})
	assert.Zero(t, f.scheduler.Stats().Completed)

	next := f.completeSetup(t, view)
	assert.Greater(t, next.ID, job.ID)
}

func TestSortSchedulerFailedStartKeepsPreviousScene(t *testing.T) {
	f := newSchedulerFixture(t)
	view := forwardView([3]float32{})
	job := f.completeSetup(t, view)
	f.scheduler.HandleMessage(SortDone{JobID: job.ID, Buffers: job.Buffers, RenderCount: 15})
	sceneID := f.scheduler.SceneID()
	sent := len(f.executor.sent)

	f.executor.sendErr = errors.New("executor busy")
	data, index := threeBucketScene()
	err := f.scheduler.Start(data, index)
	require.ErrorIs(t, err, f.executor.sendErr)

	assert.Equal(t, sceneID, f.scheduler.SceneID())
	assert.True(t, f.scheduler.Ready())
	assert.Equal(t, JobStateIdle, f.scheduler.State())
	assert.Equal(t, uint64(1), f.scheduler.Stats().Completed)
	assert.Same(t, job.Buffers, f.impl.buffers)
	assert.Len(t, f.executor.sent, sent)

	f.executor.sendErr = nil
	f.scheduler.ForceResort()
	require.True(t, f.scheduler.Update(view, false))
	assert.Same(t, f.data, f.impl.data)
	assert.Equal(t, 15, f.executor.lastJob(t).TotalCount)
}

func TestSortSchedulerRetriesPositionsSend(t *testing.T) {
	f := newSchedulerFixture(t)
	view := forwardView([3]float32{})
	require.Len(t, f.executor.sent, 1)

	f.executor.sendErr = errors.New("executor busy")
	f.executor.replies <- SetupPhase1Complete{}
	assert.False(t, f.scheduler.Update(view, true))
	assert.False(t, f.scheduler.Update(view, true))
	assert.Len(t, f.executor.sent, 1)
	assert.False(t, f.scheduler.Ready())

	f.executor.sendErr = nil
	assert.False(t, f.scheduler.Update(view, false))
	require.Len(t, f.executor.sent, 2)
	assert.Equal(t, PositionsMessage{Positions: f.data.Positions}, f.executor.sent[1])

	// A later update does not resend once the executor accepted the positions.
	assert.False(t, f.scheduler.Update(view, false))
	assert.Len(t, f.executor.sent, 2)

	f.executor.replies <- SetupComplete{}
	assert.True(t, f.scheduler.Update(view, false))
	assert.True(t, f.scheduler.Ready())
	assert.Equal(t, 15, f.executor.lastJob(t).TotalCount)
}

func TestSortSchedulerStartErrors(t *testing.T) {
	s := NewSortScheduler(newFakeExecutor(), NewRenderBufferPublisher(splat_buffers.NewMemorySplatBuffers()))
	_, index := threeBucketScene()

	assert.ErrorIs(t, s.Start(&common.SplatData{}, index), common.ErrEmptyScene)
	assert.ErrorIs(t, s.Start(testSplats(3), nil), ErrNotStarted)

	bad := testSplats(3)
	bad.Colors = bad.Colors[:4]
	assert.Error(t, s.Start(bad, index))
}

func TestSortSchedulerProfilerAndSharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := profiler.NewProfiler()
	a := newSchedulerFixture(t, WithRegisterer(reg), WithProfiler(p))
	b := newSchedulerFixture(t, WithRegisterer(reg))
	assert.Same(t, a.impl.metrics.jobs, b.impl.metrics.jobs)

	job := a.completeSetup(t, forwardView([3]float32{}))
	a.scheduler.HandleMessage(SortDone{JobID: job.ID, Buffers: job.Buffers, RenderCount: 15})
	assert.Equal(t, 1, p.SortCount())
}

func TestNewSortSchedulerPanics(t *testing.T) {
	publisher := NewRenderBufferPublisher(splat_buffers.NewMemorySplatBuffers())
	assert.Panics(t, func() { NewSortScheduler(nil, publisher) })
	assert.Panics(t, func() { NewSortScheduler(newFakeExecutor(), nil) })
}

func TestJobStateString(t *testing.T) {
	assert.Equal(t, "idle", JobStateIdle.String())
	assert.Equal(t, "in_flight", JobStateInFlight.String())
	assert.Equal(t, "JobState(7)", JobState(7).String())
}
