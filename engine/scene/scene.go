package scene

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
	"github.com/Carmen-Shannon/oxy-splat/engine/logger"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/splat_buffers"
	"github.com/Carmen-Shannon/oxy-splat/engine/spatial_index"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat_sort"
)

// Scene owns one splat cloud together with the camera it is viewed through, its spatial
// index, and the sort scheduler that keeps its draw order current. Scenes can be hot-swapped
// via the Active flag to switch between different clouds.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Load replaces the scene's splat cloud. The spatial index is rebuilt and the sort
	// executor handshake restarts; until it completes the previous draw order stays in place.
	//
	// Parameters:
	//   - data: the splat arrays, treated as immutable from here on
	//
	// Returns:
	//   - error: error if the data is invalid or the index cannot be built
	Load(data *common.SplatData) error

	// Update is called once per render frame. It advances the sort handshake and requests a
	// new draw order when the camera has moved enough. It never blocks on the executor.
	//
	// Parameters:
	//   - deltaTime: seconds since the previous frame
	Update(deltaTime float32)

	// Resize updates the camera viewport and forces a resort on the next frame.
	//
	// Parameters:
	//   - width: viewport width in pixels
	//   - height: viewport height in pixels
	Resize(width, height int)

	// SplatCount returns the number of splats loaded, 0 before Load.
	SplatCount() int

	// RenderCount returns the number of splats in the currently published draw order.
	RenderCount() int

	// Scheduler returns the scene's sort scheduler.
	Scheduler() splat_sort.SortScheduler

	// Buffers returns the GPU-facing buffers the scene publishes into.
	Buffers() splat_buffers.SplatBuffers

	// Release frees the scene's buffers and forgets its splat cloud.
	Release()
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	cam       camera.Camera
	buffers   splat_buffers.SplatBuffers
	scheduler splat_sort.SortScheduler

	data  *common.SplatData
	index spatial_index.SpatialIndex

	indexOptions     []spatial_index.SpatialIndexBuilderOption
	schedulerOptions []splat_sort.SortSchedulerBuilderOption

	frames uint64
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new Scene viewed through cam, sorted by exec, and publishing into
// buffers. All three are required and NewScene panics if any of them is nil.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to attach (must not be nil)
//   - exec: the sort executor (must not be nil)
//   - buffers: the destination of draw orders and splat attributes (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, exec splat_sort.SortExecutor, buffers splat_buffers.SplatBuffers, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}
	if exec == nil {
		panic("scene: NewScene requires a non-nil SortExecutor")
	}
	if buffers == nil {
		panic("scene: NewScene requires non-nil SplatBuffers")
	}

	s := &scene{
		mu:      &sync.RWMutex{},
		name:    name,
		active:  false,
		cam:     cam,
		buffers: buffers,
	}

	for _, option := range options {
		option(s)
	}

	// The scheduler is built after options so WithSortConfig and friends reach it.
	s.scheduler = splat_sort.NewSortScheduler(exec, splat_sort.NewRenderBufferPublisher(buffers), s.schedulerOptions...)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) Load(data *common.SplatData) error {
	if err := data.Validate(); err != nil {
		return fmt.Errorf("scene: load: %w", err)
	}

	index := spatial_index.NewSpatialIndex(s.indexOptions...)
	if err := index.Build(data); err != nil {
		return fmt.Errorf("scene: load: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.scheduler.Start(data, index); err != nil {
		return fmt.Errorf("scene: load: %w", err)
	}
	s.data = data
	s.index = index
	s.frames = 0

	logger.Logger().Info("scene loaded",
		"scene", s.name,
		"id", s.scheduler.SceneID(),
		"splats", data.Count(),
		"buckets", len(index.LeafBuckets()),
	)
	return nil
}

func (s *scene) Update(deltaTime float32) {
	s.mu.Lock()
	if s.data == nil {
		s.mu.Unlock()
		return
	}
	s.frames++
	cam := s.cam
	s.mu.Unlock()

	s.scheduler.Update(splat_sort.NewView(cam), false)
}

func (s *scene) Resize(width, height int) {
	s.Camera().SetViewport(width, height)
	s.scheduler.ForceResort()
}

func (s *scene) SplatCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Count()
}

func (s *scene) RenderCount() int {
	return s.scheduler.Stats().LastRenderCount
}

func (s *scene) Scheduler() splat_sort.SortScheduler {
	return s.scheduler
}

func (s *scene) Buffers() splat_buffers.SplatBuffers {
	return s.buffers
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers.Release()
	s.data = nil
	s.index = nil
	logger.Logger().Info("scene released", "scene", s.name, "frames", s.frames)
}
