package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-splat/engine/logger"
)

// Profiler tracks frame rate, sort latency, and memory statistics for performance monitoring.
// Outputs stats to the engine logger at a configurable interval.
type Profiler struct {
	mu *sync.Mutex

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	sortCount int
	sortTotal time.Duration
	sortMax   time.Duration

	last Stats
}

// Stats is the summary of one reporting interval.
type Stats struct {
	FPS          float64
	SortsPerSec  float64
	SortAvg      time.Duration
	SortMax      time.Duration
	HeapMB       float64
	AllocRateMB  float64
	GCCount      uint32
	LastPauseUs  uint64
	MaxPauseUs   uint64
	SysMB        float64
	IntervalTime time.Duration
}

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(*Profiler)

// WithUpdateInterval sets how often Tick reports. Non-positive values are ignored.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerOption: option function to apply
func WithUpdateInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// ObserveSort records the latency of one completed sort job, from submission to result.
//
// Parameters:
//   - d: the job latency
func (p *Profiler) ObserveSort(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sortCount++
	p.sortTotal += d
	if d > p.sortMax {
		p.sortMax = d
	}
}

// SortCount returns the number of sorts observed since the last report.
func (p *Profiler) SortCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sortCount
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		SortsPerSec:  float64(p.sortCount) / elapsed.Seconds(),
		SortMax:      p.sortMax,
		HeapMB:       float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:        float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB:  float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:      p.memStats.NumGC,
		IntervalTime: elapsed,
	}
	if p.sortCount > 0 {
		s.SortAvg = p.sortTotal / time.Duration(p.sortCount)
	}

	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		s.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > s.MaxPauseUs {
				s.MaxPauseUs = pause
			}
		}
	}

	logger.Logger().Info("profiler",
		"fps", s.FPS,
		"sorts_per_sec", s.SortsPerSec,
		"sort_avg", s.SortAvg,
		"sort_max", s.SortMax,
		"heap_mb", s.HeapMB,
		"alloc_rate_mb", s.AllocRateMB,
		"gc", s.GCCount,
		"gc_last_us", s.LastPauseUs,
		"gc_max_us", s.MaxPauseUs,
		"sys_mb", s.SysMB,
	)

	p.last = s
	p.frameCount = 0
	p.sortCount = 0
	p.sortTotal = 0
	p.sortMax = 0
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// LastStats returns the summary logged by the most recent reporting Tick.
//
// Returns:
//   - Stats: the last interval's statistics, zero before the first report
func (p *Profiler) LastStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
