package splat_sort

import "github.com/Carmen-Shannon/oxy-splat/common"

// ViewChangeDetector decides whether camera motion since the last submitted sort justifies a
// new one. The snapshot only moves when Record is called, which the scheduler does on a
// successful submit, so slow drift accumulates until it crosses a threshold.
type ViewChangeDetector struct {
	rotationCosine    float32
	translationChange float32

	hasSnapshot  bool
	lastPosition [3]float32
	lastForward  [3]float32

	forward [3]float32
}

// NewViewChangeDetector creates a detector with the rotation and translation thresholds of cfg.
//
// Parameters:
//   - cfg: the sort policy
//
// Returns:
//   - *ViewChangeDetector: the new detector with no snapshot
func NewViewChangeDetector(cfg Config) *ViewChangeDetector {
	return &ViewChangeDetector{
		rotationCosine:    cfg.RotationChangeCosine,
		translationChange: cfg.TranslationChange,
	}
}

// ShouldResort reports whether a new sort should be requested for the given camera pose.
// It is true when force is set, when no sort has been recorded yet, when the cosine between
// the current and recorded forward vectors is at or below the rotation threshold, or when
// the camera moved at least the translation threshold.
//
// Parameters:
//   - position: current camera position
//   - forward: current viewing direction, any non-zero length
//   - force: bypasses both checks
//
// Returns:
//   - bool: true if a resort is due
func (d *ViewChangeDetector) ShouldResort(position, forward [3]float32, force bool) bool {
	if force || !d.hasSnapshot {
		return true
	}
	d.forward = common.Normalize3(forward)
	if common.Dot3(d.forward, d.lastForward) <= d.rotationCosine {
		return true
	}
	return common.Distance3(position, d.lastPosition) >= d.translationChange
}

// Record stores the pose used by a submitted sort.
//
// Parameters:
//   - position: camera position of the submitted sort
//   - forward: viewing direction of the submitted sort
func (d *ViewChangeDetector) Record(position, forward [3]float32) {
	d.hasSnapshot = true
	d.lastPosition = position
	d.lastForward = common.Normalize3(forward)
}

// Reset discards the snapshot so the next check always requests a sort.
func (d *ViewChangeDetector) Reset() {
	d.hasSnapshot = false
}

// Snapshot returns the recorded pose.
//
// Returns:
//   - position, forward: the last recorded pose
//   - ok: false if nothing has been recorded since construction or Reset
func (d *ViewChangeDetector) Snapshot() (position, forward [3]float32, ok bool) {
	return d.lastPosition, d.lastForward, d.hasSnapshot
}
