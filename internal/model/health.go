package model

import (
	"sync"
	"time"
)

// HealthStatus classifies a device's operational state, derived from
// its solution validity ratio and hardware error count.
type HealthStatus int

const (
	Healthy HealthStatus = iota
	Degraded
	Unhealthy
	Failed
)

func (s HealthStatus) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Unhealthy:
		return "unhealthy"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// minSolutionsForValidity is the number of observed solutions below
// which validity defaults to 1.0 (optimistic) rather than being derived
// from a statistically thin sample.
const minSolutionsForValidity = 5

// DeviceHealth is a point-in-time health snapshot for one device.
type DeviceHealth struct {
	Status HealthStatus

	ValidSolutions     uint64
	InvalidSolutions   uint64
	DuplicateSolutions uint64
	HardwareErrors     uint64

	PeakRate    float64
	CurrentRate float64

	LastSolutionAt   time.Time
	LastHashUpdateAt time.Time
}

// Validity returns valid / (valid + invalid), defaulting to 1.0 until at
// least minSolutionsForValidity solutions have been observed.
func (h DeviceHealth) Validity() float64 {
	total := h.ValidSolutions + h.InvalidSolutions
	if total < minSolutionsForValidity {
		return 1.0
	}
	return float64(h.ValidSolutions) / float64(total)
}

// deriveStatus computes the status implied by the counters, per the
// thresholds in the data model: Failed is checked first, then
// Unhealthy, then Degraded, else Healthy.
func deriveStatus(h DeviceHealth) HealthStatus {
	validity := h.Validity()
	switch {
	case h.HardwareErrors > 50 || validity < 0.5:
		return Failed
	case validity < 0.80 || h.HardwareErrors > 20:
		return Unhealthy
	case validity < 0.95 || h.HardwareErrors > 5:
		return Degraded
	default:
		return Healthy
	}
}

// HealthTracker accumulates the counters behind DeviceHealth and
// recomputes status after every update. Safe for concurrent use.
type HealthTracker struct {
	mu   sync.Mutex
	data DeviceHealth
}

// NewHealthTracker creates a tracker starting in the Healthy state.
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{}
}

// RecordValid records a verified, target-meeting solution.
func (t *HealthTracker) RecordValid(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ValidSolutions++
	t.data.LastSolutionAt = time.Now()
	t.updateRateLocked(rate)
	t.data.Status = deriveStatus(t.data)
}

// RecordInvalid records a candidate that failed CPU verification (a
// false positive from the GPU search kernel).
func (t *HealthTracker) RecordInvalid() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.InvalidSolutions++
	t.data.Status = deriveStatus(t.data)
}

// RecordDuplicate records a candidate nonce seen before in this job.
func (t *HealthTracker) RecordDuplicate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.DuplicateSolutions++
}

// RecordHardwareError records a backend-reported error.
func (t *HealthTracker) RecordHardwareError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.HardwareErrors++
	t.data.Status = deriveStatus(t.data)
}

// UpdateRate refreshes the current/peak hash rate and the last-update
// timestamp without implying a solution event.
func (t *HealthTracker) UpdateRate(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateRateLocked(rate)
}

func (t *HealthTracker) updateRateLocked(rate float64) {
	t.data.CurrentRate = rate
	if rate > t.data.PeakRate {
		t.data.PeakRate = rate
	}
	t.data.LastHashUpdateAt = time.Now()
}

// Snapshot returns a copy of the current health state.
func (t *HealthTracker) Snapshot() DeviceHealth {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data
}

// IsFailed reports whether the tracker's derived status is Failed.
func (t *HealthTracker) IsFailed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data.Status == Failed
}
