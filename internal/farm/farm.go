// Package farm owns the fleet of device workers: lifecycle, work
// distribution, failure isolation, rate aggregation, and the single
// solution path fanning in to the pool client.
package farm

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tos-network/tosminer/internal/device"
	"github.com/tos-network/tosminer/internal/model"
)

// FallbackMaxAge bounds how long a superseded WorkPackage may still be
// republished to keep devices busy through a brief pool outage, mirrored
// from the work-absence reconnect threshold the pool client enforces.
const FallbackMaxAge = 60 * time.Second

// maxRetainedJobs bounds how many recent WorkPackages the farm keeps
// addressable by job ID, so a solution found against a job that has
// since been superseded by a newer mining.notify can still be submitted
// against the exact job it was verified for instead of whatever is
// current at submission time.
const maxRetainedJobs = 8

// SolutionCallback is the farm's single outbound path for verified
// solutions, wired to the pool client's submit path.
type SolutionCallback func(solution model.Solution, jobID string)

type fleetEntry struct {
	worker device.Backend
	failed atomic.Bool

	// instanceID identifies this fleet slot across Init/recover cycles
	// in logs, independent of the underlying backend's device index.
	instanceID string
}

// Farm coordinates a fleet of device.Backend workers.
type Farm struct {
	logger *zap.Logger

	mu    sync.RWMutex
	fleet []*fleetEntry

	workMu       sync.Mutex
	currentWork  model.WorkPackage
	previousWork model.WorkPackage
	jobHistory   map[string]model.WorkPackage
	jobOrder     []string

	cbMu sync.Mutex
	cb   SolutionCallback

	startedAt atomic.Value // time.Time

	acceptedShares atomic.Uint64
	rejectedShares atomic.Uint64
	staleShares    atomic.Uint64
}

// New creates an empty Farm.
func New(logger *zap.Logger) *Farm {
	f := &Farm{logger: logger}
	f.startedAt.Store(time.Time{})
	return f
}

// AddMiner adds a worker to the fleet. Must be called before Start.
func (f *Farm) AddMiner(worker device.Backend) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry := &fleetEntry{worker: worker, instanceID: uuid.NewString()}
	entry.worker.SetSolutionCallback(f.onSolution)
	f.fleet = append(f.fleet, entry)
}

// MinerCount returns the total fleet size, including failed miners.
func (f *Farm) MinerCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.fleet)
}

// ActiveMinerCount returns the number of miners that are not failed.
func (f *Farm) ActiveMinerCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	count := 0
	for _, entry := range f.fleet {
		if !entry.failed.Load() {
			count++
		}
	}
	return count
}

// Start initializes every worker in parallel and starts only those
// that initialize successfully. Returns true iff at least one worker
// started. Resets the share counters and records the start time.
func (f *Farm) Start() bool {
	f.mu.RLock()
	fleet := append([]*fleetEntry(nil), f.fleet...)
	f.mu.RUnlock()

	var wg sync.WaitGroup
	started := make([]bool, len(fleet))
	for i, entry := range fleet {
		wg.Add(1)
		go func(i int, entry *fleetEntry) {
			defer wg.Done()
			if entry.worker.Init() {
				entry.worker.Start()
				started[i] = true
			} else {
				entry.failed.Store(true)
				if f.logger != nil {
					f.logger.Error("device failed to initialize",
						zap.Int("device_index", entry.worker.Descriptor().Index),
						zap.String("instance_id", entry.instanceID))
				}
			}
		}(i, entry)
	}
	wg.Wait()

	anyStarted := false
	for _, ok := range started {
		if ok {
			anyStarted = true
			break
		}
	}

	if anyStarted {
		f.acceptedShares.Store(0)
		f.rejectedShares.Store(0)
		f.staleShares.Store(0)
		f.startedAt.Store(time.Now())
	}
	return anyStarted
}

// Stop fans out to every worker.
func (f *Farm) Stop() {
	f.eachWorker(func(w device.Backend) { w.Stop() })
}

// Pause fans out to every worker.
func (f *Farm) Pause() {
	f.eachWorker(func(w device.Backend) { w.Pause() })
}

// Resume fans out to every worker.
func (f *Farm) Resume() {
	f.eachWorker(func(w device.Backend) { w.Resume() })
}

func (f *Farm) eachWorker(fn func(device.Backend)) {
	f.mu.RLock()
	fleet := append([]*fleetEntry(nil), f.fleet...)
	f.mu.RUnlock()

	for _, entry := range fleet {
		fn(entry.worker)
	}
}

// SetWork stamps total_devices with the current active count, retains
// the superseded work as the fallback candidate, and publishes the
// new work to every non-failed worker.
func (f *Farm) SetWork(w model.WorkPackage) {
	w.TotalDevices = f.ActiveMinerCount()

	f.workMu.Lock()
	if f.currentWork.Valid {
		f.previousWork = f.currentWork
	}
	f.currentWork = w
	if w.Valid {
		f.retainJobLocked(w)
	}
	f.workMu.Unlock()

	f.mu.RLock()
	fleet := append([]*fleetEntry(nil), f.fleet...)
	f.mu.RUnlock()

	for _, entry := range fleet {
		if !entry.failed.Load() {
			entry.worker.SetWork(w)
		}
	}
}

// CurrentWork returns the most recently published work package.
func (f *Farm) CurrentWork() model.WorkPackage {
	f.workMu.Lock()
	defer f.workMu.Unlock()
	return f.currentWork
}

// retainJobLocked records w under its JobID, evicting the oldest
// retained job past maxRetainedJobs. Callers must hold f.workMu.
func (f *Farm) retainJobLocked(w model.WorkPackage) {
	if f.jobHistory == nil {
		f.jobHistory = make(map[string]model.WorkPackage)
	}
	if _, exists := f.jobHistory[w.JobID]; !exists {
		f.jobOrder = append(f.jobOrder, w.JobID)
		if len(f.jobOrder) > maxRetainedJobs {
			oldest := f.jobOrder[0]
			f.jobOrder = f.jobOrder[1:]
			delete(f.jobHistory, oldest)
		}
	}
	f.jobHistory[w.JobID] = w
}

// WorkForJob returns the WorkPackage matching jobID, if it is still
// retained. Used to submit a solution against the exact job it was
// verified for even if a newer mining.notify has since superseded it
// as the current work.
func (f *Farm) WorkForJob(jobID string) (model.WorkPackage, bool) {
	f.workMu.Lock()
	defer f.workMu.Unlock()
	w, ok := f.jobHistory[jobID]
	return w, ok
}

// HasFallbackWork reports whether the current work is invalid and a
// usable (valid, not stale) previous work exists.
func (f *Farm) HasFallbackWork() bool {
	f.workMu.Lock()
	defer f.workMu.Unlock()
	return !f.currentWork.Valid && f.previousWork.Valid && !f.previousWork.IsStale(FallbackMaxAge)
}

// GetFallbackWork returns the retained previous work package.
func (f *Farm) GetFallbackWork() model.WorkPackage {
	f.workMu.Lock()
	defer f.workMu.Unlock()
	return f.previousWork
}

// ActivateFallbackWork republishes the retained previous work to keep
// devices busy through a brief pool outage. No-op if there is no
// usable fallback.
func (f *Farm) ActivateFallbackWork() bool {
	if !f.HasFallbackWork() {
		return false
	}
	fallback := f.GetFallbackWork()
	f.SetWork(fallback)
	if f.logger != nil {
		f.logger.Warn("activated fallback work", zap.String("job_id", fallback.JobID))
	}
	return true
}

// HashRate sums every non-failed worker's EMA rate.
func (f *Farm) HashRate() model.HashRate {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var total model.HashRate
	for _, entry := range f.fleet {
		if entry.failed.Load() {
			continue
		}
		rate := entry.worker.HashRate()
		total.InstantRate += rate.InstantRate
		total.EMARate += rate.EMARate
		total.TotalCount += rate.TotalCount
	}
	if start, ok := f.startedAt.Load().(time.Time); ok && !start.IsZero() {
		total.Duration = time.Since(start)
	}
	return total
}

// DeviceHealth pairs one fleet slot's device index with its current
// health snapshot, for per-device reporting (e.g. metrics export).
type DeviceHealth struct {
	DeviceIndex int
	Health      model.DeviceHealth
}

// DeviceHealths returns a health snapshot for every worker in the
// fleet, including failed ones.
func (f *Farm) DeviceHealths() []DeviceHealth {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]DeviceHealth, 0, len(f.fleet))
	for _, entry := range f.fleet {
		out = append(out, DeviceHealth{
			DeviceIndex: entry.worker.Descriptor().Index,
			Health:      entry.worker.Health(),
		})
	}
	return out
}

// RecoverFailedMiners stops, re-initializes, and restarts every failed
// miner, re-delivering the current work on success. Returns the number
// of miners recovered.
func (f *Farm) RecoverFailedMiners() uint {
	f.mu.RLock()
	fleet := append([]*fleetEntry(nil), f.fleet...)
	f.mu.RUnlock()

	work := f.CurrentWork()

	var recovered uint
	for _, entry := range fleet {
		if !entry.failed.Load() {
			continue
		}
		entry.worker.Stop()
		if !entry.worker.Init() {
			continue
		}
		entry.worker.SetSolutionCallback(f.onSolution)
		entry.worker.Start()
		if work.Valid {
			entry.worker.SetWork(work)
		}
		entry.failed.Store(false)
		recovered++
	}
	return recovered
}

// SetSolutionCallback sets the farm's outbound solution path.
func (f *Farm) SetSolutionCallback(cb SolutionCallback) {
	f.cbMu.Lock()
	defer f.cbMu.Unlock()
	f.cb = cb
}

func (f *Farm) onSolution(solution model.Solution, jobID string) {
	f.cbMu.Lock()
	cb := f.cb
	f.cbMu.Unlock()
	if cb != nil {
		cb(solution, jobID)
	}
}

// RecordAccepted, RecordRejected, and RecordStale track pool-side share
// outcomes for the farm's aggregate counters; the caller's share
// callback on the pool client invokes them as submit responses arrive.
func (f *Farm) RecordAccepted() { f.acceptedShares.Add(1) }
func (f *Farm) RecordRejected() { f.rejectedShares.Add(1) }
func (f *Farm) RecordStale()    { f.staleShares.Add(1) }

func (f *Farm) AcceptedShares() uint64 { return f.acceptedShares.Load() }
func (f *Farm) RejectedShares() uint64 { return f.rejectedShares.Load() }
func (f *Farm) StaleShares() uint64    { return f.staleShares.Load() }

// markFailed is exposed via the health of each worker, polled by a
// caller (e.g. a periodic supervisor loop) rather than pushed, since
// device.Backend has no failure-notification channel of its own.
func (f *Farm) markFailed(index int) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, entry := range f.fleet {
		if entry.worker.Descriptor().Index == index {
			entry.failed.Store(true)
			entry.worker.Pause()
			return
		}
	}
}

// ReapFailedMiners scans every active worker's health and marks it
// failed (pausing it and excluding it from work/rate aggregation) if
// its health has transitioned to Failed. Intended to be called
// periodically by a supervisor loop.
func (f *Farm) ReapFailedMiners() {
	f.mu.RLock()
	fleet := append([]*fleetEntry(nil), f.fleet...)
	f.mu.RUnlock()

	for _, entry := range fleet {
		if entry.failed.Load() {
			continue
		}
		if entry.worker.Health().Status == model.Failed {
			f.markFailed(entry.worker.Descriptor().Index)
			if f.logger != nil {
				f.logger.Warn("device health failed, marking failed",
					zap.Int("device_index", entry.worker.Descriptor().Index))
			}
		}
	}
}
