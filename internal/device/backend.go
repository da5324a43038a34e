// Package device implements the mining device worker contract shared by
// the CPU, OpenCL, and CUDA backends: a common mining loop, nonce-range
// partitioning, CPU-side solution verification, and health/rate
// tracking, with only the actual batch execution varying by backend.
package device

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tos-network/tosminer/internal/model"
)

// pausePollInterval is how often a paused worker re-checks its flags.
const pausePollInterval = 100 * time.Millisecond

// maxConsecutiveErrors is the number of consecutive backend errors that
// triggers a full re-init attempt before the device is marked failed.
const maxConsecutiveErrors = 10

// SolutionCallback is delivered from a worker's own goroutine once a
// candidate has been verified on the CPU.
type SolutionCallback func(solution model.Solution, jobID string)

// Backend is the contract every mining device implements: CPU, OpenCL,
// and CUDA each provide one, sharing the embedded base for state common
// to all three (see base below).
type Backend interface {
	Init() bool
	Start()
	Stop()
	Pause()
	Resume()
	SetWork(work model.WorkPackage)
	HashRate() model.HashRate
	Health() model.DeviceHealth
	Descriptor() model.DeviceDescriptor
	SetSolutionCallback(cb SolutionCallback)
}

// batchExecutor is implemented by each backend to run one batch of the
// search starting at a given nonce and return any candidate nonces the
// device's kernel flagged (unverified — verification happens on the
// CPU in base.verifyAndReport). CPU backends run the search directly
// and return at most one candidate per batch; GPU backends decode it
// from the batch output buffer (see gpu.go).
type batchExecutor interface {
	// runBatch executes (or enqueues, for GPU backends) one batch worth
	// of hashes starting at startNonce against header/target, returning
	// candidate nonces once results are available.
	runBatch(header [model.InputSize]byte, target model.Hash256, startNonce uint64) ([]uint64, error)
	// batchWidth reports how many nonces one runBatch call actually
	// advances through, so mineLoop can step its cursor by the backend's
	// real per-batch width instead of a shared constant: a CPU backend's
	// width is its own fixed batch size, a GPU backend's is its pipeline
	// globalSize/gridSize, which can be many times larger.
	batchWidth() uint64
	// drain waits for and discards any batches in flight without
	// processing their results; used when new work supersedes them.
	drain()
	// reinit re-acquires backend resources after repeated errors.
	reinit() bool
	// close releases all backend resources.
	close()
}

// base holds the state common to every backend instance: index,
// descriptor, health, rate calculator, submitted-nonce set, and the
// running/paused/new-work flags. Each concrete backend embeds it and
// supplies a batchExecutor.
type base struct {
	logger *zap.Logger

	index int
	desc  model.DeviceDescriptor

	running atomic.Bool
	paused  atomic.Bool
	newWork atomic.Bool

	workMu  sync.Mutex
	work    model.WorkPackage

	health *model.HealthTracker
	rate   *model.HashRateCalculator
	nonces *model.SubmittedNonceSet

	consecutiveErrors atomic.Int32
	failed            atomic.Bool

	cbMu sync.Mutex
	cb   SolutionCallback

	stopCh chan struct{}
	doneCh chan struct{}

	exec batchExecutor
}

func newBase(logger *zap.Logger, index int, desc model.DeviceDescriptor, exec batchExecutor) *base {
	return &base{
		logger: logger,
		index:  index,
		desc:   desc,
		health: model.NewHealthTracker(),
		rate:   model.NewHashRateCalculator(model.DefaultEMAPeriod),
		nonces: model.NewSubmittedNonceSet(),
		exec:   exec,
	}
}

func (b *base) Descriptor() model.DeviceDescriptor { return b.desc }

func (b *base) SetSolutionCallback(cb SolutionCallback) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	b.cb = cb
}

func (b *base) HashRate() model.HashRate { return b.rate.Snapshot() }

func (b *base) Health() model.DeviceHealth { return b.health.Snapshot() }

// Start spawns the mining goroutine. Idempotent: calling it while
// already running is a no-op.
func (b *base) Start() {
	if !b.running.CompareAndSwap(false, true) {
		return
	}
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	go b.mineLoop()
}

// Stop signals the mining goroutine to exit and waits for it. Pending
// GPU batches are drained before the goroutine returns. Idempotent.
func (b *base) Stop() {
	if !b.running.CompareAndSwap(true, false) {
		return
	}
	close(b.stopCh)
	<-b.doneCh
	b.exec.close()
}

func (b *base) Pause()  { b.paused.Store(true) }
func (b *base) Resume() { b.paused.Store(false) }

// SetWork atomically replaces the current work package. On a job_id
// change it clears the submitted-nonce set, per the spec's per-device
// duplicate-rejection contract.
func (b *base) SetWork(work model.WorkPackage) {
	b.workMu.Lock()
	prevJobID := b.work.JobID
	b.work = work
	b.workMu.Unlock()

	if work.JobID != prevJobID {
		b.nonces.Clear()
	}
	b.newWork.Store(true)
}

func (b *base) currentWork() model.WorkPackage {
	b.workMu.Lock()
	defer b.workMu.Unlock()
	return b.work
}

// IsFailed reports whether this device has been marked failed, either
// by exhausting recovery attempts or by health crossing into Failed.
func (b *base) IsFailed() bool {
	return b.failed.Load() || b.health.IsFailed()
}

func (b *base) mineLoop() {
	defer close(b.doneCh)

	var nonce uint64

	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		if b.paused.Load() {
			b.exec.drain()
			select {
			case <-b.stopCh:
				return
			case <-time.After(pausePollInterval):
			}
			continue
		}

		if b.newWork.CompareAndSwap(true, false) {
			b.exec.drain()
			work := b.currentWork()
			if work.Valid {
				nonce = work.DeviceStartNonce(b.index)
			}
			b.consecutiveErrors.Store(0)
		}

		work := b.currentWork()
		if !work.Valid {
			select {
			case <-b.stopCh:
				return
			case <-time.After(pausePollInterval):
			}
			continue
		}

		width := b.exec.batchWidth()
		candidates, err := b.exec.runBatch(work.Header, work.Target, nonce)
		if err != nil {
			b.onBackendError()
			if b.failed.Load() {
				return
			}
			continue
		}
		b.consecutiveErrors.Store(0)

		for _, candidate := range candidates {
			b.verifyAndReport(work, candidate)
		}

		nonce += width
		b.rate.Add(width)
		b.health.UpdateRate(b.rate.Snapshot().EMARate)
	}
}

// onBackendError implements the §4.2 recovery contract: after
// maxConsecutiveErrors consecutive failures, attempt a full re-init;
// if that fails too, mark the device permanently failed.
func (b *base) onBackendError() {
	b.health.RecordHardwareError()
	count := b.consecutiveErrors.Add(1)
	if count < maxConsecutiveErrors {
		return
	}

	b.consecutiveErrors.Store(0)
	if b.logger != nil {
		b.logger.Warn("device exceeded consecutive error threshold, attempting re-init",
			zap.Int("device_index", b.index))
	}
	if !b.exec.reinit() {
		b.failed.Store(true)
		if b.logger != nil {
			b.logger.Error("device re-init failed, marking failed", zap.Int("device_index", b.index))
		}
	}
}

// verifyAndReport applies the §4.2 solution-verification pipeline to
// one candidate nonce from a backend: duplicate rejection, range
// enforcement, CPU re-hash, and target check, before delivering to the
// farm's callback.
func (b *base) verifyAndReport(work model.WorkPackage, nonce uint64) {
	if b.nonces.CheckAndAdd(work.JobID, nonce) {
		b.health.RecordDuplicate()
		return
	}

	if work.TotalDevices > 1 && !work.NonceInDeviceRange(nonce, b.index) {
		return
	}

	sol, ok := verifyNonce(work, nonce, b.index)
	if !ok {
		b.health.RecordInvalid()
		return
	}

	b.health.RecordValid(b.rate.Snapshot().EMARate)

	b.cbMu.Lock()
	cb := b.cb
	b.cbMu.Unlock()
	if cb != nil {
		cb(sol, work.JobID)
	}
}
