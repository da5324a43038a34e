package farm

import (
	"sync"

	"github.com/tos-network/tosminer/internal/device"
	"github.com/tos-network/tosminer/internal/model"
)

// fakeBackend is a test-only device.Backend that records lifecycle calls
// and lets a test drive its health/rate/init outcome deterministically,
// without depending on any concrete hashing backend.
type fakeBackend struct {
	mu sync.Mutex

	desc model.DeviceDescriptor

	initOK     bool
	initCalls  int
	startCalls int
	stopCalls  int

	lastWork model.WorkPackage

	rate   model.HashRate
	health model.DeviceHealth

	cb device.SolutionCallback
}

func newFakeBackend(index int) *fakeBackend {
	return &fakeBackend{
		desc:   model.DeviceDescriptor{Type: model.DeviceCPU, Index: index},
		initOK: true,
	}
}

func (f *fakeBackend) Init() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	return f.initOK
}

func (f *fakeBackend) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
}

func (f *fakeBackend) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
}

func (f *fakeBackend) Pause()  {}
func (f *fakeBackend) Resume() {}

func (f *fakeBackend) SetWork(w model.WorkPackage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastWork = w
}

func (f *fakeBackend) lastSetWork() model.WorkPackage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastWork
}

func (f *fakeBackend) HashRate() model.HashRate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate
}

func (f *fakeBackend) setHashRate(r model.HashRate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rate = r
}

func (f *fakeBackend) Health() model.DeviceHealth {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health
}

func (f *fakeBackend) setHealth(h model.DeviceHealth) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health = h
}

func (f *fakeBackend) Descriptor() model.DeviceDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.desc
}

func (f *fakeBackend) SetSolutionCallback(cb device.SolutionCallback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
}

func (f *fakeBackend) emit(sol model.Solution, jobID string) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(sol, jobID)
	}
}
