package farm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/tosminer/internal/model"
)

func TestStartStartsOnlyInitializedMiners(t *testing.T) {
	f := New(nil)
	good := newFakeBackend(0)
	bad := newFakeBackend(1)
	bad.initOK = false
	f.AddMiner(good)
	f.AddMiner(bad)

	require.True(t, f.Start(), "Start() with one initializable miner")
	require.Equal(t, 1, good.startCalls)
	require.Equal(t, 0, bad.startCalls, "a miner that failed Init() must not be started")
	require.Equal(t, 1, f.ActiveMinerCount(), "the failed-init miner must be excluded")
	require.Equal(t, 2, f.MinerCount(), "MinerCount includes failed-init miners")
}

func TestStartReturnsFalseWhenEveryMinerFailsInit(t *testing.T) {
	f := New(nil)
	bad := newFakeBackend(0)
	bad.initOK = false
	f.AddMiner(bad)

	require.False(t, f.Start())
}

func TestSetWorkStampsTotalDevicesToActiveCount(t *testing.T) {
	f := New(nil)
	a := newFakeBackend(0)
	b := newFakeBackend(1)
	f.AddMiner(a)
	f.AddMiner(b)
	f.Start()

	f.SetWork(model.WorkPackage{JobID: "job-1", Valid: true})

	require.Equal(t, 2, a.lastSetWork().TotalDevices)
	require.Equal(t, 2, b.lastSetWork().TotalDevices)
}

func TestSetWorkSkipsFailedMiners(t *testing.T) {
	f := New(nil)
	good := newFakeBackend(0)
	f.AddMiner(good)
	f.Start()

	f.markFailed(0)
	f.SetWork(model.WorkPackage{JobID: "job-1", Valid: true})

	require.False(t, good.lastSetWork().Valid, "a failed miner must not receive new work")
}

func TestFallbackWorkActivatesOnlyWhenCurrentIsInvalidAndPreviousIsFresh(t *testing.T) {
	f := New(nil)
	f.AddMiner(newFakeBackend(0))
	f.Start()

	require.False(t, f.HasFallbackWork(), "no fallback before any work has ever been set")

	f.SetWork(model.WorkPackage{JobID: "job-1", Valid: true, ReceivedAt: time.Now()})
	require.False(t, f.HasFallbackWork(), "no fallback while current work is still valid")

	// Publishing an invalid work package (e.g. a disconnect marker)
	// should make the previous, still-fresh job eligible as fallback.
	f.SetWork(model.WorkPackage{Valid: false})
	require.True(t, f.HasFallbackWork(), "a fresh previous job must become eligible as fallback")

	fallback := f.GetFallbackWork()
	require.Equal(t, "job-1", fallback.JobID)

	require.True(t, f.ActivateFallbackWork())
	require.True(t, f.CurrentWork().Valid)
	require.Equal(t, "job-1", f.CurrentWork().JobID)
}

func TestFallbackWorkExpiresAfterMaxAge(t *testing.T) {
	f := New(nil)
	f.AddMiner(newFakeBackend(0))
	f.Start()

	f.SetWork(model.WorkPackage{JobID: "job-1", Valid: true, ReceivedAt: time.Now().Add(-2 * FallbackMaxAge)})
	f.SetWork(model.WorkPackage{Valid: false})

	require.False(t, f.HasFallbackWork(), "a previous job older than FallbackMaxAge must not be offered")
}

func TestHashRateAggregatesOnlyActiveMiners(t *testing.T) {
	f := New(nil)
	a := newFakeBackend(0)
	b := newFakeBackend(1)
	a.setHashRate(model.HashRate{EMARate: 100, InstantRate: 110, TotalCount: 1000})
	b.setHashRate(model.HashRate{EMARate: 50, InstantRate: 55, TotalCount: 500})
	f.AddMiner(a)
	f.AddMiner(b)
	f.Start()

	require.Equal(t, float64(150), f.HashRate().EMARate, "sum of both active miners")

	f.markFailed(1)
	require.Equal(t, float64(100), f.HashRate().EMARate, "miner 1 excluded as failed")
}

func TestRecoverFailedMinersReinitializesAndRedeliversWork(t *testing.T) {
	f := New(nil)
	a := newFakeBackend(0)
	f.AddMiner(a)
	f.Start()
	f.SetWork(model.WorkPackage{JobID: "job-1", Valid: true})

	f.markFailed(0)
	require.Equal(t, 0, f.ActiveMinerCount())

	recovered := f.RecoverFailedMiners()
	require.Equal(t, uint(1), recovered)
	require.Equal(t, 1, f.ActiveMinerCount())
	require.Equal(t, "job-1", a.lastSetWork().JobID, "recovered miner must receive the current work")
}

func TestRecoverFailedMinersSkipsOnesThatFailInitAgain(t *testing.T) {
	f := New(nil)
	a := newFakeBackend(0)
	f.AddMiner(a)
	f.Start()
	f.markFailed(0)

	a.initOK = false
	recovered := f.RecoverFailedMiners()
	require.Equal(t, uint(0), recovered)
	require.Equal(t, 0, f.ActiveMinerCount(), "a miner that keeps failing init must stay marked failed")
}

func TestReapFailedMinersMarksFailedOnHealthStatusFailed(t *testing.T) {
	f := New(nil)
	a := newFakeBackend(0)
	f.AddMiner(a)
	f.Start()

	a.setHealth(model.DeviceHealth{Status: model.Failed})
	f.ReapFailedMiners()

	require.Equal(t, 0, f.ActiveMinerCount())
}

func TestReapFailedMinersLeavesHealthyMinersAlone(t *testing.T) {
	f := New(nil)
	a := newFakeBackend(0)
	f.AddMiner(a)
	f.Start()

	a.setHealth(model.DeviceHealth{Status: model.Degraded})
	f.ReapFailedMiners()

	require.Equal(t, 1, f.ActiveMinerCount(), "a Degraded (not Failed) device must stay active")
}

func TestOnSolutionFansOutToFarmCallback(t *testing.T) {
	f := New(nil)
	a := newFakeBackend(0)
	f.AddMiner(a)
	f.Start()

	var gotJobID string
	var gotNonce uint64
	f.SetSolutionCallback(func(sol model.Solution, jobID string) {
		gotJobID = jobID
		gotNonce = sol.Nonce
	})

	a.emit(model.Solution{Nonce: 42}, "job-7")

	require.Equal(t, "job-7", gotJobID)
	require.Equal(t, uint64(42), gotNonce)
}

func TestWorkForJobRetainsSupersededJobs(t *testing.T) {
	f := New(nil)
	f.AddMiner(newFakeBackend(0))
	f.Start()

	f.SetWork(model.WorkPackage{JobID: "job-1", Valid: true})
	f.SetWork(model.WorkPackage{JobID: "job-2", Valid: true})

	_, ok := f.WorkForJob("unknown-job")
	require.False(t, ok, "an unrecorded job ID must not be found")

	w1, ok := f.WorkForJob("job-1")
	require.True(t, ok, "a superseded but recently-retained job must still resolve")
	require.Equal(t, "job-1", w1.JobID)

	w2, ok := f.WorkForJob("job-2")
	require.True(t, ok)
	require.Equal(t, "job-2", w2.JobID)
}

func TestWorkForJobEvictsOldestPastRetentionLimit(t *testing.T) {
	f := New(nil)
	f.AddMiner(newFakeBackend(0))
	f.Start()

	for i := 0; i < maxRetainedJobs+2; i++ {
		f.SetWork(model.WorkPackage{JobID: "job-" + string(rune('a'+i)), Valid: true})
	}

	_, ok := f.WorkForJob("job-" + string(rune('a')))
	require.False(t, ok, "the oldest job must be evicted once retention exceeds maxRetainedJobs")

	last := "job-" + string(rune('a'+maxRetainedJobs+1))
	_, ok = f.WorkForJob(last)
	require.True(t, ok, "the most recent job must still be retained")
}

func TestDeviceHealthsReportsEveryFleetSlotByIndex(t *testing.T) {
	f := New(nil)
	a := newFakeBackend(0)
	b := newFakeBackend(1)
	f.AddMiner(a)
	f.AddMiner(b)
	f.Start()

	a.setHealth(model.DeviceHealth{Status: model.Healthy})
	b.setHealth(model.DeviceHealth{Status: model.Failed})

	healths := f.DeviceHealths()
	require.Len(t, healths, 2)

	byIndex := make(map[int]model.HealthStatus)
	for _, h := range healths {
		byIndex[h.DeviceIndex] = h.Health.Status
	}
	require.Equal(t, model.Healthy, byIndex[0])
	require.Equal(t, model.Failed, byIndex[1])
}

func TestShareCounters(t *testing.T) {
	f := New(nil)
	f.RecordAccepted()
	f.RecordAccepted()
	f.RecordRejected()
	f.RecordStale()

	require.Equal(t, uint64(2), f.AcceptedShares())
	require.Equal(t, uint64(1), f.RejectedShares())
	require.Equal(t, uint64(1), f.StaleShares())
}
