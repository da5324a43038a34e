package device

import (
	"sync"
	"testing"
	"time"

	"github.com/tos-network/tosminer/internal/model"
)

// weakHeaderWork returns a WorkPackage whose target accepts essentially
// every hash, so a running CPU backend reports solutions quickly.
func weakHeaderWork(jobID string, totalDevices int) model.WorkPackage {
	return model.WorkPackage{
		JobID:        jobID,
		Target:       allOnesTarget,
		TotalDevices: totalDevices,
		Valid:        true,
	}
}

func TestMineLoopReportsSolutionsAndRejectsDuplicates(t *testing.T) {
	c := NewCPUBackend(nil, 0)
	if !c.Init() {
		t.Fatalf("Init failed")
	}

	var reported []model.Solution
	done := make(chan struct{})
	var closeOnce sync.Once
	c.SetSolutionCallback(func(sol model.Solution, jobID string) {
		reported = append(reported, sol)
		if len(reported) >= 3 {
			closeOnce.Do(func() { close(done) })
		}
	})

	c.SetWork(weakHeaderWork("job-1", 1))
	c.Start()
	defer c.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for solutions, got %d", len(reported))
	}

	seen := make(map[uint64]bool)
	for _, sol := range reported {
		if seen[sol.Nonce] {
			t.Fatalf("nonce %d reported more than once", sol.Nonce)
		}
		seen[sol.Nonce] = true
	}
}

func TestMineLoopClearsNoncesOnJobChange(t *testing.T) {
	c := NewCPUBackend(nil, 0)
	c.Init()

	c.SetWork(weakHeaderWork("job-1", 1))
	if dup := c.nonces.CheckAndAdd("job-1", 5); dup {
		t.Fatalf("nonce 5 should not start as a duplicate")
	}

	c.SetWork(weakHeaderWork("job-2", 1))
	if dup := c.nonces.CheckAndAdd("job-2", 5); dup {
		t.Fatalf("switching job_id must clear the submitted-nonce set")
	}
}

func TestMineLoopEnforcesDeviceRangeForMultiDeviceWork(t *testing.T) {
	c := NewCPUBackend(nil, 1) // device index 1 of 4
	c.Init()

	work := weakHeaderWork("job-1", 4)
	outOfRangeNonce := work.DeviceStartNonce(0) // belongs to device 0, not device 1

	var reported []model.Solution
	c.SetSolutionCallback(func(sol model.Solution, jobID string) {
		reported = append(reported, sol)
	})

	c.verifyAndReport(work, outOfRangeNonce)
	if len(reported) != 0 {
		t.Fatalf("a nonce outside device 1's range must not be reported, got %d reports", len(reported))
	}

	inRangeNonce := work.DeviceStartNonce(1)
	c.verifyAndReport(work, inRangeNonce)
	if len(reported) != 1 {
		t.Fatalf("a nonce inside device 1's range must be reported, got %d reports", len(reported))
	}
}

func TestPauseStopsReportingUntilResume(t *testing.T) {
	c := NewCPUBackend(nil, 0)
	c.Init()

	var count int
	c.SetSolutionCallback(func(sol model.Solution, jobID string) { count++ })

	c.SetWork(weakHeaderWork("job-1", 1))
	c.Pause()
	c.Start()
	defer c.Stop()

	time.Sleep(200 * time.Millisecond)
	if count != 0 {
		t.Fatalf("a paused backend must not report solutions, got %d", count)
	}

	c.Resume()
	deadline := time.After(5 * time.Second)
	for count == 0 {
		select {
		case <-deadline:
			t.Fatalf("backend never reported a solution after Resume")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
