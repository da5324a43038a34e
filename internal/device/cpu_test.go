package device

import (
	"testing"

	"github.com/tos-network/tosminer/internal/model"
)

var allOnesTarget = func() model.Hash256 {
	var t model.Hash256
	for i := range t {
		t[i] = 0xFF
	}
	return t
}()

func TestCPUBackendRunBatchCollectsEveryCandidate(t *testing.T) {
	c := NewCPUBackend(nil, 0)
	var header [model.InputSize]byte

	candidates, err := c.runBatch(header, allOnesTarget, 0)
	if err != nil {
		t.Fatalf("runBatch returned an error: %v", err)
	}
	// allOnesTarget is met by essentially every hash, so every nonce in
	// the batch should come back as a candidate, not just the first.
	if len(candidates) != cpuBatchWidth {
		t.Fatalf("runBatch returned %d candidates, want %d against the weakest target", len(candidates), cpuBatchWidth)
	}
	seen := make(map[uint64]bool)
	for _, n := range candidates {
		seen[n] = true
	}
	for i := uint64(0); i < cpuBatchWidth; i++ {
		if !seen[i] {
			t.Fatalf("nonce %d missing from runBatch candidates", i)
		}
	}
}

func TestCPUBackendRunBatchAgainstImpossibleTarget(t *testing.T) {
	c := NewCPUBackend(nil, 0)
	var header [model.InputSize]byte
	zeroTarget := model.Hash256{}

	candidates, err := c.runBatch(header, zeroTarget, 0)
	if err != nil {
		t.Fatalf("runBatch returned an error: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("runBatch against an all-zero target returned %d candidates, want 0", len(candidates))
	}
}

func TestCPUBackendBatchWidthMatchesRunBatch(t *testing.T) {
	c := NewCPUBackend(nil, 0)
	if c.batchWidth() != cpuBatchWidth {
		t.Fatalf("batchWidth() = %d, want %d", c.batchWidth(), cpuBatchWidth)
	}
}

func TestEnumerateCPUDevicesDefaultsToNumCPU(t *testing.T) {
	devices := EnumerateCPUDevices(0)
	if len(devices) == 0 {
		t.Fatalf("EnumerateCPUDevices(0) returned no devices")
	}
	for i, d := range devices {
		if d.Index != i {
			t.Fatalf("device %d has Index %d, want %d", i, d.Index, i)
		}
		if d.Type != model.DeviceCPU {
			t.Fatalf("device %d has Type %v, want DeviceCPU", i, d.Type)
		}
	}
}

func TestEnumerateCPUDevicesHonorsExplicitCount(t *testing.T) {
	devices := EnumerateCPUDevices(3)
	if len(devices) != 3 {
		t.Fatalf("EnumerateCPUDevices(3) returned %d devices, want 3", len(devices))
	}
}

func TestCPUBackendInitAlwaysSucceeds(t *testing.T) {
	c := NewCPUBackend(nil, 0)
	if !c.Init() {
		t.Fatalf("CPUBackend.Init() must always succeed")
	}
}
