package device

import (
	"testing"

	"github.com/tos-network/tosminer/internal/model"
)

func TestOpenCLBackendInitDefaultsGlobalWorkSizeAndBufferCount(t *testing.T) {
	o := NewOpenCLBackend(nil, 0, defaultTestDescriptor(), OpenCLBackendConfig{})
	if !o.Init() {
		t.Fatalf("Init must succeed in the software-kernel implementation")
	}
	if o.cfg.GlobalWorkSize != defaultOpenCLGlobalWorkSize {
		t.Fatalf("GlobalWorkSize = %d, want default %d", o.cfg.GlobalWorkSize, defaultOpenCLGlobalWorkSize)
	}
	if o.cfg.BufferCount != minGPUBuffers {
		t.Fatalf("BufferCount = %d, want default %d", o.cfg.BufferCount, minGPUBuffers)
	}
}

func TestOpenCLBackendBatchWidthMatchesGlobalWorkSize(t *testing.T) {
	o := NewOpenCLBackend(nil, 0, defaultTestDescriptor(), OpenCLBackendConfig{GlobalWorkSize: 8192})
	if got, want := o.batchWidth(), uint64(8192); got != want {
		t.Fatalf("batchWidth() = %d, want %d", got, want)
	}
}

func TestOpenCLBackendRunBatchDelegatesToPipeline(t *testing.T) {
	o := NewOpenCLBackend(nil, 0, defaultTestDescriptor(), OpenCLBackendConfig{GlobalWorkSize: 32, BufferCount: 2})
	if !o.Init() {
		t.Fatalf("Init failed")
	}
	defer o.close()

	var header [model.InputSize]byte
	// Ramp up: the first BufferCount calls enqueue without returning
	// candidates yet.
	for i := 0; i < o.cfg.BufferCount; i++ {
		candidates, err := o.runBatch(header, allOnesTarget, uint64(i)*32)
		if err != nil {
			t.Fatalf("runBatch %d returned an error: %v", i, err)
		}
		if candidates != nil {
			t.Fatalf("runBatch %d returned candidates during ramp-up", i)
		}
	}

	candidates, err := o.runBatch(header, allOnesTarget, uint64(o.cfg.BufferCount)*32)
	if err != nil {
		t.Fatalf("runBatch returned an error: %v", err)
	}
	if len(candidates) != 32 {
		t.Fatalf("runBatch returned %d candidates, want 32 against the weakest target", len(candidates))
	}
}
