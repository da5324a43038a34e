package device

import (
	"errors"
	"sync"
	"testing"

	"github.com/tos-network/tosminer/internal/model"
)

// TestGPUPipelineRampsUpThenReturnsCandidates exercises the depth-ramp:
// the first `depth` calls only enqueue (no candidates yet, since no
// batch has completed), and the call after that starts returning the
// oldest batch's results.
func TestGPUPipelineRampsUpThenReturnsCandidates(t *testing.T) {
	p := newGPUPipeline(softwareKernel{}, 2, 32)
	var header [model.InputSize]byte

	for i := 0; i < p.depth; i++ {
		candidates, err := p.step(header, allOnesTarget, uint64(i)*32)
		if err != nil {
			t.Fatalf("step %d returned an error: %v", i, err)
		}
		if candidates != nil {
			t.Fatalf("step %d returned candidates during ramp-up, want nil", i)
		}
	}

	candidates, err := p.step(header, allOnesTarget, uint64(p.depth)*32)
	if err != nil {
		t.Fatalf("step returned an error: %v", err)
	}
	if len(candidates) != 32 {
		t.Fatalf("step returned %d candidates, want 32", len(candidates))
	}
}

func TestGPUPipelineClampsDepth(t *testing.T) {
	p := newGPUPipeline(softwareKernel{}, 0, 16)
	if p.depth != minGPUBuffers {
		t.Fatalf("depth = %d, want clamped to %d", p.depth, minGPUBuffers)
	}

	p = newGPUPipeline(softwareKernel{}, 100, 16)
	if p.depth != maxGPUBuffers {
		t.Fatalf("depth = %d, want clamped to %d", p.depth, maxGPUBuffers)
	}
}

func TestGPUPipelineDrainDiscardsInFlightBatches(t *testing.T) {
	p := newGPUPipeline(softwareKernel{}, 2, 16)
	var header [model.InputSize]byte

	// Prime the pipeline with an in-flight batch.
	if _, err := p.step(header, allOnesTarget, 0); err != nil {
		t.Fatalf("step returned an error: %v", err)
	}

	p.drain()
	p.mu.Lock()
	remaining := len(p.inFlight)
	p.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("drain left %d batches in flight, want 0", remaining)
	}
}

// recordingKernel records the startNonce/globalSize of every batch it
// is asked to execute, so a test can assert the ranges handed to
// concurrent buffers are disjoint and contiguous.
type recordingKernel struct {
	mu     sync.Mutex
	starts []uint64
}

func (k *recordingKernel) executeBatch(header [model.InputSize]byte, target model.Hash256, startNonce uint64, globalSize int) (batchOutput, error) {
	k.mu.Lock()
	k.starts = append(k.starts, startNonce)
	k.mu.Unlock()
	return batchOutput{}, nil
}

// TestGPUPipelineStepsProduceDisjointContiguousNonceRanges drives step()
// the way mineLoop does: each call's startNonce argument advances by
// exactly globalSize (the backend's reported batchWidth) from the
// previous call. No two buffers should ever be asked to search the
// same nonce range, and the ranges actually issued should tile the
// nonce space with no gaps.
func TestGPUPipelineStepsProduceDisjointContiguousNonceRanges(t *testing.T) {
	const globalSize = 64
	const depth = 3
	const calls = 10

	kernel := &recordingKernel{}
	p := newGPUPipeline(kernel, depth, globalSize)
	var header [model.InputSize]byte

	nonce := uint64(0)
	for i := 0; i < calls; i++ {
		if _, err := p.step(header, allOnesTarget, nonce); err != nil {
			t.Fatalf("step %d returned an error: %v", i, err)
		}
		nonce += globalSize
	}
	p.drain()

	kernel.mu.Lock()
	starts := append([]uint64(nil), kernel.starts...)
	kernel.mu.Unlock()
	// In-flight batches execute concurrently, so the kernel records them
	// in completion order; compare the issued ranges in nonce order.
	sort.Slice(starts, func(a, b int) bool { return starts[a] < starts[b] })

	seen := make(map[uint64]bool)
	for _, s := range starts {
		if seen[s] {
			t.Fatalf("startNonce %d was issued to more than one batch", s)
		}
		seen[s] = true
	}
	for i, s := range starts {
		want := uint64(i) * globalSize
		if s != want {
			t.Fatalf("batch %d got startNonce %d, want %d (contiguous, no gaps)", i, s, want)
		}
	}
}

type erroringKernel struct{}

func (erroringKernel) executeBatch(header [model.InputSize]byte, target model.Hash256, startNonce uint64, globalSize int) (batchOutput, error) {
	return batchOutput{}, errors.New("boom")
}

func TestGPUPipelinePropagatesKernelError(t *testing.T) {
	p := newGPUPipeline(erroringKernel{}, 2, 16)
	var header [model.InputSize]byte

	for i := 0; i < p.depth; i++ {
		if _, err := p.step(header, allOnesTarget, uint64(i)*16); err != nil {
			t.Fatalf("step %d during ramp-up returned an error: %v", i, err)
		}
	}

	if _, err := p.step(header, allOnesTarget, uint64(p.depth)*16); err == nil {
		t.Fatalf("expected step to propagate the kernel error once a failed batch is awaited")
	}
}

func TestBatchOutputCandidatesCapsAtMaxOutputs(t *testing.T) {
	out := batchOutput{Count: maxOutputs + 10}
	if got := len(out.candidates()); got != maxOutputs {
		t.Fatalf("candidates() returned %d entries, want capped at %d", got, maxOutputs)
	}
}
