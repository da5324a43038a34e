package device

import (
	"sync"

	"github.com/tos-network/tosminer/internal/model"
	"github.com/tos-network/tosminer/internal/toshash"
)

// maxOutputs is the fixed capacity of a GPU batch's output buffer:
// [u32 count | (u32 nonce_lo, u32 nonce_hi) * maxOutputs].
const maxOutputs = 64

// minGPUBuffers and maxGPUBuffers bound the double/multi-buffered
// pipeline depth each GPU backend may be configured with.
const (
	minGPUBuffers = 2
	maxGPUBuffers = 4
)

// kernelSource is embedded as a string constant the way the real
// OpenCL/CUDA source would be, even though this module executes the
// search in software: kernel upload and compilation for a specific
// vendor driver are an explicit non-core concern (spec §1), so the
// pipeline scheduling below — which is the part this core owns — is
// implemented against an abstract kernelExecutor rather than against
// a real driver binding.
const kernelSource = `
// one work-item computes one TOS Hash V3 digest:
//   nonce = start_nonce + global_id
//   hash  = toshash(header with nonce patched in)
//   on hash <= target: atomic_inc(count); if count < MAX_OUTPUTS: outputs[count] = nonce
// local/block size is fixed at 1: each item needs the full 64KiB
// scratchpad in device-local memory, so no two items may share one.
`

// kernelExecutor is the seam a real OpenCL or CUDA driver binding would
// sit behind. It executes one batch of globalSize hash attempts
// starting at startNonce and returns the raw output buffer.
type kernelExecutor interface {
	executeBatch(header [model.InputSize]byte, target model.Hash256, startNonce uint64, globalSize int) (batchOutput, error)
}

// batchOutput mirrors the wire format a GPU kernel writes back: a
// count and up to maxOutputs candidate nonces.
type batchOutput struct {
	Count  uint32
	Nonces [maxOutputs]uint64
}

// candidates returns the nonces actually present in the buffer,
// respecting the maxOutputs cap even if Count overflowed it.
func (o batchOutput) candidates() []uint64 {
	n := int(o.Count)
	if n > maxOutputs {
		n = maxOutputs
	}
	return o.Nonces[:n]
}

// softwareKernel runs the search entirely on the host CPU, standing in
// for a real GPU kernel. Each "work-item" runs the reference hash with
// its own scratchpad, exactly as a real kernel would need one scratchpad
// per lane since local/block size is 1.
type softwareKernel struct{}

func (softwareKernel) executeBatch(header [model.InputSize]byte, target model.Hash256, startNonce uint64, globalSize int) (batchOutput, error) {
	var out batchOutput
	var scratch model.ScratchPad
	for i := 0; i < globalSize; i++ {
		nonce := startNonce + uint64(i)
		if _, ok := toshash.Search(&header, target, nonce, &scratch); ok {
			if out.Count < maxOutputs {
				out.Nonces[out.Count] = nonce
			}
			out.Count++
		}
	}
	return out, nil
}

// inFlightBatch tracks one outstanding enqueue in the double/multi
// buffered pipeline.
type inFlightBatch struct {
	bufferIndex int
	startNonce  uint64
	resultCh    chan kernelResult
}

type kernelResult struct {
	output batchOutput
	err    error
}

// gpuPipeline implements the §4.2 double/multi-buffered GPU scheduling:
// up to depth batches in flight across a round-robin set of buffers,
// waiting on the oldest batch's completion rather than a global device
// barrier so host-side processing overlaps device execution.
type gpuPipeline struct {
	exec       kernelExecutor
	depth      int
	globalSize int

	mu       sync.Mutex
	inFlight []*inFlightBatch
	nextBuf  int
}

func newGPUPipeline(exec kernelExecutor, depth, globalSize int) *gpuPipeline {
	if depth < minGPUBuffers {
		depth = minGPUBuffers
	}
	if depth > maxGPUBuffers {
		depth = maxGPUBuffers
	}
	return &gpuPipeline{exec: exec, depth: depth, globalSize: globalSize}
}

// step advances the pipeline by one call's worth of nonce space
// (globalSize), using startNonce as the base for whatever batch it
// enqueues this call. While ramping up to full depth, each call only
// enqueues a new batch and returns no candidates; once depth batches
// are in flight, each call pops the oldest, waits for it, and enqueues
// one replacement at startNonce. Since the caller advances startNonce
// by exactly globalSize between calls (mineLoop's batchWidth), this
// keeps every buffer's range contiguous and disjoint instead of
// re-searching the same nonces across concurrent buffers.
func (p *gpuPipeline) step(header [model.InputSize]byte, target model.Hash256, startNonce uint64) ([]uint64, error) {
	p.mu.Lock()

	if len(p.inFlight) < p.depth {
		p.enqueueLocked(header, target, startNonce)
		p.mu.Unlock()
		return nil, nil
	}

	oldest := p.inFlight[0]
	p.inFlight = p.inFlight[1:]
	p.enqueueLocked(header, target, startNonce)
	p.mu.Unlock()

	result := <-oldest.resultCh
	if result.err != nil {
		return nil, result.err
	}
	return result.output.candidates(), nil
}

// enqueueLocked starts one batch at startNonce. Callers must hold p.mu.
func (p *gpuPipeline) enqueueLocked(header [model.InputSize]byte, target model.Hash256, startNonce uint64) {
	batch := &inFlightBatch{
		bufferIndex: p.nextBuf,
		startNonce:  startNonce,
		resultCh:    make(chan kernelResult, 1),
	}
	p.nextBuf = (p.nextBuf + 1) % p.depth
	p.inFlight = append(p.inFlight, batch)

	exec := p.exec
	go func() {
		out, err := exec.executeBatch(header, target, batch.startNonce, p.globalSize)
		batch.resultCh <- kernelResult{output: out, err: err}
	}()
}

// drain waits for every in-flight batch to complete and discards the
// results: used when new work supersedes batches still executing
// against the previous job.
func (p *gpuPipeline) drain() {
	p.mu.Lock()
	inFlight := p.inFlight
	p.inFlight = nil
	p.mu.Unlock()

	for _, batch := range inFlight {
		<-batch.resultCh
	}
}
