package device

import (
	"sync"

	"github.com/tos-network/tosminer/internal/model"
	"github.com/tos-network/tosminer/internal/toshash"
)

// verifyScratchPool lets every device share a pool of scratchpads for
// the CPU-side verification step (distinct from a CPU backend's own
// per-thread search scratchpad), since verification happens off the
// hot search loop and need not be pinned to one goroutine.
var verifyScratchPool = sync.Pool{
	New: func() any { return new(model.ScratchPad) },
}

// verifyNonce recomputes the hash for nonce against work's header on
// the CPU and returns the resulting Solution iff it meets the target.
func verifyNonce(work model.WorkPackage, nonce uint64, deviceIndex int) (model.Solution, bool) {
	scratch := verifyScratchPool.Get().(*model.ScratchPad)
	defer verifyScratchPool.Put(scratch)

	hash, ok := toshash.Search(&work.Header, work.Target, nonce, scratch)
	if !ok {
		return model.Solution{}, false
	}
	return model.Solution{Nonce: nonce, Hash: hash, DeviceIndex: deviceIndex}, true
}
