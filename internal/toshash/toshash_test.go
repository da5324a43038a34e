package toshash

import (
	"testing"

	"github.com/tos-network/tosminer/internal/model"
)

func TestHashDeterministic(t *testing.T) {
	var input [model.InputSize]byte
	for i := range input {
		input[i] = byte(i)
	}

	var scratchA, scratchB model.ScratchPad
	a := Hash(&input, &scratchA)
	b := Hash(&input, &scratchB)

	if a != b {
		t.Fatalf("hash is not deterministic: %x != %x", a, b)
	}
}

func TestHashSensitiveToSampledInputBytes(t *testing.T) {
	var base [model.InputSize]byte
	var scratch model.ScratchPad
	baseline := Hash(&base, &scratch)

	for _, pos := range []int{0, 55, model.InputSize - 1} {
		mutated := base
		mutated[pos] ^= 0x01
		got := Hash(&mutated, &scratch)
		if got == baseline {
			t.Fatalf("flipping byte %d did not change the hash", pos)
		}
	}
}

func TestSearchPatchesNonceIntoLast8Bytes(t *testing.T) {
	var header [model.InputSize]byte
	var scratch model.ScratchPad

	allOnesTarget := model.Hash256{}
	for i := range allOnesTarget {
		allOnesTarget[i] = 0xFF
	}

	hash, ok := Search(&header, allOnesTarget, 0x0102030405060708, &scratch)
	if !ok {
		t.Fatalf("search against the weakest possible target must succeed")
	}

	var viaHeader [model.InputSize]byte = header
	for i := 0; i < 8; i++ {
		viaHeader[model.InputSize-8+i] = byte(uint64(0x0102030405060708) >> (8 * i))
	}
	direct := Hash(&viaHeader, &scratch)
	if hash != direct {
		t.Fatalf("Search result does not match directly hashing the nonce-patched header")
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	var header [model.InputSize]byte
	for i := range header {
		header[i] = byte(i * 3)
	}

	allOnesTarget := model.Hash256{}
	for i := range allOnesTarget {
		allOnesTarget[i] = 0xFF
	}

	var scratch model.ScratchPad
	hash, ok := Search(&header, allOnesTarget, 42, &scratch)
	if !ok {
		t.Fatalf("search against the weakest target must succeed")
	}

	solution := model.Solution{Nonce: 42, Hash: hash}
	if !Verify(&header, allOnesTarget, solution) {
		t.Fatalf("Verify rejected a solution Search itself produced")
	}

	solution.Hash[0] ^= 0x01
	if Verify(&header, allOnesTarget, solution) {
		t.Fatalf("Verify accepted a solution whose hash was tampered with")
	}
}

func TestSearchFailsAgainstAllZeroTarget(t *testing.T) {
	var header [model.InputSize]byte
	narrowTarget := model.Hash256{} // all zero: only a hash of all zero bytes meets it

	var scratch model.ScratchPad
	_, ok := Search(&header, narrowTarget, 1, &scratch)
	if ok {
		t.Fatalf("an all-zero target should essentially never be met by a real hash")
	}
}
