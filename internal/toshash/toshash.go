// Package toshash implements the TOS Hash V3 memory-hard proof-of-work
// primitive: a Blake3-seeded 64 KiB scratchpad run through sequential
// and strided mixing passes, folded and re-hashed to a 32-byte digest.
package toshash

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"github.com/tos-network/tosminer/internal/model"
)

const (
	memorySize    = model.ScratchPadWords
	mixingRounds  = 8
	memoryPasses  = 4
	mixConst      = 0x517cc1b727220a95
)

var strides = [4]int{1, 64, 256, 1024}

func rotl64(x uint64, r uint) uint64 {
	r &= 63
	return (x << r) | (x >> (64 - r))
}

func rotr64(x uint64, r uint) uint64 {
	r &= 63
	return (x >> r) | (x << (64 - r))
}

// mix is the single round function shared by every stage: a 64-bit
// ARX-style mixer parameterized by a round index that rotates its
// shift amounts, so consecutive rounds decorrelate even when their
// inputs are related.
func mix(a, b uint64, round int) uint64 {
	rot := uint((round * 7) % 64)
	x := a + b
	y := a ^ rotl64(b, rot)
	z := x * mixConst
	return z ^ rotr64(y, rot/2)
}

// Hash computes the TOS Hash V3 digest of a 112-byte input, using
// scratch as scratchpad storage. scratch may be reused across calls
// from the same goroutine; it is fully overwritten each call.
func Hash(input *[model.InputSize]byte, scratch *model.ScratchPad) model.Hash256 {
	stage1Init(input[:], scratch)
	stage2Mix(scratch)
	stage3Strided(scratch)
	return stage4Finalize(scratch)
}

func stage1Init(input []byte, scratch *model.ScratchPad) {
	seed := blake3.Sum256(input)

	var state [4]uint64
	for i := 0; i < 4; i++ {
		state[i] = binary.LittleEndian.Uint64(seed[i*8 : i*8+8])
	}

	for i := 0; i < memorySize; i++ {
		idx := i % 4
		state[idx] = mix(state[idx], state[(idx+1)%4], i)
		scratch[i] = state[idx]
	}
}

func stage2Mix(scratch *model.ScratchPad) {
	last := memorySize - 1
	for pass := 0; pass < memoryPasses; pass++ {
		if pass%2 == 0 {
			carry := scratch[last]
			for i := 0; i < memorySize; i++ {
				prev := scratch[last]
				if i > 0 {
					prev = scratch[i-1]
				}
				scratch[i] = mix(scratch[i], prev^carry, pass)
				carry = scratch[i]
			}
		} else {
			carry := scratch[0]
			for i := last; i >= 0; i-- {
				next := scratch[0]
				if i < last {
					next = scratch[i+1]
				}
				scratch[i] = mix(scratch[i], next^carry, pass)
				carry = scratch[i]
			}
		}
	}
}

func stage3Strided(scratch *model.ScratchPad) {
	for round := 0; round < mixingRounds; round++ {
		stride := strides[round%4]
		for i := 0; i < memorySize; i++ {
			j := (i + stride) % memorySize
			k := (i + 2*stride) % memorySize
			scratch[i] = mix(scratch[i], scratch[j]^scratch[k], round)
		}
	}
}

func stage4Finalize(scratch *model.ScratchPad) model.Hash256 {
	var folded [4]uint64
	for i := 0; i < memorySize; i++ {
		folded[i%4] ^= scratch[i]
	}

	var bytes [32]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(bytes[i*8:i*8+8], folded[i])
	}

	return model.Hash256(blake3.Sum256(bytes[:]))
}

// Search patches nonce into a copy of header and returns the resulting
// hash together with whether it meets target. scratch is caller-owned
// working storage.
func Search(header *[model.InputSize]byte, target model.Hash256, nonce uint64, scratch *model.ScratchPad) (model.Hash256, bool) {
	patched := *header
	for i := 0; i < 8; i++ {
		patched[model.InputSize-8+i] = byte(nonce >> (8 * i))
	}

	h := Hash(&patched, scratch)
	return h, model.MeetsTarget(h, target)
}

// Verify recomputes the hash for solution.Nonce against header and
// confirms both that it equals solution.Hash and that it meets target.
// Always allocates a fresh scratchpad since verification happens off
// the hot mining loop. Device backends verify candidates through their
// own pooled-scratchpad path instead (device.verifyNonce).
func Verify(header *[model.InputSize]byte, target model.Hash256, solution model.Solution) bool {
	var scratch model.ScratchPad
	h, meets := Search(header, target, solution.Nonce, &scratch)
	return meets && h == solution.Hash
}
