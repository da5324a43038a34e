// Package model holds the data types shared between the hash primitive,
// device backends, the farm coordinator, and the pool client: work
// packages, solutions, hash-rate snapshots, and device health.
package model

// Hash256 is a 32-byte hash, compared big-endian lexicographically
// against a target.
type Hash256 [32]byte

// Nonce is the 64-bit value patched into the last 8 bytes of a header.
type Nonce uint64

// ScratchPadWords is the size of a ScratchPad in 64-bit words (64 KiB).
const ScratchPadWords = 8192

// ScratchPad is the per-hash working buffer, reused across invocations
// by a single CPU thread or GPU work-item.
type ScratchPad [ScratchPadWords]uint64

// InputSize is the TOS Hash V3 header size in bytes.
const InputSize = 112

// HashSize is the TOS Hash V3 output size in bytes.
const HashSize = 32

// MeetsTarget reports whether hash is a solution for target: hash <=
// target, compared byte-by-byte, most significant byte first. Equal
// hashes count as solutions.
func MeetsTarget(hash, target Hash256) bool {
	for i := 0; i < HashSize; i++ {
		if hash[i] < target[i] {
			return true
		}
		if hash[i] > target[i] {
			return false
		}
	}
	return true
}

// HexString renders a Hash256 as lowercase hex.
func (h Hash256) HexString() string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, 64)
	for _, b := range h {
		out = append(out, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return string(out)
}

// DeviceType identifies a mining backend's hardware class.
type DeviceType int

const (
	DeviceCPU DeviceType = iota
	DeviceOpenCL
	DeviceCUDA
)

func (t DeviceType) String() string {
	switch t {
	case DeviceCPU:
		return "cpu"
	case DeviceOpenCL:
		return "opencl"
	case DeviceCUDA:
		return "cuda"
	default:
		return "unknown"
	}
}

// DeviceDescriptor identifies one compute device in the fleet.
type DeviceDescriptor struct {
	Type DeviceType
	// Index is the device's position within the farm's fleet.
	Index int
	Name  string

	TotalMemory  uint64
	ComputeUnits int

	// OpenCL addressing.
	CLPlatformIndex int
	CLDeviceIndex   int

	// CUDA addressing.
	CUDADeviceIndex   int
	CUDAComputeMajor  int
	CUDAComputeMinor  int
}
