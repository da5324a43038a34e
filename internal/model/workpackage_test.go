package model

import (
	"math"
	"math/big"
	"testing"
	"time"
)

func TestSetHeaderPrefixPadsAndTruncates(t *testing.T) {
	var w WorkPackage
	w.SetHeaderPrefix([]byte{1, 2, 3})
	if w.Header[0] != 1 || w.Header[1] != 2 || w.Header[2] != 3 {
		t.Fatalf("prefix not copied: %v", w.Header[:4])
	}
	for i := 3; i < InputSize; i++ {
		if w.Header[i] != 0 {
			t.Fatalf("byte %d not zero-padded", i)
		}
	}

	long := make([]byte, InputSize+10)
	for i := range long {
		long[i] = 0xAB
	}
	w.SetHeaderPrefix(long)
	for i := 0; i < InputSize; i++ {
		if w.Header[i] != 0xAB {
			t.Fatalf("byte %d not copied from truncated long input", i)
		}
	}
}

func TestSetNonceRoundTrip(t *testing.T) {
	var w WorkPackage
	w.SetNonce(0x1122334455667788)
	if got := w.HeaderNonce(); got != 0x1122334455667788 {
		t.Fatalf("HeaderNonce() = %#x, want %#x", got, 0x1122334455667788)
	}
}

func TestDeviceStartNonceDisjointRanges(t *testing.T) {
	w := WorkPackage{StartNonce: 0, TotalDevices: 4}

	seen := make(map[uint64]bool)
	for i := 0; i < 4; i++ {
		start := w.DeviceStartNonce(i)
		size := w.DeviceRangeSize()
		if seen[start] {
			t.Fatalf("device %d start nonce %d collides with another device", i, start)
		}
		seen[start] = true
		if i > 0 {
			prevStart := w.DeviceStartNonce(i - 1)
			if start < prevStart+size {
				t.Fatalf("device %d range overlaps device %d: start=%d prevStart+size=%d", i, i-1, start, prevStart+size)
			}
		}
	}
}

func TestDeviceStartNonceSingleDeviceIsIdentity(t *testing.T) {
	w := WorkPackage{StartNonce: 12345, TotalDevices: 1}
	if got := w.DeviceStartNonce(0); got != 12345 {
		t.Fatalf("single-device start nonce = %d, want 12345", got)
	}
	if !w.NonceInDeviceRange(math.MaxUint64, 0) {
		t.Fatalf("single device must accept any nonce")
	}
}

func TestDeviceStartNonceClampsOversizedDeviceCount(t *testing.T) {
	w := WorkPackage{StartNonce: 0, TotalDevices: 10000}
	// must not panic and must still produce a usable (nonzero-size) range
	start := w.DeviceStartNonce(0)
	size := w.DeviceRangeSize()
	if size == 0 {
		t.Fatalf("clamped device range collapsed to zero")
	}
	_ = start
}

func TestPartitionSpaceMatchesFloorOfFullNonceSpace(t *testing.T) {
	cases := []int{2, 3, 4, 5, 7, 16, 10000}
	for _, n := range cases {
		got := partitionSpace(n)
		full := new(big.Int).Lsh(big.NewInt(1), 64)
		want := new(big.Int).Div(full, big.NewInt(int64(n)))
		if big.NewInt(0).SetUint64(got).Cmp(want) != 0 {
			t.Fatalf("partitionSpace(%d) = %d, want floor(2^64/%d) = %s", n, got, n, want)
		}
	}
}

func TestNonceInDeviceRangeNearOverflow(t *testing.T) {
	w := WorkPackage{StartNonce: math.MaxUint64 - 100, TotalDevices: 4}
	start := w.DeviceStartNonce(3)
	if !w.NonceInDeviceRange(start, 3) {
		t.Fatalf("device's own start nonce must be in its own range")
	}
	if !w.NonceInDeviceRange(math.MaxUint64, 3) {
		t.Fatalf("the last device's range must reach the top of the nonce space")
	}
}

func TestExtraNonce2HexClampsSizeAndEncodesLittleEndian(t *testing.T) {
	w := WorkPackage{StartNonce: 0x10, ExtraNonce2Size: 4}
	hexStr := w.ExtraNonce2Hex(0x10 + 0x0201)
	if hexStr != "01020000" {
		t.Fatalf("ExtraNonce2Hex = %q, want %q", hexStr, "01020000")
	}

	w.ExtraNonce2Size = 2 // below the [4,8] floor
	hexStr = w.ExtraNonce2Hex(0x10 + 0x0201)
	if len(hexStr) != 8 {
		t.Fatalf("ExtraNonce2Hex with undersized config = %q, want 4 bytes of hex", hexStr)
	}

	w.ExtraNonce2Size = 20 // above the [4,8] ceiling
	hexStr = w.ExtraNonce2Hex(0x10 + 0x0201)
	if len(hexStr) != 16 {
		t.Fatalf("ExtraNonce2Hex with oversized config = %q, want 8 bytes of hex", hexStr)
	}
}

func TestIsStale(t *testing.T) {
	var w WorkPackage
	if w.IsStale(time.Second) {
		t.Fatalf("a zero-value WorkPackage must never be considered stale by age")
	}
}
