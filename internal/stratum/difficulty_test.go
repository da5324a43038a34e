package stratum

import (
	"math/big"
	"testing"

	"github.com/tos-network/tosminer/internal/model"
)

func bigIntToHash256(v *big.Int) model.Hash256 {
	var out model.Hash256
	b := v.Bytes()
	if len(b) > len(out) {
		b = b[len(b)-len(out):]
	}
	copy(out[len(out)-len(b):], b)
	return out
}

// baseTargetInt mirrors baseTarget's value as a big.Int: 0xFFFF shifted
// into byte positions [4,6) of a 32-byte big-endian number.
func baseTargetInt() *big.Int {
	v := big.NewInt(0xFFFF)
	return v.Lsh(v, 8*uint(model.HashSize-6))
}

func TestDifficultyToTargetAtOneEqualsBaseTarget(t *testing.T) {
	got := DifficultyToTarget(1.0, nil)
	if got != baseTarget {
		t.Fatalf("DifficultyToTarget(1.0) = %x, want base target %x", got, baseTarget)
	}
}

func TestDifficultyToTargetNonPositiveReturnsAllOnes(t *testing.T) {
	for _, d := range []float64{0, -1, -100} {
		got := DifficultyToTarget(d, nil)
		if got != allOnesTarget {
			t.Fatalf("DifficultyToTarget(%v) = %x, want all-ones target", d, got)
		}
	}
}

func TestDifficultyToTargetBelowOneReturnsBaseTarget(t *testing.T) {
	got := DifficultyToTarget(0.5, nil)
	if got != baseTarget {
		t.Fatalf("DifficultyToTarget(0.5) = %x, want base target (clamped)", got)
	}
}

// For exact powers of two, dividing the base target by difficulty is an
// exact right shift with no remainder, so the long-division result must
// match a plain big.Int shift of the base target value.
func TestDifficultyToTargetMatchesExactShiftForPowersOfTwo(t *testing.T) {
	cases := []struct {
		difficulty float64
		shiftBits  uint
	}{
		{2, 1},
		{4, 2},
		{256, 8},
		{65536, 16},
		{1 << 20, 20},
	}
	for _, c := range cases {
		want := bigIntToHash256(new(big.Int).Rsh(baseTargetInt(), c.shiftBits))
		got := DifficultyToTarget(c.difficulty, nil)
		if got != want {
			t.Fatalf("DifficultyToTarget(%v) = %x, want %x", c.difficulty, got, want)
		}
	}
}

func TestDifficultyToTargetIsMonotonicallyDecreasing(t *testing.T) {
	prev := DifficultyToTarget(1, nil)
	for _, d := range []float64{2, 10, 100, 1000, 1e6, 1e9} {
		cur := DifficultyToTarget(d, nil)
		if !model.MeetsTarget(cur, prev) {
			t.Fatalf("target for difficulty %v (%x) is not smaller than or equal to the previous target (%x)", d, cur, prev)
		}
		prev = cur
	}
}

func TestDifficultyToTargetClampsAboveMaximum(t *testing.T) {
	atMax := DifficultyToTarget(maxDifficulty, nil)
	beyondMax := DifficultyToTarget(maxDifficulty*1000, nil)
	if atMax != beyondMax {
		t.Fatalf("difficulty beyond the maximum must clamp to the same target as the maximum itself")
	}
}

func TestDifficultyToTargetNeverProducesAllZeros(t *testing.T) {
	// An extremely high (but still <= max) difficulty must not collapse
	// the target to all zeros, which would make every hash unsolvable.
	got := DifficultyToTarget(maxDifficulty, nil)
	if got == (model.Hash256{}) {
		t.Fatalf("DifficultyToTarget(maxDifficulty) produced an all-zero target")
	}
}
