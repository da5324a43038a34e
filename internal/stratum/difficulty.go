package stratum

import (
	"math/big"

	"go.uber.org/zap"

	"github.com/tos-network/tosminer/internal/model"
)

// maxDifficulty is the clamp ceiling applied before conversion; pools
// advertising an absurd difficulty get the smallest (hardest) target
// this client will compute rather than an arithmetic overflow.
const maxDifficulty = 1e15

// baseTarget is the pdiff-1 target: 0x00000000FFFF followed by zeros,
// 32 bytes big-endian.
var baseTarget = func() model.Hash256 {
	var t model.Hash256
	t[4] = 0xFF
	t[5] = 0xFF
	return t
}()

var allOnesTarget = func() model.Hash256 {
	var t model.Hash256
	for i := range t {
		t[i] = 0xFF
	}
	return t
}()

const difficultyScale = 4294967296 // 2^32

// DifficultyToTarget converts a pool-advertised difficulty into a
// 32-byte target using the §4.4.6 long-division algorithm: the divisor
// is scaled by 2^32 and the 32-byte base target (extended with 4 zero
// bytes) is divided through byte-by-byte with a big.Int running
// remainder, since the magnitudes involved exceed 64 bits.
func DifficultyToTarget(difficulty float64, logger *zap.Logger) model.Hash256 {
	if difficulty <= 0 {
		return allOnesTarget
	}
	if difficulty > maxDifficulty {
		if logger != nil {
			logger.Warn("pool difficulty exceeds maximum, clamping",
				zap.Float64("difficulty", difficulty), zap.Float64("max", maxDifficulty))
		}
		difficulty = maxDifficulty
	}
	if difficulty < 1 {
		return baseTarget
	}
	return divideBaseByDifficulty(difficulty)
}

var (
	big255 = big.NewInt(255)
)

func divideBaseByDifficulty(difficulty float64) model.Hash256 {
	scaled := new(big.Float).Mul(big.NewFloat(difficulty), big.NewFloat(difficultyScale))
	divisor, _ := scaled.Int(nil)
	if divisor.Sign() == 0 {
		divisor = big.NewInt(1)
	}

	rem := new(big.Int)
	q := new(big.Int)
	r := new(big.Int)

	var target model.Hash256
	for i := 0; i < 36; i++ {
		var dividendByte int64
		if i == 4 || i == 5 {
			dividendByte = 0xFF
		}
		rem.Lsh(rem, 8)
		rem.Or(rem, big.NewInt(dividendByte))

		q.DivMod(rem, divisor, r)
		rem.Set(r)

		if idx := i - 4; idx >= 0 && idx < model.HashSize {
			if q.Cmp(big255) > 0 {
				target[idx] = 255
			} else {
				target[idx] = byte(q.Int64())
			}
		}
	}

	if target == (model.Hash256{}) {
		target[model.HashSize-1] = 1
	}
	return target
}
