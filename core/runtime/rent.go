package runtime

import (
	"math"

	"github.com/holiman/uint256"
)

// AccountStorageOverhead is the per-account byte cost charged on top of the
// allocated data space.
const AccountStorageOverhead = 128

// Rent prices account storage. An allocation must be funded with at least
// MinimumBalance lamports.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
}

// DefaultRent mirrors the cluster defaults.
func DefaultRent() Rent {
	return Rent{LamportsPerByteYear: 3480, ExemptionYears: 2}
}

// MinimumBalance returns the rent-exempt minimum for space bytes, saturating at
// the largest representable amount.
func (r Rent) MinimumBalance(space uint64) uint64 {
	total := new(uint256.Int).SetUint64(space)
	total.Add(total, uint256.NewInt(AccountStorageOverhead))
	total.Mul(total, uint256.NewInt(r.LamportsPerByteYear))
	total.Mul(total, uint256.NewInt(r.ExemptionYears))
	if !total.IsUint64() {
		return math.MaxUint64
	}
	return total.Uint64()
}

// addLamports adds b to a and reports overflow.
func addLamports(a, b uint64) (uint64, bool) {
	sum, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !sum.IsUint64() {
		return 0, false
	}
	return sum.Uint64(), true
}
