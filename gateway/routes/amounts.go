package routes

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// SOL amounts carry nine decimals of lamports.
const lamportsDecimals = 9

func lamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -lamportsDecimals)
}

// solToLamports converts a SOL amount to lamports. Fractions below one lamport
// are rejected rather than rounded.
func solToLamports(sol decimal.Decimal) (uint64, error) {
	if sol.IsNegative() {
		return 0, fmt.Errorf("negative amount %s", sol)
	}
	lamports := sol.Shift(lamportsDecimals)
	if !lamports.Equal(lamports.Truncate(0)) {
		return 0, fmt.Errorf("amount %s is finer than one lamport", sol)
	}
	value := lamports.BigInt()
	if !value.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows", sol)
	}
	return value.Uint64(), nil
}
