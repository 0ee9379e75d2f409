package curve

import (
	"github.com/holiman/uint256"

	"cpswap/internal/model"
)

func mul(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
}

// ceilDiv panics on a zero denominator; callers check it first.
func ceilDiv(numerator, denominator *uint256.Int) *uint256.Int {
	if denominator.IsZero() {
		panic("curve: ceilDiv by zero")
	}
	quotient, remainder := new(uint256.Int).DivMod(numerator, denominator, new(uint256.Int))
	if !remainder.IsZero() {
		quotient.AddUint64(quotient, 1)
	}
	return quotient
}

func toUint64(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, model.ErrArithmeticOverflow
	}
	return v.Uint64(), nil
}

// Invariant returns k = reserve0 * reserve1 without truncation.
func Invariant(reserve0, reserve1 uint64) *uint256.Int {
	return mul(reserve0, reserve1)
}
