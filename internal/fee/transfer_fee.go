// Package fee predicts the transfer fee a mint deducts when tokens move, and sizes the gross
// amount needed to deliver a given net amount.
package fee

import (
	"fmt"

	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"

	"cpswap/internal/model"
)

// MaxBasisPoints is 100% expressed in basis points.
const MaxBasisPoints = 10_000

var oneInBasisPoints = uint256.NewInt(MaxBasisPoints)

// EpochFee returns the fee schedule in force at epoch.
func EpochFee(cfg model.TransferFeeConfig, epoch uint64) model.TransferFee {
	if epoch >= cfg.NewerTransferFee.Epoch {
		return cfg.NewerTransferFee
	}
	return cfg.OlderTransferFee
}

// Fee computes min(floor(amount * bps / 10000), maximum_fee).
func Fee(tf model.TransferFee, amount uint64) (uint64, error) {
	if tf.BasisPoints > MaxBasisPoints {
		return 0, fmt.Errorf("transfer fee %d bps: %w", tf.BasisPoints, model.ErrInvalidFeeConfig)
	}
	if tf.BasisPoints == 0 || amount == 0 {
		return 0, nil
	}

	raw := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(uint64(tf.BasisPoints)))
	raw.Div(raw, oneInBasisPoints)
	if !raw.IsUint64() {
		return 0, model.ErrArithmeticOverflow
	}
	fee := raw.Uint64()
	if fee > tf.MaximumFee {
		fee = tf.MaximumFee
	}
	return fee, nil
}

// PreFeeAmount returns the smallest gross amount whose transfer nets at least postFeeAmount.
func PreFeeAmount(tf model.TransferFee, postFeeAmount uint64) (uint64, error) {
	switch {
	case tf.BasisPoints > MaxBasisPoints:
		return 0, fmt.Errorf("transfer fee %d bps: %w", tf.BasisPoints, model.ErrInvalidFeeConfig)
	case tf.BasisPoints == 0:
		return postFeeAmount, nil
	case postFeeAmount == 0:
		return 0, nil
	case tf.BasisPoints == MaxBasisPoints:
		return checkedAdd(postFeeAmount, tf.MaximumFee)
	}

	numerator := new(uint256.Int).Mul(uint256.NewInt(postFeeAmount), oneInBasisPoints)
	denominator := new(uint256.Int).Sub(oneInBasisPoints, uint256.NewInt(uint64(tf.BasisPoints)))
	raw := ceilDiv(numerator, denominator)

	// The cap binds once the uncapped fee reaches it; the rate-based amount would overshoot.
	rawFee := new(uint256.Int).Sub(raw, uint256.NewInt(postFeeAmount))
	if rawFee.Cmp(uint256.NewInt(tf.MaximumFee)) >= 0 {
		return checkedAdd(postFeeAmount, tf.MaximumFee)
	}
	if !raw.IsUint64() {
		return 0, model.ErrArithmeticOverflow
	}
	return raw.Uint64(), nil
}

// InverseFee returns the fee to add on top of postFeeAmount so the recipient nets at least
// postFeeAmount after Fee is deducted.
func InverseFee(tf model.TransferFee, postFeeAmount uint64) (uint64, error) {
	pre, err := PreFeeAmount(tf, postFeeAmount)
	if err != nil {
		return 0, err
	}
	return pre - postFeeAmount, nil
}

func ceilDiv(numerator, denominator *uint256.Int) *uint256.Int {
	quotient, remainder := new(uint256.Int).DivMod(numerator, denominator, new(uint256.Int))
	if !remainder.IsZero() {
		quotient.AddUint64(quotient, 1)
	}
	return quotient
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum, overflow := gmath.SafeAdd(a, b)
	if overflow {
		return 0, model.ErrArithmeticOverflow
	}
	return sum, nil
}
