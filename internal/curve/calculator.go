// Package curve implements the constant-product invariant: conversion between LP units and
// reserves, swap outputs and inputs, and the initial liquidity of a pool. All products are
// formed in 256-bit integers and every result is checked back into 64 bits.
package curve

import (
	"fmt"

	"github.com/holiman/uint256"

	"cpswap/internal/model"
)

// LockLpAmount is minted to nobody at pool creation and can never be redeemed.
const LockLpAmount = 100

// RoundDirection selects how a proportional share is rounded.
type RoundDirection uint8

const (
	// Floor rounds down; used when the pool pays out.
	Floor RoundDirection = iota
	// Ceiling rounds up; used when the pool takes in.
	Ceiling
)

func (d RoundDirection) String() string {
	if d == Ceiling {
		return "ceiling"
	}
	return "floor"
}

// TradingTokenResult is the pair of reserve amounts matching an LP amount.
type TradingTokenResult struct {
	Token0Amount uint64
	Token1Amount uint64
}

// SwapResult describes a swap against the curve, fees included.
type SwapResult struct {
	NewSwapSourceAmount      uint64
	NewSwapDestinationAmount uint64
	SourceAmountSwapped      uint64
	DestinationAmountSwapped uint64
	TradeFee                 uint64
	ProtocolFee              uint64
	FundFee                  uint64
}

// LpTokensToTradingTokens converts lpAmount into its share of each reserve:
// amount_i = lpAmount * reserve_i / lpSupply, rounded in direction. A zero supply or a zero
// share on either side fails with ErrZeroTradingTokens.
func LpTokensToTradingTokens(lpAmount, lpSupply, swapToken0Amount, swapToken1Amount uint64, direction RoundDirection) (TradingTokenResult, error) {
	if lpSupply == 0 {
		return TradingTokenResult{}, fmt.Errorf("lp supply is zero: %w", model.ErrZeroTradingTokens)
	}

	amount0, err := proportion(lpAmount, swapToken0Amount, lpSupply, direction)
	if err != nil {
		return TradingTokenResult{}, err
	}
	amount1, err := proportion(lpAmount, swapToken1Amount, lpSupply, direction)
	if err != nil {
		return TradingTokenResult{}, err
	}
	if amount0 == 0 || amount1 == 0 {
		return TradingTokenResult{}, fmt.Errorf("lp %d of %d yields %d/%d: %w", lpAmount, lpSupply, amount0, amount1, model.ErrZeroTradingTokens)
	}

	return TradingTokenResult{Token0Amount: amount0, Token1Amount: amount1}, nil
}

func proportion(lpAmount, reserve, lpSupply uint64, direction RoundDirection) (uint64, error) {
	numerator := mul(lpAmount, reserve)
	supply := uint256.NewInt(lpSupply)
	amount, remainder := new(uint256.Int).DivMod(numerator, supply, new(uint256.Int))
	if direction == Ceiling && !remainder.IsZero() {
		amount.AddUint64(amount, 1)
	}
	return toUint64(amount)
}

// ValidateSupply fails when either reserve is empty; liquidity cannot be minted against it.
func ValidateSupply(token0Amount, token1Amount uint64) error {
	if token0Amount == 0 {
		return fmt.Errorf("token_0 reserve: %w", model.ErrEmptySupply)
	}
	if token1Amount == 0 {
		return fmt.Errorf("token_1 reserve: %w", model.ErrEmptySupply)
	}
	return nil
}

// InitialLiquidity is floor(sqrt(token0Amount * token1Amount)).
func InitialLiquidity(token0Amount, token1Amount uint64) uint64 {
	return new(uint256.Int).Sqrt(mul(token0Amount, token1Amount)).Uint64()
}

// CreatorLiquidity is the part of liquidity the creator receives once LockLpAmount is withheld.
func CreatorLiquidity(liquidity uint64) (uint64, error) {
	if liquidity <= LockLpAmount {
		return 0, fmt.Errorf("liquidity %d <= lock %d: %w", liquidity, LockLpAmount, model.ErrInitLpAmountTooLess)
	}
	return liquidity - LockLpAmount, nil
}

// SwapBaseInput charges the trade fee on sourceAmount and returns the destination amount the
// remainder buys, rounded down.
func SwapBaseInput(sourceAmount, swapSourceAmount, swapDestinationAmount uint64, rates FeeRates) (SwapResult, error) {
	if swapSourceAmount == 0 || swapDestinationAmount == 0 {
		return SwapResult{}, fmt.Errorf("empty reserve: %w", model.ErrZeroTradingTokens)
	}

	tradeFee, err := TradingFee(sourceAmount, rates.Trade)
	if err != nil {
		return SwapResult{}, err
	}
	if tradeFee >= sourceAmount {
		return SwapResult{}, fmt.Errorf("input %d consumed by trade fee: %w", sourceAmount, model.ErrZeroTradingTokens)
	}
	protocolFee, fundFee, err := splitTradeFee(tradeFee, rates)
	if err != nil {
		return SwapResult{}, err
	}

	sourceAmountLessFees := sourceAmount - tradeFee
	destinationAmountSwapped, err := swapBaseInputWithoutFees(sourceAmountLessFees, swapSourceAmount, swapDestinationAmount)
	if err != nil {
		return SwapResult{}, err
	}
	if destinationAmountSwapped == 0 {
		return SwapResult{}, fmt.Errorf("input %d yields nothing: %w", sourceAmount, model.ErrZeroTradingTokens)
	}

	newSource := new(uint256.Int).AddUint64(uint256.NewInt(swapSourceAmount), sourceAmount)
	newSwapSourceAmount, err := toUint64(newSource)
	if err != nil {
		return SwapResult{}, err
	}

	return SwapResult{
		NewSwapSourceAmount:      newSwapSourceAmount,
		NewSwapDestinationAmount: swapDestinationAmount - destinationAmountSwapped,
		SourceAmountSwapped:      sourceAmount,
		DestinationAmountSwapped: destinationAmountSwapped,
		TradeFee:                 tradeFee,
		ProtocolFee:              protocolFee,
		FundFee:                  fundFee,
	}, nil
}

// SwapBaseOutput returns the source amount, trade fee included and rounded up, needed to take
// destinationAmount out of the pool.
func SwapBaseOutput(destinationAmount, swapSourceAmount, swapDestinationAmount uint64, rates FeeRates) (SwapResult, error) {
	if swapSourceAmount == 0 || swapDestinationAmount == 0 {
		return SwapResult{}, fmt.Errorf("empty reserve: %w", model.ErrZeroTradingTokens)
	}
	if destinationAmount == 0 {
		return SwapResult{}, fmt.Errorf("zero output requested: %w", model.ErrZeroTradingTokens)
	}
	if destinationAmount >= swapDestinationAmount {
		return SwapResult{}, fmt.Errorf("output %d drains reserve %d: %w", destinationAmount, swapDestinationAmount, model.ErrZeroTradingTokens)
	}

	sourceAmountSwapped, err := swapBaseOutputWithoutFees(destinationAmount, swapSourceAmount, swapDestinationAmount)
	if err != nil {
		return SwapResult{}, err
	}
	sourceAmount, err := PreTradeFeeAmount(sourceAmountSwapped, rates.Trade)
	if err != nil {
		return SwapResult{}, err
	}
	tradeFee, err := TradingFee(sourceAmount, rates.Trade)
	if err != nil {
		return SwapResult{}, err
	}
	protocolFee, fundFee, err := splitTradeFee(tradeFee, rates)
	if err != nil {
		return SwapResult{}, err
	}

	newSource := new(uint256.Int).AddUint64(uint256.NewInt(swapSourceAmount), sourceAmount)
	newSwapSourceAmount, err := toUint64(newSource)
	if err != nil {
		return SwapResult{}, err
	}

	return SwapResult{
		NewSwapSourceAmount:      newSwapSourceAmount,
		NewSwapDestinationAmount: swapDestinationAmount - destinationAmount,
		SourceAmountSwapped:      sourceAmount,
		DestinationAmountSwapped: destinationAmount,
		TradeFee:                 tradeFee,
		ProtocolFee:              protocolFee,
		FundFee:                  fundFee,
	}, nil
}

func splitTradeFee(tradeFee uint64, rates FeeRates) (uint64, uint64, error) {
	protocolFee, err := ProtocolFee(tradeFee, rates.Protocol)
	if err != nil {
		return 0, 0, err
	}
	fundFee, err := FundFee(tradeFee, rates.Fund)
	if err != nil {
		return 0, 0, err
	}
	return protocolFee, fundFee, nil
}

// dy = floor(dx * y / (x + dx))
func swapBaseInputWithoutFees(sourceAmount, swapSourceAmount, swapDestinationAmount uint64) (uint64, error) {
	numerator := mul(sourceAmount, swapDestinationAmount)
	denominator := new(uint256.Int).AddUint64(uint256.NewInt(swapSourceAmount), sourceAmount)
	return toUint64(numerator.Div(numerator, denominator))
}

// dx = ceil(x * dy / (y - dy))
func swapBaseOutputWithoutFees(destinationAmount, swapSourceAmount, swapDestinationAmount uint64) (uint64, error) {
	numerator := mul(swapSourceAmount, destinationAmount)
	denominator := uint256.NewInt(swapDestinationAmount - destinationAmount)
	return toUint64(ceilDiv(numerator, denominator))
}
