package curve

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"cpswap/internal/model"
)

var testRates = FeeRates{Trade: 2_500, Protocol: 120_000, Fund: 40_000}

func TestLpTokensToTradingTokensCeilingExample(t *testing.T) {
	got, err := LpTokensToTradingTokens(50, 1_000, 10_000, 20_000, Ceiling)
	require.NoError(t, err)
	require.Equal(t, TradingTokenResult{Token0Amount: 500, Token1Amount: 1_000}, got)
}

func TestLpTokensToTradingTokensRounding(t *testing.T) {
	ceil, err := LpTokensToTradingTokens(1, 3, 10, 20, Ceiling)
	require.NoError(t, err)
	require.Equal(t, TradingTokenResult{Token0Amount: 4, Token1Amount: 7}, ceil)

	floor, err := LpTokensToTradingTokens(1, 3, 10, 20, Floor)
	require.NoError(t, err)
	require.Equal(t, TradingTokenResult{Token0Amount: 3, Token1Amount: 6}, floor)
}

func TestLpTokensToTradingTokensZero(t *testing.T) {
	_, err := LpTokensToTradingTokens(10, 0, 10, 10, Floor)
	require.ErrorIs(t, err, model.ErrZeroTradingTokens)

	// 1 * 10 / 1000 floors to zero; a withdraw of that size is rejected.
	_, err = LpTokensToTradingTokens(1, 1_000, 10, 10_000, Floor)
	require.ErrorIs(t, err, model.ErrZeroTradingTokens)
}

func TestLpTokensToTradingTokensCeilingLiftsFraction(t *testing.T) {
	got, err := LpTokensToTradingTokens(1, 1_000, 500, 20_000, Ceiling)
	require.NoError(t, err)
	require.Equal(t, TradingTokenResult{Token0Amount: 1, Token1Amount: 20}, got)

	got, err = LpTokensToTradingTokens(1, 1_000, 10, 10_000, Ceiling)
	require.NoError(t, err)
	require.Equal(t, TradingTokenResult{Token0Amount: 1, Token1Amount: 10}, got)
}

func TestLpTokensToTradingTokensWideProduct(t *testing.T) {
	got, err := LpTokensToTradingTokens(math.MaxUint64, math.MaxUint64, math.MaxUint64, 1, Floor)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), got.Token0Amount)
	require.Equal(t, uint64(1), got.Token1Amount)

	_, err = LpTokensToTradingTokens(math.MaxUint64, 1, 2, 2, Floor)
	require.ErrorIs(t, err, model.ErrArithmeticOverflow)
}

func TestValidateSupply(t *testing.T) {
	require.ErrorIs(t, ValidateSupply(0, 100), model.ErrEmptySupply)
	require.ErrorIs(t, ValidateSupply(100, 0), model.ErrEmptySupply)
	require.NoError(t, ValidateSupply(1, 1))
}

func TestInitialLiquidity(t *testing.T) {
	require.Equal(t, uint64(1), InitialLiquidity(1, 1))
	require.Equal(t, uint64(20_000), InitialLiquidity(10_000, 40_000))
	require.Equal(t, uint64(math.MaxUint64), InitialLiquidity(math.MaxUint64, math.MaxUint64))
}

func TestCreatorLiquidityLock(t *testing.T) {
	_, err := CreatorLiquidity(InitialLiquidity(1, 1))
	require.ErrorIs(t, err, model.ErrInitLpAmountTooLess)
	_, err = CreatorLiquidity(LockLpAmount)
	require.ErrorIs(t, err, model.ErrInitLpAmountTooLess)

	got, err := CreatorLiquidity(LockLpAmount + 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), got)
}

func TestSwapBaseInput(t *testing.T) {
	got, err := SwapBaseInput(10_000, 1_000_000, 2_000_000, testRates)
	require.NoError(t, err)
	require.Equal(t, SwapResult{
		NewSwapSourceAmount:      1_010_000,
		NewSwapDestinationAmount: 1_980_248,
		SourceAmountSwapped:      10_000,
		DestinationAmountSwapped: 19_752,
		TradeFee:                 25,
		ProtocolFee:              3,
		FundFee:                  1,
	}, got)
}

func TestSwapBaseOutput(t *testing.T) {
	got, err := SwapBaseOutput(10_000, 1_000_000, 2_000_000, testRates)
	require.NoError(t, err)
	require.Equal(t, SwapResult{
		NewSwapSourceAmount:      1_005_039,
		NewSwapDestinationAmount: 1_990_000,
		SourceAmountSwapped:      5_039,
		DestinationAmountSwapped: 10_000,
		TradeFee:                 13,
		ProtocolFee:              1,
		FundFee:                  0,
	}, got)
}

func TestSwapRejectsDegenerateInputs(t *testing.T) {
	_, err := SwapBaseInput(0, 1_000, 1_000, testRates)
	require.ErrorIs(t, err, model.ErrZeroTradingTokens)
	_, err = SwapBaseInput(1, 1_000_000, 10, FeeRates{})
	require.ErrorIs(t, err, model.ErrZeroTradingTokens)
	_, err = SwapBaseInput(10, 0, 10, FeeRates{})
	require.ErrorIs(t, err, model.ErrZeroTradingTokens)

	_, err = SwapBaseOutput(0, 1_000, 2_000, testRates)
	require.ErrorIs(t, err, model.ErrZeroTradingTokens)
	_, err = SwapBaseOutput(2_000, 1_000, 2_000, testRates)
	require.ErrorIs(t, err, model.ErrZeroTradingTokens)
}

func TestFeeRatesValidate(t *testing.T) {
	require.NoError(t, testRates.Validate())
	require.ErrorIs(t, FeeRates{Trade: FeeRateDenominator}.Validate(), model.ErrInvalidFeeConfig)
	require.ErrorIs(t, FeeRates{Protocol: 600_000, Fund: 500_000}.Validate(), model.ErrInvalidFeeConfig)
}

func TestPreTradeFeeAmount(t *testing.T) {
	got, err := PreTradeFeeAmount(5_026, 2_500)
	require.NoError(t, err)
	require.Equal(t, uint64(5_039), got)

	got, err = PreTradeFeeAmount(5_026, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(5_026), got)
}

func skipCurveError(t *rapid.T, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, model.ErrZeroTradingTokens) || errors.Is(err, model.ErrArithmeticOverflow) {
		return true
	}
	t.Fatalf("unexpected error: %v", err)
	return true
}

// Property: the constant product never decreases across a swap, with the whole trade fee
// excluded from the new source reserve.
func TestSwapNeverDecreasesInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		source := rapid.Uint64Range(1, 1<<60).Draw(t, "source")
		destination := rapid.Uint64Range(1, 1<<60).Draw(t, "destination")
		amount := rapid.Uint64Range(1, 1<<60).Draw(t, "amount")
		rates := FeeRates{
			Trade:    rapid.Uint64Range(0, 100_000).Draw(t, "trade"),
			Protocol: rapid.Uint64Range(0, 500_000).Draw(t, "protocol"),
			Fund:     rapid.Uint64Range(0, 500_000).Draw(t, "fund"),
		}
		baseInput := rapid.Bool().Draw(t, "baseInput")

		var result SwapResult
		var err error
		if baseInput {
			result, err = SwapBaseInput(amount, source, destination, rates)
		} else {
			result, err = SwapBaseOutput(amount, source, destination, rates)
		}
		if skipCurveError(t, err) {
			return
		}

		before := Invariant(source, destination)
		after := Invariant(result.NewSwapSourceAmount-result.TradeFee, result.NewSwapDestinationAmount)
		if after.Lt(before) {
			t.Fatalf("k decreased: before=%s after=%s result=%+v", before, after, result)
		}
		if result.ProtocolFee+result.FundFee > result.TradeFee {
			t.Fatalf("fee split exceeds trade fee: %+v", result)
		}
	})
}

// Property: depositing lp and withdrawing the same lp never returns more than was put in.
func TestDepositWithdrawRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		supply := rapid.Uint64Range(1, 1<<30).Draw(t, "supply")
		reserve0 := rapid.Uint64Range(1, 1<<30).Draw(t, "reserve0")
		reserve1 := rapid.Uint64Range(1, 1<<30).Draw(t, "reserve1")
		lp := rapid.Uint64Range(1, 1<<30).Draw(t, "lp")

		in, err := LpTokensToTradingTokens(lp, supply, reserve0, reserve1, Ceiling)
		if skipCurveError(t, err) {
			return
		}
		out, err := LpTokensToTradingTokens(lp, supply+lp, reserve0+in.Token0Amount, reserve1+in.Token1Amount, Floor)
		if skipCurveError(t, err) {
			return
		}
		if out.Token0Amount > in.Token0Amount || out.Token1Amount > in.Token1Amount {
			t.Fatalf("round trip profit: in=%+v out=%+v", in, out)
		}
	})
}

// Property: deposit shares are the ceiling and withdraw shares the floor of the exact ratio.
func TestProportionality(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		supply := rapid.Uint64Range(1, 1<<31).Draw(t, "supply")
		reserve := rapid.Uint64Range(1, 1<<31).Draw(t, "reserve")
		lp := rapid.Uint64Range(1, 1<<31).Draw(t, "lp")

		exactNumerator := lp * reserve
		floor := exactNumerator / supply
		ceil := floor
		if exactNumerator%supply != 0 {
			ceil++
		}

		// ceil is at least 1 here, so a deposit quote must always succeed.
		up, err := LpTokensToTradingTokens(lp, supply, reserve, reserve, Ceiling)
		if err != nil {
			t.Fatalf("lp=%d supply=%d reserve=%d: ceiling %d failed: %v", lp, supply, reserve, ceil, err)
		}
		if up.Token0Amount != ceil {
			t.Fatalf("lp=%d supply=%d reserve=%d: ceil %d want %d", lp, supply, reserve, up.Token0Amount, ceil)
		}

		down, err := LpTokensToTradingTokens(lp, supply, reserve, reserve, Floor)
		if floor == 0 {
			if !errors.Is(err, model.ErrZeroTradingTokens) {
				t.Fatalf("lp=%d supply=%d reserve=%d: zero floor returned %v", lp, supply, reserve, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("lp=%d supply=%d reserve=%d: floor %d failed: %v", lp, supply, reserve, floor, err)
		}
		if down.Token0Amount != floor {
			t.Fatalf("lp=%d supply=%d reserve=%d: floor %d want %d", lp, supply, reserve, down.Token0Amount, floor)
		}
	})
}
