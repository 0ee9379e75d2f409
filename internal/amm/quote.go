package amm

import (
	"fmt"

	gmath "github.com/ethereum/go-ethereum/common/math"

	"cpswap/internal/curve"
	"cpswap/internal/fee"
	"cpswap/internal/model"
	"cpswap/internal/pool"
)

// Market is what pricing needs besides the pool: gross vault balances, both mints, the fee
// config and the current epoch.
type Market struct {
	Vault0 uint64
	Vault1 uint64
	Mint0  model.MintInfo
	Mint1  model.MintInfo
	Config model.AmmConfig
	Epoch  uint64
}

// LiquidityQuote prices a deposit or a withdraw of LpAmount.
//
// Token amounts are the curve share of each reserve. TransferAmount is what the transfer call
// moves and NetAmount what the receiving side ends up with: on a deposit the pool nets exactly
// the curve share, on a withdraw the owner nets the share less the transfer fee.
type LiquidityQuote struct {
	LpAmount          uint64
	LpSupplyBefore    uint64
	Reserve0Before    uint64
	Reserve1Before    uint64
	Token0Amount      uint64
	Token1Amount      uint64
	Token0TransferFee uint64
	Token1TransferFee uint64
	Transfer0Amount   uint64
	Transfer1Amount   uint64
	Net0Amount        uint64
	Net1Amount        uint64
}

// SwapQuote prices a swap in either mode.
type SwapQuote struct {
	Direction            pool.TradeDirection
	BaseInput            bool
	InputReserveBefore   uint64
	OutputReserveBefore  uint64
	Curve                curve.SwapResult
	InputTransferAmount  uint64
	InputTransferFee     uint64
	OutputTransferAmount uint64
	OutputTransferFee    uint64
	AmountReceived       uint64
}

// QuoteDeposit sizes a deposit so the pool nets the ceiling share of each reserve after the
// mint's transfer fee.
func QuoteDeposit(p *pool.State, m Market, lpAmount uint64) (LiquidityQuote, error) {
	reserve0, reserve1, err := p.VaultAmountWithoutFee(m.Vault0, m.Vault1)
	if err != nil {
		return LiquidityQuote{}, err
	}
	share, err := curve.LpTokensToTradingTokens(lpAmount, p.LpSupply, reserve0, reserve1, curve.Ceiling)
	if err != nil {
		return LiquidityQuote{}, err
	}

	q := LiquidityQuote{
		LpAmount:       lpAmount,
		LpSupplyBefore: p.LpSupply,
		Reserve0Before: reserve0,
		Reserve1Before: reserve1,
		Token0Amount:   share.Token0Amount,
		Token1Amount:   share.Token1Amount,
		Net0Amount:     share.Token0Amount,
		Net1Amount:     share.Token1Amount,
	}
	if q.Token0TransferFee, err = fee.InverseFeeForMint(m.Mint0, m.Epoch, share.Token0Amount); err != nil {
		return LiquidityQuote{}, fmt.Errorf("token_0 inverse fee: %w", err)
	}
	if q.Token1TransferFee, err = fee.InverseFeeForMint(m.Mint1, m.Epoch, share.Token1Amount); err != nil {
		return LiquidityQuote{}, fmt.Errorf("token_1 inverse fee: %w", err)
	}
	if q.Transfer0Amount, err = checkedAdd(share.Token0Amount, q.Token0TransferFee); err != nil {
		return LiquidityQuote{}, err
	}
	if q.Transfer1Amount, err = checkedAdd(share.Token1Amount, q.Token1TransferFee); err != nil {
		return LiquidityQuote{}, err
	}
	return q, nil
}

// QuoteWithdraw prices a withdraw at the floor share of each reserve, never more than the
// reserve itself, less the forward transfer fee.
func QuoteWithdraw(p *pool.State, m Market, lpAmount uint64) (LiquidityQuote, error) {
	reserve0, reserve1, err := p.VaultAmountWithoutFee(m.Vault0, m.Vault1)
	if err != nil {
		return LiquidityQuote{}, err
	}
	share, err := curve.LpTokensToTradingTokens(lpAmount, p.LpSupply, reserve0, reserve1, curve.Floor)
	if err != nil {
		return LiquidityQuote{}, err
	}

	q := LiquidityQuote{
		LpAmount:        lpAmount,
		LpSupplyBefore:  p.LpSupply,
		Reserve0Before:  reserve0,
		Reserve1Before:  reserve1,
		Token0Amount:    min(share.Token0Amount, reserve0),
		Token1Amount:    min(share.Token1Amount, reserve1),
		Transfer0Amount: min(share.Token0Amount, reserve0),
		Transfer1Amount: min(share.Token1Amount, reserve1),
	}
	if q.Token0TransferFee, err = fee.ForwardFee(m.Mint0, m.Epoch, q.Token0Amount); err != nil {
		return LiquidityQuote{}, fmt.Errorf("token_0 transfer fee: %w", err)
	}
	if q.Token1TransferFee, err = fee.ForwardFee(m.Mint1, m.Epoch, q.Token1Amount); err != nil {
		return LiquidityQuote{}, fmt.Errorf("token_1 transfer fee: %w", err)
	}
	if q.Net0Amount, err = checkedSub(q.Token0Amount, q.Token0TransferFee); err != nil {
		return LiquidityQuote{}, err
	}
	if q.Net1Amount, err = checkedSub(q.Token1Amount, q.Token1TransferFee); err != nil {
		return LiquidityQuote{}, err
	}
	return q, nil
}

// QuoteSwapBaseInput prices a swap of amountIn gross input tokens.
func QuoteSwapBaseInput(p *pool.State, m Market, direction pool.TradeDirection, amountIn uint64) (SwapQuote, error) {
	inputMint, outputMint := pool.Orient(direction, m.Mint0, m.Mint1)

	inputFee, err := fee.ForwardFee(inputMint, m.Epoch, amountIn)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("input transfer fee: %w", err)
	}
	actualAmountIn := amountIn - inputFee
	if actualAmountIn == 0 {
		return SwapQuote{}, fmt.Errorf("input %d consumed by transfer fee: %w", amountIn, model.ErrZeroTradingTokens)
	}

	q, err := newSwapQuote(p, m, direction, true)
	if err != nil {
		return SwapQuote{}, err
	}
	if q.Curve, err = curve.SwapBaseInput(actualAmountIn, q.InputReserveBefore, q.OutputReserveBefore, curve.RatesOf(m.Config)); err != nil {
		return SwapQuote{}, err
	}
	if err := checkInvariant(q); err != nil {
		return SwapQuote{}, err
	}

	q.InputTransferAmount, q.InputTransferFee = amountIn, inputFee
	q.OutputTransferAmount = q.Curve.DestinationAmountSwapped
	if q.OutputTransferFee, err = fee.ForwardFee(outputMint, m.Epoch, q.OutputTransferAmount); err != nil {
		return SwapQuote{}, fmt.Errorf("output transfer fee: %w", err)
	}
	q.AmountReceived = q.OutputTransferAmount - q.OutputTransferFee
	if q.AmountReceived == 0 {
		return SwapQuote{}, fmt.Errorf("output %d consumed by transfer fee: %w", q.OutputTransferAmount, model.ErrZeroTradingTokens)
	}
	return q, nil
}

// QuoteSwapBaseOutput prices a swap that nets amountOut output tokens to the trader.
func QuoteSwapBaseOutput(p *pool.State, m Market, direction pool.TradeDirection, amountOut uint64) (SwapQuote, error) {
	inputMint, outputMint := pool.Orient(direction, m.Mint0, m.Mint1)

	outputFee, err := fee.InverseFeeForMint(outputMint, m.Epoch, amountOut)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("output inverse fee: %w", err)
	}
	actualAmountOut, err := checkedAdd(amountOut, outputFee)
	if err != nil {
		return SwapQuote{}, err
	}

	q, err := newSwapQuote(p, m, direction, false)
	if err != nil {
		return SwapQuote{}, err
	}
	if q.Curve, err = curve.SwapBaseOutput(actualAmountOut, q.InputReserveBefore, q.OutputReserveBefore, curve.RatesOf(m.Config)); err != nil {
		return SwapQuote{}, err
	}
	if err := checkInvariant(q); err != nil {
		return SwapQuote{}, err
	}

	q.InputTransferFee, err = fee.InverseFeeForMint(inputMint, m.Epoch, q.Curve.SourceAmountSwapped)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("input inverse fee: %w", err)
	}
	if q.InputTransferAmount, err = checkedAdd(q.Curve.SourceAmountSwapped, q.InputTransferFee); err != nil {
		return SwapQuote{}, err
	}
	q.OutputTransferAmount, q.OutputTransferFee = q.Curve.DestinationAmountSwapped, outputFee
	q.AmountReceived = amountOut
	return q, nil
}

func newSwapQuote(p *pool.State, m Market, direction pool.TradeDirection, baseInput bool) (SwapQuote, error) {
	if err := curve.RatesOf(m.Config).Validate(); err != nil {
		return SwapQuote{}, err
	}
	reserve0, reserve1, err := p.VaultAmountWithoutFee(m.Vault0, m.Vault1)
	if err != nil {
		return SwapQuote{}, err
	}
	input, output := pool.Orient(direction, reserve0, reserve1)
	return SwapQuote{
		Direction:           direction,
		BaseInput:           baseInput,
		InputReserveBefore:  input,
		OutputReserveBefore: output,
	}, nil
}

// checkInvariant requires (source + in - trade fee) * (destination - out) >= source * destination.
func checkInvariant(q SwapQuote) error {
	before := curve.Invariant(q.InputReserveBefore, q.OutputReserveBefore)
	after := curve.Invariant(q.Curve.NewSwapSourceAmount-q.Curve.TradeFee, q.Curve.NewSwapDestinationAmount)
	if after.Lt(before) {
		return fmt.Errorf("k %s -> %s: %w", before, after, model.ErrInvariantViolated)
	}
	return nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum, overflow := gmath.SafeAdd(a, b)
	if overflow {
		return 0, fmt.Errorf("%d + %d: %w", a, b, model.ErrArithmeticOverflow)
	}
	return sum, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	diff, underflow := gmath.SafeSub(a, b)
	if underflow {
		return 0, fmt.Errorf("%d - %d: %w", a, b, model.ErrArithmeticOverflow)
	}
	return diff, nil
}
