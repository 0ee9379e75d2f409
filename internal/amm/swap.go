package amm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"cpswap/internal/model"
	"cpswap/internal/pool"
)

const (
	flowSwapBaseInput  = "swap_base_input"
	flowSwapBaseOutput = "swap_base_output"
)

// SwapParams trades between the two vaults of a pool. Amount is the gross input of a base input
// swap or the net output of a base output swap. OtherAmountThreshold is the minimum net output
// or the maximum gross input respectively.
type SwapParams struct {
	AmmConfig            model.AmmConfig
	InputTokenAccount    solana.PublicKey
	OutputTokenAccount   solana.PublicKey
	InputVault           solana.PublicKey
	OutputVault          solana.PublicKey
	Amount               uint64
	OtherAmountThreshold uint64
}

// SwapBaseInput swaps exactly params.Amount input tokens. On failure p is unchanged.
func (e *Engine) SwapBaseInput(p *pool.State, params SwapParams) (SwapQuote, error) {
	q, err := e.swap(p, params, true)
	e.observe(flowSwapBaseInput, p.ID, err)
	return q, err
}

// SwapBaseOutput swaps for exactly params.Amount output tokens. On failure p is unchanged.
func (e *Engine) SwapBaseOutput(p *pool.State, params SwapParams) (SwapQuote, error) {
	q, err := e.swap(p, params, false)
	e.observe(flowSwapBaseOutput, p.ID, err)
	return q, err
}

func (e *Engine) swap(p *pool.State, params SwapParams, baseInput bool) (SwapQuote, error) {
	bit, flow := pool.StatusSwapBaseOutput, flowSwapBaseOutput
	if baseInput {
		bit, flow = pool.StatusSwapBaseInput, flowSwapBaseInput
	}

	timestamp, epoch := e.clock.Now()
	if !p.IsOperationEnabled(bit) {
		return SwapQuote{}, fmt.Errorf("%s disabled: %w", flow, model.ErrNotApproved)
	}
	if timestamp < p.OpenTime {
		return SwapQuote{}, fmt.Errorf("pool opens at %d, now %d: %w", p.OpenTime, timestamp, model.ErrNotApproved)
	}
	if !params.AmmConfig.Key.Equals(p.AmmConfig) {
		return SwapQuote{}, fmt.Errorf("amm config %s, pool has %s: %w", params.AmmConfig.Key, p.AmmConfig, model.ErrInvalidInput)
	}
	direction, err := p.DirectionOf(params.InputVault, params.OutputVault)
	if err != nil {
		return SwapQuote{}, err
	}

	m, err := e.market(p, params.AmmConfig, epoch)
	if err != nil {
		return SwapQuote{}, err
	}

	var q SwapQuote
	if baseInput {
		q, err = QuoteSwapBaseInput(p, m, direction, params.Amount)
	} else {
		q, err = QuoteSwapBaseOutput(p, m, direction, params.Amount)
	}
	if err != nil {
		return SwapQuote{}, err
	}
	e.logger.Debug("swap quote",
		zap.String("flow", flow),
		zap.Stringer("pool", p.ID),
		zap.Stringer("direction", direction),
		zap.Uint64("total_input_token_amount", q.InputReserveBefore),
		zap.Uint64("total_output_token_amount", q.OutputReserveBefore),
		zap.Uint64("source_amount_swapped", q.Curve.SourceAmountSwapped),
		zap.Uint64("destination_amount_swapped", q.Curve.DestinationAmountSwapped),
		zap.Uint64("trade_fee", q.Curve.TradeFee),
		zap.Uint64("input_transfer_fee", q.InputTransferFee),
		zap.Uint64("output_transfer_fee", q.OutputTransferFee),
	)

	if baseInput && q.AmountReceived < params.OtherAmountThreshold {
		return SwapQuote{}, fmt.Errorf("receive %d, minimum %d: %w", q.AmountReceived, params.OtherAmountThreshold, model.ErrExceededSlippage)
	}
	if !baseInput && q.InputTransferAmount > params.OtherAmountThreshold {
		return SwapQuote{}, fmt.Errorf("pay %d, maximum %d: %w", q.InputTransferAmount, params.OtherAmountThreshold, model.ErrExceededSlippage)
	}

	next := p.Clone()
	if err := next.ApplySwap(pool.SwapFill{
		Direction:    direction,
		InputAmount:  q.Curve.SourceAmountSwapped,
		OutputAmount: q.Curve.DestinationAmountSwapped,
		TradeFee:     q.Curve.TradeFee,
		ProtocolFee:  q.Curve.ProtocolFee,
		FundFee:      q.Curve.FundFee,
		Epoch:        epoch,
	}); err != nil {
		return SwapQuote{}, err
	}

	input, output := p.Sides(direction)
	inputMint, outputMint := pool.Orient(direction, m.Mint0, m.Mint1)
	err = e.atomically(func() error {
		if err := e.tokens.Transfer(params.InputTokenAccount, input.Vault, input.Mint, q.InputTransferAmount, inputMint.Decimals); err != nil {
			return fmt.Errorf("transfer input: %w", err)
		}
		if err := e.tokens.Transfer(output.Vault, params.OutputTokenAccount, output.Mint, q.OutputTransferAmount, outputMint.Decimals); err != nil {
			return fmt.Errorf("transfer output: %w", err)
		}
		return nil
	})
	if err != nil {
		return SwapQuote{}, err
	}
	lpSupply := p.LpSupply
	*p = *next

	e.metrics.TradeFee(flow, q.Curve.TradeFee)
	e.metrics.TransferFees(flow, q.InputTransferFee)
	e.metrics.TransferFees(flow, q.OutputTransferFee)
	e.emit(swapRecord(p.ID, lpSupply, q, timestamp, e.logger))
	return q, nil
}
