package amm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"cpswap/internal/model"
	"cpswap/internal/pool"
)

const (
	flowDeposit  = "deposit"
	flowWithdraw = "withdraw"
)

// DepositParams buys LpTokenAmount of pool shares. The gross amount pulled from each token
// account, transfer fee included, may not exceed its maximum.
type DepositParams struct {
	Owner               solana.PublicKey
	OwnerLpToken        solana.PublicKey
	Token0Account       solana.PublicKey
	Token1Account       solana.PublicKey
	LpMint              solana.PublicKey
	LpTokenAmount       uint64
	MaximumToken0Amount uint64
	MaximumToken1Amount uint64
}

// WithdrawParams redeems LpTokenAmount of pool shares. The amount each token account nets after
// the transfer fee may not fall below its minimum.
type WithdrawParams struct {
	Owner               solana.PublicKey
	OwnerLpToken        solana.PublicKey
	Token0Account       solana.PublicKey
	Token1Account       solana.PublicKey
	LpMint              solana.PublicKey
	LpTokenAmount       uint64
	MinimumToken0Amount uint64
	MinimumToken1Amount uint64
}

// Deposit adds liquidity to p. On failure p is unchanged.
func (e *Engine) Deposit(p *pool.State, params DepositParams) (LiquidityQuote, error) {
	q, err := e.deposit(p, params)
	e.observe(flowDeposit, p.ID, err)
	return q, err
}

func (e *Engine) deposit(p *pool.State, params DepositParams) (LiquidityQuote, error) {
	if !p.IsOperationEnabled(pool.StatusDeposit) {
		return LiquidityQuote{}, fmt.Errorf("deposit disabled: %w", model.ErrNotApproved)
	}
	if err := checkLpMint(p, params.LpMint); err != nil {
		return LiquidityQuote{}, err
	}

	timestamp, epoch := e.clock.Now()
	m, err := e.market(p, model.AmmConfig{}, epoch)
	if err != nil {
		return LiquidityQuote{}, err
	}
	q, err := QuoteDeposit(p, m, params.LpTokenAmount)
	if err != nil {
		return LiquidityQuote{}, err
	}
	e.logger.Debug("deposit quote",
		zap.Stringer("pool", p.ID),
		zap.Uint64("lp_token_amount", params.LpTokenAmount),
		zap.Uint64("total_token_0_amount", q.Reserve0Before),
		zap.Uint64("total_token_1_amount", q.Reserve1Before),
		zap.Uint64("transfer_token_0_amount", q.Transfer0Amount),
		zap.Uint64("transfer_token_0_fee", q.Token0TransferFee),
		zap.Uint64("transfer_token_1_amount", q.Transfer1Amount),
		zap.Uint64("transfer_token_1_fee", q.Token1TransferFee),
	)
	if q.Transfer0Amount > params.MaximumToken0Amount || q.Transfer1Amount > params.MaximumToken1Amount {
		return LiquidityQuote{}, fmt.Errorf("need %d/%d, maximum %d/%d: %w",
			q.Transfer0Amount, q.Transfer1Amount, params.MaximumToken0Amount, params.MaximumToken1Amount, model.ErrExceededSlippage)
	}

	next := p.Clone()
	if err := next.AddLpSupply(params.LpTokenAmount); err != nil {
		return LiquidityQuote{}, err
	}

	err = e.atomically(func() error {
		if err := e.tokens.Transfer(params.Token0Account, p.Token0Vault, p.Token0Mint, q.Transfer0Amount, m.Mint0.Decimals); err != nil {
			return fmt.Errorf("transfer token_0: %w", err)
		}
		if err := e.tokens.Transfer(params.Token1Account, p.Token1Vault, p.Token1Mint, q.Transfer1Amount, m.Mint1.Decimals); err != nil {
			return fmt.Errorf("transfer token_1: %w", err)
		}
		// Shares are minted only once both legs have landed.
		if err := e.tokens.MintTo(p.LpMint, params.OwnerLpToken, params.LpTokenAmount); err != nil {
			return fmt.Errorf("mint lp: %w", err)
		}
		return nil
	})
	if err != nil {
		return LiquidityQuote{}, err
	}
	*p = *next

	e.metrics.TransferFees(flowDeposit, q.Token0TransferFee)
	e.metrics.TransferFees(flowDeposit, q.Token1TransferFee)
	e.emit(lpChangeRecord(p.ID, model.ChangeTypeDeposit, q, timestamp, e.logger))
	return q, nil
}

// Withdraw removes liquidity from p. LP is burned before any token leaves the vaults. On failure
// p is unchanged.
func (e *Engine) Withdraw(p *pool.State, params WithdrawParams) (LiquidityQuote, error) {
	q, err := e.withdraw(p, params)
	e.observe(flowWithdraw, p.ID, err)
	return q, err
}

func (e *Engine) withdraw(p *pool.State, params WithdrawParams) (LiquidityQuote, error) {
	if !p.IsOperationEnabled(pool.StatusWithdraw) {
		return LiquidityQuote{}, fmt.Errorf("withdraw disabled: %w", model.ErrNotApproved)
	}
	if err := checkLpMint(p, params.LpMint); err != nil {
		return LiquidityQuote{}, err
	}

	timestamp, epoch := e.clock.Now()
	m, err := e.market(p, model.AmmConfig{}, epoch)
	if err != nil {
		return LiquidityQuote{}, err
	}
	q, err := QuoteWithdraw(p, m, params.LpTokenAmount)
	if err != nil {
		return LiquidityQuote{}, err
	}
	e.logger.Debug("withdraw quote",
		zap.Stringer("pool", p.ID),
		zap.Uint64("lp_token_amount", params.LpTokenAmount),
		zap.Uint64("total_token_0_amount", q.Reserve0Before),
		zap.Uint64("total_token_1_amount", q.Reserve1Before),
		zap.Uint64("receive_token_0_amount", q.Net0Amount),
		zap.Uint64("token_0_transfer_fee", q.Token0TransferFee),
		zap.Uint64("receive_token_1_amount", q.Net1Amount),
		zap.Uint64("token_1_transfer_fee", q.Token1TransferFee),
	)
	if q.Net0Amount < params.MinimumToken0Amount || q.Net1Amount < params.MinimumToken1Amount {
		return LiquidityQuote{}, fmt.Errorf("receive %d/%d, minimum %d/%d: %w",
			q.Net0Amount, q.Net1Amount, params.MinimumToken0Amount, params.MinimumToken1Amount, model.ErrExceededSlippage)
	}

	next := p.Clone()
	if err := next.SubLpSupply(params.LpTokenAmount); err != nil {
		return LiquidityQuote{}, err
	}

	err = e.atomically(func() error {
		if err := e.tokens.Burn(p.LpMint, params.OwnerLpToken, params.LpTokenAmount); err != nil {
			return fmt.Errorf("burn lp: %w", err)
		}
		if err := e.tokens.Transfer(p.Token0Vault, params.Token0Account, p.Token0Mint, q.Transfer0Amount, m.Mint0.Decimals); err != nil {
			return fmt.Errorf("transfer token_0: %w", err)
		}
		if err := e.tokens.Transfer(p.Token1Vault, params.Token1Account, p.Token1Mint, q.Transfer1Amount, m.Mint1.Decimals); err != nil {
			return fmt.Errorf("transfer token_1: %w", err)
		}
		return nil
	})
	if err != nil {
		return LiquidityQuote{}, err
	}
	*p = *next

	e.metrics.TransferFees(flowWithdraw, q.Token0TransferFee)
	e.metrics.TransferFees(flowWithdraw, q.Token1TransferFee)
	e.emit(lpChangeRecord(p.ID, model.ChangeTypeWithdraw, q, timestamp, e.logger))
	return q, nil
}

// checkLpMint rejects an LP mint other than the pool's. A zero key means the caller did not name one.
func checkLpMint(p *pool.State, lpMint solana.PublicKey) error {
	if lpMint != (solana.PublicKey{}) && !lpMint.Equals(p.LpMint) {
		return fmt.Errorf("lp mint %s, pool has %s: %w", lpMint, p.LpMint, model.ErrIncorrectLpMint)
	}
	return nil
}
