// Package amm runs the pool flows: initialize, deposit, withdraw and both swap modes. Each flow
// validates and prices against a copy of the pool, performs its token effects, and only then
// writes the copy back to the caller's pool.
package amm

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"cpswap/internal/metrics"
	"cpswap/internal/model"
	"cpswap/internal/pda"
	"cpswap/internal/pool"
)

// TokenProgram moves tokens for the pool. Transfer applies the mint's transfer fee itself.
type TokenProgram interface {
	MintInfo(mint solana.PublicKey) (model.MintInfo, error)
	Balance(account solana.PublicKey) (uint64, error)
	CreateMint(mint solana.PublicKey, decimals uint8, authority solana.PublicKey) error
	CreateAccount(account, mint, owner solana.PublicKey) error
	Transfer(from, to, mint solana.PublicKey, amount uint64, decimals uint8) error
	MintTo(mint, account solana.PublicKey, amount uint64) error
	Burn(mint, account solana.PublicKey, amount uint64) error
}

// Atomic is implemented by token programs that can undo a failed batch of calls.
type Atomic interface {
	Atomic(fn func() error) error
}

// Clock reports the current unix timestamp and epoch.
type Clock interface {
	Now() (timestamp, epoch uint64)
}

// EventSink receives one record per committed deposit, withdraw or swap.
type EventSink interface {
	Emit(record model.EventRecord) error
}

// Config holds engine settings.
type Config struct {
	ProgramID solana.PublicKey
	Metrics   *metrics.Metrics
}

// Engine runs flows against pools. It holds no pool state; callers serialize flows per pool.
type Engine struct {
	programID solana.PublicKey
	tokens    TokenProgram
	clock     Clock
	sink      EventSink
	metrics   *metrics.Metrics
	logger    *zap.Logger
	seq       atomic.Uint64
}

// NewEngine builds an Engine. A nil sink drops events and a nil logger logs nothing.
func NewEngine(cfg Config, tokens TokenProgram, clock Clock, sink EventSink, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	programID := cfg.ProgramID
	if programID == (solana.PublicKey{}) {
		programID = pda.DefaultProgramID
	}
	return &Engine{
		programID: programID,
		tokens:    tokens,
		clock:     clock,
		sink:      sink,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

func (e *Engine) ProgramID() solana.PublicKey {
	return e.programID
}

// market loads the gross vault balances and mints of p.
func (e *Engine) market(p *pool.State, cfg model.AmmConfig, epoch uint64) (Market, error) {
	m := Market{Config: cfg, Epoch: epoch}
	var err error
	if m.Vault0, err = e.tokens.Balance(p.Token0Vault); err != nil {
		return Market{}, fmt.Errorf("read token_0 vault: %w", err)
	}
	if m.Vault1, err = e.tokens.Balance(p.Token1Vault); err != nil {
		return Market{}, fmt.Errorf("read token_1 vault: %w", err)
	}
	if m.Mint0, err = e.tokens.MintInfo(p.Token0Mint); err != nil {
		return Market{}, fmt.Errorf("token_0 mint: %w", err)
	}
	if m.Mint1, err = e.tokens.MintInfo(p.Token1Mint); err != nil {
		return Market{}, fmt.Errorf("token_1 mint: %w", err)
	}
	return m, nil
}

// atomically runs fn as one batch when the token program supports it.
func (e *Engine) atomically(fn func() error) error {
	if a, ok := e.tokens.(Atomic); ok {
		return a.Atomic(fn)
	}
	return fn()
}

func (e *Engine) authority() (pda.Address, error) {
	return pda.Authority(e.programID)
}

// emit hands rec to the sink. The flow is already committed, so a refused event is logged and
// counted but not returned.
func (e *Engine) emit(rec model.EventRecord) {
	if e.sink == nil {
		return
	}
	rec.Seq = e.seq.Add(1)
	if err := e.sink.Emit(rec); err != nil {
		e.metrics.EmitFailed()
		e.logger.Warn("emit event", zap.Stringer("pool", rec.PoolID), zap.Stringer("change", rec.ChangeType), zap.Error(err))
	}
}

// observe records the outcome of flow.
func (e *Engine) observe(flow string, pool solana.PublicKey, err error) {
	if err == nil {
		e.metrics.FlowCommitted(flow)
		return
	}
	e.metrics.FlowFailed(flow, model.NameOf(err))
	var poolErr *model.Error
	if errors.As(err, &poolErr) {
		e.logger.Debug("flow rejected", zap.String("flow", flow), zap.Stringer("pool", pool), zap.String("error", poolErr.Name), zap.Error(err))
		return
	}
	e.logger.Warn("flow failed", zap.String("flow", flow), zap.Stringer("pool", pool), zap.Error(err))
}
