// Package pool holds the mutable ledger of a constant-product pool: LP supply, accrued
// protocol and fund fees, the status mask and running swap statistics.
package pool

import (
	"fmt"

	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/gagliardetto/solana-go"

	"cpswap/internal/model"
)

// LpMintDecimals is the decimals of every pool LP mint.
const LpMintDecimals = 9

// State is one pool. Callers hold it exclusively for the duration of a flow.
type State struct {
	ID             solana.PublicKey
	AmmConfig      solana.PublicKey
	PoolCreator    solana.PublicKey
	Token0Vault    solana.PublicKey
	Token1Vault    solana.PublicKey
	LpMint         solana.PublicKey
	Token0Mint     solana.PublicKey
	Token1Mint     solana.PublicKey
	Token0Program  model.TokenProgramKind
	Token1Program  model.TokenProgramKind
	ObservationKey solana.PublicKey

	AuthBump       uint8
	Status         uint8
	LpMintDecimals uint8
	Mint0Decimals  uint8
	Mint1Decimals  uint8

	LpSupply           uint64
	ProtocolFeesToken0 uint64
	ProtocolFeesToken1 uint64
	FundFeesToken0     uint64
	FundFeesToken1     uint64

	OpenTime    uint64
	RecentEpoch uint64

	SwapCount           uint64
	CumulativeVolume0   uint64
	CumulativeVolume1   uint64
	CumulativeTradeFee0 uint64
	CumulativeTradeFee1 uint64
}

// InitParams carries everything Initialize computed before the pool exists.
type InitParams struct {
	ID             solana.PublicKey
	AuthBump       uint8
	LpSupply       uint64
	OpenTime       uint64
	Epoch          uint64
	PoolCreator    solana.PublicKey
	AmmConfig      solana.PublicKey
	Token0Vault    solana.PublicKey
	Token1Vault    solana.PublicKey
	Token0Mint     model.MintInfo
	Token1Mint     model.MintInfo
	LpMint         solana.PublicKey
	ObservationKey solana.PublicKey
}

// Initialize sets every field of a fresh pool. Status starts fully open.
func (s *State) Initialize(p InitParams) {
	*s = State{
		ID:             p.ID,
		AmmConfig:      p.AmmConfig,
		PoolCreator:    p.PoolCreator,
		Token0Vault:    p.Token0Vault,
		Token1Vault:    p.Token1Vault,
		LpMint:         p.LpMint,
		Token0Mint:     p.Token0Mint.Key,
		Token1Mint:     p.Token1Mint.Key,
		Token0Program:  p.Token0Mint.Program,
		Token1Program:  p.Token1Mint.Program,
		ObservationKey: p.ObservationKey,
		AuthBump:       p.AuthBump,
		LpMintDecimals: LpMintDecimals,
		Mint0Decimals:  p.Token0Mint.Decimals,
		Mint1Decimals:  p.Token1Mint.Decimals,
		LpSupply:       p.LpSupply,
		OpenTime:       p.OpenTime,
		RecentEpoch:    p.Epoch,
	}
}

// Clone returns a copy that can be mutated without touching s.
func (s *State) Clone() *State {
	next := *s
	return &next
}

// VaultAmountWithoutFee converts gross vault balances into tradable reserves by excluding the
// protocol and fund fees the pool owes but has not yet collected.
func (s *State) VaultAmountWithoutFee(vault0, vault1 uint64) (uint64, uint64, error) {
	owed0, overflow := gmath.SafeAdd(s.ProtocolFeesToken0, s.FundFeesToken0)
	if overflow {
		return 0, 0, fmt.Errorf("owed token_0 fees: %w", model.ErrArithmeticOverflow)
	}
	owed1, overflow := gmath.SafeAdd(s.ProtocolFeesToken1, s.FundFeesToken1)
	if overflow {
		return 0, 0, fmt.Errorf("owed token_1 fees: %w", model.ErrArithmeticOverflow)
	}
	amount0, underflow := gmath.SafeSub(vault0, owed0)
	if underflow {
		return 0, 0, fmt.Errorf("vault_0 %d below owed fees %d: %w", vault0, owed0, model.ErrArithmeticOverflow)
	}
	amount1, underflow := gmath.SafeSub(vault1, owed1)
	if underflow {
		return 0, 0, fmt.Errorf("vault_1 %d below owed fees %d: %w", vault1, owed1, model.ErrArithmeticOverflow)
	}
	return amount0, amount1, nil
}

// AddLpSupply increases LP supply, failing on overflow.
func (s *State) AddLpSupply(amount uint64) error {
	next, overflow := gmath.SafeAdd(s.LpSupply, amount)
	if overflow {
		return fmt.Errorf("lp supply %d + %d: %w", s.LpSupply, amount, model.ErrArithmeticOverflow)
	}
	s.LpSupply = next
	return nil
}

// SubLpSupply decreases LP supply, failing on underflow.
func (s *State) SubLpSupply(amount uint64) error {
	next, underflow := gmath.SafeSub(s.LpSupply, amount)
	if underflow {
		return fmt.Errorf("lp supply %d - %d: %w", s.LpSupply, amount, model.ErrArithmeticOverflow)
	}
	s.LpSupply = next
	return nil
}

// ApplyLpSupplyDelta adds a signed delta to LP supply.
func (s *State) ApplyLpSupplyDelta(delta int64) error {
	if delta >= 0 {
		return s.AddLpSupply(uint64(delta))
	}
	if delta == -delta {
		// math.MinInt64 has no positive counterpart in int64.
		return s.SubLpSupply(1 << 63)
	}
	return s.SubLpSupply(uint64(-delta))
}

// Snapshot flattens the pool and its current tradable reserves for storage.
func (s *State) Snapshot(reserve0, reserve1 uint64) model.PoolSnapshot {
	return model.PoolSnapshot{
		PoolID:        s.ID,
		AmmConfig:     s.AmmConfig,
		Token0Mint:    s.Token0Mint,
		Token1Mint:    s.Token1Mint,
		LpMint:        s.LpMint,
		Status:        s.Status,
		LpSupply:      s.LpSupply,
		Reserve0:      reserve0,
		Reserve1:      reserve1,
		ProtocolFees0: s.ProtocolFeesToken0,
		ProtocolFees1: s.ProtocolFeesToken1,
		FundFees0:     s.FundFeesToken0,
		FundFees1:     s.FundFeesToken1,
		SwapCount:     s.SwapCount,
		Volume0:       s.CumulativeVolume0,
		Volume1:       s.CumulativeVolume1,
		OpenTime:      s.OpenTime,
	}
}
