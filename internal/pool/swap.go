package pool

import (
	"fmt"

	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/gagliardetto/solana-go"

	"cpswap/internal/model"
)

// TradeDirection is the side a swap takes tokens in on.
type TradeDirection uint8

const (
	ZeroForOne TradeDirection = iota
	OneForZero
)

func (d TradeDirection) String() string {
	if d == OneForZero {
		return "one_for_zero"
	}
	return "zero_for_one"
}

// SwapSide is one half of a swap: the vault, its mint and the mint's token program.
type SwapSide struct {
	Vault   solana.PublicKey
	Mint    solana.PublicKey
	Program model.TokenProgramKind
}

// DirectionOf resolves the direction of a swap from its input and output vaults.
func (s *State) DirectionOf(inputVault, outputVault solana.PublicKey) (TradeDirection, error) {
	switch {
	case inputVault.Equals(s.Token0Vault) && outputVault.Equals(s.Token1Vault):
		return ZeroForOne, nil
	case inputVault.Equals(s.Token1Vault) && outputVault.Equals(s.Token0Vault):
		return OneForZero, nil
	default:
		return 0, fmt.Errorf("input %s output %s: %w", inputVault, outputVault, model.ErrInvalidVault)
	}
}

// Sides returns the input and output side of a swap in direction.
func (s *State) Sides(direction TradeDirection) (input, output SwapSide) {
	zero := SwapSide{Vault: s.Token0Vault, Mint: s.Token0Mint, Program: s.Token0Program}
	one := SwapSide{Vault: s.Token1Vault, Mint: s.Token1Mint, Program: s.Token1Program}
	if direction == OneForZero {
		return one, zero
	}
	return zero, one
}

// Orient maps a (token_0, token_1) pair to (input, output) for direction.
func Orient[T any](direction TradeDirection, token0, token1 T) (input, output T) {
	if direction == OneForZero {
		return token1, token0
	}
	return token0, token1
}

// SwapFill is what a completed swap adds to the pool's accounting.
type SwapFill struct {
	Direction    TradeDirection
	InputAmount  uint64
	OutputAmount uint64
	TradeFee     uint64
	ProtocolFee  uint64
	FundFee      uint64
	Epoch        uint64
}

// ApplySwap accrues protocol and fund fees on the input side and advances the swap counters.
// Nothing is written unless every addition succeeds.
func (s *State) ApplySwap(fill SwapFill) error {
	next := *s
	protocol, fund, tradeFees, volumeIn, volumeOut := &next.ProtocolFeesToken0, &next.FundFeesToken0, &next.CumulativeTradeFee0, &next.CumulativeVolume0, &next.CumulativeVolume1
	if fill.Direction == OneForZero {
		protocol, fund, tradeFees, volumeIn, volumeOut = &next.ProtocolFeesToken1, &next.FundFeesToken1, &next.CumulativeTradeFee1, &next.CumulativeVolume1, &next.CumulativeVolume0
	}

	for _, step := range []struct {
		name  string
		field *uint64
		delta uint64
	}{
		{"protocol fees", protocol, fill.ProtocolFee},
		{"fund fees", fund, fill.FundFee},
		{"trade fees", tradeFees, fill.TradeFee},
		{"input volume", volumeIn, fill.InputAmount},
		{"output volume", volumeOut, fill.OutputAmount},
		{"swap count", &next.SwapCount, 1},
	} {
		sum, overflow := gmath.SafeAdd(*step.field, step.delta)
		if overflow {
			return fmt.Errorf("%s %d + %d: %w", step.name, *step.field, step.delta, model.ErrArithmeticOverflow)
		}
		*step.field = sum
	}

	next.RecentEpoch = fill.Epoch
	*s = next
	return nil
}
