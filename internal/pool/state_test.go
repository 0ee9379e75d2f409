package pool

import (
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"cpswap/internal/model"
)

func newTestPool() *State {
	var s State
	s.Initialize(InitParams{
		ID:          solana.NewWallet().PublicKey(),
		LpSupply:    1_000,
		OpenTime:    10,
		Token0Vault: solana.NewWallet().PublicKey(),
		Token1Vault: solana.NewWallet().PublicKey(),
		Token0Mint:  model.MintInfo{Key: solana.NewWallet().PublicKey(), Decimals: 6},
		Token1Mint:  model.MintInfo{Key: solana.NewWallet().PublicKey(), Decimals: 9, Program: model.TokenProgram2022},
	})
	return &s
}

func TestInitialize(t *testing.T) {
	s := newTestPool()
	require.Equal(t, uint64(1_000), s.LpSupply)
	require.Equal(t, uint8(LpMintDecimals), s.LpMintDecimals)
	require.Equal(t, uint8(6), s.Mint0Decimals)
	require.Equal(t, model.TokenProgram2022, s.Token1Program)
	require.Zero(t, s.Status)
}

func TestStatusBits(t *testing.T) {
	s := newTestPool()
	for _, bit := range []StatusBit{StatusDeposit, StatusWithdraw, StatusSwapBaseInput, StatusSwapBaseOutput} {
		require.True(t, s.IsOperationEnabled(bit), bit.String())
	}

	s.SetStatus(1<<StatusWithdraw | 1<<StatusSwapBaseOutput)
	require.True(t, s.IsOperationEnabled(StatusDeposit))
	require.False(t, s.IsOperationEnabled(StatusWithdraw))
	require.True(t, s.IsOperationEnabled(StatusSwapBaseInput))
	require.False(t, s.IsOperationEnabled(StatusSwapBaseOutput))

	s.SetStatus(StatusAllDisabled)
	require.False(t, s.IsOperationEnabled(StatusDeposit))
}

func TestVaultAmountWithoutFee(t *testing.T) {
	s := newTestPool()
	s.ProtocolFeesToken0, s.FundFeesToken0 = 3, 2
	s.ProtocolFeesToken1 = 7

	r0, r1, err := s.VaultAmountWithoutFee(100, 200)
	require.NoError(t, err)
	require.Equal(t, uint64(95), r0)
	require.Equal(t, uint64(193), r1)

	_, _, err = s.VaultAmountWithoutFee(4, 200)
	require.ErrorIs(t, err, model.ErrArithmeticOverflow)

	s.ProtocolFeesToken1, s.FundFeesToken1 = math.MaxUint64, 1
	_, _, err = s.VaultAmountWithoutFee(100, 200)
	require.ErrorIs(t, err, model.ErrArithmeticOverflow)
}

func TestLpSupplyDelta(t *testing.T) {
	s := newTestPool()
	require.NoError(t, s.ApplyLpSupplyDelta(500))
	require.Equal(t, uint64(1_500), s.LpSupply)
	require.NoError(t, s.ApplyLpSupplyDelta(-1_500))
	require.Zero(t, s.LpSupply)

	require.ErrorIs(t, s.ApplyLpSupplyDelta(-1), model.ErrArithmeticOverflow)
	require.ErrorIs(t, s.ApplyLpSupplyDelta(math.MinInt64), model.ErrArithmeticOverflow)
	require.Zero(t, s.LpSupply)

	s.LpSupply = math.MaxUint64
	require.ErrorIs(t, s.AddLpSupply(1), model.ErrArithmeticOverflow)
	require.Equal(t, uint64(math.MaxUint64), s.LpSupply)
}

func TestDirectionAndSides(t *testing.T) {
	s := newTestPool()

	dir, err := s.DirectionOf(s.Token0Vault, s.Token1Vault)
	require.NoError(t, err)
	require.Equal(t, ZeroForOne, dir)

	dir, err = s.DirectionOf(s.Token1Vault, s.Token0Vault)
	require.NoError(t, err)
	require.Equal(t, OneForZero, dir)

	in, out := s.Sides(OneForZero)
	require.Equal(t, s.Token1Vault, in.Vault)
	require.Equal(t, s.Token0Mint, out.Mint)

	_, err = s.DirectionOf(s.Token0Vault, s.Token0Vault)
	require.ErrorIs(t, err, model.ErrInvalidVault)

	a, b := Orient(OneForZero, "zero", "one")
	require.Equal(t, "one", a)
	require.Equal(t, "zero", b)
}

func TestApplySwap(t *testing.T) {
	s := newTestPool()
	require.NoError(t, s.ApplySwap(SwapFill{
		Direction:    OneForZero,
		InputAmount:  10_000,
		OutputAmount: 4_900,
		TradeFee:     25,
		ProtocolFee:  3,
		FundFee:      1,
		Epoch:        42,
	}))

	require.Equal(t, uint64(3), s.ProtocolFeesToken1)
	require.Equal(t, uint64(1), s.FundFeesToken1)
	require.Zero(t, s.ProtocolFeesToken0)
	require.Equal(t, uint64(25), s.CumulativeTradeFee1)
	require.Equal(t, uint64(10_000), s.CumulativeVolume1)
	require.Equal(t, uint64(4_900), s.CumulativeVolume0)
	require.Equal(t, uint64(1), s.SwapCount)
	require.Equal(t, uint64(42), s.RecentEpoch)
}

func TestApplySwapOverflowLeavesStateUntouched(t *testing.T) {
	s := newTestPool()
	s.CumulativeVolume1 = math.MaxUint64
	before := *s

	err := s.ApplySwap(SwapFill{Direction: ZeroForOne, InputAmount: 1, OutputAmount: 1, ProtocolFee: 1, Epoch: 9})
	require.ErrorIs(t, err, model.ErrArithmeticOverflow)
	require.Equal(t, before, *s)
}

func TestCloneIsIndependent(t *testing.T) {
	s := newTestPool()
	c := s.Clone()
	require.NoError(t, c.AddLpSupply(1))
	require.Equal(t, uint64(1_000), s.LpSupply)
	require.Equal(t, uint64(1_001), c.LpSupply)
}

func TestSnapshot(t *testing.T) {
	s := newTestPool()
	s.FundFeesToken0 = 4
	snap := s.Snapshot(11, 22)
	require.Equal(t, s.ID, snap.PoolID)
	require.Equal(t, uint64(11), snap.Reserve0)
	require.Equal(t, uint64(22), snap.Reserve1)
	require.Equal(t, uint64(4), snap.FundFees0)
	require.Equal(t, uint64(10), snap.OpenTime)
}
