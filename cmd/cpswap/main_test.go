package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"cpswap/internal/config"
	"cpswap/internal/model"
	"cpswap/internal/pda"
	"cpswap/internal/pool"
)

func TestDerivePoolSortsMints(t *testing.T) {
	low := solana.PublicKeyFromBytes(bytes.Repeat([]byte{1}, 32))
	high := solana.PublicKeyFromBytes(bytes.Repeat([]byte{2}, 32))

	forward, err := derivePool(pda.DefaultProgramID, 0, low, high)
	require.NoError(t, err)
	reversed, err := derivePool(pda.DefaultProgramID, 0, high, low)
	require.NoError(t, err)
	require.Equal(t, forward, reversed)
	require.Equal(t, low.String(), forward.Token0Mint)

	ammConfig, err := pda.AmmConfig(pda.DefaultProgramID, 0)
	require.NoError(t, err)
	addrs, err := pda.ForPool(pda.DefaultProgramID, ammConfig.Key, low, high)
	require.NoError(t, err)
	require.Equal(t, addrs.Pool.Key.String(), forward.Pool.Key)

	_, err = derivePool(pda.DefaultProgramID, 0, low, low)
	require.ErrorContains(t, err, "mints must differ")
}

func TestOfflinePoolTransferFees(t *testing.T) {
	p, m := offlinePool(config.QuoteConfig{
		Vault0:        1_000,
		Vault1:        2_000,
		ProtocolFees0: 10,
		TradeFeeRate:  2_500,
		Decimals0:     6,
		Decimals1:     9,
		TransferFees:  map[string]model.TransferFee{"token1": {BasisPoints: 100, MaximumFee: 50}},
	})

	reserve0, reserve1, err := p.VaultAmountWithoutFee(m.Vault0, m.Vault1)
	require.NoError(t, err)
	require.Equal(t, uint64(990), reserve0)
	require.Equal(t, uint64(2_000), reserve1)

	require.Equal(t, model.TokenProgramLegacy, m.Mint0.Program)
	require.Nil(t, m.Mint0.TransferFee)
	require.Equal(t, model.TokenProgram2022, m.Mint1.Program)
	require.True(t, m.Mint1.HasExtension(model.ExtensionTransferFeeConfig))
	require.Equal(t, uint16(100), m.Mint1.TransferFee.NewerTransferFee.BasisPoints)
	require.Equal(t, uint64(2_500), m.Config.TradeFeeRate)
}

func TestQuoteCommandSwapIn(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"quote", "swap-in", "--vault0", "1000000", "--vault1", "2000000", "--amount", "10000"})
	require.NoError(t, root.Execute())

	var got swapOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, pool.ZeroForOne.String(), got.Direction)
	require.True(t, got.BaseInput)
	require.Equal(t, uint64(25), got.TradeFee)
	require.Equal(t, uint64(19_752), got.AmountReceived)
}

func TestParseDirection(t *testing.T) {
	d, err := parseDirection("one_for_zero")
	require.NoError(t, err)
	require.Equal(t, pool.OneForZero, d)

	_, err = parseDirection("sideways")
	require.Error(t, err)
}
