package scenario

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cpswap/internal/ledger"
	"cpswap/internal/model"
)

func TestParseStepsSkipsBlankAndComments(t *testing.T) {
	steps, err := ParseSteps(strings.NewReader(`
# setup
{"op":"clock","timestamp":7,"epoch":2}

{"op":"swap_base_output","pool":"p","wallet":"w","input_mint":"a","amount":5,"other_amount_threshold":9,"expect":"ExceededSlippage"}
`))
	require.NoError(t, err)
	require.Len(t, steps, 2)

	require.Equal(t, 3, steps[0].Line)
	require.Equal(t, &ClockArgs{Timestamp: 7, Epoch: 2}, steps[0].Args)

	require.Equal(t, 5, steps[1].Line)
	require.Equal(t, OpSwapBaseOutput, steps[1].Op)
	require.Equal(t, "ExceededSlippage", steps[1].Expect)
	require.Equal(t, &SwapArgs{Pool: "p", Wallet: "w", InputMint: "a", Amount: 5, OtherAmountThreshold: 9}, steps[1].Args)
}

func TestParseStepsTransferFeeMint(t *testing.T) {
	steps, err := ParseSteps(strings.NewReader(`{"op":"mint","mint":"pyusd","decimals":6,"transfer_fee":{"older_transfer_fee":{"epoch":0,"maximum_fee":50,"basis_points":100},"newer_transfer_fee":{"epoch":10,"maximum_fee":50,"basis_points":200}}}`))
	require.NoError(t, err)
	args := steps[0].Args.(*MintArgs)
	require.NotNil(t, args.TransferFee)
	require.Equal(t, uint16(200), args.TransferFee.NewerTransferFee.BasisPoints)
	require.Equal(t, uint64(10), args.TransferFee.NewerTransferFee.Epoch)
}

func TestParseStepsErrors(t *testing.T) {
	_, err := ParseSteps(strings.NewReader("{\"op\":\"clock\"}\n{\"op\":\"teleport\"}\n"))
	require.ErrorContains(t, err, `line 2: unknown op "teleport"`)

	_, err = ParseSteps(strings.NewReader(`{"pool":"p"}`))
	require.ErrorContains(t, err, "missing op")

	_, err = ParseSteps(strings.NewReader(`{"op":"deposit","lp_amount":"many"}`))
	require.ErrorContains(t, err, "parse deposit args")

	_, err = ParseSteps(strings.NewReader(`not json`))
	require.ErrorContains(t, err, "line 1: parse step")
}

func TestWorldMintProgramAndExtensions(t *testing.T) {
	l := ledger.New()
	w := NewWorld(l, nil)

	require.NoError(t, w.Apply(Step{Op: OpMint, Args: &MintArgs{Mint: "plain", Decimals: 6}}))
	require.NoError(t, w.Apply(Step{Op: OpMint, Args: &MintArgs{
		Mint:        "fee",
		Decimals:    6,
		TransferFee: &model.TransferFeeConfig{NewerTransferFee: model.TransferFee{BasisPoints: 10, MaximumFee: 5}},
	}}))
	require.NoError(t, w.Apply(Step{Op: OpMint, Args: &MintArgs{Mint: "hook", Extensions: []string{"transfer_hook"}}}))

	plain, err := l.MintInfo(KeyFor("mint", "plain"))
	require.NoError(t, err)
	require.Equal(t, model.TokenProgramLegacy, plain.Program)

	feeMint, err := l.MintInfo(KeyFor("mint", "fee"))
	require.NoError(t, err)
	require.Equal(t, model.TokenProgram2022, feeMint.Program)
	require.True(t, feeMint.HasExtension(model.ExtensionTransferFeeConfig))

	hook, err := l.MintInfo(KeyFor("mint", "hook"))
	require.NoError(t, err)
	require.True(t, hook.HasExtension(model.ExtensionTransferHook))

	require.ErrorIs(t, w.Apply(Step{Op: OpMint, Args: &MintArgs{Mint: "plain"}}), ledger.ErrMintExists)
	require.ErrorContains(t, w.Apply(Step{Op: OpMint, Args: &MintArgs{Mint: "x", Extensions: []string{"bogus"}}}), "unknown extension")
	require.ErrorIs(t, w.Apply(Step{Op: OpFund, Args: &FundArgs{Wallet: "a", Mint: "missing", Amount: 1}}), ledger.ErrMintNotFound)
}

func TestKeyForIsStable(t *testing.T) {
	require.Equal(t, KeyFor("mint", "usdc"), KeyFor("mint", "usdc"))
	require.NotEqual(t, KeyFor("mint", "usdc"), KeyFor("wallet", "usdc"))
}
