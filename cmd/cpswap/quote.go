package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cpswap/internal/amm"
	"cpswap/internal/config"
	"cpswap/internal/model"
	"cpswap/internal/pool"
)

func newQuoteCmd() *cobra.Command {
	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a flow against a pool described by flags",
	}

	flags := quoteCmd.PersistentFlags()
	flags.Uint64("vault0", 0, "token_0 vault balance")
	flags.Uint64("vault1", 0, "token_1 vault balance")
	flags.Uint64("lp-supply", 0, "LP supply")
	flags.Uint64("protocol-fees0", 0, "accrued token_0 protocol fees")
	flags.Uint64("protocol-fees1", 0, "accrued token_1 protocol fees")
	flags.Uint64("fund-fees0", 0, "accrued token_0 fund fees")
	flags.Uint64("fund-fees1", 0, "accrued token_1 fund fees")
	flags.Uint64("trade-fee-rate", 2_500, "trade fee rate (1e6 denominator)")
	flags.Uint64("protocol-fee-rate", 120_000, "protocol share of the trade fee (1e6 denominator)")
	flags.Uint64("fund-fee-rate", 40_000, "fund share of the trade fee (1e6 denominator)")
	flags.Uint("decimals0", 9, "token_0 decimals")
	flags.Uint("decimals1", 9, "token_1 decimals")
	flags.Uint64("epoch", 0, "current epoch")
	flags.String("transfer-fee", "", "transfer fees (e.g. token0=100:5000,token1=50:1000)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Token amounts a deposit of --lp-amount costs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lpAmount, _ := cmd.Flags().GetUint64("lp-amount")
			return runQuote(cmd, func(p *pool.State, m amm.Market) (any, error) {
				q, err := amm.QuoteDeposit(p, m, lpAmount)
				return liquidityOutputOf(q), err
			})
		},
	}
	depositCmd.Flags().Uint64("lp-amount", 0, "LP tokens to mint")

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Token amounts a withdraw of --lp-amount returns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lpAmount, _ := cmd.Flags().GetUint64("lp-amount")
			return runQuote(cmd, func(p *pool.State, m amm.Market) (any, error) {
				q, err := amm.QuoteWithdraw(p, m, lpAmount)
				return liquidityOutputOf(q), err
			})
		},
	}
	withdrawCmd.Flags().Uint64("lp-amount", 0, "LP tokens to burn")

	swapInCmd := &cobra.Command{
		Use:   "swap-in",
		Short: "Output of a swap of exactly --amount input tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSwapQuote(cmd, amm.QuoteSwapBaseInput)
		},
	}

	swapOutCmd := &cobra.Command{
		Use:   "swap-out",
		Short: "Input needed to receive exactly --amount output tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSwapQuote(cmd, amm.QuoteSwapBaseOutput)
		},
	}

	for _, c := range []*cobra.Command{swapInCmd, swapOutCmd} {
		c.Flags().Uint64("amount", 0, "swap amount")
		c.Flags().String("direction", pool.ZeroForOne.String(), "zero_for_one or one_for_zero")
	}

	quoteCmd.AddCommand(depositCmd, withdrawCmd, swapInCmd, swapOutCmd)
	return quoteCmd
}

type quoteFunc func(p *pool.State, m amm.Market) (any, error)

type swapQuoteFunc func(p *pool.State, m amm.Market, direction pool.TradeDirection, amount uint64) (amm.SwapQuote, error)

func runSwapQuote(cmd *cobra.Command, quote swapQuoteFunc) error {
	amount, _ := cmd.Flags().GetUint64("amount")
	directionText, _ := cmd.Flags().GetString("direction")
	direction, err := parseDirection(directionText)
	if err != nil {
		return err
	}
	return runQuote(cmd, func(p *pool.State, m amm.Market) (any, error) {
		q, err := quote(p, m, direction, amount)
		return swapOutputOf(q), err
	})
}

func runQuote(cmd *cobra.Command, quote quoteFunc) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	p, m := offlinePool(cfg)
	out, err := quote(p, m)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

// offlinePool builds the pool state and market a quote prices against.
func offlinePool(cfg config.QuoteConfig) (*pool.State, amm.Market) {
	p := &pool.State{
		LpSupply:           cfg.LpSupply,
		ProtocolFeesToken0: cfg.ProtocolFees0,
		ProtocolFeesToken1: cfg.ProtocolFees1,
		FundFeesToken0:     cfg.FundFees0,
		FundFeesToken1:     cfg.FundFees1,
		Mint0Decimals:      cfg.Decimals0,
		Mint1Decimals:      cfg.Decimals1,
		RecentEpoch:        cfg.Epoch,
	}
	fee0, ok0 := cfg.TransferFees["token0"]
	fee1, ok1 := cfg.TransferFees["token1"]
	m := amm.Market{
		Vault0: cfg.Vault0,
		Vault1: cfg.Vault1,
		Mint0:  quoteMint(cfg.Decimals0, fee0, ok0),
		Mint1:  quoteMint(cfg.Decimals1, fee1, ok1),
		Config: model.AmmConfig{
			TradeFeeRate:    cfg.TradeFeeRate,
			ProtocolFeeRate: cfg.ProtocolFeeRate,
			FundFeeRate:     cfg.FundFeeRate,
		},
		Epoch: cfg.Epoch,
	}
	return p, m
}

func quoteMint(decimals uint8, transferFee model.TransferFee, hasFee bool) model.MintInfo {
	mint := model.MintInfo{Decimals: decimals, Program: model.TokenProgramLegacy}
	if hasFee {
		mint.Program = model.TokenProgram2022
		mint.Extensions = []model.ExtensionType{model.ExtensionTransferFeeConfig}
		mint.TransferFee = &model.TransferFeeConfig{OlderTransferFee: transferFee, NewerTransferFee: transferFee}
	}
	return mint
}

func parseDirection(input string) (pool.TradeDirection, error) {
	switch input {
	case pool.ZeroForOne.String():
		return pool.ZeroForOne, nil
	case pool.OneForZero.String():
		return pool.OneForZero, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", input)
	}
}

type liquidityOutput struct {
	LpAmount          uint64 `json:"lp_amount"`
	LpSupplyBefore    uint64 `json:"lp_supply_before"`
	Reserve0Before    uint64 `json:"reserve_0_before"`
	Reserve1Before    uint64 `json:"reserve_1_before"`
	Token0Amount      uint64 `json:"token_0_amount"`
	Token1Amount      uint64 `json:"token_1_amount"`
	Token0TransferFee uint64 `json:"token_0_transfer_fee"`
	Token1TransferFee uint64 `json:"token_1_transfer_fee"`
	Transfer0Amount   uint64 `json:"transfer_0_amount"`
	Transfer1Amount   uint64 `json:"transfer_1_amount"`
	Net0Amount        uint64 `json:"net_0_amount"`
	Net1Amount        uint64 `json:"net_1_amount"`
}

func liquidityOutputOf(q amm.LiquidityQuote) liquidityOutput {
	return liquidityOutput(q)
}

type swapOutput struct {
	Direction            string `json:"direction"`
	BaseInput            bool   `json:"base_input"`
	InputReserveBefore   uint64 `json:"input_reserve_before"`
	OutputReserveBefore  uint64 `json:"output_reserve_before"`
	SourceAmountSwapped  uint64 `json:"source_amount_swapped"`
	DestAmountSwapped    uint64 `json:"destination_amount_swapped"`
	TradeFee             uint64 `json:"trade_fee"`
	ProtocolFee          uint64 `json:"protocol_fee"`
	FundFee              uint64 `json:"fund_fee"`
	InputTransferAmount  uint64 `json:"input_transfer_amount"`
	InputTransferFee     uint64 `json:"input_transfer_fee"`
	OutputTransferAmount uint64 `json:"output_transfer_amount"`
	OutputTransferFee    uint64 `json:"output_transfer_fee"`
	AmountReceived       uint64 `json:"amount_received"`
}

func swapOutputOf(q amm.SwapQuote) swapOutput {
	return swapOutput{
		Direction:            q.Direction.String(),
		BaseInput:            q.BaseInput,
		InputReserveBefore:   q.InputReserveBefore,
		OutputReserveBefore:  q.OutputReserveBefore,
		SourceAmountSwapped:  q.Curve.SourceAmountSwapped,
		DestAmountSwapped:    q.Curve.DestinationAmountSwapped,
		TradeFee:             q.Curve.TradeFee,
		ProtocolFee:          q.Curve.ProtocolFee,
		FundFee:              q.Curve.FundFee,
		InputTransferAmount:  q.InputTransferAmount,
		InputTransferFee:     q.InputTransferFee,
		OutputTransferAmount: q.OutputTransferAmount,
		OutputTransferFee:    q.OutputTransferFee,
		AmountReceived:       q.AmountReceived,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
