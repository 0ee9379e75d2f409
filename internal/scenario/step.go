// Package scenario replays a JSONL script of ledger setup and pool operations against the
// engine, persisting events, pool snapshots and rejected steps as it goes.
package scenario

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"cpswap/internal/model"
)

// Op names accepted in the "op" field of a step.
const (
	OpClock          = "clock"
	OpMint           = "mint"
	OpFund           = "fund"
	OpConfig         = "config"
	OpInitialize     = "initialize"
	OpDeposit        = "deposit"
	OpWithdraw       = "withdraw"
	OpSwapBaseInput  = "swap_base_input"
	OpSwapBaseOutput = "swap_base_output"
	OpSetStatus      = "set_status"
)

// Step is one line of a scenario. Expect names the error the step must fail with; empty means
// the step must succeed. Pool errors match by name, anything else by substring.
type Step struct {
	Line   int
	Op     string
	Expect string
	Args   any
}

type stepHeader struct {
	Op     string `json:"op"`
	Expect string `json:"expect"`
}

// ClockArgs moves the ledger clock.
type ClockArgs struct {
	Timestamp uint64 `json:"timestamp"`
	Epoch     uint64 `json:"epoch"`
}

// MintArgs registers a named mint. A transfer fee config implies token-2022 and the transfer
// fee extension.
type MintArgs struct {
	Mint        string                   `json:"mint"`
	Decimals    uint8                    `json:"decimals"`
	Token2022   bool                     `json:"token_2022"`
	Extensions  []string                 `json:"extensions"`
	TransferFee *model.TransferFeeConfig `json:"transfer_fee"`
	FeeExempt   bool                     `json:"fee_exempt"`
}

// FundArgs mints amount of a named mint into a wallet's associated account.
type FundArgs struct {
	Wallet string `json:"wallet"`
	Mint   string `json:"mint"`
	Amount uint64 `json:"amount"`
}

// ConfigArgs registers a named AMM config.
type ConfigArgs struct {
	Config            string `json:"config"`
	Index             uint16 `json:"index"`
	TradeFeeRate      uint64 `json:"trade_fee_rate"`
	ProtocolFeeRate   uint64 `json:"protocol_fee_rate"`
	FundFeeRate       uint64 `json:"fund_fee_rate"`
	DisableCreatePool bool   `json:"disable_create_pool"`
}

// InitializeArgs creates a named pool. Mints may be given in either order.
type InitializeArgs struct {
	Pool     string `json:"pool"`
	Config   string `json:"config"`
	Creator  string `json:"creator"`
	MintA    string `json:"mint_a"`
	MintB    string `json:"mint_b"`
	AmountA  uint64 `json:"amount_a"`
	AmountB  uint64 `json:"amount_b"`
	OpenTime uint64 `json:"open_time"`
}

// DepositArgs adds liquidity from a wallet.
type DepositArgs struct {
	Pool                string `json:"pool"`
	Wallet              string `json:"wallet"`
	LpAmount            uint64 `json:"lp_amount"`
	MaximumToken0Amount uint64 `json:"maximum_token_0_amount"`
	MaximumToken1Amount uint64 `json:"maximum_token_1_amount"`
}

// WithdrawArgs removes liquidity to a wallet.
type WithdrawArgs struct {
	Pool                string `json:"pool"`
	Wallet              string `json:"wallet"`
	LpAmount            uint64 `json:"lp_amount"`
	MinimumToken0Amount uint64 `json:"minimum_token_0_amount"`
	MinimumToken1Amount uint64 `json:"minimum_token_1_amount"`
}

// SwapArgs trades from a wallet. The output mint is the other mint of the pool.
type SwapArgs struct {
	Pool                 string `json:"pool"`
	Wallet               string `json:"wallet"`
	InputMint            string `json:"input_mint"`
	Amount               uint64 `json:"amount"`
	OtherAmountThreshold uint64 `json:"other_amount_threshold"`
}

// SetStatusArgs replaces the status mask of a pool.
type SetStatusArgs struct {
	Pool   string `json:"pool"`
	Status uint8  `json:"status"`
}

// ReadSteps parses the scenario at path.
func ReadSteps(path string) ([]Step, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer file.Close()
	return ParseSteps(file)
}

// ParseSteps reads one JSON step per line. Blank lines and lines starting with '#' are skipped;
// Line keeps the 1-based position in the input.
func ParseSteps(r io.Reader) ([]Step, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var steps []Step
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		step, err := parseStep(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		step.Line = lineNo
		steps = append(steps, step)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan scenario: %w", err)
	}
	return steps, nil
}

func parseStep(line []byte) (Step, error) {
	var header stepHeader
	if err := json.Unmarshal(line, &header); err != nil {
		return Step{}, fmt.Errorf("parse step: %w", err)
	}

	var args any
	switch header.Op {
	case OpClock:
		args = &ClockArgs{}
	case OpMint:
		args = &MintArgs{}
	case OpFund:
		args = &FundArgs{}
	case OpConfig:
		args = &ConfigArgs{}
	case OpInitialize:
		args = &InitializeArgs{}
	case OpDeposit:
		args = &DepositArgs{}
	case OpWithdraw:
		args = &WithdrawArgs{}
	case OpSwapBaseInput, OpSwapBaseOutput:
		args = &SwapArgs{}
	case OpSetStatus:
		args = &SetStatusArgs{}
	case "":
		return Step{}, fmt.Errorf("missing op")
	default:
		return Step{}, fmt.Errorf("unknown op %q", header.Op)
	}
	if err := json.Unmarshal(line, args); err != nil {
		return Step{}, fmt.Errorf("parse %s args: %w", header.Op, err)
	}

	return Step{Op: header.Op, Expect: header.Expect, Args: args}, nil
}
