package model

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// PoolWindowMetrics stores aggregated activity of one pool over one time window. Amounts are
// decimal strings in base units since window sums may exceed 64 bits.
type PoolWindowMetrics struct {
	PoolID         solana.PublicKey `json:"pool_id"`
	WindowSizeSecs int64            `json:"window_size_secs"`
	WindowStart    time.Time        `json:"window_start"`
	WindowEnd      time.Time        `json:"window_end"`
	SwapCount      uint64           `json:"swap_count"`
	DepositCount   uint64           `json:"deposit_count"`
	WithdrawCount  uint64           `json:"withdraw_count"`
	Volume0        string           `json:"volume_0"`
	Volume1        string           `json:"volume_1"`
	TradeFee0      string           `json:"trade_fee_0"`
	TradeFee1      string           `json:"trade_fee_1"`
	TransferFee0   string           `json:"transfer_fee_0"`
	TransferFee1   string           `json:"transfer_fee_1"`
	FeeRate0       *string          `json:"fee_rate_0,omitempty"`
	FeeRate1       *string          `json:"fee_rate_1,omitempty"`
	TVL0           *string          `json:"tvl_0,omitempty"`
	TVL1           *string          `json:"tvl_1,omitempty"`
	APR            *string          `json:"apr,omitempty"`
	FeeMethod      string           `json:"fee_method"`
	TVLMethod      string           `json:"tvl_method"`
	LastSeq        uint64           `json:"last_seq"`
}
