package model

import "github.com/gagliardetto/solana-go"

// AmmConfig is the fee and admin configuration a pool is created under.
type AmmConfig struct {
	Key               solana.PublicKey `json:"key"`
	Index             uint16           `json:"index"`
	TradeFeeRate      uint64           `json:"trade_fee_rate"`
	ProtocolFeeRate   uint64           `json:"protocol_fee_rate"`
	FundFeeRate       uint64           `json:"fund_fee_rate"`
	DisableCreatePool bool             `json:"disable_create_pool"`
}

// ObservationState is the oracle account attached to a pool. Only the owner link is kept here.
type ObservationState struct {
	Key    solana.PublicKey `json:"key"`
	PoolID solana.PublicKey `json:"pool_id"`
}
