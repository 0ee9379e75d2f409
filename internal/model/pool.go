package model

import "github.com/gagliardetto/solana-go"

// PoolSnapshot is a pool's reserve and supply view for storage.
type PoolSnapshot struct {
	PoolID        solana.PublicKey `json:"pool_id"`
	AmmConfig     solana.PublicKey `json:"amm_config"`
	Token0Mint    solana.PublicKey `json:"token_0_mint"`
	Token1Mint    solana.PublicKey `json:"token_1_mint"`
	LpMint        solana.PublicKey `json:"lp_mint"`
	Status        uint8            `json:"status"`
	LpSupply      uint64           `json:"lp_supply"`
	Reserve0      uint64           `json:"reserve_0"`
	Reserve1      uint64           `json:"reserve_1"`
	ProtocolFees0 uint64           `json:"protocol_fees_0"`
	ProtocolFees1 uint64           `json:"protocol_fees_1"`
	FundFees0     uint64           `json:"fund_fees_0"`
	FundFees1     uint64           `json:"fund_fees_1"`
	SwapCount     uint64           `json:"swap_count"`
	Volume0       uint64           `json:"volume_0"`
	Volume1       uint64           `json:"volume_1"`
	OpenTime      uint64           `json:"open_time"`
}
