package model

import "github.com/gagliardetto/solana-go"

// ChangeType distinguishes the flows that produce an event record.
type ChangeType uint8

const (
	ChangeTypeDeposit ChangeType = iota
	ChangeTypeWithdraw
	ChangeTypeSwapBaseInput
	ChangeTypeSwapBaseOutput
)

func (c ChangeType) String() string {
	switch c {
	case ChangeTypeDeposit:
		return "deposit"
	case ChangeTypeWithdraw:
		return "withdraw"
	case ChangeTypeSwapBaseInput:
		return "swap_base_input"
	case ChangeTypeSwapBaseOutput:
		return "swap_base_output"
	default:
		return "unknown"
	}
}

// LpChangeEvent is emitted by deposit and withdraw. Field order is the wire order.
type LpChangeEvent struct {
	PoolID            solana.PublicKey `json:"pool_id"`
	LpAmountBefore    uint64           `json:"lp_amount_before"`
	Token0VaultBefore uint64           `json:"token_0_vault_before"`
	Token1VaultBefore uint64           `json:"token_1_vault_before"`
	Token0Amount      uint64           `json:"token_0_amount"`
	Token1Amount      uint64           `json:"token_1_amount"`
	Token0TransferFee uint64           `json:"token_0_transfer_fee"`
	Token1TransferFee uint64           `json:"token_1_transfer_fee"`
	ChangeType        uint8            `json:"change_type"`
}

// SwapEvent is emitted by both swap flows. Field order is the wire order.
type SwapEvent struct {
	PoolID            solana.PublicKey `json:"pool_id"`
	InputVaultBefore  uint64           `json:"input_vault_before"`
	OutputVaultBefore uint64           `json:"output_vault_before"`
	InputAmount       uint64           `json:"input_amount"`
	OutputAmount      uint64           `json:"output_amount"`
	InputTransferFee  uint64           `json:"input_transfer_fee"`
	OutputTransferFee uint64           `json:"output_transfer_fee"`
	BaseInput         bool             `json:"base_input"`
}
