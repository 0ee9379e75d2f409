package model

import (
	"encoding/json"

	"github.com/gagliardetto/solana-go"
)

// EventRecord is the flattened representation of a pool event for storage.
// Amount and fee columns are oriented to token_0/token_1 for every change type. TradeFee and
// ZeroForOne are set for swaps only; the trade fee is charged in the input token.
type EventRecord struct {
	Seq            uint64           `json:"seq"`
	PoolID         solana.PublicKey `json:"pool_id"`
	ChangeType     ChangeType       `json:"change_type"`
	LpSupplyBefore uint64           `json:"lp_supply_before"`
	Reserve0Before uint64           `json:"reserve_0_before"`
	Reserve1Before uint64           `json:"reserve_1_before"`
	Amount0        uint64           `json:"amount_0"`
	Amount1        uint64           `json:"amount_1"`
	Fee0           uint64           `json:"fee_0"`
	Fee1           uint64           `json:"fee_1"`
	TradeFee       uint64           `json:"trade_fee,omitempty"`
	ZeroForOne     bool             `json:"zero_for_one,omitempty"`
	Timestamp      uint64           `json:"timestamp"`
	Payload        []byte           `json:"payload,omitempty"`
}

// MarshalJSON ensures EventRecord is encoded with stable field names and a readable change type.
func (r EventRecord) MarshalJSON() ([]byte, error) {
	type Alias EventRecord
	return json.Marshal(struct {
		Alias
		ChangeName string `json:"change_name"`
	}{Alias: Alias(r), ChangeName: r.ChangeType.String()})
}

// UnmarshalJSON decodes an EventRecord from JSON.
func (r *EventRecord) UnmarshalJSON(data []byte) error {
	type Alias EventRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = EventRecord(a)
	return nil
}
