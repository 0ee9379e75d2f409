package pool

// StatusBit indexes the pool status bitmask. A set bit disables the operation.
type StatusBit uint8

const (
	StatusDeposit StatusBit = iota
	StatusWithdraw
	StatusSwapBaseInput
	StatusSwapBaseOutput
)

// StatusAllDisabled has every known operation bit set.
const StatusAllDisabled uint8 = 1<<StatusDeposit | 1<<StatusWithdraw | 1<<StatusSwapBaseInput | 1<<StatusSwapBaseOutput

func (b StatusBit) String() string {
	switch b {
	case StatusDeposit:
		return "deposit"
	case StatusWithdraw:
		return "withdraw"
	case StatusSwapBaseInput:
		return "swap_base_input"
	case StatusSwapBaseOutput:
		return "swap_base_output"
	default:
		return "unknown"
	}
}

// IsOperationEnabled reports whether bit is clear in the status mask.
func (s *State) IsOperationEnabled(bit StatusBit) bool {
	return s.Status&(1<<bit) == 0
}

// SetStatus replaces the status mask. Admin tooling calls this; flows only read it.
func (s *State) SetStatus(status uint8) {
	s.Status = status
}
