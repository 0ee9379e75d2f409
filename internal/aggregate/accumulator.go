package aggregate

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"cpswap/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	PoolID        solana.PublicKey
	WindowStart   uint64
	WindowEnd     uint64
	SwapCount     uint64
	DepositCount  uint64
	WithdrawCount uint64
	Volume0       *uint256.Int
	Volume1       *uint256.Int
	TradeFee0     *uint256.Int
	TradeFee1     *uint256.Int
	TransferFee0  *uint256.Int
	TransferFee1  *uint256.Int
	LastTS        uint64
	LastSeq       uint64
	// Reserves before the latest event seen in the window.
	Reserve0 uint64
	Reserve1 uint64
}

func NewAccumulator(record model.EventRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolID:       record.PoolID,
		WindowStart:  windowStart,
		WindowEnd:    windowEnd,
		Volume0:      new(uint256.Int),
		Volume1:      new(uint256.Int),
		TradeFee0:    new(uint256.Int),
		TradeFee1:    new(uint256.Int),
		TransferFee0: new(uint256.Int),
		TransferFee1: new(uint256.Int),
		LastTS:       record.Timestamp,
		LastSeq:      record.Seq,
		Reserve0:     record.Reserve0Before,
		Reserve1:     record.Reserve1Before,
	}
}

func (a *Accumulator) AddEvent(record model.EventRecord) error {
	switch record.ChangeType {
	case model.ChangeTypeSwapBaseInput, model.ChangeTypeSwapBaseOutput:
		a.SwapCount++
		addUint64(a.Volume0, record.Amount0)
		addUint64(a.Volume1, record.Amount1)
		if record.ZeroForOne {
			addUint64(a.TradeFee0, record.TradeFee)
		} else {
			addUint64(a.TradeFee1, record.TradeFee)
		}
	case model.ChangeTypeDeposit:
		a.DepositCount++
	case model.ChangeTypeWithdraw:
		a.WithdrawCount++
	default:
		return fmt.Errorf("unknown change type %d", record.ChangeType)
	}
	addUint64(a.TransferFee0, record.Fee0)
	addUint64(a.TransferFee1, record.Fee1)

	if record.Seq >= a.LastSeq {
		a.LastSeq = record.Seq
		a.LastTS = record.Timestamp
		a.Reserve0 = record.Reserve0Before
		a.Reserve1 = record.Reserve1Before
	}
	return nil
}

func addUint64(target *uint256.Int, value uint64) {
	target.Add(target, uint256.NewInt(value))
}
