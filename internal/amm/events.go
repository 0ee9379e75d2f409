package amm

import (
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"cpswap/internal/codec"
	"cpswap/internal/model"
	"cpswap/internal/pool"
)

func lpChangeRecord(poolID solana.PublicKey, change model.ChangeType, q LiquidityQuote, timestamp uint64, logger *zap.Logger) model.EventRecord {
	event := model.LpChangeEvent{
		PoolID:            poolID,
		LpAmountBefore:    q.LpSupplyBefore,
		Token0VaultBefore: q.Reserve0Before,
		Token1VaultBefore: q.Reserve1Before,
		Token0Amount:      q.Token0Amount,
		Token1Amount:      q.Token1Amount,
		Token0TransferFee: q.Token0TransferFee,
		Token1TransferFee: q.Token1TransferFee,
		ChangeType:        uint8(change),
	}
	payload, err := codec.EncodeLpChange(event)
	if err != nil {
		logger.Warn("encode lp change event", zap.Stringer("pool", poolID), zap.Error(err))
	}
	return model.EventRecord{
		PoolID:         poolID,
		ChangeType:     change,
		LpSupplyBefore: q.LpSupplyBefore,
		Reserve0Before: q.Reserve0Before,
		Reserve1Before: q.Reserve1Before,
		Amount0:        q.Token0Amount,
		Amount1:        q.Token1Amount,
		Fee0:           q.Token0TransferFee,
		Fee1:           q.Token1TransferFee,
		Timestamp:      timestamp,
		Payload:        payload,
	}
}

// swapRecord orients a swap back onto token_0 and token_1.
func swapRecord(poolID solana.PublicKey, lpSupply uint64, q SwapQuote, timestamp uint64, logger *zap.Logger) model.EventRecord {
	event := model.SwapEvent{
		PoolID:            poolID,
		InputVaultBefore:  q.InputReserveBefore,
		OutputVaultBefore: q.OutputReserveBefore,
		InputAmount:       q.Curve.SourceAmountSwapped,
		OutputAmount:      q.Curve.DestinationAmountSwapped,
		InputTransferFee:  q.InputTransferFee,
		OutputTransferFee: q.OutputTransferFee,
		BaseInput:         q.BaseInput,
	}
	payload, err := codec.EncodeSwap(event)
	if err != nil {
		logger.Warn("encode swap event", zap.Stringer("pool", poolID), zap.Error(err))
	}

	change := model.ChangeTypeSwapBaseOutput
	if q.BaseInput {
		change = model.ChangeTypeSwapBaseInput
	}
	// Orient is its own inverse.
	reserve0, reserve1 := pool.Orient(q.Direction, q.InputReserveBefore, q.OutputReserveBefore)
	amount0, amount1 := pool.Orient(q.Direction, q.Curve.SourceAmountSwapped, q.Curve.DestinationAmountSwapped)
	fee0, fee1 := pool.Orient(q.Direction, q.InputTransferFee, q.OutputTransferFee)
	return model.EventRecord{
		PoolID:         poolID,
		ChangeType:     change,
		LpSupplyBefore: lpSupply,
		Reserve0Before: reserve0,
		Reserve1Before: reserve1,
		Amount0:        amount0,
		Amount1:        amount1,
		Fee0:           fee0,
		Fee1:           fee1,
		TradeFee:       q.Curve.TradeFee,
		ZeroForOne:     q.Direction == pool.ZeroForOne,
		Timestamp:      timestamp,
		Payload:        payload,
	}
}
