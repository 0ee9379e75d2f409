package curve

import (
	"fmt"

	"github.com/holiman/uint256"

	"cpswap/internal/model"
)

// FeeRateDenominator is the denominator of trade, protocol and fund fee rates.
const FeeRateDenominator = 1_000_000

var feeDenominator = uint256.NewInt(FeeRateDenominator)

// FeeRates groups the three rates a swap is charged under.
type FeeRates struct {
	Trade    uint64
	Protocol uint64
	Fund     uint64
}

// RatesOf extracts the swap fee rates from an AMM config.
func RatesOf(cfg model.AmmConfig) FeeRates {
	return FeeRates{Trade: cfg.TradeFeeRate, Protocol: cfg.ProtocolFeeRate, Fund: cfg.FundFeeRate}
}

// Validate checks the rates against the denominator. Protocol and fund fees are shares of the
// trade fee and together may not exceed it.
func (r FeeRates) Validate() error {
	if r.Trade >= FeeRateDenominator {
		return fmt.Errorf("trade fee rate %d: %w", r.Trade, model.ErrInvalidFeeConfig)
	}
	if r.Protocol > FeeRateDenominator || r.Fund > FeeRateDenominator || r.Protocol+r.Fund > FeeRateDenominator {
		return fmt.Errorf("protocol %d + fund %d: %w", r.Protocol, r.Fund, model.ErrInvalidFeeConfig)
	}
	return nil
}

// TradingFee is ceil(amount * rate / 1e6).
func TradingFee(amount, rate uint64) (uint64, error) {
	fee := ceilDiv(mul(amount, rate), feeDenominator)
	return toUint64(fee)
}

// ProtocolFee is floor(tradeFee * rate / 1e6).
func ProtocolFee(tradeFee, rate uint64) (uint64, error) {
	return floorFee(tradeFee, rate)
}

// FundFee is floor(tradeFee * rate / 1e6).
func FundFee(tradeFee, rate uint64) (uint64, error) {
	return floorFee(tradeFee, rate)
}

// PreTradeFeeAmount is the smallest input that still leaves postFeeAmount once the trade fee
// has been taken.
func PreTradeFeeAmount(postFeeAmount, rate uint64) (uint64, error) {
	if rate == 0 {
		return postFeeAmount, nil
	}
	if rate >= FeeRateDenominator {
		return 0, fmt.Errorf("trade fee rate %d: %w", rate, model.ErrInvalidFeeConfig)
	}
	denominator := uint256.NewInt(FeeRateDenominator - rate)
	return toUint64(ceilDiv(mul(postFeeAmount, FeeRateDenominator), denominator))
}

func floorFee(amount, rate uint64) (uint64, error) {
	fee := mul(amount, rate)
	fee.Div(fee, feeDenominator)
	return toUint64(fee)
}
