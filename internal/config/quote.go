package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"cpswap/internal/model"
)

// QuoteConfig describes an offline pool for the quote commands.
type QuoteConfig struct {
	Vault0          uint64
	Vault1          uint64
	LpSupply        uint64
	ProtocolFees0   uint64
	ProtocolFees1   uint64
	FundFees0       uint64
	FundFees1       uint64
	TradeFeeRate    uint64
	ProtocolFeeRate uint64
	FundFeeRate     uint64
	Decimals0       uint8
	Decimals1       uint8
	Epoch           uint64
	// TransferFees maps "token0" and "token1" to that mint's fee.
	TransferFees map[string]model.TransferFee
	LogLevel     string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v := newViper()
	v.SetDefault("trade-fee-rate", uint64(2_500))
	v.SetDefault("protocol-fee-rate", uint64(120_000))
	v.SetDefault("fund-fee-rate", uint64(40_000))
	v.SetDefault("decimals0", 9)
	v.SetDefault("decimals1", 9)
	v.SetDefault("log-level", "warn")

	if err := read(v, cfgFile, flags); err != nil {
		return QuoteConfig{}, err
	}

	fees := make(map[string]model.TransferFee)
	for side, spec := range getStringMap(v, "transfer-fee") {
		if side != "token0" && side != "token1" {
			return QuoteConfig{}, fmt.Errorf("transfer fee side %q must be token0 or token1", side)
		}
		tf, err := ParseTransferFee(spec)
		if err != nil {
			return QuoteConfig{}, fmt.Errorf("%s transfer fee: %w", side, err)
		}
		fees[side] = tf
	}

	cfg := QuoteConfig{
		Vault0:          v.GetUint64("vault0"),
		Vault1:          v.GetUint64("vault1"),
		LpSupply:        v.GetUint64("lp-supply"),
		ProtocolFees0:   v.GetUint64("protocol-fees0"),
		ProtocolFees1:   v.GetUint64("protocol-fees1"),
		FundFees0:       v.GetUint64("fund-fees0"),
		FundFees1:       v.GetUint64("fund-fees1"),
		TradeFeeRate:    v.GetUint64("trade-fee-rate"),
		ProtocolFeeRate: v.GetUint64("protocol-fee-rate"),
		FundFeeRate:     v.GetUint64("fund-fee-rate"),
		Decimals0:       uint8(v.GetUint("decimals0")),
		Decimals1:       uint8(v.GetUint("decimals1")),
		Epoch:           v.GetUint64("epoch"),
		TransferFees:    fees,
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

// ParseTransferFee parses "bps:max_fee" into a fee in force from epoch 0.
func ParseTransferFee(input string) (model.TransferFee, error) {
	parts := strings.SplitN(strings.TrimSpace(input), ":", 2)
	if len(parts) != 2 {
		return model.TransferFee{}, fmt.Errorf("expected bps:max_fee, got %q", input)
	}
	bps, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 16)
	if err != nil {
		return model.TransferFee{}, fmt.Errorf("basis points %q: %w", parts[0], err)
	}
	maxFee, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return model.TransferFee{}, fmt.Errorf("maximum fee %q: %w", parts[1], err)
	}
	return model.TransferFee{BasisPoints: uint16(bps), MaximumFee: maxFee}, nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
