package aggregate

import (
	"math/big"
	"time"

	"github.com/holiman/uint256"
)

const ratioScale = 18

func computeFeeRates(fee0, fee1 *uint256.Int, tvl0, tvl1 uint64) (*string, *string) {
	var feeRate0 *string
	var feeRate1 *string

	if rate := computeRate(fee0, tvl0); rate != "" {
		feeRate0 = &rate
	}
	if rate := computeRate(fee1, tvl1); rate != "" {
		feeRate1 = &rate
	}
	return feeRate0, feeRate1
}

func computeRate(fee *uint256.Int, tvl uint64) string {
	if fee == nil || fee.IsZero() || tvl == 0 {
		return ""
	}
	rat := new(big.Rat).SetFrac(fee.ToBig(), new(big.Int).SetUint64(tvl))
	return rat.FloatString(ratioScale)
}

// computeAPR annualizes the window fee rate. Both sides of a constant product pool hold equal
// value, so the rate is the mean over both sides; a side without a rate counts as zero.
func computeAPR(feeRate0, feeRate1 *string, windowSeconds uint64) *string {
	if windowSeconds == 0 || (feeRate0 == nil && feeRate1 == nil) {
		return nil
	}

	rate := new(big.Rat)
	for _, text := range []*string{feeRate0, feeRate1} {
		if text == nil {
			continue
		}
		rat, ok := new(big.Rat).SetString(*text)
		if !ok {
			return nil
		}
		rate.Add(rate, rat)
	}
	rate.Quo(rate, big.NewRat(2, 1))

	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	window := new(big.Rat).SetInt(new(big.Int).SetUint64(windowSeconds))
	apr := new(big.Rat).Mul(rate, yearSeconds)
	apr.Quo(apr, window)
	val := apr.FloatString(ratioScale)
	return &val
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func minOpenWindowStart(acc map[string]*Accumulator) (uint64, bool) {
	var min uint64
	found := false
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if !found || entry.WindowStart < min {
			min = entry.WindowStart
			found = true
		}
	}
	return min, found
}
