package fee

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"cpswap/internal/model"
)

func TestFeeFloorsAndCaps(t *testing.T) {
	tf := model.TransferFee{BasisPoints: 100, MaximumFee: 1_000_000}
	fee, err := Fee(tf, 10_000)
	require.NoError(t, err)
	require.Equal(t, uint64(100), fee)

	// 199 * 1% = 1.99, floored
	fee, err = Fee(tf, 199)
	require.NoError(t, err)
	require.Equal(t, uint64(1), fee)

	capped := model.TransferFee{BasisPoints: 500, MaximumFee: 10}
	fee, err = Fee(capped, 1_000)
	require.NoError(t, err)
	require.Equal(t, uint64(10), fee)
}

func TestFeeZeroRate(t *testing.T) {
	fee, err := Fee(model.TransferFee{MaximumFee: 50}, math.MaxUint64)
	require.NoError(t, err)
	require.Zero(t, fee)

	pre, err := PreFeeAmount(model.TransferFee{MaximumFee: 50}, 1234)
	require.NoError(t, err)
	require.Equal(t, uint64(1234), pre)
}

func TestFeeRejectsRateAboveOneHundredPercent(t *testing.T) {
	_, err := Fee(model.TransferFee{BasisPoints: MaxBasisPoints + 1}, 10)
	require.ErrorIs(t, err, model.ErrInvalidFeeConfig)
	_, err = InverseFee(model.TransferFee{BasisPoints: MaxBasisPoints + 1}, 10)
	require.ErrorIs(t, err, model.ErrInvalidFeeConfig)
}

func TestPreFeeAmountUncapped(t *testing.T) {
	tf := model.TransferFee{BasisPoints: 100, MaximumFee: 1_000_000}
	pre, err := PreFeeAmount(tf, 9_900)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), pre)

	inverse, err := InverseFee(tf, 9_900)
	require.NoError(t, err)
	require.Equal(t, uint64(100), inverse)
}

func TestPreFeeAmountCapBinds(t *testing.T) {
	tf := model.TransferFee{BasisPoints: 500, MaximumFee: 10}
	pre, err := PreFeeAmount(tf, 1_000)
	require.NoError(t, err)
	require.Equal(t, uint64(1_010), pre)

	fee, err := Fee(tf, pre)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), pre-fee)
}

func TestPreFeeAmountFullRate(t *testing.T) {
	tf := model.TransferFee{BasisPoints: MaxBasisPoints, MaximumFee: 7}
	pre, err := PreFeeAmount(tf, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(107), pre)
}

func TestPreFeeAmountOverflow(t *testing.T) {
	tf := model.TransferFee{BasisPoints: 5_000, MaximumFee: math.MaxUint64}
	_, err := PreFeeAmount(tf, math.MaxUint64)
	require.ErrorIs(t, err, model.ErrArithmeticOverflow)
}

func TestEpochFee(t *testing.T) {
	cfg := model.TransferFeeConfig{
		OlderTransferFee: model.TransferFee{Epoch: 0, BasisPoints: 100, MaximumFee: 10},
		NewerTransferFee: model.TransferFee{Epoch: 10, BasisPoints: 200, MaximumFee: 20},
	}
	require.Equal(t, uint16(100), EpochFee(cfg, 9).BasisPoints)
	require.Equal(t, uint16(200), EpochFee(cfg, 10).BasisPoints)
	require.Equal(t, uint16(200), EpochFee(cfg, 11).BasisPoints)
}

// Property: inverse fee composed with the forward fee never delivers less than requested.
func TestInverseFeeNeverUnderDelivers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tf := model.TransferFee{
			BasisPoints: rapid.Uint16Range(0, MaxBasisPoints).Draw(t, "bps"),
			MaximumFee:  rapid.Uint64().Draw(t, "maxFee"),
		}
		net := rapid.Uint64Range(0, 1<<62).Draw(t, "net")

		inverse, err := InverseFee(tf, net)
		if err != nil {
			if !errors.Is(err, model.ErrArithmeticOverflow) {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}
		gross := net + inverse
		if gross < net {
			t.Fatalf("gross wrapped: net=%d inverse=%d", net, inverse)
		}
		fee, err := Fee(tf, gross)
		if err != nil {
			t.Fatalf("forward fee: %v", err)
		}
		if gross-fee < net {
			t.Fatalf("under delivered: net=%d gross=%d fee=%d", net, gross, fee)
		}
	})
}
