package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.FlowCommitted("deposit")
	m.FlowCommitted("deposit")
	m.FlowFailed("swap_base_input", "ExceededSlippage")
	m.EmitFailed()
	m.TransferFees("withdraw", 7)
	m.TransferFees("withdraw", 0)
	m.TradeFee("swap_base_input", 25)

	require.Equal(t, 2.0, testutil.ToFloat64(m.flows.WithLabelValues("deposit")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("swap_base_input", "ExceededSlippage")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.emitFailures))
	require.Equal(t, 7.0, testutil.ToFloat64(m.transferFees.WithLabelValues("withdraw")))
	require.Equal(t, 25.0, testutil.ToFloat64(m.tradeFees.WithLabelValues("swap_base_input")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.FlowCommitted("deposit")
	m.FlowFailed("deposit", "NotApproved")
	m.EmitFailed()
	m.TransferFees("deposit", 1)
	m.TradeFee("deposit", 1)
}

func TestNewToleratesDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	second.FlowCommitted("withdraw")
	require.Equal(t, 1.0, testutil.ToFloat64(first.flows.WithLabelValues("withdraw")))
}
