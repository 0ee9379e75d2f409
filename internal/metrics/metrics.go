// Package metrics exposes engine counters to prometheus.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cpswap"

// Metrics counts flows by outcome. A nil *Metrics records nothing.
type Metrics struct {
	flows        *prometheus.CounterVec
	failures     *prometheus.CounterVec
	emitFailures prometheus.Counter
	transferFees *prometheus.CounterVec
	tradeFees    *prometheus.CounterVec
}

// New creates the engine counters and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flows_total",
			Help:      "number of committed flows",
		}, []string{"flow"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_failures_total",
			Help:      "number of rejected flows by error name",
		}, []string{"flow", "error"}),
		emitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_emit_failures_total",
			Help:      "number of events the sink refused after commit",
		}),
		transferFees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_fees_total",
			Help:      "token transfer fees paid by flows, in raw token units",
		}, []string{"flow"}),
		tradeFees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_fees_total",
			Help:      "trade fees charged by swaps, in raw token units",
		}, []string{"flow"}),
	}
	var err error
	if m.flows, err = register(reg, m.flows); err != nil {
		return nil, err
	}
	if m.failures, err = register(reg, m.failures); err != nil {
		return nil, err
	}
	if m.emitFailures, err = register(reg, m.emitFailures); err != nil {
		return nil, err
	}
	if m.transferFees, err = register(reg, m.transferFees); err != nil {
		return nil, err
	}
	if m.tradeFees, err = register(reg, m.tradeFees); err != nil {
		return nil, err
	}
	return m, nil
}

// register returns the collector already registered under c's name, if any.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

func (m *Metrics) FlowCommitted(flow string) {
	if m == nil {
		return
	}
	m.flows.WithLabelValues(flow).Inc()
}

func (m *Metrics) FlowFailed(flow, errName string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(flow, errName).Inc()
}

func (m *Metrics) EmitFailed() {
	if m == nil {
		return
	}
	m.emitFailures.Inc()
}

func (m *Metrics) TransferFees(flow string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.transferFees.WithLabelValues(flow).Add(float64(amount))
}

func (m *Metrics) TradeFee(flow string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.tradeFees.WithLabelValues(flow).Add(float64(amount))
}
