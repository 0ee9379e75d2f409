// Package aggregate rolls pool event records up into fixed time windows of volume, fee and
// TVL metrics.
package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"cpswap/internal/model"
)

const (
	feeMethodEvents   = "trade_fee_from_events"
	tvlMethodReserves = "reserves_before_last_event"
	tvlMethodNone     = "unavailable"
)

// Sink receives finished window metrics.
type Sink interface {
	PutWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	// RecomputeFrom, when set, ignores the saved state and starts at this timestamp.
	RecomputeFrom uint64
	StateStore    StateStore
}

// Aggregator aggregates event records into pool window metrics.
type Aggregator struct {
	cfg          Config
	sink         Sink
	logger       *zap.Logger
	accumulators map[string]*Accumulator
	// lastTs is the newest timestamp seen, valid when seen is true.
	lastTs uint64
	seen   bool
}

func NewAggregator(cfg Config, sink Sink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run executes aggregation over an event records JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return a.Process(ctx, file)
}

// Process aggregates the event records read from r, one JSON object per line.
func (a *Aggregator) Process(ctx context.Context, r io.Reader) error {
	if a.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, hasStart, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}
	if hasStart {
		a.lastTs, a.seen = startTs, true
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	var total, windows, skipped, failed int

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.EventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("decode event record", zap.Error(err))
			continue
		}

		if hasStart && record.Timestamp <= startTs {
			skipped++
			continue
		}

		start := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		key := record.PoolID.String()
		acc := a.accumulators[key]
		if acc != nil && acc.WindowStart != start {
			batch = append(batch, a.windowMetrics(acc))
			windows++
			acc = nil
		}
		if acc == nil {
			acc = NewAccumulator(record, start, start+a.cfg.WindowSeconds)
			a.accumulators[key] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.Stringer("pool", record.PoolID), zap.Uint64("seq", record.Seq))
			continue
		}

		if !a.seen || record.Timestamp > a.lastTs {
			a.lastTs, a.seen = record.Timestamp, true
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.sink.PutWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	keys := make([]string, 0, len(a.accumulators))
	for key := range a.accumulators {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		batch = append(batch, a.windowMetrics(a.accumulators[key]))
		windows++
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.sink.PutWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, bool, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, true, nil
	}
	if a.cfg.StateStore == nil {
		return 0, false, nil
	}
	return a.cfg.StateStore.Load(ctx)
}

// saveState stores the newest timestamp below every open window, so a rerun rebuilds open
// windows from their first event.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil || !a.seen {
		return nil
	}

	safeTs := a.lastTs
	if start, ok := minOpenWindowStart(a.accumulators); ok {
		if start == 0 {
			return nil
		}
		safeTs = start - 1
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) windowMetrics(acc *Accumulator) model.PoolWindowMetrics {
	var tvl0, tvl1 *string
	tvlMethod := tvlMethodNone
	if acc.Reserve0 > 0 || acc.Reserve1 > 0 {
		r0 := strconv.FormatUint(acc.Reserve0, 10)
		r1 := strconv.FormatUint(acc.Reserve1, 10)
		tvl0, tvl1 = &r0, &r1
		tvlMethod = tvlMethodReserves
	}

	feeRate0, feeRate1 := computeFeeRates(acc.TradeFee0, acc.TradeFee1, acc.Reserve0, acc.Reserve1)
	apr := computeAPR(feeRate0, feeRate1, a.cfg.WindowSeconds)

	return model.PoolWindowMetrics{
		PoolID:         acc.PoolID,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		DepositCount:   acc.DepositCount,
		WithdrawCount:  acc.WithdrawCount,
		Volume0:        acc.Volume0.Dec(),
		Volume1:        acc.Volume1.Dec(),
		TradeFee0:      acc.TradeFee0.Dec(),
		TradeFee1:      acc.TradeFee1.Dec(),
		TransferFee0:   acc.TransferFee0.Dec(),
		TransferFee1:   acc.TransferFee1.Dec(),
		FeeRate0:       feeRate0,
		FeeRate1:       feeRate1,
		TVL0:           tvl0,
		TVL1:           tvl1,
		APR:            apr,
		FeeMethod:      feeMethodEvents,
		TVLMethod:      tvlMethod,
		LastSeq:        acc.LastSeq,
	}
}
