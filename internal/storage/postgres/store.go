package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cpswap/internal/model"
)

// Schema creates the tables the Store writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS pool_events (
	pool_id          TEXT NOT NULL,
	seq              BIGINT NOT NULL,
	change_type      SMALLINT NOT NULL,
	lp_supply_before NUMERIC(20) NOT NULL,
	reserve_0_before NUMERIC(20) NOT NULL,
	reserve_1_before NUMERIC(20) NOT NULL,
	amount_0         NUMERIC(20) NOT NULL,
	amount_1         NUMERIC(20) NOT NULL,
	fee_0            NUMERIC(20) NOT NULL,
	fee_1            NUMERIC(20) NOT NULL,
	trade_fee        NUMERIC(20) NOT NULL DEFAULT 0,
	zero_for_one     BOOLEAN NOT NULL DEFAULT false,
	block_ts         NUMERIC(20) NOT NULL,
	payload          BYTEA,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pool_id, seq)
);
CREATE TABLE IF NOT EXISTS pools (
	pool_id        TEXT PRIMARY KEY,
	amm_config     TEXT NOT NULL,
	token0_mint    TEXT NOT NULL,
	token1_mint    TEXT NOT NULL,
	lp_mint        TEXT NOT NULL,
	status         SMALLINT NOT NULL,
	lp_supply      NUMERIC(20) NOT NULL,
	reserve0       NUMERIC(20) NOT NULL,
	reserve1       NUMERIC(20) NOT NULL,
	protocol_fees0 NUMERIC(20) NOT NULL,
	protocol_fees1 NUMERIC(20) NOT NULL,
	fund_fees0     NUMERIC(20) NOT NULL,
	fund_fees1     NUMERIC(20) NOT NULL,
	swap_count     NUMERIC(20) NOT NULL,
	volume0        NUMERIC(20) NOT NULL,
	volume1        NUMERIC(20) NOT NULL,
	open_time      NUMERIC(20) NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS pool_window_metrics (
	pool_id             TEXT NOT NULL,
	window_size_seconds BIGINT NOT NULL,
	window_start_ts     TIMESTAMPTZ NOT NULL,
	window_end_ts       TIMESTAMPTZ NOT NULL,
	swap_count          NUMERIC(20) NOT NULL,
	deposit_count       NUMERIC(20) NOT NULL,
	withdraw_count      NUMERIC(20) NOT NULL,
	volume0             NUMERIC NOT NULL,
	volume1             NUMERIC NOT NULL,
	trade_fee0          NUMERIC NOT NULL,
	trade_fee1          NUMERIC NOT NULL,
	transfer_fee0       NUMERIC NOT NULL,
	transfer_fee1       NUMERIC NOT NULL,
	fee_rate0           NUMERIC,
	fee_rate1           NUMERIC,
	tvl0                NUMERIC,
	tvl1                NUMERIC,
	apr                 NUMERIC,
	fee_method          TEXT NOT NULL,
	tvl_method          TEXT NOT NULL,
	last_seq            BIGINT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pool_id, window_size_seconds, window_start_ts)
);
CREATE TABLE IF NOT EXISTS step_errors (
	line       BIGINT PRIMARY KEY,
	op         TEXT NOT NULL,
	code       BIGINT NOT NULL,
	reason     TEXT NOT NULL,
	error      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS runner_state (
	name           TEXT PRIMARY KEY,
	last_processed BIGINT NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for pool events and snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutEventBatch inserts event records. Records already stored under the same (pool, seq) are kept.
func (s *Store) PutEventBatch(ctx context.Context, records []model.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO pool_events (
				pool_id, seq, change_type, lp_supply_before, reserve_0_before, reserve_1_before,
				amount_0, amount_1, fee_0, fee_1, trade_fee, zero_for_one, block_ts, payload
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (pool_id, seq) DO NOTHING
		`,
			r.PoolID.String(),
			int64(r.Seq),
			int16(r.ChangeType),
			numeric(r.LpSupplyBefore),
			numeric(r.Reserve0Before),
			numeric(r.Reserve1Before),
			numeric(r.Amount0),
			numeric(r.Amount1),
			numeric(r.Fee0),
			numeric(r.Fee1),
			numeric(r.TradeFee),
			r.ZeroForOne,
			numeric(r.Timestamp),
			r.Payload,
		)
	}
	return s.sendBatch(ctx, batch, len(records))
}

// PutPoolSnapshots inserts or updates pool snapshots.
func (s *Store) PutPoolSnapshots(ctx context.Context, pools []model.PoolSnapshot) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pools {
		batch.Queue(`
			INSERT INTO pools (
				pool_id, amm_config, token0_mint, token1_mint, lp_mint, status, lp_supply,
				reserve0, reserve1, protocol_fees0, protocol_fees1, fund_fees0, fund_fees1,
				swap_count, volume0, volume1, open_time, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,now(),now())
			ON CONFLICT (pool_id)
			DO UPDATE SET
				status = EXCLUDED.status,
				lp_supply = EXCLUDED.lp_supply,
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				protocol_fees0 = EXCLUDED.protocol_fees0,
				protocol_fees1 = EXCLUDED.protocol_fees1,
				fund_fees0 = EXCLUDED.fund_fees0,
				fund_fees1 = EXCLUDED.fund_fees1,
				swap_count = EXCLUDED.swap_count,
				volume0 = EXCLUDED.volume0,
				volume1 = EXCLUDED.volume1,
				open_time = EXCLUDED.open_time,
				updated_at = now()
		`,
			p.PoolID.String(),
			p.AmmConfig.String(),
			p.Token0Mint.String(),
			p.Token1Mint.String(),
			p.LpMint.String(),
			int16(p.Status),
			numeric(p.LpSupply),
			numeric(p.Reserve0),
			numeric(p.Reserve1),
			numeric(p.ProtocolFees0),
			numeric(p.ProtocolFees1),
			numeric(p.FundFees0),
			numeric(p.FundFees1),
			numeric(p.SwapCount),
			numeric(p.Volume0),
			numeric(p.Volume1),
			numeric(p.OpenTime),
		)
	}
	return s.sendBatch(ctx, batch, len(pools))
}

// PutWindowMetrics inserts or updates window metrics.
func (s *Store) PutWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_id, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, deposit_count, withdraw_count, volume0, volume1,
				trade_fee0, trade_fee1, transfer_fee0, transfer_fee1, fee_rate0, fee_rate1,
				tvl0, tvl1, apr, fee_method, tvl_method, last_seq, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,now(),now())
			ON CONFLICT (pool_id, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				deposit_count = EXCLUDED.deposit_count,
				withdraw_count = EXCLUDED.withdraw_count,
				volume0 = EXCLUDED.volume0,
				volume1 = EXCLUDED.volume1,
				trade_fee0 = EXCLUDED.trade_fee0,
				trade_fee1 = EXCLUDED.trade_fee1,
				transfer_fee0 = EXCLUDED.transfer_fee0,
				transfer_fee1 = EXCLUDED.transfer_fee1,
				fee_rate0 = EXCLUDED.fee_rate0,
				fee_rate1 = EXCLUDED.fee_rate1,
				tvl0 = EXCLUDED.tvl0,
				tvl1 = EXCLUDED.tvl1,
				apr = EXCLUDED.apr,
				fee_method = EXCLUDED.fee_method,
				tvl_method = EXCLUDED.tvl_method,
				last_seq = EXCLUDED.last_seq,
				updated_at = now()
		`,
			m.PoolID.String(),
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			numeric(m.SwapCount),
			numeric(m.DepositCount),
			numeric(m.WithdrawCount),
			m.Volume0,
			m.Volume1,
			m.TradeFee0,
			m.TradeFee1,
			m.TransferFee0,
			m.TransferFee1,
			m.FeeRate0,
			m.FeeRate1,
			m.TVL0,
			m.TVL1,
			m.APR,
			m.FeeMethod,
			m.TVLMethod,
			int64(m.LastSeq),
		)
	}
	return s.sendBatch(ctx, batch, len(metrics))
}

// PutStepErrors records rejected scenario steps, replacing an earlier record for the same line.
func (s *Store) PutStepErrors(ctx context.Context, stepErrors []model.StepError) error {
	if len(stepErrors) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range stepErrors {
		batch.Queue(`
			INSERT INTO step_errors (line, op, code, reason, error)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (line)
			DO UPDATE SET op = EXCLUDED.op, code = EXCLUDED.code, reason = EXCLUDED.reason, error = EXCLUDED.error
		`, int64(e.Line), e.Op, int64(e.Code), e.Reason, e.Error)
	}
	return s.sendBatch(ctx, batch, len(stepErrors))
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last processed position stored under name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var last int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed FROM runner_state WHERE name=$1`, name)
	if err := row.Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(last), true, nil
}

// SaveState upserts the last processed position for name.
func (s *Store) SaveState(ctx context.Context, name string, last uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runner_state (name, last_processed, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, name, int64(last))
	return err
}
