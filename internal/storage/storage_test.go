package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"cpswap/internal/model"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var out []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJsonlStorageAppends(t *testing.T) {
	dir := t.TempDir()
	events := filepath.Join(dir, "out", "events.jsonl")
	pools := filepath.Join(dir, "out", "pools.jsonl")
	stepErrors := filepath.Join(dir, "out", "errors.jsonl")
	s := NewJsonlStorage(events, pools, stepErrors)
	ctx := context.Background()

	pool := solana.NewWallet().PublicKey()
	require.NoError(t, s.PutEventBatch(ctx, []model.EventRecord{{Seq: 1, PoolID: pool, ChangeType: model.ChangeTypeDeposit, Amount0: 5}}))
	require.NoError(t, s.PutEventBatch(ctx, []model.EventRecord{{Seq: 2, PoolID: pool, ChangeType: model.ChangeTypeSwapBaseOutput}}))
	require.NoError(t, s.PutEventBatch(ctx, nil))
	require.NoError(t, s.PutPoolSnapshots(ctx, []model.PoolSnapshot{{PoolID: pool, LpSupply: 100}}))

	lines := readLines(t, events)
	require.Len(t, lines, 2)
	require.Equal(t, "deposit", lines[0]["change_name"])
	require.Equal(t, pool.String(), lines[0]["pool_id"])
	require.Equal(t, "swap_base_output", lines[1]["change_name"])

	snaps := readLines(t, pools)
	require.Len(t, snaps, 1)
	require.Equal(t, float64(100), snaps[0]["lp_supply"])

	require.NoError(t, s.PutStepErrors(ctx, []model.StepError{{Line: 4, Op: "swap_base_input", Code: model.ErrExceededSlippage.Code, Reason: "rejected"}}))
	errs := readLines(t, stepErrors)
	require.Len(t, errs, 1)
	require.Equal(t, float64(6003), errs[0]["code"])
	require.Equal(t, "swap_base_input", errs[0]["op"])
}

func TestJsonlStorageWithoutOptionalPaths(t *testing.T) {
	s := NewJsonlStorage(filepath.Join(t.TempDir(), "events.jsonl"), "", "")
	require.NoError(t, s.PutPoolSnapshots(context.Background(), []model.PoolSnapshot{{LpSupply: 1}}))
	require.NoError(t, s.PutStepErrors(context.Background(), []model.StepError{{Line: 1}}))
}

type failingStorage struct {
	fail  bool
	calls int
	got   []model.EventRecord
}

func (f *failingStorage) PutEventBatch(_ context.Context, records []model.EventRecord) error {
	f.calls++
	if f.fail {
		return errors.New("unavailable")
	}
	f.got = append(f.got, records...)
	return nil
}

func (f *failingStorage) PutPoolSnapshots(context.Context, []model.PoolSnapshot) error {
	return nil
}

func (f *failingStorage) PutStepErrors(context.Context, []model.StepError) error {
	return nil
}

func TestBufferKeepsRecordsUntilFlushed(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.Emit(model.EventRecord{Seq: 1}))
	require.NoError(t, b.Emit(model.EventRecord{Seq: 2}))

	target := &failingStorage{fail: true}
	require.Error(t, b.Flush(context.Background(), target))
	require.Equal(t, 2, b.Len())

	target.fail = false
	require.NoError(t, b.Flush(context.Background(), target))
	require.Zero(t, b.Len())
	require.Len(t, target.got, 2)

	require.NoError(t, b.Flush(context.Background(), target))
	require.Equal(t, 2, target.calls)
}

func TestBufferDiscard(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.Emit(model.EventRecord{Seq: 1}))
	require.Equal(t, 1, b.Discard())
	require.Zero(t, b.Len())
	require.Zero(t, b.Discard())
}

func TestJsonlWindowStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "windows.jsonl")
	s := NewJsonlWindowStorage(path)
	pool := solana.NewWallet().PublicKey()
	apr := "0.5"

	require.NoError(t, s.PutWindowMetrics(context.Background(), []model.PoolWindowMetrics{
		{PoolID: pool, WindowSizeSecs: 60, SwapCount: 2, Volume0: "10", APR: &apr},
		{PoolID: pool, WindowSizeSecs: 60, Volume0: "0"},
	}))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	require.Equal(t, pool.String(), lines[0]["pool_id"])
	require.Equal(t, "10", lines[0]["volume_0"])
	require.Equal(t, "0.5", lines[0]["apr"])
	require.NotContains(t, lines[1], "apr")
}
