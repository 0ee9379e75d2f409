package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"cpswap/internal/model"
	"cpswap/internal/pda"
)

func simulateFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
	flags.String("scenario", "", "")
	flags.String("storage", StorageJSONL, "")
	flags.String("pg-dsn", "", "")
	flags.String("program-id", "", "")
	flags.Int("batch-size", 100, "")
	flags.Bool("strict", false, "")
	flags.Duration("retry-backoff", 500*time.Millisecond, "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, StorageJSONL, cfg.Storage)
	require.Equal(t, "./data/events.jsonl", cfg.EventsOut)
	require.Equal(t, 100, cfg.BatchSize)
	require.True(t, cfg.CheckpointEnabled)
	require.Equal(t, 5, cfg.MaxRetries)
	require.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, solana.PublicKey{}, cfg.ProgramID)
}

func TestLoadFlagsEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cpswap.yaml")
	require.NoError(t, os.WriteFile(file, []byte("scenario: ./from-file.jsonl\nmax-retries: 9\n"), 0o644))

	t.Setenv("CPSWAP_BATCH_SIZE", "7")
	flags := simulateFlags()
	require.NoError(t, flags.Parse([]string{"--strict", "--program-id", pda.DefaultProgramID.String()}))

	cfg, err := Load(file, flags)
	require.NoError(t, err)
	require.Equal(t, "./from-file.jsonl", cfg.Scenario)
	require.Equal(t, 9, cfg.MaxRetries)
	require.Equal(t, 7, cfg.BatchSize)
	require.True(t, cfg.Strict)
	require.Equal(t, pda.DefaultProgramID, cfg.ProgramID)
}

func TestLoadRejectsBadStorage(t *testing.T) {
	flags := simulateFlags()
	require.NoError(t, flags.Parse([]string{"--storage", "postgres"}))
	_, err := Load("", flags)
	require.ErrorContains(t, err, "pg dsn is required")

	flags = simulateFlags()
	require.NoError(t, flags.Parse([]string{"--storage", "s3"}))
	_, err = Load("", flags)
	require.ErrorContains(t, err, `unknown storage "s3"`)

	flags = simulateFlags()
	require.NoError(t, flags.Parse([]string{"--program-id", "not-a-key"}))
	_, err = Load("", flags)
	require.ErrorContains(t, err, "invalid program id")
}

func TestLoadQuote(t *testing.T) {
	flags := pflag.NewFlagSet("quote", pflag.ContinueOnError)
	flags.Uint64("vault0", 0, "")
	flags.Uint64("vault1", 0, "")
	flags.Uint64("lp-supply", 0, "")
	flags.String("transfer-fee", "", "")
	require.NoError(t, flags.Parse([]string{"--vault0", "1000000", "--vault1", "2000000", "--lp-supply", "1414213", "--transfer-fee", "token0=100:5000"}))

	cfg, err := LoadQuote("", flags)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), cfg.Vault0)
	require.Equal(t, uint64(2_000_000), cfg.Vault1)
	require.Equal(t, uint64(1_414_213), cfg.LpSupply)
	require.Equal(t, uint64(2_500), cfg.TradeFeeRate)
	require.Equal(t, uint8(9), cfg.Decimals0)
	require.Equal(t, model.TransferFee{BasisPoints: 100, MaximumFee: 5_000}, cfg.TransferFees["token0"])
	_, ok := cfg.TransferFees["token1"]
	require.False(t, ok)

	bad := pflag.NewFlagSet("quote", pflag.ContinueOnError)
	bad.String("transfer-fee", "", "")
	require.NoError(t, bad.Parse([]string{"--transfer-fee", "token2=1:1"}))
	_, err = LoadQuote("", bad)
	require.ErrorContains(t, err, "must be token0 or token1")
}

func TestParseTransferFee(t *testing.T) {
	tf, err := ParseTransferFee(" 250 : 1000 ")
	require.NoError(t, err)
	require.Equal(t, model.TransferFee{BasisPoints: 250, MaximumFee: 1_000}, tf)

	_, err = ParseTransferFee("250")
	require.Error(t, err)
	_, err = ParseTransferFee("70000:1")
	require.Error(t, err)
}

func TestParseStringMap(t *testing.T) {
	got := parseStringMap("token0=1:2, token1 = 3:4,broken,=x")
	require.Equal(t, map[string]string{"token0": "1:2", "token1": "3:4"}, got)
}
