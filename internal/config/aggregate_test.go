package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadAggregate(t *testing.T) {
	cfg, err := LoadAggregate("", nil)
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, cfg.Window)
	require.Equal(t, uint64(300), cfg.WindowSeconds())
	require.Equal(t, StorageJSONL, cfg.Storage)
	require.Equal(t, 1000, cfg.BatchSize)
	require.Zero(t, cfg.RecomputeFrom)

	flags := pflag.NewFlagSet("aggregate", pflag.ContinueOnError)
	flags.String("window", "5m", "")
	flags.String("recompute-from", "", "")
	require.NoError(t, flags.Parse([]string{"--window", "1h", "--recompute-from", "1970-01-01T01:00:00Z"}))

	cfg, err = LoadAggregate("", flags)
	require.NoError(t, err)
	require.Equal(t, uint64(3600), cfg.WindowSeconds())
	require.Equal(t, uint64(3600), cfg.RecomputeFrom)
}

func TestLoadAggregateRejects(t *testing.T) {
	t.Setenv("CPSWAP_WINDOW", "500ms")
	_, err := LoadAggregate("", nil)
	require.ErrorContains(t, err, "at least 1s")

	t.Setenv("CPSWAP_WINDOW", "1m")
	t.Setenv("CPSWAP_STORAGE", "postgres")
	_, err = LoadAggregate("", nil)
	require.ErrorContains(t, err, "pg dsn is required")
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp(" 42 ")
	require.NoError(t, err)
	require.Equal(t, uint64(42), ts)

	ts, err = ParseTimestamp("")
	require.NoError(t, err)
	require.Zero(t, ts)

	_, err = ParseTimestamp("yesterday")
	require.Error(t, err)
}
