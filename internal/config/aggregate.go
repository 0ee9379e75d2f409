package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// AggregateConfig holds configuration for window aggregation.
type AggregateConfig struct {
	Input         string
	Window        time.Duration
	Storage       string
	Out           string
	PGDSN         string
	BatchSize     int
	StateFile     string
	RecomputeFrom uint64
	LogLevel      string
}

// WindowSeconds returns the window length in whole seconds.
func (c AggregateConfig) WindowSeconds() uint64 {
	return uint64(c.Window / time.Second)
}

// LoadAggregate merges config file, environment variables, and flags into AggregateConfig.
func LoadAggregate(cfgFile string, flags *pflag.FlagSet) (AggregateConfig, error) {
	v := newViper()
	v.SetDefault("in", "./data/events.jsonl")
	v.SetDefault("window", "5m")
	v.SetDefault("storage", StorageJSONL)
	v.SetDefault("out", "./data/pool_windows.jsonl")
	v.SetDefault("batch-size", 1000)
	v.SetDefault("log-level", "info")

	if err := read(v, cfgFile, flags); err != nil {
		return AggregateConfig{}, err
	}

	window, err := time.ParseDuration(v.GetString("window"))
	if err != nil {
		return AggregateConfig{}, fmt.Errorf("invalid window: %w", err)
	}
	if window < time.Second {
		return AggregateConfig{}, fmt.Errorf("window must be at least 1s")
	}

	recomputeFrom, err := ParseTimestamp(v.GetString("recompute-from"))
	if err != nil {
		return AggregateConfig{}, fmt.Errorf("parse recompute-from: %w", err)
	}

	cfg := AggregateConfig{
		Input:         v.GetString("in"),
		Window:        window,
		Storage:       strings.ToLower(strings.TrimSpace(v.GetString("storage"))),
		Out:           v.GetString("out"),
		PGDSN:         v.GetString("pg-dsn"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("state-file"),
		RecomputeFrom: recomputeFrom,
		LogLevel:      v.GetString("log-level"),
	}

	if cfg.Input == "" {
		return AggregateConfig{}, fmt.Errorf("input path is required")
	}
	switch cfg.Storage {
	case StorageJSONL:
	case StoragePostgres:
		if cfg.PGDSN == "" {
			return AggregateConfig{}, fmt.Errorf("pg dsn is required for postgres storage")
		}
	default:
		return AggregateConfig{}, fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	return cfg, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}

	if isNumeric(input) {
		return strconv.ParseUint(input, 10, 64)
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
