package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cpswap",
		Short:        "Constant product pool simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a scenario against in-memory pools",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("scenario", "", "scenario JSONL path")
	simulateCmd.Flags().String("storage", "jsonl", "storage backend (jsonl, postgres)")
	simulateCmd.Flags().String("events-out", "./data/events.jsonl", "event records JSONL")
	simulateCmd.Flags().String("pools-out", "./data/pools.jsonl", "pool snapshots JSONL")
	simulateCmd.Flags().String("errors-out", "./data/step_errors.jsonl", "rejected steps JSONL")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	simulateCmd.Flags().String("program-id", "", "program id used to derive pool addresses")
	simulateCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	simulateCmd.Flags().Int("batch-size", 100, "steps per batch")
	simulateCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	simulateCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	simulateCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	simulateCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	simulateCmd.Flags().Bool("strict", false, "fail when a step does not match its expectation")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate event records into window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("in", "./data/events.jsonl", "input event records JSONL")
	aggregateCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("storage", "jsonl", "storage backend (jsonl, postgres)")
	aggregateCmd.Flags().String("out", "./data/pool_windows.jsonl", "window metrics JSONL")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)
	root.AddCommand(newQuoteCmd())
	root.AddCommand(newDeriveCmd())

	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
