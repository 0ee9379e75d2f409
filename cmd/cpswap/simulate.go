package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpswap/internal/amm"
	"cpswap/internal/config"
	"cpswap/internal/ledger"
	"cpswap/internal/metrics"
	"cpswap/internal/scenario"
	"cpswap/internal/storage"
	"cpswap/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Scenario == "" {
		return fmt.Errorf("scenario path is required")
	}
	steps, err := scenario.ReadSteps(cfg.Scenario)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	engineMetrics, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	l := ledger.New()
	events := storage.NewBuffer()
	engine := amm.NewEngine(amm.Config{ProgramID: cfg.ProgramID, Metrics: engineMetrics}, l, l, events, logger)
	world := scenario.NewWorld(l, engine)

	var storageSink storage.Storage
	var checkpoint scenario.CheckpointStore
	switch cfg.Storage {
	case config.StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		storageSink = store
		if cfg.CheckpointEnabled {
			checkpoint = scenario.NewStateCheckpoint(store, "simulate:"+cfg.Scenario)
		}
	default:
		storageSink = storage.NewJsonlStorage(cfg.EventsOut, cfg.PoolsOut, cfg.ErrorsOut)
		checkpoint = scenario.NewFileCheckpoint(cfg.Checkpoint, cfg.CheckpointEnabled)
	}

	runner := scenario.NewRunner(scenario.RunConfig{
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Strict:       cfg.Strict,
	}, world, events, storageSink, checkpoint, logger)

	logger.Info("simulate start",
		zap.String("scenario", cfg.Scenario),
		zap.Int("steps", len(steps)),
		zap.String("storage", cfg.Storage),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Stringer("program_id", engine.ProgramID()),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.Bool("strict", cfg.Strict),
	)

	_, err = runner.Run(ctx, steps)
	return err
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return srv
}
