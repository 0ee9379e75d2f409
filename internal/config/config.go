package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Storage backends accepted by the simulate command.
const (
	StorageJSONL    = "jsonl"
	StoragePostgres = "postgres"
)

// Config holds configuration for the simulate command, loaded from flags, env, or config file.
type Config struct {
	Scenario          string
	Storage           string
	EventsOut         string
	PoolsOut          string
	ErrorsOut         string
	PGDSN             string
	ProgramID         solana.PublicKey
	MetricsAddr       string
	BatchSize         int
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	Strict            bool
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := newViper()
	v.SetDefault("storage", StorageJSONL)
	v.SetDefault("events-out", "./data/events.jsonl")
	v.SetDefault("pools-out", "./data/pools.jsonl")
	v.SetDefault("errors-out", "./data/step_errors.jsonl")
	v.SetDefault("batch-size", 100)
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if err := read(v, cfgFile, flags); err != nil {
		return Config{}, err
	}

	programID, err := parseProgramID(v.GetString("program-id"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Scenario:          v.GetString("scenario"),
		Storage:           strings.ToLower(strings.TrimSpace(v.GetString("storage"))),
		EventsOut:         v.GetString("events-out"),
		PoolsOut:          v.GetString("pools-out"),
		ErrorsOut:         v.GetString("errors-out"),
		PGDSN:             v.GetString("pg-dsn"),
		ProgramID:         programID,
		MetricsAddr:       v.GetString("metrics-addr"),
		BatchSize:         v.GetInt("batch-size"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Strict:            v.GetBool("strict"),
		LogLevel:          v.GetString("log-level"),
	}

	switch cfg.Storage {
	case StorageJSONL:
	case StoragePostgres:
		if cfg.PGDSN == "" {
			return Config{}, fmt.Errorf("pg dsn is required for postgres storage")
		}
	default:
		return Config{}, fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CPSWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// read binds flags and reads cfgFile, or ./config.* when cfgFile is empty and one exists.
func read(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// parseProgramID returns the zero key for an empty input, which selects the default program.
func parseProgramID(input string) (solana.PublicKey, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return solana.PublicKey{}, nil
	}
	key, err := solana.PublicKeyFromBase58(input)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program id %q: %w", input, err)
	}
	return key, nil
}
