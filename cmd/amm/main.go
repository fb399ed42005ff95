package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cpamm/internal/amm"
	"cpamm/internal/config"
	"cpamm/internal/storage"
	"cpamm/internal/storage/postgres"
)

func main() {
	root := newRootCmd()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product pool operator",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("state-file", "./data/ledger.json", "JSON ledger file, locked while in use (ignored when pg-dsn is set)")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("program-id", config.DefaultProgramID, "program identity pools derive from")
	flags.String("journal", "./data/receipts.jsonl", "receipt JSONL path, empty to disable")
	flags.String("rpc", "", "EVM RPC URL")
	flags.Int("max-retries", 5, "maximum retry attempts for RPC reads")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newInitCmd(),
		newFundCmd(),
		newDepositCmd(),
		newSwapCmd(),
		newLockCmd(),
		newPoolCmd(),
		newQuoteCmd(),
	)
	return root
}

// app is what every ledger command needs.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  storage.Store
	engine *amm.Engine
	close  func()
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()

	a := &app{cfg: cfg, logger: logger}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		a.store = store
		a.close = store.Close
		logger.Debug("using postgres store", zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
	} else {
		store, err := storage.OpenFileStore(cfg.StateFile)
		if err != nil {
			return nil, err
		}
		a.store = store
		a.close = func() { _ = store.Close() }
		logger.Debug("using file store", zap.String("state_file", store.Path()))
	}

	var journal storage.Journal
	if cfg.Journal != "" {
		journal = storage.NewJsonlJournal(cfg.Journal)
	}
	a.engine = amm.NewEngine(a.store, cfg.ProgramID, journal, logger)
	return a, nil
}

func (a *app) Close() {
	if a.close != nil {
		a.close()
	}
	_ = a.logger.Sync()
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
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
