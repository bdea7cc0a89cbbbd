package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yoockh/yoointerview/config"
	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/logger"
	"github.com/yoockh/yoointerview/internal/orchestrator/persistence"
)

var (
	verbose   bool
	dbPath    string
	storeKind string
	version   = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "rehearse-cli",
	Short: "Rehearse job interviews from the terminal",
	Long: `Runs a mock interview against the yoointerview API.

Questions are printed as the interviewer reads them; type your answer and press
enter. A rehearsal interrupted with /quit or Ctrl-C is resumed the next time
you start the same interview.

Quick Start:
  rehearse-cli start --company Acme --position "Backend Engineer"
  rehearse-cli snapshot show
  rehearse-cli snapshot clear`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Snapshot database file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "sqlite", "Snapshot store: sqlite or redis")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func newLogger(w io.Writer) *logrus.Logger {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	if verbose {
		level = "debug"
	}
	return logger.NewWithOutput(w, level, "text")
}

// openStore returns the snapshot store selected by --store and a func that
// releases it.
func openStore(ctx context.Context, settings config.Settings) (persistence.Store, func(), error) {
	switch storeKind {
	case "", "sqlite":
		db, err := config.OpenSnapshotDB(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open snapshot db: %w", err)
		}
		st, err := persistence.NewSQLiteStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("prepare snapshot db: %w", err)
		}
		return st, func() { _ = db.Close() }, nil
	case "redis":
		if err := config.InitRedis(); err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		rdb := config.RedisClient
		st := persistence.NewCacheStore(cache.NewRedisCache(rdb, "yoointerview:"), settings.SnapshotTTL)
		return st, func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want sqlite or redis)", storeKind)
	}
}
