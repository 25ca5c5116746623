package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "poollens",
		Short:        "Pool lifecycle read API",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}

	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	serveCmd.Flags().String("redis-addr", "", "optional Redis address for the shared cache tier")
	serveCmd.Flags().String("env", "development", "environment (development, production)")
	serveCmd.Flags().Duration("cache-ttl", 30*time.Second, "cache entry freshness")
	serveCmd.Flags().Duration("cache-stale", 30*time.Second, "how long past ttl a stale entry may be served")
	serveCmd.Flags().Duration("call-timeout", 5*time.Second, "per contract call timeout")
	serveCmd.Flags().Int("fanout", 8, "concurrent contract calls per batch")
	serveCmd.Flags().Int("max-retries", 2, "maximum retry attempts")
	serveCmd.Flags().Duration("retry-backoff", 200*time.Millisecond, "initial retry backoff")
	serveCmd.Flags().String("location", "UTC", "time zone for date labels")
	serveCmd.Flags().Float64("rate-limit", 20, "requests per second per client and route, 0 disables")
	serveCmd.Flags().Int("rate-burst", 40, "rate limit burst")
	serveCmd.Flags().StringSlice("allow-origins", nil, "CORS origins (comma-separated), empty allows all")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write reconciled pools as JSONL",
		RunE:  runExport,
	}

	exportCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	exportCmd.Flags().Uint64("chain-id", 0, "chain id to export")
	exportCmd.Flags().String("scope", "upcoming", "pools to export (upcoming, past)")
	exportCmd.Flags().String("out", "./data/pools.jsonl", "output JSONL path")
	exportCmd.Flags().Duration("call-timeout", 5*time.Second, "per contract call timeout")
	exportCmd.Flags().Int("fanout", 8, "concurrent contract calls per batch")
	exportCmd.Flags().String("location", "UTC", "time zone for date labels")
	exportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(exportCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the metadata schema",
		RunE:  runMigrate,
	}

	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
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
