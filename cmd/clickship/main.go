package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Missing .env is fine; env vars and flags still apply.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "clickship",
		Short:        "Stacks dApp read-model aggregator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve aggregated read models over HTTP",
		RunE:  runServe,
	}

	serveCmd.Flags().String("node-url", "", "Stacks node URL")
	serveCmd.Flags().String("gm-contract", "", "GM contract id (ADDR.name)")
	serveCmd.Flags().String("message-contract", "", "message contract id (ADDR.name)")
	serveCmd.Flags().String("voting-contract", "", "voting contract id (ADDR.name)")
	serveCmd.Flags().String("sender", "", "sender principal for read-only simulation")
	serveCmd.Flags().String("watch-address", "", "wallet address to personalize read models for")
	serveCmd.Flags().String("stats-cache-url", "", "cached stats endpoint URL (fast path)")
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().String("webhook-token", "", "bearer token for webhook deliveries")
	serveCmd.Flags().Duration("stats-ttl", 60*time.Second, "snapshot freshness window")
	serveCmd.Flags().Duration("stats-interval", 30*time.Second, "GM/message refresh interval")
	serveCmd.Flags().Duration("poll-interval", 60*time.Second, "poll refresh interval")
	serveCmd.Flags().Duration("kick-delay", 5*time.Second, "post-webhook refresh delay")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional durable storage)")
	serveCmd.Flags().Int("max-retries", 3, "maximum node call retry attempts")
	serveCmd.Flags().Duration("retry-backoff", 250*time.Millisecond, "initial retry backoff")
	serveCmd.Flags().Duration("timeout", 15*time.Second, "node request timeout")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Aggregate once and append the snapshot to a JSONL file",
		RunE:  runSnapshot,
	}

	snapshotCmd.Flags().String("node-url", "", "Stacks node URL")
	snapshotCmd.Flags().String("gm-contract", "", "GM contract id (ADDR.name)")
	snapshotCmd.Flags().String("message-contract", "", "message contract id (ADDR.name)")
	snapshotCmd.Flags().String("voting-contract", "", "voting contract id (ADDR.name)")
	snapshotCmd.Flags().String("sender", "", "sender principal for read-only simulation")
	snapshotCmd.Flags().String("watch-address", "", "wallet address to personalize read models for")
	snapshotCmd.Flags().String("stats-cache-url", "", "cached stats endpoint URL (fast path)")
	snapshotCmd.Flags().String("out", "./data/snapshots.jsonl", "output JSONL path")
	snapshotCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional snapshot upsert)")
	snapshotCmd.Flags().Int("max-retries", 3, "maximum node call retry attempts")
	snapshotCmd.Flags().Duration("retry-backoff", 250*time.Millisecond, "initial retry backoff")
	snapshotCmd.Flags().Duration("timeout", 15*time.Second, "node request timeout")
	snapshotCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(snapshotCmd)

	registerCmd := &cobra.Command{
		Use:   "register-chainhook",
		Short: "Register the GM contract-call predicate with a chainhook node",
		RunE:  runRegister,
	}

	registerCmd.Flags().String("gm-contract", "", "GM contract id (ADDR.name)")
	registerCmd.Flags().String("chainhook-url", "", "chainhook node base URL")
	registerCmd.Flags().String("chainhook-api-key", "", "chainhook API key")
	registerCmd.Flags().String("webhook-endpoint", "", "public webhook delivery URL")
	registerCmd.Flags().String("webhook-token", "", "bearer token the delivery must carry")
	registerCmd.Flags().Bool("replace", false, "delete existing predicates first")
	registerCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(registerCmd)

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
