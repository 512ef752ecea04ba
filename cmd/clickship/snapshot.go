package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clickship/internal/aggregate"
	"clickship/internal/config"
	"clickship/internal/storage"
	"clickship/internal/storage/postgres"
)

func runSnapshot(cmd *cobra.Command, _ []string) error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggCfg, client, err := buildAggregation(cfg, logger)
	if err != nil {
		return err
	}

	var cache *aggregate.StatsCache
	if cfg.StatsCacheURL != "" {
		cache = aggregate.NewStatsCache(cfg.StatsCacheURL, cfg.Timeout)
	}

	refresher := aggregate.NewRefresher(aggregate.RefresherConfig{WatchAddress: cfg.WatchAddress},
		aggregate.NewGmAggregator(aggCfg, client, cache, logger),
		aggregate.NewMessageAggregator(aggCfg, client, logger),
		aggregate.NewPollAggregator(aggCfg, client, logger),
		logger,
	)
	refresher.RefreshAll(ctx)

	snap := refresher.Snapshot()
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}

	sink := storage.NewJsonlStorage(cfg.Out)
	if err := sink.PutSnapshot(snap); err != nil {
		return err
	}

	if cfg.PgDSN != "" {
		store, serr := postgres.NewStore(ctx, cfg.PgDSN)
		if serr != nil {
			return serr
		}
		defer store.Close()
		if serr := store.EnsureSchema(ctx); serr != nil {
			return serr
		}
		if serr := store.UpsertSnapshot(ctx, snap); serr != nil {
			return serr
		}
	}

	logger.Info("snapshot written",
		zap.String("out", cfg.Out),
		zap.Uint64("current_block", snap.CurrentBlock),
		zap.Bool("gm", snap.Gm != nil),
		zap.Bool("messages", snap.Messages != nil),
		zap.Bool("polls", snap.Polls != nil),
		zap.Bool("postgres", cfg.PgDSN != ""),
	)

	if snap.Gm == nil && snap.Messages == nil && snap.Polls == nil {
		return fmt.Errorf("no section could be aggregated")
	}
	return nil
}
