package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clickship/internal/aggregate"
	"clickship/internal/chain"
	"clickship/internal/config"
	"clickship/internal/server"
	"clickship/internal/storage/postgres"
)

func runServe(cmd *cobra.Command, _ []string) error {
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

	refresher := aggregate.NewRefresher(aggregate.RefresherConfig{
		WatchAddress:  cfg.WatchAddress,
		StatsInterval: cfg.StatsInterval,
		PollInterval:  cfg.PollInterval,
		KickDelay:     cfg.KickDelay,
	},
		aggregate.NewGmAggregator(aggCfg, client, cache, logger),
		aggregate.NewMessageAggregator(aggCfg, client, logger),
		aggregate.NewPollAggregator(aggCfg, client, logger),
		logger,
	)

	var eventStore server.EventStore
	if cfg.PgDSN != "" {
		store, serr := postgres.NewStore(ctx, cfg.PgDSN)
		if serr != nil {
			return fmt.Errorf("connect postgres: %w", serr)
		}
		defer store.Close()
		if serr := store.EnsureSchema(ctx); serr != nil {
			return serr
		}
		eventStore = store
	} else {
		logger.Warn("no pg dsn configured, counters are in-memory only")
	}

	httpServer := server.New(server.Config{
		Addr:         cfg.Addr,
		WebhookToken: cfg.WebhookToken,
		StatsTTL:     cfg.StatsTTL,
	},
		refresher,
		aggregate.NewVotingStatsAggregator(aggCfg, client, logger),
		eventStore,
		logger,
	)

	logger.Info("serve start",
		zap.String("node_url", cfg.NodeURL),
		zap.String("gm_contract", cfg.GmContract),
		zap.String("message_contract", cfg.MessageContract),
		zap.String("voting_contract", cfg.VotingContract),
		zap.String("addr", cfg.Addr),
		zap.Bool("stats_cache", cache != nil),
		zap.Bool("postgres", eventStore != nil),
	)

	go func() {
		if rerr := refresher.Run(ctx); rerr != nil {
			logger.Warn("refresher stopped", zap.Error(rerr))
		}
	}()

	return httpServer.Run(ctx)
}

// buildAggregation resolves the shared aggregation config and node client.
func buildAggregation(cfg config.Config, logger *zap.Logger) (aggregate.Config, *chain.Client, error) {
	gm, err := chain.ParseContract(cfg.GmContract)
	if err != nil {
		return aggregate.Config{}, nil, fmt.Errorf("gm contract: %w", err)
	}
	messages, err := chain.ParseContract(cfg.MessageContract)
	if err != nil {
		return aggregate.Config{}, nil, fmt.Errorf("message contract: %w", err)
	}
	voting, err := chain.ParseContract(cfg.VotingContract)
	if err != nil {
		return aggregate.Config{}, nil, fmt.Errorf("voting contract: %w", err)
	}

	client, err := chain.NewClient(chain.ClientConfig{
		NodeURL:      cfg.NodeURL,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
	if err != nil {
		return aggregate.Config{}, nil, err
	}

	return aggregate.Config{
		Contracts: aggregate.Contracts{Gm: gm, Messages: messages, Voting: voting},
		Sender:    cfg.Sender,
	}, client, nil
}
