package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clickship/internal/chainhook"
	"clickship/internal/config"
)

func runRegister(cmd *cobra.Command, _ []string) error {
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

	if cfg.ChainhookURL == "" {
		return fmt.Errorf("chainhook url is required")
	}
	if cfg.WebhookEndpoint == "" {
		return fmt.Errorf("webhook endpoint is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chainhook.NewClient(cfg.ChainhookURL, cfg.ChainhookAPIKey, logger)
	if err != nil {
		return err
	}

	if cfg.ReplaceHooks {
		uuids, lerr := client.List(ctx)
		if lerr != nil {
			return fmt.Errorf("list predicates: %w", lerr)
		}
		for _, id := range uuids {
			if derr := client.Delete(ctx, id); derr != nil {
				return fmt.Errorf("delete predicate %s: %w", id, derr)
			}
			logger.Info("predicate deleted", zap.String("uuid", id))
		}
	}

	predicate := chainhook.NewGmPredicate(cfg.GmContract, "say-gm", cfg.WebhookEndpoint, cfg.WebhookToken)
	if err := client.Register(ctx, predicate); err != nil {
		return err
	}

	logger.Info("register done",
		zap.String("uuid", predicate.UUID),
		zap.String("contract", cfg.GmContract),
		zap.String("endpoint", cfg.WebhookEndpoint),
	)
	return nil
}
