package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolLens/internal/config"
	"poolLens/internal/model"
	"poolLens/internal/storage"
)

func runExport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.ChainID == 0 {
		return fmt.Errorf("chain id is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, store, registry, err := connect(ctx, cfg.Config, nil, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	defer registry.Close()

	var items []model.PoolItem
	switch cfg.Scope {
	case "past":
		items, err = svc.Past(ctx, cfg.ChainID)
	default:
		items, err = svc.Upcoming(ctx, cfg.ChainID)
	}
	if err != nil {
		return fmt.Errorf("load %s pools: %w", cfg.Scope, err)
	}

	sink := storage.NewJsonlStorage(cfg.Out)
	if err := sink.PutItems(items); err != nil {
		return err
	}

	logger.Info("export done",
		zap.Uint64("chain_id", cfg.ChainID),
		zap.String("scope", cfg.Scope),
		zap.Int("pools", len(items)),
		zap.String("out", cfg.Out),
	)
	return nil
}
