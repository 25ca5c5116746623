package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"poolLens/internal/cache"
	"poolLens/internal/chain"
	"poolLens/internal/config"
	"poolLens/internal/pools"
	"poolLens/internal/storage/postgres"
)

// connect opens the metadata store and chain readers and builds the pool service.
func connect(ctx context.Context, cfg config.Config, tier cache.Tier, logger *zap.Logger) (*pools.Service, *postgres.Store, *chain.Registry, error) {
	if cfg.PGDSN == "" {
		return nil, nil, nil, fmt.Errorf("pg dsn is required")
	}
	if len(cfg.Chains) == 0 {
		return nil, nil, nil, fmt.Errorf("at least one chain is required")
	}
	loc, err := cfg.LoadLocation()
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	endpoints := make([]chain.Endpoint, 0, len(cfg.Chains))
	for _, c := range cfg.Chains {
		endpoints = append(endpoints, chain.Endpoint{ChainID: c.ID, RPCURL: c.RPCURL, Contract: c.Contract})
	}
	registry, err := chain.Connect(ctx, endpoints, chain.ReaderConfig{
		CallTimeout:  cfg.CallTimeout,
		Fanout:       cfg.Fanout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	readers := make([]pools.ChainReader, 0, len(endpoints))
	for _, id := range registry.ChainIDs() {
		reader, err := registry.Reader(id)
		if err != nil {
			registry.Close()
			store.Close()
			return nil, nil, nil, err
		}
		readers = append(readers, reader)
	}

	svc, err := pools.NewService(readers, store, pools.Config{
		CacheTTL:   cfg.CacheTTL,
		CacheStale: cfg.CacheStale,
		Fanout:     cfg.Fanout,
		Location:   loc,
		Tier:       tier,
	}, logger)
	if err != nil {
		registry.Close()
		store.Close()
		return nil, nil, nil, err
	}
	return svc, store, registry, nil
}
