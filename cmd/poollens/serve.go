package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolLens/internal/api"
	"poolLens/internal/auth"
	"poolLens/internal/cache"
	"poolLens/internal/config"
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

	var tier cache.Tier
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		tier = cache.NewRedisTier(client, "poollens", 300*time.Millisecond)
	}

	svc, store, registry, err := connect(ctx, cfg, tier, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	defer registry.Close()

	var verifier *auth.Verifier
	if cfg.JWTSecret != "" || cfg.JWTPublicKey != "" {
		verifier, err = auth.NewVerifier(auth.VerifierConfig{
			Secret:       cfg.JWTSecret,
			PublicKeyPEM: cfg.JWTPublicKey,
			Issuer:       cfg.JWTIssuer,
			Audience:     cfg.JWTAudience,
		})
		if err != nil {
			return err
		}
	} else {
		logger.Warn("no jwt key configured, authenticated endpoints will reject every request")
	}
	policy := auth.NewPolicy(verifier, store, svc, logger)

	router := api.NewRouter(ctx, svc, policy, api.Options{
		Production:   cfg.Production(),
		RateLimit:    cfg.RateLimit,
		RateBurst:    cfg.RateBurst,
		AllowOrigins: cfg.AllowOrigins,
		Metrics:      true,
		Health:       store.Ping,
	}, logger)
	server := api.NewServer(cfg.Addr, router)

	logger.Info("server start",
		zap.String("addr", cfg.Addr),
		zap.String("env", cfg.Env),
		zap.Uint64s("chains", registry.ChainIDs()),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("cache_stale", cfg.CacheStale),
		zap.Bool("redis", tier != nil),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
