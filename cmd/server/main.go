// Package main runs the faucet HTTP service:
// - POST /distribute, GET /distribute/check/:wallet
// - admin endpoints guarded by ADMIN_SECRET
// - /metrics for Prometheus
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-token-faucet/internal/api"
	"solana-token-faucet/internal/bootstrap"
	"solana-token-faucet/internal/config"
	"solana-token-faucet/internal/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	faucet, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		return fmt.Errorf("failed to initialize faucet: %w", err)
	}
	defer func() {
		if err := faucet.Close(); err != nil {
			logger.Error("failed to close faucet", "error", err)
		}
	}()

	if len(cfg.Distribution.DefaultMints) == 0 {
		logger.Warn("DEFAULT_MINTS not set; requests must name tokenTypes")
	}
	if cfg.Server.AdminSecret == "" {
		logger.Warn("ADMIN_SECRET not set; admin endpoints disabled")
	}

	srv := api.NewServer(logger)
	srv.RegisterRouter(api.NewFaucetRoutes(faucet.Engine, faucet.Tracker, faucet.Refiller, api.Config{
		Network:       cfg.Solana.Network,
		AdminSecret:   cfg.Server.AdminSecret,
		DefaultMints:  cfg.Distribution.DefaultMints,
		MaxTokenTypes: cfg.Distribution.MaxTokenTypes,
		Decimals:      cfg.Distribution.Decimals,
	}).WithTransferHistory(faucet.Transfers))

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("starting server", "port", cfg.Server.Port, "network", cfg.Solana.Network)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	// In-flight distributions are not cancelled; give them time to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
