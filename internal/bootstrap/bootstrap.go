// Package bootstrap assembles the faucet components from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"solana-token-faucet/internal/config"
	"solana-token-faucet/internal/distribution"
	"solana-token-faucet/internal/eligibility"
	"solana-token-faucet/internal/events"
	"solana-token-faucet/internal/ledger"
	"solana-token-faucet/internal/observability"
	"solana-token-faucet/internal/solana"
	"solana-token-faucet/internal/storage"
	chstore "solana-token-faucet/internal/storage/clickhouse"
	"solana-token-faucet/internal/storage/file"
	"solana-token-faucet/internal/storage/memory"
	"solana-token-faucet/internal/storage/migrations"
	pgstore "solana-token-faucet/internal/storage/postgres"
)

// Faucet holds every assembled component. Close releases connections.
type Faucet struct {
	Config   config.Config
	Sender   *solana.Keypair // nil when no credentials are configured
	Ledger   ledger.Admin
	Engine   *distribution.Engine
	Tracker  *eligibility.Tracker
	Refiller *distribution.Refiller
	// Transfers is the primary transfer log; an in-memory log outside postgres.
	Transfers storage.TransferLogStore

	closers []func() error
}

// Close releases all connections in reverse order of creation.
func (f *Faucet) Close() error {
	var errs []error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	f.closers = nil
	return errors.Join(errs...)
}

func (f *Faucet) onClose(fn func() error) {
	f.closers = append(f.closers, fn)
}

// Options adjust what New connects to.
type Options struct {
	// SkipWebSocket confirms by polling only (CLI commands).
	SkipWebSocket bool
	// SkipRecorders disables the transfer log and events (CLI commands).
	SkipRecorders bool
}

// New builds the faucet described by cfg.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (_ *Faucet, err error) {
	f := &Faucet{Config: cfg}
	defer func() {
		if err != nil {
			_ = f.Close()
		}
	}()

	if cfg.Solana.PrivateKey != "" {
		f.Sender, err = solana.KeypairFromBase64(cfg.Solana.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("AIRDROP_WALLET_PRIVATE_KEY: %w", err)
		}
		logger.Info("distributor loaded", "address", f.Sender.Address())
	} else {
		logger.Warn("AIRDROP_WALLET_PRIVATE_KEY not set; distributions will fail")
	}

	f.Ledger = f.newLedger(ctx, cfg.Solana, logger, opts.SkipWebSocket)

	eligibilityStore, transferLog, err := f.newStores(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	f.Transfers = transferLog
	f.Tracker = eligibility.NewTracker(eligibilityStore, eligibility.WithCooldown(cfg.Distribution.Cooldown))

	amount, err := distribution.Amount(cfg.Distribution.Tokens, cfg.Distribution.Decimals)
	if err != nil {
		return nil, fmt.Errorf("distribution amount: %w", err)
	}

	var recorder distribution.Recorder
	if !opts.SkipRecorders {
		recorder, err = f.newRecorder(ctx, cfg, transferLog, amount, logger)
		if err != nil {
			return nil, err
		}
	}

	batchDelay := cfg.Distribution.BatchDelay
	if batchDelay == 0 {
		batchDelay = -1
	}
	f.Engine = distribution.New(distribution.Options{
		Ledger:     f.Ledger,
		Sender:     f.Sender,
		BatchSize:  cfg.Distribution.BatchSize,
		BatchDelay: batchDelay,
		Amount:     amount,
		Logger:     logger,
		Recorder:   recorder,
	})
	f.Refiller = distribution.NewRefiller(f.Ledger, f.Sender, logger)

	return f, nil
}

func (f *Faucet) newLedger(ctx context.Context, cfg config.SolanaConfig, logger *slog.Logger, skipWS bool) *ledger.SolanaClient {
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint,
		solana.WithCommitment(solana.CommitmentConfirmed),
		solana.WithObserver(observability.RecordRPCCall),
	)
	opts := []ledger.Option{ledger.WithLogger(logger)}

	if !skipWS && cfg.WSEndpoint != "" {
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Logger = logger
		ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, &wsCfg)
		if err != nil {
			logger.Warn("websocket unavailable, confirming by polling", "endpoint", cfg.WSEndpoint, "error", err)
		} else {
			f.onClose(ws.Close)
			opts = append(opts, ledger.WithWebSocket(ws))
		}
	}

	logger.Info("solana client ready", "network", cfg.Network, "rpc", cfg.RPCEndpoint)
	return ledger.NewSolanaClient(rpc, opts...)
}

func (f *Faucet) newStores(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.EligibilityStore, storage.TransferLogStore, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		logger.Warn("using in-memory eligibility store; cooldowns reset on restart")
		return memory.NewEligibilityStore(), memory.NewTransferLogStore(), nil

	case config.StoragePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		f.onClose(func() error { pool.Close(); return nil })
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Info("using postgres eligibility store")
		return pgstore.NewEligibilityStore(pool), pgstore.NewTransferLogStore(pool), nil

	default:
		store, err := file.Open(cfg.EligibilityFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using file eligibility store", "path", store.Path())
		return store, memory.NewTransferLogStore(), nil
	}
}

func (f *Faucet) newRecorder(ctx context.Context, cfg config.Config, transferLog storage.TransferLogStore, amount uint64, logger *slog.Logger) (distribution.Recorder, error) {
	recorders := distribution.MultiRecorder{distribution.NewTransferLogRecorder(transferLog, amount)}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		f.onClose(conn.Close)
		recorders = append(recorders, distribution.NewTransferLogRecorder(chstore.NewTransferLogStore(conn), amount))
		logger.Info("recording transfer outcomes to clickhouse")
	}

	var broker events.Broker = events.Noop{}
	if cfg.Events.NATSURL != "" {
		js, err := events.ConnectJetStream(ctx, cfg.Events.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		broker = js
		logger.Info("publishing distribution events", "url", cfg.Events.NATSURL, "subject", events.SubjectDistributionCompleted)
	}
	publisher := events.NewPublisher(broker)
	f.onClose(publisher.Close)
	recorders = append(recorders, distribution.NewEventRecorder(publisher))

	return recorders, nil
}
