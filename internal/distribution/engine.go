// Package distribution sends a fixed amount of several SPL tokens to one recipient,
// in sequential batches of concurrent transfers.
package distribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/ledger"
	"solana-token-faucet/internal/observability"
	"solana-token-faucet/internal/solana"
)

// Defaults.
const (
	DefaultBatchSize          = 5
	DefaultBatchDelay         = 2000 * time.Millisecond
	DefaultTokensPerRecipient = 1000
	DefaultDecimals           = 9
)

// DefaultAmount is DefaultTokensPerRecipient in smallest units.
const DefaultAmount uint64 = DefaultTokensPerRecipient * 1_000_000_000

// Recorder receives every finished distribution result.
type Recorder interface {
	Record(ctx context.Context, result *domain.DistributionResult) error
}

// Engine orchestrates distributions.
type Engine struct {
	ledger     ledger.Client
	sender     *solana.Keypair
	batchSize  int
	batchDelay time.Duration
	amount     uint64
	sleep      func(time.Duration)
	now        func() time.Time
	logger     *slog.Logger
	recorder   Recorder
}

// Options for creating Engine.
type Options struct {
	Ledger ledger.Client
	Sender *solana.Keypair // nil makes every distribution fail with ErrMissingCredentials

	BatchSize  int           // default 5
	BatchDelay time.Duration // default 2s; zero keeps the default, negative disables
	Amount     uint64        // smallest units per transfer; default 1000 tokens at 9 decimals

	Sleep    func(time.Duration) // default time.Sleep
	Now      func() time.Time    // default time.Now
	Logger   *slog.Logger
	Recorder Recorder // optional
}

// New creates a new Engine.
func New(opts Options) *Engine {
	e := &Engine{
		ledger:     opts.Ledger,
		sender:     opts.Sender,
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
		amount:     opts.Amount,
		sleep:      opts.Sleep,
		now:        opts.Now,
		logger:     opts.Logger,
		recorder:   opts.Recorder,
	}
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.batchDelay == 0 {
		e.batchDelay = DefaultBatchDelay
	} else if e.batchDelay < 0 {
		e.batchDelay = 0
	}
	if e.amount == 0 {
		e.amount = DefaultAmount
	}
	if e.sleep == nil {
		e.sleep = time.Sleep
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "distribution")
	return e
}

// Amount returns the per-transfer amount in smallest units.
func (e *Engine) Amount() uint64 {
	return e.amount
}

// Sender returns the distributor address, or "" when no credentials are configured.
func (e *Engine) Sender() string {
	if e.sender == nil {
		return ""
	}
	return e.sender.Address()
}

// Distribute transfers the configured amount of every valid token type to recipient.
//
// Invalid token types are dropped. Batches run sequentially with the batch delay in
// between; transfers within a batch run concurrently and never affect each other.
// The result holds one outcome per valid token type in input order. When the
// orchestration cannot start, the result carries a single synthetic failure and the
// cause is returned as error.
func (e *Engine) Distribute(ctx context.Context, recipient string, tokenTypes []string) (*domain.DistributionResult, error) {
	started := e.now()
	result := &domain.DistributionResult{
		ID:        uuid.NewString(),
		Recipient: recipient,
		StartedAt: started.UnixMilli(),
	}
	log := e.logger.With("distribution_id", result.ID, "recipient", recipient)

	if err := domain.ValidateAddress(recipient); err != nil {
		return e.abort(ctx, log, result, fmt.Errorf("%w: %v", ErrInvalidRecipient, err))
	}

	valid, rejected := domain.FilterValidTokenTypes(tokenTypes)
	if len(rejected) > 0 {
		log.Warn("dropping invalid token types", "rejected", rejected)
	}
	if len(valid) == 0 {
		return e.abort(ctx, log, result, ErrNoValidTargets)
	}
	if e.sender == nil {
		return e.abort(ctx, log, result, ErrMissingCredentials)
	}

	batches := Chunk(valid, e.batchSize)
	log.Info("distribution started", "token_types", len(valid), "batches", len(batches))

	outcomes := make([]domain.TransferOutcome, 0, len(valid))
	for i, batch := range batches {
		if i > 0 && e.batchDelay > 0 {
			observability.RecordBatchDelay()
			e.sleep(e.batchDelay)
		}
		outcomes = append(outcomes, e.runBatch(ctx, log, recipient, batch)...)
	}

	result.OverallSuccess = true
	result.Outcomes = outcomes
	result.CompletedAt = e.now().UnixMilli()

	log.Info("distribution completed",
		"succeeded", result.SuccessCount(),
		"failed", result.FailureCount(),
		"duration", e.now().Sub(started))
	observability.RecordDistribution(true, e.now().Sub(started))
	e.record(ctx, log, result)
	return result, nil
}

// abort finishes result as a single synthetic failure carrying err.
func (e *Engine) abort(ctx context.Context, log *slog.Logger, result *domain.DistributionResult, err error) (*domain.DistributionResult, error) {
	log.Error("distribution failed", "error", err)
	result.OverallSuccess = false
	result.Outcomes = []domain.TransferOutcome{domain.NewFailure("", domain.StageFailed, err.Error())}
	result.CompletedAt = e.now().UnixMilli()
	observability.RecordDistribution(false, time.Duration(result.CompletedAt-result.StartedAt)*time.Millisecond)
	e.record(ctx, log, result)
	return result, err
}

// runBatch runs one transfer per token type concurrently and settles all of them.
func (e *Engine) runBatch(ctx context.Context, log *slog.Logger, recipient string, batch []string) []domain.TransferOutcome {
	outcomes := make([]domain.TransferOutcome, len(batch))

	var g errgroup.Group
	for i, tokenType := range batch {
		g.Go(func() error {
			outcomes[i] = e.transfer(ctx, log, recipient, tokenType)
			return nil // settle all: failures are outcomes, not errors
		})
	}
	_ = g.Wait()

	return outcomes
}

// transfer runs the per-token state machine. Any failure, including a panic,
// becomes a Failure outcome tagged with the stage it originated in.
func (e *Engine) transfer(ctx context.Context, log *slog.Logger, recipient, tokenType string) (outcome domain.TransferOutcome) {
	start := e.now()
	stage := domain.StagePending
	done := observability.TransferStarted()
	log = log.With("token_type", tokenType)

	defer func() {
		if r := recover(); r != nil {
			outcome = e.failed(log, &TransferError{TokenType: tokenType, Stage: stage, Err: fmt.Errorf("panic: %v", r)})
		}
		done()
		observability.RecordTransfer(outcome.Status.String(), outcome.Stage.String(), e.now().Sub(start))
	}()

	stage = domain.StageResolvingSenderAccount
	from, err := e.resolveSenderAccount(ctx, tokenType)
	if err != nil {
		return e.failed(log, &TransferError{TokenType: tokenType, Stage: stage, Err: err})
	}

	stage = domain.StageResolvingRecipientAccount
	to, err := e.ledger.ResolveOrCreateTokenAccount(ctx, e.sender, tokenType, recipient)
	if err != nil {
		return e.failed(log, &TransferError{TokenType: tokenType, Stage: stage, Err: err})
	}

	stage = domain.StageSubmitting
	op, err := e.ledger.BuildTransfer(from, to, e.sender.Address(), e.amount)
	if err != nil {
		return e.failed(log, &TransferError{TokenType: tokenType, Stage: stage, Err: err})
	}

	signature, err := e.ledger.SubmitAndConfirm(ctx, op, e.sender)
	if err != nil {
		var ce *ledger.ConfirmError
		if errors.As(err, &ce) {
			stage = domain.StageConfirming
		}
		return e.failed(log, &TransferError{TokenType: tokenType, Stage: stage, Err: err})
	}

	log.Info("transfer confirmed", "signature", signature)
	return domain.NewSuccess(tokenType, signature)
}

// resolveSenderAccount resolves the distributor's token account, falling back to any
// existing account of the distributor for the mint when resolve-or-create fails.
func (e *Engine) resolveSenderAccount(ctx context.Context, tokenType string) (string, error) {
	account, err := e.ledger.ResolveOrCreateTokenAccount(ctx, e.sender, tokenType, e.sender.Address())
	if err == nil {
		return account, nil
	}

	accounts, lookupErr := e.ledger.TokenAccountsByOwnerAndMint(ctx, e.sender.Address(), tokenType)
	if lookupErr == nil && len(accounts) > 0 {
		e.logger.Warn("using existing sender token account",
			"token_type", tokenType, "account", accounts[0].Address, "resolve_error", err)
		return accounts[0].Address, nil
	}
	if lookupErr != nil {
		return "", errors.Join(err, lookupErr)
	}
	return "", fmt.Errorf("%w (distributor holds no token account)", err)
}

func (e *Engine) failed(log *slog.Logger, err *TransferError) domain.TransferOutcome {
	log.Error("transfer failed", "stage", err.Stage, "class", FailureClass(err), "error", err.Err)
	return domain.NewFailure(err.TokenType, err.Stage, err.Err.Error())
}

func (e *Engine) record(ctx context.Context, log *slog.Logger, result *domain.DistributionResult) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(ctx, result); err != nil {
		log.Warn("record distribution", "error", err)
	}
}
