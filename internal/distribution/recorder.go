package distribution

import (
	"context"
	"errors"
	"fmt"

	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/storage"
)

// TransferLogRecorder appends the outcomes of every distribution to a transfer log.
type TransferLogRecorder struct {
	store  storage.TransferLogStore
	amount uint64
}

// NewTransferLogRecorder creates a recorder writing to store. amount is logged on
// successful rows.
func NewTransferLogRecorder(store storage.TransferLogStore, amount uint64) *TransferLogRecorder {
	return &TransferLogRecorder{store: store, amount: amount}
}

func (r *TransferLogRecorder) Record(ctx context.Context, result *domain.DistributionResult) error {
	records := domain.TransferRecords(result, r.amount)
	if len(records) == 0 {
		return nil
	}
	if err := r.store.InsertBulk(ctx, records); err != nil {
		return fmt.Errorf("insert transfer log: %w", err)
	}
	return nil
}

// Publisher announces finished distributions.
type Publisher interface {
	Publish(ctx context.Context, result *domain.DistributionResult) error
}

// EventRecorder publishes every distribution result.
type EventRecorder struct {
	publisher Publisher
}

// NewEventRecorder creates a recorder publishing through p.
func NewEventRecorder(p Publisher) *EventRecorder {
	return &EventRecorder{publisher: p}
}

func (r *EventRecorder) Record(ctx context.Context, result *domain.DistributionResult) error {
	return r.publisher.Publish(ctx, result)
}

// MultiRecorder calls every recorder in order and joins their errors.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, result *domain.DistributionResult) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
