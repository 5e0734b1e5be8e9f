package storage

import (
	"context"

	"solana-token-faucet/internal/domain"
)

// EligibilityStore persists the wallet -> last distribution mapping.
type EligibilityStore interface {
	// Get retrieves the record of a wallet. Returns ErrNotFound if none exists.
	Get(ctx context.Context, wallet string) (*domain.EligibilityRecord, error)

	// Put creates or replaces the record of a wallet. The change is durable when Put returns.
	Put(ctx context.Context, r *domain.EligibilityRecord) error

	// Delete removes the record of a wallet. Returns ErrNotFound if none exists.
	Delete(ctx context.Context, wallet string) error

	// List retrieves all records ordered by wallet ASC.
	List(ctx context.Context) ([]*domain.EligibilityRecord, error)
}

// TransferLogStore provides access to the append-only transfer log.
type TransferLogStore interface {
	// InsertBulk adds the records of one distribution atomically.
	// Returns ErrDuplicateKey if a (distribution_id, token_type) pair exists.
	InsertBulk(ctx context.Context, records []*domain.TransferRecord) error

	// GetByRecipient retrieves all records of a recipient, ordered by created_at ASC, token_type ASC.
	GetByRecipient(ctx context.Context, recipient string) ([]*domain.TransferRecord, error)

	// GetByDistributionID retrieves the records of one distribution, ordered by token_type ASC.
	GetByDistributionID(ctx context.Context, distributionID string) ([]*domain.TransferRecord, error)
}
