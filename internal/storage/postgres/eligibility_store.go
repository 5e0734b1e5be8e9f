package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/storage"
)

// EligibilityStore implements storage.EligibilityStore using PostgreSQL.
// Suitable for several faucet instances sharing one cooldown table.
type EligibilityStore struct {
	pool *Pool
}

// NewEligibilityStore creates a new EligibilityStore.
func NewEligibilityStore(pool *Pool) *EligibilityStore {
	return &EligibilityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EligibilityStore = (*EligibilityStore)(nil)

// Get retrieves the record of a wallet. Returns ErrNotFound if none exists.
func (s *EligibilityStore) Get(ctx context.Context, wallet string) (_ *domain.EligibilityRecord, err error) {
	defer func(start time.Time) {
		if errors.Is(err, storage.ErrNotFound) {
			observe("eligibility_get", start, nil)
			return
		}
		observe("eligibility_get", start, err)
	}(time.Now())

	row := s.pool.QueryRow(ctx, `
		SELECT wallet, last_distribution_ms
		FROM eligibility
		WHERE wallet = $1
	`, wallet)

	var r domain.EligibilityRecord
	if err = row.Scan(&r.Wallet, &r.LastDistributionMs); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get eligibility: %w", err)
	}
	return &r, nil
}

// Put creates or replaces the record of a wallet.
func (s *EligibilityStore) Put(ctx context.Context, r *domain.EligibilityRecord) error {
	if r == nil || r.Wallet == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO eligibility (wallet, last_distribution_ms, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (wallet) DO UPDATE
		SET last_distribution_ms = EXCLUDED.last_distribution_ms,
		    updated_at = NOW()
	`, r.Wallet, r.LastDistributionMs)
	observe("eligibility_put", start, err)
	if err != nil {
		return fmt.Errorf("put eligibility: %w", err)
	}
	return nil
}

// Delete removes the record of a wallet. Returns ErrNotFound if none exists.
func (s *EligibilityStore) Delete(ctx context.Context, wallet string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM eligibility WHERE wallet = $1`, wallet)
	if err != nil {
		return fmt.Errorf("delete eligibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List retrieves all records ordered by wallet ASC.
func (s *EligibilityStore) List(ctx context.Context) ([]*domain.EligibilityRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT wallet, last_distribution_ms
		FROM eligibility
		ORDER BY wallet ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list eligibility: %w", err)
	}
	defer rows.Close()

	var records []*domain.EligibilityRecord
	for rows.Next() {
		var r domain.EligibilityRecord
		if err := rows.Scan(&r.Wallet, &r.LastDistributionMs); err != nil {
			return nil, fmt.Errorf("scan eligibility: %w", err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eligibility: %w", err)
	}
	return records, nil
}
