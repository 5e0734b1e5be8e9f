package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/storage"
)

// EligibilityStore is an in-memory implementation of storage.EligibilityStore.
type EligibilityStore struct {
	mu   sync.RWMutex
	data map[string]int64 // wallet -> last distribution ms
}

// NewEligibilityStore creates a new in-memory eligibility store.
func NewEligibilityStore() *EligibilityStore {
	return &EligibilityStore{
		data: make(map[string]int64),
	}
}

// Get retrieves the record of a wallet. Returns ErrNotFound if not exists.
func (s *EligibilityStore) Get(_ context.Context, wallet string) (*domain.EligibilityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ms, exists := s.data[wallet]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &domain.EligibilityRecord{Wallet: wallet, LastDistributionMs: ms}, nil
}

// Put creates or replaces the record of a wallet.
func (s *EligibilityStore) Put(_ context.Context, r *domain.EligibilityRecord) error {
	if r == nil || r.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[r.Wallet] = r.LastDistributionMs
	return nil
}

// Delete removes the record of a wallet. Returns ErrNotFound if not exists.
func (s *EligibilityStore) Delete(_ context.Context, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[wallet]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, wallet)
	return nil
}

// List retrieves all records ordered by wallet ASC.
func (s *EligibilityStore) List(_ context.Context) ([]*domain.EligibilityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.EligibilityRecord, 0, len(s.data))
	for wallet, ms := range s.data {
		result = append(result, &domain.EligibilityRecord{Wallet: wallet, LastDistributionMs: ms})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Wallet < result[j].Wallet
	})

	return result, nil
}

var _ storage.EligibilityStore = (*EligibilityStore)(nil)
