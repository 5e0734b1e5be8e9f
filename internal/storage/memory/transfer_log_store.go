package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/storage"
)

type transferKey struct {
	distributionID string
	tokenType      string
}

// TransferLogStore is an in-memory implementation of storage.TransferLogStore.
type TransferLogStore struct {
	mu   sync.RWMutex
	data map[transferKey]*domain.TransferRecord
}

// NewTransferLogStore creates a new in-memory transfer log store.
func NewTransferLogStore() *TransferLogStore {
	return &TransferLogStore{
		data: make(map[transferKey]*domain.TransferRecord),
	}
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *TransferLogStore) InsertBulk(_ context.Context, records []*domain.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[transferKey]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.DistributionID == "" || r.TokenType == "" {
			return storage.ErrInvalidInput
		}
		k := transferKey{r.DistributionID, r.TokenType}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, r := range records {
		copy := *r
		s.data[transferKey{r.DistributionID, r.TokenType}] = &copy
	}

	return nil
}

// GetByRecipient retrieves all records of a recipient, ordered by created_at ASC, token_type ASC.
func (s *TransferLogStore) GetByRecipient(_ context.Context, recipient string) ([]*domain.TransferRecord, error) {
	return s.filter(func(r *domain.TransferRecord) bool { return r.Recipient == recipient }), nil
}

// GetByDistributionID retrieves the records of one distribution, ordered by token_type ASC.
func (s *TransferLogStore) GetByDistributionID(_ context.Context, distributionID string) ([]*domain.TransferRecord, error) {
	return s.filter(func(r *domain.TransferRecord) bool { return r.DistributionID == distributionID }), nil
}

func (s *TransferLogStore) filter(match func(*domain.TransferRecord) bool) []*domain.TransferRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferRecord
	for _, r := range s.data {
		if match(r) {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].TokenType < result[j].TokenType
	})

	return result
}

var _ storage.TransferLogStore = (*TransferLogStore)(nil)
