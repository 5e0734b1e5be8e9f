// Package file provides a storage.EligibilityStore persisted as a single JSON document.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/storage"
)

// entry is the on-disk value of one wallet.
type entry struct {
	LastDistributionEpochMillis int64 `json:"lastDistributionEpochMillis"`
}

// EligibilityStore keeps the whole mapping in memory and rewrites the file on every mutation.
// File format: {"<wallet>": {"lastDistributionEpochMillis": <ms>}, ...}
type EligibilityStore struct {
	path string

	mu   sync.RWMutex
	data map[string]entry
}

// Open loads the mapping from path. A missing file starts an empty store;
// the file is created on the first mutation.
func Open(path string) (*EligibilityStore, error) {
	s := &EligibilityStore{
		path: path,
		data: make(map[string]entry),
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read eligibility file: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("decode eligibility file %s: %w", path, err)
	}
	if s.data == nil { // the document "null"
		s.data = make(map[string]entry)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *EligibilityStore) Path() string {
	return s.path
}

// Get retrieves the record of a wallet. Returns ErrNotFound if not exists.
func (s *EligibilityStore) Get(_ context.Context, wallet string) (*domain.EligibilityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[wallet]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &domain.EligibilityRecord{Wallet: wallet, LastDistributionMs: e.LastDistributionEpochMillis}, nil
}

// Put creates or replaces the record of a wallet and rewrites the file.
// On write failure the in-memory mapping is rolled back.
func (s *EligibilityStore) Put(_ context.Context, r *domain.EligibilityRecord) error {
	if r == nil || r.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.data[r.Wallet]
	s.data[r.Wallet] = entry{LastDistributionEpochMillis: r.LastDistributionMs}
	if err := s.flush(); err != nil {
		if existed {
			s.data[r.Wallet] = prev
		} else {
			delete(s.data, r.Wallet)
		}
		return err
	}
	return nil
}

// Delete removes the record of a wallet and rewrites the file. Returns ErrNotFound if not exists.
func (s *EligibilityStore) Delete(_ context.Context, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.data[wallet]
	if !exists {
		return storage.ErrNotFound
	}
	delete(s.data, wallet)
	if err := s.flush(); err != nil {
		s.data[wallet] = prev
		return err
	}
	return nil
}

// List retrieves all records ordered by wallet ASC.
func (s *EligibilityStore) List(_ context.Context) ([]*domain.EligibilityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.EligibilityRecord, 0, len(s.data))
	for wallet, e := range s.data {
		result = append(result, &domain.EligibilityRecord{Wallet: wallet, LastDistributionMs: e.LastDistributionEpochMillis})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Wallet < result[j].Wallet
	})
	return result, nil
}

// flush writes the full mapping to a temp file in the same directory and renames it over path.
// Caller must hold the write lock.
func (s *EligibilityStore) flush() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode eligibility: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace eligibility file: %w", err)
	}
	return nil
}

var _ storage.EligibilityStore = (*EligibilityStore)(nil)
