// Package eligibility decides whether a wallet may receive a new distribution.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/observability"
	"solana-token-faucet/internal/storage"
)

// DefaultCooldown is the minimum time between two distributions to the same wallet.
const DefaultCooldown = 24 * time.Hour

// Tracker keeps the wallet -> last distribution mapping over a storage backend.
type Tracker struct {
	store    storage.EligibilityStore
	cooldown time.Duration
	now      func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(t *Tracker) {
		t.cooldown = d
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a Tracker backed by store.
func NewTracker(store storage.EligibilityStore, opts ...Option) *Tracker {
	t := &Tracker{
		store:    store,
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Cooldown returns the configured cooldown.
func (t *Tracker) Cooldown() time.Duration {
	return t.cooldown
}

// IsEligible reports whether wallet has no record or its last distribution is at least
// one cooldown old.
func (t *Tracker) IsEligible(ctx context.Context, wallet string) (bool, error) {
	remaining, err := t.TimeRemaining(ctx, wallet)
	if err != nil {
		return false, err
	}
	return remaining == 0, nil
}

// TimeRemaining returns how long wallet must wait. Zero means eligible now.
func (t *Tracker) TimeRemaining(ctx context.Context, wallet string) (time.Duration, error) {
	rec, err := t.store.Get(ctx, wallet)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		observability.RecordEligibilityError("get")
		return 0, fmt.Errorf("get eligibility %s: %w", wallet, err)
	}

	elapsed := t.now().Sub(time.UnixMilli(rec.LastDistributionMs))
	if elapsed >= t.cooldown {
		return 0, nil
	}
	return t.cooldown - elapsed, nil
}

// RecordDistribution stamps wallet with the current time. The change is durable
// when it returns nil.
func (t *Tracker) RecordDistribution(ctx context.Context, wallet string) error {
	rec := &domain.EligibilityRecord{
		Wallet:             wallet,
		LastDistributionMs: t.now().UnixMilli(),
	}
	if err := t.store.Put(ctx, rec); err != nil {
		observability.RecordEligibilityError("put")
		return fmt.Errorf("record distribution %s: %w", wallet, err)
	}
	return nil
}

// Reset removes the record of wallet. Returns storage.ErrNotFound for an unknown wallet.
func (t *Tracker) Reset(ctx context.Context, wallet string) error {
	err := t.store.Delete(ctx, wallet)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		observability.RecordEligibilityError("delete")
	}
	if err != nil {
		return fmt.Errorf("reset %s: %w", wallet, err)
	}
	return nil
}

// Records lists every stored record ordered by wallet.
func (t *Tracker) Records(ctx context.Context) ([]*domain.EligibilityRecord, error) {
	records, err := t.store.List(ctx)
	if err != nil {
		observability.RecordEligibilityError("list")
		return nil, fmt.Errorf("list eligibility: %w", err)
	}
	return records, nil
}

// FormatRemaining renders d as "Xh Ym", or "eligible now" for zero.
// Partial minutes round up so a waiting wallet never reads "0h 0m".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "eligible now"
	}
	minutes := int64((d + time.Minute - 1) / time.Minute)
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
