package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/observability"
	"solana-token-faucet/internal/storage"
)

// TransferLogStore implements storage.TransferLogStore using ClickHouse.
// Intended for analytics over transfer outcomes; MergeTree does not enforce
// uniqueness, so duplicates are checked before insert.
type TransferLogStore struct {
	conn *Conn
}

// NewTransferLogStore creates a new TransferLogStore.
func NewTransferLogStore(conn *Conn) *TransferLogStore {
	return &TransferLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferLogStore = (*TransferLogStore)(nil)

// InsertBulk adds the records of one distribution. Fails entire batch on duplicate.
func (s *TransferLogStore) InsertBulk(ctx context.Context, records []*domain.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		distributionID string
		tokenType      string
	}
	seen := make(map[key]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.DistributionID == "" || r.TokenType == "" {
			return storage.ErrInvalidInput
		}
		k := key{r.DistributionID, r.TokenType}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for k := range seen {
		exists, err := s.exists(ctx, k.distributionID, k.tokenType)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transfer_outcomes (
			distribution_id, recipient, token_type, status, signature, reason, stage, amount, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.DistributionID, r.Recipient, r.TokenType, string(r.Status), r.Signature,
			r.Reason, string(r.Stage), r.Amount, r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "transfer_outcomes_insert", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRecipient retrieves all records of a recipient, ordered by created_at ASC, token_type ASC.
func (s *TransferLogStore) GetByRecipient(ctx context.Context, recipient string) ([]*domain.TransferRecord, error) {
	query := `
		SELECT distribution_id, recipient, token_type, status, signature, reason, stage, amount, created_at
		FROM transfer_outcomes
		WHERE recipient = ?
		ORDER BY created_at ASC, token_type ASC
	`

	rows, err := s.conn.Query(ctx, query, recipient)
	if err != nil {
		return nil, fmt.Errorf("query by recipient: %w", err)
	}
	defer rows.Close()

	return scanTransferRecords(rows)
}

// GetByDistributionID retrieves the records of one distribution, ordered by token_type ASC.
func (s *TransferLogStore) GetByDistributionID(ctx context.Context, distributionID string) ([]*domain.TransferRecord, error) {
	query := `
		SELECT distribution_id, recipient, token_type, status, signature, reason, stage, amount, created_at
		FROM transfer_outcomes
		WHERE distribution_id = ?
		ORDER BY token_type ASC
	`

	rows, err := s.conn.Query(ctx, query, distributionID)
	if err != nil {
		return nil, fmt.Errorf("query by distribution id: %w", err)
	}
	defer rows.Close()

	return scanTransferRecords(rows)
}

// exists checks if a record with the given key exists.
func (s *TransferLogStore) exists(ctx context.Context, distributionID, tokenType string) (bool, error) {
	query := `
		SELECT count() FROM transfer_outcomes
		WHERE distribution_id = ? AND token_type = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, distributionID, tokenType).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanTransferRecords(rows driver.Rows) ([]*domain.TransferRecord, error) {
	var records []*domain.TransferRecord
	for rows.Next() {
		var (
			r      domain.TransferRecord
			status string
			stage  string
		)
		if err := rows.Scan(
			&r.DistributionID, &r.Recipient, &r.TokenType, &status, &r.Signature,
			&r.Reason, &stage, &r.Amount, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Status = domain.OutcomeStatus(status)
		r.Stage = domain.TransferStage(stage)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}
