package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/storage"
)

// TransferLogStore implements storage.TransferLogStore using PostgreSQL.
type TransferLogStore struct {
	pool *Pool
}

// NewTransferLogStore creates a new TransferLogStore.
func NewTransferLogStore(pool *Pool) *TransferLogStore {
	return &TransferLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferLogStore = (*TransferLogStore)(nil)

const transferLogColumns = `
	distribution_id, recipient, token_type, status, signature,
	reason, stage, amount, created_at`

// InsertBulk adds the records of one distribution atomically. Fails entire batch on any duplicate.
func (s *TransferLogStore) InsertBulk(ctx context.Context, records []*domain.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO transfer_log (` + transferLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, r := range records {
		if r == nil || r.DistributionID == "" || r.TokenType == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			r.DistributionID, r.Recipient, r.TokenType, string(r.Status), r.Signature,
			r.Reason, string(r.Stage), int64(r.Amount), r.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert transfer record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRecipient retrieves all records of a recipient.
func (s *TransferLogStore) GetByRecipient(ctx context.Context, recipient string) ([]*domain.TransferRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+transferLogColumns+`
		FROM transfer_log
		WHERE recipient = $1
		ORDER BY created_at ASC, token_type ASC
	`, recipient)
	if err != nil {
		return nil, fmt.Errorf("query transfer log by recipient: %w", err)
	}
	return collectTransferRecords(rows)
}

// GetByDistributionID retrieves the records of one distribution.
func (s *TransferLogStore) GetByDistributionID(ctx context.Context, distributionID string) ([]*domain.TransferRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+transferLogColumns+`
		FROM transfer_log
		WHERE distribution_id = $1
		ORDER BY token_type ASC
	`, distributionID)
	if err != nil {
		return nil, fmt.Errorf("query transfer log by distribution: %w", err)
	}
	return collectTransferRecords(rows)
}

func collectTransferRecords(rows pgx.Rows) ([]*domain.TransferRecord, error) {
	defer rows.Close()

	var records []*domain.TransferRecord
	for rows.Next() {
		var (
			r      domain.TransferRecord
			status string
			stage  string
			amount int64
		)
		if err := rows.Scan(
			&r.DistributionID, &r.Recipient, &r.TokenType, &status, &r.Signature,
			&r.Reason, &stage, &amount, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transfer record: %w", err)
		}
		r.Status = domain.OutcomeStatus(status)
		r.Stage = domain.TransferStage(stage)
		r.Amount = uint64(amount)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer records: %w", err)
	}
	return records, nil
}
