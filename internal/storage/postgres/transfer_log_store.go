package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-auto-sender/internal/domain"
	"solana-auto-sender/internal/storage"
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

// Insert adds a transfer record. Returns ErrDuplicateKey if the signature exists.
func (s *TransferLogStore) Insert(ctx context.Context, r *domain.TransferRecord) error {
	query := `
		INSERT INTO transfers (
			signature, config_id, amount_sol, lamports,
			source_address, destination_address, confirmed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		r.Signature, r.ConfigID, r.AmountSOL, r.Lamports,
		r.Source, r.Destination, r.ConfirmedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// GetByConfigID retrieves all transfers for a configuration, ordered by
// confirmation time ASC.
func (s *TransferLogStore) GetByConfigID(ctx context.Context, configID string) ([]*domain.TransferRecord, error) {
	query := `
		SELECT signature, config_id, amount_sol, lamports,
		       source_address, destination_address, confirmed_at
		FROM transfers
		WHERE config_id = $1
		ORDER BY confirmed_at ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, configID)
	if err != nil {
		return nil, fmt.Errorf("get transfers by config id: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// GetByTimeRange retrieves transfers confirmed within [start, end] (inclusive).
func (s *TransferLogStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.TransferRecord, error) {
	query := `
		SELECT signature, config_id, amount_sol, lamports,
		       source_address, destination_address, confirmed_at
		FROM transfers
		WHERE confirmed_at >= $1 AND confirmed_at <= $2
		ORDER BY confirmed_at ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get transfers by time range: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// scanTransfers scans rows into a slice of TransferRecord.
func scanTransfers(rows pgx.Rows) ([]*domain.TransferRecord, error) {
	var transfers []*domain.TransferRecord

	for rows.Next() {
		var r domain.TransferRecord
		err := rows.Scan(
			&r.Signature, &r.ConfigID, &r.AmountSOL, &r.Lamports,
			&r.Source, &r.Destination, &r.ConfirmedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}
		transfers = append(transfers, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}

	return transfers, nil
}
