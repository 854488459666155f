package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-auto-sender/internal/domain"
	"solana-auto-sender/internal/storage"
)

// ConfigStore implements storage.ConfigStore using PostgreSQL.
type ConfigStore struct {
	pool *Pool
}

// NewConfigStore creates a new ConfigStore.
func NewConfigStore(pool *Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ConfigStore = (*ConfigStore)(nil)

const configColumns = `
	config_id, name, source_address, destination_address, reserve_amount,
	is_active, deactivated_reason,
	last_checked_at, last_transfer_at, total_transferred, transfer_count,
	created_at
`

// Insert adds a new configuration. Returns ErrDuplicateKey if the ID exists.
func (s *ConfigStore) Insert(ctx context.Context, c *domain.AutoSenderConfig) error {
	query := `
		INSERT INTO auto_sender_configs (` + configColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		c.ID, c.Name, c.SourceAddress, c.DestinationAddress, c.ReserveAmount,
		c.IsActive, c.DeactivatedReason,
		c.LastCheckedAt, c.LastTransferAt, c.TotalTransferred, c.TransferCount,
		c.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert config: %w", err)
	}
	return nil
}

// Update overwrites an existing configuration. Returns ErrNotFound if absent.
func (s *ConfigStore) Update(ctx context.Context, c *domain.AutoSenderConfig) error {
	query := `
		UPDATE auto_sender_configs SET
			name = $2,
			source_address = $3,
			destination_address = $4,
			reserve_amount = $5,
			is_active = $6,
			deactivated_reason = $7,
			last_checked_at = $8,
			last_transfer_at = $9,
			total_transferred = $10,
			transfer_count = $11,
			created_at = $12
		WHERE config_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		c.ID, c.Name, c.SourceAddress, c.DestinationAddress, c.ReserveAmount,
		c.IsActive, c.DeactivatedReason,
		c.LastCheckedAt, c.LastTransferAt, c.TotalTransferred, c.TransferCount,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("update config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a configuration. Returns ErrNotFound if absent.
func (s *ConfigStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM auto_sender_configs WHERE config_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a configuration by ID. Returns ErrNotFound if absent.
func (s *ConfigStore) GetByID(ctx context.Context, id string) (*domain.AutoSenderConfig, error) {
	query := `SELECT ` + configColumns + ` FROM auto_sender_configs WHERE config_id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	c, err := scanConfig(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get config by id: %w", err)
	}
	return c, nil
}

// List retrieves all configurations ordered by creation time ASC.
func (s *ConfigStore) List(ctx context.Context) ([]*domain.AutoSenderConfig, error) {
	query := `
		SELECT ` + configColumns + `
		FROM auto_sender_configs
		ORDER BY created_at ASC, config_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	defer rows.Close()

	var configs []*domain.AutoSenderConfig
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan config row: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config rows: %w", err)
	}

	return configs, nil
}

// scanConfig scans a single row into an AutoSenderConfig.
func scanConfig(row pgx.Row) (*domain.AutoSenderConfig, error) {
	var c domain.AutoSenderConfig

	err := row.Scan(
		&c.ID, &c.Name, &c.SourceAddress, &c.DestinationAddress, &c.ReserveAmount,
		&c.IsActive, &c.DeactivatedReason,
		&c.LastCheckedAt, &c.LastTransferAt, &c.TotalTransferred, &c.TransferCount,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &c, nil
}
