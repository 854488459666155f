package storage

import (
	"context"
	"time"

	"solana-auto-sender/internal/domain"
)

// ConfigStore provides access to auto-sender configuration storage.
// Secrets are never stored; configurations restored from a backend come
// back without signing capability.
type ConfigStore interface {
	// Insert adds a new configuration. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, c *domain.AutoSenderConfig) error

	// Update overwrites an existing configuration. Returns ErrNotFound if absent.
	Update(ctx context.Context, c *domain.AutoSenderConfig) error

	// Delete removes a configuration. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// GetByID retrieves a configuration by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*domain.AutoSenderConfig, error)

	// List retrieves all configurations ordered by creation time ASC.
	List(ctx context.Context) ([]*domain.AutoSenderConfig, error)
}

// TransferLogStore records confirmed transfers. Append-only.
type TransferLogStore interface {
	// Insert adds a transfer record. Returns ErrDuplicateKey if the
	// signature already exists.
	Insert(ctx context.Context, r *domain.TransferRecord) error

	// GetByConfigID retrieves all transfers for a configuration, ordered
	// by confirmation time ASC.
	GetByConfigID(ctx context.Context, configID string) ([]*domain.TransferRecord, error)

	// GetByTimeRange retrieves transfers confirmed within [start, end].
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.TransferRecord, error)
}

// EvaluationLogStore records per-tick evaluation outcomes for analysis.
// Append-only, high volume; backed by ClickHouse in production.
type EvaluationLogStore interface {
	// Insert adds a single evaluation record.
	Insert(ctx context.Context, r *domain.EvaluationRecord) error

	// InsertBulk adds multiple evaluation records.
	InsertBulk(ctx context.Context, records []*domain.EvaluationRecord) error

	// GetByConfigID retrieves evaluations for a configuration within
	// [start, end], ordered by evaluation time ASC.
	GetByConfigID(ctx context.Context, configID string, start, end time.Time) ([]*domain.EvaluationRecord, error)

	// CountByOutcome returns evaluation counts per outcome within [start, end].
	CountByOutcome(ctx context.Context, start, end time.Time) (map[domain.EvaluationOutcome]uint64, error)
}
