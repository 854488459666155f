package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-auto-sender/internal/domain"
	"solana-auto-sender/internal/storage"
)

// EvaluationLogStore implements storage.EvaluationLogStore using ClickHouse.
// The evaluation log is a pure append table: one row per config per tick is
// a few hundred thousand rows a day per wallet, which is what MergeTree is
// for. No uniqueness is enforced.
type EvaluationLogStore struct {
	conn *Conn
}

// NewEvaluationLogStore creates a new EvaluationLogStore.
func NewEvaluationLogStore(conn *Conn) *EvaluationLogStore {
	return &EvaluationLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EvaluationLogStore = (*EvaluationLogStore)(nil)

// Insert adds a single evaluation record.
func (s *EvaluationLogStore) Insert(ctx context.Context, r *domain.EvaluationRecord) error {
	if r == nil || r.ConfigID == "" {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, []*domain.EvaluationRecord{r})
}

// InsertBulk adds multiple evaluation records in one batch.
func (s *EvaluationLogStore) InsertBulk(ctx context.Context, records []*domain.EvaluationRecord) error {
	if len(records) == 0 {
		return nil
	}

	for _, r := range records {
		if r == nil || r.ConfigID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO evaluation_log (
			config_id, outcome, reason, balance_sol, amount_sol, signature, evaluated_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.ConfigID, string(r.Outcome), r.Reason,
			r.BalanceSOL, r.AmountSOL, r.Signature, r.EvaluatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByConfigID retrieves evaluations for a configuration within [start, end]
// (inclusive), ordered by evaluation time ASC.
func (s *EvaluationLogStore) GetByConfigID(ctx context.Context, configID string, start, end time.Time) ([]*domain.EvaluationRecord, error) {
	query := `
		SELECT config_id, outcome, reason, balance_sol, amount_sol, signature, evaluated_at
		FROM evaluation_log
		WHERE config_id = ? AND evaluated_at >= ? AND evaluated_at <= ?
		ORDER BY evaluated_at ASC
	`

	rows, err := s.conn.Query(ctx, query, configID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by config id: %w", err)
	}
	defer rows.Close()

	return scanEvaluations(rows)
}

// CountByOutcome returns evaluation counts per outcome within [start, end].
func (s *EvaluationLogStore) CountByOutcome(ctx context.Context, start, end time.Time) (map[domain.EvaluationOutcome]uint64, error) {
	query := `
		SELECT outcome, count(*)
		FROM evaluation_log
		WHERE evaluated_at >= ? AND evaluated_at <= ?
		GROUP BY outcome
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query counts by outcome: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.EvaluationOutcome]uint64)
	for rows.Next() {
		var outcome string
		var count uint64
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan outcome count row: %w", err)
		}
		counts[domain.EvaluationOutcome(outcome)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome count rows: %w", err)
	}

	return counts, nil
}

// scanEvaluations scans rows into a slice of EvaluationRecord.
func scanEvaluations(rows chRows) ([]*domain.EvaluationRecord, error) {
	var records []*domain.EvaluationRecord

	for rows.Next() {
		var r domain.EvaluationRecord
		var outcome string

		err := rows.Scan(
			&r.ConfigID, &outcome, &r.Reason,
			&r.BalanceSOL, &r.AmountSOL, &r.Signature, &r.EvaluatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation row: %w", err)
		}

		r.Outcome = domain.EvaluationOutcome(outcome)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluation rows: %w", err)
	}

	return records, nil
}
