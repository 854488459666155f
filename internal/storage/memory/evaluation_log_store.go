package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-auto-sender/internal/domain"
	"solana-auto-sender/internal/storage"
)

// EvaluationLogStore is an in-memory implementation of
// storage.EvaluationLogStore. Append-only; rows are never keyed, a config
// can be evaluated many times per second.
type EvaluationLogStore struct {
	mu   sync.RWMutex
	data []*domain.EvaluationRecord
}

// NewEvaluationLogStore creates a new in-memory evaluation log store.
func NewEvaluationLogStore() *EvaluationLogStore {
	return &EvaluationLogStore{}
}

// Insert adds a single evaluation record.
func (s *EvaluationLogStore) Insert(_ context.Context, r *domain.EvaluationRecord) error {
	if r == nil || r.ConfigID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	s.data = append(s.data, &cp)
	return nil
}

// InsertBulk adds multiple evaluation records.
func (s *EvaluationLogStore) InsertBulk(_ context.Context, records []*domain.EvaluationRecord) error {
	if len(records) == 0 {
		return nil
	}

	for _, r := range records {
		if r == nil || r.ConfigID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		cp := *r
		s.data = append(s.data, &cp)
	}
	return nil
}

// GetByConfigID retrieves evaluations for a configuration within [start, end]
// (inclusive), ordered by evaluation time ASC.
func (s *EvaluationLogStore) GetByConfigID(_ context.Context, configID string, start, end time.Time) ([]*domain.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EvaluationRecord
	for _, r := range s.data {
		if r.ConfigID != configID {
			continue
		}
		if r.EvaluatedAt.Before(start) || r.EvaluatedAt.After(end) {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EvaluatedAt.Before(result[j].EvaluatedAt)
	})

	return result, nil
}

// CountByOutcome returns evaluation counts per outcome within [start, end].
func (s *EvaluationLogStore) CountByOutcome(_ context.Context, start, end time.Time) (map[domain.EvaluationOutcome]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.EvaluationOutcome]uint64)
	for _, r := range s.data {
		if r.EvaluatedAt.Before(start) || r.EvaluatedAt.After(end) {
			continue
		}
		counts[r.Outcome]++
	}

	return counts, nil
}

var _ storage.EvaluationLogStore = (*EvaluationLogStore)(nil)
