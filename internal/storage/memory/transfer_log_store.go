package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-auto-sender/internal/domain"
	"solana-auto-sender/internal/storage"
)

// TransferLogStore is an in-memory implementation of storage.TransferLogStore.
type TransferLogStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransferRecord // keyed by signature
}

// NewTransferLogStore creates a new in-memory transfer log store.
func NewTransferLogStore() *TransferLogStore {
	return &TransferLogStore{
		data: make(map[string]*domain.TransferRecord),
	}
}

// Insert adds a transfer record. Returns ErrDuplicateKey if the signature exists.
func (s *TransferLogStore) Insert(_ context.Context, r *domain.TransferRecord) error {
	if r == nil || r.Signature == "" || r.ConfigID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *r
	s.data[r.Signature] = &cp
	return nil
}

// GetByConfigID retrieves all transfers for a configuration, ordered by
// confirmation time ASC.
func (s *TransferLogStore) GetByConfigID(_ context.Context, configID string) ([]*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferRecord
	for _, r := range s.data {
		if r.ConfigID == configID {
			cp := *r
			result = append(result, &cp)
		}
	}

	sortByConfirmedAt(result)
	return result, nil
}

// GetByTimeRange retrieves transfers confirmed within [start, end] (inclusive).
func (s *TransferLogStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferRecord
	for _, r := range s.data {
		if !r.ConfirmedAt.Before(start) && !r.ConfirmedAt.After(end) {
			cp := *r
			result = append(result, &cp)
		}
	}

	sortByConfirmedAt(result)
	return result, nil
}

func sortByConfirmedAt(records []*domain.TransferRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].ConfirmedAt.Before(records[j].ConfirmedAt)
	})
}

var _ storage.TransferLogStore = (*TransferLogStore)(nil)
