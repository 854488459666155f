package memory

import (
	"context"
	"sort"
	"sync"

	"solana-auto-sender/internal/domain"
	"solana-auto-sender/internal/storage"
)

// ConfigStore is an in-memory implementation of storage.ConfigStore.
type ConfigStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AutoSenderConfig // keyed by config ID
}

// NewConfigStore creates a new in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		data: make(map[string]*domain.AutoSenderConfig),
	}
}

// Insert adds a new configuration. Returns ErrDuplicateKey if the ID exists.
func (s *ConfigStore) Insert(_ context.Context, c *domain.AutoSenderConfig) error {
	if c == nil || c.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[c.ID] = c.Clone()
	return nil
}

// Update overwrites an existing configuration. Returns ErrNotFound if absent.
func (s *ConfigStore) Update(_ context.Context, c *domain.AutoSenderConfig) error {
	if c == nil || c.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.ID]; !exists {
		return storage.ErrNotFound
	}

	s.data[c.ID] = c.Clone()
	return nil
}

// Delete removes a configuration. Returns ErrNotFound if absent.
func (s *ConfigStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}

	delete(s.data, id)
	return nil
}

// GetByID retrieves a configuration by ID. Returns ErrNotFound if absent.
func (s *ConfigStore) GetByID(_ context.Context, id string) (*domain.AutoSenderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return c.Clone(), nil
}

// List retrieves all configurations ordered by creation time ASC.
func (s *ConfigStore) List(_ context.Context) ([]*domain.AutoSenderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.AutoSenderConfig, 0, len(s.data))
	for _, c := range s.data {
		result = append(result, c.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

var _ storage.ConfigStore = (*ConfigStore)(nil)
