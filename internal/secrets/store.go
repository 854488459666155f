// Package secrets holds signing keys in memory with a bounded lifetime.
// Keys are never persisted and never logged; a restart loses them, which is
// why restored configurations come back inactive until re-armed.
package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is how long an unused key stays resident.
const DefaultTTL = 5 * time.Minute

// DefaultSweepInterval is how often expired entries are reaped.
const DefaultSweepInterval = 30 * time.Second

type entry struct {
	key       []byte
	expiresAt time.Time
}

// Store is an in-memory key store with per-entry expiry. Get refreshes the
// deadline, so keys in active use never expire; idle keys are zeroed and
// dropped by the sweep.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewStore creates a store with the given TTL; ttl <= 0 uses DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores a copy of key under id, replacing and zeroing any previous key.
func (s *Store) Put(id string, key []byte) {
	cp := make([]byte, len(key))
	copy(cp, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[id]; ok {
		zero(old.key)
	}
	s.entries[id] = &entry{key: cp, expiresAt: s.now().Add(s.ttl)}
}

// Get returns a copy of the key for id and refreshes its expiry.
func (s *Store) Get(id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("no key held for %s", id)
	}
	if s.now().After(e.expiresAt) {
		zero(e.key)
		delete(s.entries, id)
		return nil, fmt.Errorf("key for %s expired", id)
	}

	e.expiresAt = s.now().Add(s.ttl)
	cp := make([]byte, len(e.key))
	copy(cp, e.key)
	return cp, nil
}

// Has reports whether an unexpired key is held for id.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return ok && !s.now().After(e.expiresAt)
}

// Delete zeroes and removes the key for id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		zero(e.key)
		delete(s.entries, id)
	}
}

// Len returns the number of resident entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep zeroes and removes all expired entries, returning how many were
// dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			zero(e.key)
			delete(s.entries, id)
			dropped++
		}
	}
	return dropped
}

// Run sweeps periodically until ctx is cancelled, then zeroes everything.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Clear()
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Clear zeroes and removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		zero(e.key)
		delete(s.entries, id)
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
