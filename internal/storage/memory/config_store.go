package memory

import (
	"context"
	"sync"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage"
)

// ConfigStore is an in-memory implementation of storage.ConfigStore.
type ConfigStore struct {
	mu     sync.RWMutex
	config *domain.TokenConfig
}

// NewConfigStore creates a new in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{}
}

// Compile-time interface check.
var _ storage.ConfigStore = (*ConfigStore)(nil)

// Insert creates the config. Returns ErrDuplicateKey if one exists.
func (s *ConfigStore) Insert(_ context.Context, c *domain.TokenConfig) error {
	if c == nil || c.Authority == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config != nil {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	configCopy := *c
	configCopy.Version = 1
	s.config = &configCopy
	return nil
}

// Get retrieves the config. Returns ErrNotFound if not initialized.
func (s *ConfigStore) Get(_ context.Context) (*domain.TokenConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil, storage.ErrNotFound
	}

	configCopy := *s.config
	return &configCopy, nil
}

// SetTotalBurned writes a new burn accumulator value, guarded by version.
func (s *ConfigStore) SetTotalBurned(_ context.Context, total uint64, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil {
		return storage.ErrNotFound
	}
	if s.config.Version != expectedVersion {
		return storage.ErrStaleVersion
	}

	s.config.TotalBurned = total
	s.config.Version++
	return nil
}

// snapshot returns a copy of the config record for transactional rollback.
func (s *ConfigStore) snapshot() *domain.TokenConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil
	}
	configCopy := *s.config
	return &configCopy
}

// restore replaces the config record with a previously taken snapshot.
func (s *ConfigStore) restore(snap *domain.TokenConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = snap
}
