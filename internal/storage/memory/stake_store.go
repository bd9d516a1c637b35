package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage"
)

// StakeStore is an in-memory implementation of storage.StakeStore.
type StakeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StakeAccount // keyed by stake_id
}

// NewStakeStore creates a new in-memory stake store.
func NewStakeStore() *StakeStore {
	return &StakeStore{
		data: make(map[string]*domain.StakeAccount),
	}
}

// Compile-time interface check.
var _ storage.StakeStore = (*StakeStore)(nil)

// Insert adds a new stake. Returns ErrDuplicateKey if stake_id exists.
func (s *StakeStore) Insert(_ context.Context, stake *domain.StakeAccount) error {
	if stake == nil || stake.StakeID == "" || stake.Owner == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[stake.StakeID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	stakeCopy := *stake
	stakeCopy.Version = 1
	s.data[stake.StakeID] = &stakeCopy
	return nil
}

// GetByID retrieves a stake by its ID. Returns ErrNotFound if not exists.
func (s *StakeStore) GetByID(_ context.Context, stakeID string) (*domain.StakeAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stake, exists := s.data[stakeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	stakeCopy := *stake
	return &stakeCopy, nil
}

// ListByOwner retrieves all stakes for an owner, ordered by start_time ASC.
func (s *StakeStore) ListByOwner(_ context.Context, owner domain.Address) ([]*domain.StakeAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StakeAccount
	for _, stake := range s.data {
		if stake.Owner == owner {
			stakeCopy := *stake
			result = append(result, &stakeCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTime != result[j].StartTime {
			return result[i].StartTime < result[j].StartTime
		}
		return result[i].StakeID < result[j].StakeID
	})

	return result, nil
}

// MarkClaimed flips claimed to true, guarded by version.
func (s *StakeStore) MarkClaimed(_ context.Context, stakeID string, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stake, exists := s.data[stakeID]
	if !exists {
		return storage.ErrNotFound
	}
	if stake.Version != expectedVersion {
		return storage.ErrStaleVersion
	}

	stake.Claimed = true
	stake.Version++
	return nil
}

// snapshot returns a copy of all stakes for transactional rollback.
func (s *StakeStore) snapshot() map[string]*domain.StakeAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.StakeAccount, len(s.data))
	for k, v := range s.data {
		stakeCopy := *v
		out[k] = &stakeCopy
	}
	return out
}

// restore replaces all stakes with a previously taken snapshot.
func (s *StakeStore) restore(snap map[string]*domain.StakeAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = snap
}
