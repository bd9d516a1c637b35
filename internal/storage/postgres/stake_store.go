package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage"
)

// StakeStore implements storage.StakeStore using PostgreSQL.
type StakeStore struct {
	q querier
}

// NewStakeStore creates a new StakeStore over a pool.
func NewStakeStore(pool *Pool) *StakeStore {
	return &StakeStore{q: pool}
}

// Compile-time interface check.
var _ storage.StakeStore = (*StakeStore)(nil)

// Insert adds a new stake at version 1. Returns ErrDuplicateKey if stake_id
// exists.
func (s *StakeStore) Insert(ctx context.Context, st *domain.StakeAccount) error {
	if st == nil || st.StakeID == "" || st.Owner == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO stake_accounts (
			stake_id, owner, amount, start_time, duration,
			claimed, version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
	`

	_, err := s.q.Exec(ctx, query,
		st.StakeID, st.Owner, int64(st.Amount), st.StartTime, st.Duration,
		st.Claimed, st.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert stake account: %w", err)
	}
	return nil
}

// GetByID retrieves a stake by its ID. Returns ErrNotFound if not exists.
func (s *StakeStore) GetByID(ctx context.Context, stakeID string) (*domain.StakeAccount, error) {
	query := `
		SELECT stake_id, owner, amount, start_time, duration,
		       claimed, version, created_at
		FROM stake_accounts
		WHERE stake_id = $1
	`

	row := s.q.QueryRow(ctx, query, stakeID)
	st, err := scanStakeAccount(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get stake account by id: %w", err)
	}
	return st, nil
}

// ListByOwner retrieves all stakes for an owner, oldest first.
func (s *StakeStore) ListByOwner(ctx context.Context, owner domain.Address) ([]*domain.StakeAccount, error) {
	query := `
		SELECT stake_id, owner, amount, start_time, duration,
		       claimed, version, created_at
		FROM stake_accounts
		WHERE owner = $1
		ORDER BY start_time ASC, stake_id ASC
	`

	rows, err := s.q.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list stake accounts by owner: %w", err)
	}
	defer rows.Close()

	var stakes []*domain.StakeAccount
	for rows.Next() {
		st, err := scanStakeAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stake account row: %w", err)
		}
		stakes = append(stakes, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stake account rows: %w", err)
	}

	return stakes, nil
}

// MarkClaimed flips claimed to true, guarded by the version the caller read.
// Returns ErrStaleVersion on a lost race and ErrNotFound if the stake does
// not exist.
func (s *StakeStore) MarkClaimed(ctx context.Context, stakeID string, expectedVersion int64) error {
	query := `
		UPDATE stake_accounts
		SET claimed = TRUE, version = version + 1
		WHERE stake_id = $1 AND version = $2
	`

	tag, err := s.q.Exec(ctx, query, stakeID, expectedVersion)
	if err != nil {
		return fmt.Errorf("mark stake claimed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stake_accounts WHERE stake_id = $1)`, stakeID).Scan(&exists); err != nil {
			return fmt.Errorf("check stake exists: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrStaleVersion
	}
	return nil
}

// scanStakeAccount scans a single row into a StakeAccount.
func scanStakeAccount(row pgx.Row) (*domain.StakeAccount, error) {
	var st domain.StakeAccount
	var amount int64

	err := row.Scan(
		&st.StakeID, &st.Owner, &amount, &st.StartTime, &st.Duration,
		&st.Claimed, &st.Version, &st.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	st.Amount = uint64(amount)
	return &st, nil
}
