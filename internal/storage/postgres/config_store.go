package postgres

import (
	"context"
	"fmt"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage"
)

// ConfigStore implements storage.ConfigStore using PostgreSQL. The
// token_config table holds at most one row, pinned to id = 1.
type ConfigStore struct {
	q querier
}

// NewConfigStore creates a new ConfigStore over a pool.
func NewConfigStore(pool *Pool) *ConfigStore {
	return &ConfigStore{q: pool}
}

// Compile-time interface check.
var _ storage.ConfigStore = (*ConfigStore)(nil)

// Insert creates the singleton config at version 1. Returns ErrDuplicateKey
// if one exists.
func (s *ConfigStore) Insert(ctx context.Context, c *domain.TokenConfig) error {
	if c == nil || c.Authority == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_config (
			id, authority, mint, burn_rate_bp, total_burned,
			utility_vault, version, created_at
		) VALUES (1, $1, $2, $3, $4, $5, 1, $6)
	`

	_, err := s.q.Exec(ctx, query,
		c.Authority, c.Mint, int32(c.BurnRateBp), int64(c.TotalBurned),
		c.UtilityVault, c.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token config: %w", err)
	}
	return nil
}

// Get retrieves the config. Returns ErrNotFound if not initialized.
func (s *ConfigStore) Get(ctx context.Context) (*domain.TokenConfig, error) {
	query := `
		SELECT authority, mint, burn_rate_bp, total_burned,
		       utility_vault, version, created_at
		FROM token_config
		WHERE id = 1
	`

	var c domain.TokenConfig
	var burnRateBp int32
	var totalBurned int64

	err := s.q.QueryRow(ctx, query).Scan(
		&c.Authority, &c.Mint, &burnRateBp, &totalBurned,
		&c.UtilityVault, &c.Version, &c.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token config: %w", err)
	}

	c.BurnRateBp = uint16(burnRateBp)
	c.TotalBurned = uint64(totalBurned)
	return &c, nil
}

// SetTotalBurned writes a new burn accumulator value, guarded by the version
// the caller read. Returns ErrStaleVersion on a lost race.
func (s *ConfigStore) SetTotalBurned(ctx context.Context, total uint64, expectedVersion int64) error {
	query := `
		UPDATE token_config
		SET total_burned = $1, version = version + 1
		WHERE id = 1 AND version = $2
	`

	tag, err := s.q.Exec(ctx, query, int64(total), expectedVersion)
	if err != nil {
		return fmt.Errorf("update total burned: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM token_config WHERE id = 1)`).Scan(&exists); err != nil {
			return fmt.Errorf("check token config exists: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrStaleVersion
	}
	return nil
}
