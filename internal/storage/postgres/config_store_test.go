package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage"
)

func testConfig() *domain.TokenConfig {
	return &domain.TokenConfig{
		Authority:    "authority",
		Mint:         "mint",
		BurnRateBp:   15,
		UtilityVault: "vault",
		CreatedAt:    1_700_000_000,
	}
}

func TestConfigStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewConfigStore(pool)
	ctx := context.Background()

	_, err := s.Get(ctx)
	require.ErrorIs(t, err, storage.ErrNotFound, "expected ErrNotFound before init")

	require.NoError(t, s.Insert(ctx, testConfig()))

	got, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "authority", got.Authority)
	require.Equal(t, "mint", got.Mint)
	require.Equal(t, uint16(15), got.BurnRateBp)
	require.Equal(t, uint64(0), got.TotalBurned)
	require.Equal(t, "vault", got.UtilityVault)
	require.Equal(t, int64(1), got.Version)

	err = s.Insert(ctx, testConfig())
	require.ErrorIs(t, err, storage.ErrDuplicateKey, "singleton must reject a second insert")
}

func TestConfigStore_Insert_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewConfigStore(pool)
	ctx := context.Background()

	require.ErrorIs(t, s.Insert(ctx, nil), storage.ErrInvalidInput)
	require.ErrorIs(t, s.Insert(ctx, &domain.TokenConfig{}), storage.ErrInvalidInput)
}

func TestConfigStore_SetTotalBurned(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewConfigStore(pool)
	ctx := context.Background()

	err := s.SetTotalBurned(ctx, 100, 1)
	require.ErrorIs(t, err, storage.ErrNotFound, "expected ErrNotFound before init")

	require.NoError(t, s.Insert(ctx, testConfig()))

	require.NoError(t, s.SetTotalBurned(ctx, 100, 1))

	got, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(100), got.TotalBurned)
	require.Equal(t, int64(2), got.Version)

	// Stale writer loses.
	err = s.SetTotalBurned(ctx, 200, 1)
	require.ErrorIs(t, err, storage.ErrStaleVersion)

	got, err = s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(100), got.TotalBurned, "stale write must not apply")
}
