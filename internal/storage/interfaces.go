package storage

import (
	"context"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger"
)

// ConfigStore provides access to the singleton token_config record.
type ConfigStore interface {
	// Insert creates the config. Returns ErrDuplicateKey if one exists.
	Insert(ctx context.Context, c *domain.TokenConfig) error

	// Get retrieves the config. Returns ErrNotFound if not initialized.
	Get(ctx context.Context) (*domain.TokenConfig, error)

	// SetTotalBurned writes a new burn accumulator value, guarded by the
	// version the caller read. Returns ErrStaleVersion on a lost race.
	SetTotalBurned(ctx context.Context, total uint64, expectedVersion int64) error
}

// StakeStore provides access to stake_accounts storage.
type StakeStore interface {
	// Insert adds a new stake. Returns ErrDuplicateKey if stake_id exists.
	Insert(ctx context.Context, s *domain.StakeAccount) error

	// GetByID retrieves a stake by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, stakeID string) (*domain.StakeAccount, error)

	// ListByOwner retrieves all stakes for an owner, ordered by start_time ASC.
	ListByOwner(ctx context.Context, owner domain.Address) ([]*domain.StakeAccount, error)

	// MarkClaimed flips claimed to true, guarded by the version the caller
	// read. Returns ErrStaleVersion on a lost race and ErrNotFound if the
	// stake does not exist. The flag never flips back.
	MarkClaimed(ctx context.Context, stakeID string, expectedVersion int64) error
}

// Stores is the transactional view handed to engine callbacks. All access
// through one Stores value shares one atomic unit.
type Stores interface {
	Configs() ConfigStore
	Stakes() StakeStore
	Ledger() ledger.Adapter
}

// TxRunner executes an engine operation as a single atomic transaction:
// either every store and ledger effect inside fn commits, or none do.
type TxRunner interface {
	InTx(ctx context.Context, fn func(s Stores) error) error
}
