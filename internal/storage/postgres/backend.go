package postgres

import (
	"context"
	"fmt"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage"
)

// Backend bundles the PostgreSQL stores behind the storage.TxRunner and
// storage.Stores interfaces. Reads outside InTx run straight on the pool;
// InTx hands the callback a view bound to one pgx transaction, so every
// store write and ledger movement inside it commits or rolls back together.
type Backend struct {
	pool    *Pool
	configs *ConfigStore
	stakes  *StakeStore
	ledger  *Ledger

	// external, when set, replaces the row-backed ledger with an adapter
	// that carries its own atomicity (the Solana adapter packs a whole
	// batch into one transaction). Store rows still commit in the pgx
	// transaction; the external ledger's effects do not roll back with it.
	external ledger.Adapter
}

// NewBackend creates a backend over an established pool. Balances live in
// the ledger_accounts table.
func NewBackend(pool *Pool) *Backend {
	return &Backend{
		pool:    pool,
		configs: NewConfigStore(pool),
		stakes:  NewStakeStore(pool),
		ledger:  NewLedger(pool),
	}
}

// NewBackendWithLedger creates a backend whose balances live behind an
// external custody adapter instead of the ledger_accounts table.
func NewBackendWithLedger(pool *Pool, external ledger.Adapter) *Backend {
	b := NewBackend(pool)
	b.external = external
	return b
}

// Compile-time interface checks.
var (
	_ storage.TxRunner = (*Backend)(nil)
	_ storage.Stores   = (*Backend)(nil)
)

func (b *Backend) Configs() storage.ConfigStore { return b.configs }
func (b *Backend) Stakes() storage.StakeStore   { return b.stakes }

func (b *Backend) Ledger() ledger.Adapter {
	if b.external != nil {
		return b.external
	}
	return b.ledger
}

// CreateAccount seeds a ledger account, for provisioning and tests.
func (b *Backend) CreateAccount(ctx context.Context, account string, balance uint64) error {
	return b.ledger.CreateAccount(ctx, account, balance)
}

// InTx runs fn against transaction-bound stores. Any error rolls the whole
// transaction back.
func (b *Backend) InTx(ctx context.Context, fn func(s storage.Stores) error) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	view := &txStores{
		configs: &ConfigStore{q: tx},
		stakes:  &StakeStore{q: tx},
	}
	if b.external != nil {
		view.ledger = b.external
	} else {
		view.ledger = &Ledger{q: tx}
	}

	if err := fn(view); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// txStores is the transaction-bound view handed to InTx callbacks.
type txStores struct {
	configs *ConfigStore
	stakes  *StakeStore
	ledger  ledger.Adapter
}

var _ storage.Stores = (*txStores)(nil)

func (s *txStores) Configs() storage.ConfigStore { return s.configs }
func (s *txStores) Stakes() storage.StakeStore   { return s.stakes }
func (s *txStores) Ledger() ledger.Adapter       { return s.ledger }
