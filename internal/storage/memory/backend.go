package memory

import (
	"context"
	"sync"

	ledgermem "github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger/memory"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage"
)

// Backend bundles the in-memory stores and ledger into a storage.TxRunner.
// Transactions serialize under one mutex; rollback restores a snapshot taken
// on entry, so a failed operation leaves no partial effects (matching the
// all-or-nothing behavior of the PostgreSQL backend).
type Backend struct {
	txMu    sync.Mutex
	configs *ConfigStore
	stakes  *StakeStore
	ledger  *ledgermem.Ledger
}

// NewBackend creates a backend around fresh stores and the given ledger.
func NewBackend(l *ledgermem.Ledger) *Backend {
	return &Backend{
		configs: NewConfigStore(),
		stakes:  NewStakeStore(),
		ledger:  l,
	}
}

// Compile-time interface checks.
var (
	_ storage.TxRunner = (*Backend)(nil)
	_ storage.Stores   = (*Backend)(nil)
)

// Configs returns the config store.
func (b *Backend) Configs() storage.ConfigStore { return b.configs }

// Stakes returns the stake store.
func (b *Backend) Stakes() storage.StakeStore { return b.stakes }

// Ledger returns the balance ledger.
func (b *Backend) Ledger() ledger.Adapter { return b.ledger }

// InTx runs fn atomically: on error every store and ledger mutation made
// inside fn is rolled back.
func (b *Backend) InTx(_ context.Context, fn func(s storage.Stores) error) error {
	b.txMu.Lock()
	defer b.txMu.Unlock()

	configSnap := b.configs.snapshot()
	stakeSnap := b.stakes.snapshot()
	ledgerSnap := b.ledger.Snapshot()

	if err := fn(b); err != nil {
		b.configs.restore(configSnap)
		b.stakes.restore(stakeSnap)
		b.ledger.Restore(ledgerSnap)
		return err
	}
	return nil
}
