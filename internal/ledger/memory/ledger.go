package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger"
)

// Ledger is an in-memory implementation of ledger.Adapter.
// Used by tests and by the service in -use-memory mode.
type Ledger struct {
	mu       sync.RWMutex
	balances map[domain.Address]uint64
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[domain.Address]uint64)}
}

// Compile-time interface check.
var _ ledger.Adapter = (*Ledger)(nil)

// CreateAccount registers an account with a starting balance.
// Replaces any existing balance; intended for seeding, not transfers.
func (l *Ledger) CreateAccount(account domain.Address, balance uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = balance
}

// Apply executes all instructions atomically: debits are validated against
// the post-state of earlier instructions in the same batch before any
// balance changes.
func (l *Ledger) Apply(_ context.Context, instrs []ledger.Instruction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Validate the whole batch against a scratch view first.
	scratch := make(map[domain.Address]uint64, len(instrs)*2)
	get := func(account domain.Address) (uint64, error) {
		if v, ok := scratch[account]; ok {
			return v, nil
		}
		v, ok := l.balances[account]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ledger.ErrUnknownAccount, account)
		}
		return v, nil
	}

	for _, in := range instrs {
		from, err := get(in.From)
		if err != nil {
			return err
		}
		if from < in.Amount {
			return fmt.Errorf("%w: %s has %d, needs %d", ledger.ErrInsufficientFunds, in.From, from, in.Amount)
		}
		scratch[in.From] = from - in.Amount

		// Read the credit side after the debit lands in scratch, so a
		// transfer with From == To nets out instead of double-counting.
		to, err := get(in.To)
		if err != nil {
			return err
		}
		if to > math.MaxUint64-in.Amount {
			return fmt.Errorf("credit of %d overflows balance of %s", in.Amount, in.To)
		}
		scratch[in.To] = to + in.Amount
	}

	for account, balance := range scratch {
		l.balances[account] = balance
	}
	return nil
}

// Balance returns the current balance of an account.
func (l *Ledger) Balance(_ context.Context, account domain.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	v, ok := l.balances[account]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ledger.ErrUnknownAccount, account)
	}
	return v, nil
}

// Snapshot returns a copy of all balances. Used by the in-memory storage
// backend for transactional rollback.
func (l *Ledger) Snapshot() map[domain.Address]uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[domain.Address]uint64, len(l.balances))
	for k, v := range l.balances {
		out[k] = v
	}
	return out
}

// Restore replaces all balances with a previously taken snapshot.
func (l *Ledger) Restore(snap map[domain.Address]uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = snap
}
