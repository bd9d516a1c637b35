package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger"
)

// Ledger implements ledger.Adapter over the ledger_accounts table. Balances
// live in BIGINT columns, so amounts are bounded by the signed 64-bit range;
// a CHECK constraint keeps balances non-negative.
type Ledger struct {
	q    querier
	pool *Pool
}

// NewLedger creates a pool-bound ledger. Apply wraps each batch in its own
// transaction; inside Backend.InTx the ledger runs on the enclosing one.
func NewLedger(pool *Pool) *Ledger {
	return &Ledger{q: pool, pool: pool}
}

// Compile-time interface check.
var _ ledger.Adapter = (*Ledger)(nil)

// CreateAccount registers an account with a starting balance. Replaces any
// existing balance; intended for seeding, not transfers.
func (l *Ledger) CreateAccount(ctx context.Context, account domain.Address, balance uint64) error {
	if balance > math.MaxInt64 {
		return fmt.Errorf("balance %d exceeds bigint range", balance)
	}

	query := `
		INSERT INTO ledger_accounts (account, balance)
		VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET balance = EXCLUDED.balance
	`

	if _, err := l.q.Exec(ctx, query, account, int64(balance)); err != nil {
		return fmt.Errorf("create ledger account: %w", err)
	}
	return nil
}

// Apply executes all instructions as one atomic unit. When the ledger is
// pool-bound it opens its own transaction; otherwise the enclosing
// transaction provides atomicity.
func (l *Ledger) Apply(ctx context.Context, instrs []ledger.Instruction) error {
	if len(instrs) == 0 {
		return nil
	}

	if l.pool == nil {
		return applyInstructions(ctx, l.q, instrs)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := applyInstructions(ctx, tx, instrs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func applyInstructions(ctx context.Context, q querier, instrs []ledger.Instruction) error {
	debitQuery := `
		UPDATE ledger_accounts
		SET balance = balance - $2
		WHERE account = $1 AND balance >= $2
	`
	creditQuery := `
		UPDATE ledger_accounts
		SET balance = balance + $2
		WHERE account = $1
	`

	for _, in := range instrs {
		if in.Amount > math.MaxInt64 {
			return fmt.Errorf("amount %d exceeds bigint range", in.Amount)
		}
		amount := int64(in.Amount)

		tag, err := q.Exec(ctx, debitQuery, in.From, amount)
		if err != nil {
			return fmt.Errorf("debit %s: %w", in.From, err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_accounts WHERE account = $1)`, in.From).Scan(&exists); err != nil {
				return fmt.Errorf("check account exists: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: %s", ledger.ErrUnknownAccount, in.From)
			}
			return fmt.Errorf("%w: %s needs %d", ledger.ErrInsufficientFunds, in.From, in.Amount)
		}

		tag, err = q.Exec(ctx, creditQuery, in.To, amount)
		if err != nil {
			return fmt.Errorf("credit %s: %w", in.To, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ledger.ErrUnknownAccount, in.To)
		}
	}

	return nil
}

// Balance returns the current balance of an account.
func (l *Ledger) Balance(ctx context.Context, account domain.Address) (uint64, error) {
	var balance int64
	err := l.q.QueryRow(ctx, `SELECT balance FROM ledger_accounts WHERE account = $1`, account).Scan(&balance)
	if err != nil {
		if isNotFoundError(err) {
			return 0, fmt.Errorf("%w: %s", ledger.ErrUnknownAccount, account)
		}
		return 0, fmt.Errorf("get ledger balance: %w", err)
	}
	return uint64(balance), nil
}
