// Package ledger defines the instruction interface to the external
// balance-holding system. Engines build transfer instructions and trust the
// adapter for atomic execution; authorization is checked at the call boundary.
package ledger

import (
	"context"
	"errors"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
)

// Ledger errors surfaced by adapters.
var (
	// ErrInsufficientFunds is returned when a debit exceeds the account balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownAccount is returned when an instruction references an account
	// the ledger does not hold.
	ErrUnknownAccount = errors.New("unknown account")
)

// Instruction is one value movement. Amount zero is legal and moves nothing.
type Instruction struct {
	From   domain.Address
	To     domain.Address
	Amount uint64
}

// Adapter executes transfer instructions against the balance ledger.
type Adapter interface {
	// Apply executes all instructions as one atomic unit: either every
	// movement lands or none does. Returns the first failing instruction's
	// error with no partial effects.
	Apply(ctx context.Context, instrs []Instruction) error

	// Balance returns the current balance of an account.
	// Returns ErrUnknownAccount if the ledger does not hold it.
	Balance(ctx context.Context, account domain.Address) (uint64, error)
}
