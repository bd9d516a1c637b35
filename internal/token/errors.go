package token

import (
	"errors"
	"fmt"
)

// Engine errors. Precondition violations and arithmetic faults abort the
// whole operation with no side effects; none are retried internally.
var (
	// ErrNotInitialized is returned when an operation runs before Initialize.
	ErrNotInitialized = errors.New("token config not initialized")

	// ErrAlreadyInitialized is returned when Initialize runs twice.
	ErrAlreadyInitialized = errors.New("token config already initialized")

	// ErrBurnRateTooHigh is returned when the burn rate exceeds 10000 bp.
	ErrBurnRateTooHigh = errors.New("burn rate exceeds 10000 basis points")

	// ErrInvalidAddress is returned when an account identity is not a
	// well-formed 32-byte base58 address.
	ErrInvalidAddress = errors.New("invalid account address")

	// ErrVaultMismatch is returned when the caller-supplied burn vault does
	// not match the configured utility vault.
	ErrVaultMismatch = errors.New("burn vault does not match configured utility vault")

	// ErrAlreadyClaimed is returned when a stake's rebate was already claimed.
	ErrAlreadyClaimed = errors.New("energy rebate already claimed")

	// ErrStakingPeriodNotComplete is returned when a claim arrives before
	// the stake's lock matures.
	ErrStakingPeriodNotComplete = errors.New("staking period not complete")

	// ErrArithmetic is the base of all overflow/underflow faults. Checked
	// arithmetic fails here instead of wrapping or saturating.
	ErrArithmetic = errors.New("arithmetic fault")

	// ErrBurnExceedsAmount is returned when the computed burn would exceed
	// the payment amount. Reachable only with a legacy burn rate above
	// 10000 bp.
	ErrBurnExceedsAmount = fmt.Errorf("%w: burn exceeds payment amount", ErrArithmetic)

	// ErrBurnCounterOverflow is returned when accumulating a burn would
	// wrap the total_burned counter.
	ErrBurnCounterOverflow = fmt.Errorf("%w: total burned counter overflow", ErrArithmetic)
)

// errorType maps an error to a low-cardinality label for metrics.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrStakingPeriodNotComplete):
		return "period_not_complete"
	case errors.Is(err, ErrVaultMismatch):
		return "vault_mismatch"
	case errors.Is(err, ErrArithmetic):
		return "arithmetic"
	case errors.Is(err, ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, ErrInvalidAddress), errors.Is(err, ErrBurnRateTooHigh):
		return "invalid_input"
	default:
		return "transfer_or_storage"
	}
}
