// Package token implements the token-economy engines: fee-bearing task
// payments, time-locked stakes, and capped energy rebates. Engines issue
// transfer instructions to the ledger adapter and run every multi-step
// operation as one atomic transaction through the storage backend.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/events"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/observability"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage"
)

// Rebate parameters of the original deployment.
const (
	// DefaultRebatePerKwh is the rebate in minor units per kWh consumed:
	// 0.1 token at 6-decimal precision.
	DefaultRebatePerKwh = 100_000

	// maxRebateDivisor caps the rebate at stake amount / 10.
	maxRebateDivisor = 10
)

// Backend is the storage surface the engines run against.
type Backend interface {
	storage.TxRunner
	storage.Stores
}

// Service exposes the externally invocable entry points. Authorization
// (signature verification) happens at the call boundary before Service is
// invoked; see the auth package.
type Service struct {
	backend Backend
	emitter events.Emitter
	clock   func() int64

	rebatePerKwh       uint64
	allowVaultOverride bool
}

// Options for creating Service.
type Options struct {
	// Backend is required.
	Backend Backend

	// Emitter receives audit events. Defaults to events.LogEmitter.
	Emitter events.Emitter

	// Clock returns the current unix time in seconds. Defaults to time.Now.
	// Tests supply a fixed clock.
	Clock func() int64

	// RebatePerKwh overrides the kWh conversion rate. Zero means default.
	RebatePerKwh uint64

	// AllowBurnVaultOverride disables the check that a payment's burn vault
	// equals the configured utility vault.
	AllowBurnVaultOverride bool
}

// New creates a new Service.
func New(opts Options) *Service {
	s := &Service{
		backend:            opts.Backend,
		emitter:            opts.Emitter,
		clock:              opts.Clock,
		rebatePerKwh:       opts.RebatePerKwh,
		allowVaultOverride: opts.AllowBurnVaultOverride,
	}
	if s.emitter == nil {
		s.emitter = events.LogEmitter{}
	}
	if s.clock == nil {
		s.clock = func() int64 { return time.Now().Unix() }
	}
	if s.rebatePerKwh == 0 {
		s.rebatePerKwh = DefaultRebatePerKwh
	}
	return s
}

// Config returns the current token config.
func (s *Service) Config(ctx context.Context) (*domain.TokenConfig, error) {
	cfg, err := s.backend.Configs().Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("get token config: %w", err)
	}
	return cfg, nil
}

// Stake returns one stake account by ID.
func (s *Service) Stake(ctx context.Context, stakeID string) (*domain.StakeAccount, error) {
	st, err := s.backend.Stakes().GetByID(ctx, stakeID)
	if err != nil {
		return nil, fmt.Errorf("get stake %s: %w", stakeID, err)
	}
	return st, nil
}

// StakesByOwner returns all stakes for an owner, oldest first.
func (s *Service) StakesByOwner(ctx context.Context, owner domain.Address) ([]*domain.StakeAccount, error) {
	stakes, err := s.backend.Stakes().ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list stakes for %s: %w", owner, err)
	}
	return stakes, nil
}

// Balance returns the ledger balance of an account.
func (s *Service) Balance(ctx context.Context, account domain.Address) (uint64, error) {
	return s.backend.Ledger().Balance(ctx, account)
}

// emit publishes an audit event after a committed operation. Sink failures
// are logged by the emitter contract but never unwind committed state, so
// the error is intentionally dropped here.
func (s *Service) emit(ctx context.Context, e *domain.Event) {
	e.Timestamp = s.clock()
	_ = s.emitter.Emit(ctx, e)
}

// finishOp records latency and error metrics for one operation.
func finishOp(op string, start time.Time, err error) {
	observability.ObserveOperationDuration(op, time.Since(start).Seconds())
	if err != nil {
		observability.RecordOperationError(op, errorType(err))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
