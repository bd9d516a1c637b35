package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage"
)

// InitializeParams are the inputs to Initialize. The caller must be the new
// authority; the boundary layer verifies that signature.
type InitializeParams struct {
	Authority    domain.Address
	Mint         domain.Address
	UtilityVault domain.Address

	// TotalSupply is informational only; it is echoed in the audit event
	// and never stored, matching the original deployment.
	TotalSupply uint64

	BurnRateBp uint16
}

// Initialize creates the singleton TokenConfig with TotalBurned = 0.
// Returns ErrAlreadyInitialized if a config already exists and
// ErrBurnRateTooHigh above 10000 bp.
func (s *Service) Initialize(ctx context.Context, p InitializeParams) (cfg *domain.TokenConfig, err error) {
	defer func(start time.Time) { finishOp("initialize", start, err) }(time.Now())

	for _, addr := range []domain.Address{p.Authority, p.Mint, p.UtilityVault} {
		if !domain.ValidAddress(addr) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
		}
	}
	if p.BurnRateBp > domain.MaxBurnRateBp {
		return nil, fmt.Errorf("%w: %d bp", ErrBurnRateTooHigh, p.BurnRateBp)
	}

	cfg = &domain.TokenConfig{
		Authority:    p.Authority,
		Mint:         p.Mint,
		BurnRateBp:   p.BurnRateBp,
		TotalBurned:  0,
		UtilityVault: p.UtilityVault,
		CreatedAt:    s.clock(),
	}

	err = s.backend.InTx(ctx, func(st storage.Stores) error {
		if err := st.Configs().Insert(ctx, cfg); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return ErrAlreadyInitialized
			}
			return fmt.Errorf("insert token config: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cfg.Version = 1

	s.emit(ctx, &domain.Event{
		Kind:        domain.EventInitialized,
		TotalSupply: p.TotalSupply,
		BurnRateBp:  p.BurnRateBp,
	})
	return cfg, nil
}
