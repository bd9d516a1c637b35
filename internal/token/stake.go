package token

import (
	"context"
	"fmt"
	"time"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/idhash"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/observability"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage"
)

// StakeParams are the inputs to StakeForEnergyRebate. DurationDays of zero
// is accepted and yields an immediately claimable lock. Reference is an
// opaque caller-supplied string folded into the stake ID so identical
// stakes opened in the same second stay distinct.
type StakeParams struct {
	Owner        domain.Address
	StakeVault   domain.Address
	Amount       uint64
	DurationDays uint8
	Reference    string
}

// StakeForEnergyRebate locks funds for a future energy rebate: the
// principal moves owner -> stake vault and a StakeAccount is recorded, as
// one atomic unit. No stake persists without funds actually moved.
func (s *Service) StakeForEnergyRebate(ctx context.Context, p StakeParams) (stake *domain.StakeAccount, err error) {
	defer func(start time.Time) { finishOp("stake_for_energy_rebate", start, err) }(time.Now())

	for _, addr := range []domain.Address{p.Owner, p.StakeVault} {
		if !domain.ValidAddress(addr) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
		}
	}

	now := s.clock()
	stake = &domain.StakeAccount{
		StakeID:   idhash.ComputeStakeID(p.Owner, p.StakeVault, p.Amount, p.DurationDays, now, p.Reference),
		Owner:     p.Owner,
		Amount:    p.Amount,
		StartTime: now,
		Duration:  int64(p.DurationDays) * domain.SecondsPerDay,
		Claimed:   false,
		CreatedAt: now,
	}

	err = s.backend.InTx(ctx, func(st storage.Stores) error {
		instrs := []ledger.Instruction{
			{From: p.Owner, To: p.StakeVault, Amount: p.Amount},
		}
		if err := st.Ledger().Apply(ctx, instrs); err != nil {
			return fmt.Errorf("stake transfer: %w", err)
		}
		if err := st.Stakes().Insert(ctx, stake); err != nil {
			return fmt.Errorf("insert stake: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	stake.Version = 1

	s.emit(ctx, &domain.Event{
		Kind:         domain.EventStakeOpened,
		StakeID:      stake.StakeID,
		Owner:        stake.Owner,
		Amount:       stake.Amount,
		DurationDays: p.DurationDays,
	})
	observability.RecordStakeOpened(stake.Amount)
	return stake, nil
}
