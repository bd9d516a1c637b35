package token

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/observability"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage"
)

// ClaimParams are the inputs to ClaimEnergyRebate. The boundary layer must
// have verified two independent signers: the stake owner and the
// administrative authority.
type ClaimParams struct {
	StakeID      string
	EnergyKwh    uint64
	OwnerAccount domain.Address
	StakeVault   domain.Address
	RebateVault  domain.Address
}

// ClaimReceipt reports what a claim released.
type ClaimReceipt struct {
	StakeID      string
	RebateAmount uint64
	Principal    uint64
}

// ClaimEnergyRebate releases a matured stake: the capped rebate moves
// rebate vault -> owner, the full principal moves stake vault -> owner,
// and the stake flips to claimed. Both transfers and the flag flip are one
// atomic unit; a failed transfer leaves claimed false and balances
// untouched. A concurrent claim on the same stake loses the version check
// and fails with ErrAlreadyClaimed.
func (s *Service) ClaimEnergyRebate(ctx context.Context, p ClaimParams) (receipt *ClaimReceipt, err error) {
	defer func(start time.Time) { finishOp("claim_energy_rebate", start, err) }(time.Now())

	for _, addr := range []domain.Address{p.OwnerAccount, p.StakeVault, p.RebateVault} {
		if !domain.ValidAddress(addr) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
		}
	}

	var energyKwh uint64
	err = s.backend.InTx(ctx, func(st storage.Stores) error {
		stake, err := st.Stakes().GetByID(ctx, p.StakeID)
		if err != nil {
			return fmt.Errorf("get stake %s: %w", p.StakeID, err)
		}

		if stake.Claimed {
			return ErrAlreadyClaimed
		}
		if s.clock() < stake.MaturesAt() {
			return ErrStakingPeriodNotComplete
		}

		rebate := s.rebateAmount(p.EnergyKwh, stake.Amount)

		// Rebate first, then unconditional principal return, matching the
		// original ordering. Apply makes the legs all-or-nothing.
		instrs := []ledger.Instruction{
			{From: p.RebateVault, To: p.OwnerAccount, Amount: rebate},
			{From: p.StakeVault, To: p.OwnerAccount, Amount: stake.Amount},
		}
		if err := st.Ledger().Apply(ctx, instrs); err != nil {
			return fmt.Errorf("claim transfers: %w", err)
		}

		if err := st.Stakes().MarkClaimed(ctx, stake.StakeID, stake.Version); err != nil {
			if errors.Is(err, storage.ErrStaleVersion) {
				// The only competing writer is another claim.
				return ErrAlreadyClaimed
			}
			return fmt.Errorf("mark stake claimed: %w", err)
		}

		receipt = &ClaimReceipt{
			StakeID:      stake.StakeID,
			RebateAmount: rebate,
			Principal:    stake.Amount,
		}
		energyKwh = p.EnergyKwh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, &domain.Event{
		Kind:         domain.EventRebateClaimed,
		StakeID:      receipt.StakeID,
		Owner:        p.OwnerAccount,
		Amount:       receipt.Principal,
		EnergyKwh:    energyKwh,
		RebateAmount: receipt.RebateAmount,
	})
	observability.RecordRebateClaimed(receipt.RebateAmount)
	return receipt, nil
}

// rebateAmount returns min(energyKwh * rebatePerKwh, stakeAmount / 10).
// When the multiplication would overflow, the true product necessarily
// exceeds the cap, so the cap is the exact minimum; nothing ever wraps.
func (s *Service) rebateAmount(energyKwh, stakeAmount uint64) uint64 {
	maxRebate := stakeAmount / maxRebateDivisor

	if energyKwh != 0 && energyKwh > math.MaxUint64/s.rebatePerKwh {
		return maxRebate
	}
	rebate := energyKwh * s.rebatePerKwh
	if rebate > maxRebate {
		return maxRebate
	}
	return rebate
}
