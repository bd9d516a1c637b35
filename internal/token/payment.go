package token

import (
	"context"
	"fmt"
	"math/bits"
	"time"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/observability"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage"
)

// PaymentParams are the inputs to ExecuteTaskPayment. TaskID is an opaque
// caller-supplied string; the engine does not deduplicate payments by it,
// so idempotency is the caller's responsibility.
type PaymentParams struct {
	Amount    uint64
	TaskID    string
	From      domain.Address
	To        domain.Address
	BurnVault domain.Address
}

// PaymentReceipt reports how one payment split.
type PaymentReceipt struct {
	NetAmount   uint64
	BurnAmount  uint64
	TotalBurned uint64 // accumulator after this payment
}

// ExecuteTaskPayment pays a task settlement: the burn-rate share of the
// amount routes to the burn vault, the remainder to the payee, and
// total_burned accumulates the burn. Both transfers and the counter update
// are one atomic unit.
func (s *Service) ExecuteTaskPayment(ctx context.Context, p PaymentParams) (receipt *PaymentReceipt, err error) {
	defer func(start time.Time) { finishOp("execute_task_payment", start, err) }(time.Now())

	for _, addr := range []domain.Address{p.From, p.To, p.BurnVault} {
		if !domain.ValidAddress(addr) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
		}
	}

	err = s.backend.InTx(ctx, func(st storage.Stores) error {
		cfg, err := st.Configs().Get(ctx)
		if err != nil {
			if isNotFound(err) {
				return ErrNotInitialized
			}
			return fmt.Errorf("get token config: %w", err)
		}

		if !s.allowVaultOverride && p.BurnVault != cfg.UtilityVault {
			return fmt.Errorf("%w: got %s, configured %s", ErrVaultMismatch, p.BurnVault, cfg.UtilityVault)
		}

		burnAmount, err := computeBurn(p.Amount, cfg.BurnRateBp)
		if err != nil {
			return err
		}
		netAmount := p.Amount - burnAmount

		// Net leg first: if it cannot complete, no burn is performed.
		// Apply makes the two legs all-or-nothing.
		instrs := []ledger.Instruction{
			{From: p.From, To: p.To, Amount: netAmount},
			{From: p.From, To: p.BurnVault, Amount: burnAmount},
		}
		if err := st.Ledger().Apply(ctx, instrs); err != nil {
			return fmt.Errorf("payment transfers: %w", err)
		}

		newTotal := cfg.TotalBurned + burnAmount
		if newTotal < cfg.TotalBurned {
			return ErrBurnCounterOverflow
		}
		if err := st.Configs().SetTotalBurned(ctx, newTotal, cfg.Version); err != nil {
			return fmt.Errorf("update burn counter: %w", err)
		}

		receipt = &PaymentReceipt{
			NetAmount:   netAmount,
			BurnAmount:  burnAmount,
			TotalBurned: newTotal,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, &domain.Event{
		Kind:       domain.EventTaskPayment,
		TaskID:     p.TaskID,
		NetAmount:  receipt.NetAmount,
		BurnAmount: receipt.BurnAmount,
	})
	observability.RecordPayment(receipt.NetAmount, receipt.BurnAmount)
	return receipt, nil
}

// computeBurn returns floor(amount * rateBp / 10000) with full 128-bit
// intermediate precision. Fails with ErrBurnExceedsAmount instead of ever
// returning a burn larger than the amount; reachable only when a legacy
// config carries a rate above 10000 bp.
func computeBurn(amount uint64, rateBp uint16) (uint64, error) {
	hi, lo := bits.Mul64(amount, uint64(rateBp))
	if hi >= domain.BasisPointDenominator {
		// Quotient would not fit in 64 bits.
		return 0, ErrBurnExceedsAmount
	}
	q, _ := bits.Div64(hi, lo, domain.BasisPointDenominator)
	if q > amount {
		return 0, ErrBurnExceedsAmount
	}
	return q, nil
}
