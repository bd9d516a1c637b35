package token

import (
	"context"
	"testing"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
)

func TestStakeForEnergyRebate_OpensStake(t *testing.T) {
	env := newTestEnv(t)
	env.initConfig(t, 15)
	env.ledger.CreateAccount(addrOwner, 100_000_000)

	stake, err := env.svc.StakeForEnergyRebate(context.Background(), StakeParams{
		Owner:        addrOwner,
		StakeVault:   addrStakeVault,
		Amount:       100_000_000,
		DurationDays: 30,
	})
	if err != nil {
		t.Fatalf("stake: %v", err)
	}

	if stake.StartTime != env.now {
		t.Errorf("expected start %d, got %d", env.now, stake.StartTime)
	}
	if stake.Duration != 30*domain.SecondsPerDay {
		t.Errorf("expected duration %d, got %d", 30*domain.SecondsPerDay, stake.Duration)
	}
	if stake.Claimed {
		t.Error("new stake must not be claimed")
	}
	if got := stake.Status(env.now); got != domain.StakeOpen {
		t.Errorf("expected OPEN, got %s", got)
	}

	if got := env.balance(t, addrStakeVault); got != 100_000_000 {
		t.Errorf("stake vault balance: expected 100000000, got %d", got)
	}
	if got := env.balance(t, addrOwner); got != 0 {
		t.Errorf("owner balance: expected 0, got %d", got)
	}

	stakes, err := env.svc.StakesByOwner(context.Background(), addrOwner)
	if err != nil {
		t.Fatalf("list stakes: %v", err)
	}
	if len(stakes) != 1 || stakes[0].StakeID != stake.StakeID {
		t.Errorf("expected one stake %s, got %+v", stake.StakeID, stakes)
	}
}

func TestStakeForEnergyRebate_ZeroDuration(t *testing.T) {
	// duration_days = 0 is accepted and immediately claimable.
	env := newTestEnv(t)
	env.initConfig(t, 15)
	env.ledger.CreateAccount(addrOwner, 1000)

	stake, err := env.svc.StakeForEnergyRebate(context.Background(), StakeParams{
		Owner:        addrOwner,
		StakeVault:   addrStakeVault,
		Amount:       1000,
		DurationDays: 0,
	})
	if err != nil {
		t.Fatalf("zero-duration stake: %v", err)
	}
	if got := stake.Status(env.now); got != domain.StakeMatured {
		t.Errorf("expected MATURED at open, got %s", got)
	}
}

func TestStakeForEnergyRebate_TransferFailureLeavesNoRecord(t *testing.T) {
	env := newTestEnv(t)
	env.initConfig(t, 15)
	env.ledger.CreateAccount(addrOwner, 500)

	_, err := env.svc.StakeForEnergyRebate(context.Background(), StakeParams{
		Owner:        addrOwner,
		StakeVault:   addrStakeVault,
		Amount:       1000, // more than the owner holds
		DurationDays: 7,
	})
	if err == nil {
		t.Fatal("expected stake to fail")
	}

	stakes, err := env.svc.StakesByOwner(context.Background(), addrOwner)
	if err != nil {
		t.Fatalf("list stakes: %v", err)
	}
	if len(stakes) != 0 {
		t.Errorf("no stake should persist without funds moved, got %+v", stakes)
	}
	if got := env.balance(t, addrOwner); got != 500 {
		t.Errorf("owner balance: expected 500, got %d", got)
	}
}

func TestStakeForEnergyRebate_DistinctIDsSameSecond(t *testing.T) {
	env := newTestEnv(t)
	env.initConfig(t, 15)
	env.ledger.CreateAccount(addrOwner, 2000)

	first, err := env.svc.StakeForEnergyRebate(context.Background(), StakeParams{
		Owner: addrOwner, StakeVault: addrStakeVault, Amount: 1000, DurationDays: 7, Reference: "a",
	})
	if err != nil {
		t.Fatalf("first stake: %v", err)
	}
	second, err := env.svc.StakeForEnergyRebate(context.Background(), StakeParams{
		Owner: addrOwner, StakeVault: addrStakeVault, Amount: 1000, DurationDays: 7, Reference: "b",
	})
	if err != nil {
		t.Fatalf("second stake: %v", err)
	}
	if first.StakeID == second.StakeID {
		t.Error("expected distinct stake IDs")
	}
}
