package domain

import "testing"

func TestStakeAccount_Status(t *testing.T) {
	stake := &StakeAccount{
		StakeID:   "s1",
		Owner:     "owner",
		Amount:    1000,
		StartTime: 1_700_000_000,
		Duration:  7 * SecondsPerDay,
	}

	maturity := stake.MaturesAt()
	if maturity != 1_700_000_000+7*SecondsPerDay {
		t.Fatalf("unexpected maturity %d", maturity)
	}

	cases := []struct {
		name    string
		now     int64
		claimed bool
		want    StakeStatus
	}{
		{"at open", stake.StartTime, false, StakeOpen},
		{"one second before maturity", maturity - 1, false, StakeOpen},
		{"exactly at maturity", maturity, false, StakeMatured},
		{"after maturity", maturity + 1000, false, StakeMatured},
		{"claimed is terminal", maturity + 1000, true, StakeClaimed},
		{"claimed before maturity reads claimed", stake.StartTime, true, StakeClaimed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := *stake
			s.Claimed = tc.claimed
			if got := s.Status(tc.now); got != tc.want {
				t.Errorf("Status(%d) = %s, want %s", tc.now, got, tc.want)
			}
		})
	}
}

func TestStakeAccount_ZeroDuration(t *testing.T) {
	stake := &StakeAccount{StartTime: 1_700_000_000, Duration: 0}

	if got := stake.Status(stake.StartTime); got != StakeMatured {
		t.Errorf("zero-duration stake must mature immediately, got %s", got)
	}
}
