package idhash

import (
	"encoding/hex"
	"testing"
)

func TestComputeStakeID_Deterministic(t *testing.T) {
	a := ComputeStakeID("owner", "vault", 1000, 30, 1_700_000_000, "ref")
	b := ComputeStakeID("owner", "vault", 1000, 30, 1_700_000_000, "ref")

	if a != b {
		t.Errorf("same inputs must produce same ID: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if _, err := hex.DecodeString(a); err != nil {
		t.Errorf("ID is not valid hex: %v", err)
	}
}

func TestComputeStakeID_FieldSensitivity(t *testing.T) {
	base := ComputeStakeID("owner", "vault", 1000, 30, 1_700_000_000, "ref")

	variants := []string{
		ComputeStakeID("other", "vault", 1000, 30, 1_700_000_000, "ref"),
		ComputeStakeID("owner", "other", 1000, 30, 1_700_000_000, "ref"),
		ComputeStakeID("owner", "vault", 1001, 30, 1_700_000_000, "ref"),
		ComputeStakeID("owner", "vault", 1000, 31, 1_700_000_000, "ref"),
		ComputeStakeID("owner", "vault", 1000, 30, 1_700_000_001, "ref"),
		ComputeStakeID("owner", "vault", 1000, 30, 1_700_000_000, "other"),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base ID", i)
		}
	}
}
