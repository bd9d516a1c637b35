package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
)

// ComputeStakeID computes a deterministic stake_id using SHA256.
// Formula: SHA256(owner|stake_vault|amount|duration_days|start_time|reference)
// Returns hex-encoded hash (64 characters).
//
// reference is an opaque caller-supplied string that keeps otherwise
// identical stakes opened in the same second distinct.
func ComputeStakeID(
	owner domain.Address,
	stakeVault domain.Address,
	amount uint64,
	durationDays uint8,
	startTime int64,
	reference string,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d|%d|%s",
		owner,
		stakeVault,
		amount,
		durationDays,
		startTime,
		reference,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
