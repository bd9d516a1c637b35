package domain

// SecondsPerDay converts caller-supplied lock durations (whole days) to the
// seconds stored on the stake record.
const SecondsPerDay = 86_400

// StakeStatus describes where a stake sits in its lifecycle.
type StakeStatus string

const (
	// StakeOpen: claimed=false and the lock has not matured.
	StakeOpen StakeStatus = "OPEN"
	// StakeMatured: claimed=false and the lock has matured.
	StakeMatured StakeStatus = "MATURED"
	// StakeClaimed: principal and rebate released. Terminal.
	StakeClaimed StakeStatus = "CLAIMED"
)

// StakeAccount is a time-locked deposit eligible for an energy rebate once
// its lock matures. Corresponds to the stake_accounts table in PostgreSQL.
// Records are never deleted; a claimed stake remains as history.
type StakeAccount struct {
	StakeID   string  // PRIMARY KEY, deterministic hash
	Owner     Address // depositor identity
	Amount    uint64  // principal moved into the stake vault
	StartTime int64   // unix seconds at creation
	Duration  int64   // lock length in seconds (durationDays * 86400)
	Claimed   bool    // flips false -> true exactly once
	Version   int64   // optimistic-concurrency version, bumped on update
	CreatedAt int64   // record creation timestamp (unix seconds)
}

// MaturesAt returns the first instant at which the stake is claimable.
func (s *StakeAccount) MaturesAt() int64 {
	return s.StartTime + s.Duration
}

// Status returns the lifecycle state at the given time.
func (s *StakeAccount) Status(now int64) StakeStatus {
	if s.Claimed {
		return StakeClaimed
	}
	if now >= s.MaturesAt() {
		return StakeMatured
	}
	return StakeOpen
}
