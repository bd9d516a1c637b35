package domain

// Audit events emitted after each completed operation. They mirror the
// observable log lines of the on-chain deployment and feed the ClickHouse
// audit sink; they are not part of transactional state.

// EventKind discriminates audit event rows.
type EventKind string

const (
	EventInitialized   EventKind = "INITIALIZED"
	EventTaskPayment   EventKind = "TASK_PAYMENT"
	EventStakeOpened   EventKind = "STAKE_OPENED"
	EventRebateClaimed EventKind = "REBATE_CLAIMED"
)

// Event is one audit record.
type Event struct {
	Kind      EventKind
	Timestamp int64 // unix seconds at emission

	// INITIALIZED
	TotalSupply uint64 // informational, accepted at init and never stored
	BurnRateBp  uint16

	// TASK_PAYMENT
	TaskID     string
	NetAmount  uint64
	BurnAmount uint64

	// STAKE_OPENED / REBATE_CLAIMED
	StakeID      string
	Owner        Address
	Amount       uint64
	DurationDays uint8
	EnergyKwh    uint64
	RebateAmount uint64
}
