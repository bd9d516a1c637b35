package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/events"
)

// execer is the slice of the driver connection the emitter needs.
type execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// Emitter implements events.Emitter using ClickHouse. One row per event,
// append-only; the table is never updated or deleted from.
type Emitter struct {
	conn execer
}

// NewEmitter creates a new ClickHouse emitter.
func NewEmitter(conn *Conn) *Emitter {
	return &Emitter{conn: conn}
}

// Compile-time interface check.
var _ events.Emitter = (*Emitter)(nil)

// schema is the audit table DDL. Idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS token_events (
    kind          LowCardinality(String),
    emitted_at    DateTime('UTC'),
    task_id       String,
    stake_id      String,
    owner         String,
    amount        UInt64,
    net_amount    UInt64,
    burn_amount   UInt64,
    total_supply  UInt64,
    burn_rate_bp  UInt16,
    duration_days UInt8,
    energy_kwh    UInt64,
    rebate_amount UInt64
) ENGINE = MergeTree()
ORDER BY (kind, emitted_at)
`

// EnsureSchema creates the audit table if it does not exist.
func (e *Emitter) EnsureSchema(ctx context.Context) error {
	if err := e.conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create token_events table: %w", err)
	}
	return nil
}

// Emit inserts one audit row.
func (e *Emitter) Emit(ctx context.Context, ev *domain.Event) error {
	query := `
		INSERT INTO token_events (
			kind, emitted_at, task_id, stake_id, owner,
			amount, net_amount, burn_amount, total_supply,
			burn_rate_bp, duration_days, energy_kwh, rebate_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	err := e.conn.Exec(ctx, query,
		string(ev.Kind),
		time.Unix(ev.Timestamp, 0).UTC(),
		ev.TaskID,
		ev.StakeID,
		ev.Owner,
		ev.Amount,
		ev.NetAmount,
		ev.BurnAmount,
		ev.TotalSupply,
		ev.BurnRateBp,
		ev.DurationDays,
		ev.EnergyKwh,
		ev.RebateAmount,
	)
	if err != nil {
		return fmt.Errorf("insert token event: %w", err)
	}
	return nil
}
