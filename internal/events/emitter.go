// Package events publishes audit events to an external observer.
// Emission happens after the operation's transaction commits; a sink failure
// never unwinds committed ledger state.
package events

import (
	"context"
	"log"
	"sync"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
)

// Emitter receives one audit event per completed operation.
type Emitter interface {
	Emit(ctx context.Context, e *domain.Event) error
}

// LogEmitter writes events to the process log. Default sink when no
// ClickHouse DSN is configured.
type LogEmitter struct{}

// Compile-time interface check.
var _ Emitter = (*LogEmitter)(nil)

// Emit logs the event.
func (LogEmitter) Emit(_ context.Context, e *domain.Event) error {
	switch e.Kind {
	case domain.EventInitialized:
		log.Printf("[events] initialized: supply=%d burn_rate=%dbp", e.TotalSupply, e.BurnRateBp)
	case domain.EventTaskPayment:
		log.Printf("[events] task payment: net=%d burned=%d task_id=%s", e.NetAmount, e.BurnAmount, e.TaskID)
	case domain.EventStakeOpened:
		log.Printf("[events] stake opened: %s amount=%d days=%d", e.StakeID, e.Amount, e.DurationDays)
	case domain.EventRebateClaimed:
		log.Printf("[events] rebate claimed: %s rebate=%d kwh=%d principal=%d", e.StakeID, e.RebateAmount, e.EnergyKwh, e.Amount)
	default:
		log.Printf("[events] %s", e.Kind)
	}
	return nil
}

// Recorder captures events in memory. Test sink.
type Recorder struct {
	mu     sync.Mutex
	events []*domain.Event
}

// Compile-time interface check.
var _ Emitter = (*Recorder)(nil)

// Emit records the event.
func (r *Recorder) Emit(_ context.Context, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	eventCopy := *e
	r.events = append(r.events, &eventCopy)
	return nil
}

// Events returns all recorded events in emission order.
func (r *Recorder) Events() []*domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Event, len(r.events))
	copy(out, r.events)
	return out
}
