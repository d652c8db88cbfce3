package pool

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// EventType names each observable pool transition.
type EventType string

const (
	EventJoinedGame       EventType = "joined_game"
	EventDeposit          EventType = "deposit"
	EventEarlyWithdrawal  EventType = "early_withdrawal"
	EventFundsRedeemed    EventType = "funds_redeemed_from_external_pool"
	EventWithdrawal       EventType = "withdrawal"
	EventAdminWithdrawal  EventType = "admin_withdrawal"
	EventEmergencyEnabled EventType = "emergency_withdraw_enabled"
)

// Event is emitted after the ledger mutation it describes has been applied.
type Event struct {
	ID                string          `json:"id"`
	Type              EventType       `json:"type"`
	Player            string          `json:"player,omitempty"`
	Segment           uint64          `json:"segment"`
	NetAmount         decimal.Decimal `json:"net_amount"`
	GrossAmount       decimal.Decimal `json:"gross_amount"`
	TotalPrincipal    decimal.Decimal `json:"total_principal"`
	NetTotalPrincipal decimal.Decimal `json:"net_total_principal"`
	TotalInterest     decimal.Decimal `json:"total_interest"`
	At                time.Time       `json:"at"`
}

// Sink receives pool events. Sinks must not call back into the pool.
type Sink interface {
	Emit(Event)
}

// LogSink writes events to a zerolog logger. It is the default sink.
type LogSink struct {
	Log zerolog.Logger
}

func (s LogSink) Emit(e Event) {
	s.Log.Info().
		Str("event", string(e.Type)).
		Str("player", e.Player).
		Uint64("segment", e.Segment).
		Str("net_amount", e.NetAmount.String()).
		Str("gross_amount", e.GrossAmount.String()).
		Str("net_total_principal", e.NetTotalPrincipal.String()).
		Msg("pool event")
}

func (p *Pool) emit(e Event) {
	e.ID = uuid.New().String()
	e.At = p.now()
	for _, s := range p.sinks {
		s.Emit(e)
	}
}
