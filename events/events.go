// Package events defines the lifecycle events the trading core emits and a
// non-blocking bus that fans them out to collaborators (notifiers,
// dashboards). Delivery is fire-and-forget: a slow consumer never blocks
// the trading loops.
package events

import (
	"time"

	"github.com/johnmagusrecords/tradebot/pkg/id"
)

// Kind discriminates event payloads.
type Kind string

const (
	KindSignalEvaluated   Kind = "signal_evaluated"
	KindPositionOpened    Kind = "position_opened"
	KindPositionAdjusted  Kind = "position_adjusted"
	KindPositionClosed    Kind = "position_closed"
	KindAuthFailure       Kind = "auth_failure"
	KindDailyLimitReached Kind = "daily_limit_reached"
	KindSymbolSkipped     Kind = "symbol_skipped"
)

// Event is the envelope published on the bus.
type Event struct {
	ID      string `json:"id"` // time-sortable ULID
	Kind    Kind   `json:"kind"`
	TS      string `json:"ts_utc"`
	Payload any    `json:"payload"`
}

// New wraps a payload in an envelope stamped with a fresh ID.
func New(kind Kind, payload any) Event {
	return Event{
		ID:      id.New(),
		Kind:    kind,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Payload: payload,
	}
}

// SignalEvaluated reports the outcome of one evaluation cycle for a symbol.
type SignalEvaluated struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// PositionOpened reports a successfully placed order.
type PositionOpened struct {
	Symbol     string  `json:"symbol"`
	Epic       string  `json:"epic"`
	Direction  string  `json:"direction"`
	Size       float64 `json:"size"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	DealID     string  `json:"deal_id"`
}

// PositionAdjusted reports a breakeven or trailing adjustment. Nil fields
// mean that level did not move.
type PositionAdjusted struct {
	Symbol        string   `json:"symbol"`
	DealID        string   `json:"deal_id"`
	NewStop       *float64 `json:"new_stop,omitempty"`
	NewTakeProfit *float64 `json:"new_take_profit,omitempty"`
}

// PositionClosed reports a close with its realized outcome.
type PositionClosed struct {
	Symbol     string  `json:"symbol"`
	DealID     string  `json:"deal_id"`
	Reason     string  `json:"reason"`
	RealizedPL float64 `json:"realized_pnl"`
	Result     string  `json:"result"` // WIN or LOSS
}

// AuthFailure reports that trading is suspended pending re-authentication.
type AuthFailure struct {
	Err string `json:"error"`
}

// DailyLimitReached reports a crossed daily loss or profit limit.
type DailyLimitReached struct {
	Kind     string  `json:"kind"` // LOSS or PROFIT
	Realized float64 `json:"realized_pnl"`
}

// SymbolSkipped reports a symbol dropped from the current cycle and why.
type SymbolSkipped struct {
	Symbol string `json:"symbol"`
	Cause  string `json:"cause"`
}
