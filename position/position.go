// Package position owns the position lifecycle state machine: it opens,
// tracks, adjusts, and closes positions, enforcing the one-open-position-
// per-symbol invariant and the daily loss/profit limits.
package position

import "time"

// Status is the lifecycle state of a position.
type Status string

const (
	StatusOpening   Status = "OPENING"
	StatusOpen      Status = "OPEN"
	StatusAdjusting Status = "ADJUSTING"
	StatusClosing   Status = "CLOSING"
	StatusClosed    Status = "CLOSED"
)

// Close reasons.
const (
	ReasonStopLoss   = "StopLoss"
	ReasonTakeProfit = "TakeProfit"
	ReasonDailyLimit = "DailyLimit"
	ReasonNews       = "News"
	ReasonManual     = "ManualClose"
	ReasonShutdown   = "Shutdown"
)

// Position is one open trade. Owned exclusively by the Manager; mutated in
// place under the symbol's lock.
type Position struct {
	Symbol     string
	Epic       string
	Direction  string // BUY or SELL
	EntryPrice float64
	Size       float64
	StopLoss   float64
	TakeProfit float64
	OpenTime   time.Time
	Status     Status
	DealID     string

	// Set when the position closes.
	ExitPrice  float64
	CloseTime  time.Time
	RealizedPL float64
	Result     string // WIN or LOSS
	Reason     string
}

// pnlPercent is the unrealized gain relative to entry, positive when the
// position is in profit.
func (p *Position) pnlPercent(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	if p.Direction == "BUY" {
		return (price - p.EntryPrice) / p.EntryPrice
	}
	return (p.EntryPrice - price) / p.EntryPrice
}

// realized computes the realized P&L at the given exit price.
func (p *Position) realized(exit float64) float64 {
	if p.Direction == "BUY" {
		return (exit - p.EntryPrice) * p.Size
	}
	return (p.EntryPrice - exit) * p.Size
}

// breached reports whether price has crossed the stop or target level and,
// if so, which close reason applies.
func (p *Position) breached(price float64) (string, bool) {
	if p.Direction == "BUY" {
		if p.StopLoss > 0 && price <= p.StopLoss {
			return ReasonStopLoss, true
		}
		if p.TakeProfit > 0 && price >= p.TakeProfit {
			return ReasonTakeProfit, true
		}
		return "", false
	}
	if p.StopLoss > 0 && price >= p.StopLoss {
		return ReasonStopLoss, true
	}
	if p.TakeProfit > 0 && price <= p.TakeProfit {
		return ReasonTakeProfit, true
	}
	return "", false
}
