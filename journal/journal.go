// Package journal persists the append-only trade history: one record per
// closed position.
package journal

import "time"

// Trade results.
const (
	ResultWin  = "WIN"
	ResultLoss = "LOSS"
)

// Record is one closed trade.
type Record struct {
	ID         string // time-sortable ULID
	Time       time.Time
	Symbol     string
	Action     string // BUY or SELL
	Size       float64
	EntryPrice float64
	ExitPrice  float64
	Stop       float64
	Target     float64
	RealizedPL float64
	Result     string // WIN or LOSS
	Reason     string // TakeProfit, StopLoss, DailyLimit, News, ManualClose, Shutdown
}

// Journal is the append-only trade history sink.
type Journal interface {
	RecordTrade(Record) error
	Close() error
}

// Nop discards all records, for runs without persistence.
type Nop struct{}

func (Nop) RecordTrade(Record) error { return nil }
func (Nop) Close() error             { return nil }
