package risk

import (
	"sync"
	"time"
)

// LimitKind identifies which daily limit was crossed.
type LimitKind string

const (
	LimitLoss   LimitKind = "LOSS"
	LimitProfit LimitKind = "PROFIT"
)

// DailyTracker accumulates realized P&L since the daily boundary (midnight
// UTC) and reports when the loss or profit limit is crossed. Crossing a
// limit is the position manager's cue to close everything and suspend new
// entries until the next reset.
type DailyTracker struct {
	mu          sync.Mutex
	realized    float64
	day         time.Time // start of the current UTC day
	lossLimit   float64   // positive number of account currency; 0 disables
	profitLimit float64   // positive number of account currency; 0 disables
	now         func() time.Time
}

// NewDailyTracker creates a tracker with the given limits in account
// currency. A zero limit disables that side.
func NewDailyTracker(lossLimit, profitLimit float64) *DailyTracker {
	t := &DailyTracker{
		lossLimit:   lossLimit,
		profitLimit: profitLimit,
		now:         time.Now,
	}
	t.day = dayStart(t.now())
	return t
}

// Add records realized P&L from a closed position.
func (t *DailyTracker) Add(pnl float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()
	t.realized += pnl
}

// Realized returns the P&L accumulated since the daily boundary.
func (t *DailyTracker) Realized() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()
	return t.realized
}

// Breached reports whether either daily limit has been crossed.
func (t *DailyTracker) Breached() (LimitKind, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()

	if t.lossLimit > 0 && t.realized <= -t.lossLimit {
		return LimitLoss, true
	}
	if t.profitLimit > 0 && t.realized >= t.profitLimit {
		return LimitProfit, true
	}
	return "", false
}

// rollLocked resets the accumulator when the UTC day has changed.
func (t *DailyTracker) rollLocked() {
	today := dayStart(t.now())
	if today.After(t.day) {
		t.day = today
		t.realized = 0
	}
}

func dayStart(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour)
}
