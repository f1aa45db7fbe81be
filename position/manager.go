package position

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/johnmagusrecords/tradebot/capital"
	"github.com/johnmagusrecords/tradebot/events"
	"github.com/johnmagusrecords/tradebot/journal"
	"github.com/johnmagusrecords/tradebot/market"
	"github.com/johnmagusrecords/tradebot/pkg/id"
	"github.com/johnmagusrecords/tradebot/risk"
	"github.com/johnmagusrecords/tradebot/signal"
)

// Broker is the slice of the broker client the manager needs.
type Broker interface {
	PlaceOrder(ctx context.Context, req capital.OrderRequest) (string, error)
	ClosePosition(ctx context.Context, dealID string) error
	UpdateStop(ctx context.Context, dealID string, level float64) error
	UpdateLimit(ctx context.Context, dealID string, level float64) error
	GetAccountInfo(ctx context.Context) (*capital.AccountInfo, error)
}

// Manager owns all positions. Mutating operations are serialized per symbol
// and may proceed in parallel across distinct symbols.
type Manager struct {
	broker  Broker
	profile signal.Profile
	daily   *risk.DailyTracker
	journal journal.Journal
	bus     *events.Bus
	log     *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	positions map[string]*Position // key: normalized symbol, open positions only
	locks     map[string]*sync.Mutex
	history   []*Position
}

// NewManager creates a position manager.
func NewManager(broker Broker, profile signal.Profile, daily *risk.DailyTracker, j journal.Journal, bus *events.Bus, log *slog.Logger) *Manager {
	if j == nil {
		j = journal.Nop{}
	}
	return &Manager{
		broker:    broker,
		profile:   profile,
		daily:     daily,
		journal:   j,
		bus:       bus,
		log:       log,
		now:       time.Now,
		positions: make(map[string]*Position),
		locks:     make(map[string]*sync.Mutex),
	}
}

// symbolLock returns the mutex serializing operations for one symbol.
func (m *Manager) symbolLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// Open places an order for a non-HOLD decision. Skips silently legitimate
// non-entries (HOLD, duplicate position, daily limit, zero stop distance),
// emitting a skip event so no path is silent. Order placement failures are
// not retried automatically; the next evaluation cycle may try again.
func (m *Manager) Open(ctx context.Context, symbol string, instrument market.Instrument, decision signal.Decision, price float64) error {
	if decision.Action == signal.Hold {
		return nil
	}
	if _, breached := m.daily.Breached(); breached {
		m.skip(symbol, "daily limit reached")
		return nil
	}

	key := market.Normalize(symbol)
	lock := m.symbolLock(key)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	_, exists := m.positions[key]
	m.mu.Unlock()
	if exists {
		m.skip(symbol, "position already open")
		return nil
	}

	account, err := m.broker.GetAccountInfo(ctx)
	if err != nil {
		return fmt.Errorf("fetch account: %w", err)
	}

	size, err := risk.SizeFor(account.Balance, m.profile.RiskPercent, price, decision.StopLoss, instrument.MinDealSize)
	if err != nil {
		m.skip(symbol, "zero stop distance")
		return nil
	}

	pos := &Position{
		Symbol:     symbol,
		Epic:       instrument.Epic,
		Direction:  string(decision.Action),
		EntryPrice: price,
		Size:       size,
		StopLoss:   decision.StopLoss,
		TakeProfit: decision.TakeProfit,
		OpenTime:   m.now(),
		Status:     StatusOpening,
	}

	dealID, err := m.broker.PlaceOrder(ctx, capital.OrderRequest{
		Epic:      instrument.Epic,
		Direction: pos.Direction,
		Size:      size,
		StopLevel: pos.StopLoss,
		TPLevel:   pos.TakeProfit,
	})
	if err != nil {
		m.log.Error("order placement failed", "symbol", symbol, "err", err)
		m.skip(symbol, "order placement failed")
		return fmt.Errorf("place order for %s: %w", symbol, err)
	}

	pos.DealID = dealID
	pos.Status = StatusOpen

	m.mu.Lock()
	m.positions[key] = pos
	m.mu.Unlock()

	m.log.Info("position opened", "symbol", symbol, "direction", pos.Direction, "size", size, "deal", dealID)
	m.bus.Publish(events.New(events.KindPositionOpened, events.PositionOpened{
		Symbol:     symbol,
		Epic:       pos.Epic,
		Direction:  pos.Direction,
		Size:       size,
		EntryPrice: pos.EntryPrice,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		DealID:     dealID,
	}))
	return nil
}

// Review drives one monitoring cycle for a symbol against the current
// price: close on stop/target breach, otherwise apply breakeven and
// trailing adjustments.
func (m *Manager) Review(ctx context.Context, symbol string, price float64) error {
	key := market.Normalize(symbol)
	lock := m.symbolLock(key)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	pos, ok := m.positions[key]
	m.mu.Unlock()
	if !ok || pos.Status != StatusOpen {
		return nil
	}

	if reason, hit := pos.breached(price); hit {
		return m.closeLocked(ctx, key, pos, price, reason)
	}
	return m.adjustLocked(ctx, pos, price)
}

// adjustLocked applies breakeven and trailing rules. Caller holds the
// symbol lock.
func (m *Manager) adjustLocked(ctx context.Context, pos *Position, price float64) error {
	pl := pos.pnlPercent(price)

	var newStop, newTP *float64

	if pl >= m.profile.BreakevenTriggerPct {
		if tightens(pos, pos.EntryPrice) {
			level := pos.EntryPrice
			newStop = &level
		}
	}
	if pl >= m.profile.TrailingTriggerPct {
		level := trailTarget(pos, price, m.profile.TrailingStepPct)
		if favors(pos, level) {
			newTP = &level
		}
	}
	if newStop == nil && newTP == nil {
		return nil
	}

	pos.Status = StatusAdjusting
	defer func() { pos.Status = StatusOpen }()

	if newStop != nil {
		if err := m.broker.UpdateStop(ctx, pos.DealID, *newStop); err != nil {
			m.log.Warn("stop update failed, retrying next cycle", "symbol", pos.Symbol, "err", err)
			return err
		}
		pos.StopLoss = *newStop
		m.log.Info("stop moved to breakeven", "symbol", pos.Symbol, "stop", *newStop)
	}
	if newTP != nil {
		if err := m.broker.UpdateLimit(ctx, pos.DealID, *newTP); err != nil {
			m.log.Warn("target update failed, retrying next cycle", "symbol", pos.Symbol, "err", err)
			return err
		}
		pos.TakeProfit = *newTP
		m.log.Info("target trailed", "symbol", pos.Symbol, "target", *newTP)
	}

	m.bus.Publish(events.New(events.KindPositionAdjusted, events.PositionAdjusted{
		Symbol:        pos.Symbol,
		DealID:        pos.DealID,
		NewStop:       newStop,
		NewTakeProfit: newTP,
	}))
	return nil
}

// Close closes one symbol's position at the given exit price. On broker
// failure the position stays OPEN and is retried on the next cycle.
func (m *Manager) Close(ctx context.Context, symbol string, price float64, reason string) error {
	key := market.Normalize(symbol)
	lock := m.symbolLock(key)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	pos, ok := m.positions[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no open position for %s", symbol)
	}
	return m.closeLocked(ctx, key, pos, price, reason)
}

// closeLocked performs the close. Caller holds the symbol lock.
func (m *Manager) closeLocked(ctx context.Context, key string, pos *Position, price float64, reason string) error {
	pos.Status = StatusClosing

	if err := m.broker.ClosePosition(ctx, pos.DealID); err != nil {
		pos.Status = StatusOpen
		m.log.Warn("close failed, retrying next cycle", "symbol", pos.Symbol, "reason", reason, "err", err)
		return err
	}

	pos.Status = StatusClosed
	pos.ExitPrice = price
	pos.CloseTime = m.now()
	pos.RealizedPL = pos.realized(price)
	pos.Reason = reason
	if pos.RealizedPL >= 0 {
		pos.Result = journal.ResultWin
	} else {
		pos.Result = journal.ResultLoss
	}

	m.mu.Lock()
	delete(m.positions, key)
	m.history = append(m.history, pos)
	m.mu.Unlock()

	m.daily.Add(pos.RealizedPL)

	if err := m.journal.RecordTrade(journal.Record{
		ID:         id.New(),
		Time:       pos.CloseTime,
		Symbol:     pos.Symbol,
		Action:     pos.Direction,
		Size:       pos.Size,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  pos.ExitPrice,
		Stop:       pos.StopLoss,
		Target:     pos.TakeProfit,
		RealizedPL: pos.RealizedPL,
		Result:     pos.Result,
		Reason:     reason,
	}); err != nil {
		m.log.Error("journal write failed", "symbol", pos.Symbol, "err", err)
	}

	m.log.Info("position closed", "symbol", pos.Symbol, "reason", reason, "pnl", pos.RealizedPL, "result", pos.Result)
	m.bus.Publish(events.New(events.KindPositionClosed, events.PositionClosed{
		Symbol:     pos.Symbol,
		DealID:     pos.DealID,
		Reason:     reason,
		RealizedPL: pos.RealizedPL,
		Result:     pos.Result,
	}))
	return nil
}

// CloseAll closes every open position with the given reason, using each
// position's last known entry-relative price via the supplied price lookup.
// A failed close leaves that position open for the next cycle.
func (m *Manager) CloseAll(ctx context.Context, prices func(symbol string) (float64, bool), reason string) {
	for _, pos := range m.OpenPositions() {
		price, ok := prices(pos.Symbol)
		if !ok {
			price = pos.EntryPrice
		}
		if err := m.Close(ctx, pos.Symbol, price, reason); err != nil {
			m.log.Warn("close-all: position still open", "symbol", pos.Symbol, "err", err)
		}
	}
}

// GuardDailyLimits closes everything and reports true when a daily limit
// has been crossed. New entries stay suspended (Open refuses) until the
// next daily reset.
func (m *Manager) GuardDailyLimits(ctx context.Context, prices func(symbol string) (float64, bool)) bool {
	kind, breached := m.daily.Breached()
	if !breached {
		return false
	}

	m.log.Warn("daily limit reached, closing all positions", "kind", string(kind), "realized", m.daily.Realized())
	m.bus.Publish(events.New(events.KindDailyLimitReached, events.DailyLimitReached{
		Kind:     string(kind),
		Realized: m.daily.Realized(),
	}))
	m.CloseAll(ctx, prices, ReasonDailyLimit)
	return true
}

// OpenPositions returns a snapshot of the open positions.
func (m *Manager) OpenPositions() []*Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out
}

// HasOpen reports whether the symbol has a live position.
func (m *Manager) HasOpen(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.positions[market.Normalize(symbol)]
	return ok
}

// History returns the closed positions, oldest first.
func (m *Manager) History() []*Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Position, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Manager) skip(symbol, cause string) {
	m.log.Info("entry skipped", "symbol", symbol, "cause", cause)
	m.bus.Publish(events.New(events.KindSymbolSkipped, events.SymbolSkipped{Symbol: symbol, Cause: cause}))
}

// tightens reports whether moving the stop to level reduces risk.
func tightens(pos *Position, level float64) bool {
	if pos.Direction == "BUY" {
		return level > pos.StopLoss
	}
	return pos.StopLoss == 0 || level < pos.StopLoss
}

// favors reports whether moving the target to level extends it in the
// favorable direction.
func favors(pos *Position, level float64) bool {
	if pos.Direction == "BUY" {
		return level > pos.TakeProfit
	}
	return level < pos.TakeProfit
}

// trailTarget computes the next take-profit level when trailing.
func trailTarget(pos *Position, price, stepPct float64) float64 {
	if pos.Direction == "BUY" {
		return price * (1 + stepPct)
	}
	return price * (1 - stepPct)
}
