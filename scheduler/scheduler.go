// Package scheduler drives the trading loops: a slow evaluation cycle that
// looks for new entries across the watchlist, and a fast monitoring cycle
// that reviews open positions against current prices.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/johnmagusrecords/tradebot/capital"
	"github.com/johnmagusrecords/tradebot/events"
	"github.com/johnmagusrecords/tradebot/market"
	"github.com/johnmagusrecords/tradebot/position"
	"github.com/johnmagusrecords/tradebot/signal"
)

// State is the scheduler's control state.
type State string

const (
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
)

// How long new entries stay suspended after the broker rejects our
// credentials. Matches the session's own throttle window.
const authSuspension = 10 * time.Minute

// SeriesSource supplies historical bars for signal evaluation.
type SeriesSource interface {
	Get(ctx context.Context, symbol, resolution string, barCount int) (market.Series, bool)
}

// Quoter supplies a current price for position monitoring.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (float64, bool)
}

// Resolver maps watchlist symbols to tradeable instruments.
type Resolver interface {
	Resolve(ctx context.Context, symbol string) (market.Instrument, bool)
}

// Evaluator turns a price series into a trading decision.
type Evaluator interface {
	Evaluate(symbol string, series market.Series) (signal.Decision, error)
	MinBars() int
}

// Trader is the slice of the position manager the scheduler drives.
type Trader interface {
	Open(ctx context.Context, symbol string, instrument market.Instrument, decision signal.Decision, price float64) error
	Review(ctx context.Context, symbol string, price float64) error
	GuardDailyLimits(ctx context.Context, prices func(symbol string) (float64, bool)) bool
	OpenPositions() []*position.Position
}

// Scheduler runs the evaluation and monitoring loops until stopped.
type Scheduler struct {
	series   SeriesSource
	quoter   Quoter
	catalog  Resolver
	eval     Evaluator
	trader   Trader
	bus      *events.Bus
	log      *slog.Logger
	profile  signal.Profile
	symbols  []string
	workers  int
	barRes   string
	now      func() time.Time

	mu             sync.Mutex
	state          State
	suspendedUntil time.Time

	stop chan struct{}
	done sync.WaitGroup
}

// Options groups the scheduler's collaborators.
type Options struct {
	Series  SeriesSource
	Quoter  Quoter
	Catalog Resolver
	Eval    Evaluator
	Trader  Trader
	Bus     *events.Bus
	Log     *slog.Logger
	Profile signal.Profile
	Symbols []string
	Workers int    // concurrent symbol evaluations, default 4
	BarRes  string // candle resolution for evaluation, default HOUR
}

// New creates a scheduler in the RUNNING state.
func New(opts Options) *Scheduler {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.BarRes == "" {
		opts.BarRes = "HOUR"
	}
	return &Scheduler{
		series:  opts.Series,
		quoter:  opts.Quoter,
		catalog: opts.Catalog,
		eval:    opts.Eval,
		trader:  opts.Trader,
		bus:     opts.Bus,
		log:     opts.Log,
		profile: opts.Profile,
		symbols: opts.Symbols,
		workers: opts.Workers,
		barRes:  opts.BarRes,
		now:     time.Now,
		state:   StateRunning,
		stop:    make(chan struct{}),
	}
}

// Run starts both loops and blocks until Stop is called or the context is
// canceled. In-flight cycles finish before Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	s.done.Add(2)
	go s.loop(ctx, s.profile.EvalInterval, s.evalCycle)
	go s.loop(ctx, s.profile.PollInterval, s.monitorCycle)
	s.done.Wait()
}

// Stop signals both loops to exit after their current cycle.
func (s *Scheduler) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}

// Pause suspends new entries. Monitoring of open positions continues.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.state = StatePaused
	s.mu.Unlock()
	s.log.Info("scheduler paused")
}

// Resume re-enables new entries and clears any auth suspension.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.state = StateRunning
	s.suspendedUntil = time.Time{}
	s.mu.Unlock()
	s.log.Info("scheduler resumed")
}

// State returns the control state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, cycle func(context.Context)) {
	defer s.done.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// One immediate cycle so startup does not wait a full interval.
	cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			cycle(ctx)
		}
	}
}

// entriesAllowed reports whether the evaluation cycle may open positions.
func (s *Scheduler) entriesAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePaused {
		return false
	}
	return !s.now().Before(s.suspendedUntil)
}

// suspendEntries blocks new entries for the auth suspension window.
func (s *Scheduler) suspendEntries(err error) {
	s.mu.Lock()
	s.suspendedUntil = s.now().Add(authSuspension)
	until := s.suspendedUntil
	s.mu.Unlock()

	s.log.Error("authentication failing, suspending new entries", "until", until, "err", err)
	s.bus.Publish(events.New(events.KindAuthFailure, events.AuthFailure{Err: err.Error()}))
}

func isAuthFailure(err error) bool {
	return errors.Is(err, capital.ErrUnauthenticated) ||
		errors.Is(err, capital.ErrAuthExhausted) ||
		errors.Is(err, capital.ErrAuthRateLimited)
}

// evalCycle evaluates every watchlist symbol through a bounded worker
// pool and opens positions for actionable decisions.
func (s *Scheduler) evalCycle(ctx context.Context) {
	if !s.entriesAllowed() {
		return
	}

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for _, symbol := range s.symbols {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			s.evalSymbol(ctx, symbol)
		}(symbol)
	}
	wg.Wait()
}

func (s *Scheduler) evalSymbol(ctx context.Context, symbol string) {
	series, ok := s.series.Get(ctx, symbol, s.barRes, s.eval.MinBars())
	if !ok {
		return
	}

	decision, err := s.eval.Evaluate(symbol, series)
	if err != nil {
		s.log.Warn("evaluation failed", "symbol", symbol, "err", err)
		return
	}

	s.bus.Publish(events.New(events.KindSignalEvaluated, events.SignalEvaluated{
		Symbol:     symbol,
		Action:     string(decision.Action),
		Confidence: decision.Confidence,
	}))
	if decision.Action == signal.Hold {
		return
	}

	instrument, ok := s.catalog.Resolve(ctx, symbol)
	if !ok || !instrument.Tradeable() {
		return
	}

	last, ok := series.Last()
	if !ok {
		return
	}

	if err := s.trader.Open(ctx, symbol, instrument, decision, last.Close); err != nil {
		if isAuthFailure(err) {
			s.suspendEntries(err)
			return
		}
		s.log.Warn("entry failed", "symbol", symbol, "err", err)
	}
}

// monitorCycle guards the daily limits and reviews every open position
// against its current price. Runs even while entries are suspended.
func (s *Scheduler) monitorCycle(ctx context.Context) {
	lookup := func(symbol string) (float64, bool) {
		return s.quoter.Quote(ctx, symbol)
	}

	if s.trader.GuardDailyLimits(ctx, lookup) {
		return
	}

	for _, pos := range s.trader.OpenPositions() {
		price, ok := s.quoter.Quote(ctx, pos.Symbol)
		if !ok {
			continue
		}
		if err := s.trader.Review(ctx, pos.Symbol, price); err != nil {
			s.log.Warn("review failed", "symbol", pos.Symbol, "err", err)
		}
	}
}
