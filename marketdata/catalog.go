// Package marketdata provides the TTL-cached instrument catalog and the
// TTL-cached historical price series store that signal evaluation reads
// from.
package marketdata

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/johnmagusrecords/tradebot/market"
)

// DefaultTTL is how long catalog and series entries are served before a
// refresh attempt.
const DefaultTTL = time.Hour

// MarketLister is the slice of the broker client the catalog needs.
type MarketLister interface {
	GetMarkets(ctx context.Context, searchTerm string) ([]market.Instrument, error)
}

// Miss records a failed symbol resolution for offline review.
type Miss struct {
	Symbol     string
	Normalized string
	Time       time.Time
}

// Catalog resolves free-text symbols against a TTL-cached instrument list.
// Read-mostly: many concurrent readers, single writer during refresh.
type Catalog struct {
	client MarketLister
	ttl    time.Duration
	log    *slog.Logger
	now    func() time.Time

	mu          sync.RWMutex
	instruments []market.Instrument
	fetchedAt   time.Time
	misses      []Miss
}

// NewCatalog creates a catalog with the given entry TTL; ttl <= 0 selects
// DefaultTTL.
func NewCatalog(client MarketLister, ttl time.Duration, log *slog.Logger) *Catalog {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Catalog{
		client: client,
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

// Resolve maps a user-entered symbol to a concrete instrument. The catalog
// is refreshed first if stale (a fetch failure falls back to the stale
// list). Matching order, first hit wins:
//
//  1. exact match of the normalized symbol against the normalized name
//  2. substring match, either direction, against the name
//  3. substring match, either direction, against the epic
//
// A miss is recorded and returns ok=false; callers treat that as "cannot
// trade this symbol now", not a fatal error.
func (c *Catalog) Resolve(ctx context.Context, symbol string) (market.Instrument, bool) {
	c.refreshIfStale(ctx)

	norm := market.Normalize(symbol)

	c.mu.RLock()
	instruments := c.instruments
	c.mu.RUnlock()

	for _, in := range instruments {
		if market.Normalize(in.Name) == norm {
			c.log.Debug("resolved by exact name", "symbol", symbol, "epic", in.Epic)
			return in, true
		}
	}
	for _, in := range instruments {
		if containsEither(market.Normalize(in.Name), norm) {
			c.log.Debug("resolved by name substring", "symbol", symbol, "epic", in.Epic)
			return in, true
		}
	}
	for _, in := range instruments {
		if containsEither(market.Normalize(in.Epic), norm) {
			c.log.Debug("resolved by epic substring", "symbol", symbol, "epic", in.Epic)
			return in, true
		}
	}

	c.mu.Lock()
	c.misses = append(c.misses, Miss{Symbol: symbol, Normalized: norm, Time: c.now()})
	c.mu.Unlock()
	c.log.Warn("symbol not resolved", "symbol", symbol, "normalized", norm, "candidates", len(instruments))
	return market.Instrument{}, false
}

// Misses returns a copy of the recorded resolution failures.
func (c *Catalog) Misses() []Miss {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Miss, len(c.misses))
	copy(out, c.misses)
	return out
}

func (c *Catalog) refreshIfStale(ctx context.Context) {
	c.mu.RLock()
	fresh := !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return
	}

	instruments, err := c.client.GetMarkets(ctx, "")
	if err != nil {
		// Serve the stale list rather than failing the resolve.
		c.log.Warn("catalog refresh failed, using stale cache", "err", err)
		return
	}

	c.mu.Lock()
	c.instruments = instruments
	c.fetchedAt = c.now()
	c.mu.Unlock()
	c.log.Info("catalog refreshed", "instruments", len(instruments))
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
