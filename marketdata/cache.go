package marketdata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/johnmagusrecords/tradebot/market"
)

// PriceFetcher is the slice of the broker client the series cache needs.
type PriceFetcher interface {
	GetHistoricalPrices(ctx context.Context, epic, resolution string, max int) (market.Series, error)
}

// Resolver maps user symbols to instruments; implemented by Catalog.
type Resolver interface {
	Resolve(ctx context.Context, symbol string) (market.Instrument, bool)
}

type seriesEntry struct {
	series    market.Series
	fetchedAt time.Time
}

func (e seriesEntry) fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.fetchedAt) < ttl
}

// SeriesCache caches historical price series per normalized symbol with a
// TTL. Entries are replaced wholesale on refresh, never patched.
type SeriesCache struct {
	client  PriceFetcher
	catalog Resolver
	ttl     time.Duration
	log     *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]seriesEntry
}

// NewSeriesCache creates a series cache; ttl <= 0 selects DefaultTTL.
func NewSeriesCache(client PriceFetcher, catalog Resolver, ttl time.Duration, log *slog.Logger) *SeriesCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SeriesCache{
		client:  client,
		catalog: catalog,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
		entries: make(map[string]seriesEntry),
	}
}

// Get returns the cached series for a symbol, refetching on miss or TTL
// expiry. ok=false means the instrument could not be resolved or too little
// data exists; the caller skips the symbol for this cycle.
func (sc *SeriesCache) Get(ctx context.Context, symbol, resolution string, barCount int) (market.Series, bool) {
	key := market.Normalize(symbol)

	sc.mu.RLock()
	entry, exists := sc.entries[key]
	sc.mu.RUnlock()
	if exists && entry.fresh(sc.now(), sc.ttl) {
		return entry.series, true
	}

	instrument, ok := sc.catalog.Resolve(ctx, symbol)
	if !ok {
		return nil, false
	}

	series, err := sc.client.GetHistoricalPrices(ctx, instrument.Epic, resolution, barCount)
	if err != nil {
		sc.log.Warn("price fetch failed", "symbol", symbol, "epic", instrument.Epic, "err", err)
		return nil, false
	}
	if len(series) < 2 {
		sc.log.Warn("insufficient price data", "symbol", symbol, "bars", len(series))
		return nil, false
	}
	series.Sort()

	sc.mu.Lock()
	sc.entries[key] = seriesEntry{series: series, fetchedAt: sc.now()}
	sc.mu.Unlock()

	return series, true
}

// Invalidate drops a symbol's cache entry, forcing the next Get to refetch.
func (sc *SeriesCache) Invalidate(symbol string) {
	sc.mu.Lock()
	delete(sc.entries, market.Normalize(symbol))
	sc.mu.Unlock()
}
