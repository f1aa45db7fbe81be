package marketdata

import (
	"context"
	"log/slog"
)

// quoteBars is the smallest request the price endpoint accepts that still
// yields a completed bar.
const quoteBars = 2

// Quoter fetches the latest traded price for a symbol. Unlike SeriesCache
// it never caches, so monitoring always sees a current value.
type Quoter struct {
	client     PriceFetcher
	catalog    Resolver
	resolution string
	log        *slog.Logger
}

// NewQuoter creates a quoter reading one-minute bars.
func NewQuoter(client PriceFetcher, catalog Resolver, log *slog.Logger) *Quoter {
	return &Quoter{client: client, catalog: catalog, resolution: "MINUTE", log: log}
}

// Quote returns the most recent close for a symbol. ok=false means the
// symbol could not be resolved or no price came back; the caller skips
// this cycle.
func (q *Quoter) Quote(ctx context.Context, symbol string) (float64, bool) {
	instrument, ok := q.catalog.Resolve(ctx, symbol)
	if !ok {
		return 0, false
	}

	series, err := q.client.GetHistoricalPrices(ctx, instrument.Epic, q.resolution, quoteBars)
	if err != nil {
		q.log.Warn("quote fetch failed", "symbol", symbol, "epic", instrument.Epic, "err", err)
		return 0, false
	}
	series.Sort()

	last, ok := series.Last()
	if !ok {
		return 0, false
	}
	return last.Close, true
}
