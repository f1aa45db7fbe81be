// Package market defines the core market data types: candles, price series,
// and tradable instruments.
package market

import (
	"sort"
	"time"
)

// Candle represents OHLC (Open, High, Low, Close) candlestick data.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Time   time.Time
	Volume float64
}

// Series is an ordered sequence of candles, ascending by time. A series is
// always replaced wholesale on refresh, never partially patched.
type Series []Candle

// Sort orders the series ascending by candle time.
func (s Series) Sort() {
	sort.Slice(s, func(i, j int) bool {
		return s[i].Time.Before(s[j].Time)
	})
}

// Closes returns the close prices in series order.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, c := range s {
		closes[i] = c.Close
	}
	return closes
}

// Last returns the most recent candle. The second return value is false when
// the series is empty.
func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}
