package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnmagusrecords/tradebot/market"
)

type staticSentiment struct{ score float64 }

func (s staticSentiment) Score(string) float64 { return s.score }

func balanced() Profile {
	p, _ := ProfileByName("balanced")
	return p
}

func newTestAggregator(ratio float64, sentiment SentimentSource) *Aggregator {
	cfg := DefaultConfig()
	cfg.AgreementRatio = ratio
	return NewAggregator(cfg, balanced(), sentiment)
}

// zigzagSeries walks from start by up/down alternating steps for n bars.
func zigzagSeries(start, up, down float64, n int) market.Series {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := make(market.Series, 0, n+1)
	price := start
	s = append(s, market.Candle{Close: price, Time: base})
	for i := 1; i <= n; i++ {
		if i%2 == 1 {
			price += up
		} else {
			price -= down
		}
		s = append(s, market.Candle{Close: price, Time: base.Add(time.Duration(i) * time.Hour)})
	}
	return s
}

func TestReduceAllBullish(t *testing.T) {
	a := newTestAggregator(0.6, nil)
	d := a.reduce(100, []int{1, 1, 1, 1, 1})

	assert.Equal(t, Buy, d.Action)
	assert.Equal(t, 1.0, d.Confidence)
	assert.Greater(t, d.TakeProfit, 100.0)
	assert.Less(t, d.StopLoss, 100.0)
}

func TestReduceFlipSymmetry(t *testing.T) {
	a := newTestAggregator(0.6, nil)

	bull := a.reduce(100, []int{1, 1, 1, 1, 1})
	bear := a.reduce(100, []int{-1, -1, -1, -1, -1})

	assert.Equal(t, Buy, bull.Action)
	assert.Equal(t, Sell, bear.Action)
	assert.Equal(t, bull.Confidence, bear.Confidence)

	// Proposals flip around the price in the trade direction.
	assert.Less(t, bear.TakeProfit, 100.0)
	assert.Greater(t, bear.StopLoss, 100.0)
}

func TestReduceHoldBelowThreshold(t *testing.T) {
	a := newTestAggregator(0.6, nil)

	d := a.reduce(100, []int{1, 1, 1, 0, 0})
	assert.Equal(t, Hold, d.Action)
	assert.Equal(t, 0.6, d.Confidence)
	assert.Zero(t, d.TakeProfit)
	assert.Zero(t, d.StopLoss)

	d = a.reduce(100, []int{1, -1, 1, -1, 0})
	assert.Equal(t, Hold, d.Action)
	assert.Equal(t, 0.0, d.Confidence)
}

func TestEvaluateRisingSeriesBuys(t *testing.T) {
	// 100 -> ~110 over 40 bars with pullbacks: trend, MACD, and sentiment
	// vote bullish; RSI and Bollinger stay neutral.
	series := zigzagSeries(100, 1.0, 0.5, 40)
	a := newTestAggregator(0.5, staticSentiment{score: 0.5})

	d, err := a.Evaluate("BTCUSD", series)
	require.NoError(t, err)

	assert.Equal(t, Buy, d.Action)
	assert.GreaterOrEqual(t, d.Confidence, 0.6)

	last, _ := series.Last()
	assert.Greater(t, d.TakeProfit, last.Close)
	assert.Less(t, d.StopLoss, last.Close)
}

func TestEvaluateFallingSeriesSells(t *testing.T) {
	series := zigzagSeries(110, -1.0, -0.5, 40)
	a := newTestAggregator(0.5, staticSentiment{score: -0.5})

	d, err := a.Evaluate("BTCUSD", series)
	require.NoError(t, err)

	assert.Equal(t, Sell, d.Action)
	assert.GreaterOrEqual(t, d.Confidence, 0.6)
}

func TestEvaluateFlatSeriesHolds(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	series := make(market.Series, 40)
	for i := range series {
		series[i] = market.Candle{Close: 100, Time: base.Add(time.Duration(i) * time.Hour)}
	}

	a := newTestAggregator(0.6, nil)
	d, err := a.Evaluate("BTCUSD", series)
	require.NoError(t, err)
	assert.Equal(t, Hold, d.Action)
}

func TestEvaluateTooFewBars(t *testing.T) {
	a := newTestAggregator(0.6, nil)
	_, err := a.Evaluate("BTCUSD", zigzagSeries(100, 1, 0.5, 10))
	assert.Error(t, err)
}

func TestMinBars(t *testing.T) {
	a := newTestAggregator(0.6, nil)
	assert.Equal(t, 35, a.MinBars())
}

func TestProfileByName(t *testing.T) {
	for _, name := range []string{"safe", "balanced", "aggressive"} {
		p, err := ProfileByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name)
		assert.Greater(t, p.TrailingTriggerPct, p.BreakevenTriggerPct)
	}

	_, err := ProfileByName("yolo")
	assert.Error(t, err)
}
