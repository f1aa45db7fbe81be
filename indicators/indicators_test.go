package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnmagusrecords/tradebot/market"
)

func series(closes ...float64) market.Series {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := make(market.Series, len(closes))
	for i, c := range closes {
		s[i] = market.Candle{Close: c, Time: base.Add(time.Duration(i) * time.Hour)}
	}
	return s
}

func TestSMA(t *testing.T) {
	s := series(1, 2, 3, 4, 5)

	v, err := SMA(s, 5)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	// Only the last period candles count.
	v, err = SMA(s, 2)
	require.NoError(t, err)
	assert.Equal(t, 4.5, v)
}

func TestSMAErrors(t *testing.T) {
	s := series(1, 2, 3)

	_, err := SMA(s, 0)
	assert.Error(t, err)

	_, err = SMA(s, 4)
	assert.Error(t, err)
}

func TestEMAFlatSeries(t *testing.T) {
	s := series(10, 10, 10, 10, 10, 10)
	v, err := EMA(s, 3)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, v, 1e-9)
}

func TestEMATracksTrend(t *testing.T) {
	up := series(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	ema, err := EMA(up, 5)
	require.NoError(t, err)
	sma, err := SMA(up, 5)
	require.NoError(t, err)

	// EMA weights recent closes more heavily than SMA in an uptrend.
	assert.Greater(t, ema, sma)
}

func TestRSIExtremes(t *testing.T) {
	up := series(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15)
	v, err := RSI(up, 14)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v, "all gains must give RSI 100")

	down := series(15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1)
	v, err = RSI(down, 14)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, v, 1e-9, "all losses must give RSI 0")
}

func TestRSIBalanced(t *testing.T) {
	closes := make([]float64, 0, 21)
	price := 100.0
	for i := 0; i < 21; i++ {
		closes = append(closes, price)
		if i%2 == 0 {
			price += 1
		} else {
			price -= 1
		}
	}
	v, err := RSI(series(closes...), 14)
	require.NoError(t, err)
	assert.Greater(t, v, 30.0)
	assert.Less(t, v, 70.0)
}

func TestRSINotEnoughData(t *testing.T) {
	_, err := RSI(series(1, 2, 3), 14)
	assert.Error(t, err)
}

func TestMACDTrendSign(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + float64(i) // steady uptrend
	}
	line, signalLine, err := MACD(series(closes...), 12, 26, 9)
	require.NoError(t, err)
	assert.Greater(t, line, 0.0, "uptrend MACD line must be positive")
	assert.Greater(t, signalLine, 0.0)
}

func TestMACDErrors(t *testing.T) {
	s := series(1, 2, 3, 4, 5)

	_, _, err := MACD(s, 26, 12, 9)
	assert.Error(t, err, "fast >= slow must be rejected")

	_, _, err = MACD(s, 12, 26, 9)
	assert.Error(t, err, "too few candles must be rejected")
}

func TestBollinger(t *testing.T) {
	flat := series(10, 10, 10, 10, 10)
	upper, lower, err := Bollinger(flat, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 10.0, upper)
	assert.Equal(t, 10.0, lower)

	varied := series(8, 9, 10, 11, 12)
	upper, lower, err = Bollinger(varied, 5, 2)
	require.NoError(t, err)
	assert.Greater(t, upper, 10.0)
	assert.Less(t, lower, 10.0)
	assert.InDelta(t, 20.0, upper+lower, 1e-9, "bands are symmetric around the SMA")
}
