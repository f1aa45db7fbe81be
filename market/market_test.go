package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"btc-usd", "BTCUSD"},
		{"BTC/USD", "BTCUSD"},
		{"  eur_usd ", "EURUSD"},
		{"Natural Gas", "NATURALGAS"},
		{"BTCUSD", "BTCUSD"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"btc-usd", "EUR/USD", "gold", " sp-500 ", ""}
	for _, s := range inputs {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "Normalize not idempotent for %q", s)
	}
}

func TestSeriesSort(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := Series{
		{Close: 3, Time: base.Add(2 * time.Hour)},
		{Close: 1, Time: base},
		{Close: 2, Time: base.Add(time.Hour)},
	}

	s.Sort()

	assert.Equal(t, []float64{1, 2, 3}, s.Closes())

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 3.0, last.Close)
}

func TestSeriesLastEmpty(t *testing.T) {
	var s Series
	_, ok := s.Last()
	assert.False(t, ok)
}

func TestInstrumentTradeable(t *testing.T) {
	assert.True(t, Instrument{Status: StatusTradeable}.Tradeable())
	assert.False(t, Instrument{Status: StatusClosed}.Tradeable())
	assert.False(t, Instrument{}.Tradeable())
}
