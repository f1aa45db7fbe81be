package indicators

import (
	"fmt"

	"github.com/johnmagusrecords/tradebot/market"
)

// MACD calculates the Moving Average Convergence Divergence line and its
// signal line using the standard fast/slow/signal periods (e.g. 12/26/9).
func MACD(candles market.Series, fast, slow, signal int) (line, signalLine float64, err error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return 0, 0, fmt.Errorf("periods must be positive, got %d/%d/%d", fast, slow, signal)
	}
	if fast >= slow {
		return 0, 0, fmt.Errorf("fast period %d must be below slow period %d", fast, slow)
	}
	need := slow + signal
	if len(candles) < need {
		return 0, 0, fmt.Errorf("not enough candles: need %d, got %d", need, len(candles))
	}

	closes := candles.Closes()
	fastEMA := emaSeries(closes, fast)
	slowEMA := emaSeries(closes, slow)

	// MACD line is defined from the first index where the slow EMA exists.
	macd := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		macd = append(macd, fastEMA[i]-slowEMA[i])
	}

	signalSeries := emaSeries(macd, signal)
	return macd[len(macd)-1], signalSeries[len(signalSeries)-1], nil
}
