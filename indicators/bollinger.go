package indicators

import (
	"fmt"
	"math"

	"github.com/johnmagusrecords/tradebot/market"
)

// Bollinger calculates the upper and lower Bollinger Bands: the period SMA
// of closes plus/minus width standard deviations (typically 20 and 2).
func Bollinger(candles market.Series, period int, width float64) (upper, lower float64, err error) {
	if width <= 0 {
		return 0, 0, fmt.Errorf("width must be positive, got %v", width)
	}
	mid, err := SMA(candles, period)
	if err != nil {
		return 0, 0, err
	}

	variance := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		d := candles[i].Close - mid
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(period))

	return mid + width*stddev, mid - width*stddev, nil
}
