// Package risk converts account balance and risk budget into position
// sizes, and tracks realized P&L against daily limits.
package risk

import (
	"errors"
	"math"
)

// ErrZeroDistance means entry and stop are equal, so no size can be derived.
// Callers skip the trade for the current cycle.
var ErrZeroDistance = errors.New("risk: zero stop distance")

// SizeFor derives a position size from the amount at risk and the stop
// distance, clamped to the instrument's minimum deal size.
//
//	riskAmount = balance * riskPercent / 100
//	size       = max(minSize, riskAmount / |entry - stop|)
func SizeFor(balance, riskPercent, entry, stop, minSize float64) (float64, error) {
	distance := math.Abs(entry - stop)
	if distance == 0 {
		return 0, ErrZeroDistance
	}

	riskAmount := balance * riskPercent / 100
	size := riskAmount / distance
	if size < minSize {
		size = minSize
	}
	return size, nil
}
