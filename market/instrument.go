package market

import "strings"

// Instrument statuses as reported by the broker's market catalog.
const (
	StatusTradeable = "TRADEABLE"
	StatusClosed    = "CLOSED"
	StatusSuspended = "SUSPENDED"
)

// Instrument is a snapshot of one tradable market from the broker catalog.
// It is immutable; a fresh snapshot replaces it when the catalog refreshes.
type Instrument struct {
	Name        string  // human-readable display name, e.g. "Bitcoin/USD"
	Epic        string  // broker instrument identifier, e.g. "BTCUSD"
	Status      string  // TRADEABLE, CLOSED, ...
	MinDealSize float64 // broker minimum order size
}

// Tradeable reports whether orders can currently be placed on the instrument.
func (in Instrument) Tradeable() bool {
	return in.Status == StatusTradeable
}

var symbolStrip = strings.NewReplacer("/", "", "_", "", "-", "", " ", "")

// Normalize canonicalizes a user-entered symbol for catalog matching:
// surrounding whitespace is trimmed, separator characters ("/", "_", "-")
// and inner spaces removed, and the result upper-cased. Normalize is
// idempotent.
func Normalize(symbol string) string {
	return strings.ToUpper(symbolStrip.Replace(strings.TrimSpace(symbol)))
}
