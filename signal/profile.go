package signal

import (
	"fmt"
	"time"
)

// Profile bundles the tunables selected by a risk profile name. Percentages
// are expressed as fractions (0.02 = 2%).
type Profile struct {
	Name string

	// Scheduler intervals.
	EvalInterval time.Duration // new-entry evaluation cycle
	PollInterval time.Duration // open-position monitoring cycle

	// Position management triggers.
	BreakevenTriggerPct float64 // unrealized gain that moves the stop to entry
	TrailingTriggerPct  float64 // unrealized gain that starts trailing the target
	TrailingStepPct     float64 // how far the target moves, as a fraction of current price

	// Decision proposal offsets from the latest close.
	TakeProfitPct float64
	StopLossPct   float64

	// Sizing.
	RiskPercent float64 // percent of balance risked per trade
}

// Profiles indexed by name.
var profiles = map[string]Profile{
	"safe": {
		Name:                "safe",
		EvalInterval:        600 * time.Second,
		PollInterval:        60 * time.Second,
		BreakevenTriggerPct: 0.005,
		TrailingTriggerPct:  0.01,
		TrailingStepPct:     0.005,
		TakeProfitPct:       0.015,
		StopLossPct:         0.0075,
		RiskPercent:         1,
	},
	"balanced": {
		Name:                "balanced",
		EvalInterval:        300 * time.Second,
		PollInterval:        45 * time.Second,
		BreakevenTriggerPct: 0.0075,
		TrailingTriggerPct:  0.015,
		TrailingStepPct:     0.0075,
		TakeProfitPct:       0.025,
		StopLossPct:         0.0125,
		RiskPercent:         2,
	},
	"aggressive": {
		Name:                "aggressive",
		EvalInterval:        120 * time.Second,
		PollInterval:        30 * time.Second,
		BreakevenTriggerPct: 0.01,
		TrailingTriggerPct:  0.02,
		TrailingStepPct:     0.01,
		TakeProfitPct:       0.04,
		StopLossPct:         0.02,
		RiskPercent:         3,
	},
}

// ProfileByName returns the named risk profile ("safe", "balanced",
// "aggressive"), case sensitive on the lowercase names used in config.
func ProfileByName(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown risk profile %q (supported: safe, balanced, aggressive)", name)
	}
	return p, nil
}
