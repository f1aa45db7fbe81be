package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeFor(t *testing.T) {
	// 2% of 10000 = 200 at risk; stop distance 5 -> 40 units.
	size, err := SizeFor(10000, 2, 100, 95, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 40.0, size)
}

func TestSizeForShortDirection(t *testing.T) {
	// Distance is absolute; a stop above entry sizes the same.
	size, err := SizeFor(10000, 2, 95, 100, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 40.0, size)
}

func TestSizeForZeroDistance(t *testing.T) {
	_, err := SizeFor(10000, 2, 100, 100, 0.1)
	assert.ErrorIs(t, err, ErrZeroDistance)
}

func TestSizeForMinimumClamp(t *testing.T) {
	// Tiny risk budget below broker minimum clamps up.
	size, err := SizeFor(100, 0.1, 100, 50, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, size)
}

func TestDailyTrackerLossLimit(t *testing.T) {
	tr := NewDailyTracker(100, 200)

	tr.Add(-50)
	_, breached := tr.Breached()
	assert.False(t, breached)

	tr.Add(-60)
	kind, breached := tr.Breached()
	assert.True(t, breached)
	assert.Equal(t, LimitLoss, kind)
	assert.Equal(t, -110.0, tr.Realized())
}

func TestDailyTrackerProfitLimit(t *testing.T) {
	tr := NewDailyTracker(100, 200)

	tr.Add(150)
	_, breached := tr.Breached()
	assert.False(t, breached)

	tr.Add(75)
	kind, breached := tr.Breached()
	assert.True(t, breached)
	assert.Equal(t, LimitProfit, kind)
}

func TestDailyTrackerDisabledLimits(t *testing.T) {
	tr := NewDailyTracker(0, 0)
	tr.Add(-1e6)
	_, breached := tr.Breached()
	assert.False(t, breached)
}

func TestDailyTrackerResetsAtBoundary(t *testing.T) {
	tr := NewDailyTracker(100, 0)

	now := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	tr.day = dayStart(now)

	tr.Add(-150)
	_, breached := tr.Breached()
	require.True(t, breached)

	// Next UTC day: accumulator resets, trading resumes.
	now = time.Date(2025, 6, 2, 0, 30, 0, 0, time.UTC)
	_, breached = tr.Breached()
	assert.False(t, breached)
	assert.Equal(t, 0.0, tr.Realized())
}
