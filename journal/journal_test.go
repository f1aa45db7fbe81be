package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(id string, ts time.Time, pl float64) Record {
	result := ResultWin
	if pl < 0 {
		result = ResultLoss
	}
	return Record{
		ID:         id,
		Time:       ts,
		Symbol:     "BTCUSD",
		Action:     "BUY",
		Size:       0.5,
		EntryPrice: 100,
		ExitPrice:  100 + pl/0.5,
		Stop:       95,
		Target:     110,
		RealizedPL: pl,
		Result:     result,
		Reason:     "TakeProfit",
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	defer j.Close()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleRecord("01A", base, 25)))
	require.NoError(t, j.RecordTrade(sampleRecord("01B", base.Add(time.Hour), -10)))
	require.NoError(t, j.RecordTrade(sampleRecord("01C", base.Add(48*time.Hour), 5)))

	records, err := j.ListBetween(base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "01A", records[0].ID)
	assert.Equal(t, "BTCUSD", records[0].Symbol)
	assert.Equal(t, 25.0, records[0].RealizedPL)
	assert.Equal(t, ResultWin, records[0].Result)
	assert.Equal(t, ResultLoss, records[1].Result)
}

func TestSQLiteSummarize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	defer j.Close()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleRecord("01A", base, 25)))
	require.NoError(t, j.RecordTrade(sampleRecord("01B", base.Add(time.Minute), -10)))
	require.NoError(t, j.RecordTrade(sampleRecord("01C", base.Add(2*time.Minute), 15)))

	s, err := j.Summarize(base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, 30.0, s.TotalPL, 1e-9)
}

func TestCSVJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleRecord("01A", base, 25)))
	require.NoError(t, j.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2) // header + one trade

	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "01A", rows[1][0])
	assert.Equal(t, "BTCUSD", rows[1][2])
	assert.Equal(t, "WIN", rows[1][10])
}
