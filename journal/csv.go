package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSVJournal appends trade records to a CSV file.
type CSVJournal struct {
	w *csv.Writer
	f *os.File
}

// NewCSV creates (truncating) the trades CSV at path and writes the header.
func NewCSV(path string) (*CSVJournal, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "time", "symbol", "action", "size", "entry_price", "exit_price",
		"stop", "target", "realized_pl", "result", "reason",
	}); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, err
	}

	return &CSVJournal{w: w, f: f}, nil
}

func (j *CSVJournal) RecordTrade(r Record) error {
	j.w.Write([]string{
		r.ID,
		r.Time.Format(time.RFC3339),
		r.Symbol,
		r.Action,
		f(r.Size),
		f(r.EntryPrice),
		f(r.ExitPrice),
		f(r.Stop),
		f(r.Target),
		f(r.RealizedPL),
		r.Result,
		r.Reason,
	})
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
