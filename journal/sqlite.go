package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteJournal stores trade records in a local SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the journal database at path.
func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(r Record) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(id, time, symbol, action, size, entry_price, exit_price, stop, target, realized_pl, result, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Time, r.Symbol, r.Action, r.Size, r.EntryPrice,
		r.ExitPrice, r.Stop, r.Target, r.RealizedPL, r.Result, r.Reason,
	)
	return err
}

// ListBetween returns trades closed in [from, to), oldest first.
func (j *SQLiteJournal) ListBetween(from, to time.Time) ([]Record, error) {
	rows, err := j.db.Query(`
		SELECT id, time, symbol, action, size, entry_price, exit_price, stop, target, realized_pl, result, reason
		FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Time, &r.Symbol, &r.Action, &r.Size, &r.EntryPrice,
			&r.ExitPrice, &r.Stop, &r.Target, &r.RealizedPL, &r.Result, &r.Reason); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Summary aggregates win/loss counts and total P&L over a time range.
type Summary struct {
	Trades  int
	Wins    int
	Losses  int
	TotalPL float64
}

// Summarize computes a Summary for trades closed in [from, to).
func (j *SQLiteJournal) Summarize(from, to time.Time) (Summary, error) {
	records, err := j.ListBetween(from, to)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Trades: len(records)}
	for _, r := range records {
		s.TotalPL += r.RealizedPL
		if r.Result == ResultWin {
			s.Wins++
		} else {
			s.Losses++
		}
	}
	return s, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
