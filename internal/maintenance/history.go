package maintenance

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"techlore/internal/logging"
)

// History is the durable ledger of maintenance runs, kept in a small
// SQLite database beside the experience file. It exists so an operator can
// answer "when did we last clean, and what did it remove" without log
// archaeology.
type History struct {
	db *sql.DB
}

// Entry is one row of the ledger.
type Entry struct {
	ID                int64
	RanAt             time.Time
	Command           string
	Processed         int
	Kept              int
	RemovedInvalid    int
	RemovedDuplicates int
	DurationMillis    int64
}

const historySchema = `
CREATE TABLE IF NOT EXISTS maintenance_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ran_at TIMESTAMP NOT NULL,
	command TEXT NOT NULL,
	processed INTEGER NOT NULL,
	kept INTEGER NOT NULL,
	removed_invalid INTEGER NOT NULL,
	removed_duplicates INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_ran_at ON maintenance_runs(ran_at DESC);
`

// OpenHistory opens (creating if needed) the ledger database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	logging.MaintenanceDebug("History ledger opened: %s", path)
	return &History{db: db}, nil
}

// Append records a completed maintenance pass.
func (h *History) Append(report *Report) error {
	_, err := h.db.Exec(
		`INSERT INTO maintenance_runs
		 (ran_at, command, processed, kept, removed_invalid, removed_duplicates, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.StartedAt, report.Command, report.Processed, report.Kept,
		report.RemovedInvalid, report.RemovedDuplicates, report.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// Recent returns the newest n ledger entries, most recent first.
func (h *History) Recent(n int) ([]Entry, error) {
	rows, err := h.db.Query(
		`SELECT id, ran_at, command, processed, kept, removed_invalid, removed_duplicates, duration_ms
		 FROM maintenance_runs ORDER BY ran_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RanAt, &e.Command, &e.Processed, &e.Kept,
			&e.RemovedInvalid, &e.RemovedDuplicates, &e.DurationMillis); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database handle.
func (h *History) Close() error {
	return h.db.Close()
}
