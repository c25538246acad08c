// Package colconfig is the durable record of which intermediate-table
// columns participate in the master dataset. State lives in SQLite and is
// the single source of truth the assembly engine reads snapshots of.
package colconfig

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/hurricane-panel/internal/frame"
)

// ErrNotFound is returned when a mutation references an entry the latest
// scan never introduced.
var ErrNotFound = errors.New("column config entry not found")

// Entry is one (dataset, column) configuration record.
type Entry struct {
	Dataset   string `json:"dataset"`
	Column    string `json:"column"`
	Include   bool   `json:"include"`
	Rename    string `json:"rename,omitempty"`
	DType     string `json:"dtype"`
	RowCount  int    `json:"row_count"`
	TotalRows int    `json:"total_rows"`
}

// Store persists column configuration in SQLite. Reads may run
// concurrently; writes are serialized by a single mutex so concurrent
// mutations for the same key are last-write-wins by arrival order.
type Store struct {
	mu       sync.Mutex
	db       *sql.DB
	logger   *slog.Logger
	onChange func()
}

const schema = `
CREATE TABLE IF NOT EXISTS column_config (
    dataset     TEXT NOT NULL,
    column_name TEXT NOT NULL,
    include     INTEGER NOT NULL DEFAULT 0,
    rename_to   TEXT NOT NULL DEFAULT '',
    dtype       TEXT NOT NULL DEFAULT 'unknown',
    row_count   INTEGER NOT NULL DEFAULT 0,
    total_rows  INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (dataset, column_name)
);`

// Open connects to (or creates) the configuration database and applies
// the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open column config db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply column config schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SetOnChange registers the callback invoked after every successful
// mutation. The rebuild controller uses it to schedule builds.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Scan is additive: new (dataset, column) pairs are introduced excluded,
// while metadata (dtype, row counts) is refreshed for pairs already known.
// A rescan never reverts operator include/rename decisions.
func (s *Store) Scan(tables map[string]*frame.Table) (added int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("scan: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var before int
	if err = tx.QueryRow(`SELECT COUNT(*) FROM column_config`).Scan(&before); err != nil {
		return 0, fmt.Errorf("scan: count: %w", err)
	}

	datasets := make([]string, 0, len(tables))
	for key := range tables {
		datasets = append(datasets, key)
	}
	sort.Strings(datasets)

	for _, dataset := range datasets {
		t := tables[dataset]
		for _, col := range t.Columns() {
			if _, execErr := tx.Exec(`
				INSERT INTO column_config (dataset, column_name, dtype, row_count, total_rows)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (dataset, column_name) DO UPDATE SET
					dtype = excluded.dtype,
					row_count = excluded.row_count,
					total_rows = excluded.total_rows`,
				dataset, col, inferDType(t, col), t.NonMissingCount(col), t.NumRows()); execErr != nil {
				err = fmt.Errorf("scan %s/%s: %w", dataset, col, execErr)
				return 0, err
			}
		}
	}

	var after int
	if err = tx.QueryRow(`SELECT COUNT(*) FROM column_config`).Scan(&after); err != nil {
		return 0, fmt.Errorf("scan: count: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("scan: commit: %w", err)
	}
	added = after - before

	s.logger.Info("column scan complete", "datasets", len(tables), "entries_added", added, "entries_total", after)
	// No change notification: scan-introduced columns start excluded, so
	// the master dataset is unaffected until an operator includes one.
	return added, nil
}

// SetInclude toggles a column's participation in the master dataset.
func (s *Store) SetInclude(dataset, column string, include bool) error {
	return s.mutate("set include",
		`UPDATE column_config SET include = ? WHERE dataset = ? AND column_name = ?`,
		boolToInt(include), dataset, column)
}

// SetRename records the output name for a column; an empty name clears it.
func (s *Store) SetRename(dataset, column, rename string) error {
	return s.mutate("set rename",
		`UPDATE column_config SET rename_to = ? WHERE dataset = ? AND column_name = ?`,
		rename, dataset, column)
}

// Delete removes an entry, making the column ineligible for the next
// build until a rescan reintroduces it.
func (s *Store) Delete(dataset, column string) error {
	return s.mutate("delete",
		`DELETE FROM column_config WHERE dataset = ? AND column_name = ?`,
		dataset, column)
}

// Reset excludes every column and clears renames.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE column_config SET include = 0, rename_to = ''`); err != nil {
		return fmt.Errorf("reset column config: %w", err)
	}
	s.logger.Info("column config reset")
	s.notifyLocked()
	return nil
}

// Snapshot returns every entry ordered by (dataset, column). The assembly
// engine builds from a snapshot, never from live store state.
func (s *Store) Snapshot() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT dataset, column_name, include, rename_to, dtype, row_count, total_rows
		FROM column_config
		ORDER BY dataset, column_name`)
	if err != nil {
		return nil, fmt.Errorf("snapshot column config: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var include int
		if err := rows.Scan(&e.Dataset, &e.Column, &include, &e.Rename, &e.DType, &e.RowCount, &e.TotalRows); err != nil {
			return nil, fmt.Errorf("snapshot column config: %w", err)
		}
		e.Include = include != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) mutate(op, query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.notifyLocked()
	return nil
}

func (s *Store) notifyLocked() {
	if s.onChange != nil {
		s.onChange()
	}
}

func inferDType(t *frame.Table, col string) string {
	counts := make(map[frame.Kind]int)
	for row := 0; row < t.NumRows(); row++ {
		v := t.Value(row, col)
		if v.IsMissing() {
			continue
		}
		counts[v.Kind()]++
	}
	best, bestN := frame.KindMissing, 0
	for k, n := range counts {
		if n > bestN {
			best, bestN = k, n
		}
	}
	if bestN == 0 {
		return "unknown"
	}
	return best.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
