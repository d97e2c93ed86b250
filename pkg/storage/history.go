// Package storage keeps a local SQLite ledger of download batches so past
// runs can be listed from the CLI and the web surface.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rubiojr/fingertips/pkg/download"
	"github.com/rubiojr/fingertips/pkg/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	area_type_id TEXT NOT NULL,
	options TEXT NOT NULL,
	combined_path TEXT NOT NULL DEFAULT '',
	combined_rows INTEGER NOT NULL DEFAULT 0,
	combined_error TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_batches_started_at ON batches(started_at);
CREATE TABLE IF NOT EXISTS outcomes (
	batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	indicator_id TEXT NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	path TEXT NOT NULL DEFAULT '',
	latest_period TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (batch_id, position)
);
`

// Fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultRecentLimit is used by Recent when limit is not positive.
const DefaultRecentLimit = 20

type History struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &History{db: db, path: path}, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *History) Path() string {
	return h.path
}

// Record stores a finished batch and its outcomes. Recording the same batch
// twice replaces the earlier entry.
func (h *History) Record(r *download.Report) error {
	opts, err := json.Marshal(r.Options)
	if err != nil {
		return fmt.Errorf("marshaling options: %w", err)
	}

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				log.ForService("storage").Warnf("failed to rollback transaction: %v", err)
			}
		}
	}()

	if _, err := tx.Exec(`DELETE FROM outcomes WHERE batch_id = ?`, r.ID); err != nil {
		return fmt.Errorf("clearing outcomes: %w", err)
	}
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO batches (id, area_type_id, options, combined_path, combined_rows, combined_error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AreaTypeID, string(opts), r.CombinedPath, r.CombinedRows, r.CombinedError,
		r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting batch %s: %w", r.ID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO outcomes (batch_id, position, indicator_id, name, status, row_count, path, latest_period, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i, o := range r.Outcomes {
		if _, err := stmt.Exec(r.ID, i, o.IndicatorID, o.Name, string(o.Status), o.Rows, o.Path, o.LatestPeriod, o.Error); err != nil {
			return fmt.Errorf("inserting outcome %s: %w", o.IndicatorID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch %s: %w", r.ID, err)
	}
	committed = true
	return nil
}

// Recent returns the most recent batches, newest first.
func (h *History) Recent(limit int) ([]*download.Report, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := h.db.Query(`
		SELECT id, area_type_id, options, combined_path, combined_rows, combined_error, started_at, finished_at
		FROM batches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var reports []*download.Report
	for rows.Next() {
		var (
			r                 download.Report
			opts              string
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.AreaTypeID, &opts, &r.CombinedPath, &r.CombinedRows, &r.CombinedError, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		if err := json.Unmarshal([]byte(opts), &r.Options); err != nil {
			return nil, fmt.Errorf("decoding options of batch %s: %w", r.ID, err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parsing start time of batch %s: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("parsing finish time of batch %s: %w", r.ID, err)
		}
		reports = append(reports, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batches: %w", err)
	}

	for _, r := range reports {
		if r.Outcomes, err = h.outcomes(r.ID); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

func (h *History) outcomes(batchID string) ([]download.Outcome, error) {
	rows, err := h.db.Query(`
		SELECT indicator_id, name, status, row_count, path, latest_period, error
		FROM outcomes WHERE batch_id = ? ORDER BY position`, batchID)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes of batch %s: %w", batchID, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := []download.Outcome{}
	for rows.Next() {
		var (
			o      download.Outcome
			status string
		)
		if err := rows.Scan(&o.IndicatorID, &o.Name, &status, &o.Rows, &o.Path, &o.LatestPeriod, &o.Error); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.Status = download.Status(status)
		out = append(out, o)
	}
	return out, rows.Err()
}
