// Package journal persists sync-run history in a local SQLite database.
// It records pass summaries and per-record grant outcomes so an operator
// can inspect what a past run did without trawling logs. The journal is
// telemetry only — the remote store stays the single source of truth.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the journal database.
type DB struct {
	db *sql.DB
}

// Open creates or opens the journal database under dir.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "journal.db"))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	for _, stmt := range migrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate journal: %w", err)
		}
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error { return d.db.Close() }

// migrations returns the schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS sync_passes (
			run_id       TEXT PRIMARY KEY,
			started_at   TEXT NOT NULL,
			finished_at  TEXT NOT NULL,
			sources      INTEGER NOT NULL DEFAULT 0,
			granted      INTEGER NOT NULL DEFAULT 0,
			xp_granted   INTEGER NOT NULL DEFAULT 0,
			query_errors INTEGER NOT NULL DEFAULT 0,
			write_errors INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS grant_outcomes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			source     TEXT NOT NULL,
			record_id  TEXT NOT NULL,
			grant_key  TEXT NOT NULL,
			xp         INTEGER NOT NULL DEFAULT 0,
			status     TEXT NOT NULL,
			detail     TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_grant_run ON grant_outcomes(run_id)`,
	}
}

// ─── Pass Operations ────────────────────────────────────────────────────────

// Pass is one sync pass summary row.
type Pass struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Sources     int
	Granted     int
	XPGranted   int
	QueryErrors int
	WriteErrors int
}

// InsertPass records a completed pass.
func (d *DB) InsertPass(p Pass) error {
	_, err := d.db.Exec(`
		INSERT INTO sync_passes (run_id, started_at, finished_at, sources, granted, xp_granted, query_errors, write_errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.RunID, p.StartedAt.Format(time.RFC3339), p.FinishedAt.Format(time.RFC3339),
		p.Sources, p.Granted, p.XPGranted, p.QueryErrors, p.WriteErrors)
	return err
}

// RecentPasses returns the most recent passes, newest first.
func (d *DB) RecentPasses(limit int) ([]Pass, error) {
	rows, err := d.db.Query(`
		SELECT run_id, started_at, finished_at, sources, granted, xp_granted, query_errors, write_errors
		FROM sync_passes ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Pass
	for rows.Next() {
		var p Pass
		var started, finished string
		if err := rows.Scan(&p.RunID, &started, &finished, &p.Sources, &p.Granted, &p.XPGranted, &p.QueryErrors, &p.WriteErrors); err != nil {
			return nil, err
		}
		p.StartedAt, _ = time.Parse(time.RFC3339, started)
		p.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		result = append(result, p)
	}
	return result, rows.Err()
}

// ─── Grant Outcome Operations ───────────────────────────────────────────────

// Grant outcome statuses.
const (
	StatusGranted  = "granted"  // entry created and flag flipped
	StatusRepaired = "repaired" // entry already existed, flag flipped now
	StatusFailed   = "failed"   // skipped, eligible again next pass
)

// Grant is one per-record outcome row.
type Grant struct {
	RunID    string
	Source   string
	RecordID string
	GrantKey string
	XP       int
	Status   string
	Detail   string
}

// RecordGrant appends one grant outcome.
func (d *DB) RecordGrant(g Grant) error {
	_, err := d.db.Exec(`
		INSERT INTO grant_outcomes (run_id, source, record_id, grant_key, xp, status, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, g.RunID, g.Source, g.RecordID, g.GrantKey, g.XP, g.Status, g.Detail)
	return err
}

// GrantsForRun returns the grant outcomes of one pass in insertion order.
func (d *DB) GrantsForRun(runID string) ([]Grant, error) {
	rows, err := d.db.Query(`
		SELECT run_id, source, record_id, grant_key, xp, status, COALESCE(detail, '')
		FROM grant_outcomes WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.RunID, &g.Source, &g.RecordID, &g.GrantKey, &g.XP, &g.Status, &g.Detail); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}
