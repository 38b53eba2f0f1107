package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/lmikkelsen/submerge/internal/batch"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	succeeded INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	bytes_written INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS pairs (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	video TEXT NOT NULL,
	subtitle TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS outcomes (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	video TEXT NOT NULL DEFAULT '',
	subtitle TEXT NOT NULL DEFAULT '',
	line TEXT NOT NULL,
	log TEXT NOT NULL DEFAULT '',
	ok INTEGER NOT NULL DEFAULT 0,
	bytes INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL,
	applied_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS stats_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.RWMutex // Protects concurrent access
	path string
}

// NewSQLiteStore creates a new SQLite-backed store.
// The database file is created if it doesn't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Create schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// SaveRun persists a run, replacing any previous row with the same ID along
// with its pairs and outcomes.
func (s *SQLiteStore) SaveRun(run *batch.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO runs (id, status, succeeded, failed, bytes_written, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, string(run.Status), run.Succeeded, run.Failed, run.BytesWritten,
		formatTime(run.StartedAt), formatTimePtr(run.FinishedAt),
	)
	if err != nil {
		return err
	}

	// Replace the dependent rows wholesale; a run's pair list never changes
	// but its outcomes arrive all at once on completion.
	if _, err := tx.Exec("DELETE FROM pairs WHERE run_id = ?", run.ID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM outcomes WHERE run_id = ?", run.ID); err != nil {
		return err
	}

	for i := range run.Videos {
		subtitle := ""
		if i < len(run.Subtitles) {
			subtitle = run.Subtitles[i]
		}
		if _, err := tx.Exec(
			"INSERT INTO pairs (run_id, position, video, subtitle) VALUES (?, ?, ?, ?)",
			run.ID, i, run.Videos[i], subtitle,
		); err != nil {
			return err
		}
	}

	for _, o := range run.Outcomes {
		if _, err := tx.Exec(`
			INSERT INTO outcomes (run_id, position, video, subtitle, line, log, ok, bytes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, o.Index, o.Video, o.Subtitle, o.Line, o.Log, boolToInt(o.OK), o.Bytes); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run by ID. Returns nil if not found.
func (s *SQLiteStore) GetRun(id string) (*batch.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, status, succeeded, failed, bytes_written, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadDetails(run); err != nil {
		return nil, err
	}
	return run, nil
}

// DeleteRun removes a run and its pairs and outcomes by ID.
func (s *SQLiteStore) DeleteRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Cascade removes the pairs and outcomes rows
	_, err := s.db.Exec("DELETE FROM runs WHERE id = ?", id)
	return err
}

// GetAllRuns returns all runs in order of creation (oldest first).
func (s *SQLiteStore) GetAllRuns() ([]*batch.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRuns("SELECT id, status, succeeded, failed, bytes_written, started_at, finished_at FROM runs ORDER BY started_at ASC")
}

// GetRunsByStatus returns all runs with the given status.
func (s *SQLiteStore) GetRunsByStatus(status batch.Status) ([]*batch.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRuns(
		"SELECT id, status, succeeded, failed, bytes_written, started_at, finished_at FROM runs WHERE status = ? ORDER BY started_at ASC",
		string(status),
	)
}

func (s *SQLiteStore) queryRuns(query string, args ...interface{}) ([]*batch.Run, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*batch.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, run := range runs {
		if err := s.loadDetails(run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// loadDetails fills in a run's pair lists and outcomes in position order.
func (s *SQLiteStore) loadDetails(run *batch.Run) error {
	rows, err := s.db.Query(
		"SELECT video, subtitle FROM pairs WHERE run_id = ? ORDER BY position ASC",
		run.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var video, subtitle string
		if err := rows.Scan(&video, &subtitle); err != nil {
			return err
		}
		run.Videos = append(run.Videos, video)
		run.Subtitles = append(run.Subtitles, subtitle)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	orows, err := s.db.Query(`
		SELECT position, video, subtitle, line, log, ok, bytes
		FROM outcomes WHERE run_id = ? ORDER BY position ASC
	`, run.ID)
	if err != nil {
		return err
	}
	defer orows.Close()

	for orows.Next() {
		var o batch.Outcome
		var ok int
		if err := orows.Scan(&o.Index, &o.Video, &o.Subtitle, &o.Line, &o.Log, &ok, &o.Bytes); err != nil {
			return err
		}
		o.OK = ok != 0
		run.Outcomes = append(run.Outcomes, o)
	}
	return orows.Err()
}

// ResetRunningRuns marks any run still recorded as running as interrupted.
// Called on startup to recover from a process that died mid-run.
func (s *SQLiteStore) ResetRunningRuns() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		UPDATE runs
		SET status = ?, finished_at = ?
		WHERE status = ?
	`, string(batch.StatusInterrupted), formatTime(time.Now()), string(batch.StatusRunning))
	if err != nil {
		return 0, err
	}

	count, err := result.RowsAffected()
	return int(count), err
}

// AddToLifetime increments the lifetime counters. These survive a history
// clear.
func (s *SQLiteStore) AddToLifetime(merged, failed int, bytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deltas := []struct {
		key   string
		delta int64
	}{
		{"lifetime_merged", int64(merged)},
		{"lifetime_failed", int64(failed)},
		{"lifetime_bytes", bytes},
	}
	for _, d := range deltas {
		_, err := s.db.Exec(`
			UPDATE stats_metadata
			SET value = CAST((CAST(value AS INTEGER) + ?) AS TEXT),
			    updated_at = datetime('now')
			WHERE key = ?
		`, d.delta, d.key)
		if err != nil {
			return err
		}
	}
	return nil
}

// LifetimeStats returns the lifetime counters.
func (s *SQLiteStore) LifetimeStats() (merged, failed, bytes int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if merged, err = s.counter("lifetime_merged"); err != nil {
		return 0, 0, 0, err
	}
	if failed, err = s.counter("lifetime_failed"); err != nil {
		return 0, 0, 0, err
	}
	if bytes, err = s.counter("lifetime_bytes"); err != nil {
		return 0, 0, 0, err
	}
	return merged, failed, bytes, nil
}

func (s *SQLiteStore) counter(key string) (int64, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM stats_metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	n, _ := strconv.ParseInt(value, 10, 64)
	return n, nil
}

// Stats returns run history statistics.
func (s *SQLiteStore) Stats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats

	row := s.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) as completed,
			SUM(CASE WHEN status = 'interrupted' THEN 1 ELSE 0 END) as interrupted,
			SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END) as running,
			COALESCE(SUM(succeeded), 0) as merged,
			COALESCE(SUM(failed), 0) as failed,
			COALESCE(SUM(bytes_written), 0) as bytes
		FROM runs
	`)

	var completed, interrupted, running sql.NullInt64
	err := row.Scan(&stats.Total, &completed, &interrupted, &running,
		&stats.FilesMerged, &stats.FilesFailed, &stats.BytesWritten)
	if err != nil {
		return stats, err
	}
	stats.Completed = int(completed.Int64)
	stats.Interrupted = int(interrupted.Int64)
	stats.Running = int(running.Int64)

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Helper functions for scanning rows

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*batch.Run, error) {
	var run batch.Run
	var status string
	var startedAt string
	var finishedAt sql.NullString

	err := row.Scan(&run.ID, &status, &run.Succeeded, &run.Failed,
		&run.BytesWritten, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.Status = batch.Status(status)
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt.String)

	return &run, nil
}

// Helper functions for SQL values

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Times are stored as RFC3339Nano so runs created within the same second
// still sort in creation order.

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
