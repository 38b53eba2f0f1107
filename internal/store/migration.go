package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lmikkelsen/submerge/internal/logger"
)

// schemaVersion is the version the code expects. Bump it together with a new
// step in migrate.
const schemaVersion = 2

// migrate brings an existing database up to schemaVersion. A fresh database
// is stamped with the current version and the lifetime counters are seeded.
func migrate(db *sql.DB) error {
	var version int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		// Fresh database
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("insert schema version: %w", err)
		}
		if err := seedCounters(db); err != nil {
			return err
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	if version < 2 {
		// Migrate v1 -> v2: lifetime counters in stats_metadata
		if err := seedCounters(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("update schema version: %w", err)
	}
	return nil
}

func seedCounters(db *sql.DB) error {
	_, err := db.Exec(`
		INSERT OR IGNORE INTO stats_metadata (key, value) VALUES
			('lifetime_merged', '0'),
			('lifetime_failed', '0'),
			('lifetime_bytes', '0')
	`)
	if err != nil {
		return fmt.Errorf("seed lifetime counters: %w", err)
	}
	return nil
}

// DBPath returns the database path for a config directory.
func DBPath(configDir string) string {
	return filepath.Join(configDir, "submerge.db")
}

// CleanupDBFiles removes SQLite database files (main, WAL, and SHM).
func CleanupDBFiles(dbPath string) {
	os.Remove(dbPath)
	os.Remove(dbPath + "-wal")
	os.Remove(dbPath + "-shm")
}

// InitStore opens (or creates) the run-history database under configDir and
// performs crash recovery: any run the previous process left marked running
// is flipped to interrupted. This is the main entry point for store
// initialization.
func InitStore(configDir string) (*SQLiteStore, error) {
	store, err := NewSQLiteStore(DBPath(configDir))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	count, err := store.ResetRunningRuns()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("reset running runs: %w", err)
	}
	if count > 0 {
		logger.Info("Marked interrupted runs from previous session", "count", count)
	}

	return store, nil
}
