package store

import (
	"github.com/lmikkelsen/submerge/internal/batch"
)

// Store defines the persistence interface for run history.
// Implementations must be safe for concurrent use.
type Store interface {
	// SaveRun persists a run together with its pair list and any outcomes.
	// If the run already exists (by ID), it is replaced.
	SaveRun(run *batch.Run) error

	// GetRun retrieves a run by ID. Returns nil if not found.
	GetRun(id string) (*batch.Run, error)

	// DeleteRun removes a run and its outcomes by ID.
	// Returns nil if the run doesn't exist.
	DeleteRun(id string) error

	// GetAllRuns returns all runs in order of creation (oldest first).
	GetAllRuns() ([]*batch.Run, error)

	// GetRunsByStatus returns all runs with the given status.
	// NOTE: This method is primarily used for testing; production code
	// filters the Runner's in-memory history instead.
	GetRunsByStatus(status batch.Status) ([]*batch.Run, error)

	// ResetRunningRuns marks any run still recorded as "running" as
	// interrupted. Used on startup to recover from crashes mid-run.
	// Returns the number of runs updated.
	ResetRunningRuns() (int, error)

	// AddToLifetime increments the lifetime counters. These survive a
	// history clear. Call when a run completes.
	AddToLifetime(merged, failed int, bytes int64) error

	// LifetimeStats returns the lifetime counters.
	LifetimeStats() (merged, failed, bytes int64, err error)

	// Stats returns run history statistics.
	Stats() (Stats, error)

	// Close closes the store and releases resources.
	Close() error
}

// Stats holds run history statistics.
type Stats struct {
	Completed    int   `json:"completed"`
	Interrupted  int   `json:"interrupted"`
	Running      int   `json:"running"`
	Total        int   `json:"total"`
	FilesMerged  int64 `json:"files_merged"`  // Successful pair merges across all recorded runs
	FilesFailed  int64 `json:"files_failed"`  // Failed pairs across all recorded runs
	BytesWritten int64 `json:"bytes_written"` // Total size of merged containers written
}
