package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/lmikkelsen/submerge/internal/logger"
)

// Store defines the persistence interface for run history.
// This interface is implemented by internal/store.SQLiteStore.
type Store interface {
	SaveRun(run *Run) error
	GetRun(id string) (*Run, error)
	GetAllRuns() ([]*Run, error)
	DeleteRun(id string) error
	AddToLifetime(merged, failed int, bytes int64) error
	Close() error
}

// StoreWithStats extends Store with lifetime totals that survive a history
// clear.
type StoreWithStats interface {
	Store
	LifetimeStats() (merged, failed, bytes int64, err error)
}

// Runner hosts batch runs off the caller's goroutine. Exactly one run is
// active at a time; each run's full result list is delivered through its
// Future once the last pair has been processed.
type Runner struct {
	mu     sync.RWMutex
	merger Merger
	store  Store // Persistence store (nil = in-memory only)
	runs   map[string]*Run
	order  []string // Run IDs in order of creation
	active string   // ID of the in-flight run, "" when idle

	// Subscribers for run events
	subsMu      sync.RWMutex
	subscribers map[chan Event]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates an in-memory runner (for testing).
// Use NewRunnerWithStore for production use with persistence.
func NewRunner(m Merger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		merger:      m,
		runs:        make(map[string]*Run),
		order:       make([]string, 0),
		subscribers: make(map[chan Event]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// NewRunnerWithStore creates a runner backed by a persistent store. The
// store should already be initialized and have interrupted runs reset.
func NewRunnerWithStore(m Merger, store Store) (*Runner, error) {
	r := NewRunner(m)
	r.store = store

	// Load run history from the store into the memory cache
	if store != nil {
		runs, err := store.GetAllRuns()
		if err != nil {
			return nil, fmt.Errorf("load runs from store: %w", err)
		}
		for _, run := range runs {
			r.runs[run.ID] = run
			r.order = append(r.order, run.ID)
		}
	}

	return r, nil
}

// Submit starts one background run over the given lists and returns a Future
// for its result. The path slices are copied up front; mutating the caller's
// lists afterwards does not affect the run. A second submission while a run
// is active is refused with ErrRunActive, and mismatched list lengths are
// refused with ErrSizeMismatch before any file is touched.
func (r *Runner) Submit(videos, subtitles []string) (*Future, error) {
	if len(videos) != len(subtitles) {
		return nil, ErrSizeMismatch
	}

	r.mu.Lock()
	if r.active != "" {
		r.mu.Unlock()
		return nil, ErrRunActive
	}

	run := &Run{
		ID:        uuid.NewString(),
		Status:    StatusRunning,
		Videos:    append([]string(nil), videos...),
		Subtitles: append([]string(nil), subtitles...),
		StartedAt: time.Now(),
	}
	r.runs[run.ID] = run
	r.order = append(r.order, run.ID)
	r.active = run.ID
	snapshot := run.Copy()
	r.mu.Unlock()

	r.persist(snapshot)
	r.broadcast(Event{Type: "run_started", Run: snapshot})
	logger.Info("Run started", "run_id", run.ID, "pairs", len(videos))

	future := newFuture(run.ID)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		outcomes := Process(r.ctx, r.merger, snapshot.Videos, snapshot.Subtitles)
		r.finish(run.ID, outcomes, future)
	}()

	return future, nil
}

// finish records the outcomes, persists the run, and releases the future.
func (r *Runner) finish(id string, outcomes []Outcome, future *Future) {
	r.mu.Lock()
	run := r.runs[id]
	run.Outcomes = outcomes
	run.Status = StatusCompleted
	if r.ctx.Err() != nil {
		// Shutdown cut the run short; the outcome list may be partial.
		run.Status = StatusInterrupted
	}
	for i := range outcomes {
		if outcomes[i].OK {
			run.Succeeded++
			run.BytesWritten += outcomes[i].Bytes
		} else {
			run.Failed++
		}
	}
	run.FinishedAt = time.Now()
	r.active = ""
	snapshot := run.Copy()
	r.mu.Unlock()

	r.persist(snapshot)
	if r.store != nil && snapshot.Status == StatusCompleted {
		if err := r.store.AddToLifetime(snapshot.Succeeded, snapshot.Failed, snapshot.BytesWritten); err != nil {
			logger.Warn("Failed to update lifetime stats", "error", err)
		}
	}

	r.broadcast(Event{Type: "run_completed", Run: snapshot})
	logger.Info("Run finished",
		"run_id", snapshot.ID,
		"status", snapshot.Status,
		"succeeded", snapshot.Succeeded,
		"failed", snapshot.Failed,
		"written", humanize.Bytes(uint64(snapshot.BytesWritten)),
		"duration", snapshot.FinishedAt.Sub(snapshot.StartedAt).Round(time.Millisecond))

	future.complete(snapshot)
}

// persist saves a run to the store (if configured).
func (r *Runner) persist(run *Run) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveRun(run); err != nil {
		logger.Warn("Failed to persist run", "run_id", run.ID, "error", err)
	}
}

// Get returns a copy of a run by ID, or nil if unknown.
func (r *Runner) Get(id string) *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil
	}
	return run.Copy()
}

// GetAll returns copies of all runs in order of creation.
func (r *Runner) GetAll() []*Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]*Run, 0, len(r.order))
	for _, id := range r.order {
		if run, ok := r.runs[id]; ok {
			runs = append(runs, run.Copy())
		}
	}
	return runs
}

// Active returns a copy of the in-flight run, or nil when idle.
func (r *Runner) Active() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.active == "" {
		return nil
	}
	return r.runs[r.active].Copy()
}

// Clear removes finished runs from memory and the store. The active run is
// never cleared. Returns the number of runs removed.
func (r *Runner) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	newOrder := make([]string, 0, len(r.order))
	for _, id := range r.order {
		run, ok := r.runs[id]
		if !ok {
			continue
		}
		if !run.IsTerminal() {
			newOrder = append(newOrder, id)
			continue
		}
		if r.store != nil {
			if err := r.store.DeleteRun(id); err != nil {
				logger.Warn("Failed to delete run from store", "run_id", id, "error", err)
			}
		}
		delete(r.runs, id)
		count++
	}
	r.order = newOrder

	return count
}

// Subscribe returns a channel that receives run events
func (r *Runner) Subscribe() chan Event {
	ch := make(chan Event, 100)

	r.subsMu.Lock()
	r.subscribers[ch] = struct{}{}
	r.subsMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription
func (r *Runner) Unsubscribe(ch chan Event) {
	r.subsMu.Lock()
	delete(r.subscribers, ch)
	r.subsMu.Unlock()

	close(ch)
}

// broadcast sends an event to all subscribers
func (r *Runner) broadcast(event Event) {
	r.subsMu.RLock()
	defer r.subsMu.RUnlock()

	for ch := range r.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip this subscriber
		}
	}
}

// Stats summarizes the runs known to this process plus lifetime totals from
// the store when one is attached.
type Stats struct {
	Runs                 int    `json:"runs"`
	FilesMerged          int    `json:"files_merged"`
	FilesFailed          int    `json:"files_failed"`
	BytesWritten         int64  `json:"bytes_written"`
	Active               bool   `json:"active"`
	LifetimeFilesMerged  int64  `json:"lifetime_files_merged"`
	LifetimeBytesWritten int64  `json:"lifetime_bytes_written"`
	LifetimePretty       string `json:"lifetime_pretty,omitempty"`
}

func (r *Runner) Stats() Stats {
	r.mu.RLock()
	var stats Stats
	for _, run := range r.runs {
		stats.Runs++
		stats.FilesMerged += run.Succeeded
		stats.FilesFailed += run.Failed
		stats.BytesWritten += run.BytesWritten
	}
	stats.Active = r.active != ""
	r.mu.RUnlock()

	// Lifetime totals survive history clears when the store keeps them
	if sws, ok := r.store.(StoreWithStats); ok {
		merged, _, bytes, err := sws.LifetimeStats()
		if err == nil {
			stats.LifetimeFilesMerged = merged
			stats.LifetimeBytesWritten = bytes
			stats.LifetimePretty = humanize.Bytes(uint64(bytes))
		}
	}

	return stats
}

// Stop waits for any in-flight run to finish its current pair and stop. The
// run itself is never cancelled mid-pair short of process shutdown; this
// cancels the run context so a hung external tool does not hold the process
// open forever.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
}
