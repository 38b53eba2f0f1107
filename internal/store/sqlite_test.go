package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lmikkelsen/submerge/internal/batch"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestRun(id string, started time.Time) *batch.Run {
	return &batch.Run{
		ID:        id,
		Status:    batch.StatusRunning,
		Videos:    []string{"/media/movie_" + id + ".mkv", "/media/show_" + id + ".mp4"},
		Subtitles: []string{"/media/movie_" + id + ".srt", "/media/show_" + id + ".srt"},
		StartedAt: started,
	}
}

func TestSQLiteStore_SaveRun_CreatesNew(t *testing.T) {
	store := newTestStore(t)

	run := createTestRun("run-1", time.Now())
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got == nil {
		t.Fatal("expected run, got nil")
	}

	if got.ID != run.ID {
		t.Errorf("expected ID %s, got %s", run.ID, got.ID)
	}
	if got.Status != batch.StatusRunning {
		t.Errorf("expected status running, got %s", got.Status)
	}
	if len(got.Videos) != 2 || got.Videos[0] != run.Videos[0] {
		t.Errorf("videos not round-tripped: %v", got.Videos)
	}
	if len(got.Subtitles) != 2 || got.Subtitles[1] != run.Subtitles[1] {
		t.Errorf("subtitles not round-tripped: %v", got.Subtitles)
	}
	if len(got.Outcomes) != 0 {
		t.Errorf("running run should have no outcomes, got %d", len(got.Outcomes))
	}
}

func TestSQLiteStore_SaveRun_ReplacesExisting(t *testing.T) {
	store := newTestStore(t)

	run := createTestRun("run-1", time.Now())
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	// Complete the run and save again
	run.Status = batch.StatusCompleted
	run.Succeeded = 1
	run.Failed = 1
	run.BytesWritten = 4096
	run.FinishedAt = run.StartedAt.Add(time.Minute)
	run.Outcomes = []batch.Outcome{
		{Index: 0, Video: run.Videos[0], Subtitle: run.Subtitles[0], Line: "movie_run-1.mkv: SUCCESS", Log: "mkvmerge output", OK: true, Bytes: 4096},
		{Index: 1, Video: run.Videos[1], Subtitle: run.Subtitles[1], Line: "Error converting file show_run-1.mp4", Log: "ffmpeg output"},
	}
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("failed to update run: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status != batch.StatusCompleted {
		t.Errorf("expected status completed, got %s", got.Status)
	}
	if got.Succeeded != 1 || got.Failed != 1 {
		t.Errorf("counts not persisted: succeeded=%d failed=%d", got.Succeeded, got.Failed)
	}
	if got.BytesWritten != 4096 {
		t.Errorf("expected 4096 bytes written, got %d", got.BytesWritten)
	}
	if len(got.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(got.Outcomes))
	}
	if got.Outcomes[0].Line != "movie_run-1.mkv: SUCCESS" || !got.Outcomes[0].OK {
		t.Errorf("outcome 0 not round-tripped: %+v", got.Outcomes[0])
	}
	if got.Outcomes[1].OK {
		t.Error("outcome 1 should be a failure")
	}
	if got.Outcomes[1].Log != "ffmpeg output" {
		t.Errorf("outcome log not round-tripped: %q", got.Outcomes[1].Log)
	}

	// The update must not have duplicated the run
	all, err := store.GetAllRuns()
	if err != nil {
		t.Fatalf("failed to get all runs: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 run after update, got %d", len(all))
	}
}

func TestSQLiteStore_GetRun_NotFound(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRun("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown run, got %+v", got)
	}
}

func TestSQLiteStore_GetAllRuns_CreationOrder(t *testing.T) {
	store := newTestStore(t)

	base := time.Now()
	// Save out of order; sub-second spacing exercises the RFC3339Nano sort
	for _, i := range []int{2, 0, 1} {
		run := createTestRun(string(rune('a'+i)), base.Add(time.Duration(i)*time.Millisecond))
		if err := store.SaveRun(run); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	all, err := store.GetAllRuns()
	if err != nil {
		t.Fatalf("failed to get all runs: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
	for i, want := range []string{"a", "b", "c"} {
		if all[i].ID != want {
			t.Errorf("run %d: expected ID %s, got %s", i, want, all[i].ID)
		}
	}
}

func TestSQLiteStore_DeleteRun(t *testing.T) {
	store := newTestStore(t)

	run := createTestRun("run-1", time.Now())
	run.Outcomes = []batch.Outcome{{Index: 0, Line: "x: SUCCESS", OK: true}}
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	if err := store.DeleteRun("run-1"); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("run still present after delete")
	}

	// Deleting a run that doesn't exist is not an error
	if err := store.DeleteRun("nope"); err != nil {
		t.Errorf("deleting unknown run: %v", err)
	}
}

func TestSQLiteStore_GetRunsByStatus(t *testing.T) {
	store := newTestStore(t)

	base := time.Now()
	running := createTestRun("r1", base)
	done := createTestRun("r2", base.Add(time.Millisecond))
	done.Status = batch.StatusCompleted
	done.FinishedAt = base.Add(time.Second)

	for _, run := range []*batch.Run{running, done} {
		if err := store.SaveRun(run); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	got, err := store.GetRunsByStatus(batch.StatusCompleted)
	if err != nil {
		t.Fatalf("failed to query by status: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r2" {
		t.Errorf("expected [r2], got %v", got)
	}
}

func TestSQLiteStore_ResetRunningRuns(t *testing.T) {
	store := newTestStore(t)

	base := time.Now()
	running := createTestRun("r1", base)
	done := createTestRun("r2", base.Add(time.Millisecond))
	done.Status = batch.StatusCompleted

	for _, run := range []*batch.Run{running, done} {
		if err := store.SaveRun(run); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	count, err := store.ResetRunningRuns()
	if err != nil {
		t.Fatalf("failed to reset running runs: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 run reset, got %d", count)
	}

	got, err := store.GetRun("r1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status != batch.StatusInterrupted {
		t.Errorf("expected interrupted, got %s", got.Status)
	}
	if got.FinishedAt.IsZero() {
		t.Error("interrupted run should carry a finish time")
	}

	got, err = store.GetRun("r2")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status != batch.StatusCompleted {
		t.Errorf("completed run was touched: %s", got.Status)
	}
}

func TestSQLiteStore_Lifetime(t *testing.T) {
	store := newTestStore(t)

	merged, failed, bytes, err := store.LifetimeStats()
	if err != nil {
		t.Fatalf("failed to read lifetime stats: %v", err)
	}
	if merged != 0 || failed != 0 || bytes != 0 {
		t.Errorf("fresh store should have zero counters, got %d/%d/%d", merged, failed, bytes)
	}

	if err := store.AddToLifetime(3, 1, 2048); err != nil {
		t.Fatalf("failed to add to lifetime: %v", err)
	}
	if err := store.AddToLifetime(2, 0, 1024); err != nil {
		t.Fatalf("failed to add to lifetime: %v", err)
	}

	merged, failed, bytes, err = store.LifetimeStats()
	if err != nil {
		t.Fatalf("failed to read lifetime stats: %v", err)
	}
	if merged != 5 || failed != 1 || bytes != 3072 {
		t.Errorf("expected 5/1/3072, got %d/%d/%d", merged, failed, bytes)
	}
}

func TestSQLiteStore_Stats(t *testing.T) {
	store := newTestStore(t)

	base := time.Now()
	r1 := createTestRun("r1", base)
	r1.Status = batch.StatusCompleted
	r1.Succeeded = 2
	r1.BytesWritten = 100
	r2 := createTestRun("r2", base.Add(time.Millisecond))
	r2.Status = batch.StatusInterrupted
	r2.Failed = 1
	r3 := createTestRun("r3", base.Add(2*time.Millisecond))

	for _, run := range []*batch.Run{r1, r2, r3} {
		if err := store.SaveRun(run); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.Total != 3 || stats.Completed != 1 || stats.Interrupted != 1 || stats.Running != 1 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.FilesMerged != 2 || stats.FilesFailed != 1 || stats.BytesWritten != 100 {
		t.Errorf("unexpected aggregates: %+v", stats)
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	run := createTestRun("run-1", time.Now())
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetRun("run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got == nil || len(got.Videos) != 2 {
		t.Errorf("run not persisted across reopen: %+v", got)
	}
}
