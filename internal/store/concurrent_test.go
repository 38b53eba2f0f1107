package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lmikkelsen/submerge/internal/batch"
)

// The runner serializes submissions, but the API surface reads run history
// while a run goroutine writes it. These tests hammer the store from both
// sides to catch locking mistakes.

func TestConcurrency_MultipleWriters(t *testing.T) {
	store := newTestStore(t)

	numWorkers := 10
	opsPerWorker := 20

	var wg sync.WaitGroup
	errs := make(chan error, numWorkers*opsPerWorker)

	base := time.Now()
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				run := createTestRun(fmt.Sprintf("w%d-r%d", workerID, i),
					base.Add(time.Duration(workerID*opsPerWorker+i)*time.Microsecond))
				if err := store.SaveRun(run); err != nil {
					errs <- fmt.Errorf("worker %d run %d: %w", workerID, i, err)
					return
				}
			}
		}(w)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	all, err := store.GetAllRuns()
	if err != nil {
		t.Fatalf("GetAllRuns: %v", err)
	}
	if len(all) != numWorkers*opsPerWorker {
		t.Errorf("expected %d runs, got %d", numWorkers*opsPerWorker, len(all))
	}
}

func TestConcurrency_ReadersDuringWrites(t *testing.T) {
	store := newTestStore(t)

	done := make(chan struct{})
	errs := make(chan error, 64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		base := time.Now()
		for i := 0; i < 100; i++ {
			run := createTestRun(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Microsecond))
			run.Status = batch.StatusCompleted
			run.Succeeded = 2
			if err := store.SaveRun(run); err != nil {
				errs <- err
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if _, err := store.GetAllRuns(); err != nil {
					errs <- err
					return
				}
				if _, err := store.Stats(); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestConcurrency_LifetimeCounters(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for w := 0; w < 20; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.AddToLifetime(1, 1, 10); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	merged, failed, bytes, err := store.LifetimeStats()
	if err != nil {
		t.Fatalf("LifetimeStats: %v", err)
	}
	if merged != 20 || failed != 20 || bytes != 200 {
		t.Errorf("lost updates: %d/%d/%d", merged, failed, bytes)
	}
}
