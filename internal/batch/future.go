package batch

import "context"

// Future is a handle to an in-flight run. The complete outcome list is
// delivered once, atomically, when the run finishes; there is no streaming
// of partial results.
type Future struct {
	runID string
	done  chan struct{}
	run   *Run
}

func newFuture(runID string) *Future {
	return &Future{runID: runID, done: make(chan struct{})}
}

// RunID returns the id of the run this future tracks, known from submission.
func (f *Future) RunID() string {
	return f.runID
}

// complete stores the finished run and releases waiters. Called exactly once
// by the run goroutine.
func (f *Future) complete(run *Run) {
	f.run = run
	close(f.done)
}

// Done returns a channel that is closed when the run has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the run finishes or ctx is cancelled. The run keeps
// going either way; abandoning the wait abandons only the handle.
func (f *Future) Wait(ctx context.Context) (*Run, error) {
	select {
	case <-f.done:
		return f.run, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Poll returns the finished run, or ok=false while the run is still going.
func (f *Future) Poll() (*Run, bool) {
	select {
	case <-f.done:
		return f.run, true
	default:
		return nil, false
	}
}
