package batch

import (
	"time"
)

// Status represents the lifecycle state of a batch run
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
)

// Outcome is the result of one processed pair: a one-line report entry plus,
// when an external tool actually ran, its raw combined output.
type Outcome struct {
	Index    int    `json:"index"`
	Video    string `json:"video,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Line     string `json:"line"`
	Log      string `json:"log,omitempty"`
	OK       bool   `json:"ok"`
	Bytes    int64  `json:"bytes,omitempty"` // Size of the merged file on success
}

// Run represents one batch merge: the input pair lists and, once finished,
// one outcome per pair in input order.
type Run struct {
	ID           string    `json:"id"`
	Status       Status    `json:"status"`
	Videos       []string  `json:"videos"`
	Subtitles    []string  `json:"subtitles"`
	Outcomes     []Outcome `json:"outcomes,omitempty"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	BytesWritten int64     `json:"bytes_written"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
}

// IsTerminal returns true if the run is in a terminal state
func (r *Run) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusInterrupted
}

// Copy returns a deep copy safe to hand out after the runner's lock is
// released.
func (r *Run) Copy() *Run {
	c := *r
	c.Videos = append([]string(nil), r.Videos...)
	c.Subtitles = append([]string(nil), r.Subtitles...)
	c.Outcomes = append([]Outcome(nil), r.Outcomes...)
	return &c
}

// Event is pushed to subscribers when a run changes state.
type Event struct {
	Type string `json:"type"` // "run_started", "run_completed"
	Run  *Run   `json:"run"`
}
