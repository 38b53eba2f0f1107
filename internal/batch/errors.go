package batch

import "errors"

// Sentinel errors for run submission.
// These can be checked with errors.Is().
var (
	ErrRunActive    = errors.New("a run is already active")
	ErrSizeMismatch = errors.New("the number of videos and subtitles must be equal")
)
