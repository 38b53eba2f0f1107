package batch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/lmikkelsen/submerge/internal/logger"
	"github.com/lmikkelsen/submerge/internal/mux"
)

// MismatchLine is the report line produced when the two lists differ in
// length. The whole batch is refused before any file is touched.
const MismatchLine = "Error: the number of videos and subtitles must be equal"

// Merger is the per-pair merge strategy. Implemented by *mux.Merger.
type Merger interface {
	Merge(ctx context.Context, video, subtitle string) mux.MergeResult
}

// Process merges each (video, subtitle) pair in index order and returns one
// outcome per pair, in the same order. Pairs are processed strictly
// sequentially; one pair's failure never stops the rest.
func Process(ctx context.Context, m Merger, videos, subtitles []string) []Outcome {
	if len(videos) != len(subtitles) {
		return []Outcome{{Line: MismatchLine}}
	}

	outcomes := make([]Outcome, 0, len(videos))
	for i := range videos {
		outcomes = append(outcomes, processPair(ctx, m, i, videos[i], subtitles[i]))
	}
	return outcomes
}

// processPair runs the preflight checks for one pair and delegates to the
// merger once they pass. The checks run in a fixed order and the first
// failure wins; every preflight failure reports without touching disk.
func processPair(ctx context.Context, m Merger, index int, video, subtitle string) Outcome {
	outcome := Outcome{Index: index, Video: video, Subtitle: subtitle}
	base := filepath.Base(video)

	// The report line names the video file even when the subtitle is the
	// missing one.
	if !exists(video) || !exists(subtitle) {
		outcome.Line = "Error: " + base + " does not exist"
		return outcome
	}

	if !mux.SupportedVideo(video) || !mux.SupportedSubtitle(subtitle) {
		outcome.Line = "Error: " + base + " is not a supported video type or subtitle type"
		return outcome
	}

	dir := filepath.Dir(video)
	if !writable(dir) {
		outcome.Line = "Error: no write access to folder " + dir + ", check permissions"
		return outcome
	}

	// A temp file left behind by an earlier failed run is cleared here, not
	// reported as an error.
	if temp := mux.TempPath(video); exists(temp) {
		logger.Debug("Removing stale temp file", "path", temp)
		os.Remove(temp)
	}

	result := m.Merge(ctx, video, subtitle)
	outcome.Line = result.Line
	outcome.Log = result.Log
	outcome.OK = result.OK
	outcome.Bytes = result.OutputSize
	return outcome
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
