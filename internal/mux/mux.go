package mux

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lmikkelsen/submerge/internal/logger"
)

// MergeResult is the outcome of one merge attempt: a one-line summary for
// the report plus the raw combined tool output for diagnostics.
type MergeResult struct {
	Line       string `json:"line"`
	Log        string `json:"log,omitempty"`
	OK         bool   `json:"ok"`
	OutputSize int64  `json:"output_size,omitempty"` // Size of the merged file in bytes
}

// Merger runs external tools to embed a subtitle track into a video
// container, replacing the original file in place on success.
type Merger struct {
	mkvmerge  string
	ffmpeg    string
	language  string
	trackName string
}

// NewMerger creates a Merger driving the given tool binaries. language and
// trackName are applied to the subtitle track on formats that support tagging.
func NewMerger(mkvmerge, ffmpeg, language, trackName string) *Merger {
	return &Merger{
		mkvmerge:  mkvmerge,
		ffmpeg:    ffmpeg,
		language:  language,
		trackName: trackName,
	}
}

// Merge embeds subtitle into video. The container format is selected from the
// video's file extension. On success the original file has been replaced by
// the merged container; on failure it is untouched, though a partial temp
// file may remain for the next run's preflight to clear.
func (m *Merger) Merge(ctx context.Context, video, subtitle string) MergeResult {
	return handlerFor(filepath.Ext(video)).merge(ctx, m, video, subtitle, TempPath(video))
}

// runTool executes one external tool invocation and applies the replace
// contract. Exit status is never consulted: success is judged solely by
// whether the temp output file appeared (mkvmerge exits 1 on warnings while
// still writing a usable container). On success the temp file atomically
// replaces the original video.
func (m *Merger) runTool(ctx context.Context, tool string, args []string, video, temp string) MergeResult {
	base := filepath.Base(video)

	path, err := exec.LookPath(tool)
	if err != nil {
		return MergeResult{Line: notInstalledLine(tool)}
	}

	logger.Debug("Running merge tool", "tool", tool, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, path, args...)
	out, _ := cmd.CombinedOutput()

	info, err := os.Stat(temp)
	if err != nil {
		logger.Error("Merge produced no output", "tool", tool, "video", video)
		return MergeResult{Line: "Error converting file " + base, Log: string(out)}
	}

	if err := os.Rename(temp, video); err != nil {
		logger.Error("Failed to replace original", "video", video, "error", err)
		return MergeResult{Line: "Error converting file " + base, Log: string(out)}
	}

	return MergeResult{
		Line:       base + ": SUCCESS",
		Log:        string(out),
		OK:         true,
		OutputSize: info.Size(),
	}
}

// TempPath returns the scratch output path for a merge into video: a file
// named temp_<name> in the same directory as the video.
func TempPath(video string) string {
	return filepath.Join(filepath.Dir(video), "temp_"+filepath.Base(video))
}

// ToolStatus reports which external tools resolve on the execution PATH.
type ToolStatus struct {
	Mkvmerge bool `json:"mkvmerge"`
	FFmpeg   bool `json:"ffmpeg"`
}

// Tools probes the configured binaries without running them.
func (m *Merger) Tools() ToolStatus {
	return ToolStatus{
		Mkvmerge: available(m.mkvmerge),
		FFmpeg:   available(m.ffmpeg),
	}
}

func available(tool string) bool {
	_, err := exec.LookPath(tool)
	return err == nil
}

func notInstalledLine(tool string) string {
	return fmt.Sprintf("Error, either %s is not installed or it does not exist in PATH", tool)
}
