package mux

import (
	"context"
	"path/filepath"
	"strings"
)

// handler is one container format's merge strategy. The set of
// implementations is closed: adding a format means adding a variant here
// and returning it from handlerFor.
type handler interface {
	merge(ctx context.Context, m *Merger, video, subtitle, temp string) MergeResult
}

// handlerFor selects the strategy for a video file extension. The mapping is
// pure: same extension, same handler, no shared state.
func handlerFor(ext string) handler {
	switch strings.ToLower(ext) {
	case ".mkv":
		return mkvHandler{}
	case ".mp4":
		return mp4Handler{}
	default:
		return unsupportedHandler{}
	}
}

// mkvHandler remuxes with mkvmerge: the original container plus one new
// subtitle track carrying the configured language tag and track name.
type mkvHandler struct{}

func (mkvHandler) merge(ctx context.Context, m *Merger, video, subtitle, temp string) MergeResult {
	args := []string{
		"-o", temp,
		video,
		"--language", "0:" + m.language,
		"--track-name", "0:" + m.trackName,
		subtitle,
	}
	return m.runTool(ctx, m.mkvmerge, args, video, temp)
}

// mp4Handler copies every existing stream unchanged and re-encodes the
// subtitle to mov_text, the only text subtitle codec an mp4 container takes.
type mp4Handler struct{}

func (mp4Handler) merge(ctx context.Context, m *Merger, video, subtitle, temp string) MergeResult {
	args := []string{
		"-i", video,
		"-i", subtitle,
		"-c", "copy",
		"-c:s", "mov_text",
		temp,
	}
	return m.runTool(ctx, m.ffmpeg, args, video, temp)
}

// unsupportedHandler refuses the merge without invoking anything. Extensions
// that pass preflight but have no merge strategy (.avi) land here.
type unsupportedHandler struct{}

func (unsupportedHandler) merge(_ context.Context, _ *Merger, video, _, _ string) MergeResult {
	return MergeResult{Line: "Error: " + filepath.Base(video) + " is not a supported video type or subtitle type"}
}

// videoExts are the container extensions preflight admits. .avi is admitted
// and then refused by its handler, so the refusal shows up as that pair's
// outcome rather than a list-level validation error.
var videoExts = map[string]bool{
	".mkv": true,
	".mp4": true,
	".avi": true,
}

// SupportedVideo reports whether path carries an admitted container extension.
func SupportedVideo(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}

// SupportedSubtitle reports whether path is an .srt subtitle.
func SupportedSubtitle(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".srt")
}
