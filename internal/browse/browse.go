package browse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lmikkelsen/submerge/internal/mux"
)

// Entry kinds. Files that are neither videos nor subtitles are omitted from
// listings entirely.
const (
	KindVideo    = "video"
	KindSubtitle = "subtitle"
)

// Entry represents a file or directory in the browser.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Kind    string    `json:"kind,omitempty"` // video or subtitle; empty for directories

	// HasCompanion is set on videos that have a same-stem .srt in the same
	// directory, so the UI can preload the pair.
	HasCompanion bool `json:"has_companion,omitempty"`

	// VideoCount is the number of video files directly inside a directory.
	VideoCount int `json:"video_count,omitempty"`
}

// Result contains the listing of one directory.
type Result struct {
	Path          string   `json:"path"`
	Parent        string   `json:"parent,omitempty"`
	Entries       []*Entry `json:"entries"`
	VideoCount    int      `json:"video_count"`
	SubtitleCount int      `json:"subtitle_count"`
}

// Browser lists videos and subtitles under a fixed media root. Paths that
// resolve outside the root are refused.
type Browser struct {
	mediaRoot string
}

// NewBrowser creates a Browser rooted at mediaRoot.
func NewBrowser(mediaRoot string) *Browser {
	// Absolute root keeps the confinement check a plain prefix comparison
	absRoot, err := filepath.Abs(mediaRoot)
	if err != nil {
		absRoot = mediaRoot
	}
	return &Browser{mediaRoot: absRoot}
}

// Root returns the media root the browser is confined to.
func (b *Browser) Root() string {
	return b.mediaRoot
}

// resolve turns a requested path into an absolute path inside the media
// root, or an error when it escapes.
func (b *Browser) resolve(path string) (string, error) {
	if path == "" {
		return b.mediaRoot, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if abs != b.mediaRoot && !strings.HasPrefix(abs, b.mediaRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the media root", path)
	}
	return abs, nil
}

// Browse returns the contents of a directory: subdirectories first, then
// videos and subtitles, both sorted case-insensitively by name. Hidden
// entries and files of any other kind are skipped.
func (b *Browser) Browse(ctx context.Context, path string) (*Result, error) {
	dir, err := b.resolve(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Path:    dir,
		Entries: make([]*Entry, 0, len(entries)),
	}
	if dir != b.mediaRoot {
		result.Parent = filepath.Dir(dir)
	}

	srtStems := make(map[string]bool)
	for _, e := range entries {
		if classify(e.Name()) == KindSubtitle {
			srtStems[strings.ToLower(stem(e.Name()))] = true
		}
	}

	var dirs []*Entry
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		entry := &Entry{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			IsDir:   e.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}

		if e.IsDir() {
			dirs = append(dirs, entry)
			continue
		}

		switch classify(e.Name()) {
		case KindVideo:
			entry.Kind = KindVideo
			entry.HasCompanion = srtStems[strings.ToLower(stem(e.Name()))]
			result.VideoCount++
		case KindSubtitle:
			entry.Kind = KindSubtitle
			result.SubtitleCount++
		default:
			continue
		}
		result.Entries = append(result.Entries, entry)
	}

	if err := b.countVideos(ctx, dirs); err != nil {
		return nil, err
	}

	byName := func(entries []*Entry) func(i, j int) bool {
		return func(i, j int) bool {
			return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
		}
	}
	sort.Slice(dirs, byName(dirs))
	sort.Slice(result.Entries, byName(result.Entries))
	result.Entries = append(dirs, result.Entries...)

	return result, nil
}

// countVideos fills in VideoCount for each directory entry. Counts are
// non-recursive and gathered with a bounded group so a directory of many
// subdirectories doesn't serialize on disk.
func (b *Browser) countVideos(ctx context.Context, dirs []*Entry) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	var mu sync.Mutex
	for _, entry := range dirs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			children, err := os.ReadDir(entry.Path)
			if err != nil {
				// Unreadable subdirectory, leave the count at zero
				return nil
			}
			count := 0
			for _, c := range children {
				if !c.IsDir() && classify(c.Name()) == KindVideo {
					count++
				}
			}
			mu.Lock()
			entry.VideoCount = count
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// Companion returns the path of the same-stem .srt next to video, if one
// exists.
func Companion(video string) (string, bool) {
	candidate := strings.TrimSuffix(video, filepath.Ext(video)) + ".srt"
	if _, err := os.Stat(candidate); err != nil {
		return "", false
	}
	return candidate, true
}

func classify(name string) string {
	switch {
	case mux.SupportedVideo(name):
		return KindVideo
	case mux.SupportedSubtitle(name):
		return KindSubtitle
	default:
		return ""
	}
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
