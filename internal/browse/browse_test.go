package browse

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func buildMediaTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	touch(t, filepath.Join(root, "movie.mkv"))
	touch(t, filepath.Join(root, "movie.srt"))
	touch(t, filepath.Join(root, "other.mp4"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, ".hidden.mkv"))
	touch(t, filepath.Join(root, "shows", "ep1.mkv"))
	touch(t, filepath.Join(root, "shows", "ep2.avi"))
	touch(t, filepath.Join(root, "empty", "readme.md"))
	return root
}

func TestBrowse_ListsAndClassifies(t *testing.T) {
	root := buildMediaTree(t)
	b := NewBrowser(root)

	result, err := b.Browse(context.Background(), root)
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}

	// Two directories, then the media files sorted by name. notes.txt and
	// the hidden file are omitted.
	wantNames := []string{"empty", "shows", "movie.mkv", "movie.srt", "other.mp4"}
	if len(result.Entries) != len(wantNames) {
		t.Fatalf("expected %d entries, got %d: %+v", len(wantNames), len(result.Entries), result.Entries)
	}
	for i, want := range wantNames {
		if result.Entries[i].Name != want {
			t.Errorf("entry %d: expected %s, got %s", i, want, result.Entries[i].Name)
		}
	}

	if result.VideoCount != 2 {
		t.Errorf("expected 2 videos, got %d", result.VideoCount)
	}
	if result.SubtitleCount != 1 {
		t.Errorf("expected 1 subtitle, got %d", result.SubtitleCount)
	}
	if result.Parent != "" {
		t.Errorf("root listing should have no parent, got %s", result.Parent)
	}
}

func TestBrowse_Kinds(t *testing.T) {
	root := buildMediaTree(t)
	b := NewBrowser(root)

	result, err := b.Browse(context.Background(), root)
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}

	kinds := make(map[string]string)
	for _, e := range result.Entries {
		kinds[e.Name] = e.Kind
	}
	if kinds["movie.mkv"] != KindVideo || kinds["other.mp4"] != KindVideo {
		t.Errorf("videos misclassified: %v", kinds)
	}
	if kinds["movie.srt"] != KindSubtitle {
		t.Errorf("subtitle misclassified: %v", kinds)
	}
	if kinds["shows"] != "" {
		t.Errorf("directories should carry no kind, got %q", kinds["shows"])
	}
}

func TestBrowse_CompanionDetection(t *testing.T) {
	root := buildMediaTree(t)
	b := NewBrowser(root)

	result, err := b.Browse(context.Background(), root)
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}

	for _, e := range result.Entries {
		switch e.Name {
		case "movie.mkv":
			if !e.HasCompanion {
				t.Error("movie.mkv should report its companion movie.srt")
			}
		case "other.mp4":
			if e.HasCompanion {
				t.Error("other.mp4 has no companion subtitle")
			}
		}
	}
}

func TestBrowse_SubdirVideoCounts(t *testing.T) {
	root := buildMediaTree(t)
	b := NewBrowser(root)

	result, err := b.Browse(context.Background(), root)
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}

	counts := make(map[string]int)
	for _, e := range result.Entries {
		if e.IsDir {
			counts[e.Name] = e.VideoCount
		}
	}
	if counts["shows"] != 2 {
		t.Errorf("shows should count 2 videos, got %d", counts["shows"])
	}
	if counts["empty"] != 0 {
		t.Errorf("empty should count 0 videos, got %d", counts["empty"])
	}
}

func TestBrowse_Subdirectory(t *testing.T) {
	root := buildMediaTree(t)
	b := NewBrowser(root)

	sub := filepath.Join(root, "shows")
	result, err := b.Browse(context.Background(), sub)
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if result.Parent != root {
		t.Errorf("expected parent %s, got %s", root, result.Parent)
	}
	if len(result.Entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(result.Entries))
	}
}

func TestBrowse_RefusesEscape(t *testing.T) {
	root := buildMediaTree(t)
	b := NewBrowser(filepath.Join(root, "shows"))

	escapes := []string{
		root,
		filepath.Join(root, "shows", ".."),
		"/etc",
	}
	for _, path := range escapes {
		if _, err := b.Browse(context.Background(), path); err == nil {
			t.Errorf("Browse(%s) should refuse paths outside the root", path)
		}
	}

	// A sibling whose name shares the root as a prefix must not slip through
	touch(t, filepath.Join(root, "showsextra", "x.mkv"))
	if _, err := b.Browse(context.Background(), filepath.Join(root, "showsextra")); err == nil {
		t.Error("prefix-sharing sibling directory should be refused")
	}
}

func TestBrowse_EmptyPathListsRoot(t *testing.T) {
	root := buildMediaTree(t)
	b := NewBrowser(root)

	result, err := b.Browse(context.Background(), "")
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if result.Path != b.Root() {
		t.Errorf("expected root %s, got %s", b.Root(), result.Path)
	}
}

func TestCompanion(t *testing.T) {
	root := buildMediaTree(t)

	got, ok := Companion(filepath.Join(root, "movie.mkv"))
	if !ok {
		t.Fatal("expected a companion for movie.mkv")
	}
	if got != filepath.Join(root, "movie.srt") {
		t.Errorf("unexpected companion path %s", got)
	}

	if _, ok := Companion(filepath.Join(root, "other.mp4")); ok {
		t.Error("other.mp4 should have no companion")
	}
}
