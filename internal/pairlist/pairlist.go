package pairlist

// unset marks a cleared selection cursor.
const unset = -1

// List is an ordered collection of (display name, full path) entries with a
// movable selection cursor. The two slices stay in lock-step: index i in
// names and paths always refers to the same entry. List is not safe for
// concurrent use; a single owner serializes access.
type List struct {
	names    []string
	paths    []string
	selected int
}

// New returns an empty list with no selection.
func New() *List {
	return &List{selected: unset}
}

// Append adds an entry at the end. The cursor does not move.
func (l *List) Append(name, path string) {
	l.names = append(l.names, name)
	l.paths = append(l.paths, path)
}

// RemoveSelected removes the entry under the cursor, or the first entry when
// nothing is selected, and reports the removed path. Removing from an empty
// list or with a cursor out of range is a no-op.
func (l *List) RemoveSelected() (string, bool) {
	if len(l.paths) == 0 {
		return "", false
	}
	i := l.selected
	if i == unset {
		i = 0
	}
	if i < 0 || i >= len(l.paths) {
		return "", false
	}

	removed := l.paths[i]
	l.names = append(l.names[:i], l.names[i+1:]...)
	l.paths = append(l.paths[:i], l.paths[i+1:]...)
	l.normalize()
	return removed, true
}

// normalize clamps the cursor back into range after a removal. An empty list
// always has an unset cursor; an unset cursor stays unset.
func (l *List) normalize() {
	if len(l.paths) == 0 {
		l.selected = unset
		return
	}
	if l.selected != unset && l.selected >= len(l.paths) {
		l.selected = len(l.paths) - 1
	}
}

// MoveUp swaps the selected entry with its predecessor, wrapping to the last
// index from index 0. The cursor follows the moved entry. No-op when nothing
// is selected.
func (l *List) MoveUp() {
	if l.selected == unset || len(l.paths) == 0 {
		return
	}
	j := l.selected - 1
	if j < 0 {
		j = len(l.paths) - 1
	}
	l.swap(l.selected, j)
	l.selected = j
}

// MoveDown swaps the selected entry with its successor, wrapping to index 0
// from the last index. The cursor follows the moved entry. No-op when
// nothing is selected.
func (l *List) MoveDown() {
	if l.selected == unset || len(l.paths) == 0 {
		return
	}
	j := l.selected + 1
	if j >= len(l.paths) {
		j = 0
	}
	l.swap(l.selected, j)
	l.selected = j
}

func (l *List) swap(i, j int) {
	l.names[i], l.names[j] = l.names[j], l.names[i]
	l.paths[i], l.paths[j] = l.paths[j], l.paths[i]
}

// Select moves the cursor to index i, clamped into range. Selecting on an
// empty list leaves the cursor unset.
func (l *List) Select(i int) {
	if len(l.paths) == 0 {
		l.selected = unset
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(l.paths) {
		i = len(l.paths) - 1
	}
	l.selected = i
}

// Selected returns the cursor index, or -1 when nothing is selected.
func (l *List) Selected() int {
	return l.selected
}

// Len returns the number of entries.
func (l *List) Len() int {
	return len(l.paths)
}

// Names returns a copy of the display names in list order.
func (l *List) Names() []string {
	return append([]string(nil), l.names...)
}

// Paths returns a copy of the full paths in list order.
func (l *List) Paths() []string {
	return append([]string(nil), l.paths...)
}
