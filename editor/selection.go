package editor

// Selection is a span between two byte offsets. Anchor is where the
// selection started, Cursor is where it currently extends to.
type Selection struct {
	Anchor, Cursor int
}

// Active reports whether the selection covers a non-empty range.
func (s Selection) Active() bool {
	return s.Anchor != s.Cursor
}

// Range returns the selection bounds in ascending order.
func (s Selection) Range() Range {
	if s.Anchor <= s.Cursor {
		return Range{Start: s.Anchor, End: s.Cursor}
	}
	return Range{Start: s.Cursor, End: s.Anchor}
}

// Text returns the selected text of doc.
func (s Selection) Text(doc Snapshot) (string, error) {
	r := s.Range()
	return doc.Slice(r.Start, r.End)
}

// Lines returns the first and last line the selection touches. A selection
// ending at the start of a line does not include that line.
func (s Selection) Lines(doc Snapshot) (first, last int, err error) {
	r := s.Range()
	first, _, err = doc.PositionOf(r.Start)
	if err != nil {
		return 0, 0, err
	}
	last, col, err := doc.PositionOf(r.End)
	if err != nil {
		return 0, 0, err
	}
	if last > first && col == 0 {
		last--
	}
	return first, last, nil
}

// Collapse returns a selection with both ends at Cursor.
func (s Selection) Collapse() Selection {
	return Selection{Anchor: s.Cursor, Cursor: s.Cursor}
}

// SelectAll returns a selection covering a document of length bytes.
func SelectAll(length int) Selection {
	return Selection{Anchor: 0, Cursor: length}
}
