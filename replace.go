package main

import (
	"fmt"
	"slices"

	"github.com/e4code/e4/editor"
	"github.com/e4code/e4/search"
)

// findState holds the find/replace bar: the query, the replacement text,
// the match options and the matches of the active document.
type findState struct {
	query       string
	replacement string
	opts        search.Options
	matches     []editor.Range
	current     int
}

// matchInfo is the counter shown beside the query.
func (f *findState) matchInfo() string {
	switch {
	case len(f.matches) > 0:
		return fmt.Sprintf("%d/%d", f.current+1, len(f.matches))
	case f.query != "":
		return "No matches"
	}
	return ""
}

func (f *findState) clear() {
	f.matches = nil
	f.current = 0
}

// currentMatch returns the selected match, if any.
func (f *findState) currentMatch() (editor.Range, bool) {
	if len(f.matches) == 0 {
		return editor.Range{}, false
	}
	return f.matches[f.current], true
}

// onSearch sets the query and jumps to the first match at or after the
// cursor.
func (w *workspace) onSearch(query string) error {
	w.find.query = query
	w.find.clear()
	if query == "" {
		return nil
	}
	s, err := w.activeSession()
	if err != nil {
		return err
	}
	if err := w.refreshMatches(s); err != nil {
		return err
	}
	cur := s.Cursor()
	for i, m := range w.find.matches {
		if m.Start >= cur {
			w.find.current = i
			break
		}
	}
	return w.jumpToMatch(s)
}

// refreshMatches recomputes the matches after the text or query changed,
// keeping the current index in range.
func (w *workspace) refreshMatches(s *editor.Session) error {
	matches, err := w.search.FindAll(s.Snapshot(), w.find.query, w.find.opts)
	if err != nil {
		w.find.clear()
		w.setStatus(fmt.Sprintf("search error: %v", err))
		return err
	}
	w.find.matches = matches
	if w.find.current >= len(matches) {
		w.find.current = 0
	}
	return nil
}

func (w *workspace) jumpToMatch(s *editor.Session) error {
	m, ok := w.find.currentMatch()
	if !ok {
		w.setStatus(w.find.matchInfo())
		return nil
	}
	if err := s.Select(m.Start, m.End); err != nil {
		return err
	}
	w.setStatus(w.find.matchInfo())
	return nil
}

// onSearchNext selects the first match after the selection, wrapping past
// the end when the options allow it.
func (w *workspace) onSearchNext() error {
	return w.searchStep(search.Forward)
}

// onSearchPrev selects the last match before the selection, wrapping past
// the start when the options allow it.
func (w *workspace) onSearchPrev() error {
	return w.searchStep(search.Backward)
}

func (w *workspace) searchStep(dir search.Direction) error {
	if w.find.query == "" {
		return nil
	}
	s, err := w.activeSession()
	if err != nil {
		return err
	}
	sel := s.Selection().Range()
	from := sel.End
	if dir == search.Backward {
		from = sel.Start
	}
	r, ok, err := w.search.Find(s.Snapshot(), w.find.query, w.find.opts, from, dir)
	if err != nil {
		w.setStatus(fmt.Sprintf("search error: %v", err))
		return err
	}
	if !ok {
		if len(w.find.matches) > 0 {
			w.setStatus("No more matches")
		} else {
			w.setStatus(w.find.matchInfo())
		}
		return nil
	}
	i := slices.Index(w.find.matches, r)
	if i < 0 {
		if err := w.refreshMatches(s); err != nil {
			return err
		}
		i = slices.Index(w.find.matches, r)
	}
	if i < 0 {
		return s.Select(r.Start, r.End)
	}
	w.find.current = i
	return w.jumpToMatch(s)
}

// onReplace replaces the current match and selects the next one.
func (w *workspace) onReplace() error {
	s, err := w.activeSession()
	if err != nil {
		return err
	}
	m, ok := w.find.currentMatch()
	if !ok {
		return nil
	}
	op, err := w.search.Replace(s.Snapshot(), w.find.query, m, w.find.replacement, w.find.opts)
	if err != nil {
		return err
	}
	if err := s.Edit(op); err != nil {
		return err
	}
	if err := w.refreshMatches(s); err != nil {
		return err
	}
	if len(w.find.matches) == 0 {
		w.setStatus(w.find.matchInfo())
		return nil
	}
	// The replacement may itself match; continue after it.
	w.find.current = 0
	after := op.CursorAfter()
	for i, r := range w.find.matches {
		if r.Start >= after {
			w.find.current = i
			break
		}
	}
	return w.jumpToMatch(s)
}

// onReplaceAll replaces every match as a single undo step.
func (w *workspace) onReplaceAll() (int, error) {
	s, err := w.activeSession()
	if err != nil {
		return 0, err
	}
	n, _, err := w.search.ReplaceAll(s, w.find.query, w.find.replacement, w.find.opts)
	if err != nil {
		return 0, err
	}
	w.find.clear()
	w.setStatus(fmt.Sprintf("Replaced %d occurrence(s)", n))
	return n, nil
}
