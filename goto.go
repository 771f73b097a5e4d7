package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/e4code/e4/editor"
)

var errInvalidPosition = errors.New("invalid line number")

// parseGoto reads a 1-based "LINE" or "LINE:COL". A missing column is 1.
func parseGoto(query string) (line, col int, err error) {
	query = strings.TrimSpace(query)
	linePart, colPart, hasCol := strings.Cut(query, ":")
	line, err = strconv.Atoi(strings.TrimSpace(linePart))
	if err != nil || line <= 0 {
		return 0, 0, fmt.Errorf("%q: %w", query, errInvalidPosition)
	}
	col = 1
	if hasCol {
		col, err = strconv.Atoi(strings.TrimSpace(colPart))
		if err != nil || col <= 0 {
			return 0, 0, fmt.Errorf("%q: %w", query, errInvalidPosition)
		}
	}
	return line, col, nil
}

// gotoPosition moves the cursor of s to a 1-based line and column, clamped
// to the document.
func gotoPosition(s *editor.Session, line, col int) error {
	if line <= 0 {
		return errInvalidPosition
	}
	doc := s.Snapshot()
	line = min(line, doc.LineCount())
	text, err := doc.LineAt(line - 1)
	if err != nil {
		return err
	}
	col = min(max(col, 1), utf8.RuneCountInString(text)+1)
	return s.MoveTo(line-1, col-1)
}

// onGotoLine handles a submitted go-to-line query.
func (w *workspace) onGotoLine(query string) error {
	line, col, err := parseGoto(query)
	if err != nil {
		w.setStatus("Invalid line number")
		return err
	}
	s, err := w.activeSession()
	if err != nil {
		return err
	}
	if err := gotoPosition(s, line, col); err != nil {
		return err
	}
	w.setStatus(s.Status().String())
	return nil
}
