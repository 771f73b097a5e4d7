package main

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/e4code/e4/editor"
	"github.com/e4code/e4/grammars"
)

// drawView paints the workspace onto screen: the tab bar on the first row,
// the unfolded lines of the active tab scrolled to keep the cursor in view,
// and the status line on the last row.
func (w *workspace) drawView(screen tcell.Screen) {
	width, height := screen.Size()
	base := w.theme.Base()
	bar := base.Reverse(true)
	screen.SetStyle(base)
	screen.Clear()
	screen.HideCursor()
	if height <= 0 {
		return
	}
	drawText(screen, 0, width, renderTabBar(w.tabs.Tabs(), width), bar)

	s := w.tabs.ActiveSession()
	if s == nil {
		if height > 1 {
			drawText(screen, height-1, width, w.status, bar)
		}
		return
	}
	rows := height - 2
	doc := s.Snapshot()
	visible := s.FoldRegions().VisibleLines(doc.LineCount())
	cursor := s.Cursor()
	cursorLine, _, _ := doc.PositionOf(cursor)
	top := scrollTop(visible, cursorLine, rows)

	pair, status := s.BracketAtCursor()
	over := func(offset int) (tcell.Style, bool) {
		if status != editor.MatchNone && (offset == pair.Open || offset == pair.Close) {
			return w.theme.BracketStyle(status), true
		}
		m := w.find.matches
		i := sort.Search(len(m), func(i int) bool { return m[i].End > offset })
		if i < len(m) && m[i].Start <= offset {
			return w.theme.MatchStyle(i == w.find.current), true
		}
		return tcell.Style{}, false
	}

	for row := 0; row < rows && top+row < len(visible); row++ {
		line := visible[top+row]
		text, err := doc.LineAt(line)
		if err != nil {
			break
		}
		start, _ := doc.LineStart(line)
		x := w.drawLine(screen, row+1, width, text, start, s.Tokens(line), cursor, over)
		if line == cursorLine && x >= 0 {
			screen.ShowCursor(x, row+1)
		}
	}

	if height > 1 {
		st := s.Status()
		msg := fmt.Sprintf("%s  %s", st, st.Grammar)
		if w.status != "" {
			msg += "  " + w.status
		}
		drawText(screen, height-1, width, msg, bar)
	}
}

// scrollTop returns the index into visible of the first row shown so that
// the cursor line, or the fold header hiding it, is on screen.
func scrollTop(visible []int, cursorLine, rows int) int {
	i, found := slices.BinarySearch(visible, cursorLine)
	if !found {
		i--
	}
	return max(0, i-rows+1)
}

// drawLine draws one line of text at row y with token colours, expanding
// tabs. It returns the cell of cursor when it falls on this line, or -1.
func (w *workspace) drawLine(screen tcell.Screen, y, width int, text string, start int, tokens []grammars.Token, cursor int, over func(int) (tcell.Style, bool)) int {
	tabWidth := max(w.cfg.TabWidth, 1)
	cursorX := -1
	x, k := 0, 0
	for i, r := range text {
		if start+i == cursor {
			cursorX = x
		}
		for k < len(tokens) && tokens[k].End <= i {
			k++
		}
		cat := grammars.Plain
		if k < len(tokens) && tokens[k].Start <= i {
			cat = tokens[k].Category
		}
		style := w.theme.StyleFor(cat)
		if st, ok := over(start + i); ok {
			style = st
		}

		if r == '\t' {
			for n := tabWidth - x%tabWidth; n > 0 && x < width; n-- {
				screen.SetContent(x, y, ' ', nil, style)
				x++
			}
			continue
		}
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if x+rw > width {
			break
		}
		screen.SetContent(x, y, r, nil, style)
		x += rw
	}
	if start+len(text) == cursor && x < width {
		cursorX = x
	}
	return cursorX
}

// drawText fills row y with s in style, padded or truncated to width.
func drawText(screen tcell.Screen, y, width int, s string, style tcell.Style) {
	s = runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
	x := 0
	for _, r := range s {
		screen.SetContent(x, y, r, nil, style)
		x += max(runewidth.RuneWidth(r), 1)
	}
}

// screenRows returns the rows of a simulation screen as text without
// trailing blanks.
func screenRows(screen tcell.SimulationScreen) []string {
	cells, width, height := screen.GetContents()
	rows := make([]string, height)
	for y := 0; y < height; y++ {
		var b strings.Builder
		for x := 0; x < width; x++ {
			c := cells[y*width+x]
			if len(c.Runes) == 0 {
				b.WriteByte(' ')
				continue
			}
			b.WriteString(string(c.Runes))
			x += max(runewidth.RuneWidth(c.Runes[0]), 1) - 1
		}
		rows[y] = strings.TrimRight(b.String(), " ")
	}
	return rows
}
