package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/e4code/e4/editor"
	"github.com/e4code/e4/grammars"
)

func drawSim(t *testing.T, ws *workspace, width, height int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(width, height)
	ws.drawView(screen)
	screen.Show()
	return screen
}

func simCell(screen tcell.SimulationScreen, x, y int) tcell.SimCell {
	cells, width, _ := screen.GetContents()
	return cells[y*width+x]
}

func TestDrawViewColours(t *testing.T) {
	ws := newTestWorkspace(t)
	s, err := ws.open(writeFile(t, ws.root, "lib.rs", "fn f() {}\n"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SetCursor(4); err != nil {
		t.Fatal(err)
	}
	screen := drawSim(t, ws, 30, 4)

	rows := screenRows(screen)
	if !strings.HasPrefix(rows[0], "[lib.rs]") {
		t.Errorf("tab bar = %q", rows[0])
	}
	if rows[1] != "fn f() {}" {
		t.Errorf("text row = %q", rows[1])
	}
	if !strings.HasPrefix(rows[3], "Ln 1, Col 5  rust") {
		t.Errorf("status row = %q", rows[3])
	}

	th := ws.theme
	for x := 0; x < 2; x++ {
		if got := simCell(screen, x, 1).Style; got != th.StyleFor(grammars.Keyword) {
			t.Errorf("cell %d style = %v, want keyword", x, got)
		}
	}
	for _, x := range []int{4, 5} {
		if got := simCell(screen, x, 1).Style; got != th.BracketStyle(editor.MatchFound) {
			t.Errorf("bracket cell %d style = %v", x, got)
		}
	}
	if got := simCell(screen, 7, 1).Style; got == th.BracketStyle(editor.MatchFound) {
		t.Error("unmatched brace drawn as the bracket pair")
	}
	if x, y, _ := screen.GetCursor(); x != 4 || y != 1 {
		t.Errorf("cursor at %d,%d, want 4,1", x, y)
	}
}

func TestDrawViewMatches(t *testing.T) {
	ws := newTestWorkspace(t)
	if _, err := ws.open(writeFile(t, ws.root, "lib.rs", "fn f() {}\n")); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := ws.onSearch("f"); err != nil {
		t.Fatal(err)
	}
	screen := drawSim(t, ws, 30, 4)

	th := ws.theme
	if got := simCell(screen, 0, 1).Style; got != th.MatchStyle(true) {
		t.Errorf("current match style = %v", got)
	}
	if got := simCell(screen, 3, 1).Style; got != th.MatchStyle(false) {
		t.Errorf("other match style = %v", got)
	}
	if got := simCell(screen, 1, 1).Style; got != th.StyleFor(grammars.Keyword) {
		t.Errorf("cell after match style = %v", got)
	}
	if rows := screenRows(screen); !strings.HasSuffix(rows[3], "1/2") {
		t.Errorf("status row = %q", rows[3])
	}
}

func TestDrawViewScrollsToCursor(t *testing.T) {
	ws := newTestWorkspace(t)
	var b strings.Builder
	for i := 1; i <= 50; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	s, err := ws.open(writeFile(t, ws.root, "notes.txt", b.String()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := gotoPosition(s, 40, 3); err != nil {
		t.Fatal(err)
	}
	screen := drawSim(t, ws, 20, 6)

	rows := screenRows(screen)
	want := []string{"line 37", "line 38", "line 39", "line 40"}
	for i, w := range want {
		if rows[i+1] != w {
			t.Errorf("row %d = %q, want %q", i+1, rows[i+1], w)
		}
	}
	if x, y, _ := screen.GetCursor(); x != 2 || y != 4 {
		t.Errorf("cursor at %d,%d, want 2,4", x, y)
	}
}

func TestDrawViewSkipsFoldedLines(t *testing.T) {
	ws := newTestWorkspace(t)
	if _, err := ws.open(writeFile(t, ws.root, "main.rs", "fn main() {\n    a();\n    b();\n}\nfn z() {}\n")); err != nil {
		t.Fatalf("open: %v", err)
	}
	mustRun(t, ws, "Ctrl+Shift+[")
	rows := screenRows(drawSim(t, ws, 30, 8))
	if rows[1] != "fn main() {" {
		t.Errorf("fold header row = %q", rows[1])
	}
	for _, row := range rows {
		if strings.Contains(row, "a();") || strings.Contains(row, "b();") {
			t.Errorf("folded line drawn: %q", row)
		}
	}
	if !strings.Contains(strings.Join(rows, "\n"), "fn z() {}") {
		t.Errorf("line after the fold missing:\n%s", strings.Join(rows, "\n"))
	}
}

func TestDrawViewExpandsTabs(t *testing.T) {
	ws := newTestWorkspace(t)
	if _, err := ws.open(writeFile(t, ws.root, "t.txt", "\tx\nab\tc\n")); err != nil {
		t.Fatalf("open: %v", err)
	}
	screen := drawSim(t, ws, 20, 5)
	rows := screenRows(screen)
	if rows[1] != "    x" || rows[2] != "ab  c" {
		t.Errorf("rows = %q", rows[1:3])
	}
	if c := simCell(screen, 4, 1); len(c.Runes) == 0 || c.Runes[0] != 'x' {
		t.Errorf("cell 4 = %q", c.Runes)
	}
}

func TestDrawViewNoTabs(t *testing.T) {
	ws := newTestWorkspace(t)
	ws.setStatus("ready")
	rows := screenRows(drawSim(t, ws, 20, 3))
	if rows[0] != "" || rows[1] != "" || rows[2] != "ready" {
		t.Errorf("rows = %q", rows)
	}
}
