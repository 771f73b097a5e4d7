package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/e4code/e4/commands"
	"github.com/e4code/e4/config"
	"github.com/e4code/e4/editor"
	"github.com/e4code/e4/grammars"
	"github.com/e4code/e4/search"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestWorkspace(t *testing.T, opts ...workspaceOption) *workspace {
	t.Helper()
	return newTestWorkspaceWith(t, config.DefaultConfig(), opts...)
}

func newTestWorkspaceWith(t *testing.T, cfg config.Config, opts ...workspaceOption) *workspace {
	t.Helper()
	opts = append([]workspaceOption{withRoot(t.TempDir())}, opts...)
	ws, err := newWorkspace(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("newWorkspace: %v", err)
	}
	t.Cleanup(ws.Close)
	return ws
}

func mustRun(t *testing.T, ws *workspace, shortcut string) {
	t.Helper()
	ev, err := commands.ParseKey(shortcut)
	if err != nil {
		t.Fatalf("%s: %v", shortcut, err)
	}
	if err := ws.handleEvent(ev); err != nil {
		t.Fatalf("%s: %v", shortcut, err)
	}
}

func TestWorkspaceLineCommands(t *testing.T) {
	ws := newTestWorkspace(t)
	path := writeFile(t, ws.root, "a.py", "a = 1\nb = 2\n")
	s, err := ws.open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	steps := []struct {
		shortcut string
		cursor   int
		want     string
	}{
		{"Alt+Down", 0, "b = 2\na = 1\n"},
		{"Ctrl+Z", -1, "a = 1\nb = 2\n"},
		{"Ctrl+Shift+Z", -1, "b = 2\na = 1\n"},
		{"Ctrl+Z", -1, "a = 1\nb = 2\n"},
		{"Ctrl+Shift+D", 0, "a = 1\na = 1\nb = 2\n"},
		{"Ctrl+Shift+K", 0, "a = 1\nb = 2\n"},
		{"Tab", 0, "    a = 1\nb = 2\n"},
		{"Ctrl+Shift+Tab", 0, "a = 1\nb = 2\n"},
	}
	for _, step := range steps {
		if step.cursor >= 0 {
			if err := s.SetCursor(step.cursor); err != nil {
				t.Fatalf("SetCursor: %v", err)
			}
		}
		mustRun(t, ws, step.shortcut)
		if got := s.Text(); got != step.want {
			t.Fatalf("after %s text = %q, want %q", step.shortcut, got, step.want)
		}
	}
	if !s.Dirty() {
		t.Error("session should stay dirty after edits")
	}
}

func TestWorkspaceCommandErrors(t *testing.T) {
	ws := newTestWorkspace(t)
	if err := ws.runCommand("Ctrl+Y"); !errors.Is(err, commands.ErrUnbound) {
		t.Errorf("Ctrl+Y = %v, want ErrUnbound", err)
	}
	if err := ws.runCommand("Ctrl+Z"); !errors.Is(err, editor.ErrNoTab) {
		t.Errorf("Ctrl+Z without tabs = %v, want ErrNoTab", err)
	}
	if err := ws.runCommand("Ctrl+O"); !errors.Is(err, errCancelled) {
		t.Errorf("Ctrl+O with dismissed prompt = %v, want errCancelled", err)
	}
}

func TestWorkspaceFindReplace(t *testing.T) {
	ws := newTestWorkspace(t)
	s, err := ws.open(writeFile(t, ws.root, "notes.txt", "foo bar foo\nfoo\n"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := ws.onSearch("foo"); err != nil {
		t.Fatalf("onSearch: %v", err)
	}
	if ws.status != "1/3" {
		t.Fatalf("status = %q, want 1/3", ws.status)
	}
	if sel := s.Selection(); sel.Anchor != 0 || sel.Cursor != 3 {
		t.Fatalf("selection = %+v, want 0-3", sel)
	}

	moves := []struct {
		next bool
		want string
	}{
		{true, "2/3"},
		{true, "3/3"},
		{true, "1/3"},
		{false, "3/3"},
	}
	for _, m := range moves {
		move := ws.onSearchPrev
		if m.next {
			move = ws.onSearchNext
		}
		if err := move(); err != nil {
			t.Fatalf("move: %v", err)
		}
		if ws.status != m.want {
			t.Fatalf("status = %q, want %q", ws.status, m.want)
		}
	}
	if got := s.Selection().Range(); got != (editor.Range{Start: 12, End: 15}) {
		t.Fatalf("selection = %+v, want 12-15", got)
	}

	ws.find.replacement = "qux"
	if err := ws.onReplace(); err != nil {
		t.Fatalf("onReplace: %v", err)
	}
	if got := s.Text(); got != "foo bar foo\nqux\n" {
		t.Fatalf("text = %q", got)
	}
	if ws.status != "1/2" {
		t.Fatalf("status = %q, want 1/2", ws.status)
	}

	n, err := ws.onReplaceAll()
	if err != nil {
		t.Fatalf("onReplaceAll: %v", err)
	}
	if n != 2 || s.Text() != "qux bar qux\nqux\n" {
		t.Fatalf("onReplaceAll = %d, text %q", n, s.Text())
	}
	if ws.status != "Replaced 2 occurrence(s)" {
		t.Fatalf("status = %q", ws.status)
	}

	mustRun(t, ws, "Ctrl+Z")
	if got := s.Text(); got != "foo bar foo\nqux\n" {
		t.Fatalf("undo replace all: text = %q", got)
	}
}

func TestWorkspaceFindNoMatches(t *testing.T) {
	ws := newTestWorkspace(t)
	if _, err := ws.open(writeFile(t, ws.root, "a.txt", "alpha\n")); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := ws.onSearch("zzz"); err != nil {
		t.Fatalf("onSearch: %v", err)
	}
	if ws.status != "No matches" {
		t.Errorf("status = %q, want No matches", ws.status)
	}
	if err := ws.onSearchNext(); err != nil {
		t.Errorf("onSearchNext = %v", err)
	}

	ws.find.opts.Regex = true
	if err := ws.onSearch("("); !errors.Is(err, search.ErrInvalidRegex) {
		t.Errorf("onSearch(() = %v, want ErrInvalidRegex", err)
	}
	if len(ws.find.matches) != 0 {
		t.Errorf("matches = %v, want none", ws.find.matches)
	}
}

func TestWorkspaceSearchFollowsEdits(t *testing.T) {
	ws := newTestWorkspace(t)
	s, err := ws.open(writeFile(t, ws.root, "a.txt", "ab\nab\n"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := ws.onSearch("ab"); err != nil {
		t.Fatalf("onSearch: %v", err)
	}
	if err := s.SetCursor(0); err != nil {
		t.Fatal(err)
	}
	mustRun(t, ws, "Ctrl+Shift+D")
	if len(ws.find.matches) != 3 {
		t.Errorf("matches after duplicate = %d, want 3", len(ws.find.matches))
	}
}

func TestWorkspaceGotoLine(t *testing.T) {
	ws := newTestWorkspace(t)
	if _, err := ws.open(writeFile(t, ws.root, "a.txt", "one\ntwo\nthree")); err != nil {
		t.Fatalf("open: %v", err)
	}
	tests := []struct {
		query, want string
	}{
		{"2:3", "Ln 2, Col 3"},
		{"99", "Ln 3, Col 1"},
		{"2:99", "Ln 2, Col 4"},
		{" 1 ", "Ln 1, Col 1"},
	}
	for _, tt := range tests {
		if err := ws.onGotoLine(tt.query); err != nil {
			t.Fatalf("onGotoLine(%q): %v", tt.query, err)
		}
		if ws.status != tt.want {
			t.Errorf("onGotoLine(%q) status = %q, want %q", tt.query, ws.status, tt.want)
		}
	}
	if err := ws.onGotoLine("x"); !errors.Is(err, errInvalidPosition) {
		t.Errorf("onGotoLine(x) = %v, want errInvalidPosition", err)
	}
	if ws.status != "Invalid line number" {
		t.Errorf("status = %q", ws.status)
	}

	ws.prompt = func(label, initial string) (string, bool) {
		if initial != "1" {
			t.Errorf("prompt initial = %q, want current line 1", initial)
		}
		return "3", true
	}
	mustRun(t, ws, "Ctrl+G")
	if ws.status != "Ln 3, Col 1" {
		t.Errorf("Ctrl+G status = %q", ws.status)
	}
}

func TestWorkspaceMatchBracket(t *testing.T) {
	ws := newTestWorkspace(t)
	s, err := ws.open(writeFile(t, ws.root, "main.rs", "fn main() {\n    let s = \"(\";\n}\n"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SetCursor(10); err != nil {
		t.Fatal(err)
	}
	mustRun(t, ws, "Ctrl+]")
	if got := s.Cursor(); got != 29 {
		t.Fatalf("cursor = %d, want 29", got)
	}
	mustRun(t, ws, "Ctrl+]")
	if got := s.Cursor(); got != 10 {
		t.Fatalf("cursor = %d, want 10", got)
	}
	if ws.status != "Bracket found" {
		t.Errorf("status = %q", ws.status)
	}

	if err := s.SetCursor(2); err != nil {
		t.Fatal(err)
	}
	mustRun(t, ws, "Ctrl+]")
	if got := s.Cursor(); got != 2 {
		t.Errorf("cursor moved to %d without a bracket", got)
	}
	if ws.status != "Bracket none" {
		t.Errorf("status = %q", ws.status)
	}
}

func TestWorkspaceFolding(t *testing.T) {
	ws := newTestWorkspace(t)
	s, err := ws.open(writeFile(t, ws.root, "main.rs", "fn main() {\n    a();\n    b();\n}\n"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	mustRun(t, ws, "Ctrl+Shift+[")
	folds := s.FoldRegions()
	if !folds.IsLineHidden(1) || !folds.IsLineHidden(3) {
		t.Fatalf("region not folded: %+v", folds.Regions())
	}
	unfold, _ := commands.Find(ws.commands, "view.unfold_all")
	if err := unfold.Execute(); err != nil {
		t.Fatal(err)
	}
	if s.FoldRegions().IsLineHidden(1) {
		t.Error("line 1 still hidden after unfold all")
	}
}

func TestWorkspaceTabs(t *testing.T) {
	ws := newTestWorkspace(t)
	mustRun(t, ws, "Ctrl+N")
	mustRun(t, ws, "Ctrl+N")
	tabs := ws.tabs.Tabs()
	if len(tabs) != 2 || tabs[0].Title != "Untitled-1" || tabs[1].Title != "Untitled-2" {
		t.Fatalf("tabs = %+v", tabs)
	}
	if ws.tabs.Active() != 1 {
		t.Fatalf("active = %d, want 1", ws.tabs.Active())
	}
	mustRun(t, ws, "Ctrl+PgDn")
	if ws.tabs.Active() != 0 {
		t.Errorf("next tab wraps to %d, want 0", ws.tabs.Active())
	}
	mustRun(t, ws, "Ctrl+PgUp")
	if ws.tabs.Active() != 1 {
		t.Errorf("previous tab wraps to %d, want 1", ws.tabs.Active())
	}
	if got := ws.tabs.ActiveSession().IndentUnit(); got != "    " {
		t.Errorf("indent unit = %q", got)
	}
}

func TestWorkspaceTabClick(t *testing.T) {
	ws := newTestWorkspace(t)
	mustRun(t, ws, "Ctrl+N")
	mustRun(t, ws, "Ctrl+N")
	ws.find.matches = []editor.Range{{Start: 0, End: 1}}

	// " Untitled-1 " spans cells 0-11, the separator 12, the second tab 13-24.
	clicks := []struct {
		x, y int
		btn  tcell.ButtonMask
		want int
	}{
		{2, 0, tcell.Button1, 0},
		{12, 0, tcell.Button1, 0},
		{14, 0, tcell.Button1, 1},
		{2, 3, tcell.Button1, 1},
		{2, 0, tcell.Button2, 1},
		{40, 0, tcell.Button1, 1},
	}
	for _, c := range clicks {
		if err := ws.handleEvent(tcell.NewEventMouse(c.x, c.y, c.btn, tcell.ModNone)); err != nil {
			t.Fatalf("click %d,%d: %v", c.x, c.y, err)
		}
		if got := ws.tabs.Active(); got != c.want {
			t.Errorf("click %d,%d: active = %d, want %d", c.x, c.y, got, c.want)
		}
	}
	if ws.find.matches != nil {
		t.Error("switching tabs kept the old matches")
	}
}

func TestWorkspaceNewFileUsesTabs(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.InsertSpaces = false
	ws := newTestWorkspaceWith(t, cfg)
	if got := ws.newFile().IndentUnit(); got != "\t" {
		t.Errorf("indent unit = %q, want tab", got)
	}
}

func TestWorkspaceCloseUnsaved(t *testing.T) {
	decision := editor.DecisionCancel
	ws := newTestWorkspace(t, withConfirm(func(string) editor.Decision { return decision }))
	path := writeFile(t, ws.root, "a.txt", "hello\n")
	s, err := ws.open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Insert("x"); err != nil {
		t.Fatal(err)
	}

	if err := ws.runCommand("Ctrl+W"); !errors.Is(err, errCancelled) {
		t.Fatalf("close with cancel = %v, want errCancelled", err)
	}
	if ws.tabs.Count() != 1 {
		t.Fatalf("tab closed despite cancel")
	}

	decision = editor.DecisionSave
	mustRun(t, ws, "Ctrl+W")
	if ws.tabs.Count() != 0 {
		t.Fatalf("tab still open after save")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "xhello\n" {
		t.Errorf("saved %q", data)
	}
}

func TestWorkspaceCloseAllDiscard(t *testing.T) {
	ws := newTestWorkspace(t, withConfirm(func(string) editor.Decision { return editor.DecisionDiscard }))
	var paths []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		path := writeFile(t, ws.root, name, name+"\n")
		paths = append(paths, path)
		s, err := ws.open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if name != "b.txt" {
			if err := s.Insert("!"); err != nil {
				t.Fatal(err)
			}
		}
	}
	mustRun(t, ws, "Ctrl+Shift+W")
	if ws.tabs.Count() != 0 {
		t.Fatalf("count = %d, want 0", ws.tabs.Count())
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a.txt\n" {
		t.Errorf("discarded changes were written: %q", data)
	}
}

func TestWorkspaceSaveUntitled(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.py")
	ws := newTestWorkspace(t, withPrompt(func(label, _ string) (string, bool) {
		return target, label == "Save as"
	}))
	s := ws.newFile()
	if err := s.Insert("print(1)\n"); err != nil {
		t.Fatal(err)
	}
	mustRun(t, ws, "Ctrl+S")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "print(1)\n" {
		t.Errorf("saved %q", data)
	}
	if s.Dirty() || s.Title() != "out.py" || s.Grammar() != grammars.Python {
		t.Errorf("after save: dirty=%v title=%q grammar=%s", s.Dirty(), s.Title(), s.Grammar())
	}
	if ws.status != "Saved out.py" {
		t.Errorf("status = %q", ws.status)
	}
}

func TestWorkspaceQuickOpen(t *testing.T) {
	query := "main"
	ws := newTestWorkspace(t, withPrompt(func(string, string) (string, bool) { return query, true }))
	writeFile(t, ws.root, "src/main.rs", "fn main() {}\n")
	writeFile(t, ws.root, "README.md", "# readme\n")
	writeFile(t, ws.root, "vendor/main.rs", "fn vendored() {}\n")

	mustRun(t, ws, "Ctrl+P")
	s := ws.tabs.ActiveSession()
	if s == nil || s.Path() != filepath.Join(ws.root, "src", "main.rs") {
		t.Fatalf("opened %+v", ws.tabs.Tabs())
	}
	if s.Grammar() != grammars.Rust {
		t.Errorf("grammar = %s", s.Grammar())
	}

	writeFile(t, ws.root, "src/lib.rs", "pub fn f() {}\n")
	if found, _ := ws.candidates("lib", 0); len(found) != 0 {
		t.Errorf("file list refreshed before a change was seen: %v", found)
	}
	ws.treeChanged(filepath.Join(ws.root, "src"))
	found, err := ws.candidates("lib", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Rel != "src/lib.rs" {
		t.Errorf("candidates(lib) = %+v", found)
	}

	query = "nothing-like-this"
	if err := ws.runCommand("Ctrl+P"); !errors.Is(err, errNoFile) {
		t.Errorf("Ctrl+P = %v, want errNoFile", err)
	}
}

func TestWorkspaceHighlight(t *testing.T) {
	for _, background := range []bool{true, false} {
		cfg := config.DefaultConfig()
		cfg.Highlight.Background = background
		cfg.Highlight.BatchLines = 2
		ws := newTestWorkspaceWith(t, cfg)
		s, err := ws.open(writeFile(t, ws.root, "lib.rs", "/* a\nb */\nfn f() {}\nlet x = 1;\n"))
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := ws.highlight(context.Background(), s); err != nil {
			t.Fatalf("highlight: %v", err)
		}
		if n := s.Cache().DirtyCount(); n != 0 {
			t.Errorf("background=%v: %d dirty lines left", background, n)
		}
		toks, _, _, dirty := s.Cache().Cached(2)
		if dirty || len(toks) == 0 || toks[0].Category != grammars.Keyword {
			t.Errorf("background=%v: line 2 tokens = %+v dirty=%v", background, toks, dirty)
		}
		toks, _, _, _ = s.Cache().Cached(1)
		if len(toks) == 0 || toks[0].Category != grammars.Comment {
			t.Errorf("background=%v: line 1 tokens = %+v", background, toks)
		}
	}
}

func TestWorkspaceSessionRoundTrip(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	ws := newTestWorkspace(t, withConfigPath(cfgPath))
	a := writeFile(t, ws.root, "a.rs", "fn a() {}\n")
	b := writeFile(t, ws.root, "b.py", "b = 1\n")
	for _, p := range []string{a, b} {
		if _, err := ws.open(p); err != nil {
			t.Fatalf("open: %v", err)
		}
	}
	if err := ws.rememberSession(); err != nil {
		t.Fatalf("rememberSession: %v", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Session.LastOpenedFiles) != 2 || cfg.Session.LastOpenedFiles[0] != a || cfg.Session.LastOpenedFiles[1] != b {
		t.Fatalf("LastOpenedFiles = %v", cfg.Session.LastOpenedFiles)
	}
	if cfg.Session.LastOpenedDirectory != ws.root {
		t.Errorf("LastOpenedDirectory = %q, want %q", cfg.Session.LastOpenedDirectory, ws.root)
	}

	if err := os.Remove(b); err != nil {
		t.Fatal(err)
	}
	restored, err := newWorkspace(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newWorkspace: %v", err)
	}
	defer restored.Close()
	if restored.root != ws.root {
		t.Errorf("root = %q, want remembered %q", restored.root, ws.root)
	}
	if n := restored.restoreSession(); n != 1 {
		t.Errorf("restoreSession = %d, want 1", n)
	}
	if paths := restored.tabs.OpenPaths(); len(paths) != 1 || paths[0] != a {
		t.Errorf("OpenPaths = %v", paths)
	}
}
