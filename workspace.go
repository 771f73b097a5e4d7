package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"pkt.systems/pslog"

	"github.com/e4code/e4/commands"
	"github.com/e4code/e4/config"
	"github.com/e4code/e4/editor"
	"github.com/e4code/e4/filetree"
	"github.com/e4code/e4/highlight"
	"github.com/e4code/e4/search"
	"github.com/e4code/e4/theme"
)

var (
	errCancelled = errors.New("cancelled")
	errNoFile    = errors.New("no matching file")
)

// workspace wires the tab manager, the background highlighter, the search
// engine and the command list around one configuration. All methods run on
// the goroutine that owns the workspace.
type workspace struct {
	cfg      config.Config
	cfgPath  string
	log      pslog.Logger
	tabs     *editor.TabManager
	search   *search.Engine
	worker   *highlight.Worker
	theme    *theme.Theme
	lister   *filetree.OSLister
	tree     *filetree.Tree
	finder   *filetree.Finder
	root     string
	commands []commands.Command
	find     findState
	status   string

	// prompt asks for one line of input; ok is false when dismissed.
	prompt func(label, initial string) (value string, ok bool)
	// confirm answers the unsaved-changes question for a tab.
	confirm func(title string) editor.Decision
}

type workspaceOption func(*workspace)

func withConfigPath(path string) workspaceOption {
	return func(w *workspace) { w.cfgPath = path }
}

func withPrompt(fn func(label, initial string) (string, bool)) workspaceOption {
	return func(w *workspace) { w.prompt = fn }
}

func withConfirm(fn func(title string) editor.Decision) workspaceOption {
	return func(w *workspace) { w.confirm = fn }
}

func withRoot(dir string) workspaceOption {
	return func(w *workspace) { w.root = dir }
}

// newWorkspace builds a workspace from cfg. The highlight worker runs until
// ctx is done or Close is called.
func newWorkspace(ctx context.Context, cfg config.Config, opts ...workspaceOption) (*workspace, error) {
	log := pslog.Ctx(ctx)
	w := &workspace{
		cfg:     cfg,
		log:     log,
		prompt:  func(string, string) (string, bool) { return "", false },
		confirm: func(string) editor.Decision { return editor.DecisionCancel },
	}
	for _, opt := range opts {
		opt(w)
	}

	th, err := theme.Load(cfg.Theme)
	if err != nil {
		return nil, err
	}
	w.theme = th

	lister, err := filetree.NewOSLister(
		filetree.WithIgnore(cfg.Files.Ignore...),
		filetree.WithParentEntry(true),
	)
	if err != nil {
		return nil, err
	}
	w.lister = lister
	if w.root == "" {
		w.root = cfg.Session.LastOpenedDirectory
	}
	if w.root == "" {
		w.root = "."
	}
	if abs, err := filepath.Abs(w.root); err == nil {
		w.root = abs
	}
	if w.tree, err = filetree.NewTree(w.root, lister, filetree.WithTreeLogger(log)); err != nil {
		return nil, err
	}

	w.tabs = editor.NewTabManager(
		editor.WithTabLogger(log),
		editor.WithSessionOptions(
			editor.WithSessionLogger(log),
			editor.WithHistoryOptions(
				editor.WithHistoryLimit(cfg.History.Limit),
				editor.WithCoalesceWindow(cfg.History.CoalesceWindow()),
			),
			editor.WithBracketScanLimit(cfg.Brackets.MaxScanBytes),
			editor.WithHighlightBatch(cfg.Highlight.BatchLines),
			editor.WithTabWidth(cfg.TabWidth),
		),
	)
	w.search = search.NewEngine(
		search.WithRegexTimeout(cfg.Search.RegexTimeout()),
		search.WithCacheSize(cfg.Search.CacheSize),
		search.WithLogger(log),
	)
	w.worker = highlight.NewWorker(ctx,
		highlight.WithDebounce(cfg.Highlight.Debounce()),
		highlight.WithLogger(log),
	)
	w.find.opts.Wrap = cfg.Search.Wrap
	w.commands = commands.All(w.actions())
	return w, nil
}

// Close stops the highlight worker.
func (w *workspace) Close() {
	w.worker.Close()
}

func (w *workspace) setStatus(msg string) {
	w.status = msg
	w.log.Debug("status", "message", msg)
}

// activeSession returns the session of the active tab.
func (w *workspace) activeSession() (*editor.Session, error) {
	s := w.tabs.ActiveSession()
	if s == nil {
		return nil, editor.ErrNoTab
	}
	return s, nil
}

// newFile opens an empty tab indented the configured way.
func (w *workspace) newFile() *editor.Session {
	i := w.tabs.NewTab()
	s := w.tabs.Session(i)
	s.SetIndentUnit(w.cfg.IndentUnit())
	w.find.clear()
	return s
}

// open opens path in a tab, or activates the tab already holding it.
func (w *workspace) open(path string) (*editor.Session, error) {
	i, err := w.tabs.OpenFile(path)
	if err != nil {
		w.setStatus(fmt.Sprintf("open failed: %v", err))
		return nil, err
	}
	w.find.clear()
	s := w.tabs.Session(i)
	w.setStatus(fmt.Sprintf("Opened %s", s.Title()))
	return s, nil
}

// save writes the active tab, asking for a path when it has none.
func (w *workspace) save() error {
	i := w.tabs.Active()
	err := w.tabs.Save(i)
	if errors.Is(err, editor.ErrNoPath) {
		return w.saveAs()
	}
	if err != nil {
		w.setStatus(fmt.Sprintf("save failed: %v", err))
		return err
	}
	w.setStatus(fmt.Sprintf("Saved %s", w.tabs.Session(i).Title()))
	return nil
}

func (w *workspace) saveAs() error {
	s, err := w.activeSession()
	if err != nil {
		return err
	}
	path, ok := w.prompt("Save as", s.Path())
	if !ok || path == "" {
		return errCancelled
	}
	if err := w.tabs.SaveAs(w.tabs.Active(), path); err != nil {
		w.setStatus(fmt.Sprintf("save failed: %v", err))
		return err
	}
	w.setStatus(fmt.Sprintf("Saved %s", s.Title()))
	return nil
}

// closeTab closes the tab at index, asking about unsaved changes.
func (w *workspace) closeTab(index int) error {
	out, err := w.tabs.CloseTab(index)
	if err != nil {
		return err
	}
	if out == editor.ClosePromptRequired {
		out, err = w.resolveClose(index)
		if err != nil {
			return err
		}
	}
	if out == editor.CloseCancelled {
		return errCancelled
	}
	w.find.clear()
	return nil
}

func (w *workspace) resolveClose(index int) (editor.CloseOutcome, error) {
	d := w.confirm(w.tabs.Session(index).Title())
	out, err := w.tabs.ResolveClose(index, d)
	if err != nil || out != editor.CloseSaveRequired {
		return out, err
	}
	active := w.tabs.Active()
	if err := w.tabs.SetActive(index); err != nil {
		return editor.CloseCancelled, err
	}
	if err := w.save(); err != nil {
		_ = w.tabs.SetActive(active)
		return editor.CloseCancelled, err
	}
	return w.tabs.ResolveClose(index, d)
}

// closeAll closes every tab, stopping at the first one the user keeps.
func (w *workspace) closeAll() error {
	for {
		i, out := w.tabs.CloseAll()
		if out == editor.CloseCompleted {
			w.find.clear()
			return nil
		}
		out, err := w.resolveClose(i)
		if err != nil {
			return err
		}
		if out == editor.CloseCancelled {
			return errCancelled
		}
	}
}

func (w *workspace) cycleTab(delta int) error {
	n := w.tabs.Count()
	if n == 0 {
		return editor.ErrNoTab
	}
	w.find.clear()
	return w.tabs.SetActive(((w.tabs.Active()+delta)%n + n) % n)
}

// candidates ranks the files below the root against query. The file list
// is collected on first use.
func (w *workspace) candidates(query string, limit int) ([]filetree.Match, error) {
	if w.finder == nil {
		finder := filetree.NewFinder(w.root, w.lister)
		if err := finder.Refresh(); err != nil {
			return nil, err
		}
		w.finder = finder
	}
	return w.finder.Find(query, limit), nil
}

// treeChanged drops state derived from the directory listing after dir
// changed on disk.
func (w *workspace) treeChanged(dir string) {
	w.tree.Invalidate(dir)
	w.finder = nil
}

// quickOpen opens the best file match for query below the root.
func (w *workspace) quickOpen(query string) (*editor.Session, error) {
	found, err := w.candidates(query, 1)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%q: %w", query, errNoFile)
	}
	return w.open(found[0].Path)
}

// edit runs fn on the active session and refreshes search matches.
func (w *workspace) edit(fn func(s *editor.Session) error) error {
	s, err := w.activeSession()
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	if w.find.query != "" {
		return w.refreshMatches(s)
	}
	return nil
}

func (w *workspace) moveLine(delta int) error {
	return w.edit(func(s *editor.Session) error {
		_, err := s.MoveLine(delta)
		return err
	})
}

// matchBracket moves the cursor to the partner of the bracket at the
// cursor.
func (w *workspace) matchBracket() error {
	s, err := w.activeSession()
	if err != nil {
		return err
	}
	pair, status := s.BracketAtCursor()
	w.setStatus("Bracket " + status.String())
	if status != editor.MatchFound {
		return nil
	}
	switch cur := s.Cursor(); {
	case cur == pair.Close:
		return s.SetCursor(pair.Open)
	case cur == pair.Open || cur-1 == pair.Open:
		return s.SetCursor(pair.Close)
	}
	return s.SetCursor(pair.Open)
}

func (w *workspace) foldAtCursor() error {
	s, err := w.activeSession()
	if err != nil {
		return err
	}
	line, _, err := s.Snapshot().PositionOf(s.Cursor())
	if err != nil {
		return err
	}
	if !s.FoldRegions().Toggle(line) {
		w.setStatus("No fold at cursor")
	}
	return nil
}

func (w *workspace) setFolded(folded bool) error {
	s, err := w.activeSession()
	if err != nil {
		return err
	}
	s.FoldRegions().SetAll(folded)
	return nil
}

// highlight brings the token cache of s up to date, through the background
// worker unless it is disabled.
func (w *workspace) highlight(ctx context.Context, s *editor.Session) error {
	if !w.cfg.Highlight.Background {
		s.Cache().EnsureUpToDate(s.Buffer())
		return nil
	}
	for s.Cache().DirtyCount() > 0 {
		s.ScheduleHighlight(w.worker)
		select {
		case res, ok := <-w.worker.Results():
			if !ok {
				return context.Canceled
			}
			if _, err := s.ApplyHighlight(res); err != nil && !errors.Is(err, highlight.ErrStaleResult) {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// rememberSession stores the open files and root in the configuration file.
func (w *workspace) rememberSession() error {
	w.cfg.RememberSession(w.tabs.OpenPaths(), w.root)
	path, err := config.Save(w.cfgPath, w.cfg)
	if err != nil {
		return err
	}
	w.log.Info("session saved", "config", path, "files", len(w.cfg.Session.LastOpenedFiles))
	return nil
}

// restoreSession reopens the files remembered in the configuration. Files
// that cannot be opened are skipped.
func (w *workspace) restoreSession() int {
	n := 0
	for _, path := range w.cfg.Session.LastOpenedFiles {
		if _, err := w.tabs.OpenFile(path); err != nil {
			w.log.Warn("restore skipped file", "path", path, "err", err)
			continue
		}
		n++
	}
	return n
}

// runCommand executes the command bound to shortcut.
func (w *workspace) runCommand(shortcut string) error {
	c, ok := commands.ByShortcut(w.commands, shortcut)
	if !ok {
		return fmt.Errorf("%s: %w", shortcut, commands.ErrUnbound)
	}
	return c.Execute()
}

// handleEvent applies one terminal event: keys run their bound command and
// a click on the tab bar activates the tab under the pointer.
func (w *workspace) handleEvent(ev tcell.Event) error {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return w.runCommand(commands.KeyShortcut(ev))
	case *tcell.EventMouse:
		x, y := ev.Position()
		if y != 0 || ev.Buttons()&tcell.Button1 == 0 {
			return nil
		}
		i := tabAtX(w.tabs.Tabs(), x)
		if i < 0 || i == w.tabs.Active() {
			return nil
		}
		w.find.clear()
		return w.tabs.SetActive(i)
	}
	return nil
}

func (w *workspace) actions() commands.Actions {
	return commands.Actions{
		NewFile: func() error {
			w.newFile()
			return nil
		},
		OpenFile: func() error {
			path, ok := w.prompt("Open", w.root)
			if !ok || path == "" {
				return errCancelled
			}
			_, err := w.open(path)
			return err
		},
		QuickOpen: func() error {
			query, ok := w.prompt("Go to file", "")
			if !ok {
				return errCancelled
			}
			_, err := w.quickOpen(query)
			return err
		},
		SaveFile: w.save,
		SaveAs:   w.saveAs,
		CloseTab: func() error { return w.closeTab(w.tabs.Active()) },
		CloseAll: w.closeAll,
		NextTab:  func() error { return w.cycleTab(1) },
		PrevTab:  func() error { return w.cycleTab(-1) },
		Undo: func() error {
			return w.edit(func(s *editor.Session) error {
				_, err := s.Undo()
				return err
			})
		},
		Redo: func() error {
			return w.edit(func(s *editor.Session) error {
				_, err := s.Redo()
				return err
			})
		},
		Indent:        func() error { return w.edit((*editor.Session).Indent) },
		Outdent:       func() error { return w.edit((*editor.Session).Outdent) },
		DeleteLine:    func() error { return w.edit((*editor.Session).DeleteLine) },
		DuplicateLine: func() error { return w.edit((*editor.Session).DuplicateLine) },
		MoveLineUp:    func() error { return w.moveLine(-1) },
		MoveLineDown:  func() error { return w.moveLine(1) },
		Find: func() error {
			query, ok := w.prompt("Find", w.find.query)
			if !ok {
				return errCancelled
			}
			return w.onSearch(query)
		},
		FindNext:     w.onSearchNext,
		FindPrevious: w.onSearchPrev,
		Replace: func() error {
			if w.find.query == "" {
				query, ok := w.prompt("Find", "")
				if !ok {
					return errCancelled
				}
				if err := w.onSearch(query); err != nil {
					return err
				}
			}
			repl, ok := w.prompt("Replace", w.find.replacement)
			if !ok {
				return errCancelled
			}
			w.find.replacement = repl
			return w.onReplace()
		},
		ReplaceAll: func() error {
			_, err := w.onReplaceAll()
			return err
		},
		GotoLine: func() error {
			s, err := w.activeSession()
			if err != nil {
				return err
			}
			query, ok := w.prompt("Go to line", fmt.Sprint(s.Status().Line))
			if !ok {
				return errCancelled
			}
			return w.onGotoLine(query)
		},
		MatchBracket: w.matchBracket,
		FoldAtCursor: w.foldAtCursor,
		FoldAll:      func() error { return w.setFolded(true) },
		UnfoldAll:    func() error { return w.setFolded(false) },
	}
}
