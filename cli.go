package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/e4code/e4/commands"
	"github.com/e4code/e4/editor"
	"github.com/e4code/e4/filetree"
	"github.com/e4code/e4/theme"
)

// openOne builds a workspace and opens path in it.
func openOne(cmd *cobra.Command, flags *rootFlags, path string) (*workspace, *editor.Session, error) {
	ws, err := loadWorkspace(cmd, flags)
	if err != nil {
		return nil, nil, err
	}
	s, err := ws.open(path)
	if err != nil {
		ws.Close()
		return nil, nil, err
	}
	return ws, s, nil
}

// column converts a byte offset within text to a 1-based character column.
func column(text string, offset int) int {
	return utf8.RuneCountInString(text[:offset]) + 1
}

// position formats a document offset as LINE:COL, both 1-based.
func position(s *editor.Session, offset int) string {
	line, col, err := s.Snapshot().PositionOf(offset)
	if err != nil {
		return "?"
	}
	return fmt.Sprintf("%d:%d", line+1, col+1)
}

func newTokensCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens FILE",
		Short: "Print the tokens of every line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, s, err := openOne(cmd, flags, args[0])
			if err != nil {
				return err
			}
			defer ws.Close()
			if err := ws.highlight(cmd.Context(), s); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s (%s)\n", s.Title(), s.Grammar())
			var werr error
			s.Snapshot().Lines(0, func(i int, text string) bool {
				for _, tok := range s.Tokens(i) {
					if _, werr = fmt.Fprintf(out, "%d:%d\t%s\t%q\n", i+1, column(text, tok.Start), tok.Category, tok.Text(text)); werr != nil {
						return false
					}
				}
				return true
			})
			return werr
		},
	}
}

func newHighlightCmd(flags *rootFlags) *cobra.Command {
	var style, formatter string
	cmd := &cobra.Command{
		Use:   "highlight FILE",
		Short: "Render a file with syntax colours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, s, err := openOne(cmd, flags, args[0])
			if err != nil {
				return err
			}
			defer ws.Close()
			th := ws.theme
			if style != "" {
				if th, err = theme.Load(style); err != nil {
					return fmt.Errorf("%w (available: %s)", err, strings.Join(theme.Names(), ", "))
				}
			}
			if err := ws.highlight(cmd.Context(), s); err != nil {
				return err
			}
			lines := make([]theme.Line, 0, s.Buffer().LineCount())
			s.Snapshot().Lines(0, func(i int, text string) bool {
				lines = append(lines, theme.Line{Text: text, Tokens: s.Tokens(i)})
				return true
			})
			out := cmd.OutOrStdout()
			if err := th.Format(out, formatter, lines); err != nil {
				return err
			}
			_, err = io.WriteString(out, "\n")
			return err
		},
	}
	cmd.Flags().StringVar(&style, "style", "", "colour theme (default from config)")
	cmd.Flags().StringVar(&formatter, "formatter", theme.DefaultFormatter, "output formatter")
	return cmd
}

// searchFlags are shared by find and replace.
type searchFlags struct {
	regex, matchCase, wholeWord bool
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.regex, "regex", false, "treat the pattern as a regular expression")
	cmd.Flags().BoolVar(&f.matchCase, "match-case", false, "match case")
	cmd.Flags().BoolVar(&f.wholeWord, "whole-word", false, "match whole words only")
}

func (f *searchFlags) apply(ws *workspace) {
	ws.find.opts.Regex = f.regex
	ws.find.opts.MatchCase = f.matchCase
	ws.find.opts.WholeWord = f.wholeWord
}

func newFindCmd(flags *rootFlags) *cobra.Command {
	var sf searchFlags
	cmd := &cobra.Command{
		Use:   "find FILE PATTERN",
		Short: "List the matches of a pattern",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, s, err := openOne(cmd, flags, args[0])
			if err != nil {
				return err
			}
			defer ws.Close()
			sf.apply(ws)
			if err := ws.onSearch(args[1]); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			doc := s.Snapshot()
			for _, m := range ws.find.matches {
				line, _, err := doc.PositionOf(m.Start)
				if err != nil {
					return err
				}
				text, _ := doc.LineAt(line)
				fmt.Fprintf(out, "%s: %s\n", position(s, m.Start), text)
			}
			fmt.Fprintf(out, "%d match(es)\n", len(ws.find.matches))
			return nil
		},
	}
	sf.register(cmd)
	return cmd
}

func newReplaceCmd(flags *rootFlags) *cobra.Command {
	var sf searchFlags
	var write bool
	cmd := &cobra.Command{
		Use:   "replace FILE PATTERN REPLACEMENT",
		Short: "Replace every match of a pattern",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, s, err := openOne(cmd, flags, args[0])
			if err != nil {
				return err
			}
			defer ws.Close()
			sf.apply(ws)
			ws.find.query = args[1]
			ws.find.replacement = args[2]
			if _, err := ws.onReplaceAll(); err != nil {
				return err
			}
			if !write {
				_, err := io.WriteString(cmd.OutOrStdout(), s.Text())
				return err
			}
			status := ws.status
			if s.Dirty() {
				if err := ws.save(); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), status)
			return err
		},
	}
	sf.register(cmd)
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the result back to FILE instead of stdout")
	return cmd
}

func newMatchCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "match FILE LINE:COL",
		Short: "Find the bracket matching the one at a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, col, err := parseGoto(args[1])
			if err != nil {
				return err
			}
			ws, s, err := openOne(cmd, flags, args[0])
			if err != nil {
				return err
			}
			defer ws.Close()
			if err := gotoPosition(s, line, col); err != nil {
				return err
			}
			from := s.Cursor()
			if err := ws.matchBracket(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			pair, status := s.BracketAtCursor()
			if status != editor.MatchFound {
				_, err := fmt.Fprintf(out, "%s: %s\n", position(s, from), status)
				return err
			}
			_, err = fmt.Fprintf(out, "%s -> %s\n", position(s, pair.Open), position(s, pair.Close))
			return err
		},
	}
}

// printListing writes one listing entry per line, directories with a
// trailing separator, files with their grammar.
func printListing(out io.Writer, entries []filetree.Entry) {
	for _, e := range entries {
		switch {
		case e.Parent():
			fmt.Fprintln(out, e.Name)
		case e.IsDir:
			fmt.Fprintln(out, e.Name+string(os.PathSeparator))
		default:
			fmt.Fprintf(out, "%s\t%s\n", e.Name, filetree.GrammarFor(e))
		}
	}
}

func newLsCmd(flags *rootFlags) *cobra.Command {
	var query string
	var limit int
	var watch bool
	cmd := &cobra.Command{
		Use:   "ls [DIR]",
		Short: "List a directory, or find files below it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []workspaceOption
			if len(args) == 1 {
				opts = append(opts, withRoot(args[0]))
			}
			ws, err := loadWorkspace(cmd, flags, opts...)
			if err != nil {
				return err
			}
			defer ws.Close()
			out := cmd.OutOrStdout()
			if cmd.Flags().Changed("find") {
				found, err := ws.candidates(query, limit)
				if err != nil {
					return err
				}
				for _, m := range found {
					fmt.Fprintln(out, m.Rel)
				}
				return nil
			}
			entries, err := ws.tree.Children(ws.root)
			if err != nil {
				return err
			}
			printListing(out, entries)
			if !watch {
				return nil
			}

			ctx := cmd.Context()
			if err := ws.tree.Watch(ctx); err != nil {
				return err
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case dir := <-ws.tree.Changes():
					ws.treeChanged(dir)
					if dir != ws.root {
						continue
					}
					entries, err := ws.tree.Children(ws.root)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, "--")
					printListing(out, entries)
				}
			}
		},
	}
	cmd.Flags().StringVar(&query, "find", "", "fuzzy-find files matching this query")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of files to print with --find")
	cmd.Flags().BoolVar(&watch, "watch", false, "print the listing again whenever it changes")
	return cmd
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	var at string
	var width int
	cmd := &cobra.Command{
		Use:   "status FILE...",
		Short: "Open files as tabs and print the tab bar and cursor status",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd, flags)
			if err != nil {
				return err
			}
			defer ws.Close()
			var s *editor.Session
			for _, path := range args {
				if s, err = ws.open(path); err != nil {
					return err
				}
			}
			if at != "" {
				if err := ws.onGotoLine(at); err != nil {
					return err
				}
			}
			st := s.Status()
			dirty := ""
			if st.Dirty {
				dirty = " [modified]"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTabBar(ws.tabs.Tabs(), width))
			_, err = fmt.Fprintf(out, "%s  %s  %d lines  indent %q%s\n", st, st.Grammar, st.Lines, s.IndentUnit(), dirty)
			return err
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "move the cursor to LINE[:COL] first")
	cmd.Flags().IntVar(&width, "width", 80, "tab bar width in cells")
	return cmd
}

func newSessionCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "session [FILE...]",
		Short: "Remember files for the next start, or list the remembered ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd, flags)
			if err != nil {
				return err
			}
			defer ws.Close()
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				ws.restoreSession()
				for _, tab := range ws.tabs.Tabs() {
					fmt.Fprintln(out, tab.Path)
				}
				return nil
			}
			for _, path := range args {
				if _, err := ws.open(path); err != nil {
					return err
				}
			}
			if err := ws.rememberSession(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "remembered %d file(s)\n", len(ws.cfg.Session.LastOpenedFiles))
			return err
		},
	}
}

// decisions are the answers accepted by --confirm.
var decisions = map[string]editor.Decision{
	"save":    editor.DecisionSave,
	"discard": editor.DecisionDiscard,
	"cancel":  editor.DecisionCancel,
}

// parseEvent turns a key shortcut, or click:X for a tab bar click, into a
// terminal event.
func parseEvent(arg string) (tcell.Event, error) {
	if rest, ok := strings.CutPrefix(arg, "click:"); ok {
		x, err := strconv.Atoi(rest)
		if err != nil || x < 0 {
			return nil, fmt.Errorf("%q: bad click column", arg)
		}
		return tcell.NewEventMouse(x, 0, tcell.Button1, tcell.ModNone), nil
	}
	ev, err := commands.ParseKey(arg)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func newKeysCmd(flags *rootFlags) *cobra.Command {
	var inputs []string
	var confirm, at string
	var write bool
	cmd := &cobra.Command{
		Use:   "keys FILE KEY...",
		Short: "Press editor shortcuts on a file and print the status after each",
		Long: "Opens FILE and feeds each KEY (a shortcut such as Ctrl+F, or click:X for a\n" +
			"click on the tab bar) to the editor. Prompts are answered from --input in\n" +
			"order; a prompt with no input left is dismissed.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, ok := decisions[strings.ToLower(confirm)]
			if !ok {
				return fmt.Errorf("--confirm %q: want save, discard or cancel", confirm)
			}
			events := make([]tcell.Event, 0, len(args)-1)
			for _, arg := range args[1:] {
				ev, err := parseEvent(arg)
				if err != nil {
					return err
				}
				events = append(events, ev)
			}

			ws, err := loadWorkspace(cmd, flags,
				withPrompt(func(string, string) (string, bool) {
					if len(inputs) == 0 {
						return "", false
					}
					v := inputs[0]
					inputs = inputs[1:]
					return v, true
				}),
				withConfirm(func(string) editor.Decision { return decision }),
			)
			if err != nil {
				return err
			}
			defer ws.Close()
			if _, err := ws.open(args[0]); err != nil {
				return err
			}
			if at != "" {
				if err := ws.onGotoLine(at); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for i, ev := range events {
				ws.status = ""
				err := ws.handleEvent(ev)
				msg := ws.status
				if err != nil {
					msg = "error: " + err.Error()
				}
				pos := "-"
				if s := ws.tabs.ActiveSession(); s != nil {
					pos = s.Status().String()
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", args[i+1], pos, msg)
			}

			s := ws.tabs.ActiveSession()
			if s == nil {
				_, err := fmt.Fprintln(out, "--")
				return err
			}
			if write && s.Dirty() {
				if err := ws.save(); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(out, "-- %s\n%s", s.Title(), s.Text())
			return err
		},
	}
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "answer to the next prompt (repeatable)")
	cmd.Flags().StringVar(&confirm, "confirm", "cancel", "answer to unsaved-changes questions: save, discard or cancel")
	cmd.Flags().StringVar(&at, "at", "", "move the cursor to LINE[:COL] first")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "save the active tab afterwards")
	return cmd
}

func newViewCmd(flags *rootFlags) *cobra.Command {
	var at, query string
	var width, height int
	var sf searchFlags
	cmd := &cobra.Command{
		Use:   "view FILE...",
		Short: "Open files as tabs and print the editor screen",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if width <= 0 || height <= 0 {
				return fmt.Errorf("screen size %dx%d", width, height)
			}
			ws, err := loadWorkspace(cmd, flags)
			if err != nil {
				return err
			}
			defer ws.Close()
			for _, path := range args {
				if _, err := ws.open(path); err != nil {
					return err
				}
			}
			if at != "" {
				if err := ws.onGotoLine(at); err != nil {
					return err
				}
			}
			ws.status = ""
			if query != "" {
				sf.apply(ws)
				if err := ws.onSearch(query); err != nil {
					return err
				}
			}

			screen := tcell.NewSimulationScreen("UTF-8")
			if err := screen.Init(); err != nil {
				return err
			}
			defer screen.Fini()
			screen.SetSize(width, height)
			ws.drawView(screen)
			screen.Show()

			out := cmd.OutOrStdout()
			for _, row := range screenRows(screen) {
				if _, err := fmt.Fprintln(out, row); err != nil {
					return err
				}
			}
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVar(&at, "at", "", "move the cursor to LINE[:COL] first")
	cmd.Flags().StringVar(&query, "find", "", "highlight the matches of this pattern")
	cmd.Flags().IntVar(&width, "width", 80, "screen width in cells")
	cmd.Flags().IntVar(&height, "height", 24, "screen height in cells")
	return cmd
}
