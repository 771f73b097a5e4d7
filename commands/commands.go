// Package commands lists the editor commands offered by the palette and
// bound to keyboard shortcuts.
package commands

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/gdamore/tcell/v2"
)

var (
	// ErrUnbound reports a command without an action.
	ErrUnbound = errors.New("command has no action")
	// ErrBadShortcut reports a shortcut that names no terminal key.
	ErrBadShortcut = errors.New("not a key shortcut")
)

// Command is one palette entry.
type Command struct {
	ID       string
	Label    string
	Shortcut string
	Category string
	Run      func() error
}

// Execute runs the command.
func (c Command) Execute() error {
	if c.Run == nil {
		return ErrUnbound
	}
	return c.Run()
}

// Actions holds callbacks for all editor commands.
type Actions struct {
	NewFile       func() error
	OpenFile      func() error
	QuickOpen     func() error
	SaveFile      func() error
	SaveAs        func() error
	CloseTab      func() error
	CloseAll      func() error
	NextTab       func() error
	PrevTab       func() error
	Undo          func() error
	Redo          func() error
	Indent        func() error
	Outdent       func() error
	DeleteLine    func() error
	DuplicateLine func() error
	MoveLineUp    func() error
	MoveLineDown  func() error
	Find          func() error
	FindNext      func() error
	FindPrevious  func() error
	Replace       func() error
	ReplaceAll    func() error
	GotoLine      func() error
	MatchBracket  func() error
	FoldAtCursor  func() error
	FoldAll       func() error
	UnfoldAll     func() error
}

// All returns the full command list for the palette.
func All(a Actions) []Command {
	return []Command{
		{ID: "file.new", Label: "New File", Shortcut: "Ctrl+N", Category: "File", Run: a.NewFile},
		{ID: "file.open", Label: "Open File", Shortcut: "Ctrl+O", Category: "File", Run: a.OpenFile},
		{ID: "file.quick_open", Label: "Go to File", Shortcut: "Ctrl+P", Category: "File", Run: a.QuickOpen},
		{ID: "file.save", Label: "Save File", Shortcut: "Ctrl+S", Category: "File", Run: a.SaveFile},
		{ID: "file.save_as", Label: "Save As", Shortcut: "Ctrl+Shift+S", Category: "File", Run: a.SaveAs},
		{ID: "file.close", Label: "Close Tab", Shortcut: "Ctrl+W", Category: "File", Run: a.CloseTab},
		{ID: "file.close_all", Label: "Close All Tabs", Shortcut: "Ctrl+Shift+W", Category: "File", Run: a.CloseAll},
		{ID: "view.next_tab", Label: "Next Tab", Shortcut: "Ctrl+PgDn", Category: "View", Run: a.NextTab},
		{ID: "view.prev_tab", Label: "Previous Tab", Shortcut: "Ctrl+PgUp", Category: "View", Run: a.PrevTab},
		{ID: "edit.undo", Label: "Undo", Shortcut: "Ctrl+Z", Category: "Edit", Run: a.Undo},
		{ID: "edit.redo", Label: "Redo", Shortcut: "Ctrl+Shift+Z", Category: "Edit", Run: a.Redo},
		{ID: "edit.indent", Label: "Indent Lines", Shortcut: "Tab", Category: "Edit", Run: a.Indent},
		{ID: "edit.outdent", Label: "Outdent Lines", Shortcut: "Ctrl+Shift+Tab", Category: "Edit", Run: a.Outdent},
		{ID: "edit.delete_line", Label: "Delete Line", Shortcut: "Ctrl+Shift+K", Category: "Edit", Run: a.DeleteLine},
		{ID: "edit.duplicate_line", Label: "Duplicate Line", Shortcut: "Ctrl+Shift+D", Category: "Edit", Run: a.DuplicateLine},
		{ID: "edit.move_line_up", Label: "Move Line Up", Shortcut: "Alt+Up", Category: "Edit", Run: a.MoveLineUp},
		{ID: "edit.move_line_down", Label: "Move Line Down", Shortcut: "Alt+Down", Category: "Edit", Run: a.MoveLineDown},
		{ID: "edit.find", Label: "Find", Shortcut: "Ctrl+F", Category: "Search", Run: a.Find},
		{ID: "edit.find_next", Label: "Find Next", Shortcut: "F3", Category: "Search", Run: a.FindNext},
		{ID: "edit.find_previous", Label: "Find Previous", Shortcut: "Shift+F3", Category: "Search", Run: a.FindPrevious},
		{ID: "edit.replace", Label: "Replace", Shortcut: "Ctrl+H", Category: "Search", Run: a.Replace},
		{ID: "edit.replace_all", Label: "Replace All", Shortcut: "Ctrl+Alt+Enter", Category: "Search", Run: a.ReplaceAll},
		{ID: "nav.goto_line", Label: "Go to Line", Shortcut: "Ctrl+G", Category: "Navigate", Run: a.GotoLine},
		{ID: "nav.match_bracket", Label: "Go to Matching Bracket", Shortcut: "Ctrl+]", Category: "Navigate", Run: a.MatchBracket},
		{ID: "view.fold", Label: "Toggle Fold", Shortcut: "Ctrl+Shift+[", Category: "View", Run: a.FoldAtCursor},
		{ID: "view.fold_all", Label: "Fold All", Category: "View", Run: a.FoldAll},
		{ID: "view.unfold_all", Label: "Unfold All", Category: "View", Run: a.UnfoldAll},
	}
}

// Find returns the command with the given id.
func Find(list []Command, id string) (Command, bool) {
	i := slices.IndexFunc(list, func(c Command) bool { return c.ID == id })
	if i < 0 {
		return Command{}, false
	}
	return list[i], true
}

// ByShortcut returns the command bound to shortcut. Modifier order and case
// are not significant.
func ByShortcut(list []Command, shortcut string) (Command, bool) {
	want := Normalize(shortcut)
	if want == "" {
		return Command{}, false
	}
	for _, c := range list {
		if c.Shortcut != "" && Normalize(c.Shortcut) == want {
			return c, true
		}
	}
	return Command{}, false
}

// Filter returns the commands whose label, id or category contains query,
// ignoring case, in list order.
func Filter(list []Command, query string) []Command {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return slices.Clone(list)
	}
	var out []Command
	for _, c := range list {
		if strings.Contains(strings.ToLower(c.Label), query) ||
			strings.Contains(c.ID, query) ||
			strings.Contains(strings.ToLower(c.Category), query) {
			out = append(out, c)
		}
	}
	return out
}

var modifierOrder = []string{"Ctrl", "Alt", "Shift"}

// Normalize rewrites a shortcut as Ctrl+Alt+Shift+Key with a canonical key
// name.
func Normalize(shortcut string) string {
	parts := strings.Split(strings.TrimSpace(shortcut), "+")
	// "Ctrl++" names the plus key.
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = append(parts[:len(parts)-2], "+")
	}
	mods := map[string]bool{}
	key := ""
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i < len(parts)-1 {
			switch strings.ToLower(p) {
			case "ctrl", "control", "primary":
				mods["Ctrl"] = true
			case "alt", "meta", "option":
				mods["Alt"] = true
			case "shift":
				mods["Shift"] = true
			default:
				return ""
			}
			continue
		}
		key = canonicalKey(p)
	}
	if key == "" {
		return ""
	}
	return join(mods, key)
}

func join(mods map[string]bool, key string) string {
	var b strings.Builder
	for _, m := range modifierOrder {
		if mods[m] {
			b.WriteString(m)
			b.WriteByte('+')
		}
	}
	b.WriteString(key)
	return b.String()
}

func canonicalKey(k string) string {
	if r := []rune(k); len(r) == 1 {
		return string(unicode.ToUpper(r[0]))
	}
	lower := strings.ToLower(k)
	for _, name := range tcell.KeyNames {
		if strings.ToLower(name) == lower {
			return name
		}
	}
	switch lower {
	case "pagedown":
		return "PgDn"
	case "pageup":
		return "PgUp"
	case "escape":
		return "Esc"
	case "space":
		return "Space"
	}
	return k
}

// ctrlPunct names the control codes terminals send for Ctrl with
// punctuation.
var ctrlPunct = map[tcell.Key]string{
	tcell.KeyCtrlSpace:      "Space",
	tcell.KeyCtrlBackslash:  "\\",
	tcell.KeyCtrlRightSq:    "]",
	tcell.KeyCtrlCarat:      "^",
	tcell.KeyCtrlUnderscore: "_",
}

// KeyShortcut names a terminal key event in the form used by Command
// shortcuts.
func KeyShortcut(ev *tcell.EventKey) string {
	mods := map[string]bool{}
	m := ev.Modifiers()
	mods["Ctrl"] = m&tcell.ModCtrl != 0
	mods["Alt"] = m&(tcell.ModAlt|tcell.ModMeta) != 0
	mods["Shift"] = m&tcell.ModShift != 0

	k := ev.Key()
	switch {
	case k == tcell.KeyRune:
		r := ev.Rune()
		if r == ' ' {
			return join(mods, "Space")
		}
		if unicode.IsUpper(r) && (mods["Ctrl"] || mods["Alt"]) {
			mods["Shift"] = true
		}
		return join(mods, string(unicode.ToUpper(r)))
	case k == tcell.KeyBacktab:
		mods["Shift"] = true
		return join(mods, "Tab")
	case k == tcell.KeyTab || k == tcell.KeyEnter:
		// Ctrl+I and Ctrl+M share these codes.
		return join(mods, tcell.KeyNames[k])
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ && (mods["Ctrl"] || k != tcell.KeyBackspace):
		mods["Ctrl"] = true
		return join(mods, string(rune('A'+k-tcell.KeyCtrlA)))
	}
	if name, ok := ctrlPunct[k]; ok {
		mods["Ctrl"] = true
		return join(mods, name)
	}
	if name, ok := tcell.KeyNames[k]; ok {
		return join(mods, name)
	}
	return ""
}

var modifierMasks = map[string]tcell.ModMask{
	"Ctrl":  tcell.ModCtrl,
	"Alt":   tcell.ModAlt,
	"Shift": tcell.ModShift,
}

// ParseKey builds the key event a terminal sends for shortcut, so that
// KeyShortcut(ParseKey(s)) equals Normalize(s). Shortcuts a terminal cannot
// tell apart, such as Ctrl+I and Ctrl+Tab, come back in one spelling.
func ParseKey(shortcut string) (*tcell.EventKey, error) {
	key := Normalize(shortcut)
	if key == "" {
		return nil, fmt.Errorf("%q: %w", shortcut, ErrBadShortcut)
	}
	var mod tcell.ModMask
	for _, m := range modifierOrder {
		if rest, ok := strings.CutPrefix(key, m+"+"); ok && rest != "" {
			key = rest
			mod |= modifierMasks[m]
		}
	}
	ctrl, shift := mod&tcell.ModCtrl != 0, mod&tcell.ModShift != 0

	r := []rune(key)
	switch {
	case key == "Space":
		return tcell.NewEventKey(tcell.KeyRune, ' ', mod), nil
	case len(r) == 1 && unicode.IsUpper(r[0]):
		switch {
		case ctrl && !shift && r[0] >= 'A' && r[0] <= 'Z':
			return tcell.NewEventKey(tcell.KeyCtrlA+tcell.Key(r[0]-'A'), 0, mod), nil
		case shift:
			return tcell.NewEventKey(tcell.KeyRune, r[0], mod), nil
		}
		return tcell.NewEventKey(tcell.KeyRune, unicode.ToLower(r[0]), mod), nil
	case len(r) == 1:
		return tcell.NewEventKey(tcell.KeyRune, r[0], mod), nil
	case key == "Tab" && shift:
		return tcell.NewEventKey(tcell.KeyBacktab, 0, mod), nil
	}
	for k, name := range tcell.KeyNames {
		if name == key {
			return tcell.NewEventKey(k, 0, mod), nil
		}
	}
	return nil, fmt.Errorf("%q: %w", shortcut, ErrBadShortcut)
}
