package editor

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/e4code/e4/grammars"
	"github.com/e4code/e4/internal/logx"
)

// CloseOutcome is the result of a close or replace request.
type CloseOutcome uint8

const (
	// CloseCompleted means the tab was closed or replaced.
	CloseCompleted CloseOutcome = iota
	// ClosePromptRequired means the tab has unsaved changes; the caller
	// asks the user and calls ResolveClose or ResolveReplace.
	ClosePromptRequired
	// CloseSaveRequired means the user chose to save but the tab is still
	// dirty. The caller saves it and resolves again.
	CloseSaveRequired
	// CloseCancelled means the user kept the tab open.
	CloseCancelled
)

func (o CloseOutcome) String() string {
	switch o {
	case CloseCompleted:
		return "completed"
	case ClosePromptRequired:
		return "prompt required"
	case CloseSaveRequired:
		return "save required"
	default:
		return "cancelled"
	}
}

// Decision is the user's answer to an unsaved-changes prompt.
type Decision uint8

const (
	DecisionSave Decision = iota
	DecisionDiscard
	DecisionCancel
)

// TabInfo describes one tab for display.
type TabInfo struct {
	Index   int
	ID      uuid.UUID
	Title   string
	Path    string
	Dirty   bool
	Active  bool
	Grammar grammars.Grammar
}

// TabManager tracks open sessions and which one is active.
// It is pure data management with no UI dependency; file access goes
// through a FileIO.
type TabManager struct {
	sessions []*Session
	active   int // index of active tab, or -1 if none
	untitled int
	files    FileIO
	log      pslog.Logger
	opts     []SessionOption
}

// TabOption configures a TabManager.
type TabOption func(*TabManager)

// WithFileIO replaces the filesystem used to open and save files.
func WithFileIO(files FileIO) TabOption {
	return func(tm *TabManager) { tm.files = files }
}

// WithTabLogger sets the logger for tab events.
func WithTabLogger(logger pslog.Logger) TabOption {
	return func(tm *TabManager) { tm.log = logger }
}

// WithSessionOptions applies opts to every session the manager creates.
func WithSessionOptions(opts ...SessionOption) TabOption {
	return func(tm *TabManager) { tm.opts = append(tm.opts, opts...) }
}

// NewTabManager creates a TabManager with no open sessions.
func NewTabManager(opts ...TabOption) *TabManager {
	tm := &TabManager{active: -1, files: OSFileIO{}}
	for _, opt := range opts {
		opt(tm)
	}
	tm.log = logx.Or(tm.log)
	return tm
}

func (tm *TabManager) newSession() *Session {
	opts := append([]SessionOption{WithSessionLogger(tm.log)}, tm.opts...)
	return NewSession(opts...)
}

// Count returns the number of open tabs.
func (tm *TabManager) Count() int {
	return len(tm.sessions)
}

// Active returns the index of the active tab, or -1 if there are no tabs.
func (tm *TabManager) Active() int {
	return tm.active
}

// ActiveSession returns the active session, or nil if there are no tabs.
func (tm *TabManager) ActiveSession() *Session {
	return tm.Session(tm.active)
}

// Session returns the session at index, or nil if the index is out of range.
func (tm *TabManager) Session(index int) *Session {
	if index < 0 || index >= len(tm.sessions) {
		return nil
	}
	return tm.sessions[index]
}

// Sessions returns all sessions in tab order.
func (tm *TabManager) Sessions() []*Session {
	return tm.sessions
}

func (tm *TabManager) checkIndex(index int) error {
	if index < 0 || index >= len(tm.sessions) {
		return fmt.Errorf("tab %d of %d: %w", index, len(tm.sessions), ErrNoTab)
	}
	return nil
}

// NewTab opens an empty tab titled Untitled-N, makes it active and returns
// its index. N counts up and is never reused.
func (tm *TabManager) NewTab() int {
	s := tm.newSession()
	tm.untitled++
	s.SetTitle(fmt.Sprintf("Untitled-%d", tm.untitled))
	tm.sessions = append(tm.sessions, s)
	tm.active = len(tm.sessions) - 1
	tm.log.Debug("tab created", "tab", tm.active, "title", s.Title())
	return tm.active
}

// FindPath returns the index of the tab holding path, or -1.
func (tm *TabManager) FindPath(path string) int {
	abs, err := filepath.Abs(path)
	if err != nil {
		return -1
	}
	for i, s := range tm.sessions {
		if s.Path() == abs {
			return i
		}
	}
	return -1
}

// load reads path into a new session.
func (tm *TabManager) load(abs string) (*Session, error) {
	data, err := tm.files.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := checkText(abs, data); err != nil {
		return nil, err
	}
	s := tm.newSession()
	s.SetPath(abs)
	s.load(string(data))
	return s, nil
}

// OpenFile opens the file at path. If a tab with the same absolute path is
// already open it is activated instead of opening a duplicate. Returns the
// tab index.
func (tm *TabManager) OpenFile(path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return -1, err
	}
	if i := tm.FindPath(abs); i >= 0 {
		tm.active = i
		return i, nil
	}
	s, err := tm.load(abs)
	if err != nil {
		tm.log.Warn("open failed", "path", abs, "err", err)
		return -1, err
	}
	tm.sessions = append(tm.sessions, s)
	tm.active = len(tm.sessions) - 1
	tm.log.Info("file opened", "tab", tm.active, "path", abs, "grammar", s.Grammar().String(), "lines", s.Buffer().LineCount())
	return tm.active, nil
}

// SetActive switches the active tab.
func (tm *TabManager) SetActive(index int) error {
	if err := tm.checkIndex(index); err != nil {
		return err
	}
	tm.active = index
	return nil
}

// IsModified reports whether the tab at index has unsaved changes.
func (tm *TabManager) IsModified(index int) (bool, error) {
	if err := tm.checkIndex(index); err != nil {
		return false, err
	}
	return tm.sessions[index].Dirty(), nil
}

// CloseTab closes the tab at index unless it has unsaved changes, in which
// case it returns ClosePromptRequired and leaves the tab open.
func (tm *TabManager) CloseTab(index int) (CloseOutcome, error) {
	if err := tm.checkIndex(index); err != nil {
		return CloseCancelled, err
	}
	if tm.sessions[index].Dirty() {
		return ClosePromptRequired, nil
	}
	tm.remove(index)
	return CloseCompleted, nil
}

// ResolveClose finishes a close that required a prompt. DecisionSave
// closes the tab only once it has been saved; the manager never saves on
// its own.
func (tm *TabManager) ResolveClose(index int, d Decision) (CloseOutcome, error) {
	if err := tm.checkIndex(index); err != nil {
		return CloseCancelled, err
	}
	switch d {
	case DecisionCancel:
		return CloseCancelled, nil
	case DecisionSave:
		if tm.sessions[index].Dirty() {
			return CloseSaveRequired, nil
		}
	case DecisionDiscard:
		tm.log.Info("changes discarded", "tab", index, "title", tm.sessions[index].Title())
	}
	tm.remove(index)
	return CloseCompleted, nil
}

// CloseAll closes clean tabs front to back and stops at the first dirty one,
// returning its index and ClosePromptRequired. After resolving that tab the
// caller calls CloseAll again. It returns -1 and CloseCompleted once every
// tab is closed.
func (tm *TabManager) CloseAll() (int, CloseOutcome) {
	for len(tm.sessions) > 0 {
		if tm.sessions[0].Dirty() {
			tm.active = 0
			return 0, ClosePromptRequired
		}
		tm.remove(0)
	}
	return -1, CloseCompleted
}

// ReplaceWithFile loads path into the tab at index, subject to the same
// prompt contract as CloseTab.
func (tm *TabManager) ReplaceWithFile(index int, path string) (CloseOutcome, error) {
	if err := tm.checkIndex(index); err != nil {
		return CloseCancelled, err
	}
	if tm.sessions[index].Dirty() {
		return ClosePromptRequired, nil
	}
	return tm.replace(index, path)
}

// ResolveReplace finishes a replace that required a prompt.
func (tm *TabManager) ResolveReplace(index int, path string, d Decision) (CloseOutcome, error) {
	if err := tm.checkIndex(index); err != nil {
		return CloseCancelled, err
	}
	switch d {
	case DecisionCancel:
		return CloseCancelled, nil
	case DecisionSave:
		if tm.sessions[index].Dirty() {
			return CloseSaveRequired, nil
		}
	}
	return tm.replace(index, path)
}

func (tm *TabManager) replace(index int, path string) (CloseOutcome, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return CloseCancelled, err
	}
	if j := tm.FindPath(abs); j >= 0 {
		tm.active = j
		return CloseCompleted, nil
	}
	s, err := tm.load(abs)
	if err != nil {
		tm.log.Warn("replace failed", "tab", index, "path", abs, "err", err)
		return CloseCancelled, err
	}
	tm.sessions[index] = s
	tm.active = index
	tm.log.Info("tab replaced", "tab", index, "path", abs)
	return CloseCompleted, nil
}

// remove drops the tab at index. After removal the active index is adjusted:
//   - If the closed tab was before the active tab, active shifts down by one.
//   - If the closed tab was the active tab, active stays on the same index,
//     which now holds its right neighbour, clamped to the last tab.
//   - If no tabs remain, active becomes -1.
func (tm *TabManager) remove(index int) {
	s := tm.sessions[index]
	tm.sessions = slices.Delete(tm.sessions, index, index+1)
	tm.log.Info("tab closed", "tab", index, "title", s.Title())

	if len(tm.sessions) == 0 {
		tm.active = -1
		return
	}
	if index < tm.active {
		tm.active--
	} else if tm.active >= len(tm.sessions) {
		tm.active = len(tm.sessions) - 1
	}
}

// Reorder moves the tab at from to position to. The active tab stays the
// same session.
func (tm *TabManager) Reorder(from, to int) error {
	if err := tm.checkIndex(from); err != nil {
		return err
	}
	if err := tm.checkIndex(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	active := tm.ActiveSession()
	s := tm.sessions[from]
	tm.sessions = slices.Delete(tm.sessions, from, from+1)
	tm.sessions = slices.Insert(tm.sessions, to, s)
	tm.active = slices.Index(tm.sessions, active)
	return nil
}

// Save writes the tab at index to its path.
func (tm *TabManager) Save(index int) error {
	if err := tm.checkIndex(index); err != nil {
		return err
	}
	s := tm.sessions[index]
	if s.Path() == "" {
		return fmt.Errorf("%s: %w", s.Title(), ErrNoPath)
	}
	return tm.write(index, s, s.Path())
}

// SaveAs writes the tab at index to path and attaches the tab to it.
func (tm *TabManager) SaveAs(index int, path string) error {
	if err := tm.checkIndex(index); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	s := tm.sessions[index]
	if err := tm.write(index, s, abs); err != nil {
		return err
	}
	if s.Path() != abs {
		s.SetPath(abs)
	}
	return nil
}

func (tm *TabManager) write(index int, s *Session, path string) error {
	if err := tm.files.WriteFile(path, []byte(s.Text())); err != nil {
		tm.log.Warn("save failed", "tab", index, "path", path, "err", err)
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	s.markSaved()
	tm.log.Info("file saved", "tab", index, "path", path)
	return nil
}

// Tabs describes every tab in order.
func (tm *TabManager) Tabs() []TabInfo {
	out := make([]TabInfo, len(tm.sessions))
	for i, s := range tm.sessions {
		out[i] = TabInfo{
			Index:   i,
			ID:      s.ID(),
			Title:   s.Title(),
			Path:    s.Path(),
			Dirty:   s.Dirty(),
			Active:  i == tm.active,
			Grammar: s.Grammar(),
		}
	}
	return out
}

// OpenPaths returns the paths of tabs backed by a file, in tab order.
func (tm *TabManager) OpenPaths() []string {
	var out []string
	for _, s := range tm.sessions {
		if s.Path() != "" {
			out = append(out, s.Path())
		}
	}
	return out
}
