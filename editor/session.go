package editor

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"
	"pkt.systems/pslog"

	"github.com/e4code/e4/grammars"
	"github.com/e4code/e4/highlight"
	"github.com/e4code/e4/internal/logx"
)

// Session is one open document: its text, undo history, highlighting and
// cursor. A session is owned by a single goroutine; background highlighting
// only ever sees job snapshots.
type Session struct {
	id      uuid.UUID
	buf     *Buffer
	hist    *History
	cache   *highlight.Cache
	folds   *FoldState
	path    string
	title   string
	dirty   bool
	sel     Selection
	indent  string
	log     pslog.Logger
	baseLog pslog.Logger
	histOps []HistoryOption

	tabWidth   int
	maxScan    int
	batchLines int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger; the session adds its id to it.
func WithSessionLogger(logger pslog.Logger) SessionOption {
	return func(s *Session) { s.log = logger }
}

// WithHistoryOptions configures the session's undo history.
func WithHistoryOptions(opts ...HistoryOption) SessionOption {
	return func(s *Session) { s.histOps = append(s.histOps, opts...) }
}

// WithBracketScanLimit caps bracket matching to n bytes from the cursor.
// Zero scans the whole document.
func WithBracketScanLimit(n int) SessionOption {
	return func(s *Session) { s.maxScan = n }
}

// WithHighlightBatch bounds the lines per background highlight job.
func WithHighlightBatch(n int) SessionOption {
	return func(s *Session) { s.batchLines = n }
}

// WithTabWidth sets the width of a tab stop used for visual columns.
func WithTabWidth(n int) SessionOption {
	return func(s *Session) { s.tabWidth = n }
}

// DefaultTabWidth is the tab stop width used for visual columns.
const DefaultTabWidth = 4

// NewSession creates an empty, untitled plain-text session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:         uuid.New(),
		buf:        NewBuffer(),
		folds:      NewFoldState(),
		indent:     DefaultIndent,
		tabWidth:   DefaultTabWidth,
		batchLines: highlight.DefaultBatchLines,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.baseLog = logx.WithSession(logx.Or(s.log), s.id)
	s.log = s.baseLog
	s.hist = NewHistory(s.histOps...)
	s.cache = highlight.NewCache(grammars.PlainText, s.buf.LineCount())
	return s
}

// ID identifies the session for its whole life, across tab reordering.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Path returns the file path, or "" for an unsaved document.
func (s *Session) Path() string {
	return s.path
}

// Title returns the display title.
func (s *Session) Title() string {
	return s.title
}

// SetTitle sets the title shown for an untitled document.
func (s *Session) SetTitle(title string) {
	s.title = title
}

// Untitled reports whether the session has never been saved to a path.
func (s *Session) Untitled() bool {
	return s.path == ""
}

// Dirty reports whether the text changed since the last save or load.
func (s *Session) Dirty() bool {
	return s.dirty
}

// Grammar returns the grammar used for highlighting.
func (s *Session) Grammar() grammars.Grammar {
	return s.cache.Grammar()
}

// SetGrammar switches grammar, invalidating all highlighting.
func (s *Session) SetGrammar(g grammars.Grammar) {
	if g == s.cache.Grammar() {
		return
	}
	s.cache.SetGrammar(g)
}

// SetPath attaches the session to path, retitles it and picks the grammar
// from the path and first line.
func (s *Session) SetPath(path string) {
	s.path = path
	s.title = filepath.Base(path)
	first, _ := s.buf.LineAt(0)
	s.SetGrammar(grammars.ForContent(path, first))
	s.log = logx.WithPath(s.baseLog, path)
}

// Buffer returns the session's buffer for reading. Mutations must go
// through the session so highlighting and history stay in step.
func (s *Session) Buffer() *Buffer {
	return s.buf
}

// Snapshot returns an immutable view of the current text.
func (s *Session) Snapshot() Snapshot {
	return s.buf.Snapshot()
}

// Text returns the whole document.
func (s *Session) Text() string {
	return s.buf.Text()
}

// History returns the undo history.
func (s *Session) History() *History {
	return s.hist
}

// Cache returns the highlight cache.
func (s *Session) Cache() *highlight.Cache {
	return s.cache
}

// IndentUnit returns the indentation detected when the text was loaded.
func (s *Session) IndentUnit() string {
	return s.indent
}

// SetIndentUnit overrides the detected indentation.
func (s *Session) SetIndentUnit(unit string) {
	if unit != "" {
		s.indent = unit
	}
}

// Cursor returns the cursor offset.
func (s *Session) Cursor() int {
	return s.sel.Cursor
}

// Selection returns the current selection. It is empty when no text is
// selected.
func (s *Session) Selection() Selection {
	return s.sel
}

// SetCursor moves the cursor to offset and clears the selection.
func (s *Session) SetCursor(offset int) error {
	return s.Select(offset, offset)
}

// Select sets the selection from anchor to cursor.
func (s *Session) Select(anchor, cursor int) error {
	if _, _, err := s.buf.doc.checkOffset(anchor); err != nil {
		return err
	}
	if _, _, err := s.buf.doc.checkOffset(cursor); err != nil {
		return err
	}
	s.sel = Selection{Anchor: anchor, Cursor: cursor}
	s.hist.BreakCoalescing()
	return nil
}

// MoveTo places the cursor at a 0-based line and character column.
func (s *Session) MoveTo(line, col int) error {
	off, err := s.buf.OffsetOf(line, col)
	if err != nil {
		return err
	}
	return s.SetCursor(off)
}

// Apply performs op on the buffer and keeps the highlight cache in step.
// It does not touch the history; Edit does.
func (s *Session) Apply(op EditOp) (EditOp, error) {
	if op.Kind == EditBatch {
		return applyBatch(s, op)
	}
	if op.Empty() {
		return op.Inverse(), nil
	}
	line, _, err := s.buf.doc.checkOffset(op.Offset)
	if err != nil {
		return EditOp{}, err
	}
	inverse, err := s.buf.Apply(op)
	if err != nil {
		return EditOp{}, err
	}
	if n := strings.Count(op.Text, "\n"); n == 0 {
		s.cache.Invalidate(line)
	} else if op.Kind == EditInsert {
		s.cache.Splice(line, 1, n+1)
	} else {
		s.cache.Splice(line, n+1, 1)
	}
	s.dirty = true
	s.log.Trace("edit applied", "kind", op.Kind.String(), "offset", op.Offset, "bytes", len(op.Text))
	return inverse, nil
}

// Edit applies op as one undo step and places the cursor after it.
func (s *Session) Edit(op EditOp) error {
	after := op.CursorAfter()
	return s.edit(op, Selection{Anchor: after, Cursor: after})
}

func (s *Session) edit(op EditOp, after Selection) error {
	if op.Empty() {
		return nil
	}
	before := s.sel.Cursor
	if _, err := s.Apply(op); err != nil {
		return err
	}
	s.hist.Record(op, before, after.Cursor)
	s.sel = after
	return nil
}

// Insert types text at the cursor, replacing the selection.
func (s *Session) Insert(text string) error {
	r := s.sel.Range()
	var op EditOp
	if s.sel.Active() {
		selected, err := s.buf.Slice(r.Start, r.End)
		if err != nil {
			return err
		}
		op = BatchOp(DeleteOp(r.Start, selected), InsertOp(r.Start, text))
	} else {
		op = InsertOp(r.Start, text)
	}
	end := r.Start + len(text)
	return s.edit(op, Selection{Anchor: end, Cursor: end})
}

// InsertAt inserts text at offset as one undo step.
func (s *Session) InsertAt(offset int, text string) error {
	return s.Edit(InsertOp(offset, text))
}

// DeleteRange removes [start, end) as one undo step.
func (s *Session) DeleteRange(start, end int) error {
	text, err := s.buf.Slice(start, end)
	if err != nil {
		return err
	}
	return s.Edit(DeleteOp(start, text))
}

// Newline breaks the line at the cursor and indents the new line to match,
// one level deeper after a line that opens a block.
func (s *Session) Newline() error {
	line, col, err := s.buf.PositionOf(s.sel.Range().Start)
	if err != nil {
		return err
	}
	text, err := s.buf.LineAt(line)
	if err != nil {
		return err
	}
	head := text[:byteIndexOfColumnMust(text, col)]
	return s.Insert("\n" + ComputeIndent(head, s.indent, s.Grammar() == grammars.Python))
}

func byteIndexOfColumnMust(text string, col int) int {
	b, ok := byteIndexOfColumn(text, col)
	if !ok {
		return len(text)
	}
	return b
}

// Backspace deletes the selection, or the grapheme cluster before the
// cursor.
func (s *Session) Backspace() error {
	if s.sel.Active() {
		r := s.sel.Range()
		return s.DeleteRange(r.Start, r.End)
	}
	start, err := s.prevBoundary(s.sel.Cursor)
	if err != nil || start == s.sel.Cursor {
		return err
	}
	return s.DeleteRange(start, s.sel.Cursor)
}

// DeleteForward deletes the selection, or the grapheme cluster after the
// cursor.
func (s *Session) DeleteForward() error {
	if s.sel.Active() {
		r := s.sel.Range()
		return s.DeleteRange(r.Start, r.End)
	}
	end, err := s.nextBoundary(s.sel.Cursor)
	if err != nil || end == s.sel.Cursor {
		return err
	}
	return s.DeleteRange(s.sel.Cursor, end)
}

// MoveLeft moves the cursor one grapheme cluster left, or to the start of
// the selection.
func (s *Session) MoveLeft() error {
	if s.sel.Active() {
		return s.SetCursor(s.sel.Range().Start)
	}
	off, err := s.prevBoundary(s.sel.Cursor)
	if err != nil {
		return err
	}
	return s.SetCursor(off)
}

// MoveRight moves the cursor one grapheme cluster right, or to the end of
// the selection.
func (s *Session) MoveRight() error {
	if s.sel.Active() {
		return s.SetCursor(s.sel.Range().End)
	}
	off, err := s.nextBoundary(s.sel.Cursor)
	if err != nil {
		return err
	}
	return s.SetCursor(off)
}

// prevBoundary returns the start of the grapheme cluster ending at offset.
// A line start steps back over the preceding '\n'.
func (s *Session) prevBoundary(offset int) (int, error) {
	line, lineStart, err := s.buf.doc.checkOffset(offset)
	if err != nil {
		return 0, err
	}
	if offset == lineStart {
		if line == 0 {
			return offset, nil
		}
		return offset - 1, nil
	}
	text := s.buf.doc.lineText(line)
	at := offset - lineStart
	pos, prev, state := 0, 0, -1
	rest := text
	for pos < at && rest != "" {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		prev = pos
		pos += len(cluster)
	}
	return lineStart + prev, nil
}

// nextBoundary returns the end of the grapheme cluster starting at offset.
// A line end steps over the '\n'.
func (s *Session) nextBoundary(offset int) (int, error) {
	line, lineStart, err := s.buf.doc.checkOffset(offset)
	if err != nil {
		return 0, err
	}
	text := s.buf.doc.lineText(line)
	at := offset - lineStart
	if at == len(text) {
		if line == s.buf.LineCount()-1 {
			return offset, nil
		}
		return offset + 1, nil
	}
	pos, state := 0, -1
	rest := text
	for pos <= at && rest != "" {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		pos += len(cluster)
	}
	return lineStart + pos, nil
}

// Undo reverts the newest step. ok is false when there was nothing to undo.
func (s *Session) Undo() (bool, error) {
	rev, ok, err := s.hist.Undo(s)
	if err != nil || !ok {
		return ok, err
	}
	s.sel = Selection{Anchor: rev.Cursor, Cursor: rev.Cursor}
	return true, nil
}

// Redo re-applies the newest undone step.
func (s *Session) Redo() (bool, error) {
	rev, ok, err := s.hist.Redo(s)
	if err != nil || !ok {
		return ok, err
	}
	s.sel = Selection{Anchor: rev.Cursor, Cursor: rev.Cursor}
	return true, nil
}

// selectedLines returns the lines touched by the selection, or the cursor
// line.
func (s *Session) selectedLines() (first, last int, err error) {
	return s.sel.Lines(s.buf.doc)
}

// editLines applies a line-wise op, carrying the selection through it.
func (s *Session) editLines(op EditOp) error {
	after := Selection{Anchor: op.Transform(s.sel.Anchor), Cursor: op.Transform(s.sel.Cursor)}
	s.hist.BreakCoalescing()
	return s.edit(op, after)
}

// Indent indents the selected lines, or the cursor line, by one level as a
// single undo step.
func (s *Session) Indent() error {
	first, last, err := s.selectedLines()
	if err != nil {
		return err
	}
	op, err := IndentOp(s.buf.doc, first, last, s.indent)
	if err != nil {
		return err
	}
	return s.editLines(op)
}

// Outdent removes one indentation level from the selected lines, or the
// cursor line, as a single undo step.
func (s *Session) Outdent() error {
	first, last, err := s.selectedLines()
	if err != nil {
		return err
	}
	op, err := OutdentOp(s.buf.doc, first, last, s.indent)
	if err != nil {
		return err
	}
	return s.editLines(op)
}

// DeleteLine removes the cursor line.
func (s *Session) DeleteLine() error {
	line, col, err := s.buf.PositionOf(s.sel.Cursor)
	if err != nil {
		return err
	}
	op, err := DeleteLineOp(s.buf.doc, line)
	if err != nil {
		return err
	}
	s.hist.BreakCoalescing()
	if err := s.edit(op, s.sel); err != nil {
		return err
	}
	return s.clampTo(min(line, s.buf.LineCount()-1), col)
}

// DuplicateLine copies the cursor line below itself and moves the cursor
// onto the copy.
func (s *Session) DuplicateLine() error {
	line, col, err := s.buf.PositionOf(s.sel.Cursor)
	if err != nil {
		return err
	}
	op, err := DuplicateLineOp(s.buf.doc, line)
	if err != nil {
		return err
	}
	s.hist.BreakCoalescing()
	if err := s.edit(op, s.sel); err != nil {
		return err
	}
	return s.clampTo(line+1, col)
}

// MoveLine swaps the cursor line with its neighbour delta lines away. ok is
// false when the line is already at the document edge.
func (s *Session) MoveLine(delta int) (bool, error) {
	line, col, err := s.buf.PositionOf(s.sel.Cursor)
	if err != nil {
		return false, err
	}
	op, ok, err := MoveLineOp(s.buf.doc, line, delta)
	if err != nil || !ok {
		return false, err
	}
	s.hist.BreakCoalescing()
	if err := s.edit(op, s.sel); err != nil {
		return false, err
	}
	return true, s.clampTo(line+delta, col)
}

// clampTo places the cursor at line and col, clamping col to the line.
func (s *Session) clampTo(line, col int) error {
	text, err := s.buf.LineAt(line)
	if err != nil {
		return err
	}
	off, err := s.buf.LineStart(line)
	if err != nil {
		return err
	}
	s.sel = Selection{Anchor: off + byteIndexOfColumnMust(text, col), Cursor: off + byteIndexOfColumnMust(text, col)}
	return nil
}

// Tokens returns the tokens of line, computing whatever is needed first.
func (s *Session) Tokens(line int) []grammars.Token {
	return s.cache.Tokens(s.buf, line)
}

// Matcher returns a bracket matcher over the current text.
func (s *Session) Matcher() *BracketMatcher {
	return NewBracketMatcher(s.buf.doc, s.cache, s.maxScan)
}

// BracketAtCursor matches the delimiter under the cursor, or else the one
// just before it.
func (s *Session) BracketAtCursor() (BracketPair, MatchStatus) {
	m := s.Matcher()
	cur := s.sel.Cursor
	for _, at := range []int{cur, cur - 1} {
		if at < 0 {
			continue
		}
		partner, status := m.MatchAt(at)
		if status == MatchNone {
			continue
		}
		if partner >= 0 && partner < at {
			return BracketPair{Open: partner, Close: at}, status
		}
		return BracketPair{Open: at, Close: partner}, status
	}
	return BracketPair{Open: -1, Close: -1}, MatchNone
}

// FoldRegions recomputes the fold regions and returns the fold state.
func (s *Session) FoldRegions() *FoldState {
	s.folds.SetRegions(DetectFoldRegions(s.buf.Snapshot(), s.cache))
	return s.folds
}

// ScheduleHighlight submits the next run of dirty lines to w. It reports
// false when nothing is dirty or the worker queue is full.
func (s *Session) ScheduleHighlight(w *highlight.Worker) bool {
	job, ok := s.cache.NextJob(s.buf, s.batchLines)
	if !ok {
		return false
	}
	job.Owner = s.id.String()
	return w.Submit(job)
}

// ApplyHighlight stores a worker result. Stale results are dropped, leaving
// their lines dirty for the next ScheduleHighlight.
func (s *Session) ApplyHighlight(res highlight.Result) ([]int, error) {
	lines, err := s.cache.Apply(res)
	if errors.Is(err, highlight.ErrStaleResult) {
		s.log.Debug("highlight result dropped", "start", res.Job.Start, "lines", len(res.Job.Lines), "err", err)
	}
	return lines, err
}

// Status returns the cursor readout.
func (s *Session) Status() Status {
	line, col, _ := s.buf.PositionOf(s.sel.Cursor)
	text, _ := s.buf.LineAt(line)
	head := text[:byteIndexOfColumnMust(text, col)]
	return Status{
		Line:         line + 1,
		Column:       col + 1,
		VisualColumn: visualWidth(head, s.tabWidth) + 1,
		Lines:        s.buf.LineCount(),
		Dirty:        s.dirty,
		Grammar:      s.cache.Grammar(),
	}
}

// Save writes the text to w byte for byte and marks the session clean.
func (s *Session) Save(w io.Writer) error {
	if _, err := io.WriteString(w, s.buf.Text()); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	s.markSaved()
	return nil
}

func (s *Session) markSaved() {
	s.dirty = false
	s.hist.BreakCoalescing()
}

// Load replaces the text with the content of r. On a read error the
// session is left unchanged.
func (s *Session) Load(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	s.load(string(data))
	return nil
}

func (s *Session) load(text string) {
	s.buf = NewBufferString(text)
	s.hist.Clear()
	s.cache.Reset(s.buf.LineCount())
	if s.path != "" {
		first, _ := s.buf.LineAt(0)
		s.SetGrammar(grammars.ForContent(s.path, first))
	}
	s.indent = DetectIndent(s.buf.doc)
	s.sel = Selection{}
	s.dirty = false
	s.folds = NewFoldState()
}
