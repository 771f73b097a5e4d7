package editor

import (
	"time"
	"unicode"
	"unicode/utf8"
)

// DefaultHistoryLimit bounds the number of undo steps kept per document.
const DefaultHistoryLimit = 1000

// DefaultCoalesceWindow is the longest pause between keystrokes that still
// merges them into one undo step.
const DefaultCoalesceWindow = time.Second

// Revision is the outcome of an undo or redo: the op that was applied to
// the buffer and the cursor offset that goes with the restored text.
type Revision struct {
	Op     EditOp
	Cursor int
}

type historyStep struct {
	op           EditOp
	cursorBefore int
	cursorAfter  int
	at           time.Time
	typing       bool
}

// History records reversible edits for linear undo/redo.
//
// Consecutive single-character insertions are merged into one step while
// each one starts where the previous ended, arrives within the coalescing
// window, and does not start a new word after whitespace.
type History struct {
	undo   []historyStep
	redo   []historyStep
	limit  int
	window time.Duration
	now    func() time.Time
	sealed bool
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithHistoryLimit caps the number of undo steps. Zero or less means no cap.
func WithHistoryLimit(n int) HistoryOption {
	return func(h *History) { h.limit = n }
}

// WithCoalesceWindow sets the typing merge window. Zero disables merging.
func WithCoalesceWindow(d time.Duration) HistoryOption {
	return func(h *History) { h.window = d }
}

// WithClock replaces the time source used for coalescing.
func WithClock(now func() time.Time) HistoryOption {
	return func(h *History) { h.now = now }
}

// NewHistory creates an empty history.
func NewHistory(opts ...HistoryOption) *History {
	h := &History{
		limit:  DefaultHistoryLimit,
		window: DefaultCoalesceWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Record pushes op as a new undo step and clears the redo stack.
func (h *History) Record(op EditOp, cursorBefore, cursorAfter int) {
	if op.Empty() {
		return
	}
	h.redo = nil
	now := h.now()
	typing := isTypingInsert(op)
	if typing && h.canMerge(op, now) {
		top := &h.undo[len(h.undo)-1]
		top.op.Text += op.Text
		top.cursorAfter = cursorAfter
		top.at = now
		return
	}
	h.sealed = false
	h.undo = append(h.undo, historyStep{
		op:           op,
		cursorBefore: cursorBefore,
		cursorAfter:  cursorAfter,
		at:           now,
		typing:       typing,
	})
	if h.limit > 0 && len(h.undo) > h.limit {
		h.undo = append(h.undo[:0], h.undo[len(h.undo)-h.limit:]...)
	}
}

func (h *History) canMerge(op EditOp, now time.Time) bool {
	if h.sealed || h.window <= 0 || len(h.undo) == 0 {
		return false
	}
	top := h.undo[len(h.undo)-1]
	if !top.typing || now.Sub(top.at) > h.window {
		return false
	}
	if top.op.Offset+len(top.op.Text) != op.Offset {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(top.op.Text)
	next, _ := utf8.DecodeRuneInString(op.Text)
	return !(unicode.IsSpace(last) && !unicode.IsSpace(next))
}

// isTypingInsert reports whether op looks like one typed character.
func isTypingInsert(op EditOp) bool {
	if op.Kind != EditInsert || utf8.RuneCountInString(op.Text) != 1 {
		return false
	}
	return op.Text != "\n"
}

// BreakCoalescing makes the next Record start a new step.
func (h *History) BreakCoalescing() {
	h.sealed = true
}

// Undo applies the inverse of the newest step. ok is false when there is
// nothing to undo.
func (h *History) Undo(a Applier) (rev Revision, ok bool, err error) {
	if len(h.undo) == 0 {
		return Revision{}, false, nil
	}
	step := h.undo[len(h.undo)-1]
	inverse := step.op.Inverse()
	if _, err := a.Apply(inverse); err != nil {
		return Revision{}, false, err
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, step)
	h.sealed = true
	return Revision{Op: inverse, Cursor: step.cursorBefore}, true, nil
}

// Redo re-applies the newest undone step. ok is false when there is
// nothing to redo.
func (h *History) Redo(a Applier) (rev Revision, ok bool, err error) {
	if len(h.redo) == 0 {
		return Revision{}, false, nil
	}
	step := h.redo[len(h.redo)-1]
	if _, err := a.Apply(step.op); err != nil {
		return Revision{}, false, err
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, step)
	h.sealed = true
	return Revision{Op: step.op, Cursor: step.cursorAfter}, true, nil
}

// CanUndo reports whether Undo would do anything.
func (h *History) CanUndo() bool {
	return len(h.undo) > 0
}

// CanRedo reports whether Redo would do anything.
func (h *History) CanRedo() bool {
	return len(h.redo) > 0
}

// UndoDepth returns the number of undo steps.
func (h *History) UndoDepth() int {
	return len(h.undo)
}

// Ops returns the recorded undo steps oldest first.
func (h *History) Ops() []EditOp {
	out := make([]EditOp, len(h.undo))
	for i, step := range h.undo {
		out[i] = step.op
	}
	return out
}

// Clear drops all steps.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
	h.sealed = false
}
