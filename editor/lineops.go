package editor

import "fmt"

func lineSpanError(first, last, count int) error {
	return fmt.Errorf("lines %d-%d of %d: %w", first, last, count, ErrOutOfRange)
}

// lineExtent returns the offsets of the start and end of line, excluding
// its terminator.
func lineExtent(doc Snapshot, line int) (start, end int, err error) {
	start, err = doc.LineStart(line)
	if err != nil {
		return 0, 0, err
	}
	return start, start + len(doc.lineText(line)), nil
}

// DeleteLineOp returns the op removing line together with one line
// terminator. On a single-line document it clears the line.
func DeleteLineOp(doc Snapshot, line int) (EditOp, error) {
	start, end, err := lineExtent(doc, line)
	if err != nil {
		return EditOp{}, err
	}
	switch {
	case line+1 < doc.LineCount():
		end++
	case line > 0:
		start--
	}
	text, err := doc.Slice(start, end)
	if err != nil {
		return EditOp{}, err
	}
	return DeleteOp(start, text), nil
}

// DuplicateLineOp returns the op inserting a copy of line right after it.
func DuplicateLineOp(doc Snapshot, line int) (EditOp, error) {
	_, end, err := lineExtent(doc, line)
	if err != nil {
		return EditOp{}, err
	}
	return InsertOp(end, "\n"+doc.lineText(line)), nil
}

// MoveLineOp returns the op swapping line with the line delta away (+1 moves
// it down, -1 up). ok is false when the target is outside the document.
func MoveLineOp(doc Snapshot, line, delta int) (op EditOp, ok bool, err error) {
	target := line + delta
	if line < 0 || line >= doc.LineCount() {
		return EditOp{}, false, lineSpanError(line, line, doc.LineCount())
	}
	if delta == 0 || target < 0 || target >= doc.LineCount() {
		return EditOp{}, false, nil
	}
	lo, hi := min(line, target), max(line, target)
	start, _, err := lineExtent(doc, lo)
	if err != nil {
		return EditOp{}, false, err
	}
	_, end, err := lineExtent(doc, hi)
	if err != nil {
		return EditOp{}, false, err
	}
	old, err := doc.Slice(start, end)
	if err != nil {
		return EditOp{}, false, err
	}
	// Lines strictly between lo and hi keep their place.
	mid := old[len(doc.lineText(lo)) : len(old)-len(doc.lineText(hi))]
	swapped := doc.lineText(hi) + mid + doc.lineText(lo)
	return BatchOp(DeleteOp(start, old), InsertOp(start, swapped)), true, nil
}
