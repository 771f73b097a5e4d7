package editor

// EditKind is the kind of mutation an EditOp describes.
type EditKind uint8

const (
	EditInsert EditKind = iota
	EditDelete
	EditBatch
)

func (k EditKind) String() string {
	switch k {
	case EditInsert:
		return "insert"
	case EditDelete:
		return "delete"
	default:
		return "batch"
	}
}

// EditOp is a reversible description of one mutation. Insert places Text at
// Offset; Delete removes Text starting at Offset; Batch applies Ops in order.
type EditOp struct {
	Kind   EditKind
	Offset int
	Text   string
	Ops    []EditOp
}

// InsertOp returns an op inserting text at offset.
func InsertOp(offset int, text string) EditOp {
	return EditOp{Kind: EditInsert, Offset: offset, Text: text}
}

// DeleteOp returns an op deleting text, which must currently sit at offset.
func DeleteOp(offset int, text string) EditOp {
	return EditOp{Kind: EditDelete, Offset: offset, Text: text}
}

// BatchOp groups ops into one unit, dropping empty ones. A batch of exactly
// one op collapses to that op.
func BatchOp(ops ...EditOp) EditOp {
	kept := make([]EditOp, 0, len(ops))
	for _, op := range ops {
		if !op.Empty() {
			kept = append(kept, op)
		}
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return EditOp{Kind: EditBatch, Ops: kept}
}

// Inverse returns the op that undoes op.
func (op EditOp) Inverse() EditOp {
	switch op.Kind {
	case EditInsert:
		return DeleteOp(op.Offset, op.Text)
	case EditDelete:
		return InsertOp(op.Offset, op.Text)
	}
	inv := make([]EditOp, len(op.Ops))
	for i, sub := range op.Ops {
		inv[len(op.Ops)-1-i] = sub.Inverse()
	}
	return EditOp{Kind: EditBatch, Ops: inv}
}

// Empty reports whether applying op changes nothing.
func (op EditOp) Empty() bool {
	if op.Kind == EditBatch {
		for _, sub := range op.Ops {
			if !sub.Empty() {
				return false
			}
		}
		return true
	}
	return op.Text == ""
}

// CursorAfter returns where the cursor belongs once op has been applied.
func (op EditOp) CursorAfter() int {
	switch op.Kind {
	case EditInsert:
		return op.Offset + len(op.Text)
	case EditDelete:
		return op.Offset
	}
	if len(op.Ops) == 0 {
		return 0
	}
	return op.Ops[len(op.Ops)-1].CursorAfter()
}

// Applier applies an op and returns its inverse. Buffer implements it, as
// does Session, which also keeps highlighting in step.
type Applier interface {
	Apply(op EditOp) (EditOp, error)
}

// Transform maps offset through op. Text inserted at or before offset
// pushes it right; deleted text containing it pulls it to the deletion
// start.
func (op EditOp) Transform(offset int) int {
	switch op.Kind {
	case EditInsert:
		if op.Offset <= offset {
			return offset + len(op.Text)
		}
		return offset
	case EditDelete:
		end := op.Offset + len(op.Text)
		switch {
		case offset >= end:
			return offset - len(op.Text)
		case offset > op.Offset:
			return op.Offset
		}
		return offset
	}
	for _, sub := range op.Ops {
		offset = sub.Transform(offset)
	}
	return offset
}
