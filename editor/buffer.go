package editor

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// Range represents a byte range [Start, End) within buffer text.
type Range struct {
	Start, End int
}

// Len returns the byte length of the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// chunkLines bounds the number of lines held by one chunk.
const chunkLines = 512

// lineChunk is an immutable run of lines. bytes counts each line plus its
// terminating '\n'.
type lineChunk struct {
	lines []string
	bytes int
}

func newChunk(lines []string) *lineChunk {
	c := &lineChunk{lines: lines}
	for _, l := range lines {
		c.bytes += len(l) + 1
	}
	return c
}

// Snapshot is a read-only view of a buffer at one point in time. It remains
// valid and unchanged while the buffer it came from is edited.
type Snapshot struct {
	chunks []*lineChunk
	lines  int
	size   int
}

func newSnapshot(text string) Snapshot {
	all := strings.Split(text, "\n")
	s := Snapshot{lines: len(all), size: len(text)}
	s.chunks = chunkify(all)
	return s
}

func chunkify(lines []string) []*lineChunk {
	out := make([]*lineChunk, 0, len(lines)/chunkLines+1)
	for len(lines) > 0 {
		n := min(len(lines), chunkLines)
		out = append(out, newChunk(slices.Clone(lines[:n])))
		lines = lines[n:]
	}
	return out
}

// Len returns the document length in bytes.
func (s Snapshot) Len() int {
	return s.size
}

// LineCount returns the number of lines, which is the number of '\n' plus one.
func (s Snapshot) LineCount() int {
	return s.lines
}

// locateLine returns the chunk index, the index within the chunk and the
// document offset of the start of line.
func (s Snapshot) locateLine(line int) (ci, li, start int) {
	for ci = 0; ci < len(s.chunks); ci++ {
		c := s.chunks[ci]
		if line < len(c.lines) {
			break
		}
		line -= len(c.lines)
		start += c.bytes
	}
	for li = 0; li < line; li++ {
		start += len(s.chunks[ci].lines[li]) + 1
	}
	return ci, li, start
}

// locateOffset returns the line containing offset and the document offset
// where that line starts. offset must be within [0, Len].
func (s Snapshot) locateOffset(offset int) (line, start int) {
	ci := 0
	for ; ci < len(s.chunks)-1; ci++ {
		c := s.chunks[ci]
		if offset < start+c.bytes {
			break
		}
		start += c.bytes
		line += len(c.lines)
	}
	c := s.chunks[ci]
	for li, l := range c.lines {
		if offset <= start+len(l) || li == len(c.lines)-1 {
			return line + li, start
		}
		start += len(l) + 1
	}
	return line, start
}

func (s Snapshot) lineText(line int) string {
	ci, li, _ := s.locateLine(line)
	return s.chunks[ci].lines[li]
}

// LineAt returns the text of line index without its terminator.
func (s Snapshot) LineAt(index int) (string, error) {
	if index < 0 || index >= s.lines {
		return "", fmt.Errorf("line %d of %d: %w", index, s.lines, ErrOutOfRange)
	}
	return s.lineText(index), nil
}

// Text returns the whole document.
func (s Snapshot) Text() string {
	var sb strings.Builder
	sb.Grow(s.size)
	first := true
	for _, c := range s.chunks {
		for _, l := range c.lines {
			if !first {
				sb.WriteByte('\n')
			}
			first = false
			sb.WriteString(l)
		}
	}
	return sb.String()
}

// checkOffset validates offset and returns its line and the line's start.
func (s Snapshot) checkOffset(offset int) (line, start int, err error) {
	if offset < 0 || offset > s.size {
		return 0, 0, fmt.Errorf("offset %d of %d: %w", offset, s.size, ErrOutOfRange)
	}
	line, start = s.locateOffset(offset)
	text := s.lineText(line)
	if b := offset - start; b < len(text) && !utf8.RuneStart(text[b]) {
		return 0, 0, fmt.Errorf("offset %d: %w", offset, ErrNotRuneBoundary)
	}
	return line, start, nil
}

// PositionOf converts a byte offset into a line index and a column counted
// in characters.
func (s Snapshot) PositionOf(offset int) (line, col int, err error) {
	line, start, err := s.checkOffset(offset)
	if err != nil {
		return 0, 0, err
	}
	text := s.lineText(line)
	return line, utf8.RuneCountInString(text[:offset-start]), nil
}

// OffsetOf converts a line index and character column into a byte offset.
// col may equal the line length (cursor at end of line).
func (s Snapshot) OffsetOf(line, col int) (int, error) {
	if line < 0 || line >= s.lines {
		return 0, fmt.Errorf("line %d of %d: %w", line, s.lines, ErrOutOfRange)
	}
	ci, li, start := s.locateLine(line)
	text := s.chunks[ci].lines[li]
	b, ok := byteIndexOfColumn(text, col)
	if !ok {
		return 0, fmt.Errorf("line %d column %d: %w", line, col, ErrOutOfRange)
	}
	return start + b, nil
}

// LineStart returns the offset of the first byte of line.
func (s Snapshot) LineStart(line int) (int, error) {
	return s.OffsetOf(line, 0)
}

func byteIndexOfColumn(text string, col int) (int, bool) {
	if col < 0 {
		return 0, false
	}
	n := 0
	for i := range text {
		if n == col {
			return i, true
		}
		n++
	}
	if n == col {
		return len(text), true
	}
	return 0, false
}

// Slice returns the text in [start, end).
func (s Snapshot) Slice(start, end int) (string, error) {
	if start > end {
		return "", fmt.Errorf("range %d-%d: %w", start, end, ErrOutOfRange)
	}
	line, lineStart, err := s.checkOffset(start)
	if err != nil {
		return "", err
	}
	if _, _, err := s.checkOffset(end); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(end - start)
	pos := start
	for pos < end {
		text := s.lineText(line)
		from := pos - lineStart
		to := min(len(text), end-lineStart)
		sb.WriteString(text[from:to])
		pos = lineStart + to
		if pos < end {
			sb.WriteByte('\n')
			pos++
		}
		lineStart += len(text) + 1
		line++
	}
	return sb.String(), nil
}

// Lines calls fn for each line from first onward until fn returns false.
func (s Snapshot) Lines(first int, fn func(index int, text string) bool) {
	if first < 0 || first >= s.lines {
		return
	}
	ci, li, _ := s.locateLine(first)
	index := first
	for ; ci < len(s.chunks); ci++ {
		for ; li < len(s.chunks[ci].lines); li++ {
			if !fn(index, s.chunks[ci].lines[li]) {
				return
			}
			index++
		}
		li = 0
	}
}

// LinesBackward calls fn for each line from last down to 0 until fn
// returns false.
func (s Snapshot) LinesBackward(last int, fn func(index int, text string) bool) {
	if last < 0 || last >= s.lines {
		return
	}
	ci, li, _ := s.locateLine(last)
	index := last
	for ; ci >= 0; ci-- {
		if li < 0 {
			li = len(s.chunks[ci].lines) - 1
		}
		for ; li >= 0; li-- {
			if !fn(index, s.chunks[ci].lines[li]) {
				return
			}
			index--
		}
	}
}

// splice replaces n lines starting at first with repl. Chunks are never
// modified in place, so earlier snapshots stay intact.
func (s *Snapshot) splice(first, n int, repl []string) {
	ci, li, _ := s.locateLine(first)
	cj, idx := ci, li
	for remaining := n; ; {
		avail := len(s.chunks[cj].lines) - idx
		if remaining <= avail {
			idx += remaining
			break
		}
		remaining -= avail
		cj++
		idx = 0
	}

	merged := make([]string, 0, li+len(repl)+len(s.chunks[cj].lines)-idx)
	merged = append(merged, s.chunks[ci].lines[:li]...)
	merged = append(merged, repl...)
	merged = append(merged, s.chunks[cj].lines[idx:]...)
	if len(merged) < chunkLines/2 && cj+1 < len(s.chunks) {
		cj++
		merged = append(merged, s.chunks[cj].lines...)
	}

	oldBytes := 0
	for k := ci; k <= cj; k++ {
		oldBytes += s.chunks[k].bytes
	}
	rebuilt := chunkify(merged)
	newBytes := 0
	for _, c := range rebuilt {
		newBytes += c.bytes
	}
	chunks := make([]*lineChunk, 0, len(s.chunks)-(cj-ci+1)+len(rebuilt))
	chunks = append(chunks, s.chunks[:ci]...)
	chunks = append(chunks, rebuilt...)
	chunks = append(chunks, s.chunks[cj+1:]...)
	s.chunks = chunks
	s.lines += len(repl) - n
	s.size += newBytes - oldBytes
}

// Buffer owns the text of one document. Lines are stored in immutable
// chunks, so an edit rebuilds only the chunk it touches and Snapshot is
// cheap.
type Buffer struct {
	doc     Snapshot
	version uint64
}

// NewBuffer creates a new empty buffer.
func NewBuffer() *Buffer {
	return NewBufferString("")
}

// NewBufferString creates a buffer holding text.
func NewBufferString(text string) *Buffer {
	return &Buffer{doc: newSnapshot(text)}
}

// Snapshot returns a read-consistent view of the current content.
func (b *Buffer) Snapshot() Snapshot {
	s := b.doc
	s.chunks = slices.Clone(b.doc.chunks)
	return s
}

// Version increases with every mutation.
func (b *Buffer) Version() uint64 {
	return b.version
}

// Len returns the document length in bytes.
func (b *Buffer) Len() int {
	return b.doc.Len()
}

// LineCount returns the number of lines.
func (b *Buffer) LineCount() int {
	return b.doc.LineCount()
}

// Text returns the whole document.
func (b *Buffer) Text() string {
	return b.doc.Text()
}

// LineAt returns the text of line index without its terminator.
func (b *Buffer) LineAt(index int) (string, error) {
	return b.doc.LineAt(index)
}

// Slice returns the text in [start, end).
func (b *Buffer) Slice(start, end int) (string, error) {
	return b.doc.Slice(start, end)
}

// OffsetOf converts a line and character column into a byte offset.
func (b *Buffer) OffsetOf(line, col int) (int, error) {
	return b.doc.OffsetOf(line, col)
}

// PositionOf converts a byte offset into a line and character column.
func (b *Buffer) PositionOf(offset int) (line, col int, err error) {
	return b.doc.PositionOf(offset)
}

// LineStart returns the offset of the first byte of line.
func (b *Buffer) LineStart(line int) (int, error) {
	return b.doc.LineStart(line)
}

// SetText replaces the whole content and returns the inverse op.
func (b *Buffer) SetText(text string) EditOp {
	old := b.doc.Text()
	b.doc = newSnapshot(text)
	b.version++
	return BatchOp(DeleteOp(0, text), InsertOp(0, old))
}

// Insert places text at offset and returns the op that undoes it.
func (b *Buffer) Insert(offset int, text string) (EditOp, error) {
	line, start, err := b.doc.checkOffset(offset)
	if err != nil {
		return EditOp{}, err
	}
	inverse := DeleteOp(offset, text)
	if text == "" {
		return inverse, nil
	}
	cur := b.doc.lineText(line)
	at := offset - start
	parts := strings.Split(text, "\n")
	parts[0] = cur[:at] + parts[0]
	parts[len(parts)-1] += cur[at:]
	b.doc.splice(line, 1, parts)
	b.version++
	return inverse, nil
}

// Delete removes [start, end) and returns the op that undoes it.
func (b *Buffer) Delete(start, end int) (EditOp, error) {
	removed, err := b.doc.Slice(start, end)
	if err != nil {
		return EditOp{}, err
	}
	inverse := InsertOp(start, removed)
	if removed == "" {
		return inverse, nil
	}
	first, firstStart := b.doc.locateOffset(start)
	last, lastStart := b.doc.locateOffset(end)
	joined := b.doc.lineText(first)[:start-firstStart] + b.doc.lineText(last)[end-lastStart:]
	b.doc.splice(first, last-first+1, []string{joined})
	b.version++
	return inverse, nil
}

// Apply performs op and returns its inverse. A batch that fails part way is
// rolled back before the error is returned.
func (b *Buffer) Apply(op EditOp) (EditOp, error) {
	switch op.Kind {
	case EditInsert:
		return b.Insert(op.Offset, op.Text)
	case EditDelete:
		got, err := b.doc.Slice(op.Offset, op.Offset+len(op.Text))
		if err != nil {
			return EditOp{}, err
		}
		if got != op.Text {
			return EditOp{}, fmt.Errorf("delete at %d: %w", op.Offset, ErrOpMismatch)
		}
		return b.Delete(op.Offset, op.Offset+len(op.Text))
	}
	return applyBatch(b, op)
}

// applyBatch applies the children of a batch through a, rolling back the
// applied prefix on failure.
func applyBatch(a Applier, op EditOp) (EditOp, error) {
	inverses := make([]EditOp, 0, len(op.Ops))
	for _, sub := range op.Ops {
		inv, err := a.Apply(sub)
		if err != nil {
			for i := len(inverses) - 1; i >= 0; i-- {
				_, _ = a.Apply(inverses[i])
			}
			return EditOp{}, err
		}
		inverses = append(inverses, inv)
	}
	slices.Reverse(inverses)
	return EditOp{Kind: EditBatch, Ops: inverses}, nil
}
