package editor

import (
	"github.com/e4code/e4/grammars"
	"github.com/e4code/e4/highlight"
)

// bracketPairs maps each bracket character to its matching partner.
var bracketPairs = map[byte]byte{
	'(': ')',
	')': '(',
	'{': '}',
	'}': '{',
	'[': ']',
	']': '[',
}

func isOpenBracket(b byte) bool {
	return b == '(' || b == '{' || b == '['
}

// MatchStatus is the outcome of a bracket match query.
type MatchStatus uint8

const (
	// MatchNone means the offset is not on a paired delimiter.
	MatchNone MatchStatus = iota
	// MatchFound means the partner was found.
	MatchFound
	// MatchUnbalanced means the document ended, or a delimiter of another
	// kind closed the pair, before depth returned to zero.
	MatchUnbalanced
	// MatchScanLimit means the scan cap was reached first.
	MatchScanLimit
)

func (s MatchStatus) String() string {
	switch s {
	case MatchFound:
		return "found"
	case MatchUnbalanced:
		return "unbalanced"
	case MatchScanLimit:
		return "scan limit"
	default:
		return "none"
	}
}

// BracketPair holds the offsets of an opener and its closer.
type BracketPair struct {
	Open, Close int
}

// BracketMatcher finds the partner of a delimiter using the tokenizer output,
// so brackets inside strings and comments are ignored.
type BracketMatcher struct {
	doc     Snapshot
	cache   *highlight.Cache
	maxScan int
}

// NewBracketMatcher creates a matcher over doc. cache must track doc's lines;
// a nil cache or a PlainText cache falls back to a raw character scan.
// maxScan caps the distance in bytes walked from the query offset; zero
// scans the whole document.
func NewBracketMatcher(doc Snapshot, cache *highlight.Cache, maxScan int) *BracketMatcher {
	return &BracketMatcher{doc: doc, cache: cache, maxScan: maxScan}
}

// MatchAt returns the offset of the delimiter paired with the one at offset.
func (m *BracketMatcher) MatchAt(offset int) (int, MatchStatus) {
	line, lineStart, err := m.doc.checkOffset(offset)
	if err != nil {
		return -1, MatchNone
	}
	text := m.doc.lineText(line)
	col := offset - lineStart
	if col >= len(text) {
		return -1, MatchNone
	}
	if _, ok := bracketPairs[text[col]]; !ok {
		return -1, MatchNone
	}

	cols := rawBracketColumns
	if m.cache != nil && m.cache.Grammar() != grammars.PlainText && m.cache.Len() == m.doc.LineCount() {
		cols = m.punctuationColumns
		if !containsInt(cols(line, text), col) {
			return -1, MatchNone
		}
	}
	return m.walk(line, lineStart, col, cols)
}

// punctuationColumns returns the byte columns of single-byte Punctuation
// tokens that are brackets.
func (m *BracketMatcher) punctuationColumns(line int, text string) []int {
	var out []int
	for _, tok := range m.cache.Tokens(m.doc, line) {
		if tok.Category != grammars.Punctuation || tok.Len() != 1 {
			continue
		}
		if _, ok := bracketPairs[text[tok.Start]]; ok {
			out = append(out, tok.Start)
		}
	}
	return out
}

func rawBracketColumns(_ int, text string) []int {
	var out []int
	for i := 0; i < len(text); i++ {
		if _, ok := bracketPairs[text[i]]; ok {
			out = append(out, i)
		}
	}
	return out
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// walk scans away from the delimiter at (line, col), counting delimiters
// reported by cols.
func (m *BracketMatcher) walk(line, lineStart, col int, cols func(int, string) []int) (int, MatchStatus) {
	origin := lineStart + col
	first := m.doc.lineText(line)[col]
	forward := isOpenBracket(first)
	depth := 1
	result, status := -1, MatchUnbalanced

	tooFar := func(off int) bool {
		if m.maxScan <= 0 {
			return false
		}
		d := off - origin
		if d < 0 {
			d = -d
		}
		return d > m.maxScan
	}

	// visit handles one candidate and reports whether the scan is over.
	visit := func(off int, b byte) bool {
		if tooFar(off) {
			status = MatchScanLimit
			return true
		}
		if isOpenBracket(b) == forward {
			depth++
			return false
		}
		depth--
		if depth > 0 {
			return false
		}
		if b == bracketPairs[first] {
			result, status = off, MatchFound
		}
		return true
	}

	if forward {
		start := lineStart
		m.doc.Lines(line, func(index int, text string) bool {
			for _, c := range cols(index, text) {
				if index == line && c <= col {
					continue
				}
				if visit(start+c, text[c]) {
					return false
				}
			}
			start += len(text) + 1
			if index+1 < m.doc.LineCount() && tooFar(start) {
				status = MatchScanLimit
				return false
			}
			return true
		})
	} else {
		end := lineStart + len(m.doc.lineText(line)) + 1
		m.doc.LinesBackward(line, func(index int, text string) bool {
			start := end - len(text) - 1
			cs := cols(index, text)
			for i := len(cs) - 1; i >= 0; i-- {
				c := cs[i]
				if index == line && c >= col {
					continue
				}
				if visit(start+c, text[c]) {
					return false
				}
			}
			end = start
			if index > 0 && tooFar(start-1) {
				status = MatchScanLimit
				return false
			}
			return true
		})
	}
	return result, status
}

// FindMatchingBracket finds the bracket paired with the one at byte offset
// pos of text by a raw character scan. It returns the partner's offset and
// true, or 0 and false if there is no match or pos is not on a bracket.
func FindMatchingBracket(text string, pos int) (int, bool) {
	m := NewBracketMatcher(newSnapshot(text), nil, 0)
	off, status := m.MatchAt(pos)
	if status != MatchFound {
		return 0, false
	}
	return off, true
}
