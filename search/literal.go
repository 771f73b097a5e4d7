package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	xsearch "golang.org/x/text/search"

	"github.com/e4code/e4/editor"
)

// literalMatcher finds plain text. Case-insensitive candidates come from
// Unicode collation and are kept only when they case-fold to the pattern, so
// a match may differ from the pattern in case and byte length but in nothing
// else.
type literalMatcher struct {
	pattern   string
	folded    *xsearch.Pattern // nil when matching case
	fold      string
	wholeWord bool
}

var (
	caseless = xsearch.New(language.Und, xsearch.IgnoreCase)
	folder   = cases.Fold()
)

func compileLiteral(pattern string, opts Options) *literalMatcher {
	m := &literalMatcher{pattern: pattern, wholeWord: opts.WholeWord}
	if !opts.MatchCase {
		m.folded = caseless.CompileString(pattern)
		m.fold = folder.String(pattern)
	}
	return m
}

func (m *literalMatcher) index(text string) (start, end int) {
	if m.folded == nil {
		i := strings.Index(text, m.pattern)
		if i < 0 {
			return -1, -1
		}
		return i, i + len(m.pattern)
	}
	return m.folded.IndexString(text)
}

func (m *literalMatcher) matches(text string) ([]hit, error) {
	var out []hit
	pos := 0
	for pos <= len(text) {
		start, end := m.index(text[pos:])
		if start < 0 {
			break
		}
		start, end = start+pos, end+pos
		end = m.exactEnd(text, start, end)
		if end <= start || m.wholeWord && !isWordBounded(text, start, end) {
			_, size := utf8.DecodeRuneInString(text[start:])
			pos = start + max(size, 1)
			continue
		}
		out = append(out, hit{Range: editor.Range{Start: start, End: end}})
		pos = end
	}
	return out, nil
}

// exactEnd narrows a collation candidate text[start:end] to the shortest
// prefix that case-folds to the pattern. Collation skips ignorable code
// points such as control characters and zero-width spaces. It returns start
// when no prefix qualifies.
func (m *literalMatcher) exactEnd(text string, start, end int) int {
	if m.folded == nil {
		return end
	}
	cand := text[start:end]
	if folder.String(cand) == m.fold {
		return end
	}
	for i := range cand {
		if i > 0 && folder.String(cand[:i]) == m.fold {
			return start + i
		}
	}
	return start
}

func (m *literalMatcher) expand(_ hit, replacement string) string {
	return replacement
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isWordBounded reports whether text[start:end] is not directly preceded or
// followed by a word character.
func isWordBounded(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}
