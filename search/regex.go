package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/e4code/e4/editor"
)

// regexMatcher runs a regexp2 pattern. Patterns are compiled multiline so
// ^ and $ match at line boundaries.
type regexMatcher struct {
	re *regexp2.Regexp
}

func compileRegex(pattern string, opts Options, timeout time.Duration) (*regexMatcher, error) {
	var flags regexp2.RegexOptions = regexp2.Multiline
	if !opts.MatchCase {
		flags |= regexp2.IgnoreCase
	}
	expr := pattern
	if opts.WholeWord {
		expr = `(?<!\w)(?:` + pattern + `)(?!\w)`
	}
	re, err := regexp2.Compile(expr, flags)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRegex, err)
	}
	re.MatchTimeout = timeout
	return &regexMatcher{re: re}, nil
}

func (m *regexMatcher) matches(text string) ([]hit, error) {
	runes := []rune(text)
	var out []hit
	pos := runePos{text: text}
	match, err := m.re.FindRunesMatch(runes)
	for match != nil {
		start := pos.advance(match.Index)
		end := pos.advance(match.Index + match.Length)
		out = append(out, hit{Range: editor.Range{Start: start, End: end}, groups: match})
		match, err = m.re.FindNextMatch(match)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// expand substitutes the groups captured for h into replacement.
func (m *regexMatcher) expand(h hit, replacement string) string {
	if h.groups == nil || !strings.Contains(replacement, "$") {
		return replacement
	}
	return expandGroups(replacement, m.re, h.groups)
}

// expandGroups substitutes $n, ${n}, ${name}, $& and $$ in tmpl. A reference
// to a group the pattern does not define is copied through unchanged.
func expandGroups(tmpl string, re *regexp2.Regexp, match *regexp2.Match) string {
	group := func(n int) string {
		if g := match.GroupByNumber(n); g != nil {
			return g.String()
		}
		return ""
	}
	defined := func(n int) bool {
		return re.GroupNameFromNumber(n) != ""
	}

	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '$' || i+1 == len(tmpl) {
			b.WriteByte(c)
			continue
		}
		next := tmpl[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '&':
			b.WriteString(group(0))
			i++
		case next == '{':
			end := strings.IndexByte(tmpl[i+2:], '}')
			if end < 0 {
				b.WriteByte(c)
				continue
			}
			name := tmpl[i+2 : i+2+end]
			n, err := strconv.Atoi(name)
			if err != nil {
				n = re.GroupNumberFromName(name)
			}
			if n < 0 || !defined(n) {
				b.WriteByte(c)
				continue
			}
			b.WriteString(group(n))
			i += 2 + end
		case next >= '0' && next <= '9':
			// Take the longest run of digits that names a group.
			n, width := -1, 0
			for j := i + 1; j < len(tmpl) && tmpl[j] >= '0' && tmpl[j] <= '9'; j++ {
				v, _ := strconv.Atoi(tmpl[i+1 : j+1])
				if defined(v) {
					n, width = v, j-i
				}
			}
			if n < 0 {
				b.WriteByte(c)
				continue
			}
			b.WriteString(group(n))
			i += width
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// runePos converts ascending rune indexes into byte offsets of text. Bytes
// that are not valid UTF-8 count as one rune each, as in []rune(text).
type runePos struct {
	text  string
	runes int
	bytes int
}

func (p *runePos) advance(runeIndex int) int {
	for p.runes < runeIndex && p.bytes < len(p.text) {
		_, size := utf8.DecodeRuneInString(p.text[p.bytes:])
		p.bytes += size
		p.runes++
	}
	return p.bytes
}
