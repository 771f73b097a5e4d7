package grammars

import (
	"unicode"
	"unicode/utf8"
)

// lineCursor tracks the byte offset while scanning a single line.
type lineCursor struct {
	src    string
	offset int
}

func newLineCursor(src string) lineCursor {
	return lineCursor{src: src}
}

func (c *lineCursor) eof() bool {
	return c.offset >= len(c.src)
}

func (c *lineCursor) peekByte() byte {
	if c.eof() {
		return 0
	}
	return c.src[c.offset]
}

func (c *lineCursor) peekByteAt(n int) byte {
	if c.offset+n >= len(c.src) {
		return 0
	}
	return c.src[c.offset+n]
}

func (c *lineCursor) peekRune() (rune, int) {
	if c.eof() {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(c.src[c.offset:])
}

func (c *lineCursor) advanceByte() {
	if !c.eof() {
		c.offset++
	}
}

func (c *lineCursor) advanceBytes(n int) {
	c.offset += n
	if c.offset > len(c.src) {
		c.offset = len(c.src)
	}
}

func (c *lineCursor) advanceRune() {
	if c.eof() {
		return
	}
	_, size := utf8.DecodeRuneInString(c.src[c.offset:])
	c.offset += size
}

func (c *lineCursor) hasPrefix(lexeme string) bool {
	return len(c.src)-c.offset >= len(lexeme) && c.src[c.offset:c.offset+len(lexeme)] == lexeme
}

func (c *lineCursor) skipToEnd() {
	c.offset = len(c.src)
}

// skipWhitespace advances over spaces and tabs. A '\r' is kept as content of
// the line, so it is treated as whitespace here too.
func (c *lineCursor) skipWhitespace() {
	for !c.eof() {
		switch c.peekByte() {
		case ' ', '\t', '\r', '\f', '\v':
			c.advanceByte()
		default:
			return
		}
	}
}

func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isASCIIDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isASCIIHex(b byte) bool {
	return isASCIIDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isASCIIWordStart(b byte) bool {
	return isASCIIAlpha(b) || b == '_'
}

func isASCIIWordPart(b byte) bool {
	return isASCIIWordStart(b) || isASCIIDigit(b)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)
}

// scanIdent consumes an identifier starting at the cursor and returns its
// text, or "" when the cursor is not on an identifier start.
func (c *lineCursor) scanIdent() string {
	r, size := c.peekRune()
	if size == 0 || !isIdentStart(r) {
		return ""
	}
	start := c.offset
	c.advanceBytes(size)
	for !c.eof() {
		r, size = c.peekRune()
		if !isIdentPart(r) {
			break
		}
		c.advanceBytes(size)
	}
	return c.src[start:c.offset]
}

// scanDigits consumes digits accepted by ok plus '_' separators.
func (c *lineCursor) scanDigits(ok func(byte) bool) {
	for !c.eof() {
		b := c.peekByte()
		if !ok(b) && b != '_' {
			return
		}
		c.advanceByte()
	}
}

func isOctal(b byte) bool  { return b >= '0' && b <= '7' }
func isBinary(b byte) bool { return b == '0' || b == '1' }

// tokenList accumulates contiguous tokens for one line, filling any gap
// with Plain spans and merging adjacent spans of the same category.
type tokenList struct {
	toks []Token
	end  int
}

func (l *tokenList) add(start, end int, cat Category) {
	if end <= start {
		return
	}
	if start > l.end {
		l.push(l.end, start, Plain)
	}
	l.push(start, end, cat)
}

func (l *tokenList) push(start, end int, cat Category) {
	if n := len(l.toks); n > 0 && l.toks[n-1].Category == cat && cat != Punctuation && l.toks[n-1].End == start {
		l.toks[n-1].End = end
	} else {
		l.toks = append(l.toks, Token{Start: start, End: end, Category: cat})
	}
	l.end = end
}

func (l *tokenList) finish(lineLen int) []Token {
	if lineLen > l.end {
		l.push(l.end, lineLen, Plain)
	}
	return l.toks
}

func decodeAt(s string, i int) (rune, int) {
	if i < 0 || i >= len(s) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(s[i:])
}
