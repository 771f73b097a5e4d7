package grammars

import "strings"

var rustKeywords = map[string]bool{
	"as": true, "async": true, "await": true, "break": true, "const": true,
	"continue": true, "crate": true, "dyn": true, "else": true, "enum": true,
	"extern": true, "false": true, "fn": true, "for": true, "if": true,
	"impl": true, "in": true, "let": true, "loop": true, "match": true,
	"mod": true, "move": true, "mut": true, "pub": true, "ref": true,
	"return": true, "self": true, "Self": true, "static": true, "struct": true,
	"super": true, "trait": true, "true": true, "type": true, "union": true,
	"unsafe": true, "use": true, "where": true, "while": true,
	"abstract": true, "become": true, "box": true, "do": true, "final": true,
	"macro": true, "override": true, "priv": true, "try": true, "typeof": true,
	"unsized": true, "virtual": true, "yield": true,
}

const rustOperatorBytes = "+-*/%=!<>&|^?@~.#$"

// tokenizeRust lexes one line of Rust source.
func tokenizeRust(line string, in LineState) ([]Token, LineState) {
	c := newLineCursor(line)
	var out tokenList
	state := in

	switch state.mode {
	case modeBlockComment:
		state = rustBlockComment(&c, state.depth)
		out.add(0, c.offset, Comment)
	case modeString:
		state = rustString(&c)
		out.add(0, c.offset, String)
	case modeRawString:
		state = rustRawString(&c, int(state.depth))
		out.add(0, c.offset, String)
	default:
		state = Initial
	}

	for state.mode == modeNormal && !c.eof() {
		start := c.offset
		b := c.peekByte()
		switch {
		case b == ' ' || b == '\t' || b == '\r' || b == '\f' || b == '\v':
			c.skipWhitespace()
			out.add(start, c.offset, Plain)
		case c.hasPrefix("//"):
			c.skipToEnd()
			out.add(start, c.offset, Comment)
		case c.hasPrefix("/*"):
			c.advanceBytes(2)
			state = rustBlockComment(&c, 1)
			out.add(start, c.offset, Comment)
		case b == '"':
			c.advanceByte()
			state = rustString(&c)
			out.add(start, c.offset, String)
		case c.hasPrefix(`b"`):
			c.advanceBytes(2)
			state = rustString(&c)
			out.add(start, c.offset, String)
		case c.hasPrefix("b'"):
			c.advanceByte()
			rustCharLiteral(&c)
			out.add(start, c.offset, String)
		case b == '\'':
			cat := rustQuote(&c)
			out.add(start, c.offset, cat)
		case isASCIIDigit(b):
			rustNumber(&c)
			out.add(start, c.offset, Number)
		case strings.IndexByte("()[]{},;", b) >= 0:
			c.advanceByte()
			out.add(start, c.offset, Punctuation)
		case b == ':':
			if c.peekByteAt(1) == ':' {
				c.advanceBytes(2)
				out.add(start, c.offset, Operator)
			} else {
				c.advanceByte()
				out.add(start, c.offset, Punctuation)
			}
		case strings.IndexByte(rustOperatorBytes, b) >= 0:
			for !c.eof() && strings.IndexByte(rustOperatorBytes, c.peekByte()) >= 0 {
				if c.hasPrefix("//") || c.hasPrefix("/*") {
					break
				}
				c.advanceByte()
			}
			out.add(start, c.offset, Operator)
		default:
			if hashes, ok := rustRawStringStart(&c); ok {
				state = rustRawString(&c, hashes)
				out.add(start, c.offset, String)
				continue
			}
			if c.hasPrefix("r#") && rustRawIdentStart(&c) {
				c.advanceBytes(2)
				c.scanIdent()
				out.add(start, c.offset, Identifier)
				continue
			}
			if word := c.scanIdent(); word != "" {
				if rustKeywords[word] {
					out.add(start, c.offset, Keyword)
				} else {
					out.add(start, c.offset, Identifier)
				}
				continue
			}
			c.advanceRune()
			out.add(start, c.offset, Plain)
		}
	}
	return out.finish(len(line)), state
}

// rustBlockComment scans a (possibly nested) block comment body.
func rustBlockComment(c *lineCursor, depth uint16) LineState {
	for !c.eof() {
		switch {
		case c.hasPrefix("/*"):
			depth++
			c.advanceBytes(2)
		case c.hasPrefix("*/"):
			depth--
			c.advanceBytes(2)
			if depth == 0 {
				return Initial
			}
		default:
			c.advanceRune()
		}
	}
	return LineState{mode: modeBlockComment, depth: depth}
}

// rustString scans a string body after its opening quote. Rust strings may
// contain raw newlines, so an unterminated string continues on the next line.
func rustString(c *lineCursor) LineState {
	for !c.eof() {
		switch c.peekByte() {
		case '\\':
			c.advanceByte()
			c.advanceRune()
		case '"':
			c.advanceByte()
			return Initial
		default:
			c.advanceRune()
		}
	}
	return LineState{mode: modeString}
}

// rustRawStringStart consumes a raw string opener (r", r#", br#" and so
// on) and returns its hash count.
func rustRawStringStart(c *lineCursor) (int, bool) {
	i := c.offset
	if i < len(c.src) && c.src[i] == 'b' {
		i++
	}
	if i >= len(c.src) || c.src[i] != 'r' {
		return 0, false
	}
	i++
	hashes := 0
	for i < len(c.src) && c.src[i] == '#' {
		hashes++
		i++
	}
	if i >= len(c.src) || c.src[i] != '"' {
		return 0, false
	}
	c.offset = i + 1
	return hashes, true
}

// rustRawString scans a raw string body; it ends at a quote followed by the
// opener's hash count.
func rustRawString(c *lineCursor, hashes int) LineState {
	closer := "\"" + strings.Repeat("#", hashes)
	for !c.eof() {
		if c.hasPrefix(closer) {
			c.advanceBytes(len(closer))
			return Initial
		}
		c.advanceRune()
	}
	return LineState{mode: modeRawString, depth: uint16(hashes)}
}

func rustRawIdentStart(c *lineCursor) bool {
	r, size := decodeAt(c.src, c.offset+2)
	return size > 0 && isIdentStart(r)
}

// rustQuote consumes a char literal or a lifetime starting at a quote.
func rustQuote(c *lineCursor) Category {
	start := c.offset
	if c.peekByteAt(1) == '\\' {
		rustCharLiteral(c)
		return String
	}
	r, size := decodeAt(c.src, start+1)
	if size > 0 && start+1+size < len(c.src) && c.src[start+1+size] == '\'' {
		c.advanceBytes(2 + size)
		return String
	}
	c.advanceByte()
	if size > 0 && isIdentStart(r) {
		c.scanIdent()
		return Identifier
	}
	return Operator
}

// rustCharLiteral consumes a quoted character literal including escapes
// such as '\n' and '\u{1F600}'. An unterminated literal ends at the line end.
func rustCharLiteral(c *lineCursor) {
	c.advanceByte() // opening quote
	for !c.eof() {
		switch c.peekByte() {
		case '\\':
			c.advanceByte()
			c.advanceRune()
		case '\'':
			c.advanceByte()
			return
		default:
			c.advanceRune()
		}
	}
}

func rustNumber(c *lineCursor) {
	if c.peekByte() == '0' {
		switch c.peekByteAt(1) {
		case 'x', 'X':
			c.advanceBytes(2)
			c.scanDigits(isASCIIHex)
			rustNumberSuffix(c)
			return
		case 'o', 'O':
			c.advanceBytes(2)
			c.scanDigits(isOctal)
			rustNumberSuffix(c)
			return
		case 'b', 'B':
			c.advanceBytes(2)
			c.scanDigits(isBinary)
			rustNumberSuffix(c)
			return
		}
	}
	c.scanDigits(isASCIIDigit)
	if c.peekByte() == '.' && isASCIIDigit(c.peekByteAt(1)) {
		c.advanceByte()
		c.scanDigits(isASCIIDigit)
	}
	if b := c.peekByte(); b == 'e' || b == 'E' {
		next := c.peekByteAt(1)
		if isASCIIDigit(next) {
			c.advanceByte()
			c.scanDigits(isASCIIDigit)
		} else if (next == '+' || next == '-') && isASCIIDigit(c.peekByteAt(2)) {
			c.advanceBytes(2)
			c.scanDigits(isASCIIDigit)
		}
	}
	rustNumberSuffix(c)
}

// rustNumberSuffix consumes type suffixes like u8, i64, f32, usize.
func rustNumberSuffix(c *lineCursor) {
	for !c.eof() && isASCIIWordPart(c.peekByte()) {
		c.advanceByte()
	}
}
