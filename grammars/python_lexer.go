package grammars

import "strings"

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
	"match": true, "case": true,
}

const pythonOperatorBytes = "+-*/%=<>!&|^~@."

// tokenizePython lexes one line of Python source.
func tokenizePython(line string, in LineState) ([]Token, LineState) {
	c := newLineCursor(line)
	var out tokenList
	state := in

	switch state.mode {
	case modeTripleSingle:
		state = pythonTriple(&c, '\'')
		out.add(0, c.offset, String)
	case modeTripleDouble:
		state = pythonTriple(&c, '"')
		out.add(0, c.offset, String)
	case modeString:
		state = pythonString(&c, state.quote)
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
		case b == '#':
			c.skipToEnd()
			out.add(start, c.offset, Comment)
		case b == '\'' || b == '"':
			state = pythonStringLiteral(&c)
			out.add(start, c.offset, String)
		case isASCIIDigit(b) || (b == '.' && isASCIIDigit(c.peekByteAt(1))):
			pythonNumber(&c)
			out.add(start, c.offset, Number)
		case c.hasPrefix(":="):
			c.advanceBytes(2)
			out.add(start, c.offset, Operator)
		case strings.IndexByte("()[]{},;:", b) >= 0:
			c.advanceByte()
			out.add(start, c.offset, Punctuation)
		case strings.IndexByte(pythonOperatorBytes, b) >= 0:
			for !c.eof() && strings.IndexByte(pythonOperatorBytes, c.peekByte()) >= 0 {
				c.advanceByte()
			}
			out.add(start, c.offset, Operator)
		default:
			if n := pythonStringPrefix(line, start); n > 0 {
				c.advanceBytes(n)
				state = pythonStringLiteral(&c)
				out.add(start, c.offset, String)
				continue
			}
			if word := c.scanIdent(); word != "" {
				if pythonKeywords[word] {
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

// pythonStringPrefix returns the length of a string prefix such as r, b,
// f, rb or Fr when it is immediately followed by a quote, else 0.
func pythonStringPrefix(line string, i int) int {
	n := 0
	for n < 2 && i+n < len(line) && strings.IndexByte("rRbBuUfF", line[i+n]) >= 0 {
		n++
	}
	if n == 0 || i+n >= len(line) || (line[i+n] != '\'' && line[i+n] != '"') {
		return 0
	}
	switch strings.ToLower(line[i : i+n]) {
	case "r", "b", "u", "f", "rb", "br", "fr", "rf":
		return n
	}
	return 0
}

// pythonStringLiteral consumes a string starting at its opening quote.
func pythonStringLiteral(c *lineCursor) LineState {
	q := c.peekByte()
	if c.hasPrefix(strings.Repeat(string(q), 3)) {
		c.advanceBytes(3)
		return pythonTriple(c, q)
	}
	c.advanceByte()
	return pythonString(c, q)
}

// pythonString scans a single-quoted string body. A backslash as the last
// byte of the line continues the string on the next line; otherwise an
// unterminated string ends at the line end.
func pythonString(c *lineCursor, q byte) LineState {
	for !c.eof() {
		switch c.peekByte() {
		case '\\':
			if c.offset+1 == len(c.src) {
				c.advanceByte()
				return LineState{mode: modeString, quote: q}
			}
			c.advanceByte()
			c.advanceRune()
		case q:
			c.advanceByte()
			return Initial
		default:
			c.advanceRune()
		}
	}
	return Initial
}

// pythonTriple scans a triple-quoted string body, which may span lines.
func pythonTriple(c *lineCursor, q byte) LineState {
	closer := strings.Repeat(string(q), 3)
	for !c.eof() {
		switch {
		case c.peekByte() == '\\':
			c.advanceByte()
			c.advanceRune()
		case c.hasPrefix(closer):
			c.advanceBytes(3)
			return Initial
		default:
			c.advanceRune()
		}
	}
	if q == '\'' {
		return LineState{mode: modeTripleSingle}
	}
	return LineState{mode: modeTripleDouble}
}

func pythonNumber(c *lineCursor) {
	if c.peekByte() == '0' {
		switch c.peekByteAt(1) {
		case 'x', 'X':
			c.advanceBytes(2)
			c.scanDigits(isASCIIHex)
			return
		case 'o', 'O':
			c.advanceBytes(2)
			c.scanDigits(isOctal)
			return
		case 'b', 'B':
			c.advanceBytes(2)
			c.scanDigits(isBinary)
			return
		}
	}
	c.scanDigits(isASCIIDigit)
	if c.peekByte() == '.' {
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
	if b := c.peekByte(); b == 'j' || b == 'J' {
		c.advanceByte()
	}
}
