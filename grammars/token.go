package grammars

// Category classifies a highlighted span.
type Category uint8

const (
	Plain Category = iota
	Keyword
	Identifier
	String
	Comment
	Number
	Punctuation
	Operator
)

var categoryNames = [...]string{
	Plain:       "plain",
	Keyword:     "keyword",
	Identifier:  "identifier",
	String:      "string",
	Comment:     "comment",
	Number:      "number",
	Punctuation: "punctuation",
	Operator:    "operator",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// Categories returns every category in declaration order.
func Categories() []Category {
	return []Category{Plain, Keyword, Identifier, String, Comment, Number, Punctuation, Operator}
}

// Token is a typed span of one line. Start and End are byte offsets relative
// to the start of the line.
type Token struct {
	Start, End int
	Category   Category
}

// Len returns the byte length of the token.
func (t Token) Len() int {
	return t.End - t.Start
}

// Text returns the token's slice of line.
func (t Token) Text(line string) string {
	if t.Start < 0 || t.End > len(line) || t.Start > t.End {
		return ""
	}
	return line[t.Start:t.End]
}

// lexMode is the construct a line ends inside of.
type lexMode uint8

const (
	modeNormal lexMode = iota
	modeBlockComment
	modeString
	modeRawString
	modeTripleSingle
	modeTripleDouble
)

// LineState is the lexer state carried from the end of one line to the
// start of the next. It is comparable and small enough to copy freely; the
// zero value is the state at the start of a document.
type LineState struct {
	mode  lexMode
	depth uint16 // block comment nesting or raw string hash count
	quote byte   // closing quote for continued single-line strings
}

// Initial is the state at the start of a document.
var Initial = LineState{}

// InsideComment reports whether the line ends inside a block comment.
func (s LineState) InsideComment() bool {
	return s.mode == modeBlockComment
}

// InsideString reports whether the line ends inside a string literal.
func (s LineState) InsideString() bool {
	switch s.mode {
	case modeString, modeRawString, modeTripleSingle, modeTripleDouble:
		return true
	}
	return false
}
