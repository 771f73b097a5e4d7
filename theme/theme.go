// Package theme turns token categories into colours. Palettes come from the
// chroma style registry; a Theme resolves them to tcell styles for a
// terminal view and to chroma tokens for formatted output.
package theme

import (
	"errors"
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gdamore/tcell/v2"

	"github.com/e4code/e4/editor"
	"github.com/e4code/e4/grammars"
)

// DefaultTheme is used when no theme is configured.
const DefaultTheme = "monokai"

// DefaultFormatter writes 24-bit ANSI colour.
const DefaultFormatter = "terminal16m"

var (
	ErrUnknownTheme     = errors.New("unknown theme")
	ErrUnknownFormatter = errors.New("unknown formatter")
)

var tokenTypes = [...]chroma.TokenType{
	grammars.Plain:       chroma.Text,
	grammars.Keyword:     chroma.Keyword,
	grammars.Identifier:  chroma.Name,
	grammars.String:      chroma.LiteralString,
	grammars.Comment:     chroma.Comment,
	grammars.Number:      chroma.LiteralNumber,
	grammars.Punctuation: chroma.Punctuation,
	grammars.Operator:    chroma.Operator,
}

// TokenType maps a category to the chroma token type styled for it.
func TokenType(c grammars.Category) chroma.TokenType {
	if int(c) < len(tokenTypes) {
		return tokenTypes[c]
	}
	return chroma.Text
}

// Theme is a resolved palette.
type Theme struct {
	name   string
	style  *chroma.Style
	styles [len(tokenTypes)]tcell.Style
	base   tcell.Style
}

// aliases keeps the light/dark setting values working.
var aliases = map[string]string{
	"dark":  DefaultTheme,
	"light": "github",
}

// Load resolves the named chroma style, or "dark" and "light". Unknown names
// fail with ErrUnknownTheme.
func Load(name string) (*Theme, error) {
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	style, ok := styles.Registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	t := &Theme{name: name, style: style, base: entryStyle(style.Get(chroma.Background))}
	for c := range tokenTypes {
		t.styles[c] = entryStyle(style.Get(tokenTypes[c]))
	}
	return t, nil
}

// Names lists the available themes.
func Names() []string {
	return styles.Names()
}

// Formatters lists the available output formatters.
func Formatters() []string {
	return formatters.Names()
}

// Name returns the theme's registry name.
func (t *Theme) Name() string {
	return t.name
}

// Chroma returns the underlying chroma style.
func (t *Theme) Chroma() *chroma.Style {
	return t.style
}

// Base is the style of empty editor space.
func (t *Theme) Base() tcell.Style {
	return t.base
}

// StyleFor returns the terminal style of a category.
func (t *Theme) StyleFor(c grammars.Category) tcell.Style {
	if int(c) < len(t.styles) {
		return t.styles[c]
	}
	return t.base
}

// BracketStyle highlights the bracket under the cursor and its partner.
func (t *Theme) BracketStyle(status editor.MatchStatus) tcell.Style {
	switch status {
	case editor.MatchFound:
		return t.StyleFor(grammars.Punctuation).Background(tcell.NewRGBColor(0x44, 0x44, 0x44)).Bold(true)
	case editor.MatchUnbalanced, editor.MatchScanLimit:
		return t.StyleFor(grammars.Punctuation).Background(tcell.ColorDarkRed)
	}
	return t.StyleFor(grammars.Punctuation)
}

// MatchStyle highlights a search match; current marks the selected one.
func (t *Theme) MatchStyle(current bool) tcell.Style {
	if current {
		return t.base.Background(tcell.NewRGBColor(0xff, 0x88, 0x00)).Foreground(tcell.ColorBlack)
	}
	return t.base.Background(tcell.NewRGBColor(0x2f, 0x5f, 0x87))
}

func entryStyle(e chroma.StyleEntry) tcell.Style {
	s := tcell.StyleDefault
	if e.Colour.IsSet() {
		s = s.Foreground(colour(e.Colour))
	}
	if e.Background.IsSet() {
		s = s.Background(colour(e.Background))
	}
	return s.
		Bold(e.Bold == chroma.Yes).
		Italic(e.Italic == chroma.Yes).
		Underline(e.Underline == chroma.Yes)
}

func colour(c chroma.Colour) tcell.Color {
	return tcell.NewRGBColor(int32(c.Red()), int32(c.Green()), int32(c.Blue()))
}

// Line is one tokenized line of a document.
type Line struct {
	Text   string
	Tokens []grammars.Token
}

// ChromaTokens converts tokenized lines into a chroma token stream. Gaps
// between tokens become Text and every line but the last ends in a newline.
func ChromaTokens(lines []Line) []chroma.Token {
	var out []chroma.Token
	for i, line := range lines {
		pos := 0
		for _, tok := range line.Tokens {
			if tok.Start < pos || tok.End > len(line.Text) || tok.Start > tok.End {
				continue
			}
			if tok.Start > pos {
				out = append(out, chroma.Token{Type: chroma.Text, Value: line.Text[pos:tok.Start]})
			}
			if tok.End > tok.Start {
				out = append(out, chroma.Token{Type: TokenType(tok.Category), Value: line.Text[tok.Start:tok.End]})
			}
			pos = tok.End
		}
		if pos < len(line.Text) {
			out = append(out, chroma.Token{Type: chroma.Text, Value: line.Text[pos:]})
		}
		if i < len(lines)-1 {
			out = append(out, chroma.Token{Type: chroma.Text, Value: "\n"})
		}
	}
	return out
}

// Format writes lines through the named chroma formatter.
func (t *Theme) Format(w io.Writer, formatter string, lines []Line) error {
	f, ok := formatters.Registry[formatter]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFormatter, formatter)
	}
	return f.Format(w, t.style, chroma.Literator(ChromaTokens(lines)...))
}
