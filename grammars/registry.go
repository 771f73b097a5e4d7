package grammars

import (
	"path/filepath"
	"strings"
)

// Grammar identifies the lexical family used to tokenize a document.
type Grammar uint8

const (
	PlainText Grammar = iota
	Rust
	Python
)

func (g Grammar) String() string {
	switch g {
	case Rust:
		return "rust"
	case Python:
		return "python"
	default:
		return "plaintext"
	}
}

// LexFunc tokenizes one line starting in state in.
type LexFunc func(line string, in LineState) ([]Token, LineState)

// LangEntry holds a registered language with its grammar, extensions and lexer.
type LangEntry struct {
	Name       string
	Grammar    Grammar
	Extensions []string // e.g. [".rs"]
	Shebangs   []string // e.g. ["#!/usr/bin/env python"]
	Keywords   map[string]bool
	Lex        LexFunc
}

var registry []LangEntry

func init() {
	Register(LangEntry{
		Name:       "rust",
		Grammar:    Rust,
		Extensions: []string{".rs"},
		Keywords:   rustKeywords,
		Lex:        tokenizeRust,
	})
	Register(LangEntry{
		Name:       "python",
		Grammar:    Python,
		Extensions: []string{".py", ".pyw", ".pyi"},
		Shebangs:   []string{"#!/usr/bin/env python", "#!/usr/bin/python", "#!/usr/local/bin/python"},
		Keywords:   pythonKeywords,
		Lex:        tokenizePython,
	})
}

// Register adds a language to the registry. A later entry for the same
// grammar replaces the earlier one.
func Register(entry LangEntry) {
	for i := range registry {
		if registry[i].Grammar == entry.Grammar {
			registry[i] = entry
			return
		}
	}
	registry = append(registry, entry)
}

// DetectLanguage returns the LangEntry for a filename, or nil if unknown.
func DetectLanguage(filename string) *LangEntry {
	for i := range registry {
		for _, ext := range registry[i].Extensions {
			if strings.HasSuffix(filename, ext) {
				return &registry[i]
			}
		}
	}
	return nil
}

// DetectLanguageByShebang checks the first line of content for shebang matches.
func DetectLanguageByShebang(firstLine string) *LangEntry {
	for i := range registry {
		for _, shebang := range registry[i].Shebangs {
			if strings.HasPrefix(firstLine, shebang) {
				return &registry[i]
			}
		}
	}
	return nil
}

// AllLanguages returns all registered languages.
func AllLanguages() []LangEntry {
	return registry
}

// Lookup returns the registered entry for g, or nil for PlainText.
func Lookup(g Grammar) *LangEntry {
	for i := range registry {
		if registry[i].Grammar == g {
			return &registry[i]
		}
	}
	return nil
}

// ForPath selects a grammar by file name: ".rs" is Rust, ".py" is Python,
// anything else is plain text.
func ForPath(path string) Grammar {
	if path == "" {
		return PlainText
	}
	if entry := DetectLanguage(filepath.Base(path)); entry != nil {
		return entry.Grammar
	}
	return PlainText
}

// ForContent is ForPath with a shebang fallback for files without a known
// extension.
func ForContent(path, firstLine string) Grammar {
	if g := ForPath(path); g != PlainText {
		return g
	}
	if entry := DetectLanguageByShebang(firstLine); entry != nil {
		return entry.Grammar
	}
	return PlainText
}

// Tokenize converts one line of text into contiguous tokens for grammar g.
// It is a pure function of its arguments.
func Tokenize(g Grammar, line string, in LineState) ([]Token, LineState) {
	if entry := Lookup(g); entry != nil && entry.Lex != nil {
		return entry.Lex(line, in)
	}
	return tokenizePlain(line, in)
}

func tokenizePlain(line string, _ LineState) ([]Token, LineState) {
	if line == "" {
		return nil, Initial
	}
	return []Token{{Start: 0, End: len(line), Category: Plain}}, Initial
}
