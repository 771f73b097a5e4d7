package grammars

import (
	"fmt"
	"strings"
	"testing"
)

// render formats tokens as "category:text" pairs, skipping whitespace-only
// plain spans.
func render(line string, toks []Token) string {
	var parts []string
	for _, tok := range toks {
		text := tok.Text(line)
		if tok.Category == Plain && strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%s", tok.Category, text))
	}
	return strings.Join(parts, " ")
}

func checkContiguous(t *testing.T, line string, toks []Token) {
	t.Helper()
	pos := 0
	for i, tok := range toks {
		if tok.Start != pos {
			t.Fatalf("token %d starts at %d, want %d (%+v)", i, tok.Start, pos, toks)
		}
		if tok.End <= tok.Start {
			t.Fatalf("token %d is empty: %+v", i, tok)
		}
		pos = tok.End
	}
	if pos != len(line) {
		t.Fatalf("tokens end at %d, want %d", pos, len(line))
	}
}

func TestRustTokenizeLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"fn", "fn main() {", "keyword:fn identifier:main punctuation:( punctuation:) punctuation:{"},
		{"let string", `let s = "a \"b\" c";`, `keyword:let identifier:s operator:= string:"a \"b\" c" punctuation:;`},
		{"line comment", "x += 1; // (note", "identifier:x operator:+= number:1 punctuation:; comment:// (note"},
		{"block comment", "a /* b */ c", "identifier:a comment:/* b */ identifier:c"},
		{"char literal", `let c = '(';`, `keyword:let identifier:c operator:= string:'(' punctuation:;`},
		{"escaped char", `'\n'`, `string:'\n'`},
		{"unicode char", `'\u{1F600}'`, `string:'\u{1F600}'`},
		{"lifetime", "fn f<'a>(x: &'a str)", "keyword:fn identifier:f operator:< identifier:'a operator:> punctuation:( identifier:x punctuation:: operator:& identifier:'a identifier:str punctuation:)"},
		{"numbers", "0xff_u8 1_000 3.14e-2f64 0b1010 1..2", "number:0xff_u8 number:1_000 number:3.14e-2f64 number:0b1010 number:1 operator:.. number:2"},
		{"path", "std::io::Result", "identifier:std operator::: identifier:io operator::: identifier:Result"},
		{"raw string", `r#"say "hi""# x`, `string:r#"say "hi""# identifier:x`},
		{"byte string", `b"ab" b'c'`, `string:b"ab" string:b'c'`},
		{"raw ident", "r#type", "identifier:r#type"},
		{"macro", `println!("{}", x)`, `identifier:println operator:! punctuation:( string:"{}" punctuation:, identifier:x punctuation:)`},
		{"unicode ident", "let größe = 1;", "keyword:let identifier:größe operator:= number:1 punctuation:;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, out := Tokenize(Rust, tt.line, Initial)
			checkContiguous(t, tt.line, toks)
			if got := render(tt.line, toks); got != tt.want {
				t.Errorf("tokens =\n  %s\nwant\n  %s", got, tt.want)
			}
			if out != Initial {
				t.Errorf("state out = %+v, want initial", out)
			}
		})
	}
}

func TestRustNestedBlockCommentAcrossLines(t *testing.T) {
	lines := []string{
		"let a = 1; /* outer /* inner */",
		"still comment ( */ let b = 2;",
		"let c = 3;",
	}
	state := Initial
	var got []string
	for _, line := range lines {
		var toks []Token
		toks, state = Tokenize(Rust, line, state)
		checkContiguous(t, line, toks)
		got = append(got, render(line, toks))
	}
	want := []string{
		"keyword:let identifier:a operator:= number:1 punctuation:; comment:/* outer /* inner */",
		"comment:still comment ( */ keyword:let identifier:b operator:= number:2 punctuation:;",
		"keyword:let identifier:c operator:= number:3 punctuation:;",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d =\n  %s\nwant\n  %s", i, got[i], want[i])
		}
	}
}

func TestRustMultilineStrings(t *testing.T) {
	_, s1 := Tokenize(Rust, `let s = "first`, Initial)
	if !s1.InsideString() {
		t.Fatalf("expected string state, got %+v", s1)
	}
	toks, s2 := Tokenize(Rust, `second" + x`, s1)
	if got := render(`second" + x`, toks); got != `string:second" operator:+ identifier:x` {
		t.Errorf("continuation tokens = %s", got)
	}
	if s2 != Initial {
		t.Errorf("state after close = %+v", s2)
	}

	_, r1 := Tokenize(Rust, `let r = r##"a "# still`, Initial)
	if !r1.InsideString() {
		t.Fatalf("expected raw string state, got %+v", r1)
	}
	toks, r2 := Tokenize(Rust, `end"## ;`, r1)
	if got := render(`end"## ;`, toks); got != `string:end"## punctuation:;` {
		t.Errorf("raw continuation tokens = %s", got)
	}
	if r2 != Initial {
		t.Errorf("state after raw close = %+v", r2)
	}
}

func TestRustTokenizeDeterministic(t *testing.T) {
	lines := []string{"/* open", "fn x() { \"s\" }", `r#"`, "*/ 'a' 1.5"}
	state := Initial
	for _, line := range lines {
		toks1, out1 := Tokenize(Rust, line, state)
		toks2, out2 := Tokenize(Rust, line, state)
		if out1 != out2 || len(toks1) != len(toks2) {
			t.Fatalf("tokenize %q not deterministic", line)
		}
		for i := range toks1 {
			if toks1[i] != toks2[i] {
				t.Fatalf("token %d differs for %q", i, line)
			}
		}
		state = out1
	}
}
