package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/e4code/e4/commands"
	"github.com/e4code/e4/editor"
	"github.com/e4code/e4/theme"
)

// runCLI runs the root command with a private config file.
func runCLI(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func cliConfig(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.yaml")
}

func TestTokensCmd(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.py", "def f():\n    return 'x'  # c\n")
	out, err := runCLI(t, cliConfig(t), "tokens", path)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	for _, want := range []string{
		"# a.py (python)\n",
		"1:1\tkeyword\t\"def\"\n",
		"1:5\tidentifier\t\"f\"\n",
		"1:6\tpunctuation\t\"(\"\n",
		"2:5\tkeyword\t\"return\"\n",
		"2:12\tstring\t\"'x'\"\n",
		"2:17\tcomment\t\"# c\"\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("tokens output missing %q:\n%s", want, out)
		}
	}
}

func TestTokensCmdMissingFile(t *testing.T) {
	_, err := runCLI(t, cliConfig(t), "tokens", filepath.Join(t.TempDir(), "absent.rs"))
	if !errors.Is(err, editor.ErrIO) {
		t.Fatalf("tokens on missing file = %v, want ErrIO", err)
	}
}

func TestHighlightCmd(t *testing.T) {
	path := writeFile(t, t.TempDir(), "lib.rs", "fn f() {}\n")
	out, err := runCLI(t, cliConfig(t), "highlight", "--formatter", "tokens", "--style", "github", path)
	if err != nil {
		t.Fatalf("highlight: %v", err)
	}
	if !strings.HasPrefix(out, `&Token{Keyword, "fn"}`) {
		t.Errorf("highlight output = %q", out)
	}

	out, err = runCLI(t, cliConfig(t), "highlight", path)
	if err != nil {
		t.Fatalf("highlight: %v", err)
	}
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("default formatter did not colour: %q", out)
	}

	if _, err := runCLI(t, cliConfig(t), "highlight", "--style", "no-such-style", path); !errors.Is(err, theme.ErrUnknownTheme) {
		t.Errorf("unknown style = %v, want ErrUnknownTheme", err)
	}
	if _, err := runCLI(t, cliConfig(t), "highlight", "--formatter", "nope", path); !errors.Is(err, theme.ErrUnknownFormatter) {
		t.Errorf("unknown formatter = %v, want ErrUnknownFormatter", err)
	}
}

func TestFindCmd(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", "alpha beta\nBeta gamma\n")
	cfg := cliConfig(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"ignore case", []string{"beta"}, "1:7: alpha beta\n2:1: Beta gamma\n2 match(es)\n"},
		{"match case", []string{"--match-case", "beta"}, "1:7: alpha beta\n1 match(es)\n"},
		{"whole word", []string{"--whole-word", "bet"}, "0 match(es)\n"},
		{"regex", []string{"--regex", `a\b`}, "1:5: alpha beta\n1:10: alpha beta\n2:4: Beta gamma\n2:10: Beta gamma\n4 match(es)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"find", path}, tt.args...)
			if len(tt.args) > 1 {
				args = append([]string{"find"}, tt.args[0], path, tt.args[1])
			}
			out, err := runCLI(t, cfg, args...)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if out != tt.want {
				t.Errorf("find output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestReplaceCmd(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.py", "x = old(old)\n")
	cfg := cliConfig(t)

	out, err := runCLI(t, cfg, "replace", path, "old", "new")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if out != "x = new(new)\n" {
		t.Errorf("replace output = %q", out)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "x = old(old)\n" {
		t.Fatalf("file changed without --write: %q", data)
	}

	out, err = runCLI(t, cfg, "replace", "--write", "--regex", path, `old\((\w+)\)`, "call($1)")
	if err != nil {
		t.Fatalf("replace --write: %v", err)
	}
	if out != "Replaced 1 occurrence(s)\n" {
		t.Errorf("replace --write output = %q", out)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "x = call(old)\n" {
		t.Errorf("file = %q", data)
	}
}

func TestMatchCmd(t *testing.T) {
	path := writeFile(t, t.TempDir(), "main.rs", "fn main() {\n    let s = \"(\";\n}\n")
	cfg := cliConfig(t)
	tests := []struct {
		at, want string
	}{
		{"1:11", "1:11 -> 3:1\n"},
		{"3:1", "1:11 -> 3:1\n"},
		{"1:8", "1:8 -> 1:9\n"},
		{"1:1", "1:1: none\n"},
	}
	for _, tt := range tests {
		out, err := runCLI(t, cfg, "match", path, tt.at)
		if err != nil {
			t.Fatalf("match %s: %v", tt.at, err)
		}
		if out != tt.want {
			t.Errorf("match %s = %q, want %q", tt.at, out, tt.want)
		}
	}
	if _, err := runCLI(t, cfg, "match", path, "zero"); !errors.Is(err, errInvalidPosition) {
		t.Errorf("match zero = %v, want errInvalidPosition", err)
	}
}

func TestLsCmd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.py", "")
	writeFile(t, dir, "a.rs", "")
	writeFile(t, dir, "sub/c.txt", "")
	writeFile(t, dir, ".git/HEAD", "")
	cfg := cliConfig(t)

	out, err := runCLI(t, cfg, "ls", dir)
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	want := "..\nsub" + string(os.PathSeparator) + "\na.rs\trust\nb.py\tpython\n"
	if out != want {
		t.Errorf("ls = %q, want %q", out, want)
	}

	out, err = runCLI(t, cfg, "ls", "--find", "b", dir)
	if err != nil {
		t.Fatalf("ls --find: %v", err)
	}
	if out != "b.py\nsub/c.txt\n" {
		t.Errorf("ls --find = %q", out)
	}
	out, err = runCLI(t, cfg, "ls", "--find", "b", "--limit", "1", dir)
	if err != nil {
		t.Fatalf("ls --find --limit: %v", err)
	}
	if out != "b.py\n" {
		t.Errorf("ls --find --limit = %q", out)
	}
}

func TestStatusCmd(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "x.rs", "fn x() {}\n")
	second := writeFile(t, dir, "a.py", "a = 1\nb = 22\n")
	out, err := runCLI(t, cliConfig(t), "status", "--at", "2:3", first, second)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("status output = %q", out)
	}
	if !strings.HasPrefix(lines[0], " x.rs "+tabSeparator+"[a.py]") {
		t.Errorf("tab bar = %q", lines[0])
	}
	if want := `Ln 2, Col 3  python  3 lines  indent "    "`; lines[1] != want {
		t.Errorf("status = %q, want %q", lines[1], want)
	}
}

func TestSessionCmd(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.py", "a = 1\n")
	b := writeFile(t, dir, "b.rs", "fn b() {}\n")
	cfg := cliConfig(t)

	out, err := runCLI(t, cfg, "session", a, b)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if out != "remembered 2 file(s)\n" {
		t.Errorf("session = %q", out)
	}
	out, err = runCLI(t, cfg, "session")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if out != a+"\n"+b+"\n" {
		t.Errorf("session list = %q", out)
	}
}

func TestBadConfig(t *testing.T) {
	cfg := cliConfig(t)
	if err := os.WriteFile(cfg, []byte("config_version: 9\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, cfg, "ls", t.TempDir()); err == nil {
		t.Fatal("expected an error for an unsupported config_version")
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := runCLI(t, cliConfig(t), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "github.com/e4code/e4 ") {
		t.Errorf("version = %q", out)
	}
}

func TestKeysCmd(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "foo bar foo\nbaz\n")
	out, err := runCLI(t, cliConfig(t), "keys", "--input", "foo", "--input", "qux", path,
		"Ctrl+F", "F3", "Ctrl+H", "Ctrl+Shift+D", "Ctrl+Z", "Ctrl+Y", "click:1")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	lines := strings.Split(out, "\n")
	want := []struct{ key, status string }{
		{"Ctrl+F", "1/2"},
		{"F3", "2/2"},
		{"Ctrl+H", "1/1"},
		{"Ctrl+Shift+D", ""},
		{"Ctrl+Z", ""},
		{"Ctrl+Y", "error: Ctrl+Y: command has no action"},
		{"click:1", ""},
	}
	if len(lines) < len(want)+3 {
		t.Fatalf("keys output = %q", out)
	}
	for i, w := range want {
		fields := strings.Split(lines[i], "\t")
		if len(fields) != 3 || fields[0] != w.key || fields[2] != w.status {
			t.Errorf("line %d = %q, want key %q status %q", i, lines[i], w.key, w.status)
		}
	}
	if got := strings.Join(lines[len(want):], "\n"); got != "-- notes.txt\nfoo bar qux\nbaz\n" {
		t.Errorf("final text = %q", got)
	}
	if data, _ := os.ReadFile(path); string(data) != "foo bar foo\nbaz\n" {
		t.Errorf("file written without --write: %q", data)
	}
}

func TestKeysCmdWrite(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.py", "a = 1\nb = 2\n")
	if _, err := runCLI(t, cliConfig(t), "keys", "-w", "--at", "2", path, "Alt+Up"); err != nil {
		t.Fatalf("keys: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "b = 2\na = 1\n" {
		t.Errorf("saved text = %q", data)
	}
}

func TestKeysCmdBadArgs(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.py", "a = 1\n")
	if _, err := runCLI(t, cliConfig(t), "keys", path, "Hyper+X"); !errors.Is(err, commands.ErrBadShortcut) {
		t.Errorf("bad shortcut = %v, want ErrBadShortcut", err)
	}
	if _, err := runCLI(t, cliConfig(t), "keys", path, "click:x"); err == nil {
		t.Error("expected an error for a bad click column")
	}
	if _, err := runCLI(t, cliConfig(t), "keys", "--confirm", "maybe", path, "Ctrl+W"); err == nil {
		t.Error("expected an error for an unknown --confirm answer")
	}
}

func TestViewCmd(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "x.rs", "fn x() {}\n")
	second := writeFile(t, dir, "a.py", "a = 1\nb = 22\n")
	out, err := runCLI(t, cliConfig(t), "view", "--width", "30", "--height", "5", "--find", "22", first, second)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	rows := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(rows) != 5 {
		t.Fatalf("view output = %q", out)
	}
	if !strings.HasPrefix(rows[0], " x.rs "+tabSeparator+"[a.py]") {
		t.Errorf("tab bar = %q", rows[0])
	}
	if rows[1] != "a = 1" || rows[2] != "b = 22" {
		t.Errorf("text rows = %q", rows[1:3])
	}
	if rows[4] != "Ln 2, Col 7  python  1/1" {
		t.Errorf("status row = %q", rows[4])
	}

	if _, err := runCLI(t, cliConfig(t), "view", "--height", "0", first); err == nil {
		t.Error("expected an error for an empty screen")
	}
}
