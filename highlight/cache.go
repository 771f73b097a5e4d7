// Package highlight keeps per-line tokenizer output for a document and
// re-tokenizes only what edits invalidate.
package highlight

import (
	"errors"
	"slices"

	"github.com/e4code/e4/grammars"
)

// ErrStaleResult reports a background result whose lines changed after the
// job was taken. The lines stay dirty and are picked up by the next job.
var ErrStaleResult = errors.New("stale highlight result")

// LineSource is the read access the cache needs to a document.
type LineSource interface {
	LineCount() int
	LineAt(index int) (string, error)
}

type lineEntry struct {
	in     grammars.LineState
	out    grammars.LineState
	tokens []grammars.Token
	rev    uint64
	dirty  bool
	valid  bool // tokens have been computed
	known  bool // out holds a previous output state to compare against
}

// Cache stores, per line, the state the line starts in, its tokens, the
// state it ends in and whether it needs re-tokenizing.
//
// For every clean line, tokenizing its text from its cached input state
// reproduces its cached tokens and output state.
type Cache struct {
	grammar grammars.Grammar
	lines   []*lineEntry
	pending []int
	sorted  bool
	rev     uint64
}

// NewCache creates a cache for a document of lineCount lines, all dirty.
func NewCache(g grammars.Grammar, lineCount int) *Cache {
	c := &Cache{grammar: g}
	c.Reset(lineCount)
	return c
}

// Grammar returns the grammar lines are tokenized with.
func (c *Cache) Grammar() grammars.Grammar {
	return c.grammar
}

// SetGrammar switches grammar and marks every line dirty.
func (c *Cache) SetGrammar(g grammars.Grammar) {
	c.grammar = g
	c.Reset(len(c.lines))
}

// Reset drops all cached output for a document of lineCount lines.
func (c *Cache) Reset(lineCount int) {
	c.lines = make([]*lineEntry, lineCount)
	c.pending = c.pending[:0]
	for i := range c.lines {
		c.lines[i] = c.newEntry()
		c.pending = append(c.pending, i)
	}
	c.sorted = true
}

func (c *Cache) newEntry() *lineEntry {
	c.rev++
	return &lineEntry{rev: c.rev, dirty: true}
}

// Len returns the number of lines tracked.
func (c *Cache) Len() int {
	return len(c.lines)
}

func (c *Cache) markDirty(line int) {
	if line < 0 || line >= len(c.lines) {
		return
	}
	e := c.lines[line]
	if e.dirty {
		return
	}
	e.dirty = true
	if n := len(c.pending); n > 0 && c.pending[n-1] > line {
		c.sorted = false
	}
	c.pending = append(c.pending, line)
}

// Invalidate marks line dirty because its text changed.
func (c *Cache) Invalidate(line int) {
	if line < 0 || line >= len(c.lines) {
		return
	}
	c.rev++
	c.lines[line].rev = c.rev
	c.markDirty(line)
}

// Splice replaces removed lines starting at line with added fresh, dirty
// lines. It is called when an edit changes the number of lines.
func (c *Cache) Splice(line, removed, added int) {
	if line < 0 || line > len(c.lines) {
		return
	}
	removed = min(removed, len(c.lines)-line)
	fresh := make([]*lineEntry, added)
	for i := range fresh {
		fresh[i] = c.newEntry()
	}
	// The last new line ends with the text that ended the last removed
	// line, so its old output state is the one to compare against.
	if added > 0 && removed > 0 {
		if old := c.lines[line+removed-1]; old.known {
			fresh[added-1].out, fresh[added-1].known = old.out, true
		}
	}
	c.lines = slices.Replace(c.lines, line, line+removed, fresh...)

	delta := added - removed
	kept := c.pending[:0]
	for _, p := range c.pending {
		switch {
		case p < line:
			kept = append(kept, p)
		case p >= line+removed:
			kept = append(kept, p+delta)
		}
	}
	c.pending = kept
	for i := line; i < line+added; i++ {
		c.pending = append(c.pending, i)
	}
	c.sorted = false
	if added == 0 {
		c.markDirty(line)
	}
}

// Dirty reports whether line needs re-tokenizing.
func (c *Cache) Dirty(line int) bool {
	if line < 0 || line >= len(c.lines) {
		return false
	}
	return c.lines[line].dirty
}

// DirtyCount returns the number of dirty lines.
func (c *Cache) DirtyCount() int {
	c.compact()
	return len(c.pending)
}

// compact sorts pending, drops duplicates and lines that are no longer dirty.
func (c *Cache) compact() {
	if !c.sorted {
		slices.Sort(c.pending)
		c.sorted = true
	}
	kept := c.pending[:0]
	for i, p := range c.pending {
		if i > 0 && p == c.pending[i-1] {
			continue
		}
		if p < len(c.lines) && c.lines[p].dirty {
			kept = append(kept, p)
		}
	}
	c.pending = kept
}

// firstDirty returns the lowest dirty line, or -1.
func (c *Cache) firstDirty() int {
	c.compact()
	if len(c.pending) == 0 {
		return -1
	}
	return c.pending[0]
}

func (c *Cache) stateBefore(line int) grammars.LineState {
	if line == 0 {
		return grammars.Initial
	}
	return c.lines[line-1].out
}

// store records the output for line and propagates a changed output state
// to the next line.
func (c *Cache) store(line int, in grammars.LineState, toks []grammars.Token, out grammars.LineState) {
	e := c.lines[line]
	changed := !e.known || e.out != out
	e.in, e.tokens, e.out = in, toks, out
	e.dirty, e.valid, e.known = false, true, true
	if line+1 < len(c.lines) && (changed || !c.lines[line+1].valid) {
		c.markDirty(line + 1)
	}
}

// EnsureUpToDate re-tokenizes every dirty line and returns, in ascending
// order, the lines actually recomputed.
func (c *Cache) EnsureUpToDate(src LineSource) []int {
	return c.ensureThrough(src, len(c.lines)-1)
}

// ensureThrough re-tokenizes dirty lines up to and including last.
func (c *Cache) ensureThrough(src LineSource, last int) []int {
	var recomputed []int
	for {
		line := c.firstDirty()
		if line < 0 || line > last {
			return recomputed
		}
		text, err := src.LineAt(line)
		if err != nil {
			// The source is shorter than the cache; the caller has not
			// reported a splice yet.
			return recomputed
		}
		in := c.stateBefore(line)
		toks, out := grammars.Tokenize(c.grammar, text, in)
		c.store(line, in, toks, out)
		recomputed = append(recomputed, line)
	}
}

// Tokens returns the tokens of line, first bringing every line up to it up
// to date.
func (c *Cache) Tokens(src LineSource, line int) []grammars.Token {
	if line < 0 || line >= len(c.lines) {
		return nil
	}
	c.ensureThrough(src, line)
	return c.lines[line].tokens
}

// Cached returns the stored output of line without recomputing it.
func (c *Cache) Cached(line int) (toks []grammars.Token, in, out grammars.LineState, dirty bool) {
	if line < 0 || line >= len(c.lines) {
		return nil, grammars.Initial, grammars.Initial, false
	}
	e := c.lines[line]
	return e.tokens, e.in, e.out, e.dirty
}
