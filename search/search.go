// Package search finds and replaces literal text or regular expressions in
// editor documents.
package search

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/golang/groupcache/lru"
	"pkt.systems/pslog"

	"github.com/e4code/e4/editor"
	"github.com/e4code/e4/internal/logx"
)

var (
	// ErrInvalidRegex reports a pattern that does not compile.
	ErrInvalidRegex = errors.New("invalid regular expression")
	// ErrEmptyPattern reports a search for the empty string.
	ErrEmptyPattern = errors.New("empty search pattern")
	// ErrNotAMatch reports a replace of a range the pattern does not match.
	ErrNotAMatch = errors.New("range is not a match")
)

const (
	// DefaultRegexTimeout bounds a single regular expression scan.
	DefaultRegexTimeout = 2 * time.Second
	// DefaultCacheSize is how many compiled patterns an Engine keeps.
	DefaultCacheSize = 32
)

// Direction selects which way Find scans from its starting offset.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Options control how a pattern matches.
type Options struct {
	Regex     bool // pattern is a regular expression
	MatchCase bool // case-sensitive matching
	WholeWord bool // matches may not touch a word character on either side
	Wrap      bool // Find continues from the other end of the document
}

// Document is an editable text the engine can replace into. Session
// implements it.
type Document interface {
	Snapshot() editor.Snapshot
	Edit(op editor.EditOp) error
}

// Engine runs searches. It caches compiled patterns and is safe for
// concurrent use.
type Engine struct {
	mu      sync.Mutex
	cache   *lru.Cache
	timeout time.Duration
	log     pslog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegexTimeout bounds each regular expression scan. Zero or less keeps
// the default.
func WithRegexTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithCacheSize sets how many compiled patterns are kept.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cache = lru.New(n)
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger pslog.Logger) Option {
	return func(e *Engine) { e.log = logger }
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		cache:   lru.New(DefaultCacheSize),
		timeout: DefaultRegexTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logx.Or(e.log)
	return e
}

// hit is one match. groups holds the regexp2 match the replacement groups
// are read from; it is nil for literal matches.
type hit struct {
	editor.Range
	groups *regexp2.Match
}

// matcher yields every non-overlapping match of a compiled pattern in text,
// in ascending order.
type matcher interface {
	matches(text string) ([]hit, error)
	expand(h hit, replacement string) string
}

func (e *Engine) compile(pattern string, opts Options) (matcher, error) {
	if pattern == "" {
		return nil, ErrEmptyPattern
	}
	key := cacheKey{pattern: pattern, regex: opts.Regex, matchCase: opts.MatchCase, wholeWord: opts.WholeWord}
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.cache.Get(key); ok {
		return m.(matcher), nil
	}
	var (
		m   matcher
		err error
	)
	if opts.Regex {
		m, err = compileRegex(pattern, opts, e.timeout)
	} else {
		m = compileLiteral(pattern, opts)
	}
	if err != nil {
		e.log.Debug("pattern rejected", "pattern", pattern, "err", err)
		return nil, err
	}
	e.cache.Add(key, m)
	return m, nil
}

type cacheKey struct {
	pattern   string
	regex     bool
	matchCase bool
	wholeWord bool
}

func (e *Engine) all(doc editor.Snapshot, pattern string, opts Options) (string, matcher, []hit, error) {
	m, err := e.compile(pattern, opts)
	if err != nil {
		return "", nil, nil, err
	}
	text := doc.Text()
	found, err := m.matches(text)
	if err != nil {
		return "", nil, nil, fmt.Errorf("search %q: %w", pattern, err)
	}
	return text, m, found, nil
}

// FindAll returns every non-overlapping match of pattern in doc.
func (e *Engine) FindAll(doc editor.Snapshot, pattern string, opts Options) ([]editor.Range, error) {
	_, _, found, err := e.all(doc, pattern, opts)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	out := make([]editor.Range, len(found))
	for i, h := range found {
		out[i] = h.Range
	}
	return out, nil
}

// Find returns the next match from offset from in direction dir. Forward
// matches start at or after from; backward matches end at or before it. An
// empty match exactly at from is skipped so repeated calls make progress.
// With Wrap set a search that runs off the end restarts from the other end.
func (e *Engine) Find(doc editor.Snapshot, pattern string, opts Options, from int, dir Direction) (editor.Range, bool, error) {
	_, _, found, err := e.all(doc, pattern, opts)
	if err != nil || len(found) == 0 {
		return editor.Range{}, false, err
	}
	if dir == Backward {
		for i := len(found) - 1; i >= 0; i-- {
			r := found[i].Range
			if r.End < from || r.End == from && r.Len() > 0 {
				return r, true, nil
			}
		}
		if opts.Wrap {
			return found[len(found)-1].Range, true, nil
		}
		return editor.Range{}, false, nil
	}
	for _, h := range found {
		if r := h.Range; r.Start > from || r.Start == from && r.Len() > 0 {
			return r, true, nil
		}
	}
	if opts.Wrap {
		return found[0].Range, true, nil
	}
	return editor.Range{}, false, nil
}

// Replace returns the op replacing the match r of pattern with replacement.
// For regular expressions replacement may reference groups as $1, ${name},
// $& for the whole match and $$ for a literal dollar. The op is not applied.
// It fails with ErrNotAMatch when r is not currently a match.
func (e *Engine) Replace(doc editor.Snapshot, pattern string, r editor.Range, replacement string, opts Options) (editor.EditOp, error) {
	text, m, found, err := e.all(doc, pattern, opts)
	if err != nil {
		return editor.EditOp{}, err
	}
	for _, h := range found {
		if h.Range == r {
			return replaceOp(text, m, h, replacement), nil
		}
	}
	return editor.EditOp{}, fmt.Errorf("%d-%d: %w", r.Start, r.End, ErrNotAMatch)
}

// ReplaceAll replaces every match of pattern in doc as one edit, so a single
// undo restores them all. It returns the number of replacements and the op
// that was applied.
func (e *Engine) ReplaceAll(doc Document, pattern, replacement string, opts Options) (int, editor.EditOp, error) {
	text, m, found, err := e.all(doc.Snapshot(), pattern, opts)
	if err != nil || len(found) == 0 {
		return 0, editor.EditOp{}, err
	}
	ops := make([]editor.EditOp, 0, len(found))
	for i := len(found) - 1; i >= 0; i-- {
		ops = append(ops, replaceOp(text, m, found[i], replacement))
	}
	op := editor.BatchOp(ops...)
	if err := doc.Edit(op); err != nil {
		return 0, editor.EditOp{}, err
	}
	e.log.Debug("replaced all", "pattern", pattern, "count", len(found))
	return len(found), op, nil
}

func replaceOp(text string, m matcher, h hit, replacement string) editor.EditOp {
	repl := m.expand(h, replacement)
	old := text[h.Start:h.End]
	switch {
	case old == "":
		return editor.InsertOp(h.Start, repl)
	case repl == "":
		return editor.DeleteOp(h.Start, old)
	}
	return editor.BatchOp(editor.DeleteOp(h.Start, old), editor.InsertOp(h.Start, repl))
}
