// Package filetree models the directory listing shown next to the editor:
// sorted lazy listings, ignore patterns, change watching and quick-open
// file search.
package filetree

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/e4code/e4/grammars"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name  string
	Path  string // absolute
	IsDir bool
}

// Parent reports whether e is the ".." entry.
func (e Entry) Parent() bool {
	return e.Name == ".."
}

// Lister lists a directory.
type Lister interface {
	List(dir string) ([]Entry, error)
}

// DefaultIgnore names entries hidden from listings and file search.
var DefaultIgnore = []string{".git", "node_modules", "vendor"}

// OSLister lists directories of the local filesystem. Directories come
// first, then files, each sorted case-insensitively.
type OSLister struct {
	ignore []glob.Glob
	parent bool
}

// ListerOption configures an OSLister.
type ListerOption func(*listerConfig)

type listerConfig struct {
	ignore []string
	parent bool
}

// WithIgnore replaces the ignore patterns. Patterns are globs matched
// against entry names, such as "*.o" or "build".
func WithIgnore(patterns ...string) ListerOption {
	return func(c *listerConfig) { c.ignore = patterns }
}

// WithParentEntry adds a ".." entry to every listing below the filesystem
// root.
func WithParentEntry(on bool) ListerOption {
	return func(c *listerConfig) { c.parent = on }
}

// NewOSLister compiles the ignore patterns. It fails on a malformed glob.
func NewOSLister(opts ...ListerOption) (*OSLister, error) {
	cfg := listerConfig{ignore: DefaultIgnore}
	for _, opt := range opts {
		opt(&cfg)
	}
	l := &OSLister{parent: cfg.parent}
	for _, p := range cfg.ignore {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", p, err)
		}
		l.ignore = append(l.ignore, g)
	}
	return l, nil
}

// Ignored reports whether an entry called name is hidden.
func (l *OSLister) Ignored(name string) bool {
	for _, g := range l.ignore {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// List returns the entries of dir.
func (l *OSLister) List(dir string) ([]Entry, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	items, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", abs, err)
	}
	entries := make([]Entry, 0, len(items)+1)
	for _, item := range items {
		if l.Ignored(item.Name()) {
			continue
		}
		isDir := item.IsDir()
		if item.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(abs, item.Name())); err == nil {
				isDir = info.IsDir()
			}
		}
		entries = append(entries, Entry{
			Name:  item.Name(),
			Path:  filepath.Join(abs, item.Name()),
			IsDir: isDir,
		})
	}
	sortEntries(entries)
	if l.parent {
		if up := filepath.Dir(abs); up != abs {
			entries = slices.Insert(entries, 0, Entry{Name: "..", Path: up, IsDir: true})
		}
	}
	return entries, nil
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return -1
			}
			return 1
		}
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// GrammarFor picks the grammar a file entry opens with. Directories are
// plain text.
func GrammarFor(e Entry) grammars.Grammar {
	if e.IsDir {
		return grammars.PlainText
	}
	return grammars.ForPath(e.Path)
}
