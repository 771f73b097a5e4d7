package filetree

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Match is one quick-open result.
type Match struct {
	Rel   string // slash-separated path relative to the root
	Path  string // absolute
	Score float64
}

// minScore is the lowest similarity kept for queries that are not a
// substring of the path.
const minScore = 0.7

// Finder ranks the files below a root against a typed query.
type Finder struct {
	root   string
	lister *OSLister
	metric strutil.StringMetric
	files  []Match
}

// NewFinder creates a finder over root. Directories the lister ignores are
// not walked. Call Refresh before Find.
func NewFinder(root string, lister *OSLister) *Finder {
	jw := metrics.NewJaroWinkler()
	jw.CaseSensitive = false
	return &Finder{root: filepath.Clean(root), lister: lister, metric: jw}
}

// Refresh walks the root and collects its files.
func (f *Finder) Refresh() error {
	var out []Match
	err := filepath.WalkDir(f.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != f.root && f.lister.Ignored(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			rel = path
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		out = append(out, Match{Rel: filepath.ToSlash(rel), Path: abs})
		return nil
	})
	if err != nil {
		return err
	}
	slices.SortFunc(out, func(a, b Match) int {
		return strings.Compare(strings.ToLower(a.Rel), strings.ToLower(b.Rel))
	})
	f.files = out
	return nil
}

// Files returns every collected file in path order.
func (f *Finder) Files() []Match {
	return f.files
}

// Find returns up to limit files ranked against query, best first. A file
// whose name contains the query outranks one whose path merely does; the
// rest are ranked by Jaro-Winkler similarity of the file name. An empty
// query returns files in path order. A limit of zero or less means no
// limit.
func (f *Finder) Find(query string, limit int) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	var out []Match
	if query == "" {
		out = slices.Clone(f.files)
	} else {
		for _, file := range f.files {
			if score, ok := f.score(query, file.Rel); ok {
				file.Score = score
				out = append(out, file)
			}
		}
		slices.SortStableFunc(out, func(a, b Match) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			}
			return len(a.Rel) - len(b.Rel)
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *Finder) score(query, rel string) (float64, bool) {
	lower := strings.ToLower(rel)
	base := lower[strings.LastIndexByte(lower, '/')+1:]
	sim := strutil.Similarity(query, base, f.metric)
	switch {
	case strings.Contains(base, query):
		return 2 + sim, true
	case strings.Contains(lower, query):
		return 1 + sim, true
	case sim >= minScore:
		return sim, true
	}
	return 0, false
}
