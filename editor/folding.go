package editor

import (
	"slices"
	"strings"

	"github.com/e4code/e4/grammars"
	"github.com/e4code/e4/highlight"
)

// FoldRegion is a foldable run of lines. StartLine stays visible when the
// region is folded.
type FoldRegion struct {
	StartLine int
	EndLine   int
	Folded    bool
}

// FoldState tracks which regions are folded.
type FoldState struct {
	regions []FoldRegion
}

// NewFoldState creates an empty fold state.
func NewFoldState() *FoldState {
	return &FoldState{}
}

// SetRegions replaces the regions, keeping regions folded whose start line
// was folded before.
func (fs *FoldState) SetRegions(regions []FoldRegion) {
	folded := make(map[int]bool)
	for _, r := range fs.regions {
		if r.Folded {
			folded[r.StartLine] = true
		}
	}
	for i := range regions {
		regions[i].Folded = regions[i].Folded || folded[regions[i].StartLine]
	}
	fs.regions = regions
}

// Regions returns all fold regions ordered by start line.
func (fs *FoldState) Regions() []FoldRegion {
	return fs.regions
}

// Toggle folds or unfolds the region starting at line.
func (fs *FoldState) Toggle(line int) bool {
	for i, r := range fs.regions {
		if r.StartLine == line {
			fs.regions[i].Folded = !r.Folded
			return true
		}
	}
	return false
}

// SetAll folds or unfolds every region.
func (fs *FoldState) SetAll(folded bool) {
	for i := range fs.regions {
		fs.regions[i].Folded = folded
	}
}

// IsLineHidden reports whether line is inside a folded region.
func (fs *FoldState) IsLineHidden(line int) bool {
	for _, r := range fs.regions {
		if r.Folded && line > r.StartLine && line <= r.EndLine {
			return true
		}
	}
	return false
}

// VisibleLines returns the indices of lines not hidden by folds.
func (fs *FoldState) VisibleLines(totalLines int) []int {
	visible := make([]int, 0, totalLines)
	for i := 0; i < totalLines; i++ {
		if !fs.IsLineHidden(i) {
			visible = append(visible, i)
		}
	}
	return visible
}

// DetectFoldRegions derives fold regions from tokenized lines. Brackets
// are taken from Punctuation tokens only, so delimiters in strings and
// comments do not open regions. Python additionally folds indented blocks
// introduced by a line ending in ':'. Regions span at least three lines.
func DetectFoldRegions(doc Snapshot, cache *highlight.Cache) []FoldRegion {
	if cache == nil || cache.Grammar() == grammars.PlainText || cache.Len() != doc.LineCount() {
		return nil
	}
	var regions []FoldRegion
	var stack []int
	doc.Lines(0, func(index int, text string) bool {
		for _, tok := range cache.Tokens(doc, index) {
			if tok.Category != grammars.Punctuation || tok.Len() != 1 {
				continue
			}
			switch text[tok.Start] {
			case '{', '[', '(':
				stack = append(stack, index)
			case '}', ']', ')':
				if len(stack) == 0 {
					continue
				}
				start := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if index-start >= 2 {
					regions = append(regions, FoldRegion{StartLine: start, EndLine: index})
				}
			}
		}
		return true
	})
	if cache.Grammar() == grammars.Python {
		regions = append(regions, indentBlocks(doc, cache)...)
	}
	slices.SortFunc(regions, func(a, b FoldRegion) int {
		if a.StartLine != b.StartLine {
			return a.StartLine - b.StartLine
		}
		return b.EndLine - a.EndLine
	})
	return slices.CompactFunc(regions, func(a, b FoldRegion) bool {
		return a.StartLine == b.StartLine
	})
}

// indentBlocks finds blocks opened by a trailing ':' that continue while
// lines are blank or indented deeper than the opener.
func indentBlocks(doc Snapshot, cache *highlight.Cache) []FoldRegion {
	type opener struct{ line, depth int }
	var regions []FoldRegion
	var open []opener
	lastContent := -1
	closeTo := func(depth int) {
		for len(open) > 0 && open[len(open)-1].depth >= depth {
			o := open[len(open)-1]
			open = open[:len(open)-1]
			if lastContent-o.line >= 2 {
				regions = append(regions, FoldRegion{StartLine: o.line, EndLine: lastContent})
			}
		}
	}
	doc.Lines(0, func(index int, text string) bool {
		if strings.TrimSpace(text) == "" {
			return true
		}
		toks := cache.Tokens(doc, index)
		_, in, _, _ := cache.Cached(index)
		if in.InsideString() {
			lastContent = index
			return true
		}
		depth := len(text) - len(strings.TrimLeft(text, " \t"))
		closeTo(depth)
		lastContent = index
		if endsWithColon(text, toks) {
			open = append(open, opener{line: index, depth: depth})
		}
		return true
	})
	closeTo(0)
	return regions
}

func endsWithColon(text string, toks []grammars.Token) bool {
	for i := len(toks) - 1; i >= 0; i-- {
		tok := toks[i]
		switch {
		case tok.Category == grammars.Comment:
			continue
		case tok.Category == grammars.Plain && strings.TrimSpace(tok.Text(text)) == "":
			continue
		}
		return tok.Category == grammars.Punctuation && tok.Text(text) == ":"
	}
	return false
}
