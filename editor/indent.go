package editor

import (
	"strings"
)

// indentSampleLines is how many non-blank lines DetectIndent inspects.
const indentSampleLines = 20

// DefaultIndent is used when a document shows no indentation.
const DefaultIndent = "    "

// DetectIndent looks at the first non-blank lines of doc to decide whether
// tabs or spaces are used for indentation and returns the indent unit.
// Tabs win when more lines start with a tab than with a space; otherwise the
// most frequent leading space count is used, the smaller width on a tie.
func DetectIndent(doc Snapshot) string {
	tabLines := 0
	widths := make(map[int]int)
	spaceLines := 0
	seen := 0
	doc.Lines(0, func(_ int, line string) bool {
		if strings.TrimSpace(line) == "" {
			return true
		}
		seen++
		switch line[0] {
		case '\t':
			tabLines++
		case ' ':
			spaceLines++
			widths[len(line)-len(strings.TrimLeft(line, " "))]++
		}
		return seen < indentSampleLines
	})

	if tabLines > spaceLines {
		return "\t"
	}
	best, bestCount := 0, 0
	for w, n := range widths {
		if n > bestCount || n == bestCount && w < best {
			best, bestCount = w, n
		}
	}
	if best == 0 {
		return DefaultIndent
	}
	return strings.Repeat(" ", best)
}

// ComputeIndent returns the indentation for a new line following line. It
// copies the existing indent and adds unit if the line opens a block: it
// ends with an opening bracket, or with ':' when colonBlocks is set.
func ComputeIndent(line, unit string, colonBlocks bool) string {
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	trimmed := strings.TrimRight(line, " \t\r")
	if trimmed == "" {
		return indent
	}
	switch trimmed[len(trimmed)-1] {
	case '{', '(', '[':
		return indent + unit
	case ':':
		if colonBlocks {
			return indent + unit
		}
	}
	return indent
}

// IndentOp returns one op that prefixes lines first through last with unit.
func IndentOp(doc Snapshot, first, last int, unit string) (EditOp, error) {
	if err := checkLineSpan(doc, first, last); err != nil {
		return EditOp{}, err
	}
	var ops []EditOp
	for line := last; line >= first; line-- {
		start, err := doc.LineStart(line)
		if err != nil {
			return EditOp{}, err
		}
		ops = append(ops, InsertOp(start, unit))
	}
	return BatchOp(ops...), nil
}

// OutdentOp returns one op that strips one level of indentation from lines
// first through last. A line starting with fewer spaces than unit loses the
// spaces it has.
func OutdentOp(doc Snapshot, first, last int, unit string) (EditOp, error) {
	if err := checkLineSpan(doc, first, last); err != nil {
		return EditOp{}, err
	}
	var ops []EditOp
	for line := last; line >= first; line-- {
		text := doc.lineText(line)
		start, err := doc.LineStart(line)
		if err != nil {
			return EditOp{}, err
		}
		var cut string
		switch {
		case strings.HasPrefix(text, unit):
			cut = unit
		case unit != "\t" && strings.HasPrefix(text, " "):
			n := len(text) - len(strings.TrimLeft(text, " "))
			cut = text[:min(n, len(unit))]
		}
		if cut != "" {
			ops = append(ops, DeleteOp(start, cut))
		}
	}
	return BatchOp(ops...), nil
}

func checkLineSpan(doc Snapshot, first, last int) error {
	if first < 0 || last >= doc.LineCount() || first > last {
		return lineSpanError(first, last, doc.LineCount())
	}
	return nil
}
