package editor

import (
	"fmt"

	"github.com/mattn/go-runewidth"

	"github.com/e4code/e4/grammars"
)

// Status is the cursor readout shown in a status bar. Line and Column are
// 1-based; Column counts characters while VisualColumn counts terminal
// cells with tabs expanded.
type Status struct {
	Line         int
	Column       int
	VisualColumn int
	Lines        int
	Dirty        bool
	Grammar      grammars.Grammar
}

func (st Status) String() string {
	return fmt.Sprintf("Ln %d, Col %d", st.Line, st.Column)
}

// visualWidth returns the cell width of text with tabs expanded to stops
// every tabWidth cells.
func visualWidth(text string, tabWidth int) int {
	if tabWidth <= 0 {
		tabWidth = DefaultTabWidth
	}
	w := 0
	for _, r := range text {
		if r == '\t' {
			w += tabWidth - w%tabWidth
			continue
		}
		w += runewidth.RuneWidth(r)
	}
	return w
}
