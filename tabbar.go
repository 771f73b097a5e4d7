package main

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/e4code/e4/editor"
)

// tabSeparator is drawn between adjacent tabs.
const tabSeparator = "│"

// tabLabel builds " title* " or " title ".
func tabLabel(tab editor.TabInfo) string {
	label := " " + tab.Title
	if tab.Dirty {
		label += "*"
	}
	return label + " "
}

// renderTabBar lays the tabs out on one row of width cells. The active tab
// is wrapped in brackets in place of its padding. Labels that do not fit
// are truncated and the row is padded with spaces.
func renderTabBar(tabs []editor.TabInfo, width int) string {
	if width <= 0 {
		return ""
	}
	var b strings.Builder
	for i, tab := range tabs {
		label := tabLabel(tab)
		if tab.Active {
			label = "[" + label[1:len(label)-1] + "]"
		}
		b.WriteString(label)
		if i < len(tabs)-1 {
			b.WriteString(tabSeparator)
		}
	}
	row := runewidth.Truncate(b.String(), width, "…")
	return runewidth.FillRight(row, width)
}

// tabAtX returns the tab index at cell px, or -1.
func tabAtX(tabs []editor.TabInfo, px int) int {
	x := 0
	for i, tab := range tabs {
		w := runewidth.StringWidth(tabLabel(tab))
		if px >= x && px < x+w {
			return i
		}
		x += w
		if i < len(tabs)-1 {
			x += runewidth.StringWidth(tabSeparator)
		}
	}
	return -1
}
