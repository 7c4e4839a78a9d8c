// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/expview/internal/ui/styles"
	"github.com/jeranaias/expview/internal/util"
)

// ListItem is one row of a List.
type ListItem struct {
	Title  string
	Detail string
}

// List is a vertically scrolling cursor list.
type List struct {
	items  []ListItem
	cursor int
	offset int

	Width  int
	Height int
}

// NewList creates an empty list.
func NewList() *List {
	return &List{Width: 80, Height: 10}
}

// SetItems replaces the rows and keeps the cursor in range.
func (l *List) SetItems(items []ListItem) {
	l.items = items
	l.clamp()
}

// Len returns the number of rows.
func (l *List) Len() int {
	return len(l.items)
}

// Cursor returns the cursor index.
func (l *List) Cursor() int {
	return l.cursor
}

// Selected returns the index under the cursor, or false for an empty list.
func (l *List) Selected() (int, bool) {
	if len(l.items) == 0 {
		return 0, false
	}
	return l.cursor, true
}

// Up moves the cursor one row up.
func (l *List) Up() {
	l.cursor--
	l.clamp()
}

// Down moves the cursor one row down.
func (l *List) Down() {
	l.cursor++
	l.clamp()
}

// Top moves the cursor to the first row.
func (l *List) Top() {
	l.cursor = 0
	l.clamp()
}

// Bottom moves the cursor to the last row.
func (l *List) Bottom() {
	l.cursor = len(l.items) - 1
	l.clamp()
}

func (l *List) clamp() {
	if l.cursor >= len(l.items) {
		l.cursor = len(l.items) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}

	h := l.visibleRows()
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+h {
		l.offset = l.cursor - h + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

func (l *List) visibleRows() int {
	if l.Height < 1 {
		return 1
	}
	return l.Height
}

// View renders the visible window of rows.
func (l *List) View(theme *styles.Theme, focused bool) string {
	if len(l.items) == 0 {
		return ""
	}

	width := l.Width
	if width < 10 {
		width = 10
	}

	end := l.offset + l.visibleRows()
	if end > len(l.items) {
		end = len(l.items)
	}

	var b strings.Builder
	for i := l.offset; i < end; i++ {
		item := l.items[i]
		title := util.TruncateWidth(util.FirstLine(item.Title), width-2)
		line := title
		if rest := width - 4 - runewidth.StringWidth(title); item.Detail != "" && rest > 3 {
			line += "  " + theme.Muted.Render(util.TruncateWidth(util.FirstLine(item.Detail), rest))
		}

		if i == l.cursor && focused {
			b.WriteString(theme.ListMarker.Render(">") + " " + theme.ListSelected.Render(line))
		} else if i == l.cursor {
			b.WriteString(theme.ListMarker.Render(">") + " " + theme.ListItem.Render(line))
		} else {
			b.WriteString("  " + theme.ListItem.Render(line))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
