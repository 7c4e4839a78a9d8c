// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/expview/internal/ui/styles"
)

func items(n int) []ListItem {
	out := make([]ListItem, n)
	for i := range out {
		out[i] = ListItem{Title: "item " + string(rune('a'+i))}
	}
	return out
}

func TestListCursorClamps(t *testing.T) {
	l := NewList()
	_, ok := l.Selected()
	assert.False(t, ok, "empty list has no selection")

	l.SetItems(items(3))
	l.Up()
	assert.Equal(t, 0, l.Cursor())

	l.Down()
	l.Down()
	l.Down()
	assert.Equal(t, 2, l.Cursor())

	l.SetItems(items(1))
	idx, ok := l.Selected()
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestListScrollsWithCursor(t *testing.T) {
	theme := styles.NewTheme("dark")
	l := NewList()
	l.Height = 2
	l.SetItems(items(5))

	l.Bottom()
	view := l.View(theme, true)
	assert.Contains(t, view, "item e")
	assert.Contains(t, view, "item d")
	assert.NotContains(t, view, "item a")

	l.Top()
	view = l.View(theme, true)
	assert.Contains(t, view, "item a")
	assert.NotContains(t, view, "item c")
}

func TestListTruncatesLongTitles(t *testing.T) {
	theme := styles.NewTheme("dark")
	l := NewList()
	l.Width = 20
	l.SetItems([]ListItem{{Title: strings.Repeat("x", 100)}})

	view := l.View(theme, false)
	assert.Contains(t, view, "...")
	assert.NotContains(t, view, strings.Repeat("x", 30))
}

func TestMarkdownRendererFallsBackToAuto(t *testing.T) {
	assert.Equal(t, MarkdownAuto, NewMarkdownRenderer("").Style())
	assert.Equal(t, MarkdownAuto, NewMarkdownRenderer("neon").Style())
	assert.Equal(t, MarkdownDark, NewMarkdownRenderer(" Dark ").Style())
}

func TestMarkdownRendererRendersText(t *testing.T) {
	r := NewMarkdownRenderer(MarkdownNoTTY)

	out := r.Render("# Title\n\nsome body text", 60)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "some body text")

	assert.Empty(t, r.Render("   ", 60))

	// Same width reuses the cached renderer.
	r.Render("again", 60)
	assert.Len(t, r.renderers, 1)
}

func TestSpinnerLifecycle(t *testing.T) {
	s := NewSpinner()
	assert.False(t, s.Active())
	assert.Nil(t, s.Update(nil), "inactive spinner ignores messages")

	require.NotNil(t, s.Start())
	assert.True(t, s.Active())
	assert.Nil(t, s.Start(), "second start schedules nothing")
	assert.NotEmpty(t, s.Frame())

	s.Stop()
	assert.False(t, s.Active())
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0s", FormatElapsed(-time.Second))
	assert.Equal(t, "4s", FormatElapsed(4*time.Second))
	assert.Equal(t, "2m 05s", FormatElapsed(125*time.Second))
}

func TestStatusBarShowsMessageAndHints(t *testing.T) {
	theme := styles.NewTheme("dark")
	bar := NewStatusBar(theme)
	bar.Width = 120
	bar.SetMessage(LevelWarning, "navigation blocked")

	keys := DefaultKeyMap()
	view := bar.View([]key.Binding{keys.Home, keys.Quit})
	assert.Contains(t, view, "navigation blocked")
	assert.Contains(t, view, "home")

	level, msg := bar.Message()
	assert.Equal(t, LevelWarning, level)
	assert.Equal(t, "navigation blocked", msg)

	bar.ClearMessage()
	assert.NotContains(t, bar.View(nil), "navigation blocked")
}

func TestKeyMapHelpGroups(t *testing.T) {
	keys := DefaultKeyMap()
	assert.Len(t, keys.ShortHelp(), 4)
	for _, group := range keys.FullHelp() {
		assert.NotEmpty(t, group)
	}
	assert.True(t, key.Matches(keyMsg("H"), keys.History))
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}
