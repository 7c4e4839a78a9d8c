// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/expview/internal/ui/styles"
	"github.com/jeranaias/expview/internal/util"
)

// Level classifies a status bar message.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// StatusBar is the one-line bar at the bottom of the screen: an optional
// message on the left and key hints on the right.
type StatusBar struct {
	Width int

	message string
	level   Level
	busy    string

	help  help.Model
	theme *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	h := help.New()
	h.ShortSeparator = "  "
	h.Styles.ShortKey = theme.StatusKey
	h.Styles.ShortDesc = theme.StatusDesc
	h.Styles.ShortSeparator = theme.StatusDesc
	return &StatusBar{Width: 80, help: h, theme: theme}
}

// SetMessage shows msg until it is replaced or cleared.
func (s *StatusBar) SetMessage(level Level, msg string) {
	s.level = level
	s.message = msg
}

// ClearMessage removes the message.
func (s *StatusBar) ClearMessage() {
	s.message = ""
}

// Message returns the current message and its level.
func (s *StatusBar) Message() (Level, string) {
	return s.level, s.message
}

// SetBusy shows an activity indicator such as a spinner frame. Empty hides it.
func (s *StatusBar) SetBusy(indicator string) {
	s.busy = indicator
}

// View renders the bar with the given key hints.
func (s *StatusBar) View(hints []key.Binding) string {
	width := s.Width
	if width < 20 {
		width = 20
	}

	left := ""
	if s.busy != "" {
		left = s.theme.Spinner.Render(s.busy) + " "
	}
	if s.message != "" {
		msg := util.TruncateWidth(util.FirstLine(s.message), width/2)
		switch s.level {
		case LevelSuccess:
			left += styles.RenderSuccess(msg)
		case LevelWarning:
			left += styles.RenderWarning(msg)
		case LevelError:
			left += styles.RenderError(msg)
		default:
			left += styles.RenderInfo(msg)
		}
	}

	s.help.Width = width - lipgloss.Width(left) - 2
	right := s.help.ShortHelpView(hints)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	line := left + lipgloss.NewStyle().Width(gap).Render("") + right
	return s.theme.StatusBar.Width(width).Render(line)
}
