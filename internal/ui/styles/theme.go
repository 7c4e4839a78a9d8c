// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles shared by all views.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// Header
	Header    lipgloss.Style
	Brand     lipgloss.Style
	Tab       lipgloss.Style
	TabActive lipgloss.Style

	// Content
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Section  lipgloss.Style

	// Lists
	ListItem     lipgloss.Style
	ListSelected lipgloss.Style
	ListMarker   lipgloss.Style

	// Panels
	Panel        lipgloss.Style
	PanelFocused lipgloss.Style

	// Form
	InputLabel        lipgloss.Style
	InputLabelFocused lipgloss.Style
	Choice            lipgloss.Style
	ChoiceActive      lipgloss.Style

	// Comments
	CommentMeta lipgloss.Style
	CommentText lipgloss.Style

	// Status bar
	StatusBar  lipgloss.Style
	StatusKey  lipgloss.Style
	StatusDesc lipgloss.Style

	Spinner lipgloss.Style
}

// NewTheme creates a theme. mode is "dark", "light" or "auto".
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(mode) {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{IsDark: isDark, ColorProfile: profile}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.Brand = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		MarginRight(2)

	t.Tab = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 1)

	t.TabActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Purple).
		Padding(0, 1)

	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		MarginBottom(1)

	t.Subtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.Label = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)

	t.Value = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Section = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		MarginTop(1)

	t.ListItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(2)

	t.ListSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true).
		PaddingLeft(2)

	t.ListMarker = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.PanelFocused = t.Panel.
		BorderForeground(Purple)

	t.InputLabel = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Width(18)

	t.InputLabelFocused = t.InputLabel.
		Foreground(Purple).
		Bold(true)

	t.Choice = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ChoiceActive = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Cyan).
		Padding(0, 1)

	t.CommentMeta = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.CommentText = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(2)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceBright).
		Padding(0, 1)

	t.StatusKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.StatusDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)
}

// SetSize updates the layout dimensions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// LayoutMode is the responsive layout tier.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)

// GetLayoutMode returns the layout tier for the current width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}
