// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Markdown style names accepted by NewMarkdownRenderer.
const (
	MarkdownAuto  = "auto"
	MarkdownDark  = "dark"
	MarkdownLight = "light"
	MarkdownNoTTY = "notty"
)

// MarkdownRenderer renders markdown for the terminal with glamour.
// Renderers are created per wrap width and reused.
type MarkdownRenderer struct {
	style string

	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
	failed    map[int]bool
}

// NewMarkdownRenderer returns a renderer for the given style. Unknown or
// empty styles fall back to auto detection.
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	style = strings.ToLower(strings.TrimSpace(style))
	switch style {
	case MarkdownDark, MarkdownLight, MarkdownNoTTY:
	default:
		style = MarkdownAuto
	}
	return &MarkdownRenderer{
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
		failed:    make(map[int]bool),
	}
}

// Style returns the resolved style name.
func (m *MarkdownRenderer) Style() string {
	return m.style
}

// Render renders content wrapped at width. The input is returned unchanged
// when glamour cannot render it.
func (m *MarkdownRenderer) Render(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}

	r := m.renderer(width)
	if r == nil {
		return content
	}

	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

func (m *MarkdownRenderer) renderer(width int) *glamour.TermRenderer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.renderers[width]; ok {
		return r
	}
	if m.failed[width] {
		return nil
	}

	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if m.style == MarkdownAuto {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(m.style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		m.failed[width] = true
		return nil
	}
	m.renderers[width] = r
	return r
}
