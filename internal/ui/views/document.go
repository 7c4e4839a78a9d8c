// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/expview/internal/export"
	"github.com/jeranaias/expview/internal/router"
)

// DocumentBodyField holds the document text, rendered as Markdown.
const DocumentBodyField = "doc"

// Document shows one document.
type Document struct {
	env *Env
	id  string

	vp    viewport.Model
	cache mdCache
}

// NewDocument creates the document view.
func NewDocument(env *Env) *Document {
	d := &Document{env: env, vp: viewport.New(80, 20)}
	return d
}

// Title implements View.
func (d *Document) Title() string { return "Document" }

// Capturing implements View.
func (d *Document) Capturing() bool { return false }

// Enter implements View. The document is fetched on every entry.
func (d *Document) Enter(loc router.Location) tea.Cmd {
	id := loc.Param("document_id")
	if id != d.id {
		d.vp.GotoTop()
	}
	d.id = id
	return d.refresh()
}

func (d *Document) refresh() tea.Cmd {
	docs := d.env.Stores.Document
	ctx := d.env.ctx()
	id := d.id
	return runAction("document", "", func() error { return docs.FetchDocument(ctx, id) })
}

// SetSize implements View.
func (d *Document) SetSize(width, height int) {
	d.vp.Width = width
	d.vp.Height = max(1, height)
}

// Hints implements View.
func (d *Document) Hints() []key.Binding {
	k := d.env.Keys
	return []key.Binding{k.Up, k.Down, k.PageDown, k.Retry, k.Back}
}

// Update implements View.
func (d *Document) Update(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, d.env.Keys.Retry) {
		return d.refresh()
	}
	var cmd tea.Cmd
	d.vp, cmd = d.vp.Update(msg)
	return cmd
}

// View implements View.
func (d *Document) View() string {
	ref := d.env.Stores.Document.Ref()
	st := ref.Get()

	if st.Record == nil || st.RecordID != d.id {
		if st.Err != nil && !st.Loading {
			return errorLine(st.Err, "press r to retry")
		}
		return loadingLine(d.env, "Loading document "+d.id)
	}

	width := contentWidth(d.vp.Width)
	out := d.cache.render(d.env.Markdown, ref.Version(), d.id, width, func() string {
		title := st.Record.Title()
		if title == "" {
			title = d.id
		}
		return export.RecordMarkdown(title, st.Record, DocumentBodyField)
	})
	d.vp.SetContent(out)

	view := d.vp.View()
	if st.Err != nil {
		view = errorLine(st.Err, "showing the last loaded copy") + "\n" + view
	}
	return view
}
