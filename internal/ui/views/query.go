// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/expview/internal/export"
	"github.com/jeranaias/expview/internal/router"
	"github.com/jeranaias/expview/internal/ui/components"
)

// QueryResponse shows the progress and result of the latest model query.
type QueryResponse struct {
	env   *Env
	vp    viewport.Model
	cache mdCache

	// now is replaceable in tests.
	now func() time.Time
}

// NewQueryResponse creates the query response view.
func NewQueryResponse(env *Env) *QueryResponse {
	return &QueryResponse{env: env, vp: viewport.New(80, 20), now: time.Now}
}

// Title implements View.
func (q *QueryResponse) Title() string { return "Response" }

// Capturing implements View.
func (q *QueryResponse) Capturing() bool { return false }

// Enter implements View.
func (q *QueryResponse) Enter(router.Location) tea.Cmd {
	q.vp.GotoTop()
	return nil
}

// SetSize implements View.
func (q *QueryResponse) SetSize(width, height int) {
	q.vp.Width = width
	q.vp.Height = max(1, height)
}

// Hints implements View.
func (q *QueryResponse) Hints() []key.Binding {
	k := q.env.Keys
	return []key.Binding{k.Up, k.Down, k.PageDown, k.Home, k.Back}
}

// Update implements View.
func (q *QueryResponse) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	q.vp, cmd = q.vp.Update(msg)
	return cmd
}

// View implements View.
func (q *QueryResponse) View() string {
	ref := q.env.Stores.Query.Ref()
	st := ref.Get()
	t := q.env.Theme

	if st.Querying {
		line := fmt.Sprintf("Querying %s with the %s pipeline", st.Query.Model, st.Query.Pipeline)
		if !st.SubmittedAt.IsZero() {
			line += " (" + components.FormatElapsed(q.now().Sub(st.SubmittedAt)) + ")"
		}
		return loadingLine(q.env, line)
	}

	if st.Response == nil {
		if st.Err != nil {
			return errorLine(st.Err, "press h to edit the query")
		}
		return t.Muted.Render("No query submitted yet. Press h to build one.")
	}

	width := contentWidth(q.vp.Width)
	out := q.cache.render(q.env.Markdown, ref.Version(), "", width, func() string {
		md := export.QueryMarkdown(st.Query) + "\n" + export.ResponseMarkdown(st.Response)
		if st.Elapsed > 0 {
			md += fmt.Sprintf("\n_answered in %s_\n", components.FormatElapsed(st.Elapsed))
		}
		return md
	})
	q.vp.SetContent(out)

	view := q.vp.View()
	if st.Err != nil {
		view = errorLine(st.Err, "showing the previous response") + "\n" + view
	}
	return view
}
