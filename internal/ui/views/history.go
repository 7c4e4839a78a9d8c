// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/expview/internal/api"
	"github.com/jeranaias/expview/internal/router"
	"github.com/jeranaias/expview/internal/store"
	"github.com/jeranaias/expview/internal/ui/components"
)

// History lists past experiments.
type History struct {
	env  *Env
	list *components.List

	width, height int
}

// NewHistory creates the history view.
func NewHistory(env *Env) *History {
	h := &History{env: env, list: components.NewList()}
	h.SetSize(80, 24)
	return h
}

// Title implements View.
func (h *History) Title() string { return "History" }

// Enter implements View.
func (h *History) Enter(router.Location) tea.Cmd {
	h.env.Stores.Experiments.Items()
	return nil
}

// Capturing implements View.
func (h *History) Capturing() bool { return false }

// SetSize implements View.
func (h *History) SetSize(width, height int) {
	h.width, h.height = width, height
	h.list.Width = width - 2
	h.list.Height = max(3, height-3)
}

// Hints implements View.
func (h *History) Hints() []key.Binding {
	k := h.env.Keys
	return []key.Binding{k.Up, k.Down, k.Select, k.Retry}
}

// Update implements View.
func (h *History) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	k := h.env.Keys
	exps := h.sync()
	switch {
	case key.Matches(keyMsg, k.Up):
		h.list.Up()
	case key.Matches(keyMsg, k.Down):
		h.list.Down()
	case key.Matches(keyMsg, k.Top):
		h.list.Top()
	case key.Matches(keyMsg, k.Bottom):
		h.list.Bottom()
	case key.Matches(keyMsg, k.Select):
		if idx, ok := h.list.Selected(); ok && idx < len(exps) {
			if id := exps[idx].ExperimentID(); id != "" {
				return Navigate(router.ExperimentPath(id))
			}
		}
	case key.Matches(keyMsg, k.Retry):
		if h.env.Stores.Experiments.Retry() {
			return Status(components.LevelInfo, "Reloading experiments")
		}
	}
	return nil
}

func (h *History) sync() []api.Record {
	exps := h.env.Stores.Experiments.State().Items
	rows := make([]components.ListItem, len(exps))
	for i, e := range exps {
		rows[i] = components.ListItem{
			Title:  e.Title(),
			Detail: strings.TrimSpace(e.First("model", "pipeline") + " " + e.String("created_at")),
		}
	}
	h.list.SetItems(rows)
	return exps
}

// View implements View.
func (h *History) View() string {
	t := h.env.Theme
	st := h.env.Stores.Experiments.State()
	exps := h.sync()

	var b strings.Builder
	b.WriteString(t.Title.Render("Experiments"))
	if len(exps) > 0 {
		b.WriteString("  " + t.Muted.Render(plural(len(exps), "experiment", "experiments")))
	}
	b.WriteString("\n\n")

	switch {
	case st.Status == store.StatusLoading || st.Status == store.StatusUnfetched:
		b.WriteString(loadingLine(h.env, "Loading experiments"))
	case st.Status == store.StatusFailed && len(exps) == 0:
		b.WriteString(errorLine(st.Err, "press r to retry"))
	case len(exps) == 0:
		b.WriteString(t.Muted.Render("No experiments yet"))
	default:
		b.WriteString(h.list.View(t, true))
	}
	return b.String()
}
