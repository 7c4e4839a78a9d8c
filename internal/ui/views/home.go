// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/expview/internal/api"
	"github.com/jeranaias/expview/internal/router"
	"github.com/jeranaias/expview/internal/store"
	"github.com/jeranaias/expview/internal/ui/components"
	"github.com/jeranaias/expview/internal/ui/styles"
	"github.com/jeranaias/expview/internal/util"
)

type homeFocus int

const (
	focusDocuments homeFocus = iota
	focusModel
	focusPipeline
	focusQuestion
	focusRefine
	homeFocusCount
)

// Home lists the documents and holds the query form.
type Home struct {
	env   *Env
	list  *components.List
	focus homeFocus

	model    textinput.Model
	question textinput.Model
	refine   textinput.Model

	pipelines []string
	pipeline  int

	// Selected document, by id.
	docID    string
	docTitle string

	width, height int
}

// NewHome creates the home view.
func NewHome(env *Env) *Home {
	h := &Home{
		env:       env,
		list:      components.NewList(),
		pipelines: env.Pipelines,
	}
	if len(h.pipelines) == 0 {
		h.pipelines = store.DefaultPipelines
	}
	for i, p := range h.pipelines {
		if p == env.DefaultPipeline {
			h.pipeline = i
		}
	}

	h.model = newInput("model name", 128)
	h.model.SetValue(env.DefaultModel)
	h.question = newInput("question prompt", 4096)
	h.refine = newInput("refine prompt", 4096)
	h.SetSize(80, 24)
	return h
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	return ti
}

// Title implements View.
func (h *Home) Title() string { return "Home" }

// Enter implements View. The first entry starts the lazy documents fetch.
func (h *Home) Enter(router.Location) tea.Cmd {
	h.env.Stores.Documents.Items()
	return nil
}

// Capturing implements View.
func (h *Home) Capturing() bool {
	switch h.focus {
	case focusModel, focusQuestion, focusRefine:
		return true
	}
	return false
}

// SetSize implements View.
func (h *Home) SetSize(width, height int) {
	h.width, h.height = width, height

	listW, formW := h.columns()
	h.list.Width = listW - 4
	h.list.Height = max(3, height-6)
	if h.stacked() {
		h.list.Height = max(3, height/2-4)
	}
	inputW := max(10, formW-6)
	h.model.Width = inputW
	h.question.Width = inputW
	h.refine.Width = inputW
}

func (h *Home) stacked() bool {
	return h.width < 100
}

func (h *Home) columns() (int, int) {
	if h.stacked() {
		return h.width, h.width
	}
	left := h.width * 2 / 5
	return left, h.width - left
}

// Selected returns the document chosen for the query.
func (h *Home) Selected() (id, title string) {
	return h.docID, h.docTitle
}

// Hints implements View.
func (h *Home) Hints() []key.Binding {
	k := h.env.Keys
	if h.focus == focusDocuments {
		return []key.Binding{k.Select, k.Open, k.NextField, k.Submit, k.Retry}
	}
	return []key.Binding{k.NextField, k.PrevField, k.Submit, k.Back}
}

// Params returns the query parameters the form currently describes.
func (h *Home) Params() api.QueryParams {
	return api.QueryParams{
		Model:          strings.TrimSpace(h.model.Value()),
		Pipeline:       h.pipelines[h.pipeline],
		QuestionPrompt: h.question.Value(),
		RefinePrompt:   h.refine.Value(),
		Document:       h.docID,
	}
}

// Update implements View.
func (h *Home) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return h.updateInput(msg)
	}

	k := h.env.Keys
	switch {
	case key.Matches(keyMsg, k.Submit):
		return h.submit()
	case key.Matches(keyMsg, k.NextField):
		h.setFocus((h.focus + 1) % homeFocusCount)
		return nil
	case key.Matches(keyMsg, k.PrevField):
		h.setFocus((h.focus + homeFocusCount - 1) % homeFocusCount)
		return nil
	}

	switch h.focus {
	case focusDocuments:
		return h.updateDocuments(keyMsg)
	case focusPipeline:
		return h.updatePipeline(keyMsg)
	}

	// Text fields.
	switch keyMsg.Type {
	case tea.KeyEsc:
		h.setFocus(focusDocuments)
		return nil
	case tea.KeyEnter:
		h.setFocus((h.focus + 1) % homeFocusCount)
		return nil
	}
	return h.updateInput(msg)
}

func (h *Home) updateDocuments(msg tea.KeyMsg) tea.Cmd {
	k := h.env.Keys
	h.syncList()

	switch {
	case key.Matches(msg, k.Up):
		h.list.Up()
	case key.Matches(msg, k.Down):
		h.list.Down()
	case key.Matches(msg, k.Top):
		h.list.Top()
	case key.Matches(msg, k.Bottom):
		h.list.Bottom()
	case key.Matches(msg, k.Select):
		if rec, ok := h.current(); ok {
			h.docID = rec.DocumentID()
			h.docTitle = rec.Title()
			h.setFocus(focusModel)
		}
	case key.Matches(msg, k.Open):
		if rec, ok := h.current(); ok && rec.DocumentID() != "" {
			return Navigate(router.DocumentPath(rec.DocumentID()))
		}
	case key.Matches(msg, k.Retry):
		if h.env.Stores.Documents.Retry() {
			return Status(components.LevelInfo, "Reloading documents")
		}
	}
	return nil
}

func (h *Home) updatePipeline(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "left", "up", "k":
		h.pipeline = (h.pipeline + len(h.pipelines) - 1) % len(h.pipelines)
	case "right", "down", "j", " ":
		h.pipeline = (h.pipeline + 1) % len(h.pipelines)
	case "enter":
		h.setFocus(focusQuestion)
	case "esc":
		h.setFocus(focusDocuments)
	}
	return nil
}

func (h *Home) updateInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch h.focus {
	case focusModel:
		h.model, cmd = h.model.Update(msg)
	case focusQuestion:
		h.question, cmd = h.question.Update(msg)
	case focusRefine:
		h.refine, cmd = h.refine.Update(msg)
	}
	return cmd
}

func (h *Home) setFocus(f homeFocus) {
	h.focus = f
	h.model.Blur()
	h.question.Blur()
	h.refine.Blur()
	switch f {
	case focusModel:
		h.model.Focus()
	case focusQuestion:
		h.question.Focus()
	case focusRefine:
		h.refine.Focus()
	}
}

// submit validates the form, starts the query and moves to the response
// view. Invalid forms never reach the store.
func (h *Home) submit() tea.Cmd {
	params := h.Params()
	q := h.env.Stores.Query
	if err := q.Validate(params); err != nil {
		return Status(components.LevelError, errorText(err))
	}

	ctx := h.env.ctx()
	return tea.Batch(
		runAction("query", "", func() error { return q.QueryModel(ctx, params) }),
		Navigate(router.QueryResponsePath),
	)
}

func (h *Home) syncList() []api.Record {
	docs := h.env.Stores.Documents.State().Items
	rows := make([]components.ListItem, len(docs))
	for i, d := range docs {
		rows[i] = components.ListItem{Title: d.Title(), Detail: d.String("description")}
		if d.DocumentID() == h.docID && h.docID != "" {
			rows[i].Title = "* " + rows[i].Title
		}
	}
	h.list.SetItems(rows)
	return docs
}

func (h *Home) current() (api.Record, bool) {
	docs := h.env.Stores.Documents.State().Items
	idx, ok := h.list.Selected()
	if !ok || idx >= len(docs) {
		return nil, false
	}
	return docs[idx], true
}

// View implements View.
func (h *Home) View() string {
	t := h.env.Theme
	listW, formW := h.columns()

	docs := h.documentsPanel()
	form := h.formPanel()

	left := panel(t, h.focus == focusDocuments, listW).Render(docs)
	right := panel(t, h.focus != focusDocuments, formW).Render(form)
	if h.stacked() {
		return lipgloss.JoinVertical(lipgloss.Left, left, right)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (h *Home) documentsPanel() string {
	t := h.env.Theme
	st := h.env.Stores.Documents.State()
	docs := h.syncList()

	var b strings.Builder
	b.WriteString(t.Section.Render("Documents"))
	b.WriteString("\n")

	switch {
	case st.Status == store.StatusLoading || st.Status == store.StatusUnfetched:
		b.WriteString(loadingLine(h.env, "Loading documents"))
	case st.Status == store.StatusFailed && len(docs) == 0:
		b.WriteString(errorLine(st.Err, "press r to retry"))
	case len(docs) == 0:
		b.WriteString(t.Muted.Render("No documents"))
	default:
		b.WriteString(h.list.View(t, h.focus == focusDocuments))
	}
	return b.String()
}

func (h *Home) formPanel() string {
	t := h.env.Theme
	var b strings.Builder
	b.WriteString(t.Section.Render("Query"))
	b.WriteString("\n")

	field := func(f homeFocus, label, value string) {
		style := t.InputLabel
		if h.focus == f {
			style = t.InputLabelFocused
		}
		b.WriteString(style.Render(label))
		b.WriteString("\n")
		b.WriteString(value)
		b.WriteString("\n\n")
	}

	doc := t.Muted.Render("none selected (enter on a document)")
	if h.docID != "" {
		doc = t.Value.Render(util.TruncateWidth(h.docTitle, max(10, h.model.Width)))
	}
	b.WriteString(t.Label.Render("Document"))
	b.WriteString("\n")
	b.WriteString(doc)
	b.WriteString("\n\n")

	field(focusModel, "Model", h.model.View())
	field(focusPipeline, "Pipeline", h.pipelineChoices(t))
	field(focusQuestion, "Question prompt", h.question.View())
	field(focusRefine, "Refine prompt", h.refine.View())

	return strings.TrimRight(b.String(), "\n")
}

func (h *Home) pipelineChoices(t *styles.Theme) string {
	parts := make([]string, len(h.pipelines))
	for i, p := range h.pipelines {
		if i == h.pipeline {
			parts[i] = t.ChoiceActive.Render(p)
		} else {
			parts[i] = t.Choice.Render(p)
		}
	}
	return strings.Join(parts, " ")
}

func panel(t *styles.Theme, focused bool, width int) lipgloss.Style {
	s := t.Panel
	if focused {
		s = t.PanelFocused
	}
	return s.Width(max(10, width-2))
}
