// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/expview/internal/api"
	"github.com/jeranaias/expview/internal/export"
	"github.com/jeranaias/expview/internal/router"
	"github.com/jeranaias/expview/internal/ui/components"
	"github.com/jeranaias/expview/internal/util"
)

// Experiment shows one experiment, its comments and the comment box.
type Experiment struct {
	env  *Env
	uuid string

	vp    viewport.Model
	input textinput.Model
	cache mdCache

	width, height int
}

// NewExperiment creates the experiment view.
func NewExperiment(env *Env) *Experiment {
	e := &Experiment{env: env, vp: viewport.New(80, 20)}
	e.input = textinput.New()
	e.input.Placeholder = "add a comment"
	e.input.CharLimit = 4096
	e.input.Prompt = "> "
	e.SetSize(80, 24)
	return e
}

// Title implements View.
func (e *Experiment) Title() string { return "Experiment" }

// UUID returns the experiment shown.
func (e *Experiment) UUID() string { return e.uuid }

// Capturing implements View.
func (e *Experiment) Capturing() bool { return e.input.Focused() }

// Enter implements View. The experiment and its comments are fetched on
// every entry.
func (e *Experiment) Enter(loc router.Location) tea.Cmd {
	uuid := loc.Param("uuid")
	if uuid != e.uuid {
		e.vp.GotoTop()
		e.input.Reset()
	}
	e.uuid = uuid
	e.input.Blur()
	return e.refresh()
}

func (e *Experiment) refresh() tea.Cmd {
	s := e.env.Stores
	ctx := e.env.ctx()
	uuid := e.uuid
	return tea.Batch(
		runAction("experiment", "", func() error { return s.Experiment.FetchExperiment(ctx, uuid) }),
		runAction("comments", "", func() error { return s.Comments.FetchComments(ctx, uuid) }),
	)
}

// SetSize implements View.
func (e *Experiment) SetSize(width, height int) {
	e.width, e.height = width, height
	e.vp.Width = width
	e.vp.Height = max(1, height-3)
	e.input.Width = max(10, width-4)
}

// Hints implements View.
func (e *Experiment) Hints() []key.Binding {
	k := e.env.Keys
	if e.input.Focused() {
		return []key.Binding{k.Select, k.Back}
	}
	return []key.Binding{k.Comment, k.Query, k.Retry, k.Down, k.Back}
}

// Update implements View.
func (e *Experiment) Update(msg tea.Msg) tea.Cmd {
	k := e.env.Keys

	switch msg := msg.(type) {
	case ActionResultMsg:
		if msg.Action == "comment" && msg.Err == nil {
			e.input.Reset()
		}
		return nil

	case tea.KeyMsg:
		if e.input.Focused() {
			switch msg.Type {
			case tea.KeyEsc:
				e.input.Blur()
				return nil
			case tea.KeyEnter:
				return e.post()
			}
			var cmd tea.Cmd
			e.input, cmd = e.input.Update(msg)
			return cmd
		}

		switch {
		case key.Matches(msg, k.Comment), key.Matches(msg, k.NextField):
			return e.input.Focus()
		case key.Matches(msg, k.Query):
			// Blocked by the router; the app reports it.
			return Navigate(router.QueryResponsePath)
		case key.Matches(msg, k.Retry):
			return e.refresh()
		}
	}

	var cmd tea.Cmd
	e.vp, cmd = e.vp.Update(msg)
	return cmd
}

func (e *Experiment) post() tea.Cmd {
	text := e.input.Value()
	if strings.TrimSpace(text) == "" {
		return Status(components.LevelWarning, "Comment is empty")
	}
	comments := e.env.Stores.Comments
	ctx := e.env.ctx()
	uuid := e.uuid
	return runAction("comment", "Comment posted", func() error {
		_, err := comments.PostComment(ctx, uuid, text)
		return err
	})
}

// View implements View.
func (e *Experiment) View() string {
	expRef := e.env.Stores.Experiment.Ref()
	st := expRef.Get()
	t := e.env.Theme

	var body string
	switch {
	case st.Record != nil && st.RecordID == e.uuid:
		width := contentWidth(e.vp.Width)
		body = e.cache.render(e.env.Markdown, expRef.Version(), e.uuid, width, func() string {
			title := st.Record.Title()
			if title == "" {
				title = e.uuid
			}
			return export.RecordMarkdown(title, st.Record, "")
		})
	case st.Err != nil && !st.Loading && st.ID == e.uuid:
		body = errorLine(st.Err, "press r to retry")
	default:
		body = loadingLine(e.env, "Loading experiment "+e.uuid)
	}

	e.vp.SetContent(body + "\n\n" + e.commentsSection())

	var b strings.Builder
	b.WriteString(e.vp.View())
	b.WriteString("\n")
	label := t.InputLabel
	if e.input.Focused() {
		label = t.InputLabelFocused
	}
	b.WriteString(label.Render("Comment"))
	if e.env.Stores.Comments.State().Posting() {
		b.WriteString(" " + loadingLine(e.env, "posting"))
	}
	b.WriteString("\n")
	b.WriteString(e.input.View())
	return b.String()
}

func (e *Experiment) commentsSection() string {
	t := e.env.Theme
	cs := e.env.Stores.Comments.State()

	var b strings.Builder
	header := "Comments"
	if cs.ExperimentUUID == e.uuid && len(cs.Comments) > 0 {
		header += "  " + t.Muted.Render(plural(len(cs.Comments), "comment", "comments"))
	}
	b.WriteString(t.Section.Render(header))
	b.WriteString("\n")

	switch {
	case cs.Loading:
		b.WriteString(loadingLine(e.env, "Loading comments"))
		return b.String()
	case cs.Err != nil && (cs.ExperimentUUID != e.uuid || len(cs.Comments) == 0):
		b.WriteString(errorLine(cs.Err, ""))
		return b.String()
	case cs.ExperimentUUID != e.uuid:
		return b.String()
	case len(cs.Comments) == 0:
		b.WriteString(t.Muted.Render("No comments yet. Press c to add one."))
		return b.String()
	}

	width := contentWidth(e.vp.Width)
	for i, c := range cs.Comments {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t.CommentMeta.Render(commentMeta(c)))
		b.WriteString("\n")
		b.WriteString(t.CommentText.Width(width).Render(c.Text))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func commentMeta(c api.Comment) string {
	parts := make([]string, 0, 2)
	if c.Author != "" {
		parts = append(parts, c.Author)
	}
	if c.CreatedAt != "" {
		parts = append(parts, c.CreatedAt)
	}
	if len(parts) == 0 {
		return util.TruncateRunes(c.UUID, 8)
	}
	return strings.Join(parts, " - ")
}
