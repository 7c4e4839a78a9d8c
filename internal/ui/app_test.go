// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/expview/internal/api"
	"github.com/jeranaias/expview/internal/router"
	"github.com/jeranaias/expview/internal/store"
	"github.com/jeranaias/expview/internal/ui/components"
	"github.com/jeranaias/expview/internal/ui/styles"
	"github.com/jeranaias/expview/internal/ui/views"
)

type backend struct{}

func (backend) ListDocuments(context.Context) ([]api.Record, error) {
	return []api.Record{{"document_id": "d1", "title": "Guide"}}, nil
}

func (backend) ListExperiments(context.Context) ([]api.Record, error) {
	return []api.Record{{"uuid": "e1"}}, nil
}

func (backend) GetDocument(_ context.Context, id string) (api.Record, error) {
	return api.Record{"document_id": id}, nil
}

func (backend) GetExperiment(_ context.Context, uuid string) (api.Record, error) {
	return api.Record{"uuid": uuid}, nil
}

func (backend) ListComments(context.Context, string) ([]api.Comment, error) {
	return nil, nil
}

func (backend) PostComment(_ context.Context, c api.NewComment) (api.Comment, error) {
	return api.Comment{DocumentUUID: c.DocumentUUID, Text: c.Text}, nil
}

func (backend) QueryModel(context.Context, api.QueryParams) (api.Record, error) {
	return api.Record{"answer": "42"}, nil
}

func newApp(t *testing.T) *App {
	t.Helper()
	env := &views.Env{
		Ctx:      context.Background(),
		Stores:   store.New(backend{}, store.Options{}),
		Theme:    styles.NewTheme("dark"),
		Markdown: components.NewMarkdownRenderer(components.MarkdownNoTTY),
		Keys:     components.DefaultKeyMap(),
	}
	a := New(env)
	t.Cleanup(a.Close)
	a.Init()
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return a
}

func press(a *App, keys ...tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = a.Update(k)
	}
	return cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitOpensHome(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, router.Home, a.Router().Current().Route)
	assert.True(t, a.Router().Built(router.Home))
	assert.False(t, a.Router().Built(router.History))

	view := a.View()
	assert.Contains(t, view, "expview")
	assert.Contains(t, view, "History")
}

func TestGlobalKeysNavigate(t *testing.T) {
	a := newApp(t)

	press(a, runes("H"))
	assert.Equal(t, router.History, a.Router().Current().Route)

	press(a, runes("h"))
	assert.Equal(t, router.Home, a.Router().Current().Route)

	press(a, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, router.History, a.Router().Current().Route, "esc goes back")
}

func TestGlobalKeysIgnoredWhileTyping(t *testing.T) {
	a := newApp(t)

	press(a, tea.KeyMsg{Type: tea.KeyTab})
	v, ok := a.Router().View()
	require.True(t, ok)
	require.True(t, v.Capturing())

	press(a, runes("H"))
	assert.Equal(t, router.Home, a.Router().Current().Route)
	assert.Equal(t, "H", v.(*views.Home).Params().Model)

	press(a, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, v.Capturing())
	assert.Equal(t, router.Home, a.Router().Current().Route, "esc only left the field")

	press(a, runes("H"))
	assert.Equal(t, router.History, a.Router().Current().Route)
}

func TestBlockedNavigationShowsWarning(t *testing.T) {
	a := newApp(t)

	a.Update(views.NavigateMsg{Path: router.ExperimentPath("e1")})
	require.Equal(t, router.Experiment, a.Router().Current().Route)

	a.Update(views.NavigateMsg{Path: router.QueryResponsePath})
	assert.Equal(t, router.Experiment, a.Router().Current().Route)
	assert.False(t, a.Router().Built(router.QueryResponse))

	level, msg := a.status.Message()
	assert.Equal(t, components.LevelWarning, level)
	assert.Contains(t, msg, "blocked")
}

func TestUnknownPathReportsError(t *testing.T) {
	a := newApp(t)
	a.Update(views.NavigateMsg{Path: "/nowhere"})

	level, msg := a.status.Message()
	assert.Equal(t, components.LevelError, level)
	assert.Contains(t, msg, "no route")
}

func TestActionResultsReachStatusBar(t *testing.T) {
	a := newApp(t)

	a.Update(views.ActionResultMsg{Action: "comment", Err: errors.New("boom")})
	level, msg := a.status.Message()
	assert.Equal(t, components.LevelError, level)
	assert.Equal(t, "comment: boom", msg)

	a.Update(views.ActionResultMsg{Action: "comment", Success: "Comment posted"})
	level, msg = a.status.Message()
	assert.Equal(t, components.LevelSuccess, level)
	assert.Equal(t, "Comment posted", msg)
}

func TestStoreChangesAreBridged(t *testing.T) {
	a := newApp(t)

	require.NoError(t, a.env.Stores.Document.FetchDocument(context.Background(), "d1"))
	msg := a.waitForChange()()
	assert.IsType(t, views.StoreChangedMsg{}, msg)
}

func TestCloseReleasesWaiter(t *testing.T) {
	a := newApp(t)
	// Drain any change queued during setup.
	select {
	case <-a.changes:
	default:
	}

	a.Close()
	assert.Nil(t, a.waitForChange()())
	a.Close()
}

func TestQuit(t *testing.T) {
	a := newApp(t)
	cmd := press(a, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestHelpToggle(t *testing.T) {
	a := newApp(t)
	press(a, runes("?"))
	assert.Contains(t, a.View(), "page down")
	press(a, runes("?"))
	assert.NotContains(t, a.View(), "page down")
}
