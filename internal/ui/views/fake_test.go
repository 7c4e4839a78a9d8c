// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/expview/internal/api"
	"github.com/jeranaias/expview/internal/store"
	"github.com/jeranaias/expview/internal/ui/components"
	"github.com/jeranaias/expview/internal/ui/styles"
)

// backend is an in-memory store.Backend with canned data.
type backend struct {
	mu sync.Mutex

	documents   []api.Record
	docs        map[string]api.Record
	experiments []api.Record
	exps        map[string]api.Record
	comments    map[string][]api.Comment

	listErr  error
	queryFn  func(ctx context.Context, p api.QueryParams) (api.Record, error)
	posted   []api.NewComment
	queried  []api.QueryParams
	listHits int
}

func newBackend() *backend {
	return &backend{
		documents: []api.Record{
			{"document_id": "d1", "title": "Guide"},
			{"document_id": "d2", "title": "Notes"},
		},
		docs: map[string]api.Record{
			"d1": {"document_id": "d1", "title": "Guide", "doc": "Some **guide** text."},
		},
		experiments: []api.Record{{"uuid": "e1", "name": "first run"}},
		exps: map[string]api.Record{
			"e1": {"uuid": "e1", "name": "first run", "model": "gpt"},
		},
		comments: map[string][]api.Comment{
			"e1": {{UUID: "c1", DocumentUUID: "e1", Text: "looks good", Author: "ana"}},
		},
	}
}

func (b *backend) ListDocuments(context.Context) ([]api.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listHits++
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.documents, nil
}

func (b *backend) ListExperiments(context.Context) ([]api.Record, error) {
	return b.experiments, nil
}

func (b *backend) GetDocument(_ context.Context, id string) (api.Record, error) {
	if rec, ok := b.docs[id]; ok {
		return rec, nil
	}
	return nil, &api.ClientError{Kind: api.KindStatus, StatusCode: 404, Message: "not found", Path: "/documents/" + id}
}

func (b *backend) GetExperiment(_ context.Context, uuid string) (api.Record, error) {
	if rec, ok := b.exps[uuid]; ok {
		return rec, nil
	}
	return nil, &api.ClientError{Kind: api.KindStatus, StatusCode: 404, Message: "not found"}
}

func (b *backend) ListComments(_ context.Context, uuid string) ([]api.Comment, error) {
	return b.comments[uuid], nil
}

func (b *backend) PostComment(_ context.Context, c api.NewComment) (api.Comment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.posted = append(b.posted, c)
	return api.Comment{UUID: "new", DocumentUUID: c.DocumentUUID, Text: c.Text}, nil
}

func (b *backend) QueryModel(ctx context.Context, p api.QueryParams) (api.Record, error) {
	b.mu.Lock()
	b.queried = append(b.queried, p)
	fn := b.queryFn
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx, p)
	}
	return api.Record{"answer": "42"}, nil
}

func newEnv(b *backend) *Env {
	return &Env{
		Ctx:          context.Background(),
		Stores:       store.New(b, store.Options{}),
		Theme:        styles.NewTheme("dark"),
		Markdown:     components.NewMarkdownRenderer(components.MarkdownNoTTY),
		Keys:         components.DefaultKeyMap(),
		DefaultModel: "gpt",
	}
}

// run executes cmd and any batched commands, collecting their messages.
// Commands that do not finish quickly (cursor blinks, ticks) are dropped.
func run(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}

	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-ch:
	case <-time.After(time.Second):
		return nil
	}

	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(t, c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func find[T tea.Msg](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}
