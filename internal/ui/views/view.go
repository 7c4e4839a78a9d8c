// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package views implements the screens of the expview TUI. Each view reads
// snapshots from the stores and calls store actions; it never holds entity
// state of its own beyond form input and scroll position.
package views

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/expview/internal/router"
	"github.com/jeranaias/expview/internal/store"
	"github.com/jeranaias/expview/internal/ui/components"
	"github.com/jeranaias/expview/internal/ui/styles"
)

// View is one routed screen.
type View interface {
	// Enter is called every time the router makes the view current.
	Enter(loc router.Location) tea.Cmd

	Update(msg tea.Msg) tea.Cmd
	View() string
	SetSize(width, height int)

	// Capturing reports whether a text input has focus. Global single-key
	// shortcuts are not applied while a view captures input.
	Capturing() bool

	Title() string
	Hints() []key.Binding
}

// Env is what every view shares.
type Env struct {
	Ctx      context.Context
	Stores   *store.Stores
	Theme    *styles.Theme
	Markdown *components.MarkdownRenderer
	Keys     components.KeyMap
	Log      *zap.Logger

	Pipelines       []string
	DefaultModel    string
	DefaultPipeline string

	// Spinner returns the current frame of the app spinner.
	Spinner func() string
}

func (e *Env) ctx() context.Context {
	if e.Ctx == nil {
		return context.Background()
	}
	return e.Ctx
}

func (e *Env) spinner() string {
	if e.Spinner == nil {
		return "*"
	}
	return e.Spinner()
}

func (e *Env) log() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// =============================================================================
// MESSAGES
// =============================================================================

// NavigateMsg asks the app to push Path onto the router.
type NavigateMsg struct{ Path string }

// BackMsg asks the app to go back one location.
type BackMsg struct{}

// StoreChangedMsg reports that at least one store changed since the last
// render.
type StoreChangedMsg struct{}

// ActionResultMsg reports the outcome of a store action started by a view.
type ActionResultMsg struct {
	Action string
	Err    error

	// Success is shown in the status bar when Err is nil.
	Success string
}

// StatusMsg puts a message in the status bar.
type StatusMsg struct {
	Level components.Level
	Text  string
}

// Navigate returns a command producing NavigateMsg.
func Navigate(path string) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Path: path} }
}

// Back returns a command producing BackMsg.
func Back() tea.Cmd {
	return func() tea.Msg { return BackMsg{} }
}

// Status returns a command producing StatusMsg.
func Status(level components.Level, text string) tea.Cmd {
	return func() tea.Msg { return StatusMsg{Level: level, Text: text} }
}

// runAction runs fn off the update loop. Superseded results are reported
// without an error.
func runAction(name, success string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		err := fn()
		if errors.Is(err, store.ErrSuperseded) {
			return ActionResultMsg{Action: name}
		}
		if err != nil {
			return ActionResultMsg{Action: name, Err: err}
		}
		return ActionResultMsg{Action: name, Success: success}
	}
}

var (
	_ View = (*Home)(nil)
	_ View = (*History)(nil)
	_ View = (*Document)(nil)
	_ View = (*Experiment)(nil)
	_ View = (*QueryResponse)(nil)
)
