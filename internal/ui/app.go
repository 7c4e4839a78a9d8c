// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui is the expview terminal application. It owns the router and
// bridges store notifications into the bubbletea update loop.
package ui

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jeranaias/expview/internal/router"
	"github.com/jeranaias/expview/internal/ui/components"
	"github.com/jeranaias/expview/internal/ui/views"
)

// chromeHeight is the header line, the blank line below it and the status
// bar.
const chromeHeight = 3

// App is the root bubbletea model.
type App struct {
	env    *views.Env
	router *router.Router[views.View]

	status  *components.StatusBar
	spinner components.Spinner
	help    help.Model
	keys    components.KeyMap

	changes   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	cancels   []func()

	width, height int
	showHelp      bool
}

// New creates the application. env.Spinner is set to the app spinner.
func New(env *views.Env) *App {
	if env.Log == nil {
		env.Log = zap.NewNop()
	}
	if env.Markdown == nil {
		env.Markdown = components.NewMarkdownRenderer(components.MarkdownAuto)
	}

	a := &App{
		env:     env,
		router:  router.NewDefault[views.View](),
		status:  components.NewStatusBar(env.Theme),
		spinner: components.NewSpinner(),
		help:    help.New(),
		keys:    env.Keys,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	env.Spinner = a.spinner.Frame

	a.router.Register(router.Home, func() views.View { return views.NewHome(env) })
	a.router.Register(router.History, func() views.View { return views.NewHistory(env) })
	a.router.Register(router.Document, func() views.View { return views.NewDocument(env) })
	a.router.Register(router.Experiment, func() views.View { return views.NewExperiment(env) })
	a.router.Register(router.QueryResponse, func() views.View { return views.NewQueryResponse(env) })

	for _, obs := range env.Stores.Observables() {
		a.cancels = append(a.cancels, obs.OnChange(a.notify))
	}
	return a
}

// Router exposes the router, mainly for tests.
func (a *App) Router() *router.Router[views.View] {
	return a.router
}

// notify runs on whatever goroutine changed a store. The buffered channel
// coalesces bursts into one StoreChangedMsg.
func (a *App) notify() {
	select {
	case a.changes <- struct{}{}:
	default:
	}
}

func (a *App) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-a.done:
			return nil
		default:
		}
		select {
		case <-a.changes:
			return views.StoreChangedMsg{}
		case <-a.done:
			return nil
		}
	}
}

// Close detaches the app from the stores.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		for _, cancel := range a.cancels {
			cancel()
		}
		close(a.done)
	})
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.navigate("/"), a.waitForChange())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case views.NavigateMsg:
		return a, a.navigate(msg.Path)

	case views.BackMsg:
		return a, a.back()

	case views.StatusMsg:
		a.status.SetMessage(msg.Level, msg.Text)
		return a, nil

	case views.ActionResultMsg:
		switch {
		case msg.Err != nil:
			a.env.Log.Debug("action failed", zap.String("action", msg.Action), zap.Error(msg.Err))
			a.status.SetMessage(components.LevelError, msg.Action+": "+msg.Err.Error())
		case msg.Success != "":
			a.status.SetMessage(components.LevelSuccess, msg.Success)
		}
		return a, tea.Batch(a.forward(msg), a.syncSpinner())

	case views.StoreChangedMsg:
		return a, tea.Batch(a.waitForChange(), a.syncSpinner(), a.forward(msg))

	case spinner.TickMsg:
		return a, a.spinner.Update(msg)
	}

	return a, a.forward(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, a.keys.Quit) {
		a.Close()
		return tea.Quit
	}

	v, ok := a.router.View()
	if ok && v.Capturing() {
		return v.Update(msg)
	}

	switch {
	case key.Matches(msg, a.keys.Home):
		return a.navigate("/")
	case key.Matches(msg, a.keys.History):
		return a.navigate("/history")
	case key.Matches(msg, a.keys.Back):
		return a.back()
	case key.Matches(msg, a.keys.Help):
		a.showHelp = !a.showHelp
		return nil
	}

	if ok {
		return v.Update(msg)
	}
	return nil
}

func (a *App) forward(msg tea.Msg) tea.Cmd {
	if v, ok := a.router.View(); ok {
		return v.Update(msg)
	}
	return nil
}

func (a *App) navigate(path string) tea.Cmd {
	prev := a.router.Current()
	loc, err := a.router.Push(path)
	if err != nil {
		return a.navigationFailed(err)
	}
	if !prev.IsZero() && prev.Path == loc.Path {
		return nil
	}
	return a.enter(loc)
}

func (a *App) back() tea.Cmd {
	loc, err := a.router.Back()
	if errors.Is(err, router.ErrNoHistory) {
		return nil
	}
	if err != nil {
		return a.navigationFailed(err)
	}
	return a.enter(loc)
}

func (a *App) navigationFailed(err error) tea.Cmd {
	level := components.LevelError
	if errors.Is(err, router.ErrNavigationBlocked) {
		level = components.LevelWarning
	}
	a.env.Log.Info("navigation refused", zap.Error(err))
	a.status.SetMessage(level, err.Error())
	return nil
}

func (a *App) enter(loc router.Location) tea.Cmd {
	a.status.ClearMessage()
	v, ok := a.router.View()
	if !ok {
		return nil
	}
	if a.width > 0 {
		v.SetSize(a.contentSize())
	}
	return tea.Batch(v.Enter(loc), a.syncSpinner())
}

func (a *App) resize(width, height int) {
	a.width, a.height = width, height
	a.env.Theme.SetSize(width, height)
	a.status.Width = width
	a.help.Width = width
	if v, ok := a.router.View(); ok {
		v.SetSize(a.contentSize())
	}
}

func (a *App) contentSize() (int, int) {
	return a.width, max(1, a.height-chromeHeight)
}

// syncSpinner runs the spinner only while a request is in flight.
func (a *App) syncSpinner() tea.Cmd {
	if a.env.Stores.Busy() {
		return a.spinner.Start()
	}
	a.spinner.Stop()
	return nil
}

// View implements tea.Model.
func (a *App) View() string {
	v, ok := a.router.View()
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString(a.header(v))
	b.WriteString("\n\n")

	content := v.View()
	if a.showHelp {
		content = a.help.FullHelpView(a.keys.FullHelp())
	}
	if a.height > 0 {
		content = lipgloss.NewStyle().
			Height(a.height - chromeHeight).
			MaxHeight(a.height - chromeHeight).
			Render(content)
	}
	b.WriteString(content)
	b.WriteString("\n")

	if a.spinner.Active() {
		a.status.SetBusy(a.spinner.Frame())
	} else {
		a.status.SetBusy("")
	}
	b.WriteString(a.status.View(append(v.Hints(), a.keys.Help)))
	return b.String()
}

func (a *App) header(v views.View) string {
	t := a.env.Theme
	cur := a.router.Current().Route

	tab := func(label string, active bool) string {
		if active {
			return t.TabActive.Render(label)
		}
		return t.Tab.Render(label)
	}

	parts := []string{
		t.Brand.Render("expview"),
		tab("Home", cur == router.Home),
		tab("History", cur == router.History),
	}
	if cur != router.Home && cur != router.History {
		parts = append(parts, tab(v.Title(), true))
	}

	line := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	if a.width > 0 {
		return t.Header.Width(a.width).Render(line)
	}
	return t.Header.Render(line)
}

// Run starts the program on the alternate screen and blocks until it exits.
func Run(ctx context.Context, env *views.Env, opts ...tea.ProgramOption) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if env.Ctx == nil {
		env.Ctx = ctx
	}
	app := New(env)
	defer app.Close()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(app, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
