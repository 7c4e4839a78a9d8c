// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Spinner wraps the bubbles spinner with an explicit running state so that
// tick messages stop once the app is idle.
type Spinner struct {
	model  spinner.Model
	active bool
}

// NewSpinner creates an ASCII line spinner.
func NewSpinner() Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	return Spinner{model: s}
}

// Start activates the spinner. The returned command schedules the first
// tick, or is nil when the spinner was already running.
func (s *Spinner) Start() tea.Cmd {
	if s.active {
		return nil
	}
	s.active = true
	return s.model.Tick
}

// Stop deactivates the spinner. Pending ticks are dropped by Update.
func (s *Spinner) Stop() {
	s.active = false
}

// Active reports whether the spinner is running.
func (s *Spinner) Active() bool {
	return s.active
}

// Update advances the animation on tick messages.
func (s *Spinner) Update(msg tea.Msg) tea.Cmd {
	if !s.active {
		return nil
	}
	var cmd tea.Cmd
	s.model, cmd = s.model.Update(msg)
	return cmd
}

// Frame returns the current frame.
func (s *Spinner) Frame() string {
	return s.model.View()
}

// FormatElapsed renders a duration as "4s" or "2m 05s".
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %02ds", seconds/60, seconds%60)
}
