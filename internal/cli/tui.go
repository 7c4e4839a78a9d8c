// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"go.uber.org/zap"

	"github.com/jeranaias/expview/internal/ui"
	"github.com/jeranaias/expview/internal/ui/components"
	"github.com/jeranaias/expview/internal/ui/styles"
	"github.com/jeranaias/expview/internal/ui/views"
)

// runTUI starts the interactive client. Logging goes to the log file only,
// since bubbletea owns the terminal.
func (s *session) runTUI() error {
	if s.args.JSON {
		return &ValidationError{Field: "--json", Reason: "not supported by the TUI", Example: "expview documents --json"}
	}

	theme := styles.NewTheme(s.cfg.UI.Theme)
	env := &views.Env{
		Ctx:             s.ctx,
		Stores:          s.stores,
		Theme:           theme,
		Markdown:        components.NewMarkdownRenderer(s.cfg.UI.MarkdownStyle),
		Keys:            components.DefaultKeyMap(),
		Log:             s.log.Named("ui"),
		Pipelines:       s.cfg.Query.Pipelines,
		DefaultModel:    s.cfg.Query.DefaultModel,
		DefaultPipeline: s.cfg.Query.DefaultPipeline,
	}

	s.log.Info("starting tui", zap.String("api", s.client.BaseURL()))
	if err := ui.Run(s.ctx, env); err != nil {
		return NewCommandError("tui", "run", "program exited", err)
	}
	return nil
}
