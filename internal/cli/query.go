// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jeranaias/expview/internal/api"
	"github.com/jeranaias/expview/internal/export"
	"github.com/jeranaias/expview/internal/ui/components"
)

// runQuery submits one model query and optionally exports the result.
//
//	expview query --document d1 --question "..." [--refine "..."] [--out r.md]
func (s *session) runQuery() error {
	p := NewArgParser(s.args.Rest)
	params := api.QueryParams{
		Model:          p.FlagOrDefault("model", s.cfg.Query.DefaultModel),
		Pipeline:       p.FlagOrDefault("pipeline", s.cfg.Query.DefaultPipeline),
		QuestionPrompt: p.Flag("question"),
		RefinePrompt:   p.Flag("refine"),
		Document:       p.FlagOrDefault("document", p.Positional(0)),
	}
	out := p.Flag("out")

	if out != "" {
		if _, err := export.ForPath(out, export.DefaultOptions()); err != nil {
			return &ValidationError{Field: "out", Value: out, Reason: err.Error(), Example: "--out answer.md"}
		}
	}

	s.progress("Querying %s with the %s pipeline...", params.Model, params.Pipeline)
	if err := s.stores.Query.QueryModel(s.ctx, params); err != nil {
		return err
	}

	st := s.stores.Query.State()
	result := &export.Result{
		Query:       st.Query,
		Response:    st.Response,
		SubmittedAt: st.SubmittedAt,
		Elapsed:     st.Elapsed,
	}

	if out != "" {
		if err := export.ToFile(result, out, export.DefaultOptions()); err != nil {
			return NewCommandError("query", "export", out, err)
		}
		s.log.Info("query result exported", zap.String("path", out))
	}

	return s.emit(result, func() {
		md := export.QueryMarkdown(result.Query) + "\n" + export.ResponseMarkdown(result.Response)
		md += fmt.Sprintf("\n_answered in %s_\n", components.FormatElapsed(result.Elapsed))
		s.printMarkdown(md)
		if out != "" {
			fmt.Fprintln(s.stdout, SuccessStyle.Render("[OK]"), "Saved to", out)
		}
	})
}
