// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// records.go - document, experiment and comment commands.

package cli

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/expview/internal/api"
	"github.com/jeranaias/expview/internal/export"
	"github.com/jeranaias/expview/internal/ui/views"
	"github.com/jeranaias/expview/internal/util"
)

// idColumnWidth is the width of the identifier column in list output.
const idColumnWidth = 38

// =============================================================================
// LISTS
// =============================================================================

func (s *session) runDocuments() error {
	items, err := s.stores.Documents.Load(s.ctx)
	if err != nil {
		return err
	}
	return s.emit(items, func() {
		s.printList("Documents", items, api.Record.DocumentID)
	})
}

func (s *session) runExperiments() error {
	items, err := s.stores.Experiments.Load(s.ctx)
	if err != nil {
		return err
	}
	return s.emit(items, func() {
		s.printList("Experiments", items, api.Record.ExperimentID)
	})
}

func (s *session) printList(title string, items []api.Record, id func(api.Record) string) {
	fmt.Fprintln(s.stdout, TitleStyle.Render(fmt.Sprintf("%s (%d)", title, len(items))))
	fmt.Fprintln(s.stdout, RenderSeparator(terminalWidth(s.stdout)/2))
	if len(items) == 0 {
		fmt.Fprintln(s.stdout, DimStyle.Render("  none"))
		return
	}
	width := terminalWidth(s.stdout) - idColumnWidth - 4
	if width < 10 {
		width = 10
	}
	for _, rec := range items {
		ident := util.PadRight(util.TruncateWidth(id(rec), idColumnWidth), idColumnWidth)
		name := util.TruncateWidth(util.FirstLine(rec.Title()), width)
		fmt.Fprintf(s.stdout, "  %s  %s\n", DimStyle.Render(ident), ValueStyle.Render(name))
	}
}

// =============================================================================
// SINGLE RECORDS
// =============================================================================

func (s *session) runDocument() error {
	p := NewArgParser(s.args.Rest)
	id := p.Positional(0)
	if id == "" {
		return ErrMissingArgument("document id", "expview document <id>")
	}

	if err := s.stores.Document.FetchDocument(s.ctx, id); err != nil {
		return err
	}
	rec := s.stores.Document.Document()
	return s.emit(rec, func() {
		s.printMarkdown(export.RecordMarkdown(titleOr(rec, id), rec, views.DocumentBodyField))
	})
}

// ExperimentOutput is the --json data of `expview experiment`.
type ExperimentOutput struct {
	Experiment api.Record    `json:"experiment"`
	Comments   []api.Comment `json:"comments"`
}

func (s *session) runExperiment() error {
	p := NewArgParser(s.args.Rest)
	uuid := p.Positional(0)
	if uuid == "" {
		return ErrMissingArgument("experiment uuid", "expview experiment <uuid>")
	}

	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error { return s.stores.Experiment.FetchExperiment(ctx, uuid) })
	g.Go(func() error { return s.stores.Comments.FetchComments(ctx, uuid) })
	if err := g.Wait(); err != nil {
		return err
	}

	out := ExperimentOutput{
		Experiment: s.stores.Experiment.Experiment(),
		Comments:   s.stores.Comments.Comments(),
	}
	return s.emit(out, func() {
		md := export.RecordMarkdown(titleOr(out.Experiment, uuid), out.Experiment, "")
		s.printMarkdown(md + "\n" + commentsMarkdown(out.Comments))
	})
}

// =============================================================================
// COMMENTS
// =============================================================================

func (s *session) runComments() error {
	p := NewArgParser(s.args.Rest)
	uuid := p.Positional(0)
	if uuid == "" {
		return ErrMissingArgument("experiment uuid", "expview comments <uuid>")
	}

	if err := s.stores.Comments.FetchComments(s.ctx, uuid); err != nil {
		return err
	}
	comments := s.stores.Comments.Comments()
	return s.emit(comments, func() {
		s.printMarkdown(commentsMarkdown(comments))
	})
}

func (s *session) runComment() error {
	p := NewArgParser(s.args.Rest)
	uuid := p.Positional(0)
	text := JoinPositionalArgs(p, 1)
	if uuid == "" {
		return ErrMissingArgument("experiment uuid", `expview comment <uuid> "text"`)
	}
	if strings.TrimSpace(text) == "" {
		return ErrMissingArgument("text", `expview comment <uuid> "text"`)
	}

	created, err := s.stores.Comments.PostComment(s.ctx, uuid, text)
	if err != nil {
		return err
	}
	return s.emit(created, func() {
		msg := "Comment posted"
		if created.UUID != "" {
			msg += " " + DimStyle.Render("("+created.UUID+")")
		}
		fmt.Fprintln(s.stdout, SuccessStyle.Render("[OK]"), msg)
	})
}

// commentsMarkdown renders comments newest first, the order the store keeps.
func commentsMarkdown(comments []api.Comment) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Comments (%d)\n\n", len(comments))
	if len(comments) == 0 {
		sb.WriteString("_No comments yet._\n")
		return sb.String()
	}
	for _, c := range comments {
		meta := c.Author
		if meta == "" {
			meta = "anonymous"
		}
		if c.CreatedAt != "" {
			meta += ", " + c.CreatedAt
		}
		fmt.Fprintf(&sb, "- **%s**: %s\n", meta, strings.ReplaceAll(c.Text, "\n", " "))
	}
	return sb.String()
}

func titleOr(rec api.Record, fallback string) string {
	if t := rec.Title(); t != "" {
		return t
	}
	return fallback
}
