// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/expview/internal/api"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports results to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a result to Markdown.
func (e *MarkdownExporter) Export(r *Result) ([]byte, error) {
	if err := validate(r); err != nil {
		return nil, err
	}

	var sb strings.Builder
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "model: %s\n", escapeYAML(r.Query.Model))
		fmt.Fprintf(&sb, "pipeline: %s\n", escapeYAML(r.Query.Pipeline))
		fmt.Fprintf(&sb, "document: %s\n", escapeYAML(r.Query.Document))
		if !r.SubmittedAt.IsZero() {
			fmt.Fprintf(&sb, "submitted: %s\n", r.SubmittedAt.Format(time.RFC3339))
		}
		if r.Elapsed > 0 {
			fmt.Fprintf(&sb, "elapsed: %s\n", formatDuration(r.Elapsed))
		}
		fmt.Fprintf(&sb, "exported: %s\n", e.options.now().Format(time.RFC3339))
		sb.WriteString("generator: expview\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s / %s\n\n", escapeMarkdown(r.Query.Model), escapeMarkdown(r.Query.Pipeline))
	sb.WriteString(QueryMarkdown(r.Query))
	sb.WriteString("\n")
	sb.WriteString(ResponseMarkdown(r.Response))
	return []byte(sb.String()), nil
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// =============================================================================
// SHARED RENDERING
// =============================================================================

// QueryMarkdown renders submitted query parameters.
func QueryMarkdown(q api.QueryParams) string {
	var sb strings.Builder
	sb.WriteString("## Query\n\n")
	fmt.Fprintf(&sb, "- **Model**: %s\n", escapeMarkdown(q.Model))
	fmt.Fprintf(&sb, "- **Pipeline**: %s\n", escapeMarkdown(q.Pipeline))
	fmt.Fprintf(&sb, "- **Document**: %s\n", escapeMarkdown(q.Document))
	if q.QuestionPrompt != "" {
		sb.WriteString("\n### Question prompt\n\n")
		sb.WriteString(blockquote(q.QuestionPrompt))
	}
	if q.RefinePrompt != "" {
		sb.WriteString("\n### Refine prompt\n\n")
		sb.WriteString(blockquote(q.RefinePrompt))
	}
	return sb.String()
}

// ResponseMarkdown renders a query response record.
func ResponseMarkdown(resp api.Record) string {
	var sb strings.Builder
	sb.WriteString("## Response\n\n")
	sb.WriteString(fieldsMarkdown(resp, nil))
	return sb.String()
}

// RecordMarkdown renders a document or experiment with title as heading. The
// body field, when present, is emitted as-is at the end since documents
// carry Markdown text there.
func RecordMarkdown(title string, rec api.Record, body string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))
	skip := map[string]bool{}
	if body != "" {
		skip[body] = true
	}
	sb.WriteString(fieldsMarkdown(rec, skip))
	if text := rec.String(body); body != "" && text != "" {
		sb.WriteString("\n---\n\n")
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// fieldsMarkdown lists scalar fields as bullets and gives multi-line text and
// nested values their own sections.
func fieldsMarkdown(rec api.Record, skip map[string]bool) string {
	var scalars, sections strings.Builder
	for _, key := range rec.Keys() {
		if skip[key] {
			continue
		}
		switch v := rec[key].(type) {
		case map[string]any, []any:
			data, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				continue
			}
			fmt.Fprintf(&sections, "\n### %s\n\n```json\n%s\n```\n", escapeMarkdown(key), data)
		case string:
			if strings.Contains(v, "\n") {
				fmt.Fprintf(&sections, "\n### %s\n\n%s\n", escapeMarkdown(key), v)
				continue
			}
			fmt.Fprintf(&scalars, "- **%s**: %s\n", escapeMarkdown(key), escapeMarkdown(v))
		default:
			fmt.Fprintf(&scalars, "- **%s**: %s\n", escapeMarkdown(key), rec.String(key))
		}
	}
	if scalars.Len() == 0 && sections.Len() == 0 {
		return "_empty_\n"
	}
	return scalars.String() + sections.String()
}

func blockquote(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n") + "\n"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break inline formatting.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"#", `\#`,
		"*", `\*`,
		"_", `\_`,
		"[", `\[`,
		"]", `\]`,
		"`", "\\`",
	)
	return r.Replace(s)
}

// escapeYAML quotes front matter values that contain YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return `"` + s + `"`
	}
	return s
}
