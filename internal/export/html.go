// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// HTMLExporter renders the Markdown export to a standalone HTML page.
// Response text comes from the model, so the generated markup is sanitized
// before it is embedded.
type HTMLExporter struct {
	options  *Options
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewHTMLExporter creates an HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		options:  opts,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   bluemonday.UGCPolicy(),
	}
}

// Export converts a result to HTML.
func (e *HTMLExporter) Export(r *Result) ([]byte, error) {
	if err := validate(r); err != nil {
		return nil, err
	}

	md := &MarkdownExporter{options: &Options{IncludeMetadata: false, Now: e.options.Now}}
	source, err := md.Export(r)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	if err := e.markdown.Convert(source, &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	safe := e.policy.SanitizeBytes(body.Bytes())

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	out.WriteString("<meta charset=\"UTF-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", html.EscapeString(r.Query.Model+" / "+r.Query.Pipeline))
	out.WriteString("<meta name=\"generator\" content=\"expview\">\n")
	out.WriteString("<style>body{font-family:system-ui,sans-serif;max-width:50rem;margin:2rem auto;line-height:1.5}pre{background:#f5f5f5;padding:1rem;overflow:auto}blockquote{color:#555;border-left:3px solid #ccc;margin:0;padding-left:1rem}</style>\n")
	out.WriteString("</head>\n<body>\n")
	out.Write(safe)
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

// FileExtension returns ".html".
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}
