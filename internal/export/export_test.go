// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/expview/internal/api"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleResult() *Result {
	return &Result{
		Query: api.QueryParams{
			Model:          "llama3",
			Pipeline:       "refine",
			QuestionPrompt: "What is the main finding?",
			RefinePrompt:   "Refine it.",
			Document:       "doc-1",
		},
		Response: api.Record{
			"answer":           "42",
			"pipeline_outputs": map[string]any{"steps": float64(3)},
			"summary":          "line one\nline two",
		},
		SubmittedAt: fixedNow.Add(-1500 * time.Millisecond),
		Elapsed:     1500 * time.Millisecond,
	}
}

func testOptions() *Options {
	return &Options{IncludeMetadata: true, Now: func() time.Time { return fixedNow }}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions()).Export(sampleResult())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\nmodel: llama3\npipeline: refine\n"))
	assert.Contains(t, md, "elapsed: 1.50s\n")
	assert.Contains(t, md, "exported: 2025-03-01T12:00:00Z\n")
	assert.Contains(t, md, "# llama3 / refine")
	assert.Contains(t, md, "- **Document**: doc-1")
	assert.Contains(t, md, "> What is the main finding?")
	assert.Contains(t, md, "- **answer**: 42")
	assert.Contains(t, md, "### pipeline\\_outputs\n\n```json")
	assert.Contains(t, md, "### summary\n\nline one\nline two")
}

func TestMarkdownWithoutMetadata(t *testing.T) {
	out, err := NewMarkdownExporter(&Options{}).Export(sampleResult())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(out), "# llama3 / refine"))
}

func TestExportRejectsEmptyResult(t *testing.T) {
	for _, e := range []Exporter{NewMarkdownExporter(nil), NewJSONExporter(nil), NewHTMLExporter(nil)} {
		_, err := e.Export(nil)
		assert.Error(t, err)
		_, err = e.Export(&Result{})
		assert.Error(t, err)
	}
}

func TestJSONExport(t *testing.T) {
	out, err := NewJSONExporter(testOptions()).Export(sampleResult())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "2025-03-01T12:00:00Z", doc["exported"])
	assert.Equal(t, "llama3", doc["query"].(map[string]any)["model"])
	assert.Equal(t, "42", doc["response"].(map[string]any)["answer"])
}

func TestHTMLExportSanitizes(t *testing.T) {
	r := sampleResult()
	r.Response["note"] = "before\n<script>alert(1)</script>\nafter"

	out, err := NewHTMLExporter(testOptions()).Export(r)
	require.NoError(t, err)
	page := string(out)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<title>llama3 / refine</title>")
	assert.Contains(t, page, "<h2")
	assert.NotContains(t, page, "<script>")
}

func TestForPath(t *testing.T) {
	tests := map[string]string{
		"out.md":       ".md",
		"OUT.MARKDOWN": ".md",
		"out.json":     ".json",
		"out.html":     ".html",
	}
	for path, ext := range tests {
		e, err := ForPath(path, nil)
		require.NoError(t, err, path)
		assert.Equal(t, ext, e.FileExtension(), path)
	}

	_, err := ForPath("out.pdf", nil)
	assert.Error(t, err)
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "answer.json")

	require.NoError(t, ToFile(sampleResult(), path, testOptions()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"answer": "42"`)
}

func TestRecordMarkdown(t *testing.T) {
	rec := api.Record{"document_id": "9", "title": "Paper", "doc": "## Abstract\n\nText."}

	md := RecordMarkdown("Paper", rec, "doc")

	assert.True(t, strings.HasPrefix(md, "# Paper\n\n"))
	assert.Contains(t, md, "- **document\\_id**: 9")
	assert.True(t, strings.HasSuffix(md, "---\n\n## Abstract\n\nText.\n"))
	assert.Equal(t, 1, strings.Count(md, "Abstract"))
}

func TestEmptyRecordMarkdown(t *testing.T) {
	assert.Contains(t, ResponseMarkdown(api.Record{}), "_empty_")
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"a: b"`, escapeYAML("a: b"))
	assert.Equal(t, `"line\nbreak"`, escapeYAML("line\nbreak"))
}
