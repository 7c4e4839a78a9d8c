// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This test file runs the commands end to end against an httptest backend.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/expview/internal/api"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

type fakeBackend struct {
	mu      sync.Mutex
	posted  []api.NewComment
	queried []api.QueryParams
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/documents", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, []api.Record{{"document_id": "d1", "title": "Guide"}})
	})
	mux.HandleFunc("GET /api/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "d1" {
			writeTestJSON(w, http.StatusNotFound, map[string]string{"detail": "Document not found"})
			return
		}
		writeTestJSON(w, http.StatusOK, api.Record{"document_id": "d1", "title": "Guide", "doc": "# Hello\n\nBody text."})
	})
	mux.HandleFunc("GET /api/experiments", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, []api.Record{{"uuid": "e1", "title": "first run"}})
	})
	mux.HandleFunc("GET /api/experiments/{uuid}", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, api.Record{"uuid": r.PathValue("uuid"), "title": "first run", "model": "llama3"})
	})
	mux.HandleFunc("GET /api/comments/{uuid}", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, []api.Comment{{UUID: "c1", DocumentUUID: r.PathValue("uuid"), Text: "looks good", Author: "ana"}})
	})
	mux.HandleFunc("POST /api/comment", func(w http.ResponseWriter, r *http.Request) {
		var in api.NewComment
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeTestJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		f.mu.Lock()
		f.posted = append(f.posted, in)
		f.mu.Unlock()
		writeTestJSON(w, http.StatusOK, api.Comment{UUID: "c2", DocumentUUID: in.DocumentUUID, Text: in.Text})
	})
	mux.HandleFunc("POST /api/query_model", func(w http.ResponseWriter, r *http.Request) {
		var in api.QueryParams
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeTestJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		f.mu.Lock()
		f.queried = append(f.queried, in)
		f.mu.Unlock()
		writeTestJSON(w, http.StatusOK, api.Record{"answer": "forty-two"})
	})
	return mux
}

func (f *fakeBackend) Posted() []api.NewComment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.NewComment(nil), f.posted...)
}

func (f *fakeBackend) Queried() []api.QueryParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.QueryParams(nil), f.queried...)
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// =============================================================================
// HELPERS
// =============================================================================

type harness struct {
	backend *fakeBackend
	dir     string
	config  string
}

func newHarness(t *testing.T, extraTOML string) *harness {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	cfgPath := filepath.Join(dir, "config.toml")
	toml := fmt.Sprintf("[api]\nbase_url = %q\n\n[log]\nfile = %q\n\n%s",
		srv.URL+"/api", filepath.Join(dir, "expview.log"), extraTOML)
	require.NoError(t, os.WriteFile(cfgPath, []byte(toml), 0600))

	return &harness{backend: fb, dir: dir, config: cfgPath}
}

func (h *harness) run(t *testing.T, argv ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), append([]string{"--config", h.config}, argv...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *string         `json:"error"`
	ErrorType string          `json:"error_type"`
	Command   string          `json:"command"`
}

func decodeEnvelope(t *testing.T, out string) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env
}

// =============================================================================
// RECORD COMMANDS
// =============================================================================

func TestDocumentsJSON(t *testing.T) {
	h := newHarness(t, "")
	code, out, _ := h.run(t, "documents", "--json")
	require.Equal(t, ExitSuccess, code, out)

	env := decodeEnvelope(t, out)
	assert.True(t, env.Success)
	assert.Equal(t, "documents", env.Command)

	var items []api.Record
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "d1", items[0].DocumentID())
}

func TestDocumentsText(t *testing.T) {
	h := newHarness(t, "")
	code, out, _ := h.run(t, "documents")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Documents (1)")
	assert.Contains(t, out, "d1")
	assert.Contains(t, out, "Guide")
}

func TestDocumentPrintsMarkdown(t *testing.T) {
	h := newHarness(t, "")
	code, out, _ := h.run(t, "document", "d1")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "# Guide")
	assert.Contains(t, out, "Body text.")
}

func TestDocumentNotFound(t *testing.T) {
	h := newHarness(t, "")
	code, out, _ := h.run(t, "--json", "document", "nope")
	assert.Equal(t, ExitNotFoundError, code)

	env := decodeEnvelope(t, out)
	assert.False(t, env.Success)
	assert.Equal(t, "api_status", env.ErrorType)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "Document not found")
}

func TestDocumentRequiresID(t *testing.T) {
	h := newHarness(t, "")
	code, _, errOut := h.run(t, "document")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "document id")
}

func TestExperimentsText(t *testing.T) {
	h := newHarness(t, "")
	code, out, _ := h.run(t, "history")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Experiments (1)")
	assert.Contains(t, out, "first run")
}

func TestExperimentWithComments(t *testing.T) {
	h := newHarness(t, "")
	code, out, _ := h.run(t, "experiment", "e1", "--json")
	require.Equal(t, ExitSuccess, code, out)

	var data ExperimentOutput
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &data))
	assert.Equal(t, "e1", data.Experiment.ExperimentID())
	require.Len(t, data.Comments, 1)
	assert.Equal(t, "looks good", data.Comments[0].Text)

	code, out, _ = h.run(t, "experiment", "e1")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "## Comments (1)")
	assert.Contains(t, out, "**ana**: looks good")
}

func TestComments(t *testing.T) {
	h := newHarness(t, "")
	code, out, _ := h.run(t, "comments", "e1")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "looks good")
}

func TestCommentPost(t *testing.T) {
	h := newHarness(t, "")
	code, out, _ := h.run(t, "--json", "comment", "e1", "nice", "work")
	require.Equal(t, ExitSuccess, code, out)

	var created api.Comment
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &created))
	assert.Equal(t, "c2", created.UUID)

	posted := h.backend.Posted()
	require.Len(t, posted, 1)
	assert.Equal(t, api.NewComment{DocumentUUID: "e1", Text: "nice work"}, posted[0])
}

func TestCommentRejectsBlankText(t *testing.T) {
	h := newHarness(t, "")
	code, _, _ := h.run(t, "comment", "e1", "   ")
	assert.Equal(t, ExitUsageError, code)
	assert.Empty(t, h.backend.Posted())
}

// =============================================================================
// QUERY
// =============================================================================

func TestQueryUsesConfigDefaultsAndExports(t *testing.T) {
	h := newHarness(t, "")
	out := filepath.Join(h.dir, "answer.md")
	code, stdout, _ := h.run(t, "query", "--question", "What changed?", "--out", out, "d1")
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "forty-two")
	assert.Contains(t, stdout, "Saved to")

	queried := h.backend.Queried()
	require.Len(t, queried, 1)
	assert.Equal(t, api.QueryParams{
		Model:          "llama3",
		Pipeline:       "refine",
		QuestionPrompt: "What changed?",
		Document:       "d1",
	}, queried[0])

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "forty-two")
}

func TestQueryJSON(t *testing.T) {
	h := newHarness(t, "")
	code, out, _ := h.run(t, "query", "--json", "--document", "d1", "--pipeline", "mapreduce", "--model", "mistral")
	require.Equal(t, ExitSuccess, code, out)

	var result struct {
		Query    api.QueryParams `json:"query"`
		Response api.Record      `json:"response"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &result))
	assert.Equal(t, "mapreduce", result.Query.Pipeline)
	assert.Equal(t, "mistral", result.Query.Model)
	assert.Equal(t, "forty-two", result.Response.String("answer"))
}

func TestQueryValidation(t *testing.T) {
	h := newHarness(t, "")

	code, _, errOut := h.run(t, "query", "--question", "x")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "document is required")

	code, _, _ = h.run(t, "query", "--out", "answer.txt", "d1")
	assert.Equal(t, ExitUsageError, code)

	assert.Empty(t, h.backend.Queried())
}

func TestQueryPipelineAllowList(t *testing.T) {
	h := newHarness(t, "[query]\npipelines = [\"refine\", \"mapreduce\"]\n")
	code, _, errOut := h.run(t, "query", "--pipeline", "nope", "d1")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, `unknown pipeline "nope"`)
	assert.Empty(t, h.backend.Queried())

	open := newHarness(t, "")
	code, out, _ := open.run(t, "query", "--pipeline", "p1", "d1")
	require.Equal(t, ExitSuccess, code, out)
	require.Len(t, open.backend.Queried(), 1)
	assert.Equal(t, "p1", open.backend.Queried()[0].Pipeline)
}

func TestQueryMock(t *testing.T) {
	h := newHarness(t, "[query]\nmock = true\nmock_delay_ms = 1\n")
	code, out, _ := h.run(t, "--json", "query", "d1")
	require.Equal(t, ExitSuccess, code, out)

	var result struct {
		Response api.Record `json:"response"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &result))
	assert.Equal(t, true, result.Response["mock"])
	assert.Empty(t, h.backend.Queried())
}

// =============================================================================
// ERRORS AND GLOBAL FLAGS
// =============================================================================

func TestUnavailableBackend(t *testing.T) {
	h := newHarness(t, "")
	code, _, errOut := h.run(t, "--api", "http://127.0.0.1:1/api", "documents")
	assert.Equal(t, ExitNetworkError, code)
	assert.Contains(t, errOut, "[ERROR]")
}

func TestInvalidAPIFlag(t *testing.T) {
	h := newHarness(t, "")
	code, _, _ := h.run(t, "--api", "ftp://nowhere", "documents")
	assert.Equal(t, ExitUsageError, code)
}

func TestMissingConfigFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "absent.toml"), "documents"}, &stdout, &stderr)
	assert.Equal(t, ExitConfigError, code)
}

func TestUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"frobnicate"}, &stdout, &stderr)
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, stderr.String(), "unknown command")
}

func TestHelpAndVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, ExitSuccess, Run(context.Background(), []string{"help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Usage:")
	assert.Contains(t, stdout.String(), Version)

	stdout.Reset()
	require.Equal(t, ExitSuccess, Run(context.Background(), []string{"version", "--json"}, &stdout, &stderr))
	var info VersionInfo
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, stdout.String()).Data, &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestTUIRejectsJSON(t *testing.T) {
	h := newHarness(t, "")
	code, _, _ := h.run(t, "tui", "--json")
	assert.Equal(t, ExitUsageError, code)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigInitPathShow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "nested", "config.toml")
	run := func(argv ...string) (int, string) {
		var stdout, stderr bytes.Buffer
		code := Run(context.Background(), append([]string{"--config", path}, argv...), &stdout, &stderr)
		return code, stdout.String() + stderr.String()
	}

	code, out := run("config", "path", "--json")
	require.Equal(t, ExitSuccess, code)
	var info ConfigPathInfo
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &info))
	assert.Equal(t, path, info.Path)
	assert.False(t, info.Exists)

	code, out = run("config", "init")
	require.Equal(t, ExitSuccess, code, out)
	assert.FileExists(t, path)

	code, _ = run("config", "init")
	assert.Equal(t, ExitUsageError, code)

	code, _ = run("config", "init", "--force")
	assert.Equal(t, ExitSuccess, code)

	code, out = run("config", "show", "--json")
	require.Equal(t, ExitSuccess, code, out)
	var cfg struct {
		API struct {
			BaseURL string `json:"base_url"`
		} `json:"api"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &cfg))
	assert.Equal(t, "http://127.0.0.1:8000/api", cfg.API.BaseURL)

	code, _ = run("config", "bogus")
	assert.Equal(t, ExitUsageError, code)
}

// =============================================================================
// PROXY
// =============================================================================

func TestProxyStopsWithContext(t *testing.T) {
	h := newHarness(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	code := Run(ctx, []string{"--config", h.config, "--json", "proxy", "--listen", "127.0.0.1:0", "--target", "http://127.0.0.1:5001"}, &stdout, &stderr)
	require.Equal(t, ExitSuccess, code, stderr.String())

	var info ProxyInfo
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, stdout.String()).Data, &info))
	assert.Equal(t, "127.0.0.1:0", info.Listen)
	assert.Equal(t, "/api", info.Prefix)
	assert.Equal(t, "http://127.0.0.1:5001", info.Target)
}

func TestProxyRejectsBadTarget(t *testing.T) {
	h := newHarness(t, "")
	code, _, _ := h.run(t, "proxy", "--listen", "127.0.0.1:0", "--target", "not a url")
	assert.Equal(t, ExitUsageError, code)
}
