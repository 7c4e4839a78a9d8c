// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/expview/internal/api"
	"github.com/jeranaias/expview/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Result is one settled model query.
type Result struct {
	Query       api.QueryParams `json:"query"`
	Response    api.Record      `json:"response"`
	SubmittedAt time.Time       `json:"submitted_at"`
	Elapsed     time.Duration   `json:"elapsed_ns,omitempty"`
}

// Exporter converts a Result to a file format.
type Exporter interface {
	Export(r *Result) ([]byte, error)

	// FileExtension returns the extension including the dot.
	FileExtension() string
}

// Options configures exporters.
type Options struct {
	// IncludeMetadata adds front matter and timing details.
	IncludeMetadata bool

	// Now stamps the export. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() *Options {
	return &Options{IncludeMetadata: true, Now: time.Now}
}

func (o *Options) now() time.Time {
	if o == nil || o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// ForPath picks an exporter from the file extension of path.
func ForPath(path string, opts *Options) (Exporter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return NewMarkdownExporter(opts), nil
	case ".json":
		return NewJSONExporter(opts), nil
	case ".html", ".htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (use .md, .json or .html)", filepath.Ext(path))
	}
}

// ToFile exports r to path, choosing the format from the extension. The file
// is replaced atomically.
func ToFile(r *Result, path string, opts *Options) error {
	exporter, err := ForPath(path, opts)
	if err != nil {
		return err
	}
	content, err := exporter.Export(r)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func validate(r *Result) error {
	if r == nil {
		return fmt.Errorf("result is nil")
	}
	if r.Response == nil {
		return fmt.Errorf("result has no response")
	}
	return nil
}

// formatDuration formats an elapsed time for display.
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := float64(ms) / 1000.0
	if seconds < 60 {
		return fmt.Sprintf("%.2fs", seconds)
	}
	minutes := int(seconds / 60)
	return fmt.Sprintf("%dm %ds", minutes, int(seconds)%60)
}
