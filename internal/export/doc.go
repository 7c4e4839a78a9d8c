// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders query results and records for saving or display.
//
// Formats:
//   - Markdown (.md) - front matter, the submitted parameters and the response
//   - JSON (.json)   - the parameters and the raw response record
//   - HTML (.html)   - the Markdown rendition converted and sanitized
//
// RecordMarkdown and ResponseMarkdown are shared with the terminal views,
// which pass their output through glamour.
package export
