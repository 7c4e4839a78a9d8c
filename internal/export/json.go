// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"
)

// JSONExporter exports the parameters and the unmodified response record.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonDocument struct {
	*Result
	Exported string `json:"exported,omitempty"`
}

// Export converts a result to indented JSON.
func (e *JSONExporter) Export(r *Result) ([]byte, error) {
	if err := validate(r); err != nil {
		return nil, err
	}
	doc := jsonDocument{Result: r}
	if e.options.IncludeMetadata {
		doc.Exported = e.options.now().Format(time.RFC3339)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
