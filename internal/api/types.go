// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// =============================================================================
// RECORDS
// =============================================================================

// Record is an opaque JSON object returned by the backend. The client never
// validates or normalizes its shape; views read the fields they know about.
type Record map[string]any

// String returns the field as display text. Missing fields and nulls are "".
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// First returns the first non-empty field among keys.
func (r Record) First(keys ...string) string {
	for _, k := range keys {
		if s := r.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Keys returns the field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DocumentID returns the identifier used to address a document.
func (r Record) DocumentID() string {
	return r.First("document_id", "id", "uuid")
}

// ExperimentID returns the identifier used to address an experiment.
func (r Record) ExperimentID() string {
	return r.First("uuid", "id")
}

// Title returns a human readable label for list rows.
func (r Record) Title() string {
	return r.First("title", "name", "uuid", "document_id")
}

// =============================================================================
// COMMENTS
// =============================================================================

// Comment is a comment attached to an experiment.
type Comment struct {
	UUID         string `json:"uuid,omitempty"`
	DocumentUUID string `json:"document_uuid"`
	Text         string `json:"text"`
	Author       string `json:"author,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// NewComment is the body of POST /comment.
type NewComment struct {
	DocumentUUID string `json:"document_uuid"`
	Text         string `json:"text"`
}

// =============================================================================
// MODEL QUERIES
// =============================================================================

// QueryParams is the fixed field set submitted to /query_model. Document
// holds the document_id of the document to run the pipeline over.
type QueryParams struct {
	Model          string `json:"model" validate:"required"`
	Pipeline       string `json:"pipeline" validate:"required,pipeline"`
	QuestionPrompt string `json:"question_prompt"`
	RefinePrompt   string `json:"refine_prompt"`
	Document       string `json:"document" validate:"required"`
}
