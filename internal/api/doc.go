// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the experiment UI backend.
//
// The backend exposes documents, experiments, experiment comments and a
// model query endpoint. Records are passed through as opaque JSON objects
// (Record); only comments and query parameters have a typed shape.
//
// # Key Types
//
//   - Client: HTTP client for the backend API
//   - Record: an opaque JSON object (document, experiment, query result)
//   - Comment, NewComment: experiment comments
//   - QueryParams: the fixed field set submitted to /query_model
//   - ClientError: typed failure (connection, timeout, status, decode)
//
// # Usage
//
//	client := api.NewClientWithConfig(&api.ClientConfig{
//	    BaseURL: "http://127.0.0.1:8000/api",
//	})
//	docs, err := client.ListDocuments(ctx)
//	if errors.Is(err, api.ErrUnavailable) {
//	    // backend not reachable
//	}
package api
