// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package proxy provides the development API proxy.
//
// Requests under the configured prefix (default "/api") have the prefix
// stripped and are forwarded to the backend origin:
//
//	GET /api/documents/9  ->  GET http://backend:5001/documents/9
//
// Endpoints served locally:
//   - GET /health   - proxy status and current backend origin
//   - GET /metrics  - Prometheus metrics (when enabled)
//
// Middleware (outermost first):
//   - Panic recovery
//   - Request IDs (X-Request-Id)
//   - Structured request logging
//   - CORS
//   - Per-IP rate limiting (when a limit is configured)
//
// The backend origin can be swapped at runtime with SetTarget; WatchConfig
// does so whenever the config file changes.
package proxy
