// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router maps locations to views.
//
// Routes are named path patterns whose ":name" segments capture parameters:
//
//	home            /
//	history         /history
//	document        /document/:document_id
//	experiment      /experiment/:uuid
//	query_response  /query/response
//
// Navigation runs every registered Guard before it commits. A guard that
// returns an error cancels the navigation: the current location, the back
// stack and the view cache are left exactly as they were. The default guard
// forbids moving from an experiment to the query response view.
//
// Views are built by per-route factories the first time their route is
// entered and are reused afterwards.
package router
