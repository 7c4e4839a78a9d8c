// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the reusable widgets of the expview TUI:
// a cursor list, a glamour-backed markdown renderer, the spinner, the key
// map and the bottom status bar.
//
// Components hold no store state. Views feed them snapshots and render the
// result.
package components
