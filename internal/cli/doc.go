// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for expview.
//
// Every command runs over the same stores the TUI uses, so a command and a
// screen that show the same entity agree on fetching, fencing and errors.
//
// # Usage
//
//	os.Exit(cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr))
//
// # Commands
//
//   - tui: interactive client (default)
//   - documents, document: browse documents
//   - experiments, experiment: browse experiments
//   - comments, comment: read and post experiment comments
//   - query: run a model query, optionally exporting the result
//   - proxy: dev API proxy
//   - config, version
//
// All commands accept --json and write a JSONResponse envelope. Errors map to
// exit codes through GetExitCode.
package cli
