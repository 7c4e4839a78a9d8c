// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across expview.
//
// # Key Functions
//
// Text:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width aware truncation (CJK safe)
//   - NormalizeText: NFC normalization and whitespace trimming for user input
//
// Files:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	display := util.TruncateWidth(title, 40)
//	text := util.NormalizeText(input)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
