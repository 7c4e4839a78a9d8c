// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the client-side state of expview.
//
// Each store owns one Ref with an immutable state snapshot and exposes the
// actions that are the only mutators of that state. Views subscribe to a
// store's Ref and re-render when it changes.
//
// # Stores
//
//   - DocumentStore: the document currently shown (FetchDocument)
//   - ExperimentStore: the experiment currently shown (FetchExperiment)
//   - ListStore: lazily fetched, single-shot document/experiment lists
//   - CommentsStore: an experiment's comments (FetchComments, PostComment)
//   - QueryStore: model query submission and its response (QueryModel)
//
// # Request Fencing
//
// Overlapping calls to the same action are not deduplicated. Every action
// takes a ticket from its store's Sequence and a response is applied only if
// its ticket is still the latest one issued, so a slow early response can no
// longer overwrite a newer one. Superseded calls return ErrSuperseded.
//
// # Failures
//
// Actions return their error and also record it in the state's Err field.
// In-flight flags (Loading, Querying) are cleared whenever the latest request
// settles, on success and on failure.
package store
