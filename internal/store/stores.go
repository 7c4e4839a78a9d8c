// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"

	"go.uber.org/zap"
)

// Options configures New.
type Options struct {
	// Context bounds the background list fetches. Defaults to Background.
	Context context.Context

	// Pipelines restricts the names the query store accepts. Empty accepts
	// any pipeline.
	Pipelines []string

	// Querier overrides the backend for model queries, e.g. StubQuerier.
	Querier Querier

	Logger *zap.Logger
}

// Stores is the full set of application stores.
type Stores struct {
	Document    *DocumentStore
	Documents   *ListStore
	Experiment  *ExperimentStore
	Experiments *ListStore
	Comments    *CommentsStore
	Query       *QueryStore
}

// New wires every store to b.
func New(b Backend, opts Options) *Stores {
	log := orNop(opts.Logger).Named("store")
	querier := opts.Querier
	if querier == nil {
		querier = b
	}
	return &Stores{
		Document:    NewDocumentStore(b, log),
		Documents:   NewListStore(opts.Context, "documents", b.ListDocuments, log),
		Experiment:  NewExperimentStore(b, log),
		Experiments: NewListStore(opts.Context, "experiments", b.ListExperiments, log),
		Comments:    NewCommentsStore(b, log),
		Query:       NewQueryStore(querier, opts.Pipelines, log),
	}
}

// Observables returns every store's Ref for change tracking.
func (s *Stores) Observables() []Observable {
	return []Observable{
		s.Document.Ref(),
		s.Documents.Ref(),
		s.Experiment.Ref(),
		s.Experiments.Ref(),
		s.Comments.Ref(),
		s.Query.Ref(),
	}
}

// Busy reports whether any store has a request in flight.
func (s *Stores) Busy() bool {
	if s.Document.State().Loading || s.Experiment.State().Loading {
		return true
	}
	if s.Documents.Status() == StatusLoading || s.Experiments.Status() == StatusLoading {
		return true
	}
	cs := s.Comments.State()
	return cs.Loading || cs.Posting() || s.Query.Querying()
}
