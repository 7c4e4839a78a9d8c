// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/expview/internal/api"
)

// RecordState is the snapshot held by the document and experiment stores.
type RecordState struct {
	// Record is nil until the first successful fetch. A failed fetch leaves
	// it unchanged.
	Record api.Record

	// ID is the identifier of the most recently requested record.
	ID string

	// RecordID is the identifier Record was fetched with. It differs from
	// ID while a new fetch is in flight or after it failed.
	RecordID string

	Loading bool
	Err     error
}

// recordStore is the shared implementation of DocumentStore and
// ExperimentStore.
type recordStore struct {
	kind  string
	fetch func(ctx context.Context, id string) (api.Record, error)
	state *Ref[RecordState]
	seq   Sequence
	log   *zap.Logger
}

func newRecordStore(kind string, fetch func(context.Context, string) (api.Record, error), log *zap.Logger) *recordStore {
	return &recordStore{
		kind:  kind,
		fetch: fetch,
		state: NewRef(RecordState{}),
		log:   orNop(log),
	}
}

func (s *recordStore) load(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalidArg(s.kind + " id is required")
	}

	ticket := s.seq.Next()
	s.state.Update(func(st RecordState) (RecordState, bool) {
		st.ID = id
		st.Loading = true
		st.Err = nil
		return st, true
	})

	rec, err := s.fetch(ctx, id)

	applied := s.state.Update(func(st RecordState) (RecordState, bool) {
		if !s.seq.IsCurrent(ticket) {
			return st, false
		}
		st.Loading = false
		if err != nil {
			st.Err = err
			return st, true
		}
		st.Record = rec
		st.RecordID = id
		return st, true
	})

	if err != nil {
		s.log.Warn("fetch failed", zap.String("store", s.kind), zap.String("id", id), zap.Error(err))
		if !applied {
			return ErrSuperseded
		}
		return err
	}
	if !applied {
		s.log.Debug("discarded stale response", zap.String("store", s.kind), zap.String("id", id))
		return ErrSuperseded
	}
	return nil
}

// =============================================================================
// DOCUMENT STORE
// =============================================================================

// DocumentStore holds the document currently shown.
type DocumentStore struct {
	inner *recordStore
}

// NewDocumentStore creates a DocumentStore backed by f.
func NewDocumentStore(f DocumentFetcher, log *zap.Logger) *DocumentStore {
	return &DocumentStore{inner: newRecordStore("document", f.GetDocument, log)}
}

// FetchDocument loads a document by its document_id and replaces the held
// document on success.
func (s *DocumentStore) FetchDocument(ctx context.Context, documentID string) error {
	return s.inner.load(ctx, documentID)
}

// State returns the current snapshot.
func (s *DocumentStore) State() RecordState { return s.inner.state.Get() }

// Document returns the held document, or nil before the first success.
func (s *DocumentStore) Document() api.Record { return s.inner.state.Get().Record }

// Ref exposes the state for subscription.
func (s *DocumentStore) Ref() *Ref[RecordState] { return s.inner.state }

// =============================================================================
// EXPERIMENT STORE
// =============================================================================

// ExperimentStore holds the experiment currently shown.
type ExperimentStore struct {
	inner *recordStore
}

// NewExperimentStore creates an ExperimentStore backed by f.
func NewExperimentStore(f ExperimentFetcher, log *zap.Logger) *ExperimentStore {
	return &ExperimentStore{inner: newRecordStore("experiment", f.GetExperiment, log)}
}

// FetchExperiment loads an experiment by uuid and replaces the held
// experiment on success.
func (s *ExperimentStore) FetchExperiment(ctx context.Context, uuid string) error {
	return s.inner.load(ctx, uuid)
}

// State returns the current snapshot.
func (s *ExperimentStore) State() RecordState { return s.inner.state.Get() }

// Experiment returns the held experiment, or nil before the first success.
func (s *ExperimentStore) Experiment() api.Record { return s.inner.state.Get().Record }

// Ref exposes the state for subscription.
func (s *ExperimentStore) Ref() *Ref[RecordState] { return s.inner.state }

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
