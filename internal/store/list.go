// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/jeranaias/expview/internal/api"
)

// ListFunc fetches a whole collection.
type ListFunc func(ctx context.Context) ([]api.Record, error)

// ListState is the snapshot held by a ListStore.
type ListState struct {
	Items  []api.Record
	Status Status
	Err    error

	// done is closed when the fetch started for this state finishes.
	done chan struct{}
}

// ListStore is a lazily fetched collection. The first access starts one
// background fetch; the collection is never refetched while it is loading
// or once it is ready. A failed fetch is only retried through Retry.
type ListStore struct {
	name  string
	fetch ListFunc
	base  context.Context
	state *Ref[ListState]
	log   *zap.Logger
}

// NewListStore creates a ListStore. Background fetches run with base, which
// may be nil.
func NewListStore(base context.Context, name string, fetch ListFunc, log *zap.Logger) *ListStore {
	if base == nil {
		base = context.Background()
	}
	return &ListStore{
		name:  name,
		fetch: fetch,
		base:  base,
		state: NewRef(ListState{Status: StatusUnfetched}),
		log:   orNop(log),
	}
}

// Items returns the current collection. When nothing has been fetched yet it
// starts the background fetch and returns the (empty) snapshot without
// waiting.
func (s *ListStore) Items() []api.Record {
	s.ensure()
	return s.state.Get().Items
}

// Load triggers or joins the fetch and waits for it to finish.
func (s *ListStore) Load(ctx context.Context) ([]api.Record, error) {
	s.ensure()
	st := s.state.Get()
	if st.done != nil {
		select {
		case <-st.done:
		case <-ctx.Done():
			return st.Items, ctx.Err()
		}
	}
	st = s.state.Get()
	if st.Status == StatusFailed {
		return st.Items, st.Err
	}
	return st.Items, nil
}

// Retry re-arms a failed list and starts a new fetch. It reports false, and
// does nothing, unless the last fetch failed.
func (s *ListStore) Retry() bool {
	rearmed := s.state.Update(func(st ListState) (ListState, bool) {
		if st.Status != StatusFailed {
			return st, false
		}
		st.Status = StatusUnfetched
		st.Err = nil
		st.done = nil
		return st, true
	})
	if rearmed {
		s.ensure()
	}
	return rearmed
}

// State returns the current snapshot.
func (s *ListStore) State() ListState { return s.state.Get() }

// Status returns the fetch status.
func (s *ListStore) Status() Status { return s.state.Get().Status }

// Ref exposes the state for subscription.
func (s *ListStore) Ref() *Ref[ListState] { return s.state }

func (s *ListStore) ensure() {
	var done chan struct{}
	started := s.state.Update(func(st ListState) (ListState, bool) {
		if st.Status != StatusUnfetched {
			return st, false
		}
		done = make(chan struct{})
		st.Status = StatusLoading
		st.done = done
		return st, true
	})
	if started {
		go s.run(done)
	}
}

func (s *ListStore) run(done chan struct{}) {
	defer close(done)

	items, err := s.fetch(s.base)
	if err != nil {
		s.log.Warn("list fetch failed", zap.String("list", s.name), zap.Error(err))
	} else {
		s.log.Debug("list fetched", zap.String("list", s.name), zap.Int("count", len(items)))
	}

	s.state.Update(func(st ListState) (ListState, bool) {
		if err != nil {
			st.Status = StatusFailed
			st.Err = err
			return st, true
		}
		if items == nil {
			items = []api.Record{}
		}
		st.Items = items
		st.Status = StatusReady
		st.Err = nil
		return st, true
	})
}
