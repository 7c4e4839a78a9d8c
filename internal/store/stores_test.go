// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/expview/internal/api"
)

func TestStoresBusyTracksInFlightRequests(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fb := &fakeBackend{getExperiment: func(_ context.Context, uuid string) (api.Record, error) {
		close(started)
		<-release
		return api.Record{"uuid": uuid}, nil
	}}
	s := New(fb, Options{})
	assert.False(t, s.Busy())

	done := make(chan error, 1)
	go func() { done <- s.Experiment.FetchExperiment(context.Background(), "e1") }()
	<-started
	assert.True(t, s.Busy())

	close(release)
	require.NoError(t, <-done)
	assert.False(t, s.Busy())
}

func TestStoresQuerierOverride(t *testing.T) {
	fb := &fakeBackend{}
	s := New(fb, Options{Querier: StubQuerier{}})

	params := api.QueryParams{Model: "m", Pipeline: "refine", Document: "d"}
	require.NoError(t, s.Query.QueryModel(context.Background(), params))

	assert.Empty(t, fb.queried, "stub answers without the backend")
	assert.Equal(t, true, s.Query.Response()["mock"])
}

func TestStoresObservablesCoverEveryStore(t *testing.T) {
	s := New(&fakeBackend{}, Options{})
	obs := s.Observables()
	require.Len(t, obs, 6)

	var changes atomic.Int32
	for _, o := range obs {
		cancel := o.OnChange(func() { changes.Add(1) })
		defer cancel()
	}

	require.NoError(t, s.Document.FetchDocument(context.Background(), "1"))
	assert.Equal(t, int32(2), changes.Load(), "loading and settled")
}
