// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jeranaias/expview/internal/api"
)

// fakeBackend is an in-memory Backend. Each method defers to an optional
// hook; unset hooks return zero values.
type fakeBackend struct {
	mu sync.Mutex

	getDocument     func(ctx context.Context, id string) (api.Record, error)
	getExperiment   func(ctx context.Context, uuid string) (api.Record, error)
	listDocuments   func(ctx context.Context) ([]api.Record, error)
	listExperiments func(ctx context.Context) ([]api.Record, error)
	listComments    func(ctx context.Context, uuid string) ([]api.Comment, error)
	postComment     func(ctx context.Context, c api.NewComment) (api.Comment, error)
	queryModel      func(ctx context.Context, p api.QueryParams) (api.Record, error)

	calls   atomic.Int32
	posted  []api.NewComment
	queried []api.QueryParams
}

func (f *fakeBackend) GetDocument(ctx context.Context, id string) (api.Record, error) {
	f.calls.Add(1)
	if f.getDocument == nil {
		return api.Record{"document_id": id}, nil
	}
	return f.getDocument(ctx, id)
}

func (f *fakeBackend) GetExperiment(ctx context.Context, uuid string) (api.Record, error) {
	f.calls.Add(1)
	if f.getExperiment == nil {
		return api.Record{"uuid": uuid}, nil
	}
	return f.getExperiment(ctx, uuid)
}

func (f *fakeBackend) ListDocuments(ctx context.Context) ([]api.Record, error) {
	f.calls.Add(1)
	if f.listDocuments == nil {
		return nil, nil
	}
	return f.listDocuments(ctx)
}

func (f *fakeBackend) ListExperiments(ctx context.Context) ([]api.Record, error) {
	f.calls.Add(1)
	if f.listExperiments == nil {
		return nil, nil
	}
	return f.listExperiments(ctx)
}

func (f *fakeBackend) ListComments(ctx context.Context, uuid string) ([]api.Comment, error) {
	f.calls.Add(1)
	if f.listComments == nil {
		return nil, nil
	}
	return f.listComments(ctx, uuid)
}

func (f *fakeBackend) PostComment(ctx context.Context, c api.NewComment) (api.Comment, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.posted = append(f.posted, c)
	f.mu.Unlock()
	if f.postComment == nil {
		return api.Comment{DocumentUUID: c.DocumentUUID, Text: c.Text}, nil
	}
	return f.postComment(ctx, c)
}

func (f *fakeBackend) QueryModel(ctx context.Context, p api.QueryParams) (api.Record, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.queried = append(f.queried, p)
	f.mu.Unlock()
	if f.queryModel == nil {
		return api.Record{}, nil
	}
	return f.queryModel(ctx, p)
}

var errBoom = &api.ClientError{Kind: api.KindStatus, StatusCode: 500, Message: "boom"}
