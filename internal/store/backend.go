// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"

	"github.com/jeranaias/expview/internal/api"
)

// DocumentFetcher loads a single document.
type DocumentFetcher interface {
	GetDocument(ctx context.Context, documentID string) (api.Record, error)
}

// ExperimentFetcher loads a single experiment.
type ExperimentFetcher interface {
	GetExperiment(ctx context.Context, uuid string) (api.Record, error)
}

// CommentService lists and creates experiment comments.
type CommentService interface {
	ListComments(ctx context.Context, uuid string) ([]api.Comment, error)
	PostComment(ctx context.Context, comment api.NewComment) (api.Comment, error)
}

// Querier runs a model query.
type Querier interface {
	QueryModel(ctx context.Context, params api.QueryParams) (api.Record, error)
}

// Backend is everything the stores need from the API. *api.Client
// implements it.
type Backend interface {
	DocumentFetcher
	ExperimentFetcher
	CommentService
	Querier
	ListDocuments(ctx context.Context) ([]api.Record, error)
	ListExperiments(ctx context.Context) ([]api.Record, error)
}

var _ Backend = (*api.Client)(nil)

// invalidArg builds the error returned for rejected action arguments.
func invalidArg(msg string) error {
	return &api.ClientError{Kind: api.KindInvalidArgument, Message: msg}
}
