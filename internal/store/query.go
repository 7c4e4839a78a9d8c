// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jeranaias/expview/internal/api"
)

// DefaultPipelines are the pipelines the backend implements. The TUI offers
// them when no pipelines are configured.
var DefaultPipelines = []string{"refine", "mapreduce"}

// QueryState is the snapshot held by a QueryStore.
type QueryState struct {
	// Query is the most recently submitted parameter set.
	Query api.QueryParams

	// Response is the result of the latest settled query. It is kept until
	// a newer query succeeds.
	Response api.Record

	Querying bool
	Err      error

	SubmittedAt time.Time
	Elapsed     time.Duration
}

// QueryStore submits model queries and holds the latest response.
type QueryStore struct {
	querier  Querier
	validate *validator.Validate
	state    *Ref[QueryState]
	seq      Sequence
	log      *zap.Logger
	now      func() time.Time
}

// NewQueryStore creates a QueryStore. pipelines restricts the accepted
// pipeline names; when empty any non-blank name is passed to the backend,
// which rejects unknown pipelines itself.
func NewQueryStore(q Querier, pipelines []string, log *zap.Logger) *QueryStore {
	return &QueryStore{
		querier:  q,
		validate: newQueryValidator(pipelines),
		state:    NewRef(QueryState{}),
		log:      orNop(log),
		now:      time.Now,
	}
}

// QueryModel validates and submits params. The params are stored as Query
// and sent exactly as given. Querying is set immediately and cleared when the
// latest submission settles; results of superseded submissions are dropped.
func (s *QueryStore) QueryModel(ctx context.Context, params api.QueryParams) error {
	if err := s.Validate(params); err != nil {
		return err
	}

	ticket := s.seq.Next()
	started := s.now()
	s.state.Update(func(st QueryState) (QueryState, bool) {
		st.Query = params
		st.Querying = true
		st.Err = nil
		st.SubmittedAt = started
		st.Elapsed = 0
		return st, true
	})
	s.log.Info("query submitted",
		zap.String("model", params.Model),
		zap.String("pipeline", params.Pipeline),
		zap.String("document", params.Document))

	resp, err := s.querier.QueryModel(ctx, params)
	elapsed := s.now().Sub(started)

	applied := s.state.Update(func(st QueryState) (QueryState, bool) {
		if !s.seq.IsCurrent(ticket) {
			return st, false
		}
		st.Querying = false
		st.Elapsed = elapsed
		if err != nil {
			st.Err = err
			return st, true
		}
		st.Response = resp
		return st, true
	})

	if err != nil {
		s.log.Warn("query failed", zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		s.log.Info("query finished", zap.Duration("elapsed", elapsed))
	}
	if !applied {
		return ErrSuperseded
	}
	return err
}

// Validate checks params without submitting them. Whitespace-only required
// fields count as missing.
func (s *QueryStore) Validate(params api.QueryParams) error {
	params.Model = strings.TrimSpace(params.Model)
	params.Pipeline = strings.TrimSpace(params.Pipeline)
	params.Document = strings.TrimSpace(params.Document)

	err := s.validate.Struct(params)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidArg(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "pipeline":
			msgs = append(msgs, "unknown pipeline "+quote(fe.Value()))
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return invalidArg(strings.Join(msgs, "; "))
}

// State returns the current snapshot.
func (s *QueryStore) State() QueryState { return s.state.Get() }

// Querying reports whether the latest submission is in flight.
func (s *QueryStore) Querying() bool { return s.state.Get().Querying }

// Response returns the latest response, or nil.
func (s *QueryStore) Response() api.Record { return s.state.Get().Response }

// Ref exposes the state for subscription.
func (s *QueryStore) Ref() *Ref[QueryState] { return s.state }

func newQueryValidator(pipelines []string) *validator.Validate {
	allowed := make(map[string]bool, len(pipelines))
	for _, p := range pipelines {
		allowed[p] = true
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("pipeline", func(fl validator.FieldLevel) bool {
		return len(allowed) == 0 || allowed[fl.Field().String()]
	})
	return v
}

func quote(v any) string {
	s, _ := v.(string)
	return `"` + s + `"`
}

// =============================================================================
// STUB QUERIER
// =============================================================================

// DefaultStubDelay is how long StubQuerier takes to answer.
const DefaultStubDelay = 2500 * time.Millisecond

// StubQuerier answers queries locally after a fixed delay without calling
// the backend. The response echoes the submitted parameters.
type StubQuerier struct {
	Delay time.Duration
}

// QueryModel implements Querier.
func (q StubQuerier) QueryModel(ctx context.Context, params api.QueryParams) (api.Record, error) {
	timer := time.NewTimer(q.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return api.Record{
		"mock":            true,
		"model":           params.Model,
		"pipeline":        params.Pipeline,
		"question_prompt": params.QuestionPrompt,
		"refine_prompt":   params.RefinePrompt,
		"document":        params.Document,
	}, nil
}
