// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/expview/internal/api"
	"github.com/jeranaias/expview/internal/util"
)

// CommentsState is the snapshot held by a CommentsStore.
type CommentsState struct {
	// ExperimentUUID is the experiment the comments belong to.
	ExperimentUUID string

	// Comments is newest first once a comment has been posted locally;
	// otherwise it is in the order the backend returned.
	Comments []api.Comment

	Loading bool
	Err     error

	posting int

	// postedDuringFetch holds comments created while the latest fetch was
	// in flight. Its response may predate them.
	postedDuringFetch []postedComment
}

type postedComment struct {
	uuid    string
	comment api.Comment
}

// Posting reports whether a PostComment call is in flight.
func (s CommentsState) Posting() bool { return s.posting > 0 }

// CommentsStore holds the comments of one experiment.
type CommentsStore struct {
	svc   CommentService
	state *Ref[CommentsState]
	seq   Sequence
	log   *zap.Logger
}

// NewCommentsStore creates a CommentsStore backed by svc.
func NewCommentsStore(svc CommentService, log *zap.Logger) *CommentsStore {
	return &CommentsStore{
		svc:   svc,
		state: NewRef(CommentsState{}),
		log:   orNop(log),
	}
}

// FetchComments replaces the collection with the comments of experiment
// uuid. Loading is cleared when the latest fetch settles, including on
// failure. Comments posted to uuid while the fetch was in flight are kept at
// the front when the response does not contain them.
func (s *CommentsStore) FetchComments(ctx context.Context, uuid string) (err error) {
	uuid = strings.TrimSpace(uuid)
	if uuid == "" {
		return invalidArg("experiment uuid is required")
	}

	ticket := s.seq.Next()
	s.state.Update(func(st CommentsState) (CommentsState, bool) {
		st.Loading = true
		st.Err = nil
		st.postedDuringFetch = nil
		return st, true
	})

	var comments []api.Comment
	defer func() {
		applied := s.state.Update(func(st CommentsState) (CommentsState, bool) {
			if !s.seq.IsCurrent(ticket) {
				return st, false
			}
			st.Loading = false
			posted := st.postedDuringFetch
			st.postedDuringFetch = nil
			if err != nil {
				st.Err = err
				return st, true
			}
			st.ExperimentUUID = uuid
			st.Comments = withPosted(comments, posted, uuid)
			return st, true
		})
		if err != nil {
			s.log.Warn("comments fetch failed", zap.String("uuid", uuid), zap.Error(err))
		}
		if !applied {
			err = ErrSuperseded
		}
	}()

	comments, err = s.svc.ListComments(ctx, uuid)
	return err
}

// PostComment creates a comment on experiment uuid. The text is normalized
// to NFC with surrounding whitespace removed; blank text is rejected without
// a request. The created comment is inserted at the front of the collection.
func (s *CommentsStore) PostComment(ctx context.Context, uuid, text string) (api.Comment, error) {
	uuid = strings.TrimSpace(uuid)
	if uuid == "" {
		return api.Comment{}, invalidArg("experiment uuid is required")
	}
	text = util.NormalizeText(text)
	if text == "" {
		return api.Comment{}, invalidArg("comment text is required")
	}

	s.state.Update(func(st CommentsState) (CommentsState, bool) {
		st.posting++
		return st, true
	})

	created, err := s.svc.PostComment(ctx, api.NewComment{DocumentUUID: uuid, Text: text})

	s.state.Update(func(st CommentsState) (CommentsState, bool) {
		st.posting--
		if err != nil {
			st.Err = err
			return st, true
		}
		st.Err = nil
		if st.Loading {
			posted := make([]postedComment, 0, len(st.postedDuringFetch)+1)
			posted = append(posted, st.postedDuringFetch...)
			st.postedDuringFetch = append(posted, postedComment{uuid: uuid, comment: created})
		}
		if st.ExperimentUUID != "" && st.ExperimentUUID != uuid {
			return st, true
		}
		st.ExperimentUUID = uuid
		next := make([]api.Comment, 0, len(st.Comments)+1)
		next = append(next, created)
		st.Comments = append(next, st.Comments...)
		return st, true
	})

	if err != nil {
		s.log.Warn("comment post failed", zap.String("uuid", uuid), zap.Error(err))
		return api.Comment{}, err
	}
	s.log.Debug("comment posted", zap.String("uuid", uuid), zap.String("comment", created.UUID))
	return created, nil
}

// withPosted prepends the comments posted to uuid that fetched lacks, newest
// first. Comments without a UUID cannot be matched and are always kept.
func withPosted(fetched []api.Comment, posted []postedComment, uuid string) []api.Comment {
	seen := make(map[string]bool, len(fetched))
	for _, c := range fetched {
		if c.UUID != "" {
			seen[c.UUID] = true
		}
	}

	out := make([]api.Comment, 0, len(fetched)+len(posted))
	for i := len(posted) - 1; i >= 0; i-- {
		p := posted[i]
		if p.uuid != uuid || (p.comment.UUID != "" && seen[p.comment.UUID]) {
			continue
		}
		out = append(out, p.comment)
	}
	return append(out, fetched...)
}

// State returns the current snapshot.
func (s *CommentsStore) State() CommentsState { return s.state.Get() }

// Comments returns the held comments.
func (s *CommentsStore) Comments() []api.Comment { return s.state.Get().Comments }

// Ref exposes the state for subscription.
func (s *CommentsStore) Ref() *Ref[CommentsState] { return s.state }
