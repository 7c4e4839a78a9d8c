// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNoRoute is returned for paths that match no route.
	ErrNoRoute = errors.New("no route matches path")

	// ErrNavigationBlocked is returned when a guard cancels a navigation.
	ErrNavigationBlocked = errors.New("navigation blocked")

	// ErrNoHistory is returned by Back when the back stack is empty.
	ErrNoHistory = errors.New("no previous location")
)

// BlockedError describes a navigation cancelled by a guard.
type BlockedError struct {
	From, To Location
	Reason   string
}

func (e *BlockedError) Error() string {
	msg := fmt.Sprintf("navigation from %s to %s blocked", e.From.Route, e.To.Route)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *BlockedError) Is(target error) bool {
	return target == ErrNavigationBlocked
}

// Guard inspects a pending navigation. Returning an error cancels it.
type Guard func(from, to Location) error

// BlockExperimentToQueryResponse cancels any move from an experiment to the
// query response view.
func BlockExperimentToQueryResponse(from, to Location) error {
	if from.Route == Experiment && to.Route == QueryResponse {
		return &BlockedError{From: from, To: to, Reason: "query responses are not reachable from an experiment"}
	}
	return nil
}

// Factory builds the view for a route on first entry.
type Factory[V any] func() V

// Router tracks the current location and back stack and owns the lazily
// built views.
type Router[V any] struct {
	mu        sync.Mutex
	routes    []Route
	guards    []Guard
	factories map[Name]Factory[V]
	views     map[Name]V
	current   Location
	history   []Location
	nextSub   int
	subs      map[int]func(Location)
}

// New creates a router over routes. Pass DefaultRoutes for the application
// table. Guards run in the order given.
func New[V any](routes []Route, guards ...Guard) *Router[V] {
	return &Router[V]{
		routes:    routes,
		guards:    guards,
		factories: make(map[Name]Factory[V]),
		views:     make(map[Name]V),
		subs:      make(map[int]func(Location)),
	}
}

// NewDefault creates a router with the application routes and the default
// guard.
func NewDefault[V any]() *Router[V] {
	return New[V](DefaultRoutes(), BlockExperimentToQueryResponse)
}

// Register sets the view factory for a route.
func (r *Router[V]) Register(name Name, f Factory[V]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Match resolves path without navigating.
func (r *Router[V]) Match(path string) (Location, error) {
	segs := split(path)
	for _, rt := range r.routes {
		if params, ok := rt.match(segs); ok {
			return Location{Route: rt.Name, Path: normalize(segs), Params: params}, nil
		}
	}
	return Location{}, fmt.Errorf("%w: %s", ErrNoRoute, path)
}

// Push navigates to path and records the previous location on the back
// stack. Navigating to the current path is a no-op.
func (r *Router[V]) Push(path string) (Location, error) {
	return r.navigate(path, true)
}

// Replace navigates to path without touching the back stack.
func (r *Router[V]) Replace(path string) (Location, error) {
	return r.navigate(path, false)
}

// Back returns to the previous location. Guards apply as for Push.
func (r *Router[V]) Back() (Location, error) {
	r.mu.Lock()
	if len(r.history) == 0 {
		r.mu.Unlock()
		return r.Current(), ErrNoHistory
	}
	to := r.history[len(r.history)-1]
	if err := r.checkLocked(to); err != nil {
		r.mu.Unlock()
		return r.current, err
	}
	r.history = r.history[:len(r.history)-1]
	r.enterLocked(to)
	subs := r.subsLocked()
	r.mu.Unlock()

	notify(subs, to)
	return to, nil
}

// Current returns the current location. It is zero before the first
// navigation.
func (r *Router[V]) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// CanGoBack reports whether the back stack is non-empty.
func (r *Router[V]) CanGoBack() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history) > 0
}

// View returns the view of the current route.
func (r *Router[V]) View() (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[r.current.Route]
	return v, ok
}

// Built reports whether the view for name has been constructed.
func (r *Router[V]) Built(name Name) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.views[name]
	return ok
}

// Subscribe registers fn to run after every completed navigation.
func (r *Router[V]) Subscribe(fn func(Location)) (cancel func()) {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *Router[V]) navigate(path string, push bool) (Location, error) {
	to, err := r.Match(path)
	if err != nil {
		return r.Current(), err
	}

	r.mu.Lock()
	if !r.current.IsZero() && r.current.Path == to.Path {
		r.mu.Unlock()
		return to, nil
	}
	if err := r.checkLocked(to); err != nil {
		from := r.current
		r.mu.Unlock()
		return from, err
	}
	if push && !r.current.IsZero() {
		r.history = append(r.history, r.current)
	}
	r.enterLocked(to)
	subs := r.subsLocked()
	r.mu.Unlock()

	notify(subs, to)
	return to, nil
}

func (r *Router[V]) checkLocked(to Location) error {
	for _, g := range r.guards {
		if err := g(r.current, to); err != nil {
			return err
		}
	}
	return nil
}

// enterLocked commits to as the current location, building its view on
// first entry. Factories run under the router lock and must not call back
// into the router.
func (r *Router[V]) enterLocked(to Location) {
	r.current = to
	if _, ok := r.views[to.Route]; ok {
		return
	}
	if f, ok := r.factories[to.Route]; ok {
		r.views[to.Route] = f()
	}
}

// subsLocked returns subscribers in registration order.
func (r *Router[V]) subsLocked() []func(Location) {
	ids := make([]int, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]func(Location), 0, len(ids))
	for _, id := range ids {
		out = append(out, r.subs[id])
	}
	return out
}

func notify(subs []func(Location), loc Location) {
	for _, fn := range subs {
		fn(loc)
	}
}

func normalize(segs []string) string {
	if len(segs) == 0 {
		return "/"
	}
	var b []byte
	for _, s := range segs {
		b = append(b, '/')
		b = append(b, s...)
	}
	return string(b)
}
