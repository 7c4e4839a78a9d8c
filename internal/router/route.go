// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"net/url"
	"strings"
)

// Name identifies a route.
type Name string

const (
	Home          Name = "home"
	History       Name = "history"
	Document      Name = "document"
	Experiment    Name = "experiment"
	QueryResponse Name = "query_response"
)

// Route is a named path pattern.
type Route struct {
	Name    Name
	Pattern string

	segments []string
}

// NewRoute compiles pattern.
func NewRoute(name Name, pattern string) Route {
	return Route{Name: name, Pattern: pattern, segments: split(pattern)}
}

// DefaultRoutes returns the application's route table.
func DefaultRoutes() []Route {
	return []Route{
		NewRoute(Home, "/"),
		NewRoute(History, "/history"),
		NewRoute(Document, "/document/:document_id"),
		NewRoute(Experiment, "/experiment/:uuid"),
		NewRoute(QueryResponse, "/query/response"),
	}
}

// match reports whether path segments fit the route and returns the
// captured parameters.
func (r Route) match(segs []string) (map[string]string, bool) {
	if len(segs) != len(r.segments) {
		return nil, false
	}
	var params map[string]string
	for i, pat := range r.segments {
		if name, ok := strings.CutPrefix(pat, ":"); ok {
			val, err := url.PathUnescape(segs[i])
			if err != nil || val == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = val
			continue
		}
		if pat != segs[i] {
			return nil, false
		}
	}
	return params, true
}

// Location is a resolved navigation target.
type Location struct {
	Route  Name
	Path   string
	Params map[string]string
}

// Param returns a captured path parameter.
func (l Location) Param(name string) string {
	return l.Params[name]
}

// IsZero reports whether l is the empty location held before the first
// navigation.
func (l Location) IsZero() bool {
	return l.Route == "" && l.Path == ""
}

// DocumentPath builds the path of the document view.
func DocumentPath(documentID string) string {
	return "/document/" + url.PathEscape(documentID)
}

// ExperimentPath builds the path of the experiment view.
func ExperimentPath(uuid string) string {
	return "/experiment/" + url.PathEscape(uuid)
}

// QueryResponsePath is the path of the query response view.
const QueryResponsePath = "/query/response"

// split drops the query string and returns the non-empty path segments.
func split(path string) []string {
	path, _, _ = strings.Cut(path, "?")
	parts := strings.Split(path, "/")
	segs := parts[:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}
