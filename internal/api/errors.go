// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
	"strings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorKind categorizes client errors for handling.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConnection
	KindTimeout
	KindStatus
	KindDecode
	KindEncode
	KindInvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindEncode:
		return "encode"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// ClientError represents a failed API call.
type ClientError struct {
	Kind       ErrorKind
	Method     string
	Path       string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ClientError) Error() string {
	var b strings.Builder
	if e.Method != "" {
		fmt.Fprintf(&b, "%s %s: ", e.Method, e.Path)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "status %d: ", e.StatusCode)
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinels by kind, and by status code when the sentinel has one.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.StatusCode == 0 || t.StatusCode == e.StatusCode
}

// Sentinel errors for errors.Is checks.
var (
	ErrUnavailable = &ClientError{Kind: KindConnection, Message: "backend unavailable"}
	ErrTimeout     = &ClientError{Kind: KindTimeout, Message: "request timed out"}
	ErrNotFound    = &ClientError{Kind: KindStatus, StatusCode: 404, Message: "not found"}
	ErrBadRequest  = &ClientError{Kind: KindStatus, StatusCode: 400, Message: "bad request"}
	ErrDecode      = &ClientError{Kind: KindDecode, Message: "malformed response body"}
	ErrInvalidArg  = &ClientError{Kind: KindInvalidArgument, Message: "invalid argument"}
)

// errorBody is the error shape the backend returns for HTTP exceptions.
type errorBody struct {
	Detail any    `json:"detail"`
	Error  string `json:"error"`
}

func (b errorBody) message() string {
	switch d := b.Detail.(type) {
	case string:
		return d
	case nil:
		return b.Error
	default:
		return fmt.Sprint(d)
	}
}
