// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the API client.
type ClientConfig struct {
	// BaseURL is prefixed to every path (default: http://127.0.0.1:8000/api)
	BaseURL string

	// Timeout bounds ordinary requests (default: 60s)
	Timeout time.Duration

	// QueryTimeout bounds /query_model, which runs a whole pipeline (default: 10m)
	QueryTimeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// Logger receives one debug record per request. Nil disables logging.
	Logger *zap.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      "http://127.0.0.1:8000/api",
		Timeout:      60 * time.Second,
		QueryTimeout: 10 * time.Minute,
		UserAgent:    "expview",
	}
}

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 64 * 1024

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the backend API.
//
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a client with the default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with a custom configuration. Zero
// values are filled from DefaultConfig.
func NewClientWithConfig(config *ClientConfig) *Client {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}

	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = defaults.QueryTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		config:     &cfg,
		httpClient: &http.Client{},
		log:        log.Named("api"),
	}
}

// WithHTTPClient replaces the underlying http.Client (tests, custom transports).
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// ListDocuments fetches document summaries from GET /documents.
func (c *Client) ListDocuments(ctx context.Context) ([]Record, error) {
	var out []Record
	if err := c.do(ctx, http.MethodGet, "/documents", nil, &out, c.config.Timeout); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDocument fetches one document from GET /documents/{document_id}.
func (c *Client) GetDocument(ctx context.Context, documentID string) (Record, error) {
	if err := requireID("document_id", documentID); err != nil {
		return nil, err
	}
	var out Record
	if err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(documentID), nil, &out, c.config.Timeout); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// EXPERIMENTS
// =============================================================================

// ListExperiments fetches experiment summaries from GET /experiments.
func (c *Client) ListExperiments(ctx context.Context) ([]Record, error) {
	var out []Record
	if err := c.do(ctx, http.MethodGet, "/experiments", nil, &out, c.config.Timeout); err != nil {
		return nil, err
	}
	return out, nil
}

// GetExperiment fetches one experiment from GET /experiments/{uuid}.
func (c *Client) GetExperiment(ctx context.Context, uuid string) (Record, error) {
	if err := requireID("uuid", uuid); err != nil {
		return nil, err
	}
	var out Record
	if err := c.do(ctx, http.MethodGet, "/experiments/"+url.PathEscape(uuid), nil, &out, c.config.Timeout); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// COMMENTS
// =============================================================================

// ListComments fetches the comments of an experiment from GET /comments/{uuid}.
func (c *Client) ListComments(ctx context.Context, uuid string) ([]Comment, error) {
	if err := requireID("uuid", uuid); err != nil {
		return nil, err
	}
	var out []Comment
	if err := c.do(ctx, http.MethodGet, "/comments/"+url.PathEscape(uuid), nil, &out, c.config.Timeout); err != nil {
		return nil, err
	}
	return out, nil
}

// PostComment creates a comment with POST /comment and returns the stored record.
func (c *Client) PostComment(ctx context.Context, comment NewComment) (Comment, error) {
	if err := requireID("document_uuid", comment.DocumentUUID); err != nil {
		return Comment{}, err
	}
	var out Comment
	if err := c.do(ctx, http.MethodPost, "/comment", comment, &out, c.config.Timeout); err != nil {
		return Comment{}, err
	}
	return out, nil
}

// =============================================================================
// MODEL QUERIES
// =============================================================================

// QueryModel submits params to POST /query_model and returns the result record.
func (c *Client) QueryModel(ctx context.Context, params QueryParams) (Record, error) {
	var out Record
	if err := c.do(ctx, http.MethodPost, "/query_model", params, &out, c.config.QueryTimeout); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do performs one JSON round trip. Any non-2xx status is an error; the body
// of a failed response is only read for its message.
func (c *Client) do(ctx context.Context, method, path string, body, out any, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &ClientError{Kind: KindEncode, Method: method, Path: path, Message: "failed to marshal request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return &ClientError{Kind: KindConnection, Method: method, Path: path, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("method", method), zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return &ClientError{Kind: KindTimeout, Method: method, Path: path, Message: "request timed out", Cause: err}
		}
		return &ClientError{Kind: KindConnection, Method: method, Path: path, Message: "backend unavailable", Cause: err}
	}
	defer resp.Body.Close()

	c.log.Debug("request",
		zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(method, path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &ClientError{Kind: KindTimeout, Method: method, Path: path, Message: "request timed out", Cause: err}
		}
		return &ClientError{Kind: KindDecode, Method: method, Path: path, StatusCode: resp.StatusCode, Message: "failed to decode response", Cause: err}
	}
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	msg := resp.Status
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	if len(data) > 0 && json.Unmarshal(data, &eb) == nil {
		if m := eb.message(); m != "" {
			msg = m
		}
	}
	return &ClientError{Kind: KindStatus, Method: method, Path: path, StatusCode: resp.StatusCode, Message: msg}
}

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ClientError{Kind: KindInvalidArgument, Message: field + " is required"}
	}
	return nil
}
