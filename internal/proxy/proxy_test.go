// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/expview/internal/config"
)

// backend records the requests it receives.
type backend struct {
	*httptest.Server
	mu       sync.Mutex
	paths    []string
	requests []*http.Request
}

func newBackend(t *testing.T, body string) *backend {
	t.Helper()
	b := &backend{}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.paths = append(b.paths, r.URL.RequestURI())
		b.requests = append(b.requests, r.Clone(context.Background()))
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(b.Close)
	return b
}

func (b *backend) last() *http.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1]
}

func newProxy(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)
	front := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		front.Close()
		s.Close()
	})
	return s, front
}

func get(t *testing.T, url string, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestProxyStripsPrefix(t *testing.T) {
	be := newBackend(t, `{"document_id":"9"}`)
	_, front := newProxy(t, Options{Target: be.URL})

	tests := []struct {
		path string
		want string
	}{
		{"/api/documents/9", "/documents/9"},
		{"/api/experiments", "/experiments"},
		{"/api/comments/a%2Fb", "/comments/a%2Fb"},
		{"/api/documents?limit=5", "/documents?limit=5"},
		{"/api", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := get(t, front.URL+tt.path, nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			be.mu.Lock()
			got := be.paths[len(be.paths)-1]
			be.mu.Unlock()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProxyForwardsBody(t *testing.T) {
	be := newBackend(t, `{"answer":"42"}`)
	_, front := newProxy(t, Options{Target: be.URL})

	resp, err := http.Post(front.URL+"/api/query_model", "application/json", strings.NewReader(`{"model":"gpt"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"42"}`, string(body))
	assert.Equal(t, http.MethodPost, be.last().Method)
}

func TestProxyRewritesHost(t *testing.T) {
	be := newBackend(t, `{}`)
	_, front := newProxy(t, Options{Target: be.URL})

	get(t, front.URL+"/api/documents", nil)

	assert.Equal(t, strings.TrimPrefix(be.URL, "http://"), be.last().Host)
}

func TestProxyUnknownPath(t *testing.T) {
	be := newBackend(t, `{}`)
	_, front := newProxy(t, Options{Target: be.URL})

	resp := get(t, front.URL+"/apix/documents", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, be.paths)
}

func TestProxyRootPrefix(t *testing.T) {
	be := newBackend(t, `{}`)
	_, front := newProxy(t, Options{Target: be.URL, Prefix: "/"})

	get(t, front.URL+"/documents/1", nil)

	assert.Equal(t, "/documents/1", be.paths[0])
}

func TestProxyBackendDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	dead := "http://" + ln.Addr().String()
	require.NoError(t, ln.Close())

	_, front := newProxy(t, Options{Target: dead, Metrics: true})

	resp := get(t, front.URL+"/api/documents", nil)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["detail"], "backend unreachable")
}

func TestProxyRequestID(t *testing.T) {
	be := newBackend(t, `{}`)
	_, front := newProxy(t, Options{Target: be.URL})

	resp := get(t, front.URL+"/api/documents", nil)
	id := resp.Header.Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, be.last().Header.Get(RequestIDHeader))

	keep := uuid.NewString()
	resp = get(t, front.URL+"/api/documents", map[string]string{RequestIDHeader: keep})
	assert.Equal(t, keep, resp.Header.Get(RequestIDHeader))

	resp = get(t, front.URL+"/api/documents", map[string]string{RequestIDHeader: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", resp.Header.Get(RequestIDHeader))
}

func TestHealth(t *testing.T) {
	be := newBackend(t, `{}`)
	_, front := newProxy(t, Options{Target: be.URL})

	resp := get(t, front.URL+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, be.URL, h.Target)
	assert.Equal(t, "/api", h.Prefix)
	assert.Empty(t, be.paths)
}

func TestMetrics(t *testing.T) {
	be := newBackend(t, `{}`)
	_, front := newProxy(t, Options{Target: be.URL, Metrics: true})

	get(t, front.URL+"/api/documents", nil)
	resp := get(t, front.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `expview_proxy_requests_total{code="200",handler="proxy",method="get"} 1`)
	assert.Contains(t, string(body), "expview_proxy_request_duration_seconds")
}

func TestMetricsDisabled(t *testing.T) {
	be := newBackend(t, `{}`)
	_, front := newProxy(t, Options{Target: be.URL})

	resp := get(t, front.URL+"/metrics", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSetTarget(t *testing.T) {
	first := newBackend(t, `{"from":"first"}`)
	second := newBackend(t, `{"from":"second"}`)
	s, front := newProxy(t, Options{Target: first.URL, Metrics: true})

	get(t, front.URL+"/api/x", nil)
	require.NoError(t, s.SetTarget(second.URL))
	get(t, front.URL+"/api/y", nil)

	assert.Equal(t, []string{"/x"}, first.paths)
	assert.Equal(t, []string{"/y"}, second.paths)
	assert.Equal(t, second.URL, s.Target())

	assert.Error(t, s.SetTarget("ftp://nope"))
	assert.Error(t, s.SetTarget("not a url"))
	assert.Equal(t, second.URL, s.Target())
}

func TestNewRejectsBadTarget(t *testing.T) {
	_, err := New(Options{Target: "backend:5001"})
	assert.Error(t, err)
}

func TestCORS(t *testing.T) {
	be := newBackend(t, `{}`)
	_, front := newProxy(t, Options{Target: be.URL})

	req, err := http.NewRequest(http.MethodOptions, front.URL+"/api/comment", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:8080", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, be.paths, "preflight is answered locally")

	resp = get(t, front.URL+"/api/documents", map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcards(t *testing.T) {
	c := &CORSConfig{AllowedOrigins: []string{"*.example.com"}}

	got, ok := c.allowedOrigin("https://app.example.com")
	assert.True(t, ok)
	assert.Equal(t, "https://app.example.com", got)

	_, ok = c.allowedOrigin("https://example.org")
	assert.False(t, ok)

	c = &CORSConfig{AllowedOrigins: []string{"*"}}
	got, ok = c.allowedOrigin("")
	assert.True(t, ok)
	assert.Equal(t, "*", got)
}

func TestRateLimit(t *testing.T) {
	be := newBackend(t, `{}`)
	_, front := newProxy(t, Options{Target: be.URL, RateLimit: 0.001, Burst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(t, front.URL+"/api/documents", nil).StatusCode)
	}

	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Len(t, be.paths, 2)
}

func TestRecovery(t *testing.T) {
	h := Chain(RecoveryMiddleware(zapNop()))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"internal server error"}`, rec.Body.String())
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"), mw("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "c", "handler"}, order)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.7:5000", "", "203.0.113.7"},
		{"untrusted peer ignores header", "203.0.113.7:5000", "198.51.100.1", "203.0.113.7"},
		{"trusted peer", "127.0.0.1:5000", "198.51.100.1, 10.0.0.1", "198.51.100.1"},
		{"trusted peer bad header", "10.1.2.3:5000", "garbage", "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Proxy.Target = "http://10.0.0.5:5001"
	cfg.Proxy.AllowedOrigins = []string{"http://localhost:3000"}

	opts := OptionsFromConfig(cfg, nil)

	assert.Equal(t, ":8000", opts.Listen)
	assert.Equal(t, "http://10.0.0.5:5001", opts.Target)
	assert.Equal(t, "/api", opts.Prefix)
	assert.Equal(t, []string{"http://localhost:3000"}, opts.CORS.AllowedOrigins)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	be := newBackend(t, `{}`)
	s, err := New(Options{Target: be.URL})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
