// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/expview/internal/config"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultListen matches the original dev server port.
	DefaultListen = ":8000"

	// DefaultTarget is the backend origin inside the compose network.
	DefaultTarget = "http://backend:5001"

	// DefaultPrefix is stripped before forwarding. A prefix of "/" forwards
	// every path unchanged.
	DefaultPrefix = "/api"

	// Version is reported by /health.
	Version = "0.1.0"
)

// ============================================================================
// CONFIG
// ============================================================================

// Options configures a Server.
type Options struct {
	Listen string
	Target string
	Prefix string
	CORS   *CORSConfig

	// RateLimit is requests per second per client IP; zero disables it.
	RateLimit float64
	Burst     int

	Metrics bool
	Logger  *zap.Logger
}

// OptionsFromConfig maps the [proxy] config section.
func OptionsFromConfig(cfg *config.Config, log *zap.Logger) Options {
	cors := DefaultCORSConfig()
	if len(cfg.Proxy.AllowedOrigins) > 0 {
		cors.AllowedOrigins = cfg.Proxy.AllowedOrigins
	}
	return Options{
		Listen:    cfg.Proxy.Listen,
		Target:    cfg.Proxy.Target,
		Prefix:    cfg.Proxy.Prefix,
		CORS:      cors,
		RateLimit: cfg.Proxy.RateLimit,
		Burst:     cfg.Proxy.Burst,
		Metrics:   cfg.Proxy.Metrics,
		Logger:    log,
	}
}

// ============================================================================
// SERVER
// ============================================================================

// Server forwards prefixed API requests to the backend origin.
type Server struct {
	opts    Options
	log     *zap.Logger
	target  atomic.Pointer[url.URL]
	metrics *Metrics
	limiter *RateLimiter
	handler http.Handler
	started time.Time

	mu     sync.Mutex
	server *http.Server
}

// New builds a Server. The target must be an absolute http(s) URL.
func New(opts Options) (*Server, error) {
	if opts.Listen == "" {
		opts.Listen = DefaultListen
	}
	if opts.Target == "" {
		opts.Target = DefaultTarget
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if p := strings.Trim(opts.Prefix, "/"); p != "" {
		opts.Prefix = "/" + p
	} else {
		opts.Prefix = ""
	}
	if opts.CORS == nil {
		opts.CORS = DefaultCORSConfig()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		opts:    opts,
		log:     opts.Logger.Named("proxy"),
		started: time.Now(),
	}
	if err := s.SetTarget(opts.Target); err != nil {
		return nil, err
	}
	if opts.Metrics {
		s.metrics = NewMetrics()
	}
	if opts.RateLimit > 0 {
		s.limiter = NewRateLimiter(opts.RateLimit, opts.Burst)
	}
	s.handler = s.buildHandler()
	return s, nil
}

// Target returns the current backend origin.
func (s *Server) Target() string {
	return s.target.Load().String()
}

// SetTarget swaps the backend origin. In-flight requests finish against the
// old one.
func (s *Server) SetTarget(raw string) error {
	u, err := parseTarget(raw)
	if err != nil {
		return err
	}
	old := s.target.Swap(u)
	if old != nil && old.String() != u.String() {
		s.log.Info("backend target changed", zap.String("from", old.String()), zap.String("to", u.String()))
		if s.metrics != nil {
			s.metrics.targetChanges.Inc()
		}
	}
	return nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	var forward http.Handler = &httputil.ReverseProxy{
		Rewrite:      s.rewrite,
		ErrorHandler: s.upstreamError,
		ErrorLog:     zap.NewStdLog(s.log),
	}
	var health http.Handler = http.HandlerFunc(s.handleHealth)
	if s.metrics != nil {
		forward = s.metrics.Instrument("proxy", forward)
		health = s.metrics.Instrument("health", health)
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	if s.opts.Prefix == "" {
		mux.Handle("/", forward)
	} else {
		mux.Handle(s.opts.Prefix+"/", forward)
		mux.Handle(s.opts.Prefix, forward)
	}
	mux.Handle("GET /health", health)

	middlewares := []Middleware{
		RecoveryMiddleware(s.log),
		RequestIDMiddleware(),
		LoggingMiddleware(s.log),
		CORSMiddleware(s.opts.CORS),
	}
	if s.limiter != nil {
		middlewares = append(middlewares, RateLimitMiddleware(s.limiter, s.log))
	}
	return Chain(middlewares...)(mux)
}

// rewrite strips the prefix and points the request at the current target.
func (s *Server) rewrite(pr *httputil.ProxyRequest) {
	out := pr.Out.URL
	out.Path = stripPrefix(out.Path, s.opts.Prefix)
	if out.RawPath != "" {
		out.RawPath = stripPrefix(out.RawPath, s.opts.Prefix)
	}
	pr.SetURL(s.target.Load())
	pr.SetXForwarded()
}

func (s *Server) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	if s.metrics != nil {
		s.metrics.upstreamErrors.Inc()
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	s.log.Warn("backend unreachable",
		zap.String("target", s.Target()),
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestID(r.Context())),
		zap.Error(err))
	writeDetail(w, http.StatusBadGateway, "backend unreachable: "+s.Target())
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Target        string `json:"target"`
	Prefix        string `json:"prefix"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       Version,
		Target:        s.Target(),
		Prefix:        s.opts.Prefix,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          zap.NewStdLog(s.log),
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.log.Info("proxy listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("prefix", s.opts.Prefix),
		zap.String("target", s.Target()))

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		s.closeLimiter()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.Shutdown(shutdownCtx)
	<-errc
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeLimiter()
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.log.Info("proxy shutting down")
	return srv.Shutdown(ctx)
}

// Close releases background resources of a server that was never started.
func (s *Server) Close() {
	s.closeLimiter()
}

func (s *Server) closeLimiter() {
	if s.limiter != nil {
		s.limiter.Close()
	}
}

// WatchConfig reloads the backend origin whenever the config file at path
// changes. It blocks until ctx is cancelled.
func (s *Server) WatchConfig(ctx context.Context, path string) error {
	return config.Watch(ctx, path, config.DefaultWatchDebounce, func(cfg *config.Config, err error) {
		if err != nil {
			s.log.Warn("config reload failed", zap.String("path", path), zap.Error(err))
			return
		}
		if err := s.SetTarget(cfg.Proxy.Target); err != nil {
			s.log.Warn("ignoring invalid proxy target", zap.String("target", cfg.Proxy.Target), zap.Error(err))
		}
	})
}

// ============================================================================
// HELPERS
// ============================================================================

func parseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid proxy target %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy target %q: must be an http(s) origin", raw)
	}
	return u, nil
}

func stripPrefix(path, prefix string) string {
	rest, ok := strings.CutPrefix(path, prefix)
	if !ok {
		return path
	}
	if rest == "" {
		return "/"
	}
	return rest
}

// writeDetail writes errors in the backend's {"detail": ...} shape so
// clients decode proxy and backend failures the same way.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
