// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/expview/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete expview configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// API is the backend the stores talk to.
	API APIConfig `toml:"api" json:"api"`

	// Query holds model query defaults.
	Query QueryConfig `toml:"query" json:"query"`

	// Proxy configures the dev request forwarder.
	Proxy ProxyConfig `toml:"proxy" json:"proxy"`

	UI  UIConfig  `toml:"ui" json:"ui"`
	Log LogConfig `toml:"log" json:"log"`
}

// APIConfig contains backend API settings.
type APIConfig struct {
	// BaseURL is prefixed to every API path, e.g. http://127.0.0.1:8000/api
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds ordinary GET/POST requests.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// QueryTimeoutSecs bounds /query_model, which runs a full pipeline server side.
	QueryTimeoutSecs int `toml:"query_timeout_secs" json:"query_timeout_secs"`
}

// QueryConfig contains model query settings.
type QueryConfig struct {
	DefaultModel    string `toml:"default_model" json:"default_model"`
	DefaultPipeline string `toml:"default_pipeline" json:"default_pipeline"`
	// Pipelines restricts the accepted pipeline names. Empty accepts any.
	Pipelines []string `toml:"pipelines" json:"pipelines,omitempty"`
	Models    []string `toml:"models" json:"models"`
	// Mock answers queries locally after MockDelayMs without calling the API.
	Mock        bool `toml:"mock" json:"mock"`
	MockDelayMs int  `toml:"mock_delay_ms" json:"mock_delay_ms"`
}

// ProxyConfig contains dev proxy settings.
type ProxyConfig struct {
	Listen string `toml:"listen" json:"listen"`
	// Target is the backend origin requests are forwarded to.
	Target string `toml:"target" json:"target"`
	// Prefix is stripped from the request path before forwarding.
	Prefix         string   `toml:"prefix" json:"prefix"`
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`
	// RateLimit is requests per second per client IP (0 = unlimited).
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	Burst     int     `toml:"burst" json:"burst"`
	Metrics   bool    `toml:"metrics" json:"metrics"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is "dark", "light" or "auto".
	Theme string `toml:"theme" json:"theme"`
	// MarkdownStyle is the glamour style used for documents and responses.
	MarkdownStyle string `toml:"markdown_style" json:"markdown_style"`
	CompactMode   bool   `toml:"compact_mode" json:"compact_mode"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	// File is the rotated log path (empty = ~/.expview/expview.log).
	File       string `toml:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values. The proxy defaults
// mirror the original dev server: listen on 8000, forward /api to backend:5001.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:          "http://127.0.0.1:8000/api",
			TimeoutSecs:      60,
			QueryTimeoutSecs: 600,
		},
		Query: QueryConfig{
			DefaultModel:    "llama3",
			DefaultPipeline: "refine",
			Models:          []string{"llama3", "mistral", "gpt-4o"},
			Mock:            false,
			MockDelayMs:     2500,
		},
		Proxy: ProxyConfig{
			Listen:         ":8000",
			Target:         "http://backend:5001",
			Prefix:         "/api",
			AllowedOrigins: []string{"http://localhost:8080"},
			RateLimit:      0,
			Burst:          20,
			Metrics:        true,
		},
		UI: UIConfig{
			Theme:         "auto",
			MarkdownStyle: "auto",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the expview configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".expview"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LogPath returns the configured log file, falling back to the config dir.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	dir, err := ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "expview.log")
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.expview/config.toml when present, then applies .env and
// environment overrides, fills defaults and validates.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// LoadTOML decodes path into cfg. Keys absent from the file keep the values
// already in cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	loadDotEnv()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv reads .env from the working directory. Variables already set
// in the environment win.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.TimeoutSecs <= 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}
	if c.API.QueryTimeoutSecs <= 0 {
		c.API.QueryTimeoutSecs = d.API.QueryTimeoutSecs
	}

	if c.Query.DefaultModel == "" {
		c.Query.DefaultModel = d.Query.DefaultModel
	}
	if c.Query.DefaultPipeline == "" {
		c.Query.DefaultPipeline = d.Query.DefaultPipeline
		if len(c.Query.Pipelines) > 0 {
			c.Query.DefaultPipeline = c.Query.Pipelines[0]
		}
	}
	if len(c.Query.Models) == 0 {
		c.Query.Models = []string{c.Query.DefaultModel}
	}
	if c.Query.MockDelayMs <= 0 {
		c.Query.MockDelayMs = d.Query.MockDelayMs
	}

	if c.Proxy.Listen == "" {
		c.Proxy.Listen = d.Proxy.Listen
	}
	if c.Proxy.Target == "" {
		c.Proxy.Target = d.Proxy.Target
	}
	if c.Proxy.Prefix == "" {
		c.Proxy.Prefix = d.Proxy.Prefix
	}
	if c.Proxy.Burst <= 0 {
		c.Proxy.Burst = d.Proxy.Burst
	}

	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.MarkdownStyle == "" {
		c.UI.MarkdownStyle = d.UI.MarkdownStyle
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = d.Log.MaxSizeMB
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = d.Log.MaxBackups
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - EXPVIEW_API_URL: overrides api.base_url
//   - EXPVIEW_PROXY_TARGET: overrides proxy.target
//   - EXPVIEW_PROXY_LISTEN: overrides proxy.listen
//   - EXPVIEW_LOG_LEVEL: overrides log.level
//   - EXPVIEW_QUERY_MOCK: "1" or "true" answers queries locally
//   - EXPVIEW_MODEL: overrides query.default_model
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("EXPVIEW_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("EXPVIEW_PROXY_TARGET"); v != "" {
		c.Proxy.Target = v
	}
	if v := os.Getenv("EXPVIEW_PROXY_LISTEN"); v != "" {
		c.Proxy.Listen = v
	}
	if v := os.Getenv("EXPVIEW_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("EXPVIEW_QUERY_MOCK"); v != "" {
		mock, err := strconv.ParseBool(v)
		c.Query.Mock = err == nil && mock
	}
	if v := os.Getenv("EXPVIEW_MODEL"); v != "" {
		c.Query.DefaultModel = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := validateHTTPURL(c.API.BaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "api.base_url", Message: err.Error()})
	}
	if err := validateHTTPURL(c.Proxy.Target); err != nil {
		errs = append(errs, ValidationError{Field: "proxy.target", Message: err.Error()})
	}
	if !strings.HasPrefix(c.Proxy.Prefix, "/") {
		errs = append(errs, ValidationError{Field: "proxy.prefix", Message: "must start with '/'"})
	}
	if c.Proxy.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "proxy.rate_limit", Message: "cannot be negative"})
	}

	found := len(c.Query.Pipelines) == 0
	for _, p := range c.Query.Pipelines {
		if p == c.Query.DefaultPipeline {
			found = true
			break
		}
	}
	if !found {
		errs = append(errs, ValidationError{
			Field:   "query.default_pipeline",
			Message: fmt.Sprintf("'%s' is not one of: %s", c.Query.DefaultPipeline, strings.Join(c.Query.Pipelines, ", ")),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("URL scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("URL must include a host")
	}
	return nil
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// Timeout returns the ordinary request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// QueryTimeout returns the /query_model timeout.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.API.QueryTimeoutSecs) * time.Second
}

// MockDelay returns the delay of the local query stub.
func (c *Config) MockDelay() time.Duration {
	return time.Duration(c.Query.MockDelayMs) * time.Millisecond
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# expview configuration file\n")
	buf.WriteString("# Environment variables (EXPVIEW_*) override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// String returns an indented JSON rendering for `expview config show`.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
