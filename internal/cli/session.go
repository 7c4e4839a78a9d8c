// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// session.go - per-invocation wiring: config, logger, API client, stores.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/jeranaias/expview/internal/api"
	"github.com/jeranaias/expview/internal/config"
	"github.com/jeranaias/expview/internal/logging"
	"github.com/jeranaias/expview/internal/store"
	"github.com/jeranaias/expview/internal/ui/components"
)

// session is everything a backend command needs.
type session struct {
	ctx     context.Context
	cmd     Command
	args    Args
	cfg     *config.Config
	cfgPath string // config file in use, "" when running on defaults
	log     *zap.Logger
	client  *api.Client
	stores  *store.Stores
	stdout  io.Writer
	stderr  io.Writer
}

func newSession(ctx context.Context, cmd Command, args Args, stdout, stderr io.Writer) (*session, error) {
	cfg, path, err := loadConfig(args)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if args.Verbose {
		level = "debug"
	}
	log, err := logging.New(logging.Options{
		Level:      level,
		FilePath:   cfg.LogPath(),
		Console:    cmd != CmdTUI && (args.Verbose || cmd == CmdProxy),
		Stderr:     stderr,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("logging: %w", err)}
	}
	log = log.With(zap.String("command", args.Name))

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.Timeout(),
		QueryTimeout: cfg.QueryTimeout(),
		UserAgent:    "expview/" + Version,
		Logger:       log,
	})

	opts := store.Options{
		Context:   ctx,
		Pipelines: cfg.Query.Pipelines,
		Logger:    log,
	}
	if cfg.Query.Mock {
		opts.Querier = store.StubQuerier{Delay: cfg.MockDelay()}
		log.Info("model queries are answered locally", zap.Duration("delay", cfg.MockDelay()))
	}

	log.Debug("session ready",
		zap.String("api", client.BaseURL()),
		zap.String("config", path))

	return &session{
		ctx:     ctx,
		cmd:     cmd,
		args:    args,
		cfg:     cfg,
		cfgPath: path,
		log:     log,
		client:  client,
		stores:  store.New(client, opts),
		stdout:  stdout,
		stderr:  stderr,
	}, nil
}

func (s *session) close() {
	_ = s.log.Sync()
}

// loadConfig loads --config or the default file, then applies --api.
func loadConfig(args Args) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path = args.Config
		err  error
	)
	if path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
		if p, perr := config.ConfigPath(); perr == nil {
			if _, serr := os.Stat(p); serr == nil {
				path = p
			}
		}
	}
	if err != nil {
		return nil, path, &ConfigError{Path: path, Err: err}
	}

	if args.API != "" {
		cfg.API.BaseURL = args.API
		if err := cfg.Validate(); err != nil {
			return nil, path, &ValidationError{Field: "--api", Value: args.API, Reason: err.Error(), Example: "--api http://127.0.0.1:8000/api"}
		}
	}
	return cfg, path, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

// emit writes data as a JSON envelope in --json mode, otherwise calls human.
func (s *session) emit(data any, human func()) error {
	if s.args.JSON {
		return NewJSONResponse(s.args.Name, data).Print(s.stdout)
	}
	human()
	return nil
}

// printMarkdown renders md with glamour when stdout is a terminal and
// writes it raw otherwise.
func (s *session) printMarkdown(md string) {
	if !isTerminalWriter(s.stdout) {
		fmt.Fprintln(s.stdout, md)
		return
	}
	style := s.cfg.UI.MarkdownStyle
	if !ColorsEnabled() {
		style = components.MarkdownNoTTY
	}
	r := components.NewMarkdownRenderer(style)
	fmt.Fprintln(s.stdout, r.Render(md, terminalWidth(s.stdout)))
}

// progress writes a dim status line to stderr in human mode on a terminal.
func (s *session) progress(format string, a ...any) {
	if s.args.JSON || !isTerminalWriter(s.stderr) {
		return
	}
	fmt.Fprintln(s.stderr, DimStyle.Render(fmt.Sprintf(format, a...)))
}
