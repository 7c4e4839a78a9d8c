// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jeranaias/expview/internal/proxy"
)

// ProxyInfo is printed once the proxy has been configured.
type ProxyInfo struct {
	Listen  string `json:"listen"`
	Prefix  string `json:"prefix"`
	Target  string `json:"target"`
	Metrics bool   `json:"metrics"`
}

// runProxy serves the dev proxy until the context is cancelled. When a config
// file is in use its proxy.target is reloaded on change.
func (s *session) runProxy() error {
	p := NewArgParser(s.args.Rest)
	opts := proxy.OptionsFromConfig(s.cfg, s.log)
	opts.Listen = p.FlagOrDefault("listen", opts.Listen)
	opts.Target = p.FlagOrDefault("target", opts.Target)

	srv, err := proxy.New(opts)
	if err != nil {
		return &ValidationError{Field: "target", Value: opts.Target, Reason: err.Error(), Example: "--target http://localhost:5001"}
	}

	if s.cfgPath != "" && !p.HasFlag("target") {
		go func() {
			if err := srv.WatchConfig(s.ctx, s.cfgPath); err != nil && s.ctx.Err() == nil {
				s.log.Warn("config watch stopped", zap.String("path", s.cfgPath), zap.Error(err))
			}
		}()
	}

	info := ProxyInfo{Listen: opts.Listen, Prefix: opts.Prefix, Target: srv.Target(), Metrics: opts.Metrics}
	if err := s.emit(info, func() {
		fmt.Fprintf(s.stdout, "%s %s -> %s\n",
			TitleStyle.Render("expview proxy"),
			ValueStyle.Render(info.Listen+info.Prefix),
			ValueStyle.Render(info.Target))
		fmt.Fprintln(s.stdout, DimStyle.Render("  ctrl+c to stop"))
	}); err != nil {
		srv.Close()
		return err
	}

	return srv.ListenAndServe(s.ctx)
}
