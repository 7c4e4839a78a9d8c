// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for expview.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (EXPVIEW_*), optionally read from a .env file
//   - ~/.expview/config.toml (or the path given with --config)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := api.NewClientWithConfig(cfg.ClientConfig())
//
// Watch reloads the file when it changes; the dev proxy uses it to pick up a
// new backend target without restarting.
package config
