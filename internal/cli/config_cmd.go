// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - `expview config show|path|init`.

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/expview/internal/config"
)

// ConfigPathInfo is the --json data of `expview config path`.
type ConfigPathInfo struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

func runConfig(args Args, stdout io.Writer) error {
	p := NewArgParser(args.Rest, "force")
	switch sub := p.Subcommand(); sub {
	case "", "show":
		return configShow(args, stdout)
	case "path":
		return configPath(args, stdout)
	case "init":
		return configInit(args, stdout, p.BoolFlag("force"))
	default:
		return &ValidationError{Field: "config subcommand", Value: sub, Reason: "unknown subcommand", Example: "expview config show|path|init"}
	}
}

func configShow(args Args, stdout io.Writer) error {
	cfg, path, err := loadConfig(args)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("config", cfg).Print(stdout)
	}
	source := path
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintln(stdout, TitleStyle.Render("Configuration"), DimStyle.Render("("+source+")"))
	fmt.Fprintln(stdout, cfg.String())
	return nil
}

func resolveConfigPath(args Args) (string, error) {
	if args.Config != "" {
		return args.Config, nil
	}
	path, err := config.ConfigPath()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return path, nil
}

func configPath(args Args, stdout io.Writer) error {
	path, err := resolveConfigPath(args)
	if err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	info := ConfigPathInfo{Path: path, Exists: statErr == nil}
	if args.JSON {
		return NewJSONResponse("config", info).Print(stdout)
	}
	fmt.Fprintln(stdout, info.Path)
	return nil
}

func configInit(args Args, stdout io.Writer, force bool) error {
	path, err := resolveConfigPath(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return &ValidationError{Field: "config", Value: path, Reason: "file already exists", Example: "expview config init --force"}
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	if args.JSON {
		return NewJSONResponse("config", ConfigPathInfo{Path: path, Exists: true}).Print(stdout)
	}
	fmt.Fprintln(stdout, SuccessStyle.Render("[OK]"), "Wrote", path)
	return nil
}
