// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - command parsing, usage text and dispatch for expview.

package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdDocuments
	CmdDocument
	CmdExperiments
	CmdExperiment
	CmdComments
	CmdComment
	CmdQuery
	CmdProxy
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = map[string]Command{
	"tui":         CmdTUI,
	"documents":   CmdDocuments,
	"docs":        CmdDocuments,
	"document":    CmdDocument,
	"doc":         CmdDocument,
	"experiments": CmdExperiments,
	"history":     CmdExperiments,
	"experiment":  CmdExperiment,
	"exp":         CmdExperiment,
	"comments":    CmdComments,
	"comment":     CmdComment,
	"query":       CmdQuery,
	"proxy":       CmdProxy,
	"config":      CmdConfig,
	"version":     CmdVersion,
	"help":        CmdHelp,
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Config  string // --config: TOML file to load instead of ~/.expview/config.toml
	API     string // --api: overrides api.base_url
	JSON    bool   // --json: machine readable output
	Verbose bool   // -v, --verbose: debug logging to stderr

	// Name is the command word as typed ("tui" when omitted).
	Name string

	// Rest holds the command's own arguments and flags.
	Rest []string
}

const usageText = `expview - terminal client for the experiment UI API

Usage:
  expview [tui]                        Start the TUI (default)
  expview documents                    List documents
  expview document <id>                Show one document
  expview experiments                  List experiments (alias: history)
  expview experiment <uuid>            Show one experiment and its comments
  expview comments <uuid>              List comments of an experiment
  expview comment <uuid> <text...>     Post a comment on an experiment
  expview query [flags] [document]     Run a model query
    --model NAME                       Model (default: query.default_model)
    --pipeline NAME                    Pipeline (default: query.default_pipeline)
    --question TEXT                    Question prompt
    --refine TEXT                      Refine prompt
    --document ID                      Document to query
    --out FILE                         Export the result (.md, .json, .html)
  expview proxy [flags]                Run the dev API proxy
    --listen ADDR                      Listen address (default: proxy.listen)
    --target URL                       Backend origin (default: proxy.target)
  expview config [show|path|init]      Configuration
    --force                            Overwrite an existing file on init
  expview version                      Show version information

Global Flags:
  --api URL        Override api.base_url
  --config FILE    Load configuration from FILE
  --json           Output in JSON format
  -v, --verbose    Debug logging on stderr

TUI Keys:
  h home   H history   esc back   ? help   ctrl+c quit

Examples:
  expview documents --json
  expview query --document d1 --question "What changed?" --out answer.md
  expview comment 3f2a... "looks good"
  expview proxy --target http://localhost:5001

Version: %s
`

// PrintUsage writes the usage text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// Parse splits argv (without the program name) into the command and its
// arguments. Global flags may appear anywhere before "--".
func Parse(argv []string) (Command, Args, error) {
	var args Args
	remaining := make([]string, 0, len(argv))

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		name, value, hasValue := strings.Cut(arg, "=")

		switch name {
		case "--":
			remaining = append(remaining, argv[i:]...)
			i = len(argv)
		case "--json":
			args.JSON = true
		case "-v", "--verbose":
			args.Verbose = true
		case "-h", "--help":
			args.Name = "help"
			return CmdHelp, args, nil
		case "--version":
			args.Name = "version"
			return CmdVersion, args, nil
		case "--api", "--config":
			if !hasValue {
				if i+1 >= len(argv) {
					return CmdHelp, args, ErrMissingArgument(strings.TrimLeft(name, "-"), "expview "+name+" <value>")
				}
				i++
				value = argv[i]
			}
			if name == "--api" {
				args.API = value
			} else {
				args.Config = value
			}
		default:
			remaining = append(remaining, arg)
		}
	}

	if len(remaining) == 0 || strings.HasPrefix(remaining[0], "-") {
		args.Name = "tui"
		args.Rest = remaining
		return CmdTUI, args, nil
	}

	cmd, ok := commandNames[strings.ToLower(remaining[0])]
	if !ok {
		args.Name = remaining[0]
		return CmdHelp, args, ErrUnknownCommand(remaining[0])
	}
	args.Name = strings.ToLower(remaining[0])
	args.Rest = remaining[1:]
	return cmd, args, nil
}

// Run parses argv, executes the command and returns the process exit code.
func Run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	cmd, args, err := Parse(argv)
	if err == nil {
		err = execute(ctx, cmd, args, stdout, stderr)
	}
	if err != nil {
		w := stderr
		if args.JSON {
			w = stdout
		}
		DisplayError(w, args.Name, err, args.JSON)
		return GetExitCode(err)
	}
	return ExitSuccess
}

func execute(ctx context.Context, cmd Command, args Args, stdout, stderr io.Writer) error {
	switch cmd {
	case CmdHelp:
		PrintUsage(stdout)
		return nil
	case CmdVersion:
		return runVersion(args, stdout)
	case CmdConfig:
		return runConfig(args, stdout)
	}

	s, err := newSession(ctx, cmd, args, stdout, stderr)
	if err != nil {
		return err
	}
	defer s.close()

	switch cmd {
	case CmdTUI:
		return s.runTUI()
	case CmdDocuments:
		return s.runDocuments()
	case CmdDocument:
		return s.runDocument()
	case CmdExperiments:
		return s.runExperiments()
	case CmdExperiment:
		return s.runExperiment()
	case CmdComments:
		return s.runComments()
	case CmdComment:
		return s.runComment()
	case CmdQuery:
		return s.runQuery()
	case CmdProxy:
		return s.runProxy()
	default:
		return ErrUnknownCommand(args.Name)
	}
}

// VersionInfo is the data reported by `expview version`.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func runVersion(args Args, stdout io.Writer) error {
	info := VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if args.JSON {
		return NewJSONResponse("version", info).Print(stdout)
	}
	fmt.Fprintln(stdout, TitleStyle.Render("expview "+info.Version))
	fmt.Fprintln(stdout, RenderLabel("Git commit"), ValueStyle.Render(info.GitCommit))
	fmt.Fprintln(stdout, RenderLabel("Build date"), ValueStyle.Render(info.BuildDate))
	fmt.Fprintln(stdout, RenderLabel("Go"), ValueStyle.Render(info.GoVersion+" ("+info.Platform+")"))
	return nil
}
