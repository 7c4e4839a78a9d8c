// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - error types, exit codes and error display for the CLI.
//
// Command handlers always return errors; Run decides how to display them
// and which exit code to use.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/expview/internal/api"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "document", "query")
	Action  string // Action being performed (e.g., "fetch", "post")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// ConfigError wraps a failure to load, validate or save the config file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// ErrMissingArgument creates an error for a missing required argument.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{Field: argName, Reason: "required argument missing", Example: usage}
}

// ErrUnknownCommand creates an error for an unrecognized command word.
func ErrUnknownCommand(name string) error {
	return &ValidationError{Field: "command", Value: name, Reason: "unknown command", Example: "expview help"}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode determines the exit code for err.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return ExitConfigError
	}

	switch {
	case errors.Is(err, api.ErrInvalidArg):
		return ExitUsageError
	case errors.Is(err, api.ErrNotFound):
		return ExitNotFoundError
	case errors.Is(err, api.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.Is(err, api.ErrUnavailable):
		return ExitNetworkError
	}
	return ExitGeneralError
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON envelope in JSON mode.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		resp := NewJSONErrorResponse(command, err)
		resp.ErrorType = errorType(err)
		_ = resp.Print(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

func errorType(err error) string {
	var (
		validationErr *ValidationError
		configErr     *ConfigError
		clientErr     *api.ClientError
		commandErr    *CommandError
	)
	switch {
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.As(err, &configErr):
		return "config_error"
	case errors.As(err, &clientErr):
		return "api_" + clientErr.Kind.String()
	case errors.As(err, &commandErr):
		return "command_error"
	default:
		return "generic_error"
	}
}
