// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"errors"
	"fmt"

	"github.com/jeranaias/expview/internal/api"
	"github.com/jeranaias/expview/internal/ui/components"
	"github.com/jeranaias/expview/internal/ui/styles"
)

// mdCache keeps the last glamour render keyed on store version and width.
type mdCache struct {
	version uint64
	width   int
	key     string
	out     string
	valid   bool
}

func (c *mdCache) render(r *components.MarkdownRenderer, version uint64, key string, width int, src func() string) string {
	if c.valid && c.version == version && c.width == width && c.key == key {
		return c.out
	}
	c.out = r.Render(src(), width)
	c.version, c.width, c.key, c.valid = version, width, key, true
	return c.out
}

func (c *mdCache) reset() {
	c.valid = false
}

func loadingLine(env *Env, text string) string {
	return env.Theme.Spinner.Render(env.spinner()) + " " + env.Theme.Muted.Render(text)
}

// errorText describes err for the user.
func errorText(err error) string {
	var ce *api.ClientError
	switch {
	case errors.Is(err, api.ErrNotFound):
		return "not found"
	case errors.Is(err, api.ErrTimeout):
		return "the backend did not answer in time"
	case errors.Is(err, api.ErrUnavailable):
		return "cannot reach the backend"
	case errors.As(err, &ce) && ce.Message != "":
		return ce.Message
	default:
		return err.Error()
	}
}

func errorLine(err error, hint string) string {
	msg := styles.RenderError(errorText(err))
	if hint != "" {
		msg += "  " + styles.RenderInfo(hint)
	}
	return msg
}

func contentWidth(width int) int {
	if width < 20 {
		return 20
	}
	return width - 2
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
