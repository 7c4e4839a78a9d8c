// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the expview TUI.

All colors use Lip Gloss AdaptiveColor so the palette follows the terminal's
light or dark background.

# Color System (colors.go)

  - Purple - primary accent, selections, focused borders
  - Cyan - brand color, headings, key hints
  - Emerald - success and ready states
  - Amber - warnings and blocked navigation
  - Rose - errors

Status messages always carry an ASCII indicator ([OK], [X], [!], [i]) so
they stay readable without color.

# Theme (theme.go)

Theme bundles the styles used by the views and components. NewTheme takes
the configured mode ("dark", "light" or "auto"); auto asks the terminal via
termenv.
*/
package styles
