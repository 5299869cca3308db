// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the color palette and text styles for ochat output.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. Whether escape codes are emitted at all is decided by the color
profile the cli package installs (NO_COLOR, FORCE_COLOR, TTY detection).

# Colors (colors.go)

  - Purple - assistant role
  - Cyan - user role, command names
  - Emerald - input prompt
  - Amber - warnings, confirmations, system role
  - Rose - errors

# Text Styles (text.go)

	Prompt, Success, Warning, Error, Dim, Command, Label, Value

Every status message carries a text indicator as well as a color:

	styles.RenderSuccess("Conversation history reset.")  // ✔ Conversation history reset.
	styles.RenderWarning("No conversation history.")     // ⚠ No conversation history.
	styles.RenderError("connection refused")             // [Error] connection refused
*/
package styles
