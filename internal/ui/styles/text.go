// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// Text styles shared by the REPL and the CLI.
var (
	// Prompt is the REPL input marker.
	Prompt = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	// Success is used for confirmations.
	Success = lipgloss.NewStyle().
		Foreground(Amber)

	// Warning is used for recoverable problems such as an empty history.
	Warning = lipgloss.NewStyle().
		Foreground(Amber)

	// Error is used for the [Error] tag in front of failures.
	Error = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	// Dim is used for secondary information and stats lines.
	Dim = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Command highlights command names in help output.
	Command = lipgloss.NewStyle().
		Foreground(Cyan)

	// Label is used for field names in "config show".
	Label = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Width(20)

	// Value is used for field values in "config show".
	Value = lipgloss.NewStyle().
		Foreground(TextPrimary)
)

// RoleStyle returns the label style for a transcript role.
func RoleStyle(role string) lipgloss.Style {
	switch role {
	case "system":
		return lipgloss.NewStyle().Foreground(Amber).Bold(true)
	case "user":
		return lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	case "assistant":
		return lipgloss.NewStyle().Foreground(Purple).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(TextSecondary)
	}
}
