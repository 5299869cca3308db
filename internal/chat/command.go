// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "strings"

// MultilineDelimiter opens and closes a multi-line prompt.
const MultilineDelimiter = `"""`

// CommandKind classifies one line of REPL input.
type CommandKind int

const (
	// CmdPrompt is ordinary input sent to the model.
	CmdPrompt CommandKind = iota
	CmdEmpty
	CmdHelp
	CmdExit
	CmdClear
	CmdStatus
	CmdReset
	CmdSystem
	CmdRepeat
	// CmdMultiline starts a """-delimited prompt.
	CmdMultiline
)

func (k CommandKind) String() string {
	switch k {
	case CmdPrompt:
		return "prompt"
	case CmdEmpty:
		return "empty"
	case CmdHelp:
		return "help"
	case CmdExit:
		return "exit"
	case CmdClear:
		return "clear"
	case CmdStatus:
		return "status"
	case CmdReset:
		return "reset"
	case CmdSystem:
		return "system"
	case CmdRepeat:
		return "repeat"
	case CmdMultiline:
		return "multiline"
	default:
		return "unknown"
	}
}

// Command is the parsed form of one input line.
type Command struct {
	Kind CommandKind

	// Text is the prompt for CmdPrompt and the text after the opening
	// delimiter for CmdMultiline. Empty otherwise.
	Text string

	// Closed is set for CmdMultiline when the first line also carries the
	// closing delimiter.
	Closed bool
}

// commandNames maps the trimmed input to its command. Anything that is not
// an exact match, including unknown #words, is a prompt.
var commandNames = map[string]CommandKind{
	"#help":   CmdHelp,
	"#exit":   CmdExit,
	"#quit":   CmdExit,
	"#clear":  CmdClear,
	"#status": CmdStatus,
	"#reset":  CmdReset,
	"#system": CmdSystem,
	"#repeat": CmdRepeat,
}

// ParseCommand classifies a line read at the REPL prompt.
func ParseCommand(line string) Command {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Command{Kind: CmdEmpty}
	}

	if kind, ok := commandNames[trimmed]; ok {
		return Command{Kind: kind}
	}

	if rest, ok := strings.CutPrefix(trimmed, MultilineDelimiter); ok {
		if body, closed := strings.CutSuffix(rest, MultilineDelimiter); closed {
			return Command{Kind: CmdMultiline, Text: body, Closed: true}
		}
		return Command{Kind: CmdMultiline, Text: rest}
	}

	return Command{Kind: CmdPrompt, Text: trimmed}
}

// closesMultiline reports whether line ends a multi-line prompt and returns
// the line with the delimiter stripped.
func closesMultiline(line string) (string, bool) {
	return strings.CutSuffix(strings.TrimRight(line, " \t\r"), MultilineDelimiter)
}
