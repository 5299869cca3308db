// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat holds the conversation state and the REPL built on top of the
// ollama client.
//
// An Engine runs one turn at a time: it builds a request from the Transcript,
// prints the reply as it streams in and appends it as an assistant message.
// A Session reads input lines, handles the #commands (see ParseCommand) and
// hands everything else to the Engine.
//
// Nothing in this package is safe for concurrent use. The only goroutine
// involved in a turn is the stream producer owned by the ollama client, and
// Engine.Turn waits for it to exit before returning.
package chat
