// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/jeranaias/ochat/internal/ollama"

// Transcript is the ordered conversation sent with every request.
//
// It is owned by a single goroutine (the REPL loop or a single-shot command)
// and has no locking.
type Transcript struct {
	messages []ollama.Message
}

// NewTranscript creates a transcript, seeded with a system message when
// system is non-empty.
func NewTranscript(system string) *Transcript {
	t := &Transcript{}
	if system != "" {
		t.Append(ollama.NewSystemMessage(system))
	}
	return t
}

// Append adds a message at the end.
func (t *Transcript) Append(m ollama.Message) {
	t.messages = append(t.messages, m)
}

// PopLast removes and returns the most recent message.
func (t *Transcript) PopLast() (ollama.Message, bool) {
	if len(t.messages) == 0 {
		return ollama.Message{}, false
	}
	last := t.messages[len(t.messages)-1]
	t.messages = t.messages[:len(t.messages)-1]
	return last, true
}

// Reset discards every message.
func (t *Transcript) Reset() {
	t.messages = nil
}

// Messages returns a copy of the conversation, safe to hand to a request.
func (t *Transcript) Messages() []ollama.Message {
	out := make([]ollama.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}
