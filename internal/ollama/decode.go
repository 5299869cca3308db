// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// Placeholders emitted in place of chunks that cannot be decoded, so the
// user sees something went wrong without losing the rest of the stream.
const (
	// BadUTF8Glyph replaces a chunk that is not valid UTF-8 (Nerd Font warning sign).
	BadUTF8Glyph = "\uf071"

	// BadEnvelopeGlyph replaces a chunk that is text but not a chat object.
	BadEnvelopeGlyph = "\u2620"
)

// DecodeChunk turns one raw stream chunk into a Delta.
//
// The error envelope is checked before the chat envelope. Decode failures
// never return an error; they yield a sentinel delta with Done unset so
// the stream keeps going.
func DecodeChunk(chunk []byte) Delta {
	if !utf8.Valid(chunk) {
		return Delta{Text: BadUTF8Glyph, Sentinel: true}
	}

	if msg, ok := decodeError(chunk); ok {
		return Delta{Err: &ServiceError{Message: msg}}
	}

	resp, ok := decodeChat(chunk)
	if !ok {
		return Delta{Text: BadEnvelopeGlyph, Sentinel: true}
	}

	delta := Delta{Text: resp.Message.Content, Done: resp.Done}
	if resp.Done {
		delta.Stats = resp.Stats()
	}
	return delta
}

// DecodeResponse decodes a complete non-streaming response body.
// An error envelope yields *ServiceError; anything else that is not a chat
// object yields a *ClientError of type ErrTypeInvalidResponse.
func DecodeResponse(body []byte) (*ChatResponse, error) {
	if !utf8.Valid(body) {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "response is not valid UTF-8"}
	}

	if msg, ok := decodeError(body); ok {
		return nil, &ServiceError{Message: msg}
	}

	if !isObject(body) {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "unable to decode response: not a JSON object"}
	}
	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "unable to decode response", Cause: err}
	}
	if !hasChatFields(body) {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "unable to decode response: missing message or done"}
	}
	return &resp, nil
}

// decodeError reports whether data is an {"error": string} envelope.
func decodeError(data []byte) (string, bool) {
	if !isObject(data) {
		return "", false
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil || errResp.Error == nil {
		return "", false
	}
	return *errResp.Error, true
}

func decodeChat(data []byte) (*ChatResponse, bool) {
	if !isObject(data) {
		return nil, false
	}
	var resp ChatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false
	}
	if !hasChatFields(data) {
		return nil, false
	}
	return &resp, true
}

// chatEnvelope holds the keys every chat object carries. Model, created_at
// and the message role are optional.
type chatEnvelope struct {
	Message *struct {
		Content *string `json:"content"`
	} `json:"message"`
	Done *bool `json:"done"`
}

// hasChatFields reports whether data has a message with content and a done
// flag. Objects such as {} or {"status":"loading"} do not.
func hasChatFields(data []byte) bool {
	var env chatEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false
	}
	return env.Message != nil && env.Message.Content != nil && env.Done != nil
}

// isObject rejects JSON values other than objects; json.Unmarshal would
// otherwise accept "null" into a struct without complaint.
func isObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}
