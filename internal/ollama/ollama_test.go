// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		role Role
	}{
		{"user", NewUserMessage("Hello"), RoleUser},
		{"assistant", NewAssistantMessage("Hello"), RoleAssistant},
		{"system", NewSystemMessage("Hello"), RoleSystem},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.role, tc.msg.Role)
			assert.Equal(t, "Hello", tc.msg.Content)
		})
	}
}

// =============================================================================
// REQUEST TYPE TESTS
// =============================================================================

func TestChatRequest_WireFormat(t *testing.T) {
	req := ChatRequest{
		Model:    "llama2",
		Stream:   true,
		Messages: []Message{NewSystemMessage("be brief"), NewUserMessage("hi")},
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"model": "llama2",
		"stream": true,
		"messages": [
			{"role": "system", "content": "be brief"},
			{"role": "user", "content": "hi"}
		]
	}`, string(data))
}

func TestOptions_OmitsAbsentKeys(t *testing.T) {
	opts := &Options{
		Temperature: Ptr(0.8),
		Seed:        Ptr(0),
		Stop:        []string{"###"},
		UseMMap:     Ptr(false),
	}

	data, err := json.Marshal(ChatRequest{Model: "m", Options: opts})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	options, ok := decoded["options"].(map[string]any)
	require.True(t, ok, "options should be present")

	// Explicit zero values are sent; nothing else is.
	assert.Len(t, options, 4)
	assert.Equal(t, 0.8, options["temperature"])
	assert.Equal(t, float64(0), options["seed"])
	assert.Equal(t, false, options["use_mmap"])
	assert.Equal(t, []any{"###"}, options["stop"])
}

func TestOptions_IsEmpty(t *testing.T) {
	var nilOpts *Options
	assert.True(t, nilOpts.IsEmpty())
	assert.True(t, (&Options{}).IsEmpty())
	assert.False(t, (&Options{NumThread: Ptr(4)}).IsEmpty())
	assert.False(t, (&Options{Stop: []string{"x"}}).IsEmpty())
}

func TestOptions_Clone(t *testing.T) {
	orig := &Options{Temperature: Ptr(0.5), Stop: []string{"a"}}
	clone := orig.Clone()

	*clone.Temperature = 1.5
	clone.Stop[0] = "b"

	assert.Equal(t, 0.5, *orig.Temperature)
	assert.Equal(t, "a", orig.Stop[0])
	assert.Nil(t, (*Options)(nil).Clone())
}

// =============================================================================
// STATS TESTS
// =============================================================================

func TestStats_TokensPerSecond(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		duration time.Duration
		want     float64
	}{
		{"normal", 100, time.Second, 100.0},
		{"zero duration", 100, 0, 0.0},
		{"fast", 1000, 100 * time.Millisecond, 10000.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &Stats{CompletionTokens: tc.count, EvalDuration: tc.duration}
			assert.InDelta(t, tc.want, s.TokensPerSecond(), 0.01)
		})
	}
}

func TestStats_Format(t *testing.T) {
	s := &Stats{
		TotalDuration:    1500 * time.Millisecond,
		EvalDuration:     time.Second,
		CompletionTokens: 42,
	}
	assert.Equal(t, "1.5s | 42 tokens | 42.0 tok/s", s.Format())
}

func TestChatResponse_Stats(t *testing.T) {
	resp := &ChatResponse{
		TotalDuration:      int64(2 * time.Second),
		PromptEvalCount:    10,
		PromptEvalDuration: int64(500 * time.Millisecond),
		EvalCount:          20,
	}

	stats := resp.Stats()
	assert.Equal(t, 2*time.Second, stats.TotalDuration)
	assert.Equal(t, 500*time.Millisecond, stats.PromptEvalDuration)
	assert.Equal(t, 10, stats.PromptTokens)
	assert.Equal(t, 20, stats.CompletionTokens)
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestErrorHelpers(t *testing.T) {
	timeout := &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	conn := &ClientError{Type: ErrTypeConnection, Message: "request failed"}
	svc := &ServiceError{Message: "model not found"}

	assert.True(t, IsTimeout(timeout))
	assert.ErrorIs(t, timeout, ErrTimeout)
	assert.False(t, IsTimeout(conn))
	assert.True(t, IsConnection(conn))
	assert.True(t, IsServiceError(svc))
	assert.False(t, IsServiceError(conn))
}

func TestServiceError_Message(t *testing.T) {
	assert.Equal(t, "server error: boom", (&ServiceError{Message: "boom"}).Error())
	assert.Equal(t, "server error (404): missing", (&ServiceError{Message: "missing", StatusCode: 404}).Error())
}
