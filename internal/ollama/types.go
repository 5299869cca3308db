// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"fmt"
	"reflect"
	"time"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a chat message in the conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the request body for /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`             // Model name (e.g., "llama2-uncensored:7b-chat")
	Stream   bool      `json:"stream"`            // Enable streaming
	Messages []Message `json:"messages"`          // Conversation history
	Options  *Options  `json:"options,omitempty"` // Model parameters, omitted when nil
}

// Options contains model parameters for inference.
//
// Every field is optional. A nil pointer is left out of the request so the
// server applies its own default; a non-nil zero value is sent as-is.
type Options struct {
	NumKeep            *int     `json:"num_keep,omitempty" toml:"num_keep,omitempty"`
	Seed               *int     `json:"seed,omitempty" toml:"seed,omitempty"`
	NumPredict         *int     `json:"num_predict,omitempty" toml:"num_predict,omitempty"`
	TopK               *int     `json:"top_k,omitempty" toml:"top_k,omitempty"`
	TopP               *float64 `json:"top_p,omitempty" toml:"top_p,omitempty"`
	TFSZ               *float64 `json:"tfs_z,omitempty" toml:"tfs_z,omitempty"`
	TypicalP           *float64 `json:"typical_p,omitempty" toml:"typical_p,omitempty"`
	RepeatLastN        *int     `json:"repeat_last_n,omitempty" toml:"repeat_last_n,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty" toml:"temperature,omitempty"`
	RepeatPenalty      *float64 `json:"repeat_penalty,omitempty" toml:"repeat_penalty,omitempty"`
	PresencePenalty    *float64 `json:"presence_penalty,omitempty" toml:"presence_penalty,omitempty"`
	FrequencyPenalty   *float64 `json:"frequency_penalty,omitempty" toml:"frequency_penalty,omitempty"`
	Mirostat           *int     `json:"mirostat,omitempty" toml:"mirostat,omitempty"`
	MirostatTau        *float64 `json:"mirostat_tau,omitempty" toml:"mirostat_tau,omitempty"`
	MirostatEta        *float64 `json:"mirostat_eta,omitempty" toml:"mirostat_eta,omitempty"`
	PenalizeNewline    *bool    `json:"penalize_newline,omitempty" toml:"penalize_newline,omitempty"`
	Stop               []string `json:"stop,omitempty" toml:"stop,omitempty"`
	NUMA               *bool    `json:"numa,omitempty" toml:"numa,omitempty"`
	NumCtx             *int     `json:"num_ctx,omitempty" toml:"num_ctx,omitempty"`
	NumBatch           *int     `json:"num_batch,omitempty" toml:"num_batch,omitempty"`
	NumGQA             *int     `json:"num_gqa,omitempty" toml:"num_gqa,omitempty"`
	NumGPU             *int     `json:"num_gpu,omitempty" toml:"num_gpu,omitempty"`
	MainGPU            *int     `json:"main_gpu,omitempty" toml:"main_gpu,omitempty"`
	LowVRAM            *bool    `json:"low_vram,omitempty" toml:"low_vram,omitempty"`
	F16KV              *bool    `json:"f16_kv,omitempty" toml:"f16_kv,omitempty"`
	VocabOnly          *bool    `json:"vocab_only,omitempty" toml:"vocab_only,omitempty"`
	UseMMap            *bool    `json:"use_mmap,omitempty" toml:"use_mmap,omitempty"`
	UseMLock           *bool    `json:"use_mlock,omitempty" toml:"use_mlock,omitempty"`
	EmbeddingOnly      *bool    `json:"embedding_only,omitempty" toml:"embedding_only,omitempty"`
	RopeFrequencyBase  *float64 `json:"rope_frequency_base,omitempty" toml:"rope_frequency_base,omitempty"`
	RopeFrequencyScale *float64 `json:"rope_frequency_scale,omitempty" toml:"rope_frequency_scale,omitempty"`
	NumThread          *int     `json:"num_thread,omitempty" toml:"num_thread,omitempty"`
}

// IsEmpty reports whether no option is set.
func (o *Options) IsEmpty() bool {
	if o == nil {
		return true
	}
	v := reflect.ValueOf(*o)
	for i := 0; i < v.NumField(); i++ {
		if !v.Field(i).IsNil() {
			return false
		}
	}
	return true
}

// Clone returns a copy that shares no pointers with o.
func (o *Options) Clone() *Options {
	if o == nil {
		return nil
	}
	c := *o
	c.NumKeep = clonePtr(o.NumKeep)
	c.Seed = clonePtr(o.Seed)
	c.NumPredict = clonePtr(o.NumPredict)
	c.TopK = clonePtr(o.TopK)
	c.TopP = clonePtr(o.TopP)
	c.TFSZ = clonePtr(o.TFSZ)
	c.TypicalP = clonePtr(o.TypicalP)
	c.RepeatLastN = clonePtr(o.RepeatLastN)
	c.Temperature = clonePtr(o.Temperature)
	c.RepeatPenalty = clonePtr(o.RepeatPenalty)
	c.PresencePenalty = clonePtr(o.PresencePenalty)
	c.FrequencyPenalty = clonePtr(o.FrequencyPenalty)
	c.Mirostat = clonePtr(o.Mirostat)
	c.MirostatTau = clonePtr(o.MirostatTau)
	c.MirostatEta = clonePtr(o.MirostatEta)
	c.PenalizeNewline = clonePtr(o.PenalizeNewline)
	if o.Stop != nil {
		c.Stop = append([]string(nil), o.Stop...)
	}
	c.NUMA = clonePtr(o.NUMA)
	c.NumCtx = clonePtr(o.NumCtx)
	c.NumBatch = clonePtr(o.NumBatch)
	c.NumGQA = clonePtr(o.NumGQA)
	c.NumGPU = clonePtr(o.NumGPU)
	c.MainGPU = clonePtr(o.MainGPU)
	c.LowVRAM = clonePtr(o.LowVRAM)
	c.F16KV = clonePtr(o.F16KV)
	c.VocabOnly = clonePtr(o.VocabOnly)
	c.UseMMap = clonePtr(o.UseMMap)
	c.UseMLock = clonePtr(o.UseMLock)
	c.EmbeddingOnly = clonePtr(o.EmbeddingOnly)
	c.RopeFrequencyBase = clonePtr(o.RopeFrequencyBase)
	c.RopeFrequencyScale = clonePtr(o.RopeFrequencyScale)
	c.NumThread = clonePtr(o.NumThread)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v. Handy for filling Options literals.
func Ptr[T any](v T) *T {
	return &v
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatResponse is one JSON object from /api/chat. In streaming mode the
// server sends one per line; otherwise exactly one for the whole reply.
type ChatResponse struct {
	Model              string  `json:"model"`
	CreatedAt          string  `json:"created_at"`
	Message            Message `json:"message"`
	Done               bool    `json:"done"`
	DoneReason         string  `json:"done_reason,omitempty"`
	TotalDuration      int64   `json:"total_duration,omitempty"`       // nanoseconds
	LoadDuration       int64   `json:"load_duration,omitempty"`        // nanoseconds
	PromptEvalCount    int     `json:"prompt_eval_count,omitempty"`    // number of tokens in prompt
	PromptEvalDuration int64   `json:"prompt_eval_duration,omitempty"` // nanoseconds
	EvalCount          int     `json:"eval_count,omitempty"`           // number of tokens generated
	EvalDuration       int64   `json:"eval_duration,omitempty"`        // nanoseconds
}

// Stats extracts the timing counters carried by a final response.
func (r *ChatResponse) Stats() *Stats {
	return &Stats{
		TotalDuration:      time.Duration(r.TotalDuration),
		LoadDuration:       time.Duration(r.LoadDuration),
		PromptEvalDuration: time.Duration(r.PromptEvalDuration),
		EvalDuration:       time.Duration(r.EvalDuration),
		PromptTokens:       r.PromptEvalCount,
		CompletionTokens:   r.EvalCount,
	}
}

// ErrorResponse is the body the server sends instead of a chat object
// when a request fails.
type ErrorResponse struct {
	Error *string `json:"error"`
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// Delta is the unit handed from the stream producer to its consumer.
type Delta struct {
	// Text fragment to show and accumulate. For undecodable chunks this is
	// one of the sentinel glyphs.
	Text string

	// Done marks the last delta of a reply.
	Done bool

	// Sentinel is set when Text is a placeholder for a chunk that failed to decode.
	Sentinel bool

	// Stats is only populated on the final delta, when the server reports it.
	Stats *Stats

	// Err ends the turn. Deltas carrying an error have no text.
	Err error
}

// Stats holds the usage counters reported on the final chunk.
type Stats struct {
	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration
	PromptTokens       int
	CompletionTokens   int
}

// TokensPerSecond calculates the generation speed.
func (s *Stats) TokensPerSecond() float64 {
	if s.EvalDuration <= 0 {
		return 0
	}
	return float64(s.CompletionTokens) / s.EvalDuration.Seconds()
}

// Format returns a one-line summary such as "1.2s | 42 tokens | 35.0 tok/s".
func (s *Stats) Format() string {
	total := s.TotalDuration.Round(time.Millisecond)
	return fmt.Sprintf("%s | %d tokens | %.1f tok/s", total, s.CompletionTokens, s.TokensPerSecond())
}

// =============================================================================
// HELPER METHODS
// =============================================================================

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}
