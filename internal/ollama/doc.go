// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for an Ollama-compatible
// /api/chat endpoint.
//
// # Key Types
//
//   - Transport: one JSON POST, whole body or newline-delimited chunks
//   - Client: builds requests and decodes replies
//   - ChatRequest / ChatResponse: wire objects
//   - Options: sparse generation parameters, absent keys omitted
//   - Delta: one decoded stream fragment handed to the consumer
//
// # Usage
//
// Non-streaming:
//
//	client := ollama.NewClient(ollama.DefaultEndpoint)
//	resp, err := client.Chat(ctx, ollama.ChatRequest{
//	    Model:    "llama2-uncensored:7b-chat",
//	    Messages: []ollama.Message{ollama.NewUserMessage("Hello")},
//	})
//
// Streaming:
//
//	for delta := range client.ChatStream(ctx, req) {
//	    if delta.Err != nil {
//	        return delta.Err
//	    }
//	    fmt.Print(delta.Text)
//	    if delta.Done {
//	        break
//	    }
//	}
//
// # Decoding
//
// Each stream chunk is decoded on its own. A chunk that is not UTF-8 or not
// a chat object becomes a sentinel delta (BadUTF8Glyph, BadEnvelopeGlyph)
// instead of ending the stream. An {"error": ...} chunk ends the stream with
// a *ServiceError.
package ollama
