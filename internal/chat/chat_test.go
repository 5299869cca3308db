// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"

	"github.com/jeranaias/ochat/internal/ollama"
)

// fakeCompleter replays scripted replies, one per request, and records
// every request it receives.
type fakeCompleter struct {
	mu       sync.Mutex
	streams  [][]ollama.Delta // one script per streaming request
	replies  []*ollama.ChatResponse
	errs     []error // for non-streaming requests, paired with replies
	requests []ollama.ChatRequest

	// hold keeps the producer open after its script until ctx is done.
	hold bool
}

func (f *fakeCompleter) Chat(ctx context.Context, req ollama.ChatRequest) (*ollama.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return &ollama.ChatResponse{Message: ollama.NewAssistantMessage(""), Done: true}, nil
}

func (f *fakeCompleter) ChatStream(ctx context.Context, req ollama.ChatRequest) <-chan ollama.Delta {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	var script []ollama.Delta
	if i := len(f.requests) - 1; i < len(f.streams) {
		script = f.streams[i]
	}
	hold := f.hold
	f.mu.Unlock()

	ch := make(chan ollama.Delta)
	go func() {
		defer close(ch)
		for _, d := range script {
			select {
			case ch <- d:
			case <-ctx.Done():
				return
			}
		}
		if hold {
			<-ctx.Done()
		}
	}()
	return ch
}

func (f *fakeCompleter) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeCompleter) lastRequest() ollama.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// reply builds a streaming script that delivers parts and then a final delta.
func reply(parts ...string) []ollama.Delta {
	var out []ollama.Delta
	for _, p := range parts {
		out = append(out, ollama.Delta{Text: p})
	}
	return append(out, ollama.Delta{Done: true})
}
