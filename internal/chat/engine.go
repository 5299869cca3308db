// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/jeranaias/ochat/internal/ollama"
	"github.com/jeranaias/ochat/internal/ui/styles"
)

// Completer is the part of ollama.Client the engine needs.
type Completer interface {
	Chat(ctx context.Context, req ollama.ChatRequest) (*ollama.ChatResponse, error)
	ChatStream(ctx context.Context, req ollama.ChatRequest) <-chan ollama.Delta
}

// EngineConfig holds the per-process request settings.
type EngineConfig struct {
	Model string

	// Options are sent with every request; nil or empty means none.
	Options *ollama.Options

	// Stream selects the streaming endpoint mode.
	Stream bool

	// TurnTimeout bounds a single turn. Zero means no limit.
	TurnTimeout time.Duration

	// ShowStats prints the timing line after each reply when the server
	// reports one.
	ShowStats bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithOutput sets where reply text is written. Defaults to io.Discard.
func WithOutput(w io.Writer) EngineOption {
	return func(e *Engine) { e.out = w }
}

// WithEngineLogger sets the logger.
func WithEngineLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l.With().Str("component", "engine").Logger() }
}

// Engine executes conversation turns against a Completer.
type Engine struct {
	client Completer
	cfg    EngineConfig
	out    io.Writer
	logger zerolog.Logger
}

// NewEngine creates an engine.
func NewEngine(client Completer, cfg EngineConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		client: client,
		cfg:    cfg,
		out:    io.Discard,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine settings.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Ask appends input as a user message and runs a turn. If the turn fails the
// user message is removed again, leaving t as it was before the call.
func (e *Engine) Ask(ctx context.Context, t *Transcript, input string) (string, error) {
	t.Append(ollama.NewUserMessage(input))
	reply, err := e.Turn(ctx, t)
	if err != nil {
		t.PopLast()
		return "", err
	}
	return reply, nil
}

// Turn sends the transcript, writes the reply to the output as it arrives and
// appends it to t as an assistant message. On error t is left untouched.
func (e *Engine) Turn(ctx context.Context, t *Transcript) (string, error) {
	if e.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.TurnTimeout)
		defer cancel()
	}

	req := e.request(t)
	start := time.Now()

	var (
		reply string
		stats *ollama.Stats
		err   error
	)
	if e.cfg.Stream {
		reply, stats, err = e.stream(ctx, req)
	} else {
		reply, stats, err = e.complete(ctx, req)
	}
	if err != nil {
		return "", e.turnError(ctx, err)
	}

	reply = strings.TrimRightFunc(reply, unicode.IsSpace)
	t.Append(ollama.NewAssistantMessage(reply))

	e.logger.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Int("reply_bytes", len(reply)).
		Dur("elapsed", time.Since(start)).
		Msg("turn complete")

	if e.cfg.ShowStats && stats != nil {
		fmt.Fprintln(e.out, styles.Dim.Render(stats.Format()))
	}
	return reply, nil
}

func (e *Engine) request(t *Transcript) ollama.ChatRequest {
	req := ollama.ChatRequest{
		Model:    e.cfg.Model,
		Stream:   e.cfg.Stream,
		Messages: t.Messages(),
	}
	if !e.cfg.Options.IsEmpty() {
		req.Options = e.cfg.Options.Clone()
	}
	return req
}

// stream drains the producer channel, echoing every delta. The channel is
// always closed by the producer, so ranging over it also joins the producer.
func (e *Engine) stream(ctx context.Context, req ollama.ChatRequest) (string, *ollama.Stats, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	deltas := e.client.ChatStream(streamCtx, req)

	var (
		acc   strings.Builder
		stats *ollama.Stats
		err   error
		done  bool
	)
	for delta := range deltas {
		if delta.Err != nil {
			err = delta.Err
			break
		}
		io.WriteString(e.out, delta.Text)
		acc.WriteString(delta.Text)
		if delta.Done {
			stats = delta.Stats
			done = true
			break
		}
	}

	// Stop the producer if it is still running, then wait for it to exit.
	cancel()
	for range deltas {
	}
	fmt.Fprintln(e.out)

	if err != nil {
		return "", nil, err
	}
	if !done {
		// A producer stopped by timeout or cancellation closes without an
		// error delta; that is a failed turn, not a short reply.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", nil, ctxErr
		}
		e.logger.Warn().Str("model", req.Model).Msg("stream ended without a final chunk")
	}
	return acc.String(), stats, nil
}

func (e *Engine) complete(ctx context.Context, req ollama.ChatRequest) (string, *ollama.Stats, error) {
	resp, err := e.client.Chat(ctx, req)
	if err != nil {
		return "", nil, err
	}
	fmt.Fprintln(e.out, resp.Message.Content)

	var stats *ollama.Stats
	if resp.Done {
		stats = resp.Stats()
	}
	return resp.Message.Content, stats, nil
}

// turnError maps context expiry to the client error types so callers can
// use ollama.IsTimeout and friends on every turn failure.
func (e *Engine) turnError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		var clientErr *ollama.ClientError
		if !errors.As(err, &clientErr) {
			err = &ollama.ClientError{Type: ollama.ErrTypeTimeout, Message: "turn timed out", Cause: err}
		}
	} else if errors.Is(err, context.Canceled) {
		var clientErr *ollama.ClientError
		if !errors.As(err, &clientErr) {
			err = &ollama.ClientError{Type: ollama.ErrTypeCanceled, Message: "turn canceled", Cause: err}
		}
	}
	e.logger.Debug().Err(err).Msg("turn failed")
	return err
}
