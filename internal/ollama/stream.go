// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// errStreamStopped ends PostStream early once the reply is complete or the
// service reported an error. It never leaves this file.
var errStreamStopped = errors.New("stream stopped")

// ChatStream sends a streaming chat request and returns the channel the
// replies arrive on. req.Stream is forced to true.
//
// One goroutine performs the request and decodes each chunk as it arrives,
// sending one Delta per chunk in order. It stops after a Done delta, after a
// delta carrying Err, or when ctx is cancelled, and always closes the
// channel on exit. A transport failure is delivered as a final Delta with
// Err set, so a consumer ranging over the channel can never hang.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest) <-chan Delta {
	req.Stream = true
	ch := make(chan Delta, streamBuffer)

	go func() {
		defer close(ch)

		body, err := json.Marshal(req)
		if err != nil {
			send(ctx, ch, Delta{Err: &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}})
			return
		}

		log := c.logger.With().Str("model", req.Model).Logger()
		start := time.Now()
		chunks, sentinels := 0, 0

		err = c.transport.PostStream(ctx, c.endpoint, body, func(chunk []byte) error {
			chunks++
			delta := DecodeChunk(chunk)
			if delta.Sentinel {
				sentinels++
				log.Debug().Int("chunk", chunks).Int("bytes", len(chunk)).Msg("undecodable stream chunk")
			}
			if !send(ctx, ch, delta) {
				return ctx.Err()
			}
			if delta.Done || delta.Err != nil {
				return errStreamStopped
			}
			return nil
		})

		switch {
		case err == nil, errors.Is(err, errStreamStopped):
			log.Debug().
				Int("chunks", chunks).
				Int("sentinels", sentinels).
				Dur("elapsed", time.Since(start)).
				Msg("stream finished")
		case ctx.Err() != nil:
			// Consumer is gone; nobody is left to read an error delta.
			log.Debug().Err(err).Msg("stream abandoned")
		default:
			err = serviceErrorFromStatus(err)
			log.Warn().Err(err).Int("chunks", chunks).Msg("stream request failed")
			send(ctx, ch, Delta{Err: err})
		}
	}()

	return ch
}

// send delivers d unless ctx is done first.
func send(ctx context.Context, ch chan<- Delta, d Delta) bool {
	select {
	case ch <- d:
		return true
	case <-ctx.Done():
		return false
	}
}
