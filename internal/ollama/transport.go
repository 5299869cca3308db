// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// maxErrorBody caps how much of a failed response body is kept for the error.
const maxErrorBody = 64 * 1024

// Transport performs a single JSON POST and hands back the response body.
//
// Post returns the complete body. PostStream calls fn once per
// newline-delimited chunk, in arrival order, and returns when the body ends,
// fn returns an error, or ctx is done. Transport failures are reported as
// *ClientError so callers can tell them apart from payload content.
type Transport interface {
	Post(ctx context.Context, url string, body []byte) ([]byte, error)
	PostStream(ctx context.Context, url string, body []byte, fn func(chunk []byte) error) error
}

// HTTPTransport is the net/http implementation of Transport.
type HTTPTransport struct {
	// client is used for whole-body requests and carries the overall timeout.
	client *http.Client

	// streamClient has no timeout; streams are bounded by their context.
	streamClient *http.Client
}

// NewHTTPTransport creates a transport. timeout applies to non-streaming
// requests only; zero means no timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client:       &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
	}
}

// Post implements Transport.
func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	resp, err := t.do(ctx, t.client, url, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to read response", Cause: err}
	}
	return data, nil
}

// PostStream implements Transport.
func (t *HTTPTransport) PostStream(ctx context.Context, url string, body []byte, fn func(chunk []byte) error) error {
	resp, err := t.do(ctx, t.streamClient, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, readErr := reader.ReadBytes('\n')
		if chunk := bytes.TrimRight(line, "\r\n"); len(chunk) > 0 {
			if err := fn(chunk); err != nil {
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return classifyDoError(ctx, readErr, "stream interrupted")
		}
	}
}

// do sends the request and turns connection failures and non-2xx statuses
// into *ClientError. On success the caller owns resp.Body.
func (t *HTTPTransport) do(ctx context.Context, client *http.Client, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyDoError(ctx, err, "request failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &ClientError{
			Type:       ErrTypeStatus,
			Message:    "unexpected status: " + resp.Status,
			StatusCode: resp.StatusCode,
			Body:       data,
		}
	}

	return resp, nil
}

func classifyDoError(ctx context.Context, err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &ClientError{Type: ErrTypeCanceled, Message: "request canceled", Cause: err}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: msg, Cause: err}
}
