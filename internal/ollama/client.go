// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents a transport-level failure: the request never
// produced a usable response body.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int    // set for ErrTypeStatus
	Body       []byte // response body for ErrTypeStatus, possibly truncated
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches another *ClientError of the same type, so the sentinels below
// work with errors.Is.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Type == e.Type && t.Message == e.Message
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeStatus
	ErrTypeTimeout
	ErrTypeCanceled
	ErrTypeInvalidResponse
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeStatus:
		return "status"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeCanceled:
		return "canceled"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrTimeout  = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrCanceled = &ClientError{Type: ErrTypeCanceled, Message: "request canceled"}
)

// ServiceError is an error reported by the service itself through an
// {"error": "..."} payload.
type ServiceError struct {
	Message    string
	StatusCode int // zero when the error arrived inside a 2xx stream
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return "server error (" + strconv.Itoa(e.StatusCode) + "): " + e.Message
	}
	return "server error: " + e.Message
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return hasType(err, ErrTypeTimeout)
}

// IsConnection checks if an error means the service could not be reached.
func IsConnection(err error) bool {
	return hasType(err, ErrTypeConnection)
}

// IsServiceError checks if the service rejected the request with an error payload.
func IsServiceError(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr)
}

func hasType(err error, t ErrorType) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == t
	}
	return false
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	// DefaultEndpoint is the chat endpoint of a local Ollama server.
	DefaultEndpoint = "http://localhost:11434/api/chat"

	// DefaultModel is used when neither flags nor config name one.
	DefaultModel = "llama2-uncensored:7b-chat"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 5 * time.Minute

	// streamBuffer is the capacity of the delta channel. The producer never
	// waits on a slow terminal unless this many deltas are pending.
	streamBuffer = 256
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTransport replaces the default HTTP transport.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) { c.transport = t }
}

// WithLogger sets the logger used for transport failures and stream events.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = l.With().Str("component", "ollama").Logger() }
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one chat endpoint.
//
// A Client holds no per-request state and is safe for concurrent use.
type Client struct {
	endpoint  string
	transport Transport
	logger    zerolog.Logger
}

// NewClient creates a client for the given chat endpoint URL.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(DefaultTimeout)
	}
	return c
}

// Endpoint returns the chat endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// Chat sends a non-streaming chat request and returns the complete response.
// req.Stream is forced to false.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	start := time.Now()
	data, err := c.transport.Post(ctx, c.endpoint, body)
	if err != nil {
		err = serviceErrorFromStatus(err)
		c.logger.Warn().Err(err).Str("model", req.Model).Msg("chat request failed")
		return nil, err
	}

	resp, err := DecodeResponse(data)
	if err != nil {
		c.logger.Warn().Err(err).Str("model", req.Model).Msg("chat response rejected")
		return nil, err
	}

	c.logger.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Dur("elapsed", time.Since(start)).
		Msg("chat request complete")
	return resp, nil
}

// serviceErrorFromStatus upgrades a non-2xx transport failure whose body is
// an error envelope to a *ServiceError carrying the server's message.
func serviceErrorFromStatus(err error) error {
	var clientErr *ClientError
	if !errors.As(err, &clientErr) || clientErr.Type != ErrTypeStatus {
		return err
	}
	if msg, ok := decodeError(clientErr.Body); ok {
		return &ServiceError{Message: msg, StatusCode: clientErr.StatusCode}
	}
	return err
}
