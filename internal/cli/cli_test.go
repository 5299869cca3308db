// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ochat/internal/config"
	"github.com/jeranaias/ochat/internal/ollama"
)

// =============================================================================
// HELPERS
// =============================================================================

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")
	for _, k := range []string{"OCHAT_MODEL", "OCHAT_ENDPOINT", "OCHAT_LOG_LEVEL", "OCHAT_STREAM"} {
		t.Setenv(k, "")
	}
	return home
}

type result struct {
	out    string
	errOut string
	err    error
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	err := Execute(context.Background(), args, IOStreams{
		In:     strings.NewReader(stdin),
		Out:    &out,
		ErrOut: &errOut,
	})
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

// chatServer is a fake Ollama /api/chat endpoint that replies with words,
// streamed one chunk per word when the request asks for streaming.
type chatServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []map[string]any
}

func newChatServer(t *testing.T, words ...string) *chatServer {
	t.Helper()
	s := &chatServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		if stream, _ := req["stream"].(bool); !stream {
			fmt.Fprintf(w, `{"model":"m","message":{"role":"assistant","content":%q},"done":true,"eval_count":3}`, strings.Join(words, ""))
			return
		}
		for _, word := range words {
			fmt.Fprintf(w, `{"model":"m","message":{"role":"assistant","content":%q},"done":false}`+"\n", word)
		}
		fmt.Fprintln(w, `{"model":"m","message":{"role":"assistant","content":""},"done":true,"eval_count":3}`)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *chatServer) endpoint() string {
	return s.URL + "/api/chat"
}

func (s *chatServer) last(t *testing.T) map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests)
	return s.requests[len(s.requests)-1]
}

func (s *chatServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func messagesOf(t *testing.T, req map[string]any) []map[string]any {
	t.Helper()
	raw, ok := req["messages"].([]any)
	require.True(t, ok)
	msgs := make([]map[string]any, len(raw))
	for i, m := range raw {
		msgs[i] = m.(map[string]any)
	}
	return msgs
}

// =============================================================================
// USAGE
// =============================================================================

func TestExecute_UsageErrors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no mode", nil},
		{"two modes", []string{"--prompt", "--conv"}},
		{"file and conv", []string{"-f", "x.txt", "-c"}},
		{"unknown flag", []string{"--bogus"}},
		{"positional argument", []string{"-c", "extra"}},
		{"missing flag value", []string{"--file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, "", tt.args...)
			require.Error(t, res.err)

			var usageErr *UsageError
			assert.True(t, errors.As(res.err, &usageErr), "got %T: %v", res.err, res.err)
			assert.Equal(t, ExitUsageError, GetExitCode(res.err))
		})
	}
}

func TestExecute_Help(t *testing.T) {
	isolate(t)

	res := run(t, "", "--help")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "--conv")
	assert.Contains(t, res.out, "--no-stream")
}

func TestExecute_Version(t *testing.T) {
	isolate(t)

	res := run(t, "", "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "ochat "+Version)
	assert.Contains(t, res.out, "commit:")
}

// =============================================================================
// SINGLE-SHOT MODES
// =============================================================================

func TestExecute_FileNotFound(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "missing.txt")

	res := run(t, "", "-f", path)
	require.Error(t, res.err)
	assert.Equal(t, fmt.Sprintf("File %s not found.", path), res.err.Error())
	assert.Equal(t, ExitGeneralError, GetExitCode(res.err))
}

func TestExecute_File(t *testing.T) {
	isolate(t)
	srv := newChatServer(t, "Hello", " there")

	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("Why is the sky blue?\n"), 0o600))

	res := run(t, "", "-f", path, "-e", srv.endpoint(), "-m", "llama3")
	require.NoError(t, res.err)
	assert.Equal(t, "Hello there\n", res.out)

	req := srv.last(t)
	assert.Equal(t, "llama3", req["model"])
	assert.Equal(t, true, req["stream"])
	assert.Equal(t, map[string]any{"temperature": 0.8}, req["options"])

	msgs := messagesOf(t, req)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0]["role"])
	assert.Equal(t, "Why is the sky blue?\n", msgs[0]["content"])
}

func TestExecute_FileFromStdin(t *testing.T) {
	isolate(t)
	srv := newChatServer(t, "ok")

	res := run(t, "line one\nline two\n", "--file", "-", "--endpoint", srv.endpoint())
	require.NoError(t, res.err)
	assert.Equal(t, "ok\n", res.out)

	msgs := messagesOf(t, srv.last(t))
	assert.Equal(t, "line one\nline two\n", msgs[0]["content"])
}

func TestExecute_Prompt(t *testing.T) {
	isolate(t)
	srv := newChatServer(t, "Paris")

	res := run(t, "capital of France?\nnot sent\n", "-p", "-e", srv.endpoint())
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.out, singleLineBanner+"\n"))
	assert.Contains(t, res.out, "Paris\n")

	msgs := messagesOf(t, srv.last(t))
	require.Len(t, msgs, 1)
	assert.Equal(t, "capital of France?", msgs[0]["content"])
}

func TestExecute_PromptWithoutInput(t *testing.T) {
	isolate(t)
	srv := newChatServer(t, "unused")

	res := run(t, "", "-p", "-e", srv.endpoint())
	require.Error(t, res.err)

	var inputErr *InputError
	assert.True(t, errors.As(res.err, &inputErr))
	assert.Equal(t, 0, srv.count())
}

func TestExecute_SystemAndNoStream(t *testing.T) {
	isolate(t)
	srv := newChatServer(t, "Aye")

	res := run(t, "hello", "-f", "-", "-e", srv.endpoint(), "--system", "Talk like a pirate.", "--no-stream")
	require.NoError(t, res.err)
	assert.Equal(t, "Aye\n", res.out)

	req := srv.last(t)
	assert.Equal(t, false, req["stream"])

	msgs := messagesOf(t, req)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0]["role"])
	assert.Equal(t, "Talk like a pirate.", msgs[0]["content"])
	assert.Equal(t, "user", msgs[1]["role"])
}

func TestExecute_ConfiguredOptions(t *testing.T) {
	isolate(t)
	srv := newChatServer(t, "x")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
model = "mistral"
endpoint = %q

[options]
temperature = 0.2
num_ctx = 2048
`, srv.endpoint())), 0o600))

	res := run(t, "hi", "-f", "-", "--config", path)
	require.NoError(t, res.err)

	req := srv.last(t)
	assert.Equal(t, "mistral", req["model"])
	assert.Equal(t, map[string]any{"temperature": 0.2, "num_ctx": float64(2048)}, req["options"])
}

func TestExecute_ServiceError(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error":"model 'nope' not found"}`)
	}))
	defer srv.Close()

	res := run(t, "hi", "-f", "-", "-e", srv.URL+"/api/chat", "-m", "nope")
	require.Error(t, res.err)
	assert.True(t, ollama.IsServiceError(res.err))
	assert.Contains(t, res.err.Error(), "model 'nope' not found")
	assert.Equal(t, ExitNetworkError, GetExitCode(res.err))
}

func TestExecute_ConnectionRefused(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/api/chat"
	srv.Close()

	res := run(t, "hi", "-f", "-", "-e", endpoint)
	require.Error(t, res.err)
	assert.Equal(t, ExitNetworkError, GetExitCode(res.err))
}

// =============================================================================
// CONVERSATION MODE
// =============================================================================

func TestExecute_Conversation(t *testing.T) {
	isolate(t)
	srv := newChatServer(t, "Hi", "!")

	res := run(t, "hello\n#status\n#exit\nnever read\n", "--conv", "-e", srv.endpoint(), "--system", "be brief")
	require.NoError(t, res.err)

	assert.Contains(t, res.out, "Hi!\n")
	assert.Contains(t, res.out, "system: be brief")
	assert.Contains(t, res.out, "user: hello")
	assert.Contains(t, res.out, "assistant: Hi!")
	assert.Equal(t, 1, srv.count())

	// Conversation mode sends only configured options.
	_, hasOptions := srv.last(t)["options"]
	assert.False(t, hasOptions)
}

func TestExecute_ConversationEndsAtEOF(t *testing.T) {
	isolate(t)
	srv := newChatServer(t, "one")

	res := run(t, "first\n", "-c", "-e", srv.endpoint())
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "one\n")
	assert.Equal(t, 1, srv.count())
}

func TestExecute_ConversationContinuesAfterTurnError(t *testing.T) {
	isolate(t)
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			fmt.Fprintln(w, `{"error":"overloaded"}`)
			return
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"recovered"},"done":true}`)
	}))
	defer srv.Close()

	res := run(t, "a\nb\n#status\n", "-c", "-e", srv.URL+"/api/chat")
	require.NoError(t, res.err)

	assert.Contains(t, res.out, "[Error]")
	assert.Contains(t, res.out, "overloaded")
	assert.Contains(t, res.out, "recovered")
	// The failed turn left no trace in the transcript.
	assert.NotContains(t, res.out, "user: a\n")
	assert.Contains(t, res.out, "user: b")
}

// =============================================================================
// CONFIGURATION
// =============================================================================

func TestExecute_InvalidEndpointFlag(t *testing.T) {
	isolate(t)

	res := run(t, "hi", "-f", "-", "-e", "ftp://example.com")
	require.Error(t, res.err)
	assert.Equal(t, ExitConfigError, GetExitCode(res.err))
}

func TestExecute_BadConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("colour = \"red\"\n"), 0o600))

	res := run(t, "hi", "-f", "-", "--config", path)
	require.Error(t, res.err)
	assert.Equal(t, ExitConfigError, GetExitCode(res.err))
	assert.Contains(t, res.err.Error(), "colour")
}

func TestExecute_MissingExplicitConfig(t *testing.T) {
	isolate(t)

	res := run(t, "", "config", "show", "--config", filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, res.err)
	assert.Equal(t, ExitConfigError, GetExitCode(res.err))
}

func TestConfigCommand_Path(t *testing.T) {
	home := isolate(t)

	res := run(t, "", "config", "path")
	require.NoError(t, res.err)
	assert.Equal(t, filepath.Join(home, ".ochat", "config.toml")+"\n", res.out)

	res = run(t, "", "config", "path", "--config", "/etc/ochat.toml")
	require.NoError(t, res.err)
	assert.Equal(t, "/etc/ochat.toml\n", res.out)
}

func TestConfigCommand_InitAndShow(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".ochat", "config.toml")

	res := run(t, "", "config", "init")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ollama.DefaultModel, cfg.Model)

	res = run(t, "", "config", "init")
	require.Error(t, res.err)
	assert.Equal(t, ExitConfigError, GetExitCode(res.err))

	res = run(t, "", "config", "init", "--force")
	require.NoError(t, res.err)

	res = run(t, "", "config", "show")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, `model = "`+ollama.DefaultModel+`"`)
	assert.Contains(t, res.out, `endpoint = "`+ollama.DefaultEndpoint+`"`)

	res = run(t, "", "config")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "[log]")
}

func TestConfigCommand_ShowAppliesEnv(t *testing.T) {
	isolate(t)
	t.Setenv("OCHAT_MODEL", "phi3")

	res := run(t, "", "config", "show")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, `model = "phi3"`)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", &UsageError{Err: errors.New("bad flag")}, ExitUsageError},
		{"config", &ConfigError{Path: "x", Err: errors.New("broken")}, ExitConfigError},
		{"validation", fmt.Errorf("wrapped: %w", config.ValidateErrors{{Field: "model", Message: "required"}}), ExitConfigError},
		{"client", &ollama.ClientError{Type: ollama.ErrTypeConnection, Message: "refused"}, ExitNetworkError},
		{"service", &ollama.ServiceError{Message: "boom"}, ExitNetworkError},
		{"input", &InputError{Message: "File x not found."}, ExitGeneralError},
		{"other", io.ErrUnexpectedEOF, ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, &InputError{Message: "File x not found."})
	assert.Contains(t, buf.String(), "[Error]")
	assert.Contains(t, buf.String(), "File x not found.")

	buf.Reset()
	DisplayError(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestInputError(t *testing.T) {
	cause := errors.New("permission denied")
	err := &InputError{Message: "Error reading a.txt", Err: cause}
	assert.Equal(t, "Error reading a.txt: permission denied", err.Error())
	assert.ErrorIs(t, err, cause)
}
