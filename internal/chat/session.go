// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/ochat/internal/ollama"
	"github.com/jeranaias/ochat/internal/ui/styles"
	"github.com/jeranaias/ochat/internal/util"
)

// previewWidth bounds prompt text in debug logs.
const previewWidth = 60

// PromptMarker is shown in front of every REPL input line.
const PromptMarker = "➤ "

// User-facing REPL messages.
const (
	msgHistoryReset  = "Conversation history reset."
	msgNewSystem     = "Input the new system prompt."
	msgNoHistory     = "No conversation history."
	msgMultilineHint = "... "
)

// =============================================================================
// SESSION
// =============================================================================

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionOutput sets where command output goes. Defaults to io.Discard.
func WithSessionOutput(w io.Writer) SessionOption {
	return func(s *Session) { s.out = w }
}

// WithScreen sets the screen cleared by #clear.
func WithScreen(sc Screen) SessionOption {
	return func(s *Session) { s.screen = sc }
}

// WithSessionLogger sets the logger; the session id is added to every event.
func WithSessionLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithTranscript starts the session from an existing transcript.
func WithTranscript(t *Transcript) SessionOption {
	return func(s *Session) { s.transcript = t }
}

// Session is the interactive conversation: it reads lines, dispatches
// #commands and runs turns through the engine.
type Session struct {
	ID string

	engine     *Engine
	transcript *Transcript
	in         LineReader
	out        io.Writer
	screen     Screen
	logger     zerolog.Logger
	prompt     string
}

// NewSession creates a session reading from in.
func NewSession(engine *Engine, in LineReader, opts ...SessionOption) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		engine: engine,
		in:     in,
		out:    io.Discard,
		screen: nopScreen{},
		logger: zerolog.Nop(),
		prompt: styles.Prompt.Render(PromptMarker),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.transcript == nil {
		s.transcript = NewTranscript("")
	}
	s.logger = s.logger.With().Str("session", s.ID).Logger()
	return s
}

// Transcript returns the live conversation.
func (s *Session) Transcript() *Transcript {
	return s.transcript
}

// Run reads and handles lines until #exit, end of input or ctx is done.
// Turn failures are printed and the loop continues; only input failures
// other than end of input are returned.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Debug().Int("messages", s.transcript.Len()).Msg("session started")
	defer s.logger.Debug().Msg("session ended")

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := s.in.ReadLine(s.prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		quit, err := s.Handle(ctx, line)
		switch {
		case errors.Is(err, io.EOF):
			fmt.Fprintln(s.out)
			return nil
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			s.logger.Debug().Err(err).Msg("turn failed")
			fmt.Fprintln(s.out, styles.RenderError(err.Error()))
		}
		if quit {
			return nil
		}
	}
}

// Handle applies one line of input. It returns true when the session should
// end. Errors are either a failed turn or io.EOF while reading a follow-up
// line (#system, multi-line prompts).
func (s *Session) Handle(ctx context.Context, line string) (bool, error) {
	cmd := ParseCommand(line)
	s.logger.Debug().Stringer("command", cmd.Kind).Msg("input")

	switch cmd.Kind {
	case CmdEmpty:
		return false, nil
	case CmdExit:
		return true, nil
	case CmdHelp:
		s.printHelp()
	case CmdClear:
		s.screen.Clear()
	case CmdStatus:
		s.printStatus()
	case CmdReset:
		s.transcript.Reset()
		fmt.Fprintln(s.out, styles.RenderSuccess(msgHistoryReset))
	case CmdSystem:
		return false, s.replaceSystem()
	case CmdRepeat:
		return false, s.repeat(ctx)
	case CmdMultiline:
		text, err := s.readMultiline(cmd)
		if err != nil {
			return false, err
		}
		return false, s.ask(ctx, text)
	case CmdPrompt:
		return false, s.ask(ctx, cmd.Text)
	}
	return false, nil
}

func (s *Session) ask(ctx context.Context, text string) error {
	s.logger.Debug().
		Str("prompt", util.Preview(text, previewWidth)).
		Int("history", s.transcript.Len()).
		Msg("sending prompt")
	_, err := s.engine.Ask(ctx, s.transcript, text)
	return err
}

// replaceSystem discards the conversation and starts a new one from the
// next input line.
func (s *Session) replaceSystem() error {
	s.transcript.Reset()
	fmt.Fprintln(s.out, styles.RenderSuccess(msgHistoryReset))
	fmt.Fprintln(s.out, msgNewSystem)

	line, err := s.in.ReadLine("")
	if err != nil {
		return err
	}
	// The line becomes the system message even when it is empty.
	s.transcript.Append(ollama.NewSystemMessage(strings.TrimSpace(line)))
	return nil
}

// repeat drops the last entry and, if anything is left, runs a turn on what
// remains.
func (s *Session) repeat(ctx context.Context) error {
	s.transcript.PopLast()
	if s.transcript.Len() == 0 {
		fmt.Fprintln(s.out, styles.RenderWarning(msgNoHistory))
		return nil
	}
	_, err := s.engine.Turn(ctx, s.transcript)
	return err
}

// readMultiline collects lines until one ends with the closing delimiter.
// Inner newlines are kept; the delimiters are not.
func (s *Session) readMultiline(first Command) (string, error) {
	if first.Closed {
		return first.Text, nil
	}

	var lines []string
	if first.Text != "" {
		lines = append(lines, first.Text)
	}
	for {
		line, err := s.in.ReadLine(styles.Dim.Render(msgMultilineHint))
		if err != nil {
			return "", err
		}
		if body, ok := closesMultiline(line); ok {
			lines = append(lines, body)
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, line)
	}
}

func (s *Session) printStatus() {
	for _, m := range s.transcript.Messages() {
		role := string(m.Role)
		fmt.Fprintf(s.out, "%s: %s\n", styles.RoleStyle(role).Render(role), m.Content)
	}
}

var helpEntries = []struct {
	name string
	desc string
}{
	{"#help", "show this summary"},
	{"#exit", "quit the conversation"},
	{"#quit", "alias for #exit"},
	{"#clear", "clear the screen"},
	{"#reset", "reset the conversation"},
	{"#system", "reset the conversation and change the system message"},
	{"#status", "print the conversation history"},
	{"#repeat", "regenerate the last response / repeat the last message"},
	{`"""`, `start a multi-line prompt, end it with a line ending in """`},
}

func (s *Session) printHelp() {
	fmt.Fprintln(s.out, "Implemented commands are:")
	for _, e := range helpEntries {
		fmt.Fprintf(s.out, "  %s %s\n", styles.Command.Render(fmt.Sprintf("%-8s", e.name)), e.desc)
	}
}
