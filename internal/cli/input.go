// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/jeranaias/ochat/internal/chat"
	"github.com/jeranaias/ochat/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// LineEditor provides input history and line editing for the REPL.
// It implements chat.LineReader.
type LineEditor struct {
	line        *liner.State
	historyFile string
	logger      zerolog.Logger
}

// NewLineEditor puts the terminal into line-editing mode and loads history
// from historyFile. An empty historyFile disables history.
func NewLineEditor(historyFile string, logger zerolog.Logger) *LineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	e := &LineEditor{
		line:        line,
		historyFile: historyFile,
		logger:      logger,
	}
	e.LoadHistory()
	return e
}

// LoadHistory loads command history from file.
func (e *LineEditor) LoadHistory() {
	if e.historyFile == "" {
		return
	}
	f, err := os.Open(e.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := e.line.ReadHistory(f); err != nil {
		e.logger.Debug().Err(err).Str("file", e.historyFile).Msg("could not read history")
	}
}

// ReadLine implements chat.LineReader. Ctrl+C and Ctrl+D at the prompt are
// both reported as io.EOF.
func (e *LineEditor) ReadLine(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history to file with 0600 permissions.
func (e *LineEditor) SaveHistory() {
	if e.historyFile == "" {
		return
	}

	var buf bytes.Buffer
	if _, err := e.line.WriteHistory(&buf); err != nil {
		e.logger.Debug().Err(err).Msg("could not collect history")
		return
	}
	if err := util.AtomicWriteFile(e.historyFile, buf.Bytes(), 0o600); err != nil {
		e.logger.Debug().Err(err).Str("file", e.historyFile).Msg("could not save history")
	}
}

// Close saves history and restores the terminal.
func (e *LineEditor) Close() error {
	e.SaveHistory()
	return e.line.Close()
}

// newLineReader picks liner for an interactive terminal and a plain scanner
// for pipes and redirected input.
func newLineReader(in io.Reader, out io.Writer, historyFile string, logger zerolog.Logger) (chat.LineReader, func() error) {
	if isTerminal(in) && isTerminal(out) {
		editor := NewLineEditor(historyFile, logger)
		return editor, editor.Close
	}
	return chat.NewScannerReader(in, out), func() error { return nil }
}
