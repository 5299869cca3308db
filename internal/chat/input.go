// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"bufio"
	"fmt"
	"io"
)

// LineReader supplies REPL input one line at a time, without the trailing
// newline. It returns io.EOF when input ends or the user aborts at the
// prompt.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// Screen clears the terminal for #clear.
type Screen interface {
	Clear()
}

// ScannerReader is a LineReader over any io.Reader. It is used when stdin is
// not a terminal and in tests.
type ScannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// maxLineSize bounds a single input line; pasted prompts can be long.
const maxLineSize = 1024 * 1024

// NewScannerReader reads lines from r and writes prompts to out. out may be nil.
func NewScannerReader(r io.Reader, out io.Writer) *ScannerReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	if out == nil {
		out = io.Discard
	}
	return &ScannerReader{scanner: s, out: out}
}

// ReadLine implements LineReader.
func (r *ScannerReader) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(r.out, prompt)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

type nopScreen struct{}

func (nopScreen) Clear() {}
