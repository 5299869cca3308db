// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging sets up the zerolog logger shared by the client, the
// engine and the CLI.
//
// Logs go to stderr (or a file) so they never mix with streamed replies on
// stdout. The default level is error; --verbose lowers it to debug.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/ochat/internal/config"
)

// Setup builds the logger described by cfg and installs it as the zerolog
// global logger. stderr is used when cfg.File is empty. The returned closer
// releases the log file, if any.
func Setup(cfg config.LogConfig, stderr io.Writer) (zerolog.Logger, func() error, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.ErrorLevel
	}

	output, closer, err := openOutput(cfg.File, stderr)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log output: %w", err)
	}

	if strings.ToLower(cfg.Format) != "json" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.TimeOnly,
			NoColor:    cfg.File != "",
		}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closer, nil
}

// openOutput returns the writer for the log target.
func openOutput(path string, stderr io.Writer) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	if path == "" {
		return stderr, noop, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
