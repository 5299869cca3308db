// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ochat/internal/chat"
	"github.com/jeranaias/ochat/internal/config"
	"github.com/jeranaias/ochat/internal/logging"
	"github.com/jeranaias/ochat/internal/ollama"
	"github.com/jeranaias/ochat/internal/ui/styles"
)

// singleShotTemperature is used by --file and --prompt when the config file
// sets no temperature.
const singleShotTemperature = 0.8

// loadConfig loads the config file and applies flag overrides on top of it.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, &ConfigError{Path: o.configPath, Err: err}
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model = o.model
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = o.endpoint
	}
	if flags.Changed("system") {
		cfg.SystemPrompt = o.system
	}
	if o.noStream {
		cfg.Stream = false
	}
	if o.stats {
		cfg.ShowStats = true
	}
	if o.verbose {
		cfg.Log.Level = zerolog.LevelDebugValue
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: o.configPath, Err: err}
	}
	return cfg, nil
}

// run dispatches the root command to the selected mode.
func (o *rootOptions) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.Setup(cfg.Log, o.streams.ErrOut)
	if err != nil {
		return &ConfigError{Path: o.configPath, Err: err}
	}
	defer closeLog()

	logger.Debug().
		Str("model", cfg.Model).
		Str("endpoint", cfg.Endpoint).
		Bool("stream", cfg.Stream).
		Msg("configuration loaded")

	client := ollama.NewClient(cfg.Endpoint, ollama.WithLogger(logger))

	if o.conv {
		return o.runConversation(ctx, cfg, client, logger)
	}
	return o.runOnce(ctx, cfg, client, logger)
}

func engineConfig(cfg *config.Config) chat.EngineConfig {
	return chat.EngineConfig{
		Model:       cfg.Model,
		Options:     cfg.Options.Clone(),
		Stream:      cfg.Stream,
		TurnTimeout: time.Duration(cfg.TurnTimeoutSecs) * time.Second,
		ShowStats:   cfg.ShowStats,
	}
}

// runOnce sends one prompt from --file or --prompt and prints the reply.
func (o *rootOptions) runOnce(ctx context.Context, cfg *config.Config, client chat.Completer, logger zerolog.Logger) error {
	var (
		text string
		err  error
	)
	if o.prompt {
		text, err = readLinePrompt(o.streams.In, o.streams.Out)
	} else {
		text, err = readFilePrompt(o.file, o.streams.In)
	}
	if err != nil {
		return err
	}

	ecfg := engineConfig(cfg)
	if ecfg.Options.Temperature == nil {
		ecfg.Options.Temperature = ollama.Ptr(singleShotTemperature)
	}

	engine := chat.NewEngine(client, ecfg,
		chat.WithOutput(o.streams.Out),
		chat.WithEngineLogger(logger))

	_, err = engine.Ask(ctx, chat.NewTranscript(cfg.SystemPrompt), text)
	return err
}

// runConversation starts the interactive loop.
func (o *rootOptions) runConversation(ctx context.Context, cfg *config.Config, client chat.Completer, logger zerolog.Logger) error {
	engine := chat.NewEngine(client, engineConfig(cfg),
		chat.WithOutput(o.streams.Out),
		chat.WithEngineLogger(logger))

	historyFile := cfg.HistoryFile
	if historyFile == "" {
		historyFile = config.DefaultHistoryPath()
	}
	reader, closeReader := newLineReader(o.streams.In, o.streams.Out, historyFile, logger)
	defer closeReader()

	session := chat.NewSession(engine, reader,
		chat.WithSessionOutput(o.streams.Out),
		chat.WithScreen(newScreen(o.streams.Out)),
		chat.WithSessionLogger(logger),
		chat.WithTranscript(chat.NewTranscript(cfg.SystemPrompt)))

	fmt.Fprintln(o.streams.Out, styles.Dim.Render(fmt.Sprintf("%s @ %s - type #help for commands", cfg.Model, cfg.Endpoint)))

	return session.Run(ctx)
}
