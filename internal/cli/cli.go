// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command line surface for ochat.
//
// The root command runs one of three modes (--file, --prompt, --conv);
// version and config are subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// IOStreams holds the standard streams a command reads and writes.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// StdStreams returns the process streams.
func StdStreams() IOStreams {
	return IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr}
}

// rootOptions holds every flag of the root command.
type rootOptions struct {
	// Modes
	file   string
	prompt bool
	conv   bool

	// Overrides
	model    string
	endpoint string
	system   string
	noStream bool
	stats    bool

	// Persistent
	configPath string
	verbose    bool

	streams IOStreams

	// started is set once a RunE begins; anything failing earlier is a
	// malformed command line.
	started bool
}

// NewRootCommand builds the ochat command tree.
func NewRootCommand(streams IOStreams) *cobra.Command {
	cmd, _ := newRootCommand(streams)
	return cmd
}

func newRootCommand(streams IOStreams) (*cobra.Command, *rootOptions) {
	o := &rootOptions{streams: streams}

	cmd := &cobra.Command{
		Use:   "ochat",
		Short: "Chat with a local Ollama model from the terminal",
		Long: `ochat sends prompts to an Ollama chat endpoint and prints the replies.

Exactly one mode is required:
  --file FILE   send the contents of FILE ("-" for stdin) as a single prompt
  --prompt      read a single line from stdin and send it
  --conv        start an interactive conversation (type #help inside)`,
		Example: `  ochat --conv
  ochat -f question.txt -m llama3
  echo "why is the sky blue?" | ochat -f -
  ochat --conv --system "You are terse." --no-stream`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.started = true
			return o.run(cmd.Context(), cmd)
		},
	}

	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	flags := cmd.Flags()
	flags.StringVarP(&o.file, "file", "f", "", `send the contents of FILE as one prompt ("-" reads stdin)`)
	flags.BoolVarP(&o.prompt, "prompt", "p", false, "read one line from stdin and send it")
	flags.BoolVarP(&o.conv, "conv", "c", false, "start an interactive conversation")
	flags.StringVarP(&o.model, "model", "m", "", "model name (overrides config)")
	flags.StringVarP(&o.endpoint, "endpoint", "e", "", "chat endpoint URL (overrides config)")
	flags.StringVar(&o.system, "system", "", "system prompt that seeds the conversation")
	flags.BoolVar(&o.noStream, "no-stream", false, "wait for the whole reply instead of streaming it")
	flags.BoolVar(&o.stats, "stats", false, "print duration and token speed after each reply")

	cmd.MarkFlagsMutuallyExclusive("file", "prompt", "conv")
	cmd.MarkFlagsOneRequired("file", "prompt", "conv")

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&o.configPath, "config", "", "config file (default ~/.ochat/config.toml)")
	persistent.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging to stderr")

	cmd.AddCommand(newVersionCommand(o), newConfigCommand(o))
	return cmd, o
}

// Execute runs the command line in args. Errors detected before a command
// starts running are returned as *UsageError.
func Execute(ctx context.Context, args []string, streams IOStreams) error {
	applyColorProfile()

	root, o := newRootCommand(streams)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err != nil && !o.started {
		var usageErr *UsageError
		if !errors.As(err, &usageErr) {
			err = &UsageError{Err: err}
		}
	}
	return err
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.started = true
			fmt.Fprintf(cmd.OutOrStdout(), "ochat %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit:  %s\n", GitCommit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:   %s\n", BuildDate)
			fmt.Fprintf(cmd.OutOrStdout(), "  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
