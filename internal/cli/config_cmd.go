// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ochat/internal/config"
	"github.com/jeranaias/ochat/internal/ui/styles"
)

// =============================================================================
// CONFIG COMMAND
// =============================================================================

func newConfigCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
		Long: `Manage the ochat configuration file.

Without a subcommand the effective configuration is printed.
Environment overrides: OCHAT_MODEL, OCHAT_ENDPOINT, OCHAT_LOG_LEVEL, OCHAT_STREAM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.started = true
			return o.showConfig(cmd)
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.started = true
			return o.showConfig(cmd)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.started = true
			return o.initConfig(cmd, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.started = true
			p, err := o.resolveConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cmd.AddCommand(show, initCmd, path)
	return cmd
}

func (o *rootOptions) resolveConfigPath() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	p, err := config.ConfigPath()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return p, nil
}

func (o *rootOptions) showConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return &ConfigError{Path: o.configPath, Err: err}
	}
	data, err := cfg.Encode()
	if err != nil {
		return &ConfigError{Path: o.configPath, Err: err}
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func (o *rootOptions) initConfig(cmd *cobra.Command, force bool) error {
	path, err := o.resolveConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !force {
		return &ConfigError{Path: path, Err: errors.New("file already exists (use --force to overwrite)")}
	}

	if err := config.SaveTOML(config.Default(), path); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Wrote "+path))
	return nil
}
