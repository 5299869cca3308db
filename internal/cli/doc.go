// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the ochat command line.
//
// # Modes
//
// Exactly one of the root flags selects what ochat does:
//
//	ochat --file FILE   # send FILE ("-" for stdin) as one prompt
//	ochat --prompt      # read one line from stdin and send it
//	ochat --conv        # interactive conversation
//
// Flags override the config file, which overrides built-in defaults.
// Subcommands: version, config [show|init|path].
//
// # Exit Codes
//
//	0  success
//	1  local I/O failure (missing prompt file, unreadable stdin)
//	2  usage error
//	3  configuration error
//	5  the chat service failed or could not be reached
//
// Execute returns the error instead of exiting; main maps it with
// GetExitCode and prints it with DisplayError.
package cli
