// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and saving for ochat.
//
// # Configuration Precedence
//
// Settings are resolved from (highest first):
//   - Command-line flags (applied by the cli package)
//   - Environment variables (OCHAT_*)
//   - ~/.ochat/config.toml, or the file given with --config
//   - Built-in defaults
//
// # Example File
//
//	model = "llama2-uncensored:7b-chat"
//	endpoint = "http://localhost:11434/api/chat"
//	stream = true
//	system_prompt = "You are a terse assistant."
//
//	[log]
//	level = "warn"
//
//	[options]
//	temperature = 0.7
//	num_ctx = 4096
package config
