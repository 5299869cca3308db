// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the config and chat packages.
//
//   - AtomicWriteFile: crash-safe file writing with fsync, used for the
//     config file and input history
//   - Preview: single-line, width-limited text for log fields
package util
