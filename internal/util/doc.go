// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across rigchat.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//   - WriteJSONAtomic: Indented JSON (no HTML escaping) written atomically
//
// String Utilities:
//   - TruncateRunes, TruncateWidth: UTF-8 and display-width safe truncation
//   - SingleLine: Collapse whitespace for one-line previews
//   - FormatCount: Compact counters (1.2k, 3.4M)
//
// # Usage
//
//	err := util.WriteJSONAtomic(path, chat, 0644)
//	label := util.FormatCount(total)
package util
