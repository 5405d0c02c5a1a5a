// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chats out of the history tree as standalone files.
//
// # Key Types
//
//   - Exporter: Converts a storage.ChatFile to bytes
//   - MarkdownExporter: Human-readable document with optional front matter
//   - JSONExporter: The chat file object form, re-importable
//   - Options: Output directory, metadata and timestamp switches
//
// # Usage
//
//	exp, err := export.ForFormat("markdown", opts)
//	path, err := export.ExportToFile(chat, exp, opts)
package export
