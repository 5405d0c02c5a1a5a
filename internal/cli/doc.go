// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rigchat command tree.
//
// Every command shares one app value. The root command's
// PersistentPreRunE loads the config and sets up logging, and the
// library, usage ledger and search index are opened lazily by the commands
// that need them.
//
// # Commands Overview
//
//	rigchat                      full-screen view in a terminal, help otherwise
//	rigchat tui                  full-screen view
//	rigchat chat                 line-oriented REPL with slash commands
//	rigchat send <text>          one-shot send, waits for the reply
//	rigchat folders ...          list, new, rename, delete, use
//	rigchat chats ...            list, new, show, rename, delete, export
//	rigchat search <query>       full-text search over saved chats
//	rigchat usage [--reset]      token counters
//	rigchat providers ...        list, use, models
//	rigchat key ...              set, delete, status (OS keyring)
//	rigchat config ...           show, path, keys, get, set, import-account
//	rigchat web [query]          web search URL
//
// # Output
//
// Commands print styled text for people. With --json they print a
// JSONResponse envelope instead, and errors go through DisplayError,
// which adds a hint for the common mistakes.
//
// # Exit Codes
//
//	0 - success
//	1 - any error
package cli
