// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// rigchat is a terminal chat client for OpenAI-compatible backends.
// Chats are kept as JSON files in folders under ~/.rigchat/ChatHistory.
package main

import "github.com/jeranaias/rigchat/internal/cli"

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	if GitCommit != "unknown" {
		cli.Version += " (" + GitCommit + ", " + BuildDate + ")"
	}
	cli.Execute()
}
