// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the reusable pieces of the rigchat TUI: the
// folder and chat sidebar and the bottom status bar. Components hold no
// references to the session; the chat model copies state into them before
// rendering.
package components
