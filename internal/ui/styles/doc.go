// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the colors and lipgloss styles of the rigchat TUI.
//
// Colors are lipgloss.AdaptiveColor values, so the same palette serves
// dark and light terminals. NewTheme picks the variant from the ui.theme
// setting ("dark", "light" or "auto").
package styles
