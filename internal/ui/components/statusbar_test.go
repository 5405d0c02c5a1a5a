// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/rigchat/internal/ui/styles"
)

func TestStatusBar_View(t *testing.T) {
	bar := NewStatusBar(styles.NewTheme("dark"))
	bar.Provider = "OpenRouter"
	bar.Model = "openai/gpt-oss-120b"
	bar.Current = 25
	bar.Today = 1500
	bar.Total = 2_000_000

	view := bar.View(120, "tab focus")
	assert.Contains(t, view, "OpenRouter: gpt-oss-120b")
	assert.Contains(t, view, "Tokens: 25 | Today: 1.5k | Total: 2.0M")
	assert.Contains(t, view, "tab focus")
	assert.NotContains(t, view, "pending")

	bar.Pending = 2
	bar.Message = "Saved"
	view = bar.View(120, "tab focus")
	assert.Contains(t, view, "2 pending")
	assert.Contains(t, view, "Saved")
	assert.NotContains(t, view, "tab focus")
}

func TestStatusBar_NarrowDropsRightSide(t *testing.T) {
	bar := NewStatusBar(styles.NewTheme("dark"))
	bar.Model = "m"
	view := bar.View(30, "a very long list of key hints")
	assert.NotContains(t, view, "key hints")
	assert.Contains(t, view, "Tokens")
}

func TestStatusBar_ShowClear(t *testing.T) {
	bar := NewStatusBar(styles.NewTheme("dark"))
	first := bar.Show("one", false)
	second := bar.Show("two", true)

	bar.Clear(first)
	assert.Equal(t, "two", bar.Message, "a stale clear keeps the newer message")
	assert.True(t, bar.IsError)

	bar.Clear(second)
	assert.Empty(t, bar.Message)
	assert.False(t, bar.IsError)
}
