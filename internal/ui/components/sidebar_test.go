// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/library"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

func testItems() []library.Item {
	return []library.Item{
		{Folder: "Work"},
		{Folder: "Work", Title: "Plan"},
		{Folder: "Work", Title: "Notes"},
		{Folder: "Home"},
		{Folder: "Home", Title: "Recipes"},
	}
}

func TestSidebar_Navigation(t *testing.T) {
	s := NewSidebar(styles.NewTheme("dark"))
	_, ok := s.Selected()
	assert.False(t, ok)

	s.SetItems(testItems())
	item, ok := s.Selected()
	require.True(t, ok)
	assert.True(t, item.IsFolder())

	s.MoveUp()
	assert.Equal(t, 0, s.Cursor())

	s.MoveDown()
	s.MoveDown()
	item, _ = s.Selected()
	assert.Equal(t, "Notes", item.Title)

	s.End()
	assert.Equal(t, 4, s.Cursor())
	s.MoveDown()
	assert.Equal(t, 4, s.Cursor())

	s.Home()
	assert.Equal(t, 0, s.Cursor())
}

func TestSidebar_SetItemsKeepsSelection(t *testing.T) {
	s := NewSidebar(styles.NewTheme("dark"))
	s.SetItems(testItems())
	require.True(t, s.Select(library.Item{Folder: "Home", Title: "Recipes"}))

	// A new chat above the selection shifts it down one row.
	items := testItems()
	items = append(items[:3], append([]library.Item{{Folder: "Work", Title: "New"}}, items[3:]...)...)
	s.SetItems(items)
	item, _ := s.Selected()
	assert.Equal(t, "Recipes", item.Title)
	assert.Equal(t, 5, s.Cursor())

	// When the selection disappears the cursor is clamped.
	s.SetItems(testItems()[:2])
	assert.Equal(t, 1, s.Cursor())

	s.SetItems(nil)
	assert.Equal(t, 0, s.Cursor())
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestSidebar_ViewScrollsToCursor(t *testing.T) {
	s := NewSidebar(styles.NewTheme("dark"))
	assert.Contains(t, s.View(20, 5, true), "(no chats)")

	s.SetItems(testItems())
	s.ActiveFolder = "Work"
	s.OpenChat = library.Item{Folder: "Work", Title: "Plan"}

	view := s.View(20, 10, false)
	assert.Len(t, strings.Split(view, "\n"), 5)
	assert.Contains(t, view, "▾ Work")
	assert.Contains(t, view, "▸ Home")
	assert.Contains(t, view, "• Plan")

	s.End()
	view = s.View(20, 2, true)
	lines := strings.Split(view, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Recipes")
	assert.NotContains(t, view, "Work")
}
