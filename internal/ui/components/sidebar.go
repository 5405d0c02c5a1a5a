// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/rigchat/internal/library"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// SIDEBAR COMPONENT
// =============================================================================

// Sidebar lists folders with their chats under them and tracks a cursor.
// Rows come from library.Items, so folder rows have an empty Title.
type Sidebar struct {
	items  []library.Item
	cursor int
	offset int

	// ActiveFolder and OpenChat are drawn highlighted.
	ActiveFolder string
	OpenChat     library.Item

	theme *styles.Theme
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme) *Sidebar {
	return &Sidebar{theme: theme}
}

// SetItems replaces the rows. The cursor stays on the same item when it
// still exists and is clamped otherwise.
func (s *Sidebar) SetItems(items []library.Item) {
	var selected library.Item
	hadSelection := s.cursor < len(s.items)
	if hadSelection {
		selected = s.items[s.cursor]
	}
	s.items = items
	if hadSelection && s.Select(selected) {
		return
	}
	s.clamp()
}

// Items returns the rows.
func (s *Sidebar) Items() []library.Item {
	return s.items
}

// Len returns the number of rows.
func (s *Sidebar) Len() int {
	return len(s.items)
}

// Cursor returns the selected row index.
func (s *Sidebar) Cursor() int {
	return s.cursor
}

// Selected returns the row under the cursor.
func (s *Sidebar) Selected() (library.Item, bool) {
	if s.cursor < 0 || s.cursor >= len(s.items) {
		return library.Item{}, false
	}
	return s.items[s.cursor], true
}

// Select moves the cursor to item and reports whether it was found.
func (s *Sidebar) Select(item library.Item) bool {
	for i, it := range s.items {
		if it == item {
			s.cursor = i
			return true
		}
	}
	return false
}

// MoveUp moves the cursor one row up.
func (s *Sidebar) MoveUp() {
	if s.cursor > 0 {
		s.cursor--
	}
}

// MoveDown moves the cursor one row down.
func (s *Sidebar) MoveDown() {
	if s.cursor < len(s.items)-1 {
		s.cursor++
	}
}

// Home moves the cursor to the first row.
func (s *Sidebar) Home() {
	s.cursor = 0
}

// End moves the cursor to the last row.
func (s *Sidebar) End() {
	s.clampTo(len(s.items) - 1)
}

func (s *Sidebar) clamp() {
	s.clampTo(s.cursor)
}

func (s *Sidebar) clampTo(i int) {
	if i >= len(s.items) {
		i = len(s.items) - 1
	}
	if i < 0 {
		i = 0
	}
	s.cursor = i
}

// View renders at most height rows, each width columns wide, scrolling so
// that the cursor stays visible. focused draws the cursor row.
func (s *Sidebar) View(width, height int, focused bool) string {
	if height < 1 {
		return ""
	}
	if len(s.items) == 0 {
		return s.theme.Muted.Render(util.PadRight("(no chats)", width))
	}

	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+height {
		s.offset = s.cursor - height + 1
	}

	end := s.offset + height
	if end > len(s.items) {
		end = len(s.items)
	}

	lines := make([]string, 0, end-s.offset)
	for i := s.offset; i < end; i++ {
		lines = append(lines, s.renderRow(s.items[i], width, focused && i == s.cursor))
	}
	return strings.Join(lines, "\n")
}

func (s *Sidebar) renderRow(item library.Item, width int, selected bool) string {
	var text string
	style := s.theme.Chat
	if item.IsFolder() {
		text = "▸ " + item.Folder
		style = s.theme.Folder
		if item.Folder == s.ActiveFolder {
			text = "▾ " + item.Folder
			style = s.theme.FolderOpen
		}
	} else {
		text = "  " + item.Title
		if item == s.OpenChat {
			text = "• " + item.Title
			style = s.theme.ChatOpen
		}
	}

	text = util.PadRight(util.TruncateWidth(text, width), width)
	if selected {
		return s.theme.Cursor.Inherit(style).Render(text)
	}
	return style.Render(text)
}
