// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keyboard bindings for the chat view.
type KeyMap struct {
	Quit     key.Binding
	Cancel   key.Binding
	Focus    key.Binding
	NewChat  key.Binding
	Submit   key.Binding
	Newline  key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Sidebar only.
	Up        key.Binding
	Down      key.Binding
	Home      key.Binding
	End       key.Binding
	Open      key.Binding
	NewFolder key.Binding
	Rename    key.Binding
	Delete    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel request"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "focus"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("M-enter", "newline"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "bottom"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		NewFolder: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new folder"),
		),
		Rename: key.NewBinding(
			key.WithKeys("r", "f2"),
			key.WithHelp("r", "rename"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete"),
		),
	}
}

// InputHelp returns the bindings shown while typing.
func (k KeyMap) InputHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Newline, k.NewChat, k.Focus, k.Quit}
}

// SidebarHelp returns the bindings shown while the sidebar has focus.
func (k KeyMap) SidebarHelp() []key.Binding {
	return []key.Binding{k.Open, k.NewFolder, k.Rename, k.Delete, k.Focus, k.Quit}
}

// helpLine renders bindings as "key action" pairs.
func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
