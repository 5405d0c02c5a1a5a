// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// SidebarWidth is the width of the folder and chat list, borders included.
const SidebarWidth = 30

// Theme holds all the styled components for the application.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// Header
	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderInfo  lipgloss.Style

	// Sidebar
	Pane        lipgloss.Style
	PaneFocused lipgloss.Style
	Folder      lipgloss.Style
	FolderOpen  lipgloss.Style
	Chat        lipgloss.Style
	ChatOpen    lipgloss.Style
	Cursor      lipgloss.Style

	// Messages
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ModelName      lipgloss.Style
	MessageText    lipgloss.Style
	ErrorText      lipgloss.Style
	Attachment     lipgloss.Style
	Thinking       lipgloss.Style

	// Footer
	StatusBar lipgloss.Style
	Prompt    lipgloss.Style
	Notice    lipgloss.Style
	Warning   lipgloss.Style
	Help      lipgloss.Style
	Muted     lipgloss.Style
}

// NewTheme creates a theme for mode, which is "dark", "light" or "auto".
// Anything else is treated as "auto".
func NewTheme(mode string) *Theme {
	isDark := termenv.HasDarkBackground()
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderBrand = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.HeaderInfo = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(OverlayDim)
	t.PaneFocused = t.Pane.
		BorderForeground(FocusRing)

	t.Folder = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary)
	t.FolderOpen = lipgloss.NewStyle().
		Bold(true).
		Foreground(Emerald)
	t.Chat = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.ChatOpen = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.Cursor = lipgloss.NewStyle().
		Background(SelectionBg)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)
	t.ModelName = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
	t.MessageText = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose)
	t.Attachment = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Thinking = lipgloss.NewStyle().
		Foreground(Amber).
		Italic(true)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.Prompt = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.Notice = lipgloss.NewStyle().
		Foreground(Emerald)
	t.Warning = lipgloss.NewStyle().
		Foreground(Rose)
	t.Help = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// ShowSidebar reports whether the terminal is wide enough for the sidebar
// next to a readable message pane.
func (t *Theme) ShowSidebar() bool {
	return t.Width == 0 || t.Width >= SidebarWidth+40
}
