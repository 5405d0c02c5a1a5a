// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/provider"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// View renders the chat view.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	body := m.renderMessagesPane()
	if m.theme.ShowSidebar() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebarPane(), body)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderInput(),
		m.renderStatusBar(),
	)
}

// =============================================================================
// SECTIONS
// =============================================================================

func (m Model) renderHeader() string {
	brand := m.theme.HeaderBrand.Render("rigchat")
	cur := m.sess.Current()
	info := "new chat in " + m.lib.Active()
	if cur.Path != "" {
		info = cur.Folder + " / " + cur.Title
	}
	info = util.TruncateWidth(info, m.width-12)
	line := brand + "  " + m.theme.HeaderInfo.Render(info)
	return m.theme.Header.Width(m.width).MaxHeight(headerHeight).Render(line)
}

func (m Model) bodyHeight() int {
	h := m.height - headerHeight - inputHeight - inputChrome - statusHeight
	if h < paneChrome+1 {
		h = paneChrome + 1
	}
	return h
}

func (m Model) renderSidebarPane() string {
	style := m.theme.Pane
	if m.focus == FocusSidebar && m.mode != ModePrompt {
		style = m.theme.PaneFocused
	}
	inner := styles.SidebarWidth - paneChrome
	height := m.bodyHeight() - paneChrome
	content := m.sidebar.View(inner, height, m.focus == FocusSidebar)
	return style.Width(inner).Height(height).Render(content)
}

func (m Model) renderMessagesPane() string {
	style := m.theme.Pane
	if m.focus == FocusInput {
		style = m.theme.PaneFocused
	}
	return style.Width(m.viewport.Width).Height(m.bodyHeight() - paneChrome).Render(m.viewport.View())
}

func (m Model) renderInput() string {
	width := m.width - inputChrome
	switch m.mode {
	case ModePrompt:
		content := m.prompt.View() + "\n\n" + m.theme.Help.Render("enter confirm • esc cancel")
		return m.theme.PaneFocused.Width(width).Height(inputHeight).Render(content)
	case ModeConfirm:
		name := m.target.Title
		kind := "chat"
		if m.target.IsFolder() {
			name, kind = m.target.Folder, "folder and all its chats"
		}
		content := m.theme.Prompt.Render(fmt.Sprintf("Delete %s %q? (y/N)", kind, name))
		return m.theme.PaneFocused.Width(width).Height(inputHeight).Render(content)
	}

	style := m.theme.Pane
	if m.focus == FocusInput {
		style = m.theme.PaneFocused
	}
	return style.Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	hints := m.keys.InputHelp()
	if m.focus == FocusSidebar {
		hints = m.keys.SidebarHelp()
	}
	return m.status.View(m.width, helpLine(hints))
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders the open chat for a pane width columns wide.
func (m Model) renderMessages(width int) string {
	if width < 10 {
		width = 10
	}
	history := m.sess.History()
	if len(history) == 0 && len(m.failures) == 0 && !m.waiting() {
		return m.theme.Muted.Render("Start typing to chat. Ctrl+N starts a new chat, Tab moves to the chat list.")
	}

	text := lipgloss.NewStyle().Width(width)
	var b strings.Builder
	for _, msg := range history {
		b.WriteString(m.renderLabel(msg))
		b.WriteString("\n")
		if strings.TrimSpace(msg.Text) != "" {
			b.WriteString(text.Inherit(m.theme.MessageText).Render(msg.Text))
			b.WriteString("\n")
		}
		for _, img := range msg.Images {
			b.WriteString(m.theme.Attachment.Render("[image] " + describeImage(img)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	for _, f := range m.failures {
		b.WriteString(text.Inherit(m.theme.ErrorText).Render(f))
		b.WriteString("\n\n")
	}

	if m.waiting() {
		b.WriteString(m.spinner.View() + " " + m.theme.Thinking.Render("waiting for "+provider.DisplayModelName(m.sess.Model())))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderLabel(msg storage.Message) string {
	if msg.Role != storage.RoleAssistant {
		return m.theme.UserLabel.Render("You")
	}
	label := m.theme.AssistantLabel.Render("Assistant")
	if msg.Model != "" {
		label += " " + m.theme.ModelName.Render(provider.DisplayModelName(msg.Model))
	}
	return label
}

// describeImage keeps base64 payloads off the screen.
func describeImage(src string) string {
	if strings.HasPrefix(src, "data:") || len(src) > 120 {
		return fmt.Sprintf("embedded image (%d bytes)", len(src))
	}
	return src
}
