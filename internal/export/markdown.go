// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports chats to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a chat to Markdown format.
func (e *MarkdownExporter) Export(chat *storage.ChatFile) ([]byte, error) {
	if chat == nil {
		return nil, fmt.Errorf("chat is nil")
	}
	if len(chat.Messages) == 0 {
		return nil, ErrEmptyChat
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(chat.Title)))
		if chat.Folder != "" {
			sb.WriteString(fmt.Sprintf("folder: %s\n", escapeYAML(chat.Folder)))
		}
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(chat.Messages)))
		if models := modelsOf(chat); len(models) > 0 {
			sb.WriteString(fmt.Sprintf("models: %s\n", escapeYAML(strings.Join(models, ", "))))
		}
		sb.WriteString(fmt.Sprintf("exported: %s\n", e.options.now().Format(time.RFC3339)))
		sb.WriteString("generator: rigchat\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(chat.Title)))

	for i, msg := range chat.Messages {
		sb.WriteString("### " + e.formatRoleLabel(msg.Role))
		if msg.Role == storage.RoleAssistant && msg.Model != "" && e.options.IncludeMetadata {
			sb.WriteString(" <sub>" + msg.Model + "</sub>")
		}
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			sb.WriteString(" <sub>" + formatTimestamp(msg.Timestamp) + "</sub>")
		}
		sb.WriteString("\n\n")

		if text := strings.TrimSpace(msg.Text); text != "" {
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
		for _, img := range msg.Images {
			sb.WriteString(formatImage(img))
			sb.WriteString("\n\n")
		}

		if i < len(chat.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from rigchat on %s*\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatRoleLabel returns a formatted label for the message role.
func (e *MarkdownExporter) formatRoleLabel(role string) string {
	switch role {
	case "":
		return "Unknown"
	case storage.RoleUser:
		return "[User]"
	case storage.RoleAssistant:
		return "[Assistant]"
	default:
		runes := []rune(role)
		return strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
}

// formatImage links image files and summarizes inline image data, which
// would otherwise bloat the document.
func formatImage(img string) string {
	if strings.HasPrefix(img, "data:") || !looksLikePath(img) {
		return "*[inline image]*"
	}
	return fmt.Sprintf("![%s](%s)", escapeMarkdown(filepath.Base(img)), filepath.ToSlash(img))
}

func looksLikePath(s string) bool {
	return len(s) < 1024 && (strings.ContainsAny(s, `/\`) || filepath.Ext(s) != "")
}

// modelsOf lists the distinct assistant models in message order.
func modelsOf(chat *storage.ChatFile) []string {
	seen := make(map[string]bool)
	var models []string
	for _, msg := range chat.Messages {
		if msg.Model != "" && !seen[msg.Model] {
			seen[msg.Model] = true
			models = append(models, msg.Model)
		}
	}
	return models
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML escapes special YAML characters in values.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
