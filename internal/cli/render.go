// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/rigchat/internal/provider"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/usage"
)

// printMessage writes one chat record with its role label. Replies are
// plain text wrapped to width.
func printMessage(w io.Writer, msg storage.Message, width int) {
	if msg.Role == storage.RoleAssistant {
		label := AssistantLabelStyle.Render("Assistant")
		if msg.Model != "" {
			label += " " + ModelStyle.Render(provider.DisplayModelName(msg.Model))
		}
		fmt.Fprintln(w, label)
	} else {
		fmt.Fprintln(w, UserLabelStyle.Render("You"))
	}

	if strings.TrimSpace(msg.Text) != "" {
		fmt.Fprintln(w, WrapText(msg.Text, width))
	}
	for _, img := range msg.Images {
		fmt.Fprintln(w, DimStyle.Render("[image] "+describeImage(img)))
	}
	fmt.Fprintln(w)
}

// printReply writes an assistant reply, or the error text in ErrorStyle.
func printReply(w io.Writer, text, model string, failed bool, width int) {
	if failed {
		fmt.Fprintln(w, ErrorStyle.Render(text))
		fmt.Fprintln(w)
		return
	}
	printMessage(w, storage.Message{Role: storage.RoleAssistant, Text: text, Model: model}, width)
}

// formatUsage renders the status line token counters.
func formatUsage(current, today, total int64) string {
	return fmt.Sprintf("Tokens: %s | Today: %s | Total: %s",
		usage.FormatNumber(current), usage.FormatNumber(today), usage.FormatNumber(total))
}

// describeImage keeps base64 payloads off the screen.
func describeImage(src string) string {
	if strings.HasPrefix(src, "data:") || len(src) > 120 {
		return fmt.Sprintf("embedded image (%d bytes)", len(src))
	}
	return src
}
