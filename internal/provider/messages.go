// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"encoding/base64"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

// Roles understood by BuildMessages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FormattingRules is appended to every system prompt so replies use math
// delimiters the chat view can handle.
const FormattingRules = "\n\n[IMPORTANT: LATEX RENDERING RULES]\n" +
	"1. All math MUST be valid LaTeX. No Unicode symbols (e.g., use $x^2$ NOT x²).\n" +
	"2. Inline math delimiter: single $ only. Forbidden: \\( ... \\).\n" +
	"3. Block math delimiter: double $$ only. Forbidden: \\[ ... \\].\n" +
	"4. Do NOT wrap equations in markdown code blocks (```).\n" +
	"5. Do NOT escape the dollar signs.\n" +
	"6. Ensure block math ($$) starts and ends on its own line."

// Message is one chat record as it is sent to the backend.
type Message struct {
	Role   string
	Text   string
	Images []string
}

// BuildMessages converts a chat history into request messages, preceded by
// the system prompt. Records with images become multi-part user content;
// images that cannot be read are skipped, and a record left with no parts
// is dropped.
func BuildMessages(systemPrompt string, history []Message) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	msgs = append(msgs, openai.SystemMessage(systemPrompt+FormattingRules))

	for _, rec := range history {
		if rec.Role == RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(rec.Text))
			continue
		}
		if len(rec.Images) == 0 {
			msgs = append(msgs, openai.UserMessage(rec.Text))
			continue
		}

		var parts []openai.ChatCompletionContentPartUnionParam
		if strings.TrimSpace(rec.Text) != "" {
			parts = append(parts, openai.TextContentPart(rec.Text))
		}
		for _, img := range rec.Images {
			uri, ok := ImageDataURI(img)
			if !ok {
				slog.Warn("skipping unreadable image", "source", describeSource(img))
				continue
			}
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: uri,
			}))
		}
		if len(parts) > 0 {
			msgs = append(msgs, openai.UserMessage(parts))
		}
	}
	return msgs
}

// ImageDataURI turns an image reference into a data URI. It accepts a data
// URI as is, a readable file path, or a long raw base64 string.
func ImageDataURI(src string) (string, bool) {
	if strings.HasPrefix(src, "data:") {
		return src, true
	}

	if info, err := os.Stat(src); err == nil && info.Mode().IsRegular() {
		data, err := os.ReadFile(src)
		if err != nil {
			slog.Warn("failed to read image file", "path", src, "error", err)
			return "", false
		}
		mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(src)))
		if mimeType == "" {
			mimeType = "image/png"
		}
		if i := strings.IndexByte(mimeType, ';'); i >= 0 {
			mimeType = mimeType[:i]
		}
		return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), true
	}

	head := src
	if len(head) > 50 {
		head = head[:50]
	}
	if len(src) > 200 && !strings.Contains(head, "/") {
		return "data:image/png;base64," + src, true
	}
	return "", false
}

// describeSource keeps base64 payloads out of log lines.
func describeSource(src string) string {
	if len(src) > 80 {
		return src[:40] + "..."
	}
	return src
}
