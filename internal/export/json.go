// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"

	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the chat in the same object form the chat store uses,
// so an export can be dropped back into a folder and opened.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter. The options are accepted for
// consistency with other exporters; JSON exports always include everything.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a chat to JSON format.
func (e *JSONExporter) Export(chat *storage.ChatFile) ([]byte, error) {
	if chat == nil {
		return nil, fmt.Errorf("chat is nil")
	}
	out := *chat
	if out.Messages == nil {
		out.Messages = []storage.Message{}
	}
	return util.MarshalIndentJSON(&out)
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
