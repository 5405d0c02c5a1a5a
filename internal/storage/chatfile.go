// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// CHAT FILE TYPES
// =============================================================================

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one record of a chat.
type Message struct {
	Role   string   `json:"role"`
	Text   string   `json:"text"`
	Images []string `json:"images,omitempty"` // file paths, data URIs or raw base64

	// Model that produced an assistant message.
	Model string `json:"model,omitempty"`

	Timestamp time.Time `json:"timestamp,omitzero"`
}

// HasImages reports whether the message carries at least one image.
func (m Message) HasImages() bool {
	return len(m.Images) > 0
}

// ChatFile is the JSON document stored for every chat.
type ChatFile struct {
	Title    string    `json:"title"`
	Folder   string    `json:"folder,omitempty"`
	Messages []Message `json:"messages"`

	// Legacy is set when the file was read from the old bare-array format.
	Legacy bool `json:"-"`
}

// ChatRef is a listing entry for a chat file.
type ChatRef struct {
	Folder       string    `json:"folder"`
	Title        string    `json:"title"`
	Path         string    `json:"path"`
	MessageCount int       `json:"message_count"`
	ModTime      time.Time `json:"mod_time"`
}

// =============================================================================
// READ / WRITE
// =============================================================================

// LoadChat reads a chat file in either the object form or the legacy array
// form. Missing titles fall back to the file stem and a missing folder to
// the parent directory name.
func LoadChat(path string) (*ChatFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("read chat %s: %w", filepath.Base(path), err)
	}
	return decodeChat(data, path)
}

func decodeChat(data []byte, path string) (*ChatFile, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnknownFormat)
	}

	chat := &ChatFile{}
	switch trimmed[0] {
	case '{':
		if err := json.Unmarshal(trimmed, chat); err != nil {
			return nil, fmt.Errorf("decode chat %s: %w", filepath.Base(path), err)
		}
	case '[':
		if err := json.Unmarshal(trimmed, &chat.Messages); err != nil {
			return nil, fmt.Errorf("decode legacy chat %s: %w", filepath.Base(path), err)
		}
		chat.Legacy = true
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnknownFormat)
	}

	if chat.Title == "" {
		chat.Title = stemOf(path)
	}
	if chat.Folder == "" {
		chat.Folder = filepath.Base(filepath.Dir(path))
	}
	if chat.Messages == nil {
		chat.Messages = []Message{}
	}
	for i := range chat.Messages {
		if chat.Messages[i].Role == "" {
			chat.Messages[i].Role = RoleUser
		}
	}
	return chat, nil
}

// SaveChat writes chat in the object form, atomically.
func SaveChat(path string, chat *ChatFile) error {
	out := *chat
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	if err := util.WriteJSONAtomic(path, &out, 0644); err != nil {
		return fmt.Errorf("save chat %s: %w", filepath.Base(path), err)
	}
	chat.Legacy = false
	return nil
}

// AppendMessage adds msg to the chat at path and saves it. Legacy files are
// rewritten in the object form.
func AppendMessage(path string, msg Message) (*ChatFile, error) {
	chat, err := LoadChat(path)
	if err != nil {
		return nil, err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	chat.Messages = append(chat.Messages, msg)
	if err := SaveChat(path, chat); err != nil {
		return nil, err
	}
	return chat, nil
}
