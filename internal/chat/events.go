// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/jeranaias/rigchat/internal/storage"

// Event is delivered on Session.Events. It is either EventReply or
// EventUsage.
type Event interface {
	isEvent()
}

// EventReply carries the answer to one Send. Err is set when the request
// failed, and Text then reads "Error: <msg>".
type EventReply struct {
	TaskID string
	Chat   storage.ChatRef
	Text   string
	Model  string
	Err    error
}

// EventUsage reports token counts after a successful reply.
type EventUsage struct {
	Current int64
	Total   int64
	Today   int64
}

func (EventReply) isEvent() {}
func (EventUsage) isEvent() {}
