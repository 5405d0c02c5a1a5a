// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the session controller behind every front end.
//
// A Session owns the open chat: its file, its message history and the
// model requests go to. Send persists the user message and queues a
// request; the reply is appended to the chat that asked for it, indexed,
// counted in the usage ledger and announced on Events.
//
// # Key Types
//
//   - Session: the open chat and its request worker
//   - Options: the library, ledger, index and backend settings it uses
//   - EventReply, EventUsage: what Events delivers
//
// # Usage
//
//	s, err := chat.NewSession(chat.Options{
//	    Library:  lib,
//	    Ledger:   ledger,
//	    Settings: chat.SettingsFromConfig(cfg),
//	})
//	s.Start(ctx)
//	defer s.Close()
//
//	id, _ := s.Send("hello", nil)
//	for ev := range s.Events() {
//	    if r, ok := ev.(chat.EventReply); ok && r.TaskID == id {
//	        fmt.Println(r.Text)
//	        break
//	    }
//	}
package chat
