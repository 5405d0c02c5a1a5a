// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chats as JSON files grouped into folder
// directories.
//
// A chat's title is user-editable while its file name is derived from the
// title once and then drifts (renames, manual edits, encoding differences).
// Resolve bridges the two with a fixed sequence of lookups so a title from
// the UI still finds its file.
//
// # Key Types
//
//   - Store: Root directory with folder and chat operations
//   - ChatFile: On-disk document {title, folder, messages}
//   - Message: One user or assistant record
//   - ChatRef: Lightweight listing entry
//
// # Layout
//
//	<root>/
//	  Default folder/
//	    Chat 2025-01-02 10-00-00.json
//	  Research/
//	    Reading list.json
//
// # Usage
//
//	store, err := storage.NewStore(root)
//	path, err := store.CreateChat("Default folder", "Trip plan")
//	_, err = store.AppendMessage(path, storage.Message{Role: "user", Text: "hi"})
//	path, err = store.RenameChat("Default folder", "Trip plan", "Trip: Lisbon")
//
// Legacy chat files that hold a bare JSON array of messages are still read;
// the next write upgrades them to the object form.
package storage
