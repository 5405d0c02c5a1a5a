// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package library keeps the ordered folder and chat list in sync with the
// chat history directory.
//
// Folders and chats keep the order the user sees them in. Every rename and
// delete goes to disk through the storage package, and Watch reloads the
// list when something else changes the tree.
//
// # Key Types
//
//   - Library: the folder/chat model with the active folder
//   - Item: one folder or chat row, used for multi-select deletes
//
// # Usage
//
//	lib := library.New(store)
//	if err := lib.Load(); err != nil {
//	    return err
//	}
//	folder, _ := lib.EnsureActiveFolder()
//	title, path, err := lib.AddChat(folder, "", true)
package library
