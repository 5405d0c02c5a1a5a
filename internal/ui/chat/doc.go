// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat view of rigchat.

# Layout

	+-- header: brand, open folder and chat -----------------+
	| sidebar          | messages (viewport)                 |
	|  folders         |                                     |
	|    chats         |                                     |
	+------------------+-------------------------------------+
	| input (textarea)                                       |
	+-- status bar: model, queue, tokens, hints -------------+

The sidebar is hidden on narrow terminals.

# Data flow

The Model never talks to the backend itself. It calls Session.Send and
listens on Session.Events through a tea.Cmd that blocks on the channel,
the same way long-running work is turned into messages elsewhere in
Bubble Tea programs. Library changes, including reloads triggered by the
disk watcher, arrive through a one-slot notification channel registered
with Library.OnChange, so a burst of changes costs one redraw.

# Keys

Enter sends (Alt+Enter inserts a newline), Ctrl+N starts a new chat, Tab
moves focus between the input and the sidebar, Esc cancels the last
request and Ctrl+C quits. In the sidebar, Up/Down select, Enter opens a
chat or makes a folder active, n creates a folder, r renames and d
deletes after a y/n confirmation.
*/
package chat
