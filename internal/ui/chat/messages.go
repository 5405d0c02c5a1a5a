// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	session "github.com/jeranaias/rigchat/internal/chat"
)

// statusTimeout is how long a status bar message stays up.
const statusTimeout = 4 * time.Second

// SessionEventMsg wraps one event from Session.Events.
type SessionEventMsg struct {
	Event session.Event
}

// EventsClosedMsg is sent once Session.Events is closed.
type EventsClosedMsg struct{}

// LibraryChangedMsg is sent after the folder and chat list changed.
type LibraryChangedMsg struct{}

// statusClearMsg hides the status message it was scheduled for.
type statusClearMsg struct {
	seq int
}

// waitForEvent blocks until the session emits an event.
func waitForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return EventsClosedMsg{}
		}
		return SessionEventMsg{Event: ev}
	}
}

// waitForLibrary blocks until the library signals a change.
func waitForLibrary(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changes
		return LibraryChangedMsg{}
	}
}

func clearStatusAfter(seq int) tea.Cmd {
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return statusClearMsg{seq: seq}
	})
}
