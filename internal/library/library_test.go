// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package library

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/storage"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)

func newTestLibrary(t *testing.T) (*Library, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "ChatHistory"))
	require.NoError(t, err)
	store.SetClock(func() time.Time { return fixedNow })
	lib := New(store)
	lib.SetClock(func() time.Time { return fixedNow })
	return lib, store
}

func writeChat(t *testing.T, store *storage.Store, folder, stem, title string) {
	t.Helper()
	require.NoError(t, store.CreateFolder(folder))
	chat := &storage.ChatFile{Title: title, Folder: folder}
	require.NoError(t, storage.SaveChat(filepath.Join(store.FolderPath(folder), stem+".json"), chat))
}

func TestLoad_EmptyRootCreatesDefault(t *testing.T) {
	lib, store := newTestLibrary(t)
	require.NoError(t, lib.Load())

	assert.Equal(t, []string{DefaultFolder}, lib.Folders())
	assert.Equal(t, DefaultFolder, lib.Active())
	assert.True(t, store.FolderExists(DefaultFolder))
}

func TestLoad_ReadsFoldersAndChats(t *testing.T) {
	lib, store := newTestLibrary(t)
	writeChat(t, store, "Work", "b", "Second")
	writeChat(t, store, "Work", "a", "First")
	writeChat(t, store, "Archive", "x", "Old")

	require.NoError(t, lib.Load())
	assert.Equal(t, []string{"Archive", "Work"}, lib.Folders())
	assert.Equal(t, []string{"First", "Second"}, lib.Chats("Work"))
	assert.Empty(t, lib.Active(), "loading does not pick an active folder")
	assert.True(t, lib.HasChat("Archive", "Old"))

	assert.Equal(t, []Item{
		{Folder: "Archive"}, {Folder: "Archive", Title: "Old"},
		{Folder: "Work"}, {Folder: "Work", Title: "First"}, {Folder: "Work", Title: "Second"},
	}, lib.Items())
}

func TestLoad_KeepsActiveFolder(t *testing.T) {
	lib, store := newTestLibrary(t)
	require.NoError(t, store.CreateFolder("A"))
	require.NoError(t, store.CreateFolder("B"))
	require.NoError(t, lib.Load())
	require.NoError(t, lib.SetActive("B"))

	require.NoError(t, lib.Load())
	assert.Equal(t, "B", lib.Active())

	require.NoError(t, store.DeleteFolder("B"))
	require.NoError(t, lib.Load())
	assert.Empty(t, lib.Active())
}

func TestCreateFolder_Counter(t *testing.T) {
	lib, store := newTestLibrary(t)

	first, err := lib.CreateFolder("")
	require.NoError(t, err)
	second, err := lib.CreateFolder("")
	require.NoError(t, err)
	third, err := lib.CreateFolder("")
	require.NoError(t, err)

	assert.Equal(t, "Default folder", first)
	assert.Equal(t, "New folder 1", second)
	assert.Equal(t, "New folder 2", third)
	assert.Equal(t, "Default folder", lib.Active(), "first folder becomes active")
	assert.True(t, store.FolderExists("New folder 2"))

	again, err := lib.CreateFolder("New folder 1")
	require.NoError(t, err)
	assert.Equal(t, "New folder 1", again)
	assert.Len(t, lib.Folders(), 3, "existing folder is not duplicated")
}

func TestNewFolder(t *testing.T) {
	lib, _ := newTestLibrary(t)
	require.NoError(t, lib.Load())

	name, err := lib.NewFolder()
	require.NoError(t, err)
	assert.Equal(t, "New folder 2", name)
	assert.Equal(t, name, lib.Active())

	// A taken name is skipped.
	_, err = lib.CreateFolder("New folder 3")
	require.NoError(t, err)
	name, err = lib.NewFolder()
	require.NoError(t, err)
	assert.Equal(t, "New folder 4", name)
}

func TestSetActive_Unknown(t *testing.T) {
	lib, _ := newTestLibrary(t)
	assert.ErrorIs(t, lib.SetActive("nope"), ErrUnknownFolder)
}

func TestRenameFolder(t *testing.T) {
	lib, store := newTestLibrary(t)
	writeChat(t, store, "Old", "c1", "C1")
	writeChat(t, store, "Other", "c2", "C2")
	require.NoError(t, lib.Load())
	require.NoError(t, lib.SetActive("Old"))

	require.NoError(t, lib.RenameFolder("Old", "Renamed"))
	assert.Equal(t, []string{"Renamed", "Other"}, lib.Folders(), "position is kept")
	assert.Equal(t, []string{"C1"}, lib.Chats("Renamed"))
	assert.Equal(t, "Renamed", lib.Active())
	assert.True(t, store.FolderExists("Renamed"))
	assert.False(t, store.FolderExists("Old"))

	// Ignored cases.
	require.NoError(t, lib.RenameFolder("Renamed", ""))
	require.NoError(t, lib.RenameFolder("Renamed", "Renamed"))
	require.NoError(t, lib.RenameFolder("Renamed", "Other"))
	assert.Equal(t, []string{"Renamed", "Other"}, lib.Folders())

	assert.ErrorIs(t, lib.RenameFolder("Missing", "X"), ErrUnknownFolder)
}

func TestDeleteFolder(t *testing.T) {
	lib, store := newTestLibrary(t)
	require.NoError(t, store.CreateFolder("A"))
	require.NoError(t, store.CreateFolder("B"))
	require.NoError(t, store.CreateFolder("C"))
	require.NoError(t, lib.Load())
	require.NoError(t, lib.SetActive("A"))

	require.NoError(t, lib.DeleteFolder("A"))
	assert.Equal(t, []string{"B", "C"}, lib.Folders())
	assert.Equal(t, "C", lib.Active(), "last remaining folder becomes active")
	assert.False(t, store.FolderExists("A"))

	require.NoError(t, lib.DeleteFolder("B"))
	assert.Equal(t, "C", lib.Active(), "inactive delete keeps active")
	require.NoError(t, lib.DeleteFolder("C"))
	assert.Empty(t, lib.Active())

	assert.ErrorIs(t, lib.DeleteFolder("C"), ErrUnknownFolder)
}

func TestEnsureActiveFolder(t *testing.T) {
	lib, store := newTestLibrary(t)

	name, err := lib.EnsureActiveFolder()
	require.NoError(t, err)
	assert.Equal(t, DefaultFolder, name)

	require.NoError(t, store.CreateFolder("Zeta"))
	require.NoError(t, lib.Load())
	lib.mu.Lock()
	lib.active = ""
	lib.mu.Unlock()

	name, err = lib.EnsureActiveFolder()
	require.NoError(t, err)
	assert.Equal(t, "Zeta", name, "last folder is picked")
}

func TestAddChat(t *testing.T) {
	lib, store := newTestLibrary(t)

	title, path, err := lib.AddChat("Notes", "", true)
	require.NoError(t, err)
	assert.Equal(t, "Chat 2025-01-02 03-04-05", title)
	assert.Equal(t, []string{"Notes"}, lib.Folders(), "missing folder is created")
	assert.Equal(t, []string{title}, lib.Chats("Notes"))

	chat, err := storage.LoadChat(path)
	require.NoError(t, err)
	assert.Equal(t, title, chat.Title)
	assert.Empty(t, chat.Messages)

	title, path, err = lib.AddChat("Notes", "Memory only", false)
	require.NoError(t, err)
	assert.Equal(t, "Memory only", title)
	assert.Empty(t, path)
	_, err = store.Resolve("Notes", "Memory only")
	assert.ErrorIs(t, err, storage.ErrChatNotFound)
}

func TestRenameChat(t *testing.T) {
	lib, store := newTestLibrary(t)
	writeChat(t, store, "F", "one", "One")
	writeChat(t, store, "F", "two", "Two")
	require.NoError(t, lib.Load())

	path, err := lib.RenameChat("F", "One", "Uno")
	require.NoError(t, err)
	assert.Equal(t, "Uno.json", filepath.Base(path))
	assert.Equal(t, []string{"Uno", "Two"}, lib.Chats("F"), "title replaced in place")

	_, err = lib.RenameChat("Nope", "a", "b")
	assert.ErrorIs(t, err, ErrUnknownFolder)
}

func TestDeleteChat(t *testing.T) {
	lib, store := newTestLibrary(t)
	writeChat(t, store, "F", "one", "One")
	require.NoError(t, lib.Load())

	require.NoError(t, lib.DeleteChat("F", "One"))
	assert.Empty(t, lib.Chats("F"))
	_, err := os.Stat(filepath.Join(store.FolderPath("F"), "one.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteItems(t *testing.T) {
	lib, store := newTestLibrary(t)
	writeChat(t, store, "Keep", "a", "A")
	writeChat(t, store, "Keep", "b", "B")
	writeChat(t, store, "Drop", "c", "C")
	require.NoError(t, lib.Load())

	err := lib.DeleteItems([]Item{
		{Folder: "Keep", Title: "A"},
		{Folder: "Drop", Title: "C"},
		{Folder: "Drop"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Keep"}, lib.Folders())
	assert.Equal(t, []string{"B"}, lib.Chats("Keep"))
	assert.False(t, store.FolderExists("Drop"))

	err = lib.DeleteItems([]Item{{Folder: "Ghost"}, {Folder: "Keep", Title: "B"}})
	assert.ErrorIs(t, err, ErrUnknownFolder)
	assert.Empty(t, lib.Chats("Keep"), "remaining items are still deleted")
}

func TestOnChange(t *testing.T) {
	lib, _ := newTestLibrary(t)
	var calls atomic.Int32
	lib.OnChange(func() { calls.Add(1) })

	_, err := lib.CreateFolder("X")
	require.NoError(t, err)
	_, _, err = lib.AddChat("X", "t", false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWatch_ReloadsOnDiskChange(t *testing.T) {
	lib, store := newTestLibrary(t)
	require.NoError(t, lib.Load())

	changed := make(chan struct{}, 16)
	lib.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, lib.WatchWithDebounce(ctx, 50*time.Millisecond))

	// Another process adds a folder with a chat.
	writeChat(t, store, "External", "e", "From outside")

	assert.Eventually(t, func() bool {
		return lib.HasChat("External", "From outside")
	}, 5*time.Second, 20*time.Millisecond)
}
