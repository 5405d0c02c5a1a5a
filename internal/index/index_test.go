// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/storage"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "db", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "ChatHistory"))
	require.NoError(t, err)
	return store
}

// saveChat writes a chat with alternating user/assistant messages.
func saveChat(t *testing.T, store *storage.Store, folder, title string, texts ...string) (string, *storage.ChatFile) {
	t.Helper()
	path, err := store.CreateChat(folder, title)
	require.NoError(t, err)
	chat := &storage.ChatFile{Title: title, Folder: folder}
	for i, text := range texts {
		role := storage.RoleUser
		if i%2 == 1 {
			role = storage.RoleAssistant
		}
		chat.Messages = append(chat.Messages, storage.Message{Role: role, Text: text})
	}
	require.NoError(t, storage.SaveChat(path, chat))
	return path, chat
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestIndexChat_Search(t *testing.T) {
	idx := openTestIndex(t)
	store := newStore(t)

	p1, c1 := saveChat(t, store, "Physics", "Waves", "explain standing waves", "A standing wave is a superposition of two waves.")
	p2, c2 := saveChat(t, store, "Math", "Matrices", "what is an eigenvalue", "An eigenvalue scales its eigenvector.")
	require.NoError(t, idx.IndexChat(p1, c1))
	require.NoError(t, idx.IndexChat(p2, c2))

	hits, err := idx.Search("eigenvalue", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "Math", h.Folder)
		assert.Equal(t, "Matrices", h.Title)
		assert.Equal(t, p2, h.Path)
		assert.Contains(t, h.Snippet, "eigenvalue")
	}

	// Terms are ANDed.
	hits, err = idx.Search("standing superposition", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, storage.RoleAssistant, hits[0].Role)

	hits, err = idx.Search("   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_QuotesOperators(t *testing.T) {
	idx := openTestIndex(t)
	store := newStore(t)
	p, c := saveChat(t, store, "F", "Ops", "NOT a problem", "col:on AND (paren)")
	require.NoError(t, idx.IndexChat(p, c))

	// None of these may produce an FTS5 syntax error.
	for _, q := range []string{`NOT`, `"unbalanced`, `col:on`, `(paren)`, `a*`, `AND OR`} {
		_, err := idx.Search(q, 10)
		assert.NoError(t, err, "query %q", q)
	}

	hits, err := idx.Search("NOT problem", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearch_FolderFilterAndLimit(t *testing.T) {
	idx := openTestIndex(t)
	store := newStore(t)
	for _, folder := range []string{"A", "B"} {
		p, c := saveChat(t, store, folder, "Chat", "shared term", "shared term again")
		require.NoError(t, idx.IndexChat(p, c))
	}

	hits, err := idx.SearchWithOptions("shared", &SearchOptions{Folder: "B"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "B", h.Folder)
	}

	hits, err = idx.Search("shared", 3)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestIndexChat_Replaces(t *testing.T) {
	idx := openTestIndex(t)
	store := newStore(t)
	p, c := saveChat(t, store, "F", "T", "alpha")
	require.NoError(t, idx.IndexChat(p, c))

	c.Messages = []storage.Message{{Role: storage.RoleUser, Text: "beta"}}
	require.NoError(t, idx.IndexChat(p, c))

	hits, err := idx.Search("alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = idx.Search("beta", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	stats, err := idx.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Chats)
	assert.Equal(t, 1, stats.Messages)
}

func TestRemoveChatAndFolder(t *testing.T) {
	idx := openTestIndex(t)
	store := newStore(t)
	p1, c1 := saveChat(t, store, "Keep", "One", "needle one")
	p2, c2 := saveChat(t, store, "Drop", "Two", "needle two")
	p3, c3 := saveChat(t, store, "Drop", "Three", "needle three")
	for _, pc := range []struct {
		p string
		c *storage.ChatFile
	}{{p1, c1}, {p2, c2}, {p3, c3}} {
		require.NoError(t, idx.IndexChat(pc.p, pc.c))
	}

	require.NoError(t, idx.RemoveChat(p1))
	require.NoError(t, idx.RemoveFolder("Drop"))

	stats, err := idx.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Chats)
	assert.Zero(t, stats.Messages)
	assert.True(t, idx.IsEmpty())
}

func TestMoveFolder(t *testing.T) {
	idx := openTestIndex(t)
	store := newStore(t)
	p1, c1 := saveChat(t, store, "Old", "One", "needle one")
	p2, c2 := saveChat(t, store, "Old", "Two", "needle two")
	require.NoError(t, idx.IndexChat(p1, c1))
	require.NoError(t, idx.IndexChat(p2, c2))

	require.NoError(t, store.RenameFolder("Old", "New"))
	require.NoError(t, idx.MoveFolder(store, "Old", "New"))

	hits, err := idx.Search("needle", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "New", h.Folder)
		assert.Equal(t, store.FolderPath("New"), filepath.Dir(h.Path))
	}

	stats, err := idx.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Chats)
}

func TestSearch_SkipsDeletedFiles(t *testing.T) {
	idx := openTestIndex(t)
	store := newStore(t)
	p, c := saveChat(t, store, "F", "Gone", "ghost text")
	require.NoError(t, idx.IndexChat(p, c))
	require.NoError(t, os.Remove(p))

	hits, err := idx.Search("ghost", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRebuild(t *testing.T) {
	idx := openTestIndex(t)
	store := newStore(t)

	// Stale row from a chat that no longer exists.
	require.NoError(t, idx.IndexChat("/nowhere/old.json", &storage.ChatFile{
		Title:    "Old",
		Folder:   "X",
		Messages: []storage.Message{{Role: storage.RoleUser, Text: "stale"}},
	}))

	for i := 0; i < 10; i++ {
		saveChat(t, store, "Bulk", "Chat "+string(rune('A'+i)), "bulk message", "reply")
	}
	saveChat(t, store, "Other", "Solo", "unique zebra")
	require.NoError(t, os.WriteFile(filepath.Join(store.FolderPath("Other"), "broken.json"), []byte("{"), 0644))

	n, err := idx.Rebuild(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	stats, err := idx.Stats()
	require.NoError(t, err)
	assert.Equal(t, 11, stats.Chats)
	assert.Equal(t, 21, stats.Messages)
	assert.False(t, stats.LastRebuild.IsZero())

	hits, err := idx.Search("zebra", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Other", hits[0].Folder)
	assert.Equal(t, "Solo", hits[0].Title)
}

func TestRebuild_Canceled(t *testing.T) {
	idx := openTestIndex(t)
	store := newStore(t)
	saveChat(t, store, "F", "T", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := idx.Rebuild(ctx, store)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClosedIndex(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	_, err = idx.Search("x", 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, idx.IndexChat("p", &storage.ChatFile{}), ErrClosed)
}

func TestBuildFTSQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"hello", `"hello"`},
		{"  two   words ", `"two" "words"`},
		{`say "hi"`, `"say" """hi"""`},
	}
	for _, tt := range tests {
		if got := buildFTSQuery(tt.in); got != tt.want {
			t.Errorf("buildFTSQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
