// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/index"
	"github.com/jeranaias/rigchat/internal/library"
	"github.com/jeranaias/rigchat/internal/provider"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/tasks"
	"github.com/jeranaias/rigchat/internal/usage"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.Local)

// recorder is a fake backend that remembers what it was asked.
type recorder struct {
	mu       sync.Mutex
	requests []provider.Request
	settings []provider.Settings
	err      error
	// gate, when set, holds every request until it is closed.
	gate chan struct{}
}

func (r *recorder) factory(s provider.Settings) tasks.Completer {
	r.mu.Lock()
	r.settings = append(r.settings, s)
	r.mu.Unlock()
	return completerFunc(func(ctx context.Context, req provider.Request) (provider.Reply, error) {
		if r.gate != nil {
			select {
			case <-r.gate:
			case <-ctx.Done():
				return provider.Reply{}, ctx.Err()
			}
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		r.requests = append(r.requests, req)
		if r.err != nil {
			return provider.Reply{}, r.err
		}
		model := req.Model
		if model == "" {
			model = s.Model
		}
		return provider.Reply{Content: "answer", Model: model, TotalTokens: 25}, nil
	})
}

func (r *recorder) lastRequest(t *testing.T) provider.Request {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.requests)
	return r.requests[len(r.requests)-1]
}

type completerFunc func(ctx context.Context, req provider.Request) (provider.Reply, error)

func (f completerFunc) Complete(ctx context.Context, req provider.Request) (provider.Reply, error) {
	return f(ctx, req)
}

type fixture struct {
	session *Session
	lib     *library.Library
	store   *storage.Store
	ledger  *usage.Ledger
	index   *index.Index
	backend *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	clock := func() time.Time { return fixedNow }

	store, err := storage.NewStore(filepath.Join(dir, "ChatHistory"))
	require.NoError(t, err)
	store.SetClock(clock)
	lib := library.New(store)
	lib.SetClock(clock)
	require.NoError(t, lib.Load())

	ledger, err := usage.Open(filepath.Join(dir, "token_stats.json"), clock)
	require.NoError(t, err)
	idx, err := index.Open(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	backend := &recorder{}
	s, err := NewSession(Options{
		Library:      lib,
		Ledger:       ledger,
		Index:        idx,
		SystemPrompt: "Be brief.",
		Provider:     "OpenRouter",
		Settings:     provider.Settings{Model: "openai/gpt-oss-120b"},
		Worker:       tasks.Options{NewClient: backend.factory},
		Now:          clock,
	})
	require.NoError(t, err)
	s.Start(context.Background())
	t.Cleanup(s.Close)

	return &fixture{session: s, lib: lib, store: store, ledger: ledger, index: idx, backend: backend}
}

// waitReply reads events until the reply for id arrives.
func waitReply(t *testing.T, s *Session, id string) (EventReply, []EventUsage) {
	t.Helper()
	var usages []EventUsage
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			require.True(t, ok, "events closed")
			switch e := ev.(type) {
			case EventUsage:
				usages = append(usages, e)
			case EventReply:
				if e.TaskID == id {
					return e, usages
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for reply")
		}
	}
}

func TestNewSession_RequiresLibrary(t *testing.T) {
	_, err := NewSession(Options{})
	assert.Error(t, err)
}

func TestSend_IgnoresEmpty(t *testing.T) {
	f := newFixture(t)
	id, err := f.session.Send("   ", nil)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, f.session.Current().Path, "no chat file is created")
}

func TestSend_FullRoundTrip(t *testing.T) {
	f := newFixture(t)

	id, err := f.session.Send("What is 2+2?", nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	cur := f.session.Current()
	assert.Equal(t, library.DefaultFolder, cur.Folder)
	assert.Equal(t, "Chat 2025-03-04_05-06-07", cur.Title)
	assert.True(t, f.lib.HasChat(cur.Folder, cur.Title))

	reply, usages := waitReply(t, f.session, id)
	require.NoError(t, reply.Err)
	assert.Equal(t, "answer", reply.Text)
	assert.Equal(t, "openai/gpt-oss-120b", reply.Model)

	require.Len(t, usages, 1)
	assert.Equal(t, EventUsage{Current: 25, Total: 25, Today: 25}, usages[0])

	// The request carried the system prompt and the user message.
	req := f.backend.lastRequest(t)
	assert.Equal(t, "openai/gpt-oss-120b", req.Model)
	raw, err := json.Marshal(req.Messages)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Be brief.")
	assert.Contains(t, string(raw), "What is 2+2?")

	// Both messages are on disk in object form.
	chat, err := storage.LoadChat(cur.Path)
	require.NoError(t, err)
	assert.False(t, chat.Legacy)
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, storage.RoleUser, chat.Messages[0].Role)
	assert.Equal(t, storage.RoleAssistant, chat.Messages[1].Role)
	assert.Equal(t, "openai/gpt-oss-120b", chat.Messages[1].Model)

	assert.Len(t, f.session.History(), 2)

	hits, err := f.index.Search("answer", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSend_HistoryIsContext(t *testing.T) {
	f := newFixture(t)

	id, err := f.session.Send("first", nil)
	require.NoError(t, err)
	waitReply(t, f.session, id)

	id, err = f.session.Send("second", nil)
	require.NoError(t, err)
	waitReply(t, f.session, id)

	// system + user + assistant + user
	assert.Len(t, f.backend.lastRequest(t).Messages, 4)
	assert.Len(t, f.session.History(), 4)
}

func TestSend_ErrorReply(t *testing.T) {
	f := newFixture(t)
	f.backend.err = &provider.APIError{StatusCode: 401, Message: "bad key"}

	id, err := f.session.Send("hi", nil)
	require.NoError(t, err)
	reply, usages := waitReply(t, f.session, id)

	require.Error(t, reply.Err)
	assert.Equal(t, "Error: 401 Unauthorized: bad key", reply.Text)
	assert.Empty(t, usages)

	chat, err := storage.LoadChat(f.session.Current().Path)
	require.NoError(t, err)
	assert.Len(t, chat.Messages, 1, "failed replies are not saved")
	assert.Zero(t, f.ledger.Snapshot().Total)
}

func TestReply_GoesToOriginatingChat(t *testing.T) {
	f := newFixture(t)

	id, err := f.session.Send("question", nil)
	require.NoError(t, err)
	first := f.session.Current()

	// Switching chats before the reply arrives.
	_, err = f.session.NewChat()
	require.NoError(t, err)
	waitReply(t, f.session, id)

	assert.Empty(t, f.session.History(), "reply is not mixed into the new chat")
	chat, err := storage.LoadChat(first.Path)
	require.NoError(t, err)
	assert.Len(t, chat.Messages, 2)
}

func TestReply_FollowsRenamedChat(t *testing.T) {
	f := newFixture(t)
	f.backend.gate = make(chan struct{})

	id, err := f.session.Send("question", nil)
	require.NoError(t, err)
	old := f.session.Current().Path

	require.NoError(t, f.session.RenameCurrent("Renamed"))
	close(f.backend.gate)
	reply, _ := waitReply(t, f.session, id)
	require.NoError(t, reply.Err)

	cur := f.session.Current()
	assert.Equal(t, "Renamed.json", filepath.Base(cur.Path))
	assert.Equal(t, cur.Path, reply.Chat.Path)
	assert.Equal(t, "Renamed", reply.Chat.Title)
	assert.Len(t, f.session.History(), 2)

	chat, err := storage.LoadChat(cur.Path)
	require.NoError(t, err)
	assert.Len(t, chat.Messages, 2)
	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err), "no file reappears under the old name")
}

func TestReply_FollowsRenamedFolder(t *testing.T) {
	f := newFixture(t)
	f.backend.gate = make(chan struct{})

	id, err := f.session.Send("question", nil)
	require.NoError(t, err)
	base := filepath.Base(f.session.Current().Path)

	require.NoError(t, f.session.RenameFolder(library.DefaultFolder, "Archive"))
	close(f.backend.gate)
	reply, _ := waitReply(t, f.session, id)
	require.NoError(t, reply.Err)

	cur := f.session.Current()
	assert.Equal(t, "Archive", cur.Folder)
	assert.Equal(t, filepath.Join(f.store.FolderPath("Archive"), base), cur.Path)
	assert.Equal(t, cur.Path, reply.Chat.Path)
	assert.Len(t, f.session.History(), 2)

	chat, err := storage.LoadChat(cur.Path)
	require.NoError(t, err)
	assert.Len(t, chat.Messages, 2)
	_, err = os.Stat(f.store.FolderPath(library.DefaultFolder))
	assert.True(t, os.IsNotExist(err), "the old folder is not recreated")

	hits, err := f.index.Search("question", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, cur.Path, hits[0].Path)
}

func TestReply_FollowsRenameOfChatNoLongerOpen(t *testing.T) {
	f := newFixture(t)
	f.backend.gate = make(chan struct{})

	id, err := f.session.Send("question", nil)
	require.NoError(t, err)
	first := f.session.Current()
	_, err = f.session.NewChat()
	require.NoError(t, err)

	require.NoError(t, f.session.RenameChat(first.Folder, first.Title, "Earlier"))
	close(f.backend.gate)
	reply, _ := waitReply(t, f.session, id)
	require.NoError(t, reply.Err)

	assert.Equal(t, "Earlier", reply.Chat.Title)
	chat, err := storage.LoadChat(reply.Chat.Path)
	require.NoError(t, err)
	assert.Len(t, chat.Messages, 2)
	assert.Empty(t, f.session.History(), "reply is not mixed into the open chat")
	_, err = os.Stat(first.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestRenameFolder_TakenNameLeavesChatAlone(t *testing.T) {
	f := newFixture(t)
	id, err := f.session.Send("hi", nil)
	require.NoError(t, err)
	waitReply(t, f.session, id)
	_, err = f.lib.CreateFolder("Taken")
	require.NoError(t, err)
	before := f.session.Current()

	require.NoError(t, f.session.RenameFolder(library.DefaultFolder, "Taken"))
	assert.Equal(t, before, f.session.Current())
}

func TestEnsureChatFile_RecreatesMissingFile(t *testing.T) {
	f := newFixture(t)
	id, err := f.session.Send("keep me", nil)
	require.NoError(t, err)
	waitReply(t, f.session, id)

	old := f.session.Current().Path
	require.NoError(t, os.Remove(old))

	path, err := f.session.EnsureChatFile()
	require.NoError(t, err)
	chat, err := storage.LoadChat(path)
	require.NoError(t, err)
	assert.Len(t, chat.Messages, 2, "history is written to the new file")
}

func TestNewChat(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.lib.SetActive(library.DefaultFolder))

	title, err := f.session.NewChat()
	require.NoError(t, err)
	assert.Equal(t, "Chat 2025-03-04 05-06-07", title)

	cur := f.session.Current()
	chat, err := storage.LoadChat(cur.Path)
	require.NoError(t, err)
	assert.Equal(t, title, chat.Title)
	assert.Equal(t, library.DefaultFolder, chat.Folder)
	assert.Empty(t, chat.Messages)
}

func TestOpenChat(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.CreateFolder("Old"))
	legacy := `[{"role":"user","text":"hello"},{"role":"assistant","text":"hi","model":"m1"}]`
	require.NoError(t, os.WriteFile(filepath.Join(f.store.FolderPath("Old"), "Greeting.json"), []byte(legacy), 0644))

	require.NoError(t, f.session.OpenChat("Old", "greeting"))
	cur := f.session.Current()
	assert.Equal(t, "Greeting", cur.Title)
	history := f.session.History()
	require.Len(t, history, 2)
	assert.Equal(t, "openai/gpt-oss-120b", history[0].Model, "missing model gets the current one")
	assert.Equal(t, "m1", history[1].Model)

	err := f.session.OpenChat("Old", "Nope")
	assert.ErrorIs(t, err, storage.ErrChatNotFound)
	assert.Equal(t, cur, f.session.Current(), "state unchanged on failure")
}

func TestClearHistory(t *testing.T) {
	f := newFixture(t)
	id, err := f.session.Send("to be removed", nil)
	require.NoError(t, err)
	waitReply(t, f.session, id)
	cur := f.session.Current()

	require.NoError(t, f.session.ClearHistory())
	assert.Empty(t, f.session.Current().Path)
	assert.Empty(t, f.session.History())
	_, err = os.Stat(cur.Path)
	assert.True(t, os.IsNotExist(err))
	assert.False(t, f.lib.HasChat(cur.Folder, cur.Title))

	hits, err := f.index.Search("removed", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Clearing with nothing open is fine.
	require.NoError(t, f.session.ClearHistory())
}

func TestForget_KeepsFile(t *testing.T) {
	f := newFixture(t)
	id, err := f.session.Send("keep me", nil)
	require.NoError(t, err)
	waitReply(t, f.session, id)
	cur := f.session.Current()

	f.session.Forget()
	assert.Empty(t, f.session.Current().Path)
	assert.Empty(t, f.session.History())
	_, err = os.Stat(cur.Path)
	assert.NoError(t, err)
}

func TestRenameCurrent(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.session.RenameCurrent("x"), ErrNoChat)

	id, err := f.session.Send("rename me", nil)
	require.NoError(t, err)
	waitReply(t, f.session, id)

	require.NoError(t, f.session.RenameCurrent("Better title"))
	cur := f.session.Current()
	assert.Equal(t, "Better title", cur.Title)
	assert.Equal(t, "Better title.json", filepath.Base(cur.Path))
	assert.True(t, f.lib.HasChat(cur.Folder, "Better title"))

	hits, err := f.index.Search("rename", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, cur.Path, hits[0].Path)
}

func TestSwitchModel(t *testing.T) {
	f := newFixture(t)
	f.session.SwitchModel("DeepSeek", provider.Settings{Model: "deepseek-chat", APIKey: "k2"})
	assert.Equal(t, "DeepSeek", f.session.Provider())
	assert.Equal(t, "deepseek-chat", f.session.Model())

	id, err := f.session.Send("hi", nil)
	require.NoError(t, err)
	reply, _ := waitReply(t, f.session, id)
	assert.Equal(t, "deepseek-chat", reply.Model)

	f.session.SetModel("deepseek-reasoner")
	assert.Equal(t, "DeepSeek", f.session.Provider())
	id, err = f.session.Send("again", nil)
	require.NoError(t, err)
	waitReply(t, f.session, id)

	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	last := f.backend.settings[len(f.backend.settings)-1]
	assert.Equal(t, "deepseek-reasoner", last.Model)
	assert.Equal(t, "k2", last.APIKey)
}

func TestSwitchModel_AppliesToQueuedRequest(t *testing.T) {
	f := newFixture(t)
	f.backend.gate = make(chan struct{})

	first, err := f.session.Send("first", nil)
	require.NoError(t, err)
	second, err := f.session.Send("second", nil)
	require.NoError(t, err)

	f.session.SwitchModel("DeepSeek", provider.Settings{Model: "deepseek-chat"})
	close(f.backend.gate)
	waitReply(t, f.session, first)
	reply, _ := waitReply(t, f.session, second)

	require.NoError(t, reply.Err)
	assert.Equal(t, "deepseek-chat", reply.Model)
	assert.Equal(t, "deepseek-chat", f.backend.lastRequest(t).Model)
}

func TestClose_ClosesEvents(t *testing.T) {
	f := newFixture(t)
	f.session.Close()
	_, ok := <-f.session.Events()
	assert.False(t, ok)

	_, err := f.session.Send("late", nil)
	assert.True(t, errors.Is(err, tasks.ErrWorkerStopped))
}
