// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/rigchat/internal/index"
	"github.com/jeranaias/rigchat/internal/library"
	"github.com/jeranaias/rigchat/internal/provider"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/tasks"
	"github.com/jeranaias/rigchat/internal/usage"
)

// fileTitleLayout stamps chats created implicitly by the first Send.
const fileTitleLayout = "2006-01-02_15-04-05"

// eventBuffer is the capacity of the Events channel.
const eventBuffer = 64

// ErrNoChat is returned by operations that need an open chat.
var ErrNoChat = errors.New("no chat is open")

// Options wires a Session to its collaborators.
type Options struct {
	// Library is required.
	Library *library.Library

	// Ledger records token usage. Optional.
	Ledger *usage.Ledger

	// Index is kept current as messages are written. Optional.
	Index *index.Index

	SystemPrompt string
	Provider     string
	Settings     provider.Settings
	Worker       tasks.Options

	// Now defaults to time.Now.
	Now func() time.Time
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the conversation currently shown to the user. It persists
// every message to the chat file and sends requests through a single
// worker.
type Session struct {
	lib    *library.Library
	store  *storage.Store
	ledger *usage.Ledger
	index  *index.Index
	worker *tasks.Worker
	now    func() time.Time

	// fileMu orders reply writes against renames that move chat files.
	fileMu sync.Mutex

	mu           sync.RWMutex
	current      storage.ChatRef
	history      []storage.Message
	systemPrompt string
	providerName string
	model        string
	// inflight holds the chat each queued request answers, kept in step with
	// renames until its reply is handled.
	inflight map[string]*storage.ChatRef

	events    chan Event
	started   bool
	handlerWG sync.WaitGroup
	closeOnce sync.Once
}

// NewSession builds a session. Call Start before Send.
func NewSession(opts Options) (*Session, error) {
	if opts.Library == nil {
		return nil, errors.New("chat session needs a library")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		lib:          opts.Library,
		store:        opts.Library.Store(),
		ledger:       opts.Ledger,
		index:        opts.Index,
		worker:       tasks.NewWorker(opts.Settings, opts.Worker),
		now:          opts.Now,
		systemPrompt: opts.SystemPrompt,
		providerName: opts.Provider,
		model:        opts.Settings.Model,
		inflight:     make(map[string]*storage.ChatRef),
		events:       make(chan Event, eventBuffer),
	}, nil
}

// Start launches the worker and the reply handler.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.worker.Start(ctx)
	s.handlerWG.Add(1)
	go s.handleResults()
}

// Events delivers replies and usage updates. It is closed by Close. The
// caller must keep reading it while requests are in flight.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Close stops the worker after queued requests finish and waits for their
// replies to be handled.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.worker.Stop()
		s.handlerWG.Wait()
		s.mu.RLock()
		started := s.started
		s.mu.RUnlock()
		if !started {
			close(s.events)
		}
	})
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Current returns the open chat. Path is empty before the first message.
func (s *Session) Current() storage.ChatRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// History returns a copy of the open chat's messages.
func (s *Session) History() []storage.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]storage.Message(nil), s.history...)
}

// Model returns the model new requests use.
func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// Provider returns the active provider name.
func (s *Session) Provider() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providerName
}

// Usage returns the ledger counters, or zeros without a ledger.
func (s *Session) Usage() usage.Snapshot {
	if s.ledger == nil {
		return usage.Snapshot{}
	}
	return s.ledger.Snapshot()
}

// Pending returns the number of requests waiting or in flight.
func (s *Session) Pending() int {
	return s.worker.Pending()
}

// Cancel cancels a request by task ID.
func (s *Session) Cancel(taskID string) bool {
	return s.worker.Cancel(taskID)
}

// =============================================================================
// CHAT FILES
// =============================================================================

// EnsureChatFile makes sure the open chat has a file, creating
// "Chat <timestamp>" in the active folder when it has none. Messages
// already in memory are written to the new file.
func (s *Session) EnsureChatFile() (string, error) {
	s.mu.RLock()
	path := s.current.Path
	s.mu.RUnlock()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	folder, err := s.lib.EnsureActiveFolder()
	if err != nil {
		return "", err
	}
	title := "Chat " + s.now().Format(fileTitleLayout)
	title, path, err = s.lib.AddChat(folder, title, true)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = storage.ChatRef{Folder: folder, Title: title, Path: path}
	if len(s.history) > 0 {
		chat := &storage.ChatFile{Title: title, Folder: folder, Messages: s.history}
		if err := storage.SaveChat(path, chat); err != nil {
			return "", err
		}
	}
	slog.Info("chat file created", "folder", folder, "title", title)
	return path, nil
}

// NewChat starts an empty chat "Chat <YYYY-MM-DD HH-MM-SS>" in the active
// folder and returns its title.
func (s *Session) NewChat() (string, error) {
	folder, err := s.lib.EnsureActiveFolder()
	if err != nil {
		return "", err
	}
	title, path, err := s.lib.AddChat(folder, "", true)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.current = storage.ChatRef{Folder: folder, Title: title, Path: path}
	s.history = nil
	s.mu.Unlock()
	return title, nil
}

// OpenChat makes folder/title the open chat. When no file matches, the
// session is left unchanged and ErrChatNotFound is returned. Messages
// saved without a model are attributed to the current one.
func (s *Session) OpenChat(folder, title string) error {
	path, err := s.store.ResolveExisting(folder, title)
	if err != nil {
		return err
	}
	chat, err := storage.LoadChat(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range chat.Messages {
		if chat.Messages[i].Model == "" {
			chat.Messages[i].Model = s.model
		}
	}
	s.current = storage.ChatRef{
		Folder:       folder,
		Title:        chat.Title,
		Path:         path,
		MessageCount: len(chat.Messages),
	}
	s.history = chat.Messages
	return nil
}

// ClearHistory deletes the open chat's file and forgets its messages.
func (s *Session) ClearHistory() error {
	s.mu.Lock()
	cur := s.current
	s.current = storage.ChatRef{}
	s.history = nil
	s.mu.Unlock()

	if cur.Path == "" {
		return nil
	}
	if err := s.store.DeletePath(cur.Path); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.RemoveChat(cur.Path); err != nil {
			slog.Warn("failed to drop chat from index", "path", cur.Path, "error", err)
		}
	}
	// The entry may already be gone from the library.
	if err := s.lib.DeleteChat(cur.Folder, cur.Title); err != nil && !errors.Is(err, library.ErrUnknownFolder) {
		return err
	}
	return nil
}

// Forget closes the open chat without touching the disk, as after its
// folder was deleted elsewhere.
func (s *Session) Forget() {
	s.mu.Lock()
	s.current = storage.ChatRef{}
	s.history = nil
	s.mu.Unlock()
}

// RenameCurrent retitles the open chat on disk and in the library.
func (s *Session) RenameCurrent(newTitle string) error {
	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	if cur.Path == "" {
		return ErrNoChat
	}
	return s.RenameChat(cur.Folder, cur.Title, newTitle)
}

// RenameChat retitles folder/oldTitle on disk and in the library. The open
// chat and any reply still on its way follow the file to its new name.
func (s *Session) RenameChat(folder, oldTitle, newTitle string) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	oldPath, err := s.store.ResolveExisting(folder, oldTitle)
	if err != nil {
		oldPath = ""
	}
	path, err := s.lib.RenameChat(folder, oldTitle, newTitle)
	if err != nil {
		return err
	}

	follow := func(ref *storage.ChatRef) {
		if ref.Folder != folder || ref.Path == "" {
			return
		}
		if ref.Title != oldTitle && (oldPath == "" || ref.Path != oldPath) {
			return
		}
		ref.Title = newTitle
		if path != "" {
			ref.Path = path
		}
	}
	s.mu.Lock()
	follow(&s.current)
	for _, ref := range s.inflight {
		follow(ref)
	}
	s.mu.Unlock()

	if s.index != nil && path != "" && oldPath != "" && path != oldPath {
		if err := s.index.RemoveChat(oldPath); err != nil {
			slog.Warn("failed to drop renamed chat from index", "path", oldPath, "error", err)
		}
		s.reindex(path)
	}
	return nil
}

// RenameFolder renames a folder through the library. The open chat and any
// reply still on its way move with the folder's files.
func (s *Session) RenameFolder(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" || newName == oldName {
		return nil
	}
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	if err := s.lib.RenameFolder(oldName, newName); err != nil {
		return err
	}
	// The library leaves both folders alone when newName is taken.
	if slices.Contains(s.lib.Folders(), oldName) {
		return nil
	}

	oldDir, newDir := s.store.FolderPath(oldName), s.store.FolderPath(newName)
	follow := func(ref *storage.ChatRef) {
		if ref.Folder != oldName {
			return
		}
		ref.Folder = newName
		if ref.Path != "" && filepath.Dir(ref.Path) == oldDir {
			ref.Path = filepath.Join(newDir, filepath.Base(ref.Path))
		}
	}
	s.mu.Lock()
	follow(&s.current)
	for _, ref := range s.inflight {
		follow(ref)
	}
	s.mu.Unlock()

	if s.index != nil {
		if err := s.index.MoveFolder(s.store, oldName, newName); err != nil {
			slog.Warn("failed to move folder in index", "folder", newName, "error", err)
		}
	}
	return nil
}

// =============================================================================
// MODEL
// =============================================================================

// SwitchModel changes the provider and backend settings for the next
// request. A request already in flight finishes with the old settings.
func (s *Session) SwitchModel(providerName string, settings provider.Settings) {
	s.mu.Lock()
	s.providerName = providerName
	s.model = settings.Model
	s.mu.Unlock()
	s.worker.UpdateConfig(settings)
	slog.Info("model switched", "provider", providerName, "model", settings.Model)
}

// SetModel keeps the provider and only changes the model.
func (s *Session) SetModel(model string) {
	settings := s.worker.Settings()
	settings.Model = model
	s.SwitchModel(s.Provider(), settings)
}

// =============================================================================
// SENDING
// =============================================================================

// Send records a user message and queues a request with the whole chat as
// context. It returns the task ID, or "" when there is nothing to send.
func (s *Session) Send(text string, images []string) (string, error) {
	if strings.TrimSpace(text) == "" && len(images) == 0 {
		return "", nil
	}
	path, err := s.EnsureChatFile()
	if err != nil {
		return "", err
	}

	msg := storage.Message{
		Role:      storage.RoleUser,
		Text:      text,
		Images:    images,
		Timestamp: s.now(),
	}
	chat, err := storage.AppendMessage(path, msg)
	if err != nil {
		return "", err
	}
	s.indexChat(path, chat)

	s.mu.Lock()
	s.history = append(s.history, msg)
	ref := s.current
	// The model is left to the worker, which applies the one selected when
	// the request actually starts.
	task := tasks.NewTask(ref, provider.Request{
		Messages: provider.BuildMessages(s.systemPrompt, toProvider(s.history)),
	})
	s.inflight[task.ID] = &ref
	s.mu.Unlock()

	if err := s.worker.Submit(task); err != nil {
		s.mu.Lock()
		delete(s.inflight, task.ID)
		s.mu.Unlock()
		return "", fmt.Errorf("queue request: %w", err)
	}
	return task.ID, nil
}

func toProvider(history []storage.Message) []provider.Message {
	out := make([]provider.Message, len(history))
	for i, m := range history {
		out[i] = provider.Message{Role: m.Role, Text: m.Text, Images: m.Images}
	}
	return out
}

// =============================================================================
// REPLY HANDLING
// =============================================================================

func (s *Session) handleResults() {
	defer s.handlerWG.Done()
	defer close(s.events)
	for res := range s.worker.Results() {
		s.handle(res)
	}
}

// handle persists a reply to the chat that asked for it, which may no
// longer be the open one and may have been renamed since, then emits the
// events.
func (s *Session) handle(res tasks.Result) {
	reply := s.save(res)
	if res.Err == nil && s.ledger != nil {
		total, today := s.ledger.Add(res.TotalTokens)
		s.events <- EventUsage{Current: res.TotalTokens, Total: total, Today: today}
	}
	s.events <- reply
}

// save writes a successful reply to its chat. fileMu is released before
// handle emits events, so a rename waiting on it never blocks the reader.
func (s *Session) save(res tasks.Result) EventReply {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	s.mu.Lock()
	if ref, ok := s.inflight[res.TaskID]; ok {
		res.Chat = *ref
		delete(s.inflight, res.TaskID)
	}
	s.mu.Unlock()

	reply := EventReply{
		TaskID: res.TaskID,
		Chat:   res.Chat,
		Text:   res.Text,
		Model:  res.Model,
		Err:    res.Err,
	}
	if res.Err != nil {
		return reply
	}

	model := res.Model
	if model == "" {
		model = s.Model()
	}
	msg := storage.Message{
		Role:      storage.RoleAssistant,
		Text:      res.Text,
		Model:     model,
		Timestamp: s.now(),
	}

	chat, err := storage.AppendMessage(res.Chat.Path, msg)
	if err != nil {
		slog.Error("failed to save reply", "path", res.Chat.Path, "error", err)
		reply.Err = err
	} else {
		s.indexChat(res.Chat.Path, chat)
	}

	s.mu.Lock()
	if s.current.Path == res.Chat.Path {
		s.history = append(s.history, msg)
	}
	s.mu.Unlock()
	return reply
}

func (s *Session) indexChat(path string, chat *storage.ChatFile) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexChat(path, chat); err != nil {
		slog.Warn("failed to index chat", "path", path, "error", err)
	}
}

func (s *Session) reindex(path string) {
	chat, err := storage.LoadChat(path)
	if err != nil {
		slog.Warn("failed to reload chat for index", "path", path, "error", err)
		return
	}
	s.indexChat(path, chat)
}
