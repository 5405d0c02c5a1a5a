// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package library

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/rigchat/internal/storage"
)

// DefaultFolder is the name of the first folder created without a name.
const DefaultFolder = "Default folder"

// chatTitleLayout formats generated chat titles.
const chatTitleLayout = "2006-01-02 15-04-05"

// ErrUnknownFolder is returned for folders the library does not hold.
var ErrUnknownFolder = errors.New("unknown folder")

// Item is one selected row: a folder when Title is empty, otherwise a chat.
type Item struct {
	Folder string
	Title  string
}

// IsFolder reports whether the item names a folder.
func (i Item) IsFolder() bool {
	return i.Title == ""
}

type folder struct {
	name  string
	chats []string
}

// =============================================================================
// LIBRARY
// =============================================================================

// Library is the ordered folder and chat list shown to the user. Every
// mutation is mirrored to the store. It is safe for concurrent use.
type Library struct {
	mu            sync.RWMutex
	store         *storage.Store
	folders       []*folder
	active        string
	folderCounter int
	now           func() time.Time

	listenerMu sync.Mutex
	listeners  []func()
}

// New returns an empty library over store. Call Load to read the disk.
func New(store *storage.Store) *Library {
	return &Library{store: store, now: time.Now}
}

// SetClock replaces the time source used for generated chat titles.
func (l *Library) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Store returns the backing store.
func (l *Library) Store() *storage.Store {
	return l.store
}

// Load replaces the in-memory state with the folders and chats on disk.
// Folders come in name order and chats in file order. When the root holds
// no folder at all a default one is created. The active folder is kept if
// it still exists.
func (l *Library) Load() error {
	return l.load(true)
}

func (l *Library) load(createDefault bool) error {
	names, err := l.store.ListFolders()
	if err != nil {
		return err
	}

	folders := make([]*folder, 0, len(names))
	for _, name := range names {
		refs, err := l.store.ListChats(name)
		if err != nil {
			slog.Warn("skipping unreadable folder", "folder", name, "error", err)
			continue
		}
		f := &folder{name: name}
		for _, ref := range refs {
			f.chats = append(f.chats, ref.Title)
		}
		folders = append(folders, f)
	}

	l.mu.Lock()
	l.folders = folders
	if l.indexOf(l.active) < 0 {
		l.active = ""
	}
	if len(l.folders) == 0 && createDefault {
		if _, err := l.createFolderLocked(""); err != nil {
			l.mu.Unlock()
			return err
		}
	}
	count := len(l.folders)
	l.mu.Unlock()

	slog.Debug("library loaded", "folders", count)
	l.notify()
	return nil
}

func (l *Library) indexOf(name string) int {
	if name == "" {
		return -1
	}
	for i, f := range l.folders {
		if f.name == name {
			return i
		}
	}
	return -1
}

func (l *Library) find(name string) *folder {
	if i := l.indexOf(name); i >= 0 {
		return l.folders[i]
	}
	return nil
}

// =============================================================================
// FOLDERS
// =============================================================================

// CreateFolder adds a folder and creates its directory. An empty name is
// generated from the folder counter: "Default folder" first, then
// "New folder N". The first folder becomes active when none is. Creating
// a folder that already exists is a no-op. Returns the folder name.
func (l *Library) CreateFolder(name string) (string, error) {
	l.mu.Lock()
	name, err := l.createFolderLocked(strings.TrimSpace(name))
	l.mu.Unlock()
	if err == nil {
		l.notify()
	}
	return name, err
}

func (l *Library) createFolderLocked(name string) (string, error) {
	if name == "" {
		for {
			l.folderCounter++
			name = DefaultFolder
			if l.folderCounter > 1 {
				name = fmt.Sprintf("New folder %d", l.folderCounter-1)
			}
			if l.find(name) == nil {
				break
			}
		}
	}
	if l.find(name) != nil {
		return name, nil
	}
	if err := l.store.CreateFolder(name); err != nil {
		return "", err
	}
	l.folders = append(l.folders, &folder{name: name})
	if l.active == "" {
		l.active = name
	}
	slog.Info("folder created", "folder", name)
	return name, nil
}

// NewFolder creates "New folder N" from the counter and makes it active.
func (l *Library) NewFolder() (string, error) {
	l.mu.Lock()
	var name string
	for {
		l.folderCounter++
		name = fmt.Sprintf("New folder %d", l.folderCounter)
		if l.find(name) == nil {
			break
		}
	}
	name, err := l.createFolderLocked(name)
	if err == nil {
		l.active = name
	}
	l.mu.Unlock()
	if err == nil {
		l.notify()
	}
	return name, err
}

// SetActive selects the folder new chats go to.
func (l *Library) SetActive(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.find(name) == nil {
		return fmt.Errorf("%q: %w", name, ErrUnknownFolder)
	}
	l.active = name
	return nil
}

// RenameFolder renames a folder in memory and on disk. It does nothing when
// newName is empty, unchanged, or already taken. Chats keep their order.
func (l *Library) RenameFolder(oldName, newName string) error {
	newName = strings.TrimSpace(newName)

	l.mu.Lock()
	if newName == "" || newName == oldName || l.find(newName) != nil {
		l.mu.Unlock()
		return nil
	}
	f := l.find(oldName)
	if f == nil {
		l.mu.Unlock()
		return fmt.Errorf("%q: %w", oldName, ErrUnknownFolder)
	}
	if err := l.store.RenameFolder(oldName, newName); err != nil {
		l.mu.Unlock()
		return err
	}
	f.name = newName
	if l.active == oldName {
		l.active = newName
	}
	l.mu.Unlock()

	l.notify()
	return nil
}

// DeleteFolder removes a folder and its chats from memory and disk. When
// it was active, the last remaining folder becomes active.
func (l *Library) DeleteFolder(name string) error {
	l.mu.Lock()
	i := l.indexOf(name)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("%q: %w", name, ErrUnknownFolder)
	}
	if err := l.store.DeleteFolder(name); err != nil {
		l.mu.Unlock()
		return err
	}
	l.folders = append(l.folders[:i], l.folders[i+1:]...)
	if l.active == name {
		l.active = ""
		if n := len(l.folders); n > 0 {
			l.active = l.folders[n-1].name
		}
	}
	l.mu.Unlock()

	l.notify()
	return nil
}

// EnsureActiveFolder returns the active folder, picking the last folder or
// creating the default one when none is active.
func (l *Library) EnsureActiveFolder() (string, error) {
	l.mu.Lock()
	if l.active != "" {
		active := l.active
		l.mu.Unlock()
		return active, nil
	}
	if n := len(l.folders); n > 0 {
		l.active = l.folders[n-1].name
		active := l.active
		l.mu.Unlock()
		return active, nil
	}
	name, err := l.createFolderLocked("")
	l.mu.Unlock()
	if err == nil {
		l.notify()
	}
	return name, err
}

// =============================================================================
// CHATS
// =============================================================================

// NewChatTitle returns "Chat <YYYY-MM-DD HH-MM-SS>" for the current time.
func (l *Library) NewChatTitle() string {
	l.mu.RLock()
	now := l.now
	l.mu.RUnlock()
	return "Chat " + now().Format(chatTitleLayout)
}

// AddChat appends a chat to folder, creating the folder when needed. An
// empty title is generated. With writeFile the empty chat file is created
// too and its path returned.
func (l *Library) AddChat(folderName, title string, writeFile bool) (string, string, error) {
	if strings.TrimSpace(title) == "" {
		title = l.NewChatTitle()
	}

	l.mu.Lock()
	f := l.find(folderName)
	if f == nil {
		name, err := l.createFolderLocked(strings.TrimSpace(folderName))
		if err != nil {
			l.mu.Unlock()
			return "", "", err
		}
		folderName = name
		f = l.find(name)
	}

	var path string
	if writeFile {
		p, err := l.store.CreateChat(folderName, title)
		if err != nil {
			l.mu.Unlock()
			return "", "", err
		}
		path = p
	}
	f.chats = append(f.chats, title)
	l.mu.Unlock()

	l.notify()
	return title, path, nil
}

// RenameChat renames a chat on disk and replaces its title in place. The
// returned path is empty when the chat had no file.
func (l *Library) RenameChat(folderName, oldTitle, newTitle string) (string, error) {
	l.mu.Lock()
	f := l.find(folderName)
	if f == nil {
		l.mu.Unlock()
		return "", fmt.Errorf("%q: %w", folderName, ErrUnknownFolder)
	}
	path, err := l.store.RenameChat(folderName, oldTitle, newTitle)
	if err != nil {
		l.mu.Unlock()
		return "", err
	}
	for i, t := range f.chats {
		if t == oldTitle {
			f.chats[i] = newTitle
			break
		}
	}
	l.mu.Unlock()

	l.notify()
	return path, nil
}

// DeleteChat removes a chat from its folder and deletes its file.
func (l *Library) DeleteChat(folderName, title string) error {
	l.mu.Lock()
	f := l.find(folderName)
	if f == nil {
		l.mu.Unlock()
		return fmt.Errorf("%q: %w", folderName, ErrUnknownFolder)
	}
	if err := l.store.DeleteChat(folderName, title); err != nil {
		l.mu.Unlock()
		return err
	}
	for i, t := range f.chats {
		if t == title {
			f.chats = append(f.chats[:i], f.chats[i+1:]...)
			break
		}
	}
	l.mu.Unlock()

	l.notify()
	return nil
}

// DeleteItems deletes a mixed selection. Chats inside a folder that is
// also selected are removed with the folder. Every item is attempted; the
// errors are joined.
func (l *Library) DeleteItems(items []Item) error {
	doomed := make(map[string]bool)
	for _, it := range items {
		if it.IsFolder() {
			doomed[it.Folder] = true
		}
	}

	var errs []error
	for _, it := range items {
		if !it.IsFolder() && !doomed[it.Folder] {
			if err := l.DeleteChat(it.Folder, it.Title); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, it := range items {
		if it.IsFolder() && doomed[it.Folder] {
			delete(doomed, it.Folder)
			if err := l.DeleteFolder(it.Folder); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Folders returns the folder names in display order.
func (l *Library) Folders() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, len(l.folders))
	for i, f := range l.folders {
		names[i] = f.name
	}
	return names
}

// Chats returns the chat titles of a folder in display order.
func (l *Library) Chats(folderName string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if f := l.find(folderName); f != nil {
		return append([]string(nil), f.chats...)
	}
	return nil
}

// HasChat reports whether folder lists a chat titled title.
func (l *Library) HasChat(folderName, title string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if f := l.find(folderName); f != nil {
		for _, t := range f.chats {
			if t == title {
				return true
			}
		}
	}
	return false
}

// Active returns the active folder, or "" when none is.
func (l *Library) Active() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Items returns every folder followed by its chats, the way a side panel
// lists them.
func (l *Library) Items() []Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var items []Item
	for _, f := range l.folders {
		items = append(items, Item{Folder: f.name})
		for _, t := range f.chats {
			items = append(items, Item{Folder: f.name, Title: t})
		}
	}
	return items
}

// =============================================================================
// CHANGE NOTIFICATION
// =============================================================================

// OnChange registers fn to run after every change, including reloads
// triggered by Watch. fn runs on the goroutine that made the change.
func (l *Library) OnChange(fn func()) {
	l.listenerMu.Lock()
	defer l.listenerMu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func (l *Library) notify() {
	l.listenerMu.Lock()
	fns := append([]func(){}, l.listeners...)
	l.listenerMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
