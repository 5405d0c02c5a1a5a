// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/util"
)

// collisionLayout suffixes a stem when the preferred file name is taken.
const collisionLayout = "20060102150405"

// =============================================================================
// STORE
// =============================================================================

// Store manages the chat history tree rooted at Root.
type Store struct {
	// Root holds one directory per folder.
	// Default: ~/.rigchat/ChatHistory
	Root string

	now func() time.Time
}

// NewStore creates the root directory if needed and returns a store on it.
func NewStore(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage root: %w", ErrInvalidName)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{Root: root, now: time.Now}, nil
}

// SetClock replaces the time source used for generated names.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// FolderPath returns the directory of a folder. It does not check that the
// folder exists.
func (s *Store) FolderPath(name string) string {
	return filepath.Join(s.Root, name)
}

func (s *Store) folderDir(name string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("folder %q: %w", name, ErrInvalidName)
	}
	return s.FolderPath(name), nil
}

// =============================================================================
// FOLDER OPERATIONS
// =============================================================================

// ListFolders returns folder names sorted by name. Hidden directories are
// skipped.
func (s *Store) ListFolders() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list folders: %w", err)
	}

	folders := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			folders = append(folders, e.Name())
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// FolderExists reports whether the folder directory exists.
func (s *Store) FolderExists(name string) bool {
	dir, err := s.folderDir(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// CreateFolder creates the folder directory. Existing folders are fine.
func (s *Store) CreateFolder(name string) error {
	dir, err := s.folderDir(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create folder %q: %w", name, err)
	}
	return nil
}

// RenameFolder renames a folder directory. Renaming to the same name is a
// no-op; renaming onto an existing folder fails with ErrFolderExists. A
// folder that was never written to disk has nothing to rename.
func (s *Store) RenameFolder(oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	oldDir, err := s.folderDir(oldName)
	if err != nil {
		return err
	}
	newDir, err := s.folderDir(newName)
	if err != nil {
		return err
	}

	if _, err := os.Stat(newDir); err == nil {
		return fmt.Errorf("rename folder to %q: %w", newName, ErrFolderExists)
	}
	if _, err := os.Stat(oldDir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := os.Rename(oldDir, newDir); err != nil {
		return fmt.Errorf("rename folder %q -> %q: %w", oldName, newName, err)
	}

	slog.Info("folder renamed", "from", oldName, "to", newName)
	return nil
}

// DeleteFolder removes a folder and every chat in it.
func (s *Store) DeleteFolder(name string) error {
	dir, err := s.folderDir(name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete folder %q: %w", name, err)
	}
	slog.Info("folder deleted", "folder", name)
	return nil
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// CreateChat writes an empty chat titled title into folder and returns its
// path. The folder is created if needed. An existing file with the same
// stem is never overwritten; the new file gets a timestamp suffix instead.
func (s *Store) CreateChat(folder, title string) (string, error) {
	dir, err := s.folderDir(folder)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create folder %q: %w", folder, err)
	}

	path := s.freePath(dir, sanitizeAt(title, s.now()), "")
	chat := &ChatFile{Title: title, Folder: folder, Messages: []Message{}}
	if err := SaveChat(path, chat); err != nil {
		return "", err
	}

	slog.Debug("chat created", "folder", folder, "title", title, "file", filepath.Base(path))
	return path, nil
}

// freePath returns dir/stem.json, or a suffixed variant when that name is
// taken by a file other than self.
func (s *Store) freePath(dir, stem, self string) string {
	path := filepath.Join(dir, stem+".json")
	if !fileExists(path) || (self != "" && sameFile(path, self)) {
		return path
	}

	base := stem + "_" + s.now().Format(collisionLayout)
	path = filepath.Join(dir, base+".json")
	for n := 2; fileExists(path); n++ {
		path = filepath.Join(dir, base+"_"+strconv.Itoa(n)+".json")
	}
	return path
}

// Resolve finds the chat file for title inside folder. It tries, in order:
//
//  1. <title>.json
//  2. <sanitized title>.json
//  3. any *.json whose sanitized stem equals the sanitized title, ignoring case
//  4. any *.json whose "title" field equals title
//
// When nothing matches, the returned path does not exist; callers use
// os.Stat or ResolveExisting to tell the difference.
func (s *Store) Resolve(folder, title string) (string, error) {
	dir, err := s.folderDir(folder)
	if err != nil {
		return "", err
	}

	stem := sanitizeStem(title)
	fallback := filepath.Join(dir, title+".json")
	if !validName(title) {
		// Titles with separators would escape the folder.
		fallback = filepath.Join(dir, sanitizeAt(title, s.now())+".json")
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fallback, nil
	}

	if validName(title) && fileExists(fallback) {
		return fallback, nil
	}
	if stem != "" {
		if candidate := filepath.Join(dir, stem+".json"); fileExists(candidate) {
			return candidate, nil
		}
	}

	files := jsonFiles(dir)
	if stem != "" {
		for _, p := range files {
			if sameStem(sanitizeStem(stemOf(p)), stem) {
				return p, nil
			}
		}
	}
	if title != "" {
		for _, p := range files {
			if titleField(p) == title {
				return p, nil
			}
		}
	}

	return fallback, nil
}

// ResolveExisting is Resolve that reports ErrChatNotFound instead of
// returning a path that does not exist.
func (s *Store) ResolveExisting(folder, title string) (string, error) {
	path, err := s.Resolve(folder, title)
	if err != nil {
		return "", err
	}
	if !fileExists(path) {
		return "", fmt.Errorf("%s/%s: %w", folder, title, ErrChatNotFound)
	}
	return path, nil
}

// RenameChat moves the file of a chat to a name derived from newTitle and
// updates the title stored inside it. It returns the new path, or "" when
// the chat has no file yet (nothing to rename).
func (s *Store) RenameChat(folder, oldTitle, newTitle string) (string, error) {
	if strings.TrimSpace(newTitle) == "" {
		return "", fmt.Errorf("chat title: %w", ErrInvalidName)
	}
	dir, err := s.folderDir(folder)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", nil
	}

	chosen := s.locateForRename(dir, oldTitle, newTitle)
	if chosen == "" {
		slog.Info("no chat file to rename", "folder", folder, "title", oldTitle)
		return "", nil
	}

	target := s.freePath(dir, sanitizeAt(newTitle, s.now()), chosen)
	if !sameFile(target, chosen) {
		if err := os.Rename(chosen, target); err != nil {
			return "", fmt.Errorf("rename chat %q -> %q: %w", oldTitle, newTitle, err)
		}
	}

	chat, err := LoadChat(target)
	if err != nil {
		return "", err
	}
	chat.Title = newTitle
	chat.Folder = folder
	if err := SaveChat(target, chat); err != nil {
		return "", err
	}

	slog.Info("chat renamed", "folder", folder, "from", oldTitle, "to", newTitle, "file", filepath.Base(target))
	return target, nil
}

// locateForRename finds the file behind oldTitle. Besides the Resolve
// lookups it accepts a stem that already matches newTitle, which happens
// when the file was renamed on disk before the UI caught up.
func (s *Store) locateForRename(dir, oldTitle, newTitle string) string {
	if validName(oldTitle) {
		if p := filepath.Join(dir, oldTitle+".json"); fileExists(p) {
			return p
		}
	}
	oldStem := sanitizeStem(oldTitle)
	if oldStem != "" {
		if p := filepath.Join(dir, oldStem+".json"); fileExists(p) {
			return p
		}
	}

	files := jsonFiles(dir)
	newStem := sanitizeStem(newTitle)
	for _, p := range files {
		stem := sanitizeStem(stemOf(p))
		if (newStem != "" && sameStem(stem, newStem)) || (oldStem != "" && sameStem(stem, oldStem)) {
			return p
		}
	}
	if oldTitle != "" {
		for _, p := range files {
			if titleField(p) == oldTitle {
				return p
			}
		}
	}
	return ""
}

// DeleteChat removes the file of a chat. A chat without a file is not an
// error.
func (s *Store) DeleteChat(folder, title string) error {
	dir, err := s.folderDir(folder)
	if err != nil {
		return err
	}

	var candidates []string
	if validName(title) {
		candidates = append(candidates, filepath.Join(dir, title+".json"))
	}
	if stem := sanitizeStem(title); stem != "" {
		candidates = append(candidates, filepath.Join(dir, stem+".json"))
	}
	if resolved, err := s.Resolve(folder, title); err == nil {
		candidates = append(candidates, resolved)
	}

	for _, p := range candidates {
		if !fileExists(p) {
			continue
		}
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("delete chat %q: %w", title, err)
		}
		slog.Info("chat deleted", "folder", folder, "title", title)
		return nil
	}
	return nil
}

// DeletePath removes a chat file by path. Missing files are ignored.
func (s *Store) DeletePath(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete chat file: %w", err)
	}
	return nil
}

// ListChats returns the chats of a folder in file name order. Unreadable
// files are skipped and logged.
func (s *Store) ListChats(folder string) ([]ChatRef, error) {
	dir, err := s.folderDir(folder)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%q: %w", folder, ErrFolderNotFound)
	}

	var refs []ChatRef
	for _, p := range jsonFiles(dir) {
		chat, err := LoadChat(p)
		if err != nil {
			slog.Warn("skipping unreadable chat file", "path", p, "error", err)
			continue
		}
		ref := ChatRef{
			Folder:       folder,
			Title:        chat.Title,
			Path:         p,
			MessageCount: len(chat.Messages),
		}
		if info, err := os.Stat(p); err == nil {
			ref.ModTime = info.ModTime()
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// =============================================================================
// SEARCH
// =============================================================================

// Hit is a message that matched a search.
type Hit struct {
	Folder  string `json:"folder"`
	Title   string `json:"title"`
	Path    string `json:"path"`
	Role    string `json:"role"`
	Snippet string `json:"snippet"`
}

// SearchMessages scans every chat for messages containing query, ignoring
// case. It is the fallback when no search index is available.
func (s *Store) SearchMessages(query string) ([]Hit, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []Hit{}, nil
	}

	folders, err := s.ListFolders()
	if err != nil {
		return nil, err
	}

	hits := []Hit{}
	for _, f := range folders {
		refs, err := s.ListChats(f)
		if err != nil {
			continue
		}
		for _, ref := range refs {
			chat, err := LoadChat(ref.Path)
			if err != nil {
				continue
			}
			for _, msg := range chat.Messages {
				if strings.Contains(strings.ToLower(msg.Text), query) {
					hits = append(hits, Hit{
						Folder:  f,
						Title:   chat.Title,
						Path:    ref.Path,
						Role:    msg.Role,
						Snippet: Snippet(msg.Text, query, 80),
					})
				}
			}
		}
	}
	return hits, nil
}

// Snippet returns up to width runes of text on one line, positioned so the
// first occurrence of query is visible.
func Snippet(text, query string, width int) string {
	line := util.SingleLine(text)
	runes := []rune(line)
	if len(runes) <= width {
		return line
	}

	start := 0
	if idx := strings.Index(strings.ToLower(line), strings.ToLower(query)); idx > 0 && idx <= len(line) {
		start = len([]rune(line[:idx])) - width/4
		if start < 0 {
			start = 0
		}
	}
	if start+width > len(runes) {
		start = len(runes) - width
	}

	out := string(runes[start : start+width])
	if start > 0 {
		out = "..." + out
	}
	if start+width < len(runes) {
		out += "..."
	}
	return out
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatChatList renders chats as a plain text table.
func FormatChatList(refs []ChatRef) string {
	if len(refs) == 0 {
		return "No chats found."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("Folder", 18) + " " + util.PadRight("Title", 40) + " " + util.PadRight("Msgs", 5) + " Modified\n")
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	for _, r := range refs {
		modified := ""
		if !r.ModTime.IsZero() {
			modified = r.ModTime.Format("2006-01-02 15:04")
		}
		sb.WriteString(util.PadRight(util.TruncateWidth(r.Folder, 18), 18) + " " +
			util.PadRight(util.TruncateWidth(r.Title, 40), 40) + " " +
			util.PadRight(strconv.Itoa(r.MessageCount), 5) + " " +
			modified + "\n")
	}
	return sb.String()
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// jsonFiles lists *.json files in dir sorted by name. Folder names may hold
// glob metacharacters, so the directory is read rather than matched.
func jsonFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if fileExists(path) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files
}

// titleField returns the "title" stored in a chat file, or "" when the file
// is unreadable or in the legacy format.
func titleField(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var doc struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return ""
	}
	return doc.Title
}
