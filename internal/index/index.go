// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrDatabaseError = errors.New("database error")
	ErrInvalidPath   = errors.New("invalid path")
	ErrClosed        = errors.New("index closed")
)

// rebuildParallelism bounds concurrent chat file reads during Rebuild.
const rebuildParallelism = 4

// =============================================================================
// CHAT INDEX
// =============================================================================

// Index is a SQLite full-text index over chat messages. The chat files stay
// the source of truth; the index can always be rebuilt from them.
type Index struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Stats summarizes the index contents.
type Stats struct {
	Chats       int
	Messages    int
	LastRebuild time.Time
}

// Open opens or creates the index database at path.
func Open(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrInvalidPath)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Index{db: db, path: path}, nil
}

// Close closes the database.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.db == nil {
		return nil
	}
	err := idx.db.Close()
	idx.db = nil
	return err
}

// Path returns the database file path.
func (idx *Index) Path() string {
	return idx.path
}

// =============================================================================
// INDEXING
// =============================================================================

// IndexChat replaces the rows of the chat stored at path.
func (idx *Index) IndexChat(path string, chat *storage.ChatFile) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.db == nil {
		return ErrClosed
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if err := deleteChat(tx, path); err != nil {
		return err
	}
	if err := insertChat(tx, path, chat, modTime(path)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// RemoveChat drops the rows of the chat stored at path.
func (idx *Index) RemoveChat(path string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.db == nil {
		return ErrClosed
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if err := deleteChat(tx, path); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// RemoveFolder drops every chat of a folder.
func (idx *Index) RemoveFolder(folder string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.db == nil {
		return ErrClosed
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages_fts WHERE folder = ?", folder); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if _, err := tx.Exec("DELETE FROM chats WHERE folder = ?", folder); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// MoveFolder re-points the rows of a renamed folder. The chats are read
// from newName in store, so call it after the directory was renamed.
func (idx *Index) MoveFolder(store *storage.Store, oldName, newName string) error {
	refs, err := store.ListChats(newName)
	if err != nil {
		return err
	}
	var loaded []*loadedChat
	for _, ref := range refs {
		chat, err := storage.LoadChat(ref.Path)
		if err != nil {
			slog.Warn("skipping unreadable chat", "path", ref.Path, "error", err)
			continue
		}
		chat.Folder = newName
		loaded = append(loaded, &loadedChat{path: ref.Path, chat: chat, modTime: ref.ModTime})
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.db == nil {
		return ErrClosed
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	for _, folder := range []string{oldName, newName} {
		if _, err := tx.Exec("DELETE FROM messages_fts WHERE folder = ?", folder); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if _, err := tx.Exec("DELETE FROM chats WHERE folder = ?", folder); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}
	for _, lc := range loaded {
		if err := insertChat(tx, lc.path, lc.chat, lc.modTime); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

type loadedChat struct {
	path    string
	chat    *storage.ChatFile
	modTime time.Time
}

// Rebuild re-reads every chat of store and replaces the whole index. Files
// are read in parallel and written in one transaction. Unreadable files are
// skipped. Returns the number of chats indexed.
func (idx *Index) Rebuild(ctx context.Context, store *storage.Store) (int, error) {
	folders, err := store.ListFolders()
	if err != nil {
		return 0, err
	}
	var refs []storage.ChatRef
	for _, folder := range folders {
		chats, err := store.ListChats(folder)
		if err != nil {
			slog.Warn("skipping folder during rebuild", "folder", folder, "error", err)
			continue
		}
		refs = append(refs, chats...)
	}

	loaded := make([]*loadedChat, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildParallelism)
	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chat, err := storage.LoadChat(ref.Path)
			if err != nil {
				slog.Warn("skipping unreadable chat", "path", ref.Path, "error", err)
				return nil
			}
			chat.Folder = ref.Folder
			loaded[i] = &loadedChat{path: ref.Path, chat: chat, modTime: ref.ModTime}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.db == nil {
		return 0, ErrClosed
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM messages_fts", "DELETE FROM chats"} {
		if _, err := tx.Exec(stmt); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	count := 0
	for _, lc := range loaded {
		if lc == nil {
			continue
		}
		if err := insertChat(tx, lc.path, lc.chat, lc.modTime); err != nil {
			return 0, err
		}
		count++
	}

	if _, err := tx.Exec("UPDATE metadata SET value = ? WHERE key = 'last_full_index'",
		strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	slog.Info("search index rebuilt", "chats", count)
	return count, nil
}

func deleteChat(tx *sql.Tx, path string) error {
	if _, err := tx.Exec("DELETE FROM messages_fts WHERE path = ?", path); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if _, err := tx.Exec("DELETE FROM chats WHERE path = ?", path); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

func insertChat(tx *sql.Tx, path string, chat *storage.ChatFile, mod time.Time) error {
	folder := chat.Folder
	if folder == "" {
		folder = filepath.Base(filepath.Dir(path))
	}

	_, err := tx.Exec(`INSERT INTO chats (path, folder, title, message_count, mod_time, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		path, folder, chat.Title, len(chat.Messages), mod.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO messages_fts (path, folder, title, role, text)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer stmt.Close()

	for _, msg := range chat.Messages {
		if msg.Text == "" {
			continue
		}
		if _, err := stmt.Exec(path, folder, chat.Title, msg.Role, msg.Text); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}
	return nil
}

func modTime(path string) time.Time {
	if info, err := os.Stat(path); err == nil {
		return info.ModTime()
	}
	return time.Now()
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats returns row counts and the time of the last full rebuild.
func (idx *Index) Stats() (Stats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.db == nil {
		return Stats{}, ErrClosed
	}

	var s Stats
	if err := idx.db.QueryRow("SELECT COUNT(*) FROM chats").Scan(&s.Chats); err != nil {
		return s, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if err := idx.db.QueryRow("SELECT COUNT(*) FROM messages_fts").Scan(&s.Messages); err != nil {
		return s, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	var last string
	if err := idx.db.QueryRow("SELECT value FROM metadata WHERE key = 'last_full_index'").Scan(&last); err == nil {
		if secs, err := strconv.ParseInt(last, 10, 64); err == nil && secs > 0 {
			s.LastRebuild = time.Unix(secs, 0)
		}
	}
	return s, nil
}

// IsEmpty reports whether no chat has been indexed yet.
func (idx *Index) IsEmpty() bool {
	s, err := idx.Stats()
	return err != nil || s.Chats == 0
}
