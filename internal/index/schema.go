// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// Schema holds one row per chat file and one FTS row per message.
const Schema = `
-- Metadata table for schema version and index state
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Chats table: one row per indexed chat file
CREATE TABLE IF NOT EXISTS chats (
    path TEXT PRIMARY KEY,
    folder TEXT NOT NULL,
    title TEXT NOT NULL,
    message_count INTEGER NOT NULL,
    mod_time INTEGER NOT NULL,   -- Unix timestamp
    indexed_at INTEGER NOT NULL  -- Unix timestamp
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS idx_chats_folder ON chats(folder);

-- Full-text search over message text. path and folder are stored for
-- deletes and result rows but not tokenized.
CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    path UNINDEXED,
    folder UNINDEXED,
    title,
    role UNINDEXED,
    text,
    tokenize='unicode61 remove_diacritics 2'
);
`

// InitMetadata initializes the metadata table with default values
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('created_at', strftime('%s', 'now'));
INSERT OR IGNORE INTO metadata (key, value) VALUES ('last_full_index', '0');
`

// Column positions in messages_fts, for snippet().
const (
	colTitle = 2
	colText  = 4
)
