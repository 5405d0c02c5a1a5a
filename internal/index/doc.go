// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides full-text search over chat history.
//
// Chat files remain the source of truth. The index is a SQLite database
// (modernc.org/sqlite, FTS5) with one row per message, kept current as
// replies arrive and rebuilt from disk on demand.
//
// # Key Types
//
//   - Index: the database handle with indexing and search methods
//   - SearchOptions: result limit, folder filter and snippet length
//   - Stats: indexed chat and message counts
//
// # Usage
//
//	idx, err := index.Open(cfg.Storage.IndexPath)
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//
//	if idx.IsEmpty() {
//	    idx.Rebuild(ctx, store)
//	}
//	hits, err := idx.Search("eigenvalue", 20)
package index
