// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// SEARCH OPTIONS
// =============================================================================

// SearchOptions configures search behavior
type SearchOptions struct {
	// MaxResults limits the number of results (0 = unlimited)
	MaxResults int

	// Folder restricts results to one folder (empty = all)
	Folder string

	// SnippetTokens is the snippet length in tokens
	SnippetTokens int
}

// DefaultSearchOptions returns default search options
func DefaultSearchOptions() *SearchOptions {
	return &SearchOptions{
		MaxResults:    50,
		SnippetTokens: 12,
	}
}

// =============================================================================
// SEARCH METHODS
// =============================================================================

// Search returns up to limit messages matching every term of query, best
// match first.
func (idx *Index) Search(query string, limit int) ([]storage.Hit, error) {
	opts := DefaultSearchOptions()
	opts.MaxResults = limit
	return idx.SearchWithOptions(query, opts)
}

// SearchWithOptions runs a full-text search. Each whitespace separated term
// is quoted, so FTS5 operators in user input match literally. Hits whose
// file has since disappeared are dropped.
func (idx *Index) SearchWithOptions(query string, options *SearchOptions) ([]storage.Hit, error) {
	if options == nil {
		options = DefaultSearchOptions()
	}
	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return []storage.Hit{}, nil
	}
	tokens := options.SnippetTokens
	if tokens <= 0 {
		tokens = 12
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.db == nil {
		return nil, ErrClosed
	}

	sqlQuery := `
		SELECT path, folder, title, role,
			snippet(messages_fts, -1, '', '', '...', ?)
		FROM messages_fts
		WHERE messages_fts MATCH ?`
	args := []interface{}{tokens, ftsQuery}

	if options.Folder != "" {
		sqlQuery += " AND folder = ?"
		args = append(args, options.Folder)
	}

	// bm25 is lower for better matches.
	sqlQuery += " ORDER BY bm25(messages_fts)"
	if options.MaxResults > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, options.MaxResults)
	}

	rows, err := idx.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	hits := []storage.Hit{}
	for rows.Next() {
		var h storage.Hit
		if err := rows.Scan(&h.Path, &h.Folder, &h.Title, &h.Role, &h.Snippet); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if _, err := os.Stat(h.Path); err != nil {
			continue
		}
		h.Snippet = strings.Join(strings.Fields(h.Snippet), " ")
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return hits, nil
}

// buildFTSQuery quotes every term of the user input. Terms are ANDed.
func buildFTSQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}
