// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/index"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/util"
)

type searchOptions struct {
	limit   int
	folder  string
	reindex bool
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every saved message",
		Long: `Search every saved message.

Results come from the full-text index, which is built on first use and
kept current as messages are sent. --reindex rebuilds it from the chat
files. Without an index the files are scanned directly.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), a, strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "maximum results")
	cmd.Flags().StringVar(&opts.folder, "folder", "", "only search one folder")
	cmd.Flags().BoolVar(&opts.reindex, "reindex", false, "rebuild the index first")
	return cmd
}

func runSearch(ctx context.Context, a *app, query string, opts searchOptions) error {
	if opts.limit < 0 {
		return NewValidationError("limit", fmt.Sprint(opts.limit), "must not be negative")
	}
	store, err := a.store()
	if err != nil {
		return err
	}

	hits, err := searchIndex(ctx, a, store, query, opts)
	if err != nil {
		slog.Warn("index search failed, scanning files", "error", err)
		hits = nil
	}
	if hits == nil {
		if hits, err = scanFiles(store, query, opts); err != nil {
			return err
		}
	}

	if a.opts.jsonMode {
		return writeJSON(a.out, "search", hits)
	}
	if len(hits) == 0 {
		fmt.Fprintln(a.out, DimStyle.Render("No matches."))
		return nil
	}
	for _, h := range hits {
		fmt.Fprintf(a.out, "%s %s %s\n",
			HighlightStyle.Render(h.Folder+"/"+h.Title),
			DimStyle.Render("["+h.Role+"]"),
			h.Snippet)
	}
	fmt.Fprintln(a.out, DimStyle.Render(fmt.Sprintf("%d matches", len(hits))))
	return nil
}

// searchIndex returns nil hits without error when no index is available.
func searchIndex(ctx context.Context, a *app, store *storage.Store, query string, opts searchOptions) ([]storage.Hit, error) {
	idx := a.index()
	if idx == nil {
		return nil, nil
	}
	if opts.reindex || idx.IsEmpty() {
		n, err := idx.Rebuild(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("rebuild index: %w", err)
		}
		slog.Info("index rebuilt", "chats", n)
		if opts.reindex && !a.opts.jsonMode {
			fmt.Fprintf(a.errOut, "%s Indexed %d chats\n", SuccessStyle.Render("[OK]"), n)
		}
	}
	searchOpts := index.DefaultSearchOptions()
	searchOpts.MaxResults = opts.limit
	searchOpts.Folder = opts.folder
	return idx.SearchWithOptions(query, searchOpts)
}

func scanFiles(store *storage.Store, query string, opts searchOptions) ([]storage.Hit, error) {
	all, err := store.SearchMessages(query)
	if err != nil {
		return nil, err
	}
	hits := make([]storage.Hit, 0, len(all))
	for _, h := range all {
		if opts.folder != "" && h.Folder != opts.folder {
			continue
		}
		h.Snippet = util.TruncateRunes(h.Snippet, 80)
		hits = append(hits, h)
		if opts.limit > 0 && len(hits) >= opts.limit {
			break
		}
	}
	return hits, nil
}
