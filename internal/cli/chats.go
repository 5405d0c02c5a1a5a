// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/storage"
)

func newChatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List, show, rename, delete and export chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatsList(a, "")
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list [folder]",
			Short: "List chats, in one folder or all of them",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				folder := ""
				if len(args) == 1 {
					folder = args[0]
				}
				return runChatsList(a, folder)
			},
		},
		newChatsNewCmd(a),
		&cobra.Command{
			Use:   "show <folder> <title>",
			Short: "Print a chat",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				chat, _, err := a.loadChat(args[0], args[1])
				if err != nil {
					return err
				}
				if a.opts.jsonMode {
					return writeJSON(a.out, "chats show", chat)
				}
				fmt.Fprintln(a.out, TitleStyle.Render(chat.Title))
				for _, msg := range chat.Messages {
					printMessage(a.out, msg, a.cfg.UI.Width)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <folder> <old> <new>",
			Short: "Rename a chat and its file",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChatsRename(a, args[0], args[1], args[2])
			},
		},
		&cobra.Command{
			Use:   "delete <folder> <title>",
			Short: "Delete a chat file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChatsDelete(a, args[0], args[1])
			},
		},
		newChatsExportCmd(a),
	)
	return cmd
}

func newChatsNewCmd(a *app) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "new [folder]",
		Short: "Create an empty chat in a folder (the active one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library()
			if err != nil {
				return err
			}
			folder := ""
			if len(args) == 1 {
				folder = args[0]
			} else if folder, err = lib.EnsureActiveFolder(); err != nil {
				return err
			}
			title, path, err := lib.AddChat(folder, title, true)
			if err != nil {
				return translateError(err, "folder", folder)
			}
			if a.opts.jsonMode {
				return writeJSON(a.out, "chats new", storage.ChatRef{Folder: folder, Title: title, Path: path})
			}
			fmt.Fprintf(a.out, "%s Created %s/%s\n", SuccessStyle.Render("[OK]"), folder, title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "chat title (default \"Chat <date time>\")")
	return cmd
}

func newChatsExportCmd(a *app) *cobra.Command {
	var (
		format     string
		outDir     string
		noMetadata bool
		open       bool
	)
	cmd := &cobra.Command{
		Use:   "export <folder> <title>",
		Short: "Export a chat to Markdown or JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, _, err := a.loadChat(args[0], args[1])
			if err != nil {
				return err
			}
			opts := export.DefaultOptions()
			opts.OutputDir = outDir
			opts.IncludeMetadata = !noMetadata
			opts.OpenAfterExport = open

			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return NewValidationErrorWithExample("format", format, "unsupported", "--format md")
			}
			path, err := export.ExportToFile(chat, exporter, opts)
			if err != nil {
				return err
			}
			if a.opts.jsonMode {
				return writeJSON(a.out, "chats export", map[string]string{"path": path, "mime_type": exporter.MimeType()})
			}
			fmt.Fprintf(a.out, "%s Exported to %s\n", SuccessStyle.Render("[OK]"), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "md or json")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "omit the front matter and model names")
	cmd.Flags().BoolVar(&open, "open", false, "open the file when done")
	return cmd
}

// =============================================================================
// HANDLERS
// =============================================================================

func runChatsList(a *app, folder string) error {
	store, err := a.store()
	if err != nil {
		return err
	}

	folders := []string{folder}
	if folder == "" {
		if folders, err = store.ListFolders(); err != nil {
			return err
		}
	}

	var refs []storage.ChatRef
	for _, f := range folders {
		chats, err := store.ListChats(f)
		if err != nil {
			return translateError(err, "folder", f)
		}
		refs = append(refs, chats...)
	}

	if a.opts.jsonMode {
		return writeJSON(a.out, "chats list", refs)
	}
	fmt.Fprint(a.out, storage.FormatChatList(refs))
	if len(refs) == 0 {
		fmt.Fprintln(a.out)
	}
	return nil
}

// loadChat resolves and reads folder/title.
func (a *app) loadChat(folder, title string) (*storage.ChatFile, string, error) {
	store, err := a.store()
	if err != nil {
		return nil, "", err
	}
	path, err := store.ResolveExisting(folder, title)
	if err != nil {
		return nil, "", translateError(err, "chat", folder+"/"+title)
	}
	chat, err := storage.LoadChat(path)
	if err != nil {
		return nil, "", err
	}
	return chat, path, nil
}

func runChatsRename(a *app, folder, oldTitle, newTitle string) error {
	lib, err := a.library()
	if err != nil {
		return err
	}
	oldPath, err := lib.Store().ResolveExisting(folder, oldTitle)
	if err != nil {
		return translateError(err, "chat", folder+"/"+oldTitle)
	}
	newPath, err := lib.RenameChat(folder, oldTitle, newTitle)
	if err != nil {
		return err
	}
	if newPath == "" {
		newPath = oldPath
	}

	if idx := a.index(); idx != nil {
		if err := idx.RemoveChat(oldPath); err != nil {
			slog.Warn("failed to drop renamed chat from index", "path", oldPath, "error", err)
		}
		if chat, err := storage.LoadChat(newPath); err == nil {
			if err := idx.IndexChat(newPath, chat); err != nil {
				slog.Warn("failed to index renamed chat", "path", newPath, "error", err)
			}
		}
	}
	fmt.Fprintf(a.out, "%s Renamed %s to %s\n", SuccessStyle.Render("[OK]"), oldTitle, newTitle)
	return nil
}

func runChatsDelete(a *app, folder, title string) error {
	lib, err := a.library()
	if err != nil {
		return err
	}
	path, err := lib.Store().ResolveExisting(folder, title)
	if err != nil {
		return translateError(err, "chat", folder+"/"+title)
	}
	ok, err := a.confirm("delete chat "+title, "File: "+path)
	if err != nil || !ok {
		if err == nil {
			fmt.Fprintln(a.out, "Cancelled.")
		}
		return err
	}
	if err := lib.DeleteChat(folder, title); err != nil {
		return err
	}
	if idx := a.index(); idx != nil {
		if err := idx.RemoveChat(path); err != nil {
			slog.Warn("failed to drop chat from index", "path", path, "error", err)
		}
	}
	fmt.Fprintf(a.out, "%s Deleted %s/%s\n", SuccessStyle.Render("[OK]"), folder, title)
	return nil
}
