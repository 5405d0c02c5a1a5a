// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/library"
)

// folderInfo is the JSON form of one folder.
type folderInfo struct {
	Name   string `json:"name"`
	Chats  int    `json:"chats"`
	Active bool   `json:"active"`
}

func newFoldersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "folders",
		Aliases: []string{"folder"},
		Short:   "List and manage chat folders",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFoldersList(a)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List folders",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runFoldersList(a)
			},
		},
		&cobra.Command{
			Use:   "new [name]",
			Short: "Create a folder, named \"New folder N\" when no name is given",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				lib, err := a.library()
				if err != nil {
					return err
				}
				name := ""
				if len(args) == 1 {
					name = args[0]
				}
				created, err := lib.CreateFolder(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s Created folder %s\n", SuccessStyle.Render("[OK]"), created)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <old> <new>",
			Short: "Rename a folder",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				lib, err := a.library()
				if err != nil {
					return err
				}
				if !containsFolder(lib, args[0]) {
					return NewNotFoundError("folder", args[0])
				}
				if err := lib.RenameFolder(args[0], args[1]); err != nil {
					return err
				}
				if idx := a.index(); idx != nil {
					if err := idx.MoveFolder(lib.Store(), args[0], args[1]); err != nil {
						slog.Warn("failed to move folder in index", "folder", args[1], "error", err)
					}
				}
				if err := a.rememberFolder(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s Renamed %s to %s\n", SuccessStyle.Render("[OK]"), args[0], args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a folder and every chat in it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				lib, err := a.library()
				if err != nil {
					return err
				}
				name := args[0]
				if !containsFolder(lib, name) {
					return NewNotFoundError("folder", name)
				}
				ok, err := a.confirm("delete folder "+name,
					fmt.Sprintf("Folder: %s (%d chats)", name, len(lib.Chats(name))))
				if err != nil || !ok {
					if err == nil {
						fmt.Fprintln(a.out, "Cancelled.")
					}
					return err
				}
				if err := lib.DeleteFolder(name); err != nil {
					return err
				}
				if idx := a.index(); idx != nil {
					_ = idx.RemoveFolder(name)
				}
				if err := a.rememberFolder(name, ""); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s Deleted folder %s\n", SuccessStyle.Render("[OK]"), name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "use <name>",
			Short: "Make a folder active for new chats",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				lib, err := a.library()
				if err != nil {
					return err
				}
				if err := lib.SetActive(args[0]); err != nil {
					if errors.Is(err, library.ErrUnknownFolder) {
						return NewNotFoundError("folder", args[0])
					}
					return err
				}
				a.cfg.UI.ActiveFolder = args[0]
				if err := a.saveConfig(); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s Active folder: %s\n", SuccessStyle.Render("[OK]"), args[0])
				return nil
			},
		},
	)
	return cmd
}

func runFoldersList(a *app) error {
	lib, err := a.library()
	if err != nil {
		return err
	}
	active := lib.Active()

	var infos []folderInfo
	for _, name := range lib.Folders() {
		infos = append(infos, folderInfo{Name: name, Chats: len(lib.Chats(name)), Active: name == active})
	}
	if a.opts.jsonMode {
		return writeJSON(a.out, "folders list", infos)
	}

	fmt.Fprintln(a.out, TitleStyle.Render("Folders"))
	for _, f := range infos {
		marker := "  "
		name := ValueStyle.Render(f.Name)
		if f.Active {
			marker = HighlightStyle.Render("* ")
			name = HighlightStyle.Render(f.Name)
		}
		fmt.Fprintf(a.out, "%s%s %s\n", marker, name, DimStyle.Render(fmt.Sprintf("(%d chats)", f.Chats)))
	}
	return nil
}

func containsFolder(lib *library.Library, name string) bool {
	for _, f := range lib.Folders() {
		if f == name {
			return true
		}
	}
	return false
}

// rememberFolder keeps the saved active folder in step with a rename or
// delete of that folder.
func (a *app) rememberFolder(oldName, newName string) error {
	if a.cfg.UI.ActiveFolder != oldName {
		return nil
	}
	a.cfg.UI.ActiveFolder = newName
	return a.saveConfig()
}
