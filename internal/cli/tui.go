// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	uichat "github.com/jeranaias/rigchat/internal/ui/chat"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

func newTUICmd(a *app) *cobra.Command {
	var folder, title string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen chat view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := RequiresTTY("tui"); err != nil {
				return err
			}
			return runTUI(cmd.Context(), a, folder, title)
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "folder to open")
	cmd.Flags().StringVar(&title, "title", "", "chat to open")
	return cmd
}

// runTUI runs the full-screen view until the user quits. A folder or
// title selects the chat to open first, the way send does.
func runTUI(ctx context.Context, a *app, folder, title string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := a.newSession(context.Background())
	if err != nil {
		return err
	}
	defer func() {
		// Nobody reads events once the program is gone.
		go func() {
			for range s.Events() {
			}
		}()
		s.Close()
	}()

	if folder != "" || title != "" {
		if err := selectChat(a, s, folder, title); err != nil {
			return err
		}
	}

	lib, err := a.library()
	if err != nil {
		return err
	}
	if err := lib.Watch(ctx); err != nil {
		slog.Warn("history watcher unavailable", "error", err)
	}

	m := uichat.New(uichat.Options{
		Session: s,
		Library: lib,
		Index:   a.index(),
		Theme:   styles.NewTheme(a.cfg.UI.Theme),
		OnActiveFolder: func(folder string) {
			if a.cfg.UI.ActiveFolder == folder {
				return
			}
			a.cfg.UI.ActiveFolder = folder
			if err := a.saveConfig(); err != nil {
				slog.Warn("failed to remember active folder", "folder", folder, "error", err)
			}
		},
	})

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
		tea.WithInput(a.in),
		tea.WithOutput(a.out),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
