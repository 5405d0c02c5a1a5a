// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/library"
	"github.com/jeranaias/rigchat/internal/storage"
)

// errEventsClosed means the session shut down before the reply arrived.
var errEventsClosed = errors.New("session closed before the reply arrived")

type sendOptions struct {
	images []string
	folder string
	title  string
	model  string
}

func newSendCmd(a *app) *cobra.Command {
	var opts sendOptions
	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Send one message and print the reply",
		Long: `Send one message and print the reply.

Without --title a new chat is created in the folder. With --title the
message is appended to that chat, which is created when it does not
exist yet.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd.Context(), a, strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.images, "image", "i", nil, "attach an image file (repeatable)")
	cmd.Flags().StringVar(&opts.folder, "folder", "", "folder of the chat (default the active folder)")
	cmd.Flags().StringVar(&opts.title, "title", "", "chat to continue")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model for this request")
	return cmd
}

func runSend(ctx context.Context, a *app, text string, opts sendOptions) error {
	for _, img := range opts.images {
		if _, err := os.Stat(img); err != nil {
			return NewValidationError("image", img, "file not readable")
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	s, err := a.newSession(context.Background())
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.model != "" {
		s.SetModel(opts.model)
	}
	if err := selectChat(a, s, opts.folder, opts.title); err != nil {
		return err
	}

	id, err := s.Send(text, opts.images)
	if err != nil {
		return err
	}
	if id == "" {
		return NewValidationError("message", "", "nothing to send")
	}

	var usageLine string
	reply, err := waitForReply(ctx, s, id, func(u chat.EventUsage) {
		usageLine = formatUsage(u.Current, u.Today, u.Total)
	})
	if err != nil {
		return err
	}

	if a.opts.jsonMode {
		data := map[string]interface{}{
			"folder": reply.Chat.Folder,
			"title":  reply.Chat.Title,
			"model":  reply.Model,
			"text":   reply.Text,
		}
		if reply.Err != nil {
			data["error"] = reply.Err.Error()
		}
		return writeJSON(a.out, "send", data)
	}

	if reply.Err != nil {
		return reply.Err
	}
	printReply(a.out, reply.Text, reply.Model, false, a.cfg.UI.Width)
	if usageLine != "" {
		fmt.Fprintln(a.errOut, DimStyle.Render(usageLine))
	}
	return nil
}

// selectChat points the session at folder/title before sending. A title
// that does not exist yet is created.
func selectChat(a *app, s *chat.Session, folder, title string) error {
	lib, err := a.library()
	if err != nil {
		return err
	}
	if folder != "" {
		if err := lib.SetActive(folder); errors.Is(err, library.ErrUnknownFolder) {
			if _, err := lib.CreateFolder(folder); err != nil {
				return err
			}
			if err := lib.SetActive(folder); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	if title == "" {
		return nil
	}
	if folder == "" {
		folder = lib.Active()
	}

	err = s.OpenChat(folder, title)
	if errors.Is(err, storage.ErrChatNotFound) || errors.Is(err, storage.ErrFolderNotFound) {
		if _, _, err := lib.AddChat(folder, title, true); err != nil {
			return err
		}
		err = s.OpenChat(folder, title)
	}
	return err
}

// waitForReply reads session events until the reply to id arrives. When
// ctx is canceled the request is canceled and its reply still awaited.
func waitForReply(ctx context.Context, s *chat.Session, id string, onUsage func(chat.EventUsage)) (chat.EventReply, error) {
	done := ctx.Done()
	for {
		select {
		case <-done:
			s.Cancel(id)
			done = nil
		case ev, ok := <-s.Events():
			if !ok {
				return chat.EventReply{}, errEventsClosed
			}
			switch e := ev.(type) {
			case chat.EventUsage:
				if onUsage != nil {
					onUsage(e)
				}
			case chat.EventReply:
				if e.TaskID == id {
					return e, nil
				}
			}
		}
	}
}
