// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive line-mode chat for rigchat.
//
// Slash commands:
//
//	/help, /h                Show commands
//	/new                     Start a new chat in the active folder
//	/open <folder>/<title>   Open a saved chat
//	/rename <title>          Rename the open chat
//	/clear                   Delete the open chat
//	/history                 Print the open chat
//	/folders                 List folders
//	/folder <name>           Switch folder, creating it when needed
//	/model [name]            Show models, or switch model or provider
//	/usage                   Show token counters
//	/image <path>            Attach an image to the next message
//	/quit, /q                Exit

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/library"
	"github.com/jeranaias/rigchat/internal/provider"
	"github.com/jeranaias/rigchat/internal/usage"
)

const replPrompt = "rigchat> "

// =============================================================================
// LINE EDITOR
// =============================================================================

// LineEditor provides input history and line editing for interactive chat.
type LineEditor struct {
	line        *liner.State
	historyFile string
}

// NewLineEditor creates a LineEditor and loads the saved history.
func NewLineEditor(historyFile string) *LineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	e := &LineEditor{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return e
}

// ReadInput reads one line. Non-empty input is added to the history.
func (e *LineEditor) ReadInput(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes the history file with owner-only permissions.
func (e *LineEditor) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = e.line.WriteHistory(f)
}

// Close saves the history and restores the terminal.
func (e *LineEditor) Close() {
	e.SaveHistory()
	e.line.Close()
}

// lineReader is what the REPL reads from. LineEditor implements it.
type lineReader interface {
	ReadInput(prompt string) (string, error)
}

// =============================================================================
// COMMAND
// =============================================================================

func newChatCmd(a *app) *cobra.Command {
	var folder, title string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal with line editing and slash commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), a, folder, title)
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "folder to chat in")
	cmd.Flags().StringVar(&title, "title", "", "chat to continue")
	return cmd
}

func runChat(ctx context.Context, a *app, folder, title string) error {
	s, err := a.newSession(context.Background())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := selectChat(a, s, folder, title); err != nil {
		return err
	}

	historyFile := filepath.Join(os.TempDir(), "rigchat_history")
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "chat_history")
	}
	editor := NewLineEditor(historyFile)
	defer editor.Close()

	r := newREPL(a, s)
	r.printWelcome()
	return r.run(ctx, editor)
}

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	a       *app
	s       *chat.Session
	out     io.Writer
	width   int
	started time.Time

	// images are attached to the next message.
	images []string
	sent   int
	tokens int64
}

func newREPL(a *app, s *chat.Session) *repl {
	return &repl{a: a, s: s, out: a.out, width: a.cfg.UI.Width, started: time.Now()}
}

// run reads lines until /quit, Ctrl+C at the prompt, or end of input.
func (r *repl) run(ctx context.Context, in lineReader) error {
	for {
		input, err := in.ReadInput(replPrompt)
		if err != nil {
			// liner.ErrPromptAborted (Ctrl+C) or io.EOF (Ctrl+D)
			fmt.Fprintln(r.out)
			r.printExitSummary()
			return nil
		}

		cont, err := r.handleLine(ctx, input)
		if err != nil {
			fmt.Fprintf(r.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
		if !cont {
			r.printExitSummary()
			return nil
		}
	}
}

// handleLine processes one input line and reports whether to keep going.
func (r *repl) handleLine(ctx context.Context, input string) (bool, error) {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return true, nil
	case strings.HasPrefix(input, "/"):
		return r.handleSlash(input)
	case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
		return false, nil
	}
	return true, r.send(ctx, input)
}

func (r *repl) send(ctx context.Context, text string) error {
	id, err := r.s.Send(text, r.images)
	if err != nil {
		return err
	}
	r.images = nil
	if id == "" {
		return nil
	}
	r.sent++

	waitCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var usageLine string
	reply, err := waitForReply(waitCtx, r.s, id, func(u chat.EventUsage) {
		r.tokens += u.Current
		usageLine = formatUsage(u.Current, u.Today, u.Total)
	})
	if err != nil {
		return err
	}
	if waitCtx.Err() != nil && ctx.Err() == nil {
		fmt.Fprintln(r.out, WarningStyle.Render("[Cancelled]"))
	}

	printReply(r.out, reply.Text, reply.Model, reply.Err != nil, r.width)
	if usageLine != "" {
		fmt.Fprintln(r.out, DimStyle.Render(usageLine))
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (r *repl) handleSlash(input string) (bool, error) {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "/help", "/h", "/?":
		r.printHelp()
	case "/quit", "/q", "/exit":
		return false, nil
	case "/new", "/n":
		title, err := r.s.NewChat()
		if err != nil {
			return true, err
		}
		fmt.Fprintf(r.out, "%s New chat: %s\n", SuccessStyle.Render("[OK]"), title)
	case "/open", "/o":
		return true, r.open(arg)
	case "/rename":
		if arg == "" {
			return true, NewValidationErrorWithExample("title", "", "missing", "/rename Trip planning")
		}
		if err := r.s.RenameCurrent(arg); err != nil {
			return true, err
		}
		fmt.Fprintf(r.out, "%s Renamed to %s\n", SuccessStyle.Render("[OK]"), arg)
	case "/clear", "/c":
		cur := r.s.Current()
		if err := r.s.ClearHistory(); err != nil {
			return true, err
		}
		if cur.Title != "" {
			fmt.Fprintf(r.out, "%s Deleted %s\n", SuccessStyle.Render("[OK]"), cur.Title)
		} else {
			fmt.Fprintln(r.out, DimStyle.Render("Nothing to clear."))
		}
	case "/history":
		r.printHistory()
	case "/folders":
		return true, runFoldersList(r.a)
	case "/folder":
		return true, r.useFolder(arg)
	case "/model", "/m":
		return true, r.model(arg)
	case "/usage", "/u":
		r.printUsage()
	case "/image", "/img":
		return true, r.attach(arg)
	default:
		return true, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return true, nil
}

// open accepts "folder/title" or a bare title in the active folder.
func (r *repl) open(arg string) error {
	if arg == "" {
		return NewValidationErrorWithExample("chat", "", "missing", "/open Default folder/Chat 2024-05-01 10-00-00")
	}
	lib, err := r.a.library()
	if err != nil {
		return err
	}
	folder, title, ok := strings.Cut(arg, "/")
	if !ok {
		folder, title = lib.Active(), arg
	}
	if err := r.s.OpenChat(strings.TrimSpace(folder), strings.TrimSpace(title)); err != nil {
		return translateError(err, "chat", arg)
	}
	if err := lib.SetActive(r.s.Current().Folder); err != nil && !errors.Is(err, library.ErrUnknownFolder) {
		return err
	}
	r.printHistory()
	return nil
}

func (r *repl) useFolder(name string) error {
	if name == "" {
		return NewValidationErrorWithExample("folder", "", "missing", "/folder Work")
	}
	lib, err := r.a.library()
	if err != nil {
		return err
	}
	if err := lib.SetActive(name); errors.Is(err, library.ErrUnknownFolder) {
		if name, err = lib.CreateFolder(name); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "%s Created folder %s\n", SuccessStyle.Render("[OK]"), name)
		if err := lib.SetActive(name); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Active folder: %s\n", HighlightStyle.Render(name))
	return nil
}

// model shows the models of the active provider. With an argument it
// switches provider when the name matches one, and model otherwise.
func (r *repl) model(arg string) error {
	cfg := r.a.cfg
	if arg == "" {
		fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Provider:"), ValueStyle.Render(r.s.Provider()))
		fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Model:"), HighlightStyle.Render(r.s.Model()))
		if p, ok := cfg.FindProvider(r.s.Provider()); ok {
			for _, m := range p.Models {
				marker := "  "
				if m == r.s.Model() {
					marker = "* "
				}
				fmt.Fprintf(r.out, "  %s%s\n", marker, m)
			}
		}
		return nil
	}

	if _, ok := cfg.FindProvider(arg); ok {
		if err := cfg.UseProvider(arg, ""); err != nil {
			return err
		}
		settings := chat.SettingsFromConfig(cfg)
		r.s.SwitchModel(cfg.ActiveProvider().Name, settings)
	} else {
		r.s.SetModel(arg)
		cfg.Model = arg
	}
	fmt.Fprintf(r.out, "%s Using %s (%s)\n", SuccessStyle.Render("[OK]"),
		provider.DisplayModelName(r.s.Model()), r.s.Provider())
	return nil
}

func (r *repl) attach(path string) error {
	if path == "" {
		return NewValidationErrorWithExample("image", "", "missing path", "/image ~/Pictures/plot.png")
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return NewValidationError("image", path, "file not readable")
	}
	r.images = append(r.images, path)
	fmt.Fprintf(r.out, "%s Attached %s (%d pending)\n", SuccessStyle.Render("[OK]"), filepath.Base(path), len(r.images))
	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *repl) printWelcome() {
	cur := r.s.Current()
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, TitleStyle.Render("rigchat"))
	fmt.Fprintf(r.out, "%s %s\n", InfoStyle.Render("Model:"), CommandStyle.Render(r.s.Model()))
	fmt.Fprintf(r.out, "%s %s\n", InfoStyle.Render("Provider:"), CommandStyle.Render(r.s.Provider()))
	if lib, err := r.a.library(); err == nil {
		fmt.Fprintf(r.out, "%s %s\n", InfoStyle.Render("Folder:"), CommandStyle.Render(lib.Active()))
	}
	if cur.Title != "" {
		fmt.Fprintf(r.out, "%s %s\n", InfoStyle.Render("Chat:"), CommandStyle.Render(cur.Title))
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, InfoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Fprintln(r.out)
}

func (r *repl) printHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/new", "Start a new chat"},
		{"/open <f>/<title>", "Open a saved chat"},
		{"/rename <title>", "Rename the open chat"},
		{"/clear", "Delete the open chat"},
		{"/history", "Print the open chat"},
		{"/folders", "List folders"},
		{"/folder <name>", "Switch folder"},
		{"/model [name]", "Show or switch model or provider"},
		{"/usage", "Show token counters"},
		{"/image <path>", "Attach an image to the next message"},
		{"/quit, /q", "Exit"},
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, SectionStyle.Render("Available Commands"))
	for _, c := range commands {
		fmt.Fprintf(r.out, "  %s  %s\n", CommandStyle.Render(fmt.Sprintf("%-19s", c.cmd)), InfoStyle.Render(c.desc))
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, DimStyle.Render("Ctrl+C cancels a pending reply, Ctrl+D exits"))
	fmt.Fprintln(r.out)
}

func (r *repl) printHistory() {
	cur := r.s.Current()
	history := r.s.History()
	if cur.Title != "" {
		fmt.Fprintln(r.out, TitleStyle.Render(cur.Folder+" / "+cur.Title))
	}
	if len(history) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("No messages yet."))
		return
	}
	for _, msg := range history {
		printMessage(r.out, msg, r.width)
	}
}

func (r *repl) printUsage() {
	snap := r.s.Usage()
	fmt.Fprintln(r.out, RenderField("Today:", usage.FormatNumber(snap.Today)))
	fmt.Fprintln(r.out, RenderField("Total:", usage.FormatNumber(snap.Total)))
	fmt.Fprintln(r.out, RenderField("This session:", usage.FormatNumber(r.tokens)))
}

func (r *repl) printExitSummary() {
	elapsed := time.Since(r.started).Round(time.Second)
	fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("%d messages, %s tokens in %s",
		r.sent, usage.FormatNumber(r.tokens), elapsed)))
}
