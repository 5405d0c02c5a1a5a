// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	session "github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/index"
	"github.com/jeranaias/rigchat/internal/library"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/ui/components"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// Focus is the pane that receives keys.
type Focus int

const (
	FocusInput Focus = iota
	FocusSidebar
)

// Mode says whether a prompt or a confirmation owns the keyboard.
type Mode int

const (
	ModeNormal  Mode = iota
	ModePrompt       // typing a folder or chat name
	ModeConfirm      // waiting for y/n before a delete
)

type promptAction int

const (
	promptNewFolder promptAction = iota
	promptRename
)

// Layout constants. They must match what View renders.
const (
	headerHeight = 1
	inputHeight  = 3
	inputChrome  = 2 // input border
	statusHeight = 1
	paneChrome   = 2 // rounded border, top and bottom
)

// Options wires the view to the rest of the application.
type Options struct {
	// Session and Library are required. The session must be started.
	Session *session.Session
	Library *library.Library

	// Index is updated when chats are renamed or deleted from the sidebar.
	// Optional.
	Index *index.Index

	Theme *styles.Theme

	// OnActiveFolder is called when the active folder changes so it can be
	// remembered. Optional.
	OnActiveFolder func(folder string)
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	sess  *session.Session
	lib   *library.Library
	idx   *index.Index
	theme *styles.Theme
	keys  KeyMap

	onActiveFolder func(string)
	libChanges     chan struct{}

	width  int
	height int
	focus  Focus
	mode   Mode

	prompt       textinput.Model
	promptAction promptAction
	target       library.Item

	sidebar  *components.Sidebar
	status   *components.StatusBar
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// inFlight maps task IDs to the chat file they will answer.
	inFlight map[string]string
	lastTask string

	// failures are error replies for the open chat. They are not saved.
	failures []string
}

// New creates the chat view. It panics if Session or Library is missing.
func New(opts Options) Model {
	if opts.Session == nil || opts.Library == nil {
		panic("chat view needs a session and a library")
	}
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme("auto")
	}

	input := textarea.New()
	input.Placeholder = "Type a message..."
	input.ShowLineNumbers = false
	input.Prompt = "┃ "
	input.CharLimit = 0
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	input.Focus()

	prompt := textinput.New()
	prompt.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Theme.Thinking

	m := Model{
		sess:           opts.Session,
		lib:            opts.Library,
		idx:            opts.Index,
		theme:          opts.Theme,
		keys:           DefaultKeyMap(),
		onActiveFolder: opts.OnActiveFolder,
		libChanges:     make(chan struct{}, 1),
		prompt:         prompt,
		sidebar:        components.NewSidebar(opts.Theme),
		status:         components.NewStatusBar(opts.Theme),
		viewport:       viewport.New(80, 20),
		input:          input,
		spinner:        sp,
		inFlight:       make(map[string]string),
	}

	changes := m.libChanges
	m.lib.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	snap := m.sess.Usage()
	m.status.Today = snap.Today
	m.status.Total = snap.Total

	m.refresh()
	if cur := m.sess.Current(); cur.Path != "" {
		m.sidebar.Select(library.Item{Folder: cur.Folder, Title: cur.Title})
	}
	return m
}

// Init starts listening for session and library events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		waitForEvent(m.sess.Events()),
		waitForLibrary(m.libChanges),
	)
}

// Focus returns the pane that has focus.
func (m Model) Focus() Focus {
	return m.focus
}

// Mode returns the input mode.
func (m Model) Mode() Mode {
	return m.mode
}

// Sidebar exposes the folder and chat list.
func (m Model) Sidebar() *components.Sidebar {
	return m.sidebar
}

// StatusMessage returns the transient status bar text.
func (m Model) StatusMessage() string {
	return m.status.Message
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionEventMsg:
		return m.handleSessionEvent(msg)

	case EventsClosedMsg:
		return m, nil

	case LibraryChangedMsg:
		m.refresh()
		return m, waitForLibrary(m.libChanges)

	case statusClearMsg:
		m.status.Clear(msg.seq)
		return m, nil

	case spinner.TickMsg:
		if len(m.inFlight) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateViewport(false)
		return m, cmd
	}

	var cmds []tea.Cmd
	if m.mode == ModePrompt {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		cmds = append(cmds, cmd)
	} else if m.focus == FocusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)
	return m, tea.Batch(cmds...)
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	bodyHeight := m.height - headerHeight - inputHeight - inputChrome - statusHeight
	vpHeight := bodyHeight - paneChrome
	if vpHeight < 1 {
		vpHeight = 1
	}
	vpWidth := m.width - paneChrome
	if m.theme.ShowSidebar() {
		vpWidth -= styles.SidebarWidth
	}
	if vpWidth < 10 {
		vpWidth = 10
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight

	inputWidth := m.width - inputChrome
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.SetWidth(inputWidth)
	m.prompt.Width = inputWidth - 20

	m.updateViewport(true)
	return m, nil
}

func (m Model) handleSessionEvent(msg SessionEventMsg) (tea.Model, tea.Cmd) {
	next := waitForEvent(m.sess.Events())

	switch ev := msg.Event.(type) {
	case session.EventUsage:
		m.status.Current = ev.Current
		m.status.Today = ev.Today
		m.status.Total = ev.Total
		return m, next

	case session.EventReply:
		delete(m.inFlight, ev.TaskID)
		m.status.Pending = m.sess.Pending()

		var cmds []tea.Cmd
		cmds = append(cmds, next)
		if ev.Err != nil {
			if ev.Chat.Path == m.sess.Current().Path {
				m.failures = append(m.failures, ev.Text)
			}
			cmds = append(cmds, m.setStatus(ev.Text, true))
		} else if ev.Chat.Path != m.sess.Current().Path {
			cmds = append(cmds, m.setStatus("Reply saved to "+ev.Chat.Title, false))
		}
		m.updateViewport(true)
		return m, tea.Batch(cmds...)
	}
	return m, next
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	switch m.mode {
	case ModePrompt:
		return m.handlePromptKey(msg)
	case ModeConfirm:
		return m.handleConfirmKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Focus):
		return m.toggleFocus()

	case key.Matches(msg, m.keys.NewChat):
		return m.newChat()

	case key.Matches(msg, m.keys.Cancel):
		if m.lastTask != "" && m.sess.Cancel(m.lastTask) {
			return m, m.setStatus("Request cancelled", false)
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	if m.focus == FocusSidebar {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Submit) {
		return m.send()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.sidebar.MoveDown()
	case key.Matches(msg, m.keys.Home):
		m.sidebar.Home()
	case key.Matches(msg, m.keys.End):
		m.sidebar.End()
	case key.Matches(msg, m.keys.Open):
		return m.openSelected()
	case key.Matches(msg, m.keys.NewFolder):
		return m.startPrompt(promptNewFolder, library.Item{}, "")
	case key.Matches(msg, m.keys.Rename):
		item, ok := m.sidebar.Selected()
		if !ok {
			return m, nil
		}
		current := item.Title
		if item.IsFolder() {
			current = item.Folder
		}
		return m.startPrompt(promptRename, item, current)
	case key.Matches(msg, m.keys.Delete):
		item, ok := m.sidebar.Selected()
		if !ok {
			return m, nil
		}
		m.mode = ModeConfirm
		m.target = item
	}
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.endPrompt()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.prompt.Value())
		action, target := m.promptAction, m.target
		m.endPrompt()
		if action == promptNewFolder {
			return m.createFolder(value)
		}
		return m.rename(target, value)
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	target := m.target
	m.mode = ModeNormal
	m.target = library.Item{}
	if msg.Type == tea.KeyRunes && strings.EqualFold(string(msg.Runes), "y") {
		return m.deleteItem(target)
	}
	return m, m.setStatus("Delete cancelled", false)
}

// =============================================================================
// ACTIONS
// =============================================================================

func (m Model) toggleFocus() (tea.Model, tea.Cmd) {
	if m.focus == FocusInput {
		m.focus = FocusSidebar
		m.input.Blur()
		return m, nil
	}
	m.focus = FocusInput
	cmd := m.input.Focus()
	return m, cmd
}

func (m Model) send() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	id, err := m.sess.Send(text, nil)
	if err != nil {
		return m, m.setStatus("Send failed: "+err.Error(), true)
	}
	m.input.Reset()
	if id == "" {
		return m, nil
	}

	m.lastTask = id
	m.inFlight[id] = m.sess.Current().Path
	m.status.Pending = m.sess.Pending()
	m.refresh()
	return m, m.spinner.Tick
}

func (m Model) newChat() (tea.Model, tea.Cmd) {
	title, err := m.sess.NewChat()
	if err != nil {
		return m, m.setStatus("New chat failed: "+err.Error(), true)
	}
	m.failures = nil
	m.refresh()
	cur := m.sess.Current()
	m.sidebar.Select(library.Item{Folder: cur.Folder, Title: cur.Title})
	m.focus = FocusInput
	focusCmd := m.input.Focus()
	return m, tea.Batch(focusCmd, m.setStatus("New chat: "+title, false))
}

func (m Model) openSelected() (tea.Model, tea.Cmd) {
	item, ok := m.sidebar.Selected()
	if !ok {
		return m, nil
	}

	if item.IsFolder() {
		if err := m.lib.SetActive(item.Folder); err != nil {
			return m, m.setStatus(err.Error(), true)
		}
		m.rememberFolder()
		m.refresh()
		return m, m.setStatus("New chats go to "+item.Folder, false)
	}

	if err := m.sess.OpenChat(item.Folder, item.Title); err != nil {
		if errors.Is(err, storage.ErrChatNotFound) {
			return m, m.setStatus("Chat file not found: "+item.Title, true)
		}
		return m, m.setStatus(err.Error(), true)
	}
	if item.Folder != m.lib.Active() && m.lib.SetActive(item.Folder) == nil {
		m.rememberFolder()
	}
	m.failures = nil
	m.focus = FocusInput
	m.refresh()
	cmd := m.input.Focus()
	return m, cmd
}

func (m *Model) startPrompt(action promptAction, target library.Item, value string) (tea.Model, tea.Cmd) {
	m.mode = ModePrompt
	m.promptAction = action
	m.target = target
	if action == promptNewFolder {
		m.prompt.Prompt = "New folder name: "
		m.prompt.Placeholder = "leave empty for a numbered name"
	} else {
		m.prompt.Prompt = "Rename to: "
		m.prompt.Placeholder = ""
	}
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	cmd := m.prompt.Focus()
	return *m, cmd
}

func (m *Model) endPrompt() {
	m.mode = ModeNormal
	m.target = library.Item{}
	m.prompt.Blur()
	m.prompt.Reset()
}

func (m Model) createFolder(name string) (tea.Model, tea.Cmd) {
	var err error
	if name == "" {
		name, err = m.lib.NewFolder()
	} else {
		name, err = m.lib.CreateFolder(name)
		if err == nil {
			err = m.lib.SetActive(name)
		}
	}
	if err != nil {
		return m, m.setStatus("Create folder failed: "+err.Error(), true)
	}
	m.rememberFolder()
	m.refresh()
	m.sidebar.Select(library.Item{Folder: name})
	return m, m.setStatus("Created "+name, false)
}

func (m Model) rename(item library.Item, newName string) (tea.Model, tea.Cmd) {
	if newName == "" {
		return m, nil
	}

	if item.IsFolder() {
		if newName == item.Folder {
			return m, nil
		}
		if err := m.sess.RenameFolder(item.Folder, newName); err != nil {
			return m, m.setStatus("Rename failed: "+err.Error(), true)
		}
		m.rememberFolder()
		m.refresh()
		m.sidebar.Select(library.Item{Folder: newName})
		return m, m.setStatus(fmt.Sprintf("Renamed %s to %s", item.Folder, newName), false)
	}

	if newName == item.Title {
		return m, nil
	}
	if err := m.sess.RenameChat(item.Folder, item.Title, newName); err != nil {
		return m, m.setStatus("Rename failed: "+err.Error(), true)
	}
	m.refresh()
	m.sidebar.Select(library.Item{Folder: item.Folder, Title: newName})
	return m, m.setStatus(fmt.Sprintf("Renamed %s to %s", item.Title, newName), false)
}

func (m Model) deleteItem(item library.Item) (tea.Model, tea.Cmd) {
	cur := m.sess.Current()

	if item.IsFolder() {
		if err := m.lib.DeleteFolder(item.Folder); err != nil {
			return m, m.setStatus("Delete failed: "+err.Error(), true)
		}
		if m.idx != nil {
			if err := m.idx.RemoveFolder(item.Folder); err != nil {
				slog.Warn("failed to drop folder from index", "folder", item.Folder, "error", err)
			}
		}
		if cur.Folder == item.Folder {
			m.sess.Forget()
			m.failures = nil
		}
		m.rememberFolder()
		m.refresh()
		return m, m.setStatus("Deleted "+item.Folder, false)
	}

	if cur.Path != "" && cur.Folder == item.Folder && cur.Title == item.Title {
		if err := m.sess.ClearHistory(); err != nil {
			return m, m.setStatus("Delete failed: "+err.Error(), true)
		}
		m.failures = nil
	} else {
		path, _ := m.lib.Store().ResolveExisting(item.Folder, item.Title)
		if err := m.lib.DeleteChat(item.Folder, item.Title); err != nil {
			return m, m.setStatus("Delete failed: "+err.Error(), true)
		}
		if m.idx != nil && path != "" {
			if err := m.idx.RemoveChat(path); err != nil {
				slog.Warn("failed to drop chat from index", "path", path, "error", err)
			}
		}
	}
	m.refresh()
	return m, m.setStatus("Deleted "+item.Title, false)
}

func (m Model) rememberFolder() {
	if m.onActiveFolder != nil {
		m.onActiveFolder(m.lib.Active())
	}
}

// setStatus shows msg in the status bar for statusTimeout. It only
// touches the shared StatusBar, so it is safe in a return statement.
func (m Model) setStatus(msg string, isError bool) tea.Cmd {
	return clearStatusAfter(m.status.Show(msg, isError))
}

// refresh copies library and session state into the components.
func (m *Model) refresh() {
	m.sidebar.SetItems(m.lib.Items())
	m.sidebar.ActiveFolder = m.lib.Active()
	cur := m.sess.Current()
	m.sidebar.OpenChat = library.Item{}
	if cur.Path != "" {
		m.sidebar.OpenChat = library.Item{Folder: cur.Folder, Title: cur.Title}
	}

	m.status.Provider = m.sess.Provider()
	m.status.Model = m.sess.Model()
	m.status.Pending = m.sess.Pending()
	m.updateViewport(true)
}

// updateViewport re-renders the messages, scrolling to the end when
// toBottom is set.
func (m *Model) updateViewport(toBottom bool) {
	m.viewport.SetContent(m.renderMessages(m.viewport.Width))
	if toBottom {
		m.viewport.GotoBottom()
	}
}

// waiting reports whether a request for the open chat is in flight.
func (m Model) waiting() bool {
	path := m.sess.Current().Path
	if path == "" {
		return false
	}
	for _, p := range m.inFlight {
		if p == path {
			return true
		}
	}
	return false
}
