// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/index"
	"github.com/jeranaias/rigchat/internal/library"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/usage"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	verbose    bool
	logFile    string
	jsonMode   bool
	yes        bool
}

// app carries the configuration and the lazily opened stores shared by
// every command of one invocation.
type app struct {
	opts rootOptions

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// interactive reports whether in is a terminal.
	interactive bool

	cfg    *config.Config
	lib    *library.Library
	ledger *usage.Ledger
	idx    *index.Index
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: in, out: out, errOut: errOut}
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// init loads the configuration and sets up logging. It runs before every
// command.
func (a *app) init() error {
	cfg, loadErr := a.loadConfig()
	if cfg == nil {
		return loadErr
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.opts.verbose {
		level = "debug"
	}
	file := cfg.Logging.File
	if a.opts.logFile != "" {
		file = a.opts.logFile
	}
	if _, err := logging.Init(logging.Options{Level: level, Format: cfg.Logging.Format, File: file}); err != nil {
		fmt.Fprintf(a.errOut, "%s logging disabled: %v\n", WarningStyle.Render("Warning:"), err)
	}

	if loadErr != nil {
		slog.Warn("config not loaded, using defaults", "error", loadErr)
		fmt.Fprintf(a.errOut, "%s %v (using defaults)\n", WarningStyle.Render("Warning:"), loadErr)
	}
	return nil
}

// loadConfig returns a usable config and, separately, a load problem that
// does not prevent running with defaults.
func (a *app) loadConfig() (*config.Config, error) {
	if a.opts.configPath == "" {
		return config.Load()
	}
	if _, err := os.Stat(a.opts.configPath); errors.Is(err, os.ErrNotExist) {
		cfg := config.Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		return cfg, nil
	}
	cfg, err := config.LoadFromPath(a.opts.configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// configFile returns the file config changes are written to.
func (a *app) configFile() (string, error) {
	if a.opts.configPath != "" {
		return a.opts.configPath, nil
	}
	return config.ConfigPathTOML()
}

func (a *app) saveConfig() error {
	path, err := a.configFile()
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".json") {
		return config.SaveJSON(a.cfg, path)
	}
	if a.opts.configPath == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return err
		}
	}
	return config.SaveTOML(a.cfg, path)
}

// =============================================================================
// STORES
// =============================================================================

// library opens the chat tree and loads the folder model.
func (a *app) library() (*library.Library, error) {
	if a.lib != nil {
		return a.lib, nil
	}
	store, err := storage.NewStore(a.cfg.Storage.Root)
	if err != nil {
		return nil, err
	}
	lib := library.New(store)
	if err := lib.Load(); err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	// Separate invocations share the folder picked with "folders use".
	if name := a.cfg.UI.ActiveFolder; name != "" {
		if err := lib.SetActive(name); err != nil {
			slog.Debug("remembered folder is gone", "folder", name)
		}
	}
	a.lib = lib
	return lib, nil
}

func (a *app) store() (*storage.Store, error) {
	lib, err := a.library()
	if err != nil {
		return nil, err
	}
	return lib.Store(), nil
}

func (a *app) usageLedger() (*usage.Ledger, error) {
	if a.ledger != nil {
		return a.ledger, nil
	}
	ledger, err := usage.Open(a.cfg.Storage.UsagePath, nil)
	if err != nil {
		return nil, err
	}
	a.ledger = ledger
	return ledger, nil
}

// index opens the search index. It is optional: a failure is logged and
// nil is returned so callers fall back to scanning files.
func (a *app) index() *index.Index {
	if a.idx != nil {
		return a.idx
	}
	idx, err := index.Open(a.cfg.Storage.IndexPath)
	if err != nil {
		slog.Warn("search index unavailable", "path", a.cfg.Storage.IndexPath, "error", err)
		return nil
	}
	a.idx = idx
	return idx
}

// newSession builds and starts a chat session on the current config.
func (a *app) newSession(ctx context.Context) (*chat.Session, error) {
	lib, err := a.library()
	if err != nil {
		return nil, err
	}
	ledger, err := a.usageLedger()
	if err != nil {
		slog.Warn("token stats unavailable", "error", err)
		ledger = nil
	}

	s, err := chat.NewSession(chat.Options{
		Library:      lib,
		Ledger:       ledger,
		Index:        a.index(),
		SystemPrompt: a.cfg.SystemPrompt,
		Provider:     a.cfg.ActiveProvider().Name,
		Settings:     chat.SettingsFromConfig(a.cfg),
		Worker:       chat.WorkerOptionsFromConfig(a.cfg),
	})
	if err != nil {
		return nil, err
	}
	s.Start(ctx)
	return s, nil
}

// close releases whatever the command opened.
func (a *app) close() {
	if a.idx != nil {
		if err := a.idx.Close(); err != nil {
			slog.Warn("failed to close index", "error", err)
		}
		a.idx = nil
	}
}

func (a *app) confirm(action string, details ...string) (bool, error) {
	return RequireConfirmation(action, details, ConfirmationOptions{
		Yes:         a.opts.yes,
		JSONMode:    a.opts.jsonMode,
		Interactive: a.interactive,
		In:          a.in,
		Out:         a.out,
	})
}
