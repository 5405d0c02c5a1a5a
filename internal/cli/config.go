// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration management command for rigchat.

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/secrets"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(a)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigShow(a)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := a.configFile()
				if err != nil {
					return err
				}
				if a.opts.jsonMode {
					return writeJSON(a.out, "config path", map[string]string{"path": path})
				}
				fmt.Fprintln(a.out, path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List the keys accepted by get and set",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				for _, k := range config.GetAllKeys() {
					fmt.Fprintln(a.out, k)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting, e.g. worker.queue_size",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := a.cfg.Get(args[0])
				if err != nil {
					return NewValidationErrorWithExample("key", args[0], err.Error(), "rigchat config keys")
				}
				if a.opts.jsonMode {
					return writeJSON(a.out, "config get", map[string]interface{}{"key": args[0], "value": v})
				}
				fmt.Fprintln(a.out, v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one setting and save the config file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSet(a, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "import-account <file>",
			Short: "Import a legacy account.json and move its key to the keyring",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runImportAccount(a, args[0])
			},
		},
	)
	return cmd
}

func runConfigShow(a *app) error {
	cfg := a.cfg
	if a.opts.jsonMode {
		redacted := cfg.Clone()
		for i := range redacted.Providers {
			if redacted.Providers[i].APIKey != "" {
				redacted.Providers[i].APIKey = "[REDACTED]"
			}
		}
		return writeJSON(a.out, "config show", redacted)
	}

	fmt.Fprintln(a.out, TitleStyle.Render("rigchat Configuration"))

	section := func(name string, fields ...[2]string) {
		fmt.Fprintln(a.out, SectionStyle.Render("["+name+"]"))
		for _, f := range fields {
			fmt.Fprintf(a.out, "  %s%s\n", RenderLabel(f[0]+":", 24), ValueStyle.Render(f[1]))
		}
		fmt.Fprintln(a.out)
	}

	prompt := strings.ReplaceAll(cfg.SystemPrompt, "\n", " ")
	section("general",
		[2]string{"provider", cfg.Provider},
		[2]string{"model", cfg.Model},
		[2]string{"temperature", fmt.Sprintf("%.2f", cfg.Temperature)},
		[2]string{"request_timeout_secs", fmt.Sprint(cfg.RequestTimeoutSecs)},
		[2]string{"system_prompt", prompt},
	)
	section("storage",
		[2]string{"root", cfg.Storage.Root},
		[2]string{"index_path", cfg.Storage.IndexPath},
		[2]string{"usage_path", cfg.Storage.UsagePath},
	)
	section("worker",
		[2]string{"queue_size", fmt.Sprint(cfg.Worker.QueueSize)},
		[2]string{"requests_per_minute", fmt.Sprint(cfg.Worker.RequestsPerMinute)},
	)
	section("logging",
		[2]string{"level", cfg.Logging.Level},
		[2]string{"format", cfg.Logging.Format},
		[2]string{"file", cfg.Logging.File},
	)
	section("ui",
		[2]string{"theme", cfg.UI.Theme},
		[2]string{"width", fmt.Sprint(cfg.UI.Width)},
		[2]string{"active_folder", cfg.UI.ActiveFolder},
	)

	key, source := secrets.APIKey(cfg.Provider, cfg.ActiveProvider().APIKey)
	keyDisplay := WarningStyle.Render("not set")
	if key != "" {
		keyDisplay = secrets.Mask(key) + " " + DimStyle.Render("("+source+")")
	}
	fmt.Fprintf(a.out, "  %s%s\n\n", RenderLabel("api_key:", 24), keyDisplay)

	if path, err := a.configFile(); err == nil {
		fmt.Fprintf(a.out, "Config file: %s\n", InfoStyle.Render(path))
	}
	return nil
}

func runConfigSet(a *app, key, value string) error {
	if err := a.cfg.Set(key, value); err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(), "rigchat config set worker.requests_per_minute 30")
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	if err := a.saveConfig(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s = %s\n", SuccessStyle.Render("[OK]"), key, value)
	return nil
}

func runImportAccount(a *app, path string) error {
	acct, err := a.cfg.ImportAccountFile(path)
	if err != nil {
		return err
	}
	if err := a.saveConfig(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s Imported %s with model %s\n", SuccessStyle.Render("[OK]"), acct.Provider, a.cfg.Model)

	if err := secrets.SaveKey(acct.Provider, acct.APIKey); err != nil {
		fmt.Fprintf(a.errOut, "%s key not stored: %v\n", WarningStyle.Render("Warning:"), err)
		fmt.Fprintln(a.errOut, DimStyle.Render("Set RIGCHAT_API_KEY or run: rigchat key set "+acct.Provider))
		return nil
	}
	fmt.Fprintf(a.out, "%s Stored key %s in the keyring\n", SuccessStyle.Render("[OK]"), secrets.Mask(acct.APIKey))
	return nil
}
