// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/secrets"
)

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Store API keys in the OS keyring",
		Long: `Store API keys in the OS keyring.

Keys are resolved from RIGCHAT_API_KEY first, then the keyring, then a
plaintext api_key left in an older config file.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set [provider]",
			Short: "Prompt for a key and store it (reads one line when piped)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.keyProvider(args)
				if err != nil {
					return err
				}
				key, err := a.readKey(fmt.Sprintf("API key for %s: ", p.Name))
				if err != nil {
					return err
				}
				if key == "" {
					return NewValidationError("key", "", "empty")
				}
				if err := secrets.SaveKey(p.Name, key); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s Stored key %s for %s\n", SuccessStyle.Render("[OK]"), secrets.Mask(key), p.Name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete [provider]",
			Short: "Remove a stored key",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.keyProvider(args)
				if err != nil {
					return err
				}
				if err := secrets.DeleteKey(p.Name); err != nil {
					if errors.Is(err, secrets.ErrNoKey) {
						fmt.Fprintf(a.out, "No key stored for %s\n", p.Name)
						return nil
					}
					return err
				}
				fmt.Fprintf(a.out, "%s Deleted key for %s\n", SuccessStyle.Render("[OK]"), p.Name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "status [provider]",
			Short: "Show where the key comes from",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.keyProvider(args)
				if err != nil {
					return err
				}
				key, source := secrets.APIKey(p.Name, p.APIKey)
				if a.opts.jsonMode {
					return writeJSON(a.out, "key status", map[string]string{
						"provider": p.Name,
						"source":   source,
						"key":      secrets.Mask(key),
					})
				}
				if key == "" {
					fmt.Fprintf(a.out, "%s %s\n", RenderLabel(p.Name+":"), WarningStyle.Render("no key"))
					return nil
				}
				fmt.Fprintf(a.out, "%s %s %s\n", RenderLabel(p.Name+":"), ValueStyle.Render(secrets.Mask(key)),
					DimStyle.Render("("+source+")"))
				return nil
			},
		},
	)
	return cmd
}

// keyProvider returns the named provider, or the active one.
func (a *app) keyProvider(args []string) (config.ProviderConfig, error) {
	if len(args) == 0 {
		return a.cfg.ActiveProvider(), nil
	}
	p, ok := a.cfg.FindProvider(args[0])
	if !ok {
		return p, NewNotFoundError("provider", args[0])
	}
	return p, nil
}

// readKey prompts without echo on a terminal and reads one line otherwise.
func (a *app) readKey(prompt string) (string, error) {
	if a.interactive {
		return secrets.PromptForAPIKey(a.errOut, prompt)
	}
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}
