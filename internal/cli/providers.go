// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/secrets"
	"github.com/jeranaias/rigchat/internal/util"
)

// providerInfo is the JSON form of one provider. The key itself is never
// included.
type providerInfo struct {
	Name      string   `json:"name"`
	BaseURL   string   `json:"base_url"`
	Models    []string `json:"models"`
	Active    bool     `json:"active"`
	KeySource string   `json:"key_source"`
}

func newProvidersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "providers",
		Aliases: []string{"provider"},
		Short:   "List backends and pick the active one",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvidersList(a)
		},
	}

	var model string
	use := &cobra.Command{
		Use:   "use <name>",
		Short: "Make a provider active, with its first model unless --model is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.UseProvider(args[0], model); err != nil {
				return NewNotFoundError("provider", args[0])
			}
			if err := a.saveConfig(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s Using %s with %s\n", SuccessStyle.Render("[OK]"), a.cfg.Provider, a.cfg.Model)
			if !secrets.HasKey(a.cfg.Provider) && a.cfg.ActiveProvider().APIKey == "" {
				fmt.Fprintln(a.out, DimStyle.Render("No API key stored. Add one with: rigchat key set "+a.cfg.Provider))
			}
			return nil
		},
	}
	use.Flags().StringVarP(&model, "model", "m", "", "model to select")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List providers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runProvidersList(a)
			},
		},
		use,
		&cobra.Command{
			Use:   "models [provider]",
			Short: "List the models of a provider (the active one by default)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p := a.cfg.ActiveProvider()
				if len(args) == 1 {
					var ok bool
					if p, ok = a.cfg.FindProvider(args[0]); !ok {
						return NewNotFoundError("provider", args[0])
					}
				}
				if a.opts.jsonMode {
					return writeJSON(a.out, "providers models", p.Models)
				}
				for _, m := range p.Models {
					if strings.EqualFold(p.Name, a.cfg.Provider) && m == a.cfg.Model {
						fmt.Fprintln(a.out, HighlightStyle.Render("* "+m))
						continue
					}
					fmt.Fprintln(a.out, "  "+m)
				}
				return nil
			},
		},
	)
	return cmd
}

func runProvidersList(a *app) error {
	var infos []providerInfo
	for _, p := range a.cfg.Providers {
		_, source := secrets.APIKey(p.Name, p.APIKey)
		infos = append(infos, providerInfo{
			Name:      p.Name,
			BaseURL:   p.BaseURL,
			Models:    p.Models,
			Active:    strings.EqualFold(p.Name, a.cfg.Provider),
			KeySource: source,
		})
	}
	if a.opts.jsonMode {
		return writeJSON(a.out, "providers list", infos)
	}

	fmt.Fprintln(a.out, TitleStyle.Render("Providers"))
	for _, p := range infos {
		marker := "  "
		name := util.PadRight(p.Name, 14)
		if p.Active {
			marker = HighlightStyle.Render("* ")
			name = HighlightStyle.Render(name)
		}
		key := DimStyle.Render("no key")
		if p.KeySource != "" {
			key = SuccessStyle.Render("key: " + p.KeySource)
		}
		fmt.Fprintf(a.out, "%s%s %s  %s\n", marker, name,
			ValueStyle.Render(util.PadRight(util.TruncateWidth(p.BaseURL, 60), 60)), key)
	}
	return nil
}
