// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/usage"
)

func newUsageCmd(a *app) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show tokens spent today and in total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.usageLedger()
			if err != nil {
				return err
			}
			if reset {
				ok, err := a.confirm("reset the token counters")
				if err != nil || !ok {
					return err
				}
				if err := ledger.Reset(); err != nil {
					return err
				}
			}

			snap := ledger.Snapshot()
			if a.opts.jsonMode {
				return writeJSON(a.out, "usage", snap)
			}
			fmt.Fprintln(a.out, TitleStyle.Render("Token usage"))
			fmt.Fprintln(a.out, RenderField("Today ("+snap.Date+"):", usage.FormatNumber(snap.Today)))
			fmt.Fprintln(a.out, RenderField("Total:", usage.FormatNumber(snap.Total)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "zero both counters")
	return cmd
}
