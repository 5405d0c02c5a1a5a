// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// WebSearchURL returns the search page for query on engine ("baidu" or
// "google"). An empty query gives the engine's home page.
func WebSearchURL(engine, query string) (string, error) {
	query = strings.TrimSpace(query)
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", "baidu":
		if query == "" {
			return "https://www.baidu.com", nil
		}
		return "https://www.baidu.com/s?wd=" + url.QueryEscape(query), nil
	case "google":
		if query == "" {
			return "https://www.google.com", nil
		}
		return "https://www.google.com/search?q=" + url.QueryEscape(query), nil
	}
	return "", NewValidationErrorWithExample("engine", engine, "unsupported", "--engine google")
}

func newWebCmd(a *app) *cobra.Command {
	var engine string
	cmd := &cobra.Command{
		Use:   "web [query]",
		Short: "Print a web search URL for a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := WebSearchURL(engine, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, u)
			return nil
		},
	}
	cmd.Flags().StringVarP(&engine, "engine", "e", "baidu", "baidu or google")
	return cmd
}
