// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation for destructive commands.
//
// The pattern is the same everywhere:
//  1. --yes skips the prompt
//  2. --json requires --yes
//  3. a non-interactive stdin requires --yes
//  4. otherwise ask [y/N]

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ConfirmationOptions controls RequireConfirmation.
type ConfirmationOptions struct {
	// Yes is set by --yes.
	Yes bool
	// JSONMode is set by --json.
	JSONMode bool
	// Interactive reports whether In is a terminal.
	Interactive bool

	In  io.Reader
	Out io.Writer
}

// RequireConfirmation asks before a destructive action. It returns false
// without error when the user declines.
func RequireConfirmation(action string, details []string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	if opts.JSONMode {
		return false, fmt.Errorf("confirmation required: use --yes with --json to %s", action)
	}
	if !opts.Interactive || opts.In == nil {
		return false, fmt.Errorf("confirmation required but stdin is not a terminal; use --yes to %s", action)
	}

	fmt.Fprintln(opts.Out)
	for _, d := range details {
		fmt.Fprintf(opts.Out, "  %s\n", d)
	}
	fmt.Fprintf(opts.Out, "Are you sure you want to %s? [y/N]: ", action)

	input, err := bufio.NewReader(opts.In).ReadString('\n')
	if err != nil && input == "" {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes", nil
}
