// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// Execute runs the rigchat command line and exits non-zero on error.
func Execute() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	a.interactive = IsTTY()
	cmd := newRootCmd(a)
	err := cmd.Execute()
	a.close()
	if err != nil {
		DisplayError(os.Stderr, err, a.opts.jsonMode)
		os.Exit(ExitGeneralError)
	}
}

// NewRootCmd builds the command tree on the given streams. Tests use it to
// run commands in-process.
func NewRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	return newRootCmd(newApp(in, out, errOut))
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rigchat",
		Short: "Terminal chat client for OpenAI-compatible backends",
		Long: `rigchat keeps conversations as JSON files grouped in folders and
sends them to any OpenAI-compatible chat completions endpoint.

Run without arguments in a terminal to open the full-screen view.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.interactive && IsStdoutTTY() {
				return runTUI(cmd.Context(), a, "", "")
			}
			return cmd.Help()
		},
	}
	cmd.SetIn(a.in)
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "config file (default ~/.rigchat/config.toml)")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "log at debug level")
	flags.StringVar(&a.opts.logFile, "log-file", "", "log file (default ~/.rigchat/logs/rigchat.log)")
	flags.BoolVar(&a.opts.jsonMode, "json", false, "machine-readable output")
	flags.BoolVarP(&a.opts.yes, "yes", "y", false, "do not ask before deleting")

	cmd.AddCommand(
		newChatCmd(a),
		newTUICmd(a),
		newSendCmd(a),
		newFoldersCmd(a),
		newChatsCmd(a),
		newSearchCmd(a),
		newUsageCmd(a),
		newProvidersCmd(a),
		newKeyCmd(a),
		newConfigCmd(a),
		newWebCmd(a),
	)
	return cmd
}
