// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Command otbmtool inspects and rewrites OTBM map files.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:          "otbmtool",
		Short:        "Inspect and rewrite OTBM map files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}
	opts.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newDumpCmd(opts))
	rootCmd.AddCommand(newStatCmd(opts))
	rootCmd.AddCommand(newRecompressCmd(opts))
	rootCmd.AddCommand(newVerifyCmd(opts))

	return rootCmd
}
