// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/suprsokr/go-otbm/internal/export"
)

func newDumpCmd(opts *globalOptions) *cobra.Command {
	var dumpFormat string

	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the node tree of a map file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			encoder, err := export.New(dumpFormat, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			m, err := opts.readMap(args[0])
			if err != nil {
				return err
			}
			if err := encoder.Encode(m.trees); err != nil {
				return fmt.Errorf("encode %s: %w", dumpFormat, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dumpFormat, "format", "f", "text",
		"output format ("+strings.Join(export.Formats, ", ")+")")

	return cmd
}
