// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	otbm "github.com/suprsokr/go-otbm"
	"github.com/suprsokr/go-otbm/internal/config"
)

func newRecompressCmd(opts *globalOptions) *cobra.Command {
	var (
		policy string
		level  int
	)

	cmd := &cobra.Command{
		Use:   "recompress <in> <out>",
		Short: "Rewrite a map file with a different compression policy",
		Long: `Rewrite a map file, changing which nodes store their attributes
compressed. The node tree and attribute bytes are preserved exactly.

Policies:
  keep   keep each node's flag from the input
  all    compress every node
  none   store every node uncompressed

Examples:
  otbmtool recompress world.otbm small.otbm --compress all --level 9
  otbmtool recompress world.otbm plain.otbm --compress none`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("compress") {
				opts.config.Compress = config.CompressPolicy(policy)
			}
			if cmd.Flags().Changed("level") {
				opts.config.CompressionLevel = level
			}
			if err := opts.config.Validate(); err != nil {
				return err
			}
			return runRecompress(opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&policy, "compress", "c", string(config.CompressKeep), "compression policy (keep, all, none)")
	cmd.Flags().IntVarP(&level, "level", "l", otbm.DefaultCompression, "zlib compression level (-2 to 9)")

	return cmd
}

func runRecompress(opts *globalOptions, in, out string) error {
	m, err := opts.readMap(in)
	if err != nil {
		return err
	}
	applyPolicy(m.trees, opts.config.Compress)

	identifier, err := opts.config.FileIdentifier(m.identifier)
	if err != nil {
		return err
	}
	file, err := otbm.CreateFile(out, identifier,
		otbm.WithCompressionLevel(opts.config.CompressionLevel),
		otbm.WithWriterLogger(opts.logger))
	if err != nil {
		return err
	}

	for _, t := range m.trees {
		if err := otbm.WriteTree(file.Writer, t); err != nil {
			file.Abort()
			return fmt.Errorf("write %s: %w", out, err)
		}
	}
	if err := file.Close(); err != nil {
		return err
	}

	opts.logger.Info("map rewritten",
		"in", in,
		"out", out,
		"policy", string(opts.config.Compress),
		"nodes", file.NodesWritten())
	return nil
}

func applyPolicy(trees []*otbm.Tree, policy config.CompressPolicy) {
	if policy == config.CompressKeep {
		return
	}
	for _, t := range trees {
		t.Walk(func(n *otbm.Tree, _ int) bool {
			n.Compressed = policy == config.CompressAll
			return true
		})
	}
}
