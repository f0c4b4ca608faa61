// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	otbm "github.com/suprsokr/go-otbm"
)

// mapStats summarizes a decoded map.
type mapStats struct {
	TopLevel       int
	Nodes          int
	Compressed     int
	Depth          int
	AttributeBytes int
	LargestNode    int
	NodesByType    map[byte]int
}

func collectStats(trees []*otbm.Tree) mapStats {
	stats := mapStats{
		TopLevel:    len(trees),
		NodesByType: make(map[byte]int),
	}
	for _, t := range trees {
		stats.Nodes += t.Count()
		stats.Depth = max(stats.Depth, t.Depth())
		t.Walk(func(n *otbm.Tree, _ int) bool {
			if n.Compressed {
				stats.Compressed++
			}
			stats.AttributeBytes += len(n.Attributes)
			stats.LargestNode = max(stats.LargestNode, len(n.Attributes))
			stats.NodesByType[n.Type]++
			return true
		})
	}
	return stats
}

func newStatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <file>",
		Short: "Print node counts and sizes of a map file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.readMap(args[0])
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), m, collectStats(m.trees))
			return nil
		},
	}
}

func printStats(w io.Writer, m *loadedMap, stats mapStats) {
	fmt.Fprintf(w, "identifier:      %s\n", m.identifier)
	fmt.Fprintf(w, "file size:       %d\n", m.size)
	fmt.Fprintf(w, "top-level nodes: %d\n", stats.TopLevel)
	fmt.Fprintf(w, "nodes:           %d\n", stats.Nodes)
	fmt.Fprintf(w, "compressed:      %d\n", stats.Compressed)
	fmt.Fprintf(w, "depth:           %d\n", stats.Depth)
	fmt.Fprintf(w, "attribute bytes: %d\n", stats.AttributeBytes)
	fmt.Fprintf(w, "largest node:    %d\n", stats.LargestNode)

	for typ := 0; typ < 256; typ++ {
		if count := stats.NodesByType[byte(typ)]; count > 0 {
			fmt.Fprintf(w, "  type 0x%02X:     %d\n", typ, count)
		}
	}
}
