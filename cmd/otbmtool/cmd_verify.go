// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"

	otbm "github.com/suprsokr/go-otbm"
)

func newVerifyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check that a map file survives a decode and re-encode unchanged",
		Long: `Decode a map file, encode it again in memory with the same
compression flags, and decode the result. The command succeeds when both
decoded trees have the same BLAKE3 digest over their canonical form, the
uncompressed encoding of the tree, and prints that digest.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.readMap(args[0])
			if err != nil {
				return err
			}
			digest, err := verifyTrees(m.trees, opts.config.CompressionLevel)
			if err != nil {
				return fmt.Errorf("verify %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s\n", hex.EncodeToString(digest[:]))
			return nil
		},
	}
}

// verifyTrees re-encodes trees, decodes them again and compares canonical
// digests. It returns the digest of the input.
func verifyTrees(trees []*otbm.Tree, level int) ([32]byte, error) {
	want, err := canonicalDigest(trees)
	if err != nil {
		return want, err
	}

	encoded, err := encodeTrees(trees, level)
	if err != nil {
		return want, err
	}
	decoded, err := otbm.ReadTree(otbm.NewReader(otbm.NewMemorySource(encoded)))
	if err != nil {
		return want, fmt.Errorf("decode re-encoded map: %w", err)
	}

	got, err := canonicalDigest(decoded)
	if err != nil {
		return want, err
	}
	if got != want {
		return want, fmt.Errorf("digest mismatch: %x != %x", got, want)
	}
	return want, nil
}

// canonicalDigest hashes the uncompressed encoding of trees, so the result
// does not depend on compression flags or zlib output.
func canonicalDigest(trees []*otbm.Tree) ([32]byte, error) {
	plain := make([]*otbm.Tree, 0, len(trees))
	for _, t := range trees {
		plain = append(plain, uncompressedCopy(t))
	}
	encoded, err := encodeTrees(plain, otbm.NoCompression)
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(encoded), nil
}

func uncompressedCopy(t *otbm.Tree) *otbm.Tree {
	c := &otbm.Tree{Type: t.Type, Attributes: t.Attributes}
	for _, child := range t.Children {
		c.Children = append(c.Children, uncompressedCopy(child))
	}
	return c
}

func encodeTrees(trees []*otbm.Tree, level int) ([]byte, error) {
	sink := otbm.NewMemorySink(0)
	w := otbm.NewWriter(sink, otbm.WithCompressionLevel(level))
	for _, t := range trees {
		if err := otbm.WriteTree(w, t); err != nil {
			return nil, err
		}
	}
	if err := w.Finish(); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}
