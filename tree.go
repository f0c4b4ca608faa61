// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

import "fmt"

// Tree is a fully decoded node and its subtree, for tools that need the
// whole map in memory rather than a streaming walk.
type Tree struct {
	Type       byte
	Compressed bool
	Attributes []byte
	Children   []*Tree
}

// ReadTree decodes every top-level node of r.
func ReadTree(r *Reader) ([]*Tree, error) {
	root, err := r.Root()
	if err != nil {
		return nil, err
	}

	var trees []*Tree
	for n := root.Child(); n != nil; n = root.NextChild() {
		trees = append(trees, readSubtree(n))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return trees, nil
}

func readSubtree(n *Node) *Tree {
	t := &Tree{
		Type:       n.Type(),
		Compressed: n.Compressed(),
		Attributes: append([]byte(nil), n.Attributes()...),
	}
	for c := n.Child(); c != nil; c = n.NextChild() {
		t.Children = append(t.Children, readSubtree(c))
	}
	return t
}

// WriteTree writes t and its subtree, keeping each node's compression flag.
func WriteTree(w *Writer, t *Tree) error {
	if err := w.AddNode(t.Type, t.Compressed); err != nil {
		return err
	}
	if err := w.AddRaw(t.Attributes); err != nil {
		return err
	}
	for i, child := range t.Children {
		if err := WriteTree(w, child); err != nil {
			return fmt.Errorf("child %d of type 0x%02X: %w", i, t.Type, err)
		}
	}
	return w.EndNode()
}

// Walk calls fn for t and every descendant in write order. Returning false
// skips the node's children.
func (t *Tree) Walk(fn func(t *Tree, depth int) bool) {
	t.walk(fn, 0)
}

func (t *Tree) walk(fn func(t *Tree, depth int) bool, depth int) {
	if !fn(t, depth) {
		return
	}
	for _, child := range t.Children {
		child.walk(fn, depth+1)
	}
}

// Count returns the number of nodes in the tree.
func (t *Tree) Count() int {
	count := 0
	t.Walk(func(*Tree, int) bool {
		count++
		return true
	})
	return count
}

// Depth returns the number of levels in the tree; a leaf has depth 1.
func (t *Tree) Depth() int {
	depth := 0
	t.Walk(func(_ *Tree, d int) bool {
		if d+1 > depth {
			depth = d + 1
		}
		return true
	})
	return depth
}
