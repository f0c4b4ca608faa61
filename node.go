// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

import (
	"encoding/binary"
	"fmt"
)

// Node is a cursor over one parsed node: its type, its decoded attributes
// with a read offset, and navigation to its children. Nodes belong to the
// Reader that produced them and are invalid after the Reader is closed.
//
// Each node caches exactly one child. NextChild replaces that child with its
// next sibling, so there is no independent sibling list.
type Node struct {
	reader *Reader
	parent *Node
	child  *Node

	typ    byte
	flags  byte
	props  []byte
	offset int

	// start is the source offset of the node's NodeStart marker.
	start int64

	hasChildren bool
	closed      bool
}

// Type returns the node type. The synthetic root has type 0.
func (n *Node) Type() byte {
	return n.typ
}

// Compressed reports whether the node's attributes were stored compressed.
func (n *Node) Compressed() bool {
	return n.flags&flagCompressed != 0
}

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// IsRoot reports whether n is the synthetic root.
func (n *Node) IsRoot() bool {
	return n.reader != nil && n.parent == nil
}

// SourceOffset returns the offset of the node's start marker in the source.
func (n *Node) SourceOffset() int64 {
	return n.start
}

// Attributes returns the node's decoded attribute bytes. The slice is
// shared with the node and must not be modified.
func (n *Node) Attributes() []byte {
	return n.props
}

// HasMoreProperties reports whether unread attribute bytes remain.
func (n *Node) HasMoreProperties() bool {
	return n.offset < len(n.props)
}

// Remaining returns the number of unread attribute bytes.
func (n *Node) Remaining() int {
	return len(n.props) - n.offset
}

// ResetReadOffset rewinds the attribute cursor to the start.
func (n *Node) ResetReadOffset() {
	n.offset = 0
}

// ReadU8 reads a byte.
func (n *Node) ReadU8() (uint8, error) {
	p, err := n.take(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// ReadU16 reads a little-endian uint16.
func (n *Node) ReadU16() (uint16, error) {
	p, err := n.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

// ReadU32 reads a little-endian uint32.
func (n *Node) ReadU32() (uint32, error) {
	p, err := n.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

// ReadU64 reads a little-endian uint64.
func (n *Node) ReadU64() (uint64, error) {
	p, err := n.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

// ReadString reads a string with a u16 length prefix. On a short read the
// offset is left where it was.
func (n *Node) ReadString() (string, error) {
	p, err := n.prefixed()
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// ReadBlob reads a byte slice with a u16 length prefix, as written by
// Writer.AddBytes. On a short read the offset is left where it was.
func (n *Node) ReadBlob() ([]byte, error) {
	p, err := n.prefixed()
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), p...), nil
}

// ReadBytes reads exactly size raw bytes into a new slice.
func (n *Node) ReadBytes(size int) ([]byte, error) {
	p, err := n.take(size)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), p...), nil
}

// ReadFull fills dst from the attributes.
func (n *Node) ReadFull(dst []byte) error {
	p, err := n.take(len(dst))
	if err != nil {
		return err
	}
	copy(dst, p)
	return nil
}

// Skip advances the offset by size bytes. Skipping past the end moves the
// offset to the end and reports ErrInvalidNodePropertySize.
func (n *Node) Skip(size int) error {
	if n.reader == nil {
		return ErrFileNotOpen
	}
	if size < 0 {
		return fmt.Errorf("%w: negative skip %d", ErrInvalidNodePropertySize, size)
	}
	if left := n.Remaining(); size > left {
		n.offset = len(n.props)
		return fmt.Errorf("%w: skip %d bytes, %d left", ErrInvalidNodePropertySize, size, left)
	}
	n.offset += size
	return nil
}

// DecodeAttributes reads attribute IDs until the node is exhausted and hands
// each one to dec, positioned after the ID.
func (n *Node) DecodeAttributes(dec AttributeDecoder) error {
	for n.HasMoreProperties() {
		id, err := n.ReadU8()
		if err != nil {
			return err
		}
		if err := dec.DecodeAttribute(id, n); err != nil {
			return fmt.Errorf("attribute 0x%02X: %w", id, err)
		}
	}
	return nil
}

// Child returns the cached child, fetching the first child if none has been
// read yet. It returns nil when the node has no (more) children or the
// Reader has failed.
func (n *Node) Child() *Node {
	if n.reader == nil {
		return nil
	}
	if n.child == nil {
		n.child = n.reader.readNextNode(n, nil)
	}
	return n.child
}

// NextChild replaces the cached child with its next sibling and returns it,
// or fetches the first child when none is cached. Once the children are
// exhausted it keeps returning nil.
func (n *Node) NextChild() *Node {
	if n.reader == nil {
		return nil
	}
	if n.child == nil {
		return n.Child()
	}
	n.child = n.reader.readNextNode(n, n.child)
	return n.child
}

// Advance moves to the node's next sibling via the parent. The root has no
// siblings.
func (n *Node) Advance() *Node {
	if n.parent == nil {
		return nil
	}
	return n.parent.NextChild()
}

func (n *Node) take(size int) ([]byte, error) {
	if n.reader == nil {
		return nil, ErrFileNotOpen
	}
	if size < 0 || size > n.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes, %d left", ErrInvalidNodePropertySize, size, n.Remaining())
	}
	p := n.props[n.offset : n.offset+size]
	n.offset += size
	return p, nil
}

func (n *Node) prefixed() ([]byte, error) {
	mark := n.offset
	size, err := n.ReadU16()
	if err != nil {
		return nil, err
	}
	p, err := n.take(int(size))
	if err != nil {
		n.offset = mark
		return nil, err
	}
	return p, nil
}
