// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

/*
Package otbm reads and writes OTBM map files: a tree of nested,
self-delimiting binary nodes with streamed attributes.

# Format

Three bytes are structural:

	NodeStart = 0xFE  opens a node, or ends an attribute block when children follow
	NodeEnd   = 0xFF  closes a node
	Escape    = 0xFD  makes the next byte literal

A node is NodeStart, a type byte and a flags byte, followed by its attribute
block. Uncompressed blocks are escaped and end at the first unescaped
NodeStart or NodeEnd. Compressed blocks (flag bit 0) are framed instead:

	compressedLength:u32le decompressedLength:u32le zlib-bytes terminator

and are never escaped. Attributes are an ID byte followed by a little-endian
value; strings and blobs carry a u16 length prefix.

Disk files start with a 4-byte identifier ("OTBM" or four zero bytes).
In-memory buffers do not.

# Writing

	w, err := otbm.CreateFile("world.otbm", otbm.IdentifierOTBM)
	if err != nil {
		log.Fatal(err)
	}
	w.AddNode(0x00, false) // root
	w.AddU32(3)
	w.AddNode(0x02, true) // compressed child
	w.AddU8(0x01)
	w.AddString("Test")
	w.EndNode()
	w.EndNode()
	if err := w.Close(); err != nil {
		log.Fatal(err)
	}

Errors are sticky: after the first failure every call returns the same
error, so checking the result of Close (or Finish) is enough.

# Reading

	r, err := otbm.OpenFile("world.otbm")
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	root, err := r.Root()
	if err != nil {
		log.Fatal(err)
	}
	top := root.Child()
	for child := top.Child(); child != nil; child = top.NextChild() {
		id, _ := child.ReadU8()
		...
	}
	if err := r.Err(); err != nil {
		log.Fatal(err)
	}

Nodes are parsed lazily, one per Child or NextChild call, and belong to the
Reader. A failed attribute read on a Node is local to that node; a failed
structural parse stops the Reader for good.
*/
package otbm
