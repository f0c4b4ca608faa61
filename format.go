// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// OTBM framing constants
const (
	// NodeStart opens a node, or terminates an attribute block when children follow.
	NodeStart = 0xFE
	// NodeEnd closes a node.
	NodeEnd = 0xFF
	// Escape makes the following byte literal.
	Escape = 0xFD

	// Node flag bits, written raw right after the node type
	flagCompressed = 0x01

	// Compressed block header: compressedLength:u32le, decompressedLength:u32le
	compressedHeaderSize = 8

	// Strings and blobs carry a u16 length prefix
	maxPropertyLength = 0xFFFF

	// Default upper bound for a single node's attribute block (64 MiB)
	defaultMaxNodeSize = 64 << 20

	// Identifier length at the start of a disk file
	identifierSize = 4
)

// Identifier is the 4-byte tag written ahead of the first node in a disk file.
type Identifier [identifierSize]byte

var (
	// IdentifierOTBM is the tag written by map editors.
	IdentifierOTBM = Identifier{'O', 'T', 'B', 'M'}

	// IdentifierWildcard is the all-zero tag accepted by every client.
	IdentifierWildcard = Identifier{}
)

// String returns the identifier as text, or hex when it is not printable.
func (id Identifier) String() string {
	for _, c := range id {
		if c < 0x20 || c > 0x7E {
			return hex.EncodeToString(id[:])
		}
	}
	return string(id[:])
}

// isMarker reports whether b collides with one of the reserved framing bytes.
func isMarker(b byte) bool {
	return b == NodeStart || b == NodeEnd || b == Escape
}

// appendEscaped appends p to dst, prefixing reserved bytes with Escape.
func appendEscaped(dst, p []byte) []byte {
	for _, b := range p {
		if isMarker(b) {
			dst = append(dst, Escape)
		}
		dst = append(dst, b)
	}
	return dst
}

// putCompressedHeader encodes the two length fields of a compressed block.
func putCompressedHeader(dst []byte, compressedLength, decompressedLength uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], compressedLength)
	binary.LittleEndian.PutUint32(dst[4:8], decompressedLength)
}

// ParseIdentifier parses "OTBM", "wildcard" (four zero bytes), any other
// four-character tag, or eight hex digits.
func ParseIdentifier(s string) (Identifier, error) {
	var id Identifier
	switch {
	case s == "wildcard":
		return IdentifierWildcard, nil
	case len(s) == identifierSize:
		copy(id[:], s)
		return id, nil
	case len(s) == identifierSize*2:
		if _, err := hex.Decode(id[:], []byte(s)); err != nil {
			return id, fmt.Errorf("parse identifier %q: %w", s, err)
		}
		return id, nil
	default:
		return id, fmt.Errorf("parse identifier %q: want 4 characters or 8 hex digits", s)
	}
}
