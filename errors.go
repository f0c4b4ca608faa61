// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

import "errors"

// Parse errors
var (
	// ErrUnexpectedEOF indicates the input ended inside a node.
	ErrUnexpectedEOF = errors.New("otbm: unexpected end of file")

	// ErrSyntax indicates a misplaced or missing structural marker, or an
	// unbalanced AddNode/EndNode sequence on the writer side.
	ErrSyntax = errors.New("otbm: syntax error")

	// ErrDecompression indicates a compressed block failed to inflate or
	// inflated to the wrong size.
	ErrDecompression = errors.New("otbm: decompression error")

	// ErrInvalidNodePropertySize indicates a property read past the end of a
	// node's attributes, or a node larger than the configured limit.
	ErrInvalidNodePropertySize = errors.New("otbm: invalid node property size")
)

// File errors
var (
	// ErrFileOpen indicates a file could not be opened for reading.
	ErrFileOpen = errors.New("otbm: could not open file")

	// ErrFileOpenWrite indicates a file could not be opened for writing.
	ErrFileOpenWrite = errors.New("otbm: could not open file for writing")

	// ErrFileNotOpen indicates an operation on a closed source, sink or reader.
	ErrFileNotOpen = errors.New("otbm: file not open")

	// ErrWriteFailed indicates the underlying sink rejected a write.
	ErrWriteFailed = errors.New("otbm: write failed")

	// ErrReadFailed indicates the underlying source failed to deliver bytes.
	ErrReadFailed = errors.New("otbm: read failed")
)
