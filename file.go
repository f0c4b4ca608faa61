// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

// FileWriter writes a node tree to disk, preceded by a 4-byte identifier.
// Output goes to a temporary file next to the destination and is moved into
// place by Close, so an interrupted write never leaves a truncated map.
type FileWriter struct {
	*Writer
	sink       *FileSink
	path       string
	tempPath   string
	identifier Identifier
	closed     bool
}

// CreateFile starts a new map file at path.
func CreateFile(path string, identifier Identifier, opts ...WriterOption) (*FileWriter, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w %s: create directory: %w", ErrFileOpenWrite, path, err)
	}

	// Create temp file in same directory for atomic write
	tempFile, err := os.CreateTemp(dir, "otbm_*.tmp")
	if err != nil {
		return nil, fmt.Errorf("%w %s: create temp file: %w", ErrFileOpenWrite, path, err)
	}

	sink := newFileSink(tempFile)
	if err := sink.WriteRawBytes(identifier[:]); err != nil {
		sink.Close()
		os.Remove(tempFile.Name())
		return nil, err
	}

	return &FileWriter{
		Writer:     NewWriter(sink, opts...),
		sink:       sink,
		path:       path,
		tempPath:   tempFile.Name(),
		identifier: identifier,
	}, nil
}

// Path returns the destination path.
func (f *FileWriter) Path() string {
	return f.path
}

// Close finishes the tree and moves the file into place. If a node is
// still open or any write failed, the temporary file is removed, the
// destination is left untouched and the error is returned.
func (f *FileWriter) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	err := f.Writer.Finish()
	if closeErr := f.sink.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(f.tempPath)
		return err
	}

	if err := os.Rename(f.tempPath, f.path); err != nil {
		if err := copyFile(f.tempPath, f.path); err != nil {
			os.Remove(f.tempPath)
			return fmt.Errorf("%w: save %s: %w", ErrWriteFailed, f.path, err)
		}
		os.Remove(f.tempPath)
	}

	if f.logger != nil {
		f.logger.Debug("otbm: file written",
			"path", f.path,
			"identifier", f.identifier.String(),
			"nodes", f.NodesWritten(),
			"bytes", f.sink.Tell())
	}
	return nil
}

// Abort discards everything written so far.
func (f *FileWriter) Abort() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.sink.Close()
	return os.Remove(f.tempPath)
}

// FileReader reads a node tree from disk after checking its identifier.
type FileReader struct {
	*Reader
	source     *FileSource
	identifier Identifier
}

// WithIdentifiers sets the identifiers OpenFile accepts. The default is
// IdentifierOTBM and IdentifierWildcard.
func WithIdentifiers(ids ...Identifier) ReaderOption {
	return func(r *Reader) {
		r.identifiers = ids
	}
}

// OpenFile opens the map file at path and validates its identifier.
func OpenFile(path string, opts ...ReaderOption) (*FileReader, error) {
	source, err := OpenFileSource(path)
	if err != nil {
		return nil, err
	}

	if !source.EnsureAvailable(identifierSize) {
		source.Close()
		return nil, fmt.Errorf("%w: %s: missing file identifier", ErrUnexpectedEOF, path)
	}
	var id Identifier
	for i := range id {
		id[i] = source.ReadByteUnsafe()
	}
	if err := source.Err(); err != nil {
		source.Close()
		return nil, err
	}

	reader := NewReader(source, opts...)
	accepted := reader.identifiers
	if accepted == nil {
		accepted = []Identifier{IdentifierOTBM, IdentifierWildcard}
	}
	if !slices.Contains(accepted, id) {
		source.Close()
		return nil, fmt.Errorf("%w: %s: unknown file identifier %s", ErrSyntax, path, id)
	}

	if reader.logger != nil {
		reader.logger.Debug("otbm: file opened",
			"path", path,
			"identifier", id.String(),
			"size", source.Size())
	}

	return &FileReader{
		Reader:     reader,
		source:     source,
		identifier: id,
	}, nil
}

// Identifier returns the identifier found at the start of the file.
func (f *FileReader) Identifier() Identifier {
	return f.identifier
}

// Close releases the node pool and the file.
func (f *FileReader) Close() error {
	return errors.Join(f.Reader.Close(), f.source.Close())
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
