// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

import (
	"bufio"
	"fmt"
	"os"
)

// ByteSink is the raw output a Writer emits to.
type ByteSink interface {
	// WriteRawBytes writes p verbatim.
	WriteRawBytes(p []byte) error
	// WriteEscapedBytes writes p with every reserved byte prefixed by Escape.
	WriteEscapedBytes(p []byte) error
}

// FileSink writes to a file on disk through a buffered writer.
type FileSink struct {
	file    *os.File
	w       *bufio.Writer
	scratch []byte
	pos     int64
	err     error
}

// CreateFileSink creates or truncates path for writing.
func CreateFileSink(path string) (*FileSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrFileOpenWrite, path, err)
	}
	return newFileSink(file), nil
}

func newFileSink(file *os.File) *FileSink {
	return &FileSink{
		file: file,
		w:    bufio.NewWriterSize(file, 64<<10),
	}
}

// WriteRawBytes implements ByteSink.
func (s *FileSink) WriteRawBytes(p []byte) error {
	if s.err != nil {
		return s.err
	}
	n, err := s.w.Write(p)
	s.pos += int64(n)
	if err != nil {
		s.err = fmt.Errorf("%w at offset %d: %w", ErrWriteFailed, s.pos, err)
	}
	return s.err
}

// WriteEscapedBytes implements ByteSink.
func (s *FileSink) WriteEscapedBytes(p []byte) error {
	if s.err != nil {
		return s.err
	}
	s.scratch = appendEscaped(s.scratch[:0], p)
	return s.WriteRawBytes(s.scratch)
}

// Tell returns the number of bytes written so far.
func (s *FileSink) Tell() int64 {
	return s.pos
}

// Err returns the first write failure, if any.
func (s *FileSink) Err() error {
	return s.err
}

// Flush pushes buffered bytes to the file.
func (s *FileSink) Flush() error {
	if s.err != nil {
		return s.err
	}
	if err := s.w.Flush(); err != nil {
		s.err = fmt.Errorf("%w: flush: %w", ErrWriteFailed, err)
	}
	return s.err
}

// Close flushes and closes the file. Further writes fail with ErrFileNotOpen.
func (s *FileSink) Close() error {
	if s.file == nil {
		return nil
	}
	flushErr := s.Flush()
	closeErr := s.file.Close()
	s.file = nil
	if s.err == nil {
		s.err = ErrFileNotOpen
	}
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("%w: close: %w", ErrWriteFailed, closeErr)
	}
	return nil
}

// MemorySink collects output in a growable buffer.
type MemorySink struct {
	buf []byte
}

// NewMemorySink returns an empty sink with room for sizeHint bytes.
func NewMemorySink(sizeHint int) *MemorySink {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &MemorySink{buf: make([]byte, 0, sizeHint)}
}

// WriteRawBytes implements ByteSink.
func (s *MemorySink) WriteRawBytes(p []byte) error {
	s.buf = append(s.buf, p...)
	return nil
}

// WriteEscapedBytes implements ByteSink.
func (s *MemorySink) WriteEscapedBytes(p []byte) error {
	s.buf = appendEscaped(s.buf, p)
	return nil
}

// Bytes returns the written bytes. The slice aliases the sink's buffer until
// the next write or Reset.
func (s *MemorySink) Bytes() []byte {
	return s.buf
}

// Len returns the number of bytes written.
func (s *MemorySink) Len() int {
	return len(s.buf)
}

// Reset discards the contents and keeps the allocation.
func (s *MemorySink) Reset() {
	s.buf = s.buf[:0]
}
