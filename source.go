// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// ByteSource is the raw input a Reader parses. Implementations must agree on
// Tell, IsEOF and EnsureAvailable so the parser behaves the same regardless of
// where the bytes come from.
type ByteSource interface {
	// Tell returns the number of bytes consumed so far.
	Tell() int64
	// IsEOF reports whether no more bytes can be read.
	IsEOF() bool
	// EnsureAvailable reports whether at least n more bytes can be read.
	EnsureAvailable(n int) bool
	// ReadByteUnsafe returns the next byte. The caller must have checked
	// EnsureAvailable first.
	ReadByteUnsafe() byte
	// Err returns the first I/O failure, if any.
	Err() error
}

// rawReader is implemented by sources that can hand out a run of bytes at once.
type rawReader interface {
	readRaw(n int) ([]byte, bool)
}

// FileSource reads from a file on disk through a buffered reader.
type FileSource struct {
	file *os.File
	r    *bufio.Reader
	size int64
	pos  int64
	err  error
}

// OpenFileSource opens path for reading.
func OpenFileSource(path string) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrFileOpen, path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w %s: stat: %w", ErrFileOpen, path, err)
	}

	return &FileSource{
		file: file,
		r:    bufio.NewReaderSize(file, 64<<10),
		size: info.Size(),
	}, nil
}

// Tell implements ByteSource.
func (s *FileSource) Tell() int64 {
	return s.pos
}

// Size returns the file size captured when the source was opened.
func (s *FileSource) Size() int64 {
	return s.size
}

// IsEOF implements ByteSource.
func (s *FileSource) IsEOF() bool {
	return s.err != nil || s.pos >= s.size
}

// EnsureAvailable implements ByteSource.
func (s *FileSource) EnsureAvailable(n int) bool {
	if s.err != nil || n < 0 {
		return false
	}
	return s.pos+int64(n) <= s.size
}

// ReadByteUnsafe implements ByteSource. A failing read poisons the source and
// returns zero.
func (s *FileSource) ReadByteUnsafe() byte {
	if s.err != nil {
		return 0
	}
	b, err := s.r.ReadByte()
	if err != nil {
		s.fail(err)
		return 0
	}
	s.pos++
	return b
}

func (s *FileSource) readRaw(n int) ([]byte, bool) {
	if !s.EnsureAvailable(n) {
		return nil, false
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		s.fail(err)
		return nil, false
	}
	s.pos += int64(n)
	return buf, true
}

func (s *FileSource) fail(err error) {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	s.err = fmt.Errorf("%w at offset %d: %w", ErrReadFailed, s.pos, err)
}

// Err implements ByteSource.
func (s *FileSource) Err() error {
	return s.err
}

// Close releases the file. Further reads fail with ErrFileNotOpen.
func (s *FileSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if s.err == nil {
		s.err = ErrFileNotOpen
	}
	return err
}

// MemorySource reads from a byte slice. The slice is not copied.
type MemorySource struct {
	buf []byte
	pos int
}

// NewMemorySource returns a source positioned at the start of buf.
func NewMemorySource(buf []byte) *MemorySource {
	return &MemorySource{buf: buf}
}

// Assign retargets the source at buf and rewinds it.
func (s *MemorySource) Assign(buf []byte) {
	s.buf = buf
	s.pos = 0
}

// Tell implements ByteSource.
func (s *MemorySource) Tell() int64 {
	return int64(s.pos)
}

// IsEOF implements ByteSource.
func (s *MemorySource) IsEOF() bool {
	return s.pos >= len(s.buf)
}

// EnsureAvailable implements ByteSource.
func (s *MemorySource) EnsureAvailable(n int) bool {
	return n >= 0 && s.pos+n <= len(s.buf)
}

// ReadByteUnsafe implements ByteSource.
func (s *MemorySource) ReadByteUnsafe() byte {
	b := s.buf[s.pos]
	s.pos++
	return b
}

func (s *MemorySource) readRaw(n int) ([]byte, bool) {
	if !s.EnsureAvailable(n) {
		return nil, false
	}
	p := s.buf[s.pos : s.pos+n]
	s.pos += n
	return p, true
}

// Err implements ByteSource. Memory reads never fail.
func (s *MemorySource) Err() error {
	return nil
}
