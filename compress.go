// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Compression levels accepted by WithCompressionLevel
const (
	NoCompression      = zlib.NoCompression
	BestSpeed          = zlib.BestSpeed
	BestCompression    = zlib.BestCompression
	DefaultCompression = zlib.DefaultCompression
)

// compressor deflates attribute blocks into zlib streams, reusing its writer
// and output buffer between nodes.
type compressor struct {
	level int
	buf   bytes.Buffer
	zw    *zlib.Writer
}

// validCompressionLevel reports whether level is accepted by the zlib writer.
func validCompressionLevel(level int) bool {
	return level >= zlib.HuffmanOnly && level <= zlib.BestCompression
}

// compress returns the zlib encoding of data. The result aliases the
// compressor's buffer and is valid until the next call.
func (c *compressor) compress(data []byte) ([]byte, error) {
	c.buf.Reset()

	if c.zw == nil {
		w, err := zlib.NewWriterLevel(&c.buf, c.level)
		if err != nil {
			return nil, fmt.Errorf("create zlib writer: %w", err)
		}
		c.zw = w
	} else {
		c.zw.Reset(&c.buf)
	}

	if _, err := c.zw.Write(data); err != nil {
		return nil, fmt.Errorf("zlib write: %w", err)
	}

	if err := c.zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}

	return c.buf.Bytes(), nil
}

// decompressData inflates a zlib stream that must produce exactly
// decompressedSize bytes.
func decompressData(data []byte, decompressedSize uint32) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create zlib reader: %w", err)
	}
	defer r.Close()

	result := make([]byte, decompressedSize)
	if _, err := io.ReadFull(r, result); err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}

	// The stream must end here; reading on also verifies the checksum.
	var probe [1]byte
	switch _, err := io.ReadFull(r, probe[:]); {
	case err == nil:
		return nil, fmt.Errorf("zlib decompress: output exceeds %d bytes", decompressedSize)
	case !errors.Is(err, io.EOF):
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}

	return result, nil
}
