// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"slices"
)

// Writer emits a node tree to a ByteSink. Attributes of the open node are
// accumulated and written when the node is closed or its first child is
// opened. The first failure is sticky: every later call returns it without
// touching the sink.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	sink   ByteSink
	comp   compressor
	logger *slog.Logger

	// Open nodes, innermost last
	stack []openNode

	// Attribute accumulator of the innermost open node. The first dataLen
	// bytes are node data, the rest are attributes.
	props   []byte
	dataLen int

	written int
	err     error
}

type openNode struct {
	typ        byte
	compressed bool
	flushed    bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompressionLevel sets the zlib level used for compressed nodes
// (default DefaultCompression). Out-of-range levels are ignored.
func WithCompressionLevel(level int) WriterOption {
	return func(w *Writer) {
		if validCompressionLevel(level) {
			w.comp.level = level
		}
	}
}

// WithWriterLogger enables debug records for every node written.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter returns a Writer emitting to sink.
func NewWriter(sink ByteSink, opts ...WriterOption) *Writer {
	w := &Writer{
		sink:  sink,
		comp:  compressor{level: DefaultCompression},
		props: make([]byte, 0, 256),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddNode opens a child of the current node (or a top-level node) with the
// given type. When compress is set the node's attributes are stored as a
// zlib block.
func (w *Writer) AddNode(typ byte, compress bool) error {
	if w.err != nil {
		return w.err
	}

	// A parent's attribute block ends where its first child begins
	if err := w.flushAttributes(); err != nil {
		return err
	}

	var flags byte
	if compress {
		flags |= flagCompressed
	}

	header := [3]byte{NodeStart, typ, flags}
	if err := w.sink.WriteRawBytes(header[:]); err != nil {
		return w.fail(err)
	}

	w.stack = append(w.stack, openNode{typ: typ, compressed: compress})
	w.props = w.props[:0]
	w.dataLen = 0
	return nil
}

// AddNodeData adds fixed header bytes to the open node. Node data always
// precedes the node's attributes, regardless of call order.
func (w *Writer) AddNodeData(p []byte) error {
	if err := w.checkAttributes("node data"); err != nil {
		return err
	}
	w.props = slices.Insert(w.props, w.dataLen, p...)
	w.dataLen += len(p)
	return nil
}

// AddU8 appends a byte attribute.
func (w *Writer) AddU8(v uint8) error {
	if err := w.checkAttributes("u8"); err != nil {
		return err
	}
	w.props = append(w.props, v)
	return nil
}

// AddU16 appends a little-endian uint16 attribute.
func (w *Writer) AddU16(v uint16) error {
	if err := w.checkAttributes("u16"); err != nil {
		return err
	}
	w.props = binary.LittleEndian.AppendUint16(w.props, v)
	return nil
}

// AddU32 appends a little-endian uint32 attribute.
func (w *Writer) AddU32(v uint32) error {
	if err := w.checkAttributes("u32"); err != nil {
		return err
	}
	w.props = binary.LittleEndian.AppendUint32(w.props, v)
	return nil
}

// AddU64 appends a little-endian uint64 attribute.
func (w *Writer) AddU64(v uint64) error {
	if err := w.checkAttributes("u64"); err != nil {
		return err
	}
	w.props = binary.LittleEndian.AppendUint64(w.props, v)
	return nil
}

// AddString appends a string with a u16 length prefix.
func (w *Writer) AddString(s string) error {
	if err := w.checkAttributes("string"); err != nil {
		return err
	}
	if len(s) > maxPropertyLength {
		return w.fail(fmt.Errorf("%w: string of %d bytes exceeds %d", ErrSyntax, len(s), maxPropertyLength))
	}
	w.props = binary.LittleEndian.AppendUint16(w.props, uint16(len(s)))
	w.props = append(w.props, s...)
	return nil
}

// AddBytes appends a blob with a u16 length prefix.
func (w *Writer) AddBytes(p []byte) error {
	if err := w.checkAttributes("bytes"); err != nil {
		return err
	}
	if len(p) > maxPropertyLength {
		return w.fail(fmt.Errorf("%w: blob of %d bytes exceeds %d", ErrSyntax, len(p), maxPropertyLength))
	}
	w.props = binary.LittleEndian.AppendUint16(w.props, uint16(len(p)))
	w.props = append(w.props, p...)
	return nil
}

// AddRaw appends p to the open node's attributes without a length prefix.
func (w *Writer) AddRaw(p []byte) error {
	if err := w.checkAttributes("raw bytes"); err != nil {
		return err
	}
	w.props = append(w.props, p...)
	return nil
}

// EncodeAttributes lets enc append attributes to the open node. A failing
// hook is returned as-is and does not poison the writer.
func (w *Writer) EncodeAttributes(enc AttributeEncoder) error {
	if err := w.checkAttributes("attributes"); err != nil {
		return err
	}
	if err := enc.EncodeAttributes(w); err != nil {
		return err
	}
	return w.err
}

// EndNode closes the innermost open node.
func (w *Writer) EndNode() error {
	if w.err != nil {
		return w.err
	}
	if len(w.stack) == 0 {
		return w.fail(fmt.Errorf("%w: EndNode without an open node", ErrSyntax))
	}

	if err := w.flushAttributes(); err != nil {
		return err
	}

	if err := w.sink.WriteRawBytes([]byte{NodeEnd}); err != nil {
		return w.fail(err)
	}

	node := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	w.written++

	if w.logger != nil {
		w.logger.Debug("otbm: node written",
			"type", node.typ,
			"compressed", node.compressed,
			"depth", len(w.stack))
	}
	return nil
}

// Finish checks that every node was closed and flushes the sink if it
// buffers output.
func (w *Writer) Finish() error {
	if w.err != nil {
		return w.err
	}
	if depth := len(w.stack); depth > 0 {
		return w.fail(fmt.Errorf("%w: %d node(s) left open", ErrSyntax, depth))
	}
	if f, ok := w.sink.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return w.fail(err)
		}
	}
	return nil
}

// Depth returns the number of open nodes.
func (w *Writer) Depth() int {
	return len(w.stack)
}

// NodesWritten returns the number of closed nodes.
func (w *Writer) NodesWritten() int {
	return w.written
}

// Err returns the sticky error, if any.
func (w *Writer) Err() error {
	return w.err
}

// IsOK reports whether no error has occurred.
func (w *Writer) IsOK() bool {
	return w.err == nil
}

// checkAttributes verifies an attribute may be appended to the open node.
func (w *Writer) checkAttributes(what string) error {
	if w.err != nil {
		return w.err
	}
	if len(w.stack) == 0 {
		return w.fail(fmt.Errorf("%w: %s outside of a node", ErrSyntax, what))
	}
	if w.stack[len(w.stack)-1].flushed {
		return w.fail(fmt.Errorf("%w: %s after child nodes", ErrSyntax, what))
	}
	return nil
}

// flushAttributes writes the innermost open node's attribute block, once.
func (w *Writer) flushAttributes() error {
	if len(w.stack) == 0 {
		return nil
	}
	top := &w.stack[len(w.stack)-1]
	if top.flushed {
		return nil
	}
	top.flushed = true

	if !top.compressed {
		if err := w.sink.WriteEscapedBytes(w.props); err != nil {
			return w.fail(err)
		}
		return nil
	}

	if uint64(len(w.props)) > math.MaxUint32 {
		return w.fail(fmt.Errorf("%w: node of %d bytes", ErrInvalidNodePropertySize, len(w.props)))
	}

	var header [compressedHeaderSize]byte
	if len(w.props) == 0 {
		if err := w.sink.WriteRawBytes(header[:]); err != nil {
			return w.fail(err)
		}
		return nil
	}

	compressed, err := w.comp.compress(w.props)
	if err != nil {
		return w.fail(fmt.Errorf("%w: %w", ErrWriteFailed, err))
	}
	putCompressedHeader(header[:], uint32(len(compressed)), uint32(len(w.props)))

	if err := w.sink.WriteRawBytes(header[:]); err != nil {
		return w.fail(err)
	}
	if err := w.sink.WriteRawBytes(compressed); err != nil {
		return w.fail(err)
	}
	return nil
}

func (w *Writer) fail(err error) error {
	if w.err == nil {
		w.err = err
	}
	return w.err
}
