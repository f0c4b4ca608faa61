// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

import (
	"encoding/binary"
	"fmt"
	"log/slog"
)

// Reader parses a node tree from a ByteSource, one node per request.
// Nodes are owned by the Reader's pool and stay valid until Close.
//
// The parser state is a single flag recording whether the last structural
// byte was a NodeStart, i.e. whether a node header comes next. Any structural
// failure (marker, header, decompression, I/O) is sticky: Err reports it and
// every later parse returns nil without touching the source.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	src             ByteSource
	pool            nodePool
	root            *Node
	expectingHeader bool
	maxNodeSize     int
	logger          *slog.Logger
	identifiers     []Identifier
	closed          bool
	err             error
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxNodeSize bounds the decoded attribute block of a single node
// (default 64 MiB). Larger nodes fail with ErrInvalidNodePropertySize.
func WithMaxNodeSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.maxNodeSize = n
		}
	}
}

// WithReaderLogger enables debug records for every node parsed.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = logger
	}
}

// NewReader returns a Reader parsing src from its current position.
func NewReader(src ByteSource, opts ...ReaderOption) *Reader {
	r := &Reader{
		src:         src,
		maxNodeSize: defaultMaxNodeSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root consumes the leading NodeStart and returns a synthetic root node
// whose children are the top-level nodes of the stream. Repeated calls
// return the same node.
func (r *Reader) Root() (*Node, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.closed {
		return nil, ErrFileNotOpen
	}
	if r.root != nil {
		return r.root, nil
	}

	start := r.src.Tell()
	marker, ok := r.readByte()
	if !ok {
		return nil, r.err
	}
	if marker != NodeStart {
		return nil, r.fail(fmt.Errorf("%w: expected root node marker, got 0x%02X at offset %d", ErrSyntax, marker, start))
	}

	root := r.pool.get()
	root.reader = r
	root.start = start
	root.hasChildren = true
	r.root = root
	r.expectingHeader = true
	return root, nil
}

// Err returns the sticky error, if any.
func (r *Reader) Err() error {
	return r.err
}

// IsOK reports whether no error has occurred.
func (r *Reader) IsOK() bool {
	return r.err == nil
}

// Offset returns the source position.
func (r *Reader) Offset() int64 {
	return r.src.Tell()
}

// NodesRead returns the number of nodes parsed so far, not counting the
// synthetic root.
func (r *Reader) NodesRead() int {
	n := r.pool.len()
	if r.root != nil {
		n--
	}
	return n
}

// Close releases the node pool. Every node handed out becomes invalid.
// The source is not closed.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.pool.release()
	r.root = nil
	r.closed = true
	return nil
}

// readNextNode parses the next child of parent. prev is the child returned
// before, if any; its unread subtree is consumed first. It returns nil at the
// end of parent's children or on error.
func (r *Reader) readNextNode(parent, prev *Node) *Node {
	if r.err != nil || r.closed {
		return nil
	}
	if prev != nil && !r.drain(prev) {
		return nil
	}
	if parent.closed || !parent.hasChildren {
		return nil
	}

	if !r.expectingHeader {
		// Top-level nodes may simply run out
		if parent == r.root && r.src.IsEOF() && r.src.Err() == nil {
			parent.closed = true
			return nil
		}

		at := r.src.Tell()
		marker, ok := r.readByte()
		if !ok {
			return nil
		}
		switch marker {
		case NodeEnd:
			parent.closed = true
			return nil
		case NodeStart:
		default:
			r.fail(fmt.Errorf("%w: expected node marker, got 0x%02X at offset %d", ErrSyntax, marker, at))
			return nil
		}
	}
	r.expectingHeader = false

	start := r.src.Tell() - 1
	typ, ok := r.readByte()
	if !ok {
		return nil
	}
	flags, ok := r.readByte()
	if !ok {
		return nil
	}

	var props []byte
	var terminator byte
	if flags&flagCompressed != 0 {
		props, terminator, ok = r.readCompressed()
	} else {
		props, terminator, ok = r.readEscaped()
	}
	if !ok {
		return nil
	}

	node := r.pool.get()
	node.reader = r
	node.parent = parent
	node.typ = typ
	node.flags = flags
	node.props = props
	node.start = start
	if terminator == NodeStart {
		node.hasChildren = true
		r.expectingHeader = true
	} else {
		node.closed = true
	}

	if r.logger != nil {
		r.logger.Debug("otbm: node read",
			"type", typ,
			"compressed", node.Compressed(),
			"offset", start,
			"size", len(props),
			"children", node.hasChildren)
	}
	return node
}

// drain consumes whatever is left of n's subtree.
func (r *Reader) drain(n *Node) bool {
	for !n.closed {
		n.child = r.readNextNode(n, n.child)
		if r.err != nil {
			return false
		}
		if n.child == nil {
			break
		}
	}
	return r.err == nil
}

// readEscaped decodes an escaped attribute run up to and including its
// unescaped terminator.
func (r *Reader) readEscaped() ([]byte, byte, bool) {
	var props []byte
	for {
		b, ok := r.readByte()
		if !ok {
			return nil, 0, false
		}
		switch b {
		case NodeStart, NodeEnd:
			return props, b, true
		case Escape:
			if b, ok = r.readByte(); !ok {
				return nil, 0, false
			}
		}
		if len(props) >= r.maxNodeSize {
			r.fail(fmt.Errorf("%w: node exceeds %d bytes at offset %d", ErrInvalidNodePropertySize, r.maxNodeSize, r.src.Tell()))
			return nil, 0, false
		}
		props = append(props, b)
	}
}

// readCompressed reads a length-framed zlib block and the raw terminator
// byte that follows it.
func (r *Reader) readCompressed() ([]byte, byte, bool) {
	at := r.src.Tell()
	header, ok := r.readRaw(compressedHeaderSize)
	if !ok {
		return nil, 0, false
	}
	compressedLength := binary.LittleEndian.Uint32(header[0:4])
	decompressedLength := binary.LittleEndian.Uint32(header[4:8])

	var props []byte
	switch {
	case compressedLength == 0 && decompressedLength == 0:
	case compressedLength == 0:
		r.fail(fmt.Errorf("%w: empty block declares %d bytes at offset %d", ErrDecompression, decompressedLength, at))
		return nil, 0, false
	case uint64(compressedLength) > uint64(r.maxNodeSize) || uint64(decompressedLength) > uint64(r.maxNodeSize):
		r.fail(fmt.Errorf("%w: compressed block %d/%d bytes exceeds %d at offset %d",
			ErrInvalidNodePropertySize, compressedLength, decompressedLength, r.maxNodeSize, at))
		return nil, 0, false
	default:
		data, ok := r.readRaw(int(compressedLength))
		if !ok {
			return nil, 0, false
		}
		var err error
		if props, err = decompressData(data, decompressedLength); err != nil {
			r.fail(fmt.Errorf("%w at offset %d: %w", ErrDecompression, at, err))
			return nil, 0, false
		}
	}

	// Compressed blocks are not self-terminating
	end := r.src.Tell()
	terminator, ok := r.readByte()
	if !ok {
		return nil, 0, false
	}
	if terminator != NodeStart && terminator != NodeEnd {
		r.fail(fmt.Errorf("%w: expected marker after compressed block, got 0x%02X at offset %d", ErrSyntax, terminator, end))
		return nil, 0, false
	}
	return props, terminator, true
}

func (r *Reader) readByte() (byte, bool) {
	if !r.src.EnsureAvailable(1) {
		r.fail(r.eofError())
		return 0, false
	}
	b := r.src.ReadByteUnsafe()
	if err := r.src.Err(); err != nil {
		r.fail(err)
		return 0, false
	}
	return b, true
}

// readRaw reads n unescaped bytes. The result may alias the source.
func (r *Reader) readRaw(n int) ([]byte, bool) {
	if rr, ok := r.src.(rawReader); ok {
		p, ok := rr.readRaw(n)
		if !ok {
			r.fail(r.eofError())
			return nil, false
		}
		return p, true
	}

	if !r.src.EnsureAvailable(n) {
		r.fail(r.eofError())
		return nil, false
	}
	p := make([]byte, n)
	for i := range p {
		p[i] = r.src.ReadByteUnsafe()
	}
	if err := r.src.Err(); err != nil {
		r.fail(err)
		return nil, false
	}
	return p, true
}

func (r *Reader) eofError() error {
	if err := r.src.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w at offset %d", ErrUnexpectedEOF, r.src.Tell())
}

func (r *Reader) fail(err error) error {
	if r.err == nil {
		r.err = err
	}
	return r.err
}

// nodeSlabSize is the number of nodes allocated at once by the pool.
const nodeSlabSize = 256

// nodePool hands out nodes from fixed-size slabs, so node pointers stay
// stable for the lifetime of the pool.
type nodePool struct {
	slabs [][]Node
	used  int
}

func (p *nodePool) get() *Node {
	if len(p.slabs) == 0 || p.used == nodeSlabSize {
		p.slabs = append(p.slabs, make([]Node, nodeSlabSize))
		p.used = 0
	}
	n := &p.slabs[len(p.slabs)-1][p.used]
	p.used++
	return n
}

func (p *nodePool) len() int {
	if len(p.slabs) == 0 {
		return 0
	}
	return (len(p.slabs)-1)*nodeSlabSize + p.used
}

// release zeroes every node so that stale pointers fail fast.
func (p *nodePool) release() {
	for _, slab := range p.slabs {
		clear(slab)
	}
	p.slabs = nil
	p.used = 0
}
