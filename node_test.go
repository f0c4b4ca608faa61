// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

import (
	"errors"
	"strings"
	"testing"
)

// singleNode writes one node built by build and returns it parsed.
func singleNode(t *testing.T, compress bool, build func(w *Writer)) *Node {
	t.Helper()
	sink := NewMemorySink(0)
	w := NewWriter(sink)
	w.AddNode(0x01, compress)
	build(w)
	w.EndNode()
	if err := w.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	r := NewReader(NewMemorySource(sink.Bytes()))
	root, err := r.Root()
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	node := root.Child()
	if node == nil {
		t.Fatalf("node missing: %v", r.Err())
	}
	return node
}

func TestNodeOverrunRestoresOffset(t *testing.T) {
	node := singleNode(t, false, func(w *Writer) {
		w.AddU32(0x01020304)
		w.AddU8(0x09)
	})

	if _, err := node.ReadU64(); !errors.Is(err, ErrInvalidNodePropertySize) {
		t.Fatalf("ReadU64() error = %v", err)
	}
	if node.Remaining() != 5 {
		t.Fatalf("Remaining() = %d after failed read, want 5", node.Remaining())
	}
	if v, err := node.ReadU32(); err != nil || v != 0x01020304 {
		t.Errorf("ReadU32() = 0x%08X, %v", v, err)
	}
	if _, err := node.ReadU16(); !errors.Is(err, ErrInvalidNodePropertySize) {
		t.Errorf("ReadU16() error = %v", err)
	}
	if v, err := node.ReadU8(); err != nil || v != 0x09 {
		t.Errorf("ReadU8() = 0x%02X, %v", v, err)
	}
	if _, err := node.ReadU8(); !errors.Is(err, ErrInvalidNodePropertySize) {
		t.Errorf("ReadU8() past end error = %v", err)
	}

	// Property failures are local to the node
	if !node.reader.IsOK() {
		t.Errorf("reader poisoned by a property read: %v", node.reader.Err())
	}
}

func TestNodeStringShortfall(t *testing.T) {
	node := singleNode(t, true, func(w *Writer) {
		w.AddU16(10)
		w.AddRaw([]byte("abc"))
	})

	if _, err := node.ReadString(); !errors.Is(err, ErrInvalidNodePropertySize) {
		t.Fatalf("ReadString() error = %v", err)
	}
	if node.Remaining() != 5 {
		t.Errorf("Remaining() = %d after short string, want 5", node.Remaining())
	}
	if _, err := node.ReadBlob(); !errors.Is(err, ErrInvalidNodePropertySize) {
		t.Errorf("ReadBlob() error = %v", err)
	}
	if v, err := node.ReadU16(); err != nil || v != 10 {
		t.Errorf("ReadU16() = %d, %v", v, err)
	}
}

func TestNodeSkip(t *testing.T) {
	node := singleNode(t, false, func(w *Writer) {
		w.AddU64(0)
	})

	if err := node.Skip(-1); err == nil {
		t.Errorf("Skip(-1) succeeded")
	}
	if err := node.Skip(3); err != nil {
		t.Fatalf("Skip(3): %v", err)
	}
	if node.Remaining() != 5 {
		t.Errorf("Remaining() = %d, want 5", node.Remaining())
	}

	// Overrunning skip clamps to the end and stays there
	if err := node.Skip(100); !errors.Is(err, ErrInvalidNodePropertySize) {
		t.Errorf("Skip(100) error = %v", err)
	}
	if node.HasMoreProperties() {
		t.Errorf("HasMoreProperties() after clamped skip")
	}

	node.ResetReadOffset()
	if node.Remaining() != 8 {
		t.Errorf("Remaining() after reset = %d, want 8", node.Remaining())
	}
}

func TestNodeReadFull(t *testing.T) {
	node := singleNode(t, false, func(w *Writer) {
		w.AddNodeData([]byte{0x10, 0x20, 0x30})
		w.AddU8(0x40)
	})

	header := make([]byte, 3)
	if err := node.ReadFull(header); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if string(header) != "\x10\x20\x30" {
		t.Errorf("node data = % X", header)
	}
	if err := node.ReadFull(make([]byte, 2)); !errors.Is(err, ErrInvalidNodePropertySize) {
		t.Errorf("ReadFull past end error = %v", err)
	}
	if v, _ := node.ReadU8(); v != 0x40 {
		t.Errorf("attribute after node data = 0x%02X", v)
	}
}

// tileAttributes is a minimal attribute decoder as a map loader would
// write it.
type tileAttributes struct {
	flags  uint32
	text   string
	itemID uint16
}

func (a *tileAttributes) DecodeAttribute(id uint8, n *Node) error {
	var err error
	switch id {
	case 0x03:
		a.flags, err = n.ReadU32()
	case 0x06:
		a.text, err = n.ReadString()
	case 0x09:
		a.itemID, err = n.ReadU16()
	default:
		return errors.New("unknown attribute")
	}
	return err
}

func TestNodeDecodeAttributes(t *testing.T) {
	node := singleNode(t, false, func(w *Writer) {
		w.EncodeAttributes(AttributeEncoderFunc(func(w *Writer) error {
			w.AddU8(0x03)
			w.AddU32(0xDEADBEEF)
			w.AddU8(0x06)
			w.AddString("welcome")
			w.AddU8(0x09)
			return w.AddU16(2160)
		}))
	})

	var attrs tileAttributes
	if err := node.DecodeAttributes(&attrs); err != nil {
		t.Fatalf("DecodeAttributes: %v", err)
	}
	want := tileAttributes{flags: 0xDEADBEEF, text: "welcome", itemID: 2160}
	if attrs != want {
		t.Errorf("decoded %+v, want %+v", attrs, want)
	}

	bad := singleNode(t, false, func(w *Writer) {
		w.AddU8(0x42)
	})
	err := bad.DecodeAttributes(&attrs)
	if err == nil || !strings.Contains(err.Error(), "attribute 0x42") {
		t.Errorf("DecodeAttributes on unknown id = %v", err)
	}

	truncated := singleNode(t, false, func(w *Writer) {
		w.AddU8(0x09)
		w.AddU8(0x01)
	})
	count := 0
	err = truncated.DecodeAttributes(AttributeDecoderFunc(func(id uint8, n *Node) error {
		count++
		_, err := n.ReadU16()
		return err
	}))
	if !errors.Is(err, ErrInvalidNodePropertySize) || count != 1 {
		t.Errorf("DecodeAttributes on truncated value = %v after %d calls", err, count)
	}
}
