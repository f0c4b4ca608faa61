// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

// AttributeDecoder interprets one attribute. It is called with the
// attribute ID already consumed and must read exactly the attribute's value
// from n.
type AttributeDecoder interface {
	DecodeAttribute(id uint8, n *Node) error
}

// AttributeEncoder appends zero or more ID+value pairs to the open node.
type AttributeEncoder interface {
	EncodeAttributes(w *Writer) error
}

// AttributeDecoderFunc adapts a function to AttributeDecoder.
type AttributeDecoderFunc func(id uint8, n *Node) error

// DecodeAttribute calls f(id, n).
func (f AttributeDecoderFunc) DecodeAttribute(id uint8, n *Node) error {
	return f(id, n)
}

// AttributeEncoderFunc adapts a function to AttributeEncoder.
type AttributeEncoderFunc func(w *Writer) error

// EncodeAttributes calls f(w).
func (f AttributeEncoderFunc) EncodeAttributes(w *Writer) error {
	return f(w)
}
