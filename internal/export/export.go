// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package export renders decoded node trees for inspection.
package export

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	otbm "github.com/suprsokr/go-otbm"
)

// Formats lists the names accepted by New.
var Formats = []string{"text", "json", "yaml", "cbor"}

// Encoder writes a list of top-level trees.
type Encoder interface {
	Encode(trees []*otbm.Tree) error
}

// New returns the encoder for the named format.
func New(format string, w io.Writer) (Encoder, error) {
	switch format {
	case "text":
		return NewTextEncoder(w), nil
	case "json":
		return NewJSONEncoder(w), nil
	case "yaml":
		return NewYAMLEncoder(w), nil
	case "cbor":
		return NewCBOREncoder(w), nil
	default:
		return nil, fmt.Errorf("unknown format: %s (expected %s)", format, strings.Join(Formats, ", "))
	}
}

// Node is the document form of an otbm.Tree.
type Node struct {
	Type       uint8    `json:"type" yaml:"type" cbor:"type"`
	Compressed bool     `json:"compressed,omitempty" yaml:"compressed,omitempty" cbor:"compressed,omitempty"`
	Attributes HexBytes `json:"attributes,omitempty" yaml:"attributes,omitempty" cbor:"attributes,omitempty"`
	Children   []*Node  `json:"children,omitempty" yaml:"children,omitempty" cbor:"children,omitempty"`
}

// HexBytes renders as a hex string in text formats and as a byte string
// in CBOR.
type HexBytes []byte

// MarshalText implements encoding.TextMarshaler.
func (b HexBytes) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(b)))
	hex.Encode(out, b)
	return out, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *HexBytes) UnmarshalText(text []byte) error {
	out := make([]byte, hex.DecodedLen(len(text)))
	if _, err := hex.Decode(out, text); err != nil {
		return err
	}
	*b = out
	return nil
}

// FromTree converts t and its subtree.
func FromTree(t *otbm.Tree) *Node {
	n := &Node{
		Type:       t.Type,
		Compressed: t.Compressed,
		Attributes: HexBytes(t.Attributes),
	}
	for _, child := range t.Children {
		n.Children = append(n.Children, FromTree(child))
	}
	return n
}

// Tree converts n back to an otbm.Tree.
func (n *Node) Tree() *otbm.Tree {
	t := &otbm.Tree{
		Type:       n.Type,
		Compressed: n.Compressed,
		Attributes: []byte(n.Attributes),
	}
	for _, child := range n.Children {
		t.Children = append(t.Children, child.Tree())
	}
	return t
}

func fromTrees(trees []*otbm.Tree) []*Node {
	nodes := make([]*Node, 0, len(trees))
	for _, t := range trees {
		nodes = append(nodes, FromTree(t))
	}
	return nodes
}

// JSONEncoder writes indented JSON.
type JSONEncoder struct {
	w io.Writer
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

func (e *JSONEncoder) Encode(trees []*otbm.Tree) error {
	enc := json.NewEncoder(e.w)
	enc.SetIndent("", "  ")
	return enc.Encode(fromTrees(trees))
}

// YAMLEncoder writes a YAML sequence of nodes.
type YAMLEncoder struct {
	w io.Writer
}

func NewYAMLEncoder(w io.Writer) *YAMLEncoder {
	return &YAMLEncoder{w: w}
}

func (e *YAMLEncoder) Encode(trees []*otbm.Tree) error {
	enc := yaml.NewEncoder(e.w)
	enc.SetIndent(2)
	if err := enc.Encode(fromTrees(trees)); err != nil {
		return err
	}
	return enc.Close()
}

// cborMode uses Core Deterministic Encoding so equal trees produce equal
// bytes.
var cborMode cbor.EncMode

func init() {
	var err error
	cborMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("export: CBOR encoder initialization failed: " + err.Error())
	}
}

// CBOREncoder writes a single CBOR array of nodes.
type CBOREncoder struct {
	w io.Writer
}

func NewCBOREncoder(w io.Writer) *CBOREncoder {
	return &CBOREncoder{w: w}
}

func (e *CBOREncoder) Encode(trees []*otbm.Tree) error {
	return cborMode.NewEncoder(e.w).Encode(fromTrees(trees))
}

// DecodeCBOR reads what CBOREncoder wrote.
func DecodeCBOR(data []byte) ([]*otbm.Tree, error) {
	var nodes []*Node
	if err := cbor.Unmarshal(data, &nodes); err != nil {
		return nil, err
	}
	trees := make([]*otbm.Tree, 0, len(nodes))
	for _, n := range nodes {
		trees = append(trees, n.Tree())
	}
	return trees, nil
}
