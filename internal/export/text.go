// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package export

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	otbm "github.com/suprsokr/go-otbm"
)

// textPreview is how many attribute bytes a text line shows.
const textPreview = 16

// TextEncoder writes one line per node, indented by depth:
//
//	0x00 attrs=6 0100020003ff
//	  0x02 compressed attrs=4 0a0b0c0d
type TextEncoder struct {
	w io.Writer
}

func NewTextEncoder(w io.Writer) *TextEncoder {
	return &TextEncoder{w: w}
}

func (e *TextEncoder) Encode(trees []*otbm.Tree) error {
	bw := bufio.NewWriter(e.w)
	for _, t := range trees {
		t.Walk(func(n *otbm.Tree, depth int) bool {
			writeTextLine(bw, n, depth)
			return true
		})
	}
	return bw.Flush()
}

func writeTextLine(w *bufio.Writer, n *otbm.Tree, depth int) {
	w.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(w, "0x%02X", n.Type)
	if n.Compressed {
		w.WriteString(" compressed")
	}
	fmt.Fprintf(w, " attrs=%d", len(n.Attributes))
	if len(n.Attributes) > 0 {
		w.WriteByte(' ')
		preview := n.Attributes
		if len(preview) > textPreview {
			preview = preview[:textPreview]
		}
		w.WriteString(hex.EncodeToString(preview))
		if len(n.Attributes) > textPreview {
			w.WriteString("...")
		}
	}
	w.WriteByte('\n')
}
