// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

import (
	"math/rand"
	"testing"
)

// benchmarkMap builds a map-shaped tree: areas of tiles holding items.
func benchmarkMap(compress bool) []*Tree {
	rng := rand.New(rand.NewSource(42))
	top := &Tree{Type: 0x00, Attributes: []byte{0x01, 0x00, 0x00, 0x00}}
	for a := 0; a < 16; a++ {
		area := &Tree{Type: 0x04, Compressed: compress, Attributes: []byte{byte(a), 0x00, byte(a), 0x00, 0x07}}
		for t := 0; t < 64; t++ {
			tile := &Tree{Type: 0x05, Attributes: []byte{byte(t), byte(t >> 8)}}
			for i := 0; i < 3; i++ {
				tile.Children = append(tile.Children, &Tree{Type: 0x06, Attributes: randomAttributes(rng)})
			}
			area.Children = append(area.Children, tile)
		}
		top.Children = append(top.Children, area)
	}
	return []*Tree{top}
}

// BenchmarkWriteTree benchmarks encoding a map into memory
func BenchmarkWriteTree(b *testing.B) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "compressed"
		}
		b.Run(name, func(b *testing.B) {
			trees := benchmarkMap(compress)
			sink := NewMemorySink(1 << 20)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				sink.Reset()
				w := NewWriter(sink)
				for _, tree := range trees {
					WriteTree(w, tree)
				}
				if err := w.Finish(); err != nil {
					b.Fatal(err)
				}
			}
			b.SetBytes(int64(sink.Len()))
		})
	}
}

// BenchmarkReadTree benchmarks decoding a map from memory
func BenchmarkReadTree(b *testing.B) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "compressed"
		}
		b.Run(name, func(b *testing.B) {
			data := encodeTrees(b, benchmarkMap(compress))
			src := NewMemorySource(nil)
			b.SetBytes(int64(len(data)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				src.Assign(data)
				r := NewReader(src)
				if _, err := ReadTree(r); err != nil {
					b.Fatal(err)
				}
				r.Close()
			}
		})
	}
}
