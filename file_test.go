// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package otbm

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleMap() []*Tree {
	return []*Tree{{
		Type:       0x00,
		Attributes: []byte{0x01, 0x00, 0x00, 0x00},
		Children: []*Tree{
			{Type: 0x02, Attributes: []byte{0x01, 'd', 'e', 's', 'c', 0xFE}},
			{
				Type:       0x04,
				Compressed: true,
				Attributes: []byte{0x00, 0x01, 0x00, 0x01, 0x07},
				Children: []*Tree{
					{Type: 0x05, Attributes: []byte{0x10, 0x20}},
					{Type: 0x05, Attributes: []byte{0xFF, 0xFD}},
				},
			},
		},
	}}
}

func writeMapFile(t *testing.T, path string, id Identifier, trees []*Tree) {
	t.Helper()
	w, err := CreateFile(path, id)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, tree := range trees {
		if err := WriteTree(w.Writer, tree); err != nil {
			t.Fatalf("write tree: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestCreateAndOpen(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "maps", "world.otbm")
	want := sampleMap()

	writeMapFile(t, path, IdentifierOTBM, want)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("OTBM\xFE")) {
		t.Errorf("file starts with % X", raw[:5])
	}
	if !bytes.Equal(raw[identifierSize:], encodeTrees(t, want)) {
		t.Errorf("disk body differs from memory encoding")
	}

	r, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if r.Identifier() != IdentifierOTBM {
		t.Errorf("Identifier() = %s", r.Identifier())
	}
	got, err := ReadTree(r.Reader)
	if err != nil {
		t.Fatalf("read tree: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tree mismatch after disk round trip")
	}

	// No temp files left behind
	leftovers, _ := filepath.Glob(filepath.Join(tmpDir, "maps", "otbm_*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left: %v", leftovers)
	}
}

func TestOpenIdentifiers(t *testing.T) {
	tmpDir := t.TempDir()
	custom := Identifier{'A', 'B', 'C', 'D'}

	tests := []struct {
		name string
		id   Identifier
		opts []ReaderOption
		want error
	}{
		{"otbm", IdentifierOTBM, nil, nil},
		{"wildcard", IdentifierWildcard, nil, nil},
		{"unknown", custom, nil, ErrSyntax},
		{"custom accepted", custom, []ReaderOption{WithIdentifiers(custom)}, nil},
		{"otbm rejected", IdentifierOTBM, []ReaderOption{WithIdentifiers(custom)}, ErrSyntax},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, test.name+".otbm")
			writeMapFile(t, path, test.id, sampleMap())

			r, err := OpenFile(path, test.opts...)
			if test.want != nil {
				if !errors.Is(err, test.want) {
					t.Fatalf("open error = %v, want %v", err, test.want)
				}
				return
			}
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer r.Close()
			if r.Identifier() != test.id {
				t.Errorf("Identifier() = %s, want %s", r.Identifier(), test.id)
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := OpenFile(filepath.Join(tmpDir, "missing.otbm")); !errors.Is(err, ErrFileOpen) {
		t.Errorf("missing file error = %v", err)
	}

	short := filepath.Join(tmpDir, "short.otbm")
	if err := os.WriteFile(short, []byte("OT"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := OpenFile(short); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("short file error = %v", err)
	}

	headerOnly := filepath.Join(tmpDir, "header.otbm")
	if err := os.WriteFile(headerOnly, []byte("OTBM"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r, err := OpenFile(headerOnly)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	if _, err := r.Root(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("Root() on empty body = %v", err)
	}
}

func TestCloseUnbalancedFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "broken.otbm")

	w, err := CreateFile(path, IdentifierOTBM)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w.AddNode(0x00, false)
	w.AddU8(1)

	if err := w.Close(); !errors.Is(err, ErrSyntax) {
		t.Fatalf("close error = %v, want ErrSyntax", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("destination created for an incomplete tree")
	}
	leftovers, _ := filepath.Glob(filepath.Join(tmpDir, "otbm_*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left: %v", leftovers)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second close = %v", err)
	}
}

func TestCreateReplacesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "world.otbm")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x55}, 1000), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	writeMapFile(t, path, IdentifierWildcard, []*Tree{{Type: 1}})

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []byte{0, 0, 0, 0, 0xFE, 0x01, 0x00, 0xFF}
	if !bytes.Equal(raw, want) {
		t.Errorf("file = % X, want % X", raw, want)
	}
}

func TestAbort(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "aborted.otbm")

	w, err := CreateFile(path, IdentifierOTBM)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w.AddNode(0, false)
	if err := w.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	entries, _ := os.ReadDir(tmpDir)
	if len(entries) != 0 {
		t.Errorf("directory not empty after abort: %d entries", len(entries))
	}
}

func TestIdentifierString(t *testing.T) {
	if got := IdentifierOTBM.String(); got != "OTBM" {
		t.Errorf("OTBM = %q", got)
	}
	if got := IdentifierWildcard.String(); got != "00000000" {
		t.Errorf("wildcard = %q", got)
	}
}

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		input   string
		want    Identifier
		wantErr bool
	}{
		{"OTBM", IdentifierOTBM, false},
		{"wildcard", IdentifierWildcard, false},
		{"00000000", IdentifierWildcard, false},
		{"4f54424d", IdentifierOTBM, false},
		{"OTB", Identifier{}, true},
		{"zzzzzzzz", Identifier{}, true},
	}

	for _, test := range tests {
		got, err := ParseIdentifier(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseIdentifier(%q) error = %v, wantErr %v", test.input, err, test.wantErr)
			continue
		}
		if !test.wantErr && got != test.want {
			t.Errorf("ParseIdentifier(%q) = %s, want %s", test.input, got, test.want)
		}
	}
}
