// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bureau-foundation/courier/lib/chunk"
	"github.com/bureau-foundation/courier/lib/content"
	"github.com/bureau-foundation/courier/lib/digest"
)

// addFile builds a file over data and adds it to the catalog.
func addFile(t *testing.T, c *Catalog, data []byte) (*content.File, string) {
	t.Helper()
	d, err := digest.New(digest.SHA256)
	if err != nil {
		t.Fatal(err)
	}
	file, err := content.New(d, data)
	if err != nil {
		t.Fatalf("content.New: %v", err)
	}
	return file, c.Add(file)
}

// patternedBytes builds n bytes seeded so different seeds give
// different content.
func patternedBytes(n int, seed byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = seed + byte(i)
	}
	return data
}

func TestAddKeysBySelfAddress(t *testing.T) {
	c := New()
	file, key := addFile(t, c, patternedBytes(3*chunk.Size, 1))

	if key != file.Root().String() {
		t.Errorf("Add returned key %s, want the root hex %s", key, file.Root())
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	piece, err := c.Piece(key, 0)
	if err != nil {
		t.Fatalf("Piece: %v", err)
	}
	if len(piece.Content) != chunk.Size {
		t.Errorf("piece is %d bytes, want %d", len(piece.Content), chunk.Size)
	}
}

func TestAddIdenticalContentIsIdempotent(t *testing.T) {
	c := New()
	data := patternedBytes(2*chunk.Size, 9)

	_, firstKey := addFile(t, c, data)
	_, secondKey := addFile(t, c, data)

	if firstKey != secondKey {
		t.Errorf("identical content produced keys %s and %s", firstKey, secondKey)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d after adding identical content twice, want 1", c.Len())
	}
}

func TestListDescribesEveryFile(t *testing.T) {
	c := New()
	sizes := []int{1, chunk.Size, 5*chunk.Size + 100}
	wantPieces := map[int64]int{1: 1, chunk.Size: 1, 5*chunk.Size + 100: 6}

	for i, size := range sizes {
		addFile(t, c, patternedBytes(size, byte(10*i+1)))
	}

	infos := c.List()
	if len(infos) != len(sizes) {
		t.Fatalf("List() has %d entries, want %d", len(infos), len(sizes))
	}

	for _, info := range infos {
		if info.Digest != digest.SHA256 {
			t.Errorf("entry %s reports digest %s, want sha256", info.Hash, info.Digest)
		}
		if want := wantPieces[info.Bytes]; info.Pieces != want {
			t.Errorf("entry with %d bytes reports %d pieces, want %d", info.Bytes, info.Pieces, want)
		}
	}

	// Listing is sorted by hash for stable output.
	for i := 1; i < len(infos); i++ {
		if infos[i-1].Hash.String() >= infos[i].Hash.String() {
			t.Error("List() is not sorted by hash")
		}
	}
}

func TestListEmptyCatalog(t *testing.T) {
	c := New()
	if infos := c.List(); len(infos) != 0 {
		t.Errorf("empty catalog lists %d entries", len(infos))
	}
}

func TestPieceUnknownHash(t *testing.T) {
	c := New()
	addFile(t, c, patternedBytes(chunk.Size, 1))

	unknown := digest.Hash{0xFF}.String()
	if _, err := c.Piece(unknown, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Piece(unknown) = %v, want ErrNotFound", err)
	}
	// A malformed key is just as absent as a well-formed unknown one.
	if _, err := c.Piece("not-a-hash", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Piece(malformed) = %v, want ErrNotFound", err)
	}
}

func TestPieceIndexOutOfRange(t *testing.T) {
	c := New()
	file, key := addFile(t, c, patternedBytes(3*chunk.Size, 3))

	for _, index := range []int{-1, file.ChunkCount(), file.ChunkCount() + 5} {
		if _, err := c.Piece(key, index); !errors.Is(err, ErrNotFound) {
			t.Errorf("Piece(%d) = %v, want ErrNotFound", index, err)
		}
	}
}

func TestPieceRoundTripsThroughVerification(t *testing.T) {
	c := New()
	data := patternedBytes(4*chunk.Size+17, 5)
	file, key := addFile(t, c, data)

	d, err := digest.New(digest.SHA256)
	if err != nil {
		t.Fatal(err)
	}

	var rebuilt []byte
	for i := 0; i < file.ChunkCount(); i++ {
		piece, err := c.Piece(key, i)
		if err != nil {
			t.Fatalf("Piece(%d): %v", i, err)
		}

		root, err := content.RootFromPiece(d, piece.Content, i, file.ChunkCount(), piece.Proof)
		if err != nil {
			t.Fatalf("RootFromPiece(%d): %v", i, err)
		}
		if root != file.Root() {
			t.Errorf("piece %d failed verification against the catalog key", i)
		}
		rebuilt = append(rebuilt, piece.Content...)
	}

	if !bytes.Equal(rebuilt, data) {
		t.Error("pieces do not reassemble into the original content")
	}
}

func TestConcurrentReads(t *testing.T) {
	// The documented sharing contract: unlimited concurrent readers
	// once population is done. Run under -race this would catch any
	// hidden mutation in the read paths.
	c := New()
	file, key := addFile(t, c, patternedBytes(8*chunk.Size, 2))

	done := make(chan struct{})
	for reader := 0; reader < 8; reader++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 50; i++ {
				if _, err := c.Piece(key, i%file.ChunkCount()); err != nil {
					t.Errorf("Piece: %v", err)
					return
				}
				if len(c.List()) != 1 {
					t.Error("List changed size during concurrent reads")
					return
				}
			}
		}()
	}
	for reader := 0; reader < 8; reader++ {
		<-done
	}
}

func BenchmarkPiece(b *testing.B) {
	c := New()
	d, err := digest.New(digest.SHA256)
	if err != nil {
		b.Fatal(err)
	}
	file, err := content.New(d, patternedBytes(256*chunk.Size, 1))
	if err != nil {
		b.Fatal(err)
	}
	key := c.Add(file)

	b.ReportAllocs()
	for b.Loop() {
		if _, err := c.Piece(key, 128); err != nil {
			b.Fatal(err)
		}
	}
}
