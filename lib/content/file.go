// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package content binds a chunked file to the Merkle tree built over
// its chunks. A File is the unit of content addressing: its root hash
// identifies the content, and each chunk can be handed out together
// with a proof that ties it to that root.
//
// Leaf hashing has one wrinkle the tree engine does not know about:
// every leaf is hashed over a full chunk.Size-byte block, so a short
// final chunk is zero-padded before digesting. The stored chunk keeps
// its true length; only the hash input is padded. RootFromPiece
// applies the same padding, which is what lets a verifier holding a
// short final piece recompute the exact leaf hash the builder used.
package content

import (
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/courier/lib/chunk"
	"github.com/bureau-foundation/courier/lib/digest"
	"github.com/bureau-foundation/courier/lib/merkle"
)

// Errors returned by file construction and chunk access.
var (
	ErrEmpty      = errors.New("content: file has no data")
	ErrChunkRange = errors.New("content: chunk index is outside the file")
	ErrPieceSize  = errors.New("content: piece is larger than the chunk size")
)

// File is an immutable chunked file with its Merkle tree. Construct
// one with New or FromReader; a File that exists is fully built and
// safe for concurrent reads.
type File struct {
	chunks   []chunk.Chunk
	tree     *merkle.Tree
	digester digest.Digester
	length   int64
}

// New builds a File over in-memory data. The data slice is chunked
// without copying; the caller must not modify it for the File's
// lifetime. Zero-length data fails with ErrEmpty: absence of content
// has no meaningful root.
func New(d digest.Digester, data []byte) (*File, error) {
	return build(d, chunk.ChunkAll(data))
}

// FromReader builds a File by streaming chunks from r, so the whole
// content never has to sit in one contiguous buffer. Produces a File
// identical to New over the same bytes.
func FromReader(d digest.Digester, r io.Reader) (*File, error) {
	chunks, err := chunk.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	return build(d, chunks)
}

func build(d digest.Digester, chunks []chunk.Chunk) (*File, error) {
	if len(chunks) == 0 {
		return nil, ErrEmpty
	}

	var length int64
	leafHashes := make([]digest.Hash, len(chunks))
	var block [chunk.Size]byte
	for i, c := range chunks {
		length += int64(len(c.Data))
		if len(c.Data) == chunk.Size {
			leafHashes[i] = d.Digest(c.Data)
			continue
		}
		// Short final chunk: digest over the zero-padded block.
		n := copy(block[:], c.Data)
		clear(block[n:])
		leafHashes[i] = d.Digest(block[:])
	}

	tree, err := merkle.BuildFromLeafHashes(leafHashes, d, merkle.Padded)
	if err != nil {
		return nil, fmt.Errorf("content: building tree: %w", err)
	}

	return &File{
		chunks:   chunks,
		tree:     tree,
		digester: d,
		length:   length,
	}, nil
}

// Root returns the Merkle root identifying the file's content.
func (f *File) Root() digest.Hash { return f.tree.Root() }

// Kind returns the digest function the file was built with.
func (f *File) Kind() digest.Kind { return f.digester.Kind() }

// ContentLength returns the total content size in bytes.
func (f *File) ContentLength() int64 { return f.length }

// ChunkCount returns the number of real chunks, excluding tree
// padding.
func (f *File) ChunkCount() int { return len(f.chunks) }

// Chunk returns the chunk at index together with its proof. The
// index ranges over real chunks only; padding leaves are not
// addressable.
func (f *File) Chunk(index int) (chunk.Chunk, merkle.Proof, error) {
	if index < 0 || index >= len(f.chunks) {
		return chunk.Chunk{}, nil, fmt.Errorf("chunk %d of %d: %w", index, len(f.chunks), ErrChunkRange)
	}

	proof, err := f.tree.Proof(f.chunks[index].LeafIndex)
	if err != nil {
		return chunk.Chunk{}, nil, fmt.Errorf("content: proof for chunk %d: %w", index, err)
	}
	return f.chunks[index], proof, nil
}

// Tree returns the file's Merkle tree.
func (f *File) Tree() *merkle.Tree { return f.tree }

// RootFromPiece recomputes a file's root from one piece and its
// proof, for comparison against a root obtained out of band. The
// piece bytes are padded exactly as construction pads them, and
// chunkCount is the file's real chunk count (as reported in a
// catalog listing); the padded tree width is derived here.
func RootFromPiece(d digest.Digester, piece []byte, leafIndex, chunkCount int, proof merkle.Proof) (digest.Hash, error) {
	if len(piece) == 0 {
		return digest.Hash{}, ErrEmpty
	}
	if len(piece) > chunk.Size {
		return digest.Hash{}, fmt.Errorf("%d bytes: %w", len(piece), ErrPieceSize)
	}
	if leafIndex < 0 || leafIndex >= chunkCount {
		return digest.Hash{}, fmt.Errorf("piece %d of %d: %w", leafIndex, chunkCount, ErrChunkRange)
	}

	var block [chunk.Size]byte
	n := copy(block[:], piece)
	clear(block[n:])
	leafHash := d.Digest(block[:])

	return merkle.RootFromLeafHash(d, leafHash, leafIndex, merkle.NextPowerOfTwo(chunkCount), proof)
}
