// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunk splits file data into fixed-size pieces. Every chunk
// except the last is exactly Size bytes; the last carries whatever
// remains, between 1 and Size bytes. A chunk knows its position in
// the file, which doubles as its leaf position in the Merkle tree
// built over the file.
//
// Chunking is defined by content alone: ChunkAll over a loaded
// buffer and ReadAll over a stream produce identical chunk
// boundaries for identical bytes.
package chunk

import (
	"errors"
	"fmt"
	"io"
)

// Size is the fixed chunk length in bytes. It is a protocol constant:
// leaf hashes are computed over zero-padded Size-byte blocks, so
// changing it invalidates every recorded tree and every proof.
const Size = 1024

// Chunk is one fixed-size piece of a file.
type Chunk struct {
	// Data is the chunk's raw bytes: exactly Size for every chunk
	// except the final one, which holds between 1 and Size bytes.
	// This is a slice into the original input, not a copy. It stays
	// valid only while the input buffer is unmodified.
	Data []byte

	// LeafIndex is the chunk's position in the file, counted from
	// zero. It is also the chunk's index in the leaf level of the
	// tree, so a piece request for index i always means byte range
	// [i*Size, (i+1)*Size) of the file.
	LeafIndex int
}

// Chunker iterates over the chunks of an in-memory byte slice. Create
// one with [NewChunker] and call [Chunker.Next] repeatedly.
type Chunker struct {
	data     []byte
	position int
	index    int
}

// NewChunker creates a chunker over the given data. The data slice is
// not copied. The caller must not modify it while iterating.
func NewChunker(data []byte) *Chunker {
	return &Chunker{data: data}
}

// Next returns the next chunk, or nil when all input has been
// consumed.
func (c *Chunker) Next() *Chunk {
	if c.position >= len(c.data) {
		return nil
	}

	end := min(c.position+Size, len(c.data))
	chunk := &Chunk{
		Data:      c.data[c.position:end],
		LeafIndex: c.index,
	}

	c.position = end
	c.index++
	return chunk
}

// ChunkAll chunks the entire input and returns all chunks. Empty
// input yields nil: a zero-byte file has no chunks.
func ChunkAll(data []byte) []Chunk {
	chunker := NewChunker(data)
	var chunks []Chunk

	for {
		chunk := chunker.Next()
		if chunk == nil {
			break
		}
		chunks = append(chunks, *chunk)
	}

	return chunks
}

// ReadAll chunks a stream without loading it whole. Each chunk gets
// its own buffer, so the chunks stay valid after the reader is gone.
// Empty input yields nil, matching ChunkAll.
func ReadAll(r io.Reader) ([]Chunk, error) {
	var chunks []Chunk

	for index := 0; ; index++ {
		buffer := make([]byte, Size)
		n, err := io.ReadFull(r, buffer)
		if errors.Is(err, io.EOF) {
			// Clean end on a chunk boundary: no partial chunk.
			return chunks, nil
		}
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("reading chunk %d: %w", index, err)
		}

		chunks = append(chunks, Chunk{Data: buffer[:n], LeafIndex: index})

		if errors.Is(err, io.ErrUnexpectedEOF) {
			// A short read from ReadFull means end of input; the
			// tail becomes the final, shorter chunk.
			return chunks, nil
		}
	}
}
