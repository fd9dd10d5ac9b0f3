// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog indexes files by their Merkle root. The catalog is
// the boundary the serving layer talks to: it lists available files
// and extracts pieces, and it defines the wire shapes for both.
//
// Files are keyed by the hex form of their own root hash, so a file
// is only ever reachable under its content address, and adding the
// same content twice lands on the same key. The catalog has no
// internal locking: populate it fully, then share it read-only. Piece
// and List are safe for any number of concurrent readers as long as
// no Add runs at the same time, which is how the daemon uses it
// (seed at startup, serve after).
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bureau-foundation/courier/lib/content"
	"github.com/bureau-foundation/courier/lib/digest"
	"github.com/bureau-foundation/courier/lib/merkle"
)

// ErrNotFound reports that a lookup matched nothing: an unknown root
// hash, or a piece index past the end of a known file. Callers can
// treat both identically; neither reveals anything about the
// catalog's contents.
var ErrNotFound = errors.New("catalog: not found")

// FileInfo is one catalog listing entry.
type FileInfo struct {
	// Hash is the file's Merkle root, its content address.
	Hash digest.Hash `json:"hash"`

	// Pieces is the number of real chunks, excluding tree padding.
	// Valid piece indices are [0, Pieces).
	Pieces int `json:"pieces"`

	// Bytes is the total content length. A downloader uses it to
	// pin down the exact length of the final piece: zero-padded
	// leaf hashing makes a trailing-zero-truncated final piece
	// digest-equal to the real one, so length is part of the
	// contract, not a nicety.
	Bytes int64 `json:"bytes"`

	// Digest names the digest function the file was built with, so
	// a verifier runs the same one.
	Digest digest.Kind `json:"digest"`
}

// Piece is the unit served to a requester: one chunk's bytes and the
// sibling hashes proving it belongs to the requested root.
type Piece struct {
	// Content is the chunk's raw bytes, at true (unpadded) length.
	Content []byte `json:"content"`

	// Proof holds one sibling hash per tree level, leaf to root,
	// root excluded.
	Proof merkle.Proof `json:"proof"`
}

// Catalog maps root-hash hex strings to files.
type Catalog struct {
	files map[string]*content.File
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{files: make(map[string]*content.File)}
}

// Add indexes a file under its own root hash and returns the hex key.
// Adding a file whose content is already present overwrites the
// existing entry under the same key.
func (c *Catalog) Add(file *content.File) string {
	key := file.Root().String()
	c.files[key] = file
	return key
}

// Len returns the number of indexed files.
func (c *Catalog) Len() int { return len(c.files) }

// List describes every indexed file, sorted by hash so output is
// stable across calls. The order carries no meaning.
func (c *Catalog) List() []FileInfo {
	infos := make([]FileInfo, 0, len(c.files))
	for _, file := range c.files {
		infos = append(infos, FileInfo{
			Hash:   file.Root(),
			Pieces: file.ChunkCount(),
			Bytes:  file.ContentLength(),
			Digest: file.Kind(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Hash.String() < infos[j].Hash.String()
	})
	return infos
}

// Piece extracts one piece of the file with the given root hash.
// An unknown hash and an out-of-range index both return ErrNotFound:
// from the requester's side there is no piece there either way.
func (c *Catalog) Piece(hashHex string, index int) (Piece, error) {
	file, ok := c.files[hashHex]
	if !ok {
		return Piece{}, fmt.Errorf("file %s: %w", hashHex, ErrNotFound)
	}

	chunk, proof, err := file.Chunk(index)
	if err != nil {
		if errors.Is(err, content.ErrChunkRange) || errors.Is(err, merkle.ErrInvalidIndex) {
			return Piece{}, fmt.Errorf("piece %d of %s: %w", index, hashHex, ErrNotFound)
		}
		return Piece{}, fmt.Errorf("piece %d of %s: %w", index, hashHex, err)
	}

	return Piece{Content: chunk.Data, Proof: proof}, nil
}
