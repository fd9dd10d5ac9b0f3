// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package merkle

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/bureau-foundation/courier/lib/digest"
)

// Policy controls how Build treats a leaf count that is not a power
// of two.
type Policy int

const (
	// Strict rejects leaf counts that are not powers of two.
	Strict Policy = iota

	// Padded extends the leaf level to the next power of two with
	// filler hashes. The padded leaves are digest.FillerHash, never
	// digests of synthetic content, so padding cannot be confused
	// with real leaves.
	Padded
)

// Errors returned by tree construction and navigation.
var (
	ErrLeafCount    = errors.New("merkle: leaf count is not a power of two")
	ErrInvalidIndex = errors.New("merkle: index is outside the tree")
	ErrProofLength  = errors.New("merkle: proof length does not match tree height")
)

// Proof is the ordered sequence of sibling hashes that lets a
// verifier recompute the root from a single leaf: one hash per level,
// bottom to top, root excluded.
type Proof []digest.Hash

// Tree is a flattened bottom-up binary hash tree. Construct one with
// Build or BuildFromLeafHashes; the zero value is not usable.
type Tree struct {
	nodes []digest.Hash
}

// Build digests each leaf with d and constructs the tree over the
// resulting hashes. Leaves are used as given; callers with a padding
// rule for short leaves apply it before building.
func Build[L ~string | ~[]byte](leaves []L, d digest.Digester, policy Policy) (*Tree, error) {
	hashes := make([]digest.Hash, len(leaves))
	for i, leaf := range leaves {
		hashes[i] = d.Digest([]byte(leaf))
	}
	return BuildFromLeafHashes(hashes, d, policy)
}

// BuildFromLeafHashes constructs the tree over precomputed leaf
// hashes: the leaf level first (padded under the Padded policy), then
// each parent level by digesting sibling pairs, until a single root
// remains. Zero leaves is an error under both policies.
func BuildFromLeafHashes(leafHashes []digest.Hash, d digest.Digester, policy Policy) (*Tree, error) {
	count := len(leafHashes)
	if count == 0 {
		return nil, fmt.Errorf("no leaves: %w", ErrLeafCount)
	}

	width := NextPowerOfTwo(count)
	if policy == Strict && width != count {
		return nil, fmt.Errorf("%d leaves: %w", count, ErrLeafCount)
	}

	nodes := make([]digest.Hash, 0, 2*width-1)
	nodes = append(nodes, leafHashes...)
	for i := count; i < width; i++ {
		nodes = append(nodes, digest.FillerHash)
	}

	var pair [64]byte
	levelStart := 0
	for ; width > 1; width /= 2 {
		for i := 0; i < width; i += 2 {
			copy(pair[:32], nodes[levelStart+i][:])
			copy(pair[32:], nodes[levelStart+i+1][:])
			nodes = append(nodes, d.Digest(pair[:]))
		}
		levelStart += width
	}

	return &Tree{nodes: nodes}, nil
}

// Nodes returns the flat node slice, leaves first, root last. The
// slice is the tree's backing storage; callers must not modify it.
func (t *Tree) Nodes() []digest.Hash { return t.nodes }

// Len returns the total node count, 2*LeafCount() - 1.
func (t *Tree) Len() int { return len(t.nodes) }

// LeafCount returns the width of the (possibly padded) leaf level.
func (t *Tree) LeafCount() int { return (len(t.nodes) + 1) / 2 }

// Height returns the number of levels, counting leaves and root.
func (t *Tree) Height() int { return treeHeight(t.LeafCount()) }

// Root returns the root hash.
func (t *Tree) Root() digest.Hash { return t.nodes[len(t.nodes)-1] }

// Sibling returns the hash and index of the node paired with idx at
// its level. The root has no sibling.
func (t *Tree) Sibling(idx int) (digest.Hash, int, error) {
	if idx < 0 || idx >= len(t.nodes) {
		return digest.Hash{}, 0, fmt.Errorf("node %d of %d: %w", idx, len(t.nodes), ErrInvalidIndex)
	}
	sibling := siblingIndex(idx)
	if sibling >= len(t.nodes) {
		return digest.Hash{}, 0, fmt.Errorf("node %d has no sibling: %w", idx, ErrInvalidIndex)
	}
	return t.nodes[sibling], sibling, nil
}

// Parent returns the hash and index of the node one level above idx.
// The root has no parent.
func (t *Tree) Parent(idx int) (digest.Hash, int, error) {
	if idx < 0 || idx >= len(t.nodes) {
		return digest.Hash{}, 0, fmt.Errorf("node %d of %d: %w", idx, len(t.nodes), ErrInvalidIndex)
	}
	parent := parentIndex(len(t.nodes), idx)
	if parent >= len(t.nodes) {
		return digest.Hash{}, 0, fmt.Errorf("node %d has no parent: %w", idx, ErrInvalidIndex)
	}
	return t.nodes[parent], parent, nil
}

// Proof returns the sibling hashes for the given leaf, one per level
// from the leaf up to but excluding the root: exactly Height()-1
// hashes. For a single-leaf tree the proof is empty.
func (t *Tree) Proof(leafIndex int) (Proof, error) {
	if leafIndex < 0 || leafIndex >= t.LeafCount() {
		return nil, fmt.Errorf("leaf %d of %d: %w", leafIndex, t.LeafCount(), ErrInvalidIndex)
	}

	proof := make(Proof, 0, t.Height()-1)
	for idx := leafIndex; idx != len(t.nodes)-1; idx = parentIndex(len(t.nodes), idx) {
		proof = append(proof, t.nodes[siblingIndex(idx)])
	}
	return proof, nil
}

// NextPowerOfTwo returns the smallest power of two greater than or
// equal to n, and 1 for n < 1.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// siblingIndex returns the position paired with idx at its level:
// idx+1 when idx is even, idx-1 when odd. Every level has even width
// (padding guarantees it), so the pair is always within the level.
func siblingIndex(idx int) int {
	if idx%2 == 0 {
		return idx + 1
	}
	return idx - 1
}

// parentIndex returns the parent position of idx in a flat bottom-up
// array of length n. For the root it yields n, one past the end.
func parentIndex(n, idx int) int {
	return n - (n-idx-1+idx%2)/2
}

// treeHeight returns the level count of a tree whose (power-of-two)
// leaf level is leafCount wide: log2(leafCount) + 1.
func treeHeight(leafCount int) int {
	return bits.Len(uint(leafCount))
}
