// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package merkle

import (
	"fmt"

	"github.com/bureau-foundation/courier/lib/digest"
)

// RootFromLeafHash recomputes the root of a tree from a single leaf
// hash and its proof, without access to the tree itself. leafCount is
// the padded leaf-level width of the tree the proof came from and
// must be a power of two; the proof must hold exactly one hash per
// level below the root.
//
// The fold walks the same index arithmetic as construction: at each
// level the current node's parity decides whether it is the left or
// right half of the pair digest, and the node index advances to its
// parent position in the flat layout. The parent index is recomputed
// from the true node index at every level; a stale index from the
// previous level points at the wrong pair once the walk crosses a
// level boundary.
func RootFromLeafHash(d digest.Digester, leafHash digest.Hash, leafIndex, leafCount int, proof Proof) (digest.Hash, error) {
	if leafCount < 1 || NextPowerOfTwo(leafCount) != leafCount {
		return digest.Hash{}, fmt.Errorf("leaf count %d is not a power of two: %w", leafCount, ErrLeafCount)
	}
	if leafIndex < 0 || leafIndex >= leafCount {
		return digest.Hash{}, fmt.Errorf("leaf %d of %d: %w", leafIndex, leafCount, ErrInvalidIndex)
	}

	height := treeHeight(leafCount)
	if len(proof) != height-1 {
		return digest.Hash{}, fmt.Errorf("%d proof hashes for a tree of height %d: %w",
			len(proof), height, ErrProofLength)
	}

	n := 2*leafCount - 1
	idx := leafIndex
	current := leafHash

	var pair [64]byte
	for _, sibling := range proof {
		if idx%2 == 0 {
			copy(pair[:32], current[:])
			copy(pair[32:], sibling[:])
		} else {
			copy(pair[:32], sibling[:])
			copy(pair[32:], current[:])
		}
		current = d.Digest(pair[:])
		idx = parentIndex(n, idx)
	}

	return current, nil
}
