// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package merkle implements an array-backed binary hash tree with
// proof extraction and partial-root reconstruction.
//
// A tree over L leaves (L a power of two) is a single flat slice of
// 2L-1 hashes laid out bottom-up: positions [0, L) hold the leaf
// hashes in leaf order, the next L/2 positions hold their parents,
// and so on, level by level, ending with the root as the final
// element. For four leaves:
//
//	index:  0  1  2  3  4  5  6
//	level:  leaves....  parents  root
//	        a  b  c  d  ab cd   abcd
//
// Navigation is pure index arithmetic over that slice. The sibling of
// node i is i+1 when i is even and i-1 when i is odd. The parent of
// node i in a slice of length n sits at n - (n-i-1 + i%2)/2. Both
// proof extraction and reconstruction walk the same formulas, which
// is what makes a proof produced here verifiable by a party holding
// nothing but the root.
//
// Leaf counts that are not powers of two are handled by policy:
// Strict rejects them, Padded extends the leaf level with filler
// hashes (the zero hash) up to the next power of two. Padding keeps
// every level's width even, so the index formulas never see a level
// with an unpaired node.
//
// Hashing is delegated to a digest.Digester, so the same tree code
// serves every digest kind. An interior node is always the digest of
// the 64-byte concatenation of its two children.
package merkle
