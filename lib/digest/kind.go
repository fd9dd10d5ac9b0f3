// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Kind names a digest function. It travels in file metadata so a
// downloader can verify pieces with the function the publisher used.
type Kind string

// Supported digest kinds.
const (
	SHA256  Kind = "sha256"
	BLAKE3  Kind = "blake3"
	BLAKE2B Kind = "blake2b"

	// Emoji is a one-emoji toy digest. It collides constantly and
	// exists for tests and demos where tree shape matters more than
	// collision resistance.
	Emoji Kind = "emoji"
)

// ParseKind validates a digest kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case SHA256, BLAKE3, BLAKE2B, Emoji:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown digest kind %q", s)
}

func (k Kind) String() string { return string(k) }

type sha256Digester struct{}

func (sha256Digester) Digest(data []byte) Hash { return sha256.Sum256(data) }
func (sha256Digester) Kind() Kind              { return SHA256 }

type blake3Digester struct{}

func (blake3Digester) Digest(data []byte) Hash { return blake3.Sum256(data) }
func (blake3Digester) Kind() Kind              { return BLAKE3 }

type blake2bDigester struct{}

func (blake2bDigester) Digest(data []byte) Hash { return blake2b.Sum256(data) }
func (blake2bDigester) Kind() Kind              { return BLAKE2B }

// The toy digest folds every byte into a single accumulator, wrapping
// at 8 bits with an interleaved reduction modulo emojiModulus, then
// maps the result onto a run of sequential emoji starting at U+1F442
// (EAR). The code point is stored big-endian in the first four bytes
// of the hash; the rest stay zero.
const (
	emojiBase    = 0x1F442
	emojiModulus = 181
)

type emojiDigester struct{}

func (emojiDigester) Digest(data []byte) Hash {
	var acc uint8
	for _, b := range data {
		acc = acc%emojiModulus + b
	}
	acc %= emojiModulus

	var h Hash
	binary.BigEndian.PutUint32(h[:4], emojiBase+uint32(acc))
	return h
}

func (emojiDigester) Kind() Kind { return Emoji }

// EmojiString renders the emoji encoded in a hash produced by the
// Emoji digester. The result is meaningless for other kinds.
func EmojiString(h Hash) string {
	return string(rune(binary.BigEndian.Uint32(h[:4])))
}
