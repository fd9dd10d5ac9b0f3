// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest provides the hash primitive shared by chunking, the
// Merkle tree, and the catalog: a fixed 32-byte value plus a small
// family of interchangeable digest functions selected by name.
//
// Every digest function produces the same Hash type, so trees built
// with different functions are structurally identical and the rest of
// the system never branches on the function in use. A file records
// which Kind produced its hashes; a downloader feeds that Kind to New
// and verifies pieces with the same function the publisher used.
package digest

import (
	"encoding/hex"
	"fmt"

	"github.com/bureau-foundation/courier/lib/codec"
)

// Hash is a 32-byte digest value.
//
// Encoding: JSON uses 64-character lowercase hex text (via
// encoding.TextMarshaler). CBOR uses a 32-byte binary string (via
// cbor.Marshaler), saving 33 bytes per hash compared to hex text.
type Hash [32]byte

// FillerHash is the hash assigned to synthetic padding leaves when a
// leaf level is extended to a power of two. It is the zero value, so
// an all-zero hash in a tree always marks padding, never content.
var FillerHash = Hash{}

// String returns the 64-character lowercase hex representation.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether the hash is the zero value (the filler).
func (h Hash) IsZero() bool { return h == Hash{} }

// MarshalText implements encoding.TextMarshaler. Returns a
// 64-character lowercase hex string.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Parses a
// 64-character hex string. Unlike some identifier types, an empty
// input is an error: a hash field that decodes to the filler value by
// accident would corrupt verification downstream.
func (h *Hash) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// MarshalCBOR implements cbor.Marshaler. Encodes as a CBOR byte
// string (major type 2) containing the raw 32 bytes.
func (h Hash) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(h[:])
}

// UnmarshalCBOR implements cbor.Unmarshaler. Decodes a CBOR byte
// string into the 32-byte array.
func (h *Hash) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := codec.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid hash CBOR: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("invalid hash: expected 32 bytes, got %d", len(raw))
	}
	copy(h[:], raw)
	return nil
}

// Parse parses a 64-character lowercase hex hash string.
func Parse(s string) (Hash, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("parsing hash: %w", err)
	}
	if len(raw) != 32 {
		return Hash{}, fmt.Errorf("hash is %d bytes, want 32", len(raw))
	}
	var h Hash
	copy(h[:], raw)
	return h, nil
}

// Digester computes 32-byte digests over byte slices. Implementations
// are stateless and safe for concurrent use.
type Digester interface {
	// Digest hashes data.
	Digest(data []byte) Hash

	// Kind identifies the digest function.
	Kind() Kind
}

// New returns the digester for the given kind.
func New(kind Kind) (Digester, error) {
	switch kind {
	case SHA256:
		return sha256Digester{}, nil
	case BLAKE3:
		return blake3Digester{}, nil
	case BLAKE2B:
		return blake2bDigester{}, nil
	case Emoji:
		return emojiDigester{}, nil
	}
	return nil, fmt.Errorf("unknown digest kind %q", kind)
}
