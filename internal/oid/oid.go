// Package oid implements the content identifier used throughout MediaGit:
// a 32-byte SHA-256 digest over uncompressed, pre-chunked object content.
package oid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Size is the length of an Oid in bytes.
const Size = sha256.Size

// HexSize is the length of an Oid's lowercase hex serialization.
const HexSize = Size * 2

// Oid is a 32-byte SHA-256 content identifier. The hash domain is the raw,
// uncompressed content only: unlike the teacher's git-compatible ObjectID,
// no "<type> <size>\0" header is mixed into the digest (spec 4.1).
type Oid [Size]byte

// Zero is the all-zero Oid, used as a sentinel for "no object".
var Zero Oid

// IsZero reports whether the Oid is all zero bytes.
func (o Oid) IsZero() bool {
	return o == Zero
}

// String returns the lowercase 64-character hex encoding of the Oid.
func (o Oid) String() string {
	return hex.EncodeToString(o[:])
}

// Short returns the first n hex characters of the Oid, for display.
func (o Oid) Short(n int) string {
	s := o.String()
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// Parse decodes a 64-character lowercase hex string into an Oid.
func Parse(hexStr string) (Oid, error) {
	var o Oid
	if len(hexStr) != HexSize {
		return o, fmt.Errorf("oid: invalid hex length: expected %d, got %d", HexSize, len(hexStr))
	}
	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return o, fmt.Errorf("oid: invalid hex string: %w", err)
	}
	copy(o[:], decoded)
	return o, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// constant literals, not for parsing untrusted input.
func MustParse(hexStr string) Oid {
	o, err := Parse(hexStr)
	if err != nil {
		panic(err)
	}
	return o
}

// FromBytes computes the Oid of a full in-memory buffer.
func FromBytes(data []byte) Oid {
	return Oid(sha256.Sum256(data))
}

// FromReader computes the Oid by streaming from r in constant memory,
// suitable for hashing files too large to hold in a single buffer.
func FromReader(r io.Reader) (Oid, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return Oid{}, fmt.Errorf("oid: failed to hash reader: %w", err)
	}
	var o Oid
	copy(o[:], h.Sum(nil))
	return o, nil
}

// Hasher wraps a running SHA-256 computation so callers can hash
// incrementally (e.g. chunk-by-chunk) before finalizing.
type Hasher struct {
	h interface {
		io.Writer
		Sum(b []byte) []byte
		Reset()
	}
}

// NewHasher returns a new incremental Oid hasher.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Write implements io.Writer.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum finalizes the hash and returns the resulting Oid without resetting
// the underlying state.
func (h *Hasher) Sum() Oid {
	var o Oid
	copy(o[:], h.h.Sum(nil))
	return o
}
