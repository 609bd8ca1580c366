// Package pack implements MediaGit's pack format: many objects bundled
// into one file, with an optional intra-pack delta referencing another
// object in the same pack, plus a sidecar index mapping Oid to offset.
//
// Grounded on the teacher's internal/pack/hyperpack.go for the overall
// "header, sequence of entries, trailing index" shape (stripped of its
// non-functional GPU/bloom-filter/perfect-hash dressing, which never did
// real work) and on the entry-kind framing idiom of
// other_examples/c44184dc_go-git-go-git__formats-packfile-decoder.go.go
// (full object vs. delta-against-a-prior-object entries, read
// sequentially and remembered by offset for later delta resolution).
package pack

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fenilsonani/mediagit/internal/oid"
)

// packMagic identifies a MediaGit pack file; idxMagic its sidecar index.
const (
	packMagic   = "MGPK"
	idxMagic    = "MGIX"
	formatMajor = 1
)

// Kind distinguishes a pack entry's payload shape.
type Kind uint8

const (
	// KindFull stores a compressed whole object.
	KindFull Kind = 1
	// KindDelta stores a delta payload (internal/delta's wire format)
	// against BaseOid, which must also be reachable (in this pack, in
	// an earlier pack, or still loose) at read time.
	KindDelta Kind = 2
)

// ErrUnknownEntryKind is returned when a pack entry's kind byte doesn't
// match any known Kind.
var ErrUnknownEntryKind = errors.New("pack: unknown entry kind")

// ErrBadMagic is returned when a pack or index file's header doesn't
// match the expected magic bytes.
var ErrBadMagic = errors.New("pack: bad magic")

// ErrTruncated is returned when a pack or index file ends before a
// length-prefixed field's declared length is satisfied.
var ErrTruncated = errors.New("pack: truncated")

// Entry is one object's record inside a pack file.
type Entry struct {
	Oid     oid.Oid
	Kind    Kind
	BaseOid oid.Oid // only meaningful when Kind == KindDelta
	Payload []byte  // compressed bytes (KindFull) or delta.EncodePayload output (KindDelta)
}

func readExact(data []byte, n int) ([]byte, []byte, error) {
	if len(data) < n {
		return nil, nil, ErrTruncated
	}
	return data[:n], data[n:], nil
}

func readUint32(data []byte) (uint32, []byte, error) {
	b, rest, err := readExact(data, 4)
	if err != nil {
		return 0, nil, err
	}
	return binary.LittleEndian.Uint32(b), rest, nil
}

func readUint64(data []byte) (uint64, []byte, error) {
	b, rest, err := readExact(data, 8)
	if err != nil {
		return 0, nil, err
	}
	return binary.LittleEndian.Uint64(b), rest, nil
}

func readOid(data []byte) (oid.Oid, []byte, error) {
	b, rest, err := readExact(data, oid.Size)
	if err != nil {
		return oid.Oid{}, nil, err
	}
	var id oid.Oid
	copy(id[:], b)
	return id, rest, nil
}

func writeOid(buf []byte, id oid.Oid) []byte {
	return append(buf, id[:]...)
}

func writeUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func writeUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func entryKind(b byte) (Kind, error) {
	switch Kind(b) {
	case KindFull, KindDelta:
		return Kind(b), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownEntryKind, b)
	}
}
