package pack

import (
	"bytes"
	"fmt"

	"github.com/fenilsonani/mediagit/internal/oid"
)

// Index is a parsed pack index: Oid to byte offset within the matching
// pack file.
type Index struct {
	offsets map[oid.Oid]uint64
}

// ParseIndex decodes an index byte stream produced by Writer.Finalize.
func ParseIndex(data []byte) (*Index, error) {
	magic, rest, err := readExact(data, len(idxMagic))
	if err != nil {
		return nil, fmt.Errorf("pack: read index magic: %w", err)
	}
	if string(magic) != idxMagic {
		return nil, fmt.Errorf("%w: index", ErrBadMagic)
	}
	if _, rest, err = readUint32(rest); err != nil { // version, not yet branched on
		return nil, fmt.Errorf("pack: read index version: %w", err)
	}
	count, rest, err := readUint32(rest)
	if err != nil {
		return nil, fmt.Errorf("pack: read index count: %w", err)
	}

	offsets := make(map[oid.Oid]uint64, count)
	for i := uint32(0); i < count; i++ {
		var id oid.Oid
		var off uint64
		id, rest, err = readOid(rest)
		if err != nil {
			return nil, fmt.Errorf("pack: read index entry %d oid: %w", i, err)
		}
		off, rest, err = readUint64(rest)
		if err != nil {
			return nil, fmt.Errorf("pack: read index entry %d offset: %w", i, err)
		}
		offsets[id] = off
	}
	return &Index{offsets: offsets}, nil
}

// Lookup reports the byte offset of id within the pack this index
// describes, if present.
func (ix *Index) Lookup(id oid.Oid) (uint64, bool) {
	off, ok := ix.offsets[id]
	return off, ok
}

// Oids returns every Oid this index knows about, in no particular order.
func (ix *Index) Oids() []oid.Oid {
	out := make([]oid.Oid, 0, len(ix.offsets))
	for id := range ix.offsets {
		out = append(out, id)
	}
	return out
}

// Reader decodes entries out of a pack file given its parsed index.
type Reader struct {
	data []byte
}

// NewReader wraps a decoded pack byte stream, validating its header.
func NewReader(data []byte) (*Reader, error) {
	magic, rest, err := readExact(data, len(packMagic))
	if err != nil {
		return nil, fmt.Errorf("pack: read pack magic: %w", err)
	}
	if string(magic) != packMagic {
		return nil, fmt.Errorf("%w: pack", ErrBadMagic)
	}
	if _, _, err = readUint32(rest); err != nil { // version, not yet branched on
		return nil, fmt.Errorf("pack: read pack version: %w", err)
	}
	return &Reader{data: data}, nil
}

// EntryAt decodes the entry starting at byte offset off (as reported by
// an Index).
func (r *Reader) EntryAt(off uint64) (Entry, error) {
	if off >= uint64(len(r.data)) {
		return Entry{}, ErrTruncated
	}
	rest := r.data[off:]

	kindByte, rest, err := readExact(rest, 1)
	if err != nil {
		return Entry{}, fmt.Errorf("pack: read entry kind: %w", err)
	}
	kind, err := entryKind(kindByte[0])
	if err != nil {
		return Entry{}, err
	}

	var id oid.Oid
	id, rest, err = readOid(rest)
	if err != nil {
		return Entry{}, fmt.Errorf("pack: read entry oid: %w", err)
	}

	var base oid.Oid
	if kind == KindDelta {
		base, rest, err = readOid(rest)
		if err != nil {
			return Entry{}, fmt.Errorf("pack: read entry base oid: %w", err)
		}
	}

	plen, rest, err := readUint32(rest)
	if err != nil {
		return Entry{}, fmt.Errorf("pack: read entry payload length: %w", err)
	}
	payload, _, err := readExact(rest, int(plen))
	if err != nil {
		return Entry{}, fmt.Errorf("pack: read entry payload: %w", err)
	}

	return Entry{Oid: id, Kind: kind, BaseOid: base, Payload: bytes.Clone(payload)}, nil
}

// All decodes every entry in the pack, in storage order. Used by repack
// verification and tests; random lookups should go through an Index
// instead.
func (r *Reader) All() ([]Entry, error) {
	var entries []Entry
	off := uint64(len(packMagic) + 8) // magic + version + count
	for off < uint64(len(r.data)) {
		e, err := r.EntryAt(off)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		off += entrySize(e)
	}
	return entries, nil
}

func entrySize(e Entry) uint64 {
	size := uint64(1 + oid.Size + 4 + len(e.Payload))
	if e.Kind == KindDelta {
		size += oid.Size
	}
	return size
}
