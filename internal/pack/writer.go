package pack

// Writer accumulates entries and finalizes them into a pack file plus its
// sidecar index. It holds everything in memory; MediaGit's packs are
// built from already-compressed/delta-encoded payloads produced ahead of
// time by a repack run, not raw file content, so this is bounded by
// object count rather than object size.
type Writer struct {
	entries []Entry
}

// NewWriter returns an empty pack Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Add appends one entry. Order is preserved in the finalized pack.
func (w *Writer) Add(e Entry) {
	w.entries = append(w.entries, e)
}

// Len reports how many entries have been added so far.
func (w *Writer) Len() int {
	return len(w.entries)
}

// Finalize serializes the accumulated entries into a pack byte stream
// and its matching index byte stream (spec.md §4.8: "header, sequence of
// entries, and a trailing index (oid -> offset)" — the index is written
// to a separate sidecar rather than appended to the pack's own tail, so
// a reader can load it without scanning the (potentially much larger)
// pack body first).
func (w *Writer) Finalize() (packData, idxData []byte, err error) {
	pack := make([]byte, 0, 64+len(w.entries)*64)
	pack = append(pack, []byte(packMagic)...)
	pack = writeUint32(pack, formatMajor)
	pack = writeUint32(pack, uint32(len(w.entries)))

	offsets := make([]uint64, len(w.entries))
	for i, e := range w.entries {
		offsets[i] = uint64(len(pack))

		pack = append(pack, byte(e.Kind))
		pack = writeOid(pack, e.Oid)
		if e.Kind == KindDelta {
			pack = writeOid(pack, e.BaseOid)
		}
		pack = writeUint32(pack, uint32(len(e.Payload)))
		pack = append(pack, e.Payload...)
	}

	idx := make([]byte, 0, 16+len(w.entries)*(oidAndOffsetSize))
	idx = append(idx, []byte(idxMagic)...)
	idx = writeUint32(idx, formatMajor)
	idx = writeUint32(idx, uint32(len(w.entries)))
	for i, e := range w.entries {
		idx = writeOid(idx, e.Oid)
		idx = writeUint64(idx, offsets[i])
	}

	return pack, idx, nil
}

const oidAndOffsetSize = 32 + 8
