package pack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/mediagit/internal/compress"
	"github.com/fenilsonani/mediagit/internal/oid"
)

func TestWriterReaderRoundTripFullEntries(t *testing.T) {
	w := NewWriter()

	dataA := []byte("first packed object content")
	idA := oid.FromBytes(dataA)
	compressedA, err := compress.CompressForType(dataA, compress.TypeUnknown)
	require.NoError(t, err)
	w.Add(Entry{Oid: idA, Kind: KindFull, Payload: compressedA})

	dataB := []byte("second, unrelated packed object")
	idB := oid.FromBytes(dataB)
	compressedB, err := compress.CompressForType(dataB, compress.TypeUnknown)
	require.NoError(t, err)
	w.Add(Entry{Oid: idB, Kind: KindFull, Payload: compressedB})

	packData, idxData, err := w.Finalize()
	require.NoError(t, err)

	idx, err := ParseIndex(idxData)
	require.NoError(t, err)
	r, err := NewReader(packData)
	require.NoError(t, err)

	offA, ok := idx.Lookup(idA)
	require.True(t, ok)
	entryA, err := r.EntryAt(offA)
	require.NoError(t, err)
	assert.Equal(t, KindFull, entryA.Kind)
	gotA, err := compress.Decompress(entryA.Payload)
	require.NoError(t, err)
	assert.Equal(t, dataA, gotA)

	offB, ok := idx.Lookup(idB)
	require.True(t, ok)
	entryB, err := r.EntryAt(offB)
	require.NoError(t, err)
	gotB, err := compress.Decompress(entryB.Payload)
	require.NoError(t, err)
	assert.Equal(t, dataB, gotB)
}

func TestWriterReaderRoundTripDeltaEntry(t *testing.T) {
	w := NewWriter()

	base := []byte("base object content shared across both entries")
	baseID := oid.FromBytes(base)
	compressedBase, err := compress.CompressForType(base, compress.TypeUnknown)
	require.NoError(t, err)
	w.Add(Entry{Oid: baseID, Kind: KindFull, Payload: compressedBase})

	deltaID := oid.FromBytes([]byte("synthetic delta target id"))
	deltaPayload := []byte("opaque delta.EncodePayload bytes")
	w.Add(Entry{Oid: deltaID, Kind: KindDelta, BaseOid: baseID, Payload: deltaPayload})

	packData, idxData, err := w.Finalize()
	require.NoError(t, err)

	idx, err := ParseIndex(idxData)
	require.NoError(t, err)
	r, err := NewReader(packData)
	require.NoError(t, err)

	off, ok := idx.Lookup(deltaID)
	require.True(t, ok)
	entry, err := r.EntryAt(off)
	require.NoError(t, err)
	assert.Equal(t, KindDelta, entry.Kind)
	assert.Equal(t, baseID, entry.BaseOid)
	assert.Equal(t, deltaPayload, entry.Payload)
}

func TestReaderAllDecodesEveryEntryInOrder(t *testing.T) {
	w := NewWriter()
	var ids []oid.Oid
	for _, s := range []string{"alpha", "beta", "gamma"} {
		data := []byte(s)
		id := oid.FromBytes(data)
		ids = append(ids, id)
		w.Add(Entry{Oid: id, Kind: KindFull, Payload: data})
	}

	packData, _, err := w.Finalize()
	require.NoError(t, err)

	r, err := NewReader(packData)
	require.NoError(t, err)
	entries, err := r.All()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, ids[i], e.Oid)
	}
}

func TestNewReaderRejectsBadMagic(t *testing.T) {
	_, err := NewReader([]byte("not a pack file at all"))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestParseIndexRejectsBadMagic(t *testing.T) {
	_, err := ParseIndex([]byte("not an index"))
	assert.ErrorIs(t, err, ErrBadMagic)
}
