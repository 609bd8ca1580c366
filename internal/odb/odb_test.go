package odb

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/mediagit/internal/objects"
	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/fenilsonani/mediagit/internal/storage"
)

func newTestOdb(t *testing.T) *Odb {
	t.Helper()
	backend, err := storage.NewLocal(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	o, err := New(backend, 128, zerolog.Nop())
	require.NoError(t, err)
	return o
}

func TestWriteReadRoundTrip(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()
	data := []byte("hello mediagit object database")

	id, err := o.Write(ctx, objects.KindBlob, data)
	require.NoError(t, err)

	got, err := o.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestWriteDedupDoesNotDoubleCountStoredBytes(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()
	data := []byte("repeated payload")

	id1, err := o.Write(ctx, objects.KindBlob, data)
	require.NoError(t, err)
	id2, err := o.Write(ctx, objects.KindBlob, data)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	counts := o.Metrics()
	assert.Equal(t, uint64(2), counts.TotalWrites)
	assert.Equal(t, uint64(1), counts.UniqueObjects)
	assert.Equal(t, uint64(len(data)), counts.BytesStored)
	assert.Equal(t, uint64(2*len(data)), counts.BytesWritten)
	assert.Less(t, counts.DedupRatio(), 1.0)
	assert.Greater(t, counts.DedupRatio(), 0.0)
}

func TestExistsChecksCacheLooseAndManifestKeys(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()

	missing, err := o.Exists(ctx, oid.FromBytes([]byte("never written")))
	require.NoError(t, err)
	assert.False(t, missing)

	data := []byte("present object")
	id, err := o.Write(ctx, objects.KindBlob, data)
	require.NoError(t, err)

	exists, err := o.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWriteChunkedReconstructsExactBytes(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()
	data := bytes.Repeat([]byte("mediagit-chunk-payload-"), 1<<16) // well above 1 MiB

	id, err := o.WriteChunked(ctx, objects.KindBlob, data, "movie.mp4")
	require.NoError(t, err)

	got, err := o.Read(ctx, id)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))

	exists, err := o.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWriteChunkedSmallInputFallsBackToLoose(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()
	data := []byte("tiny file, should not be chunked")

	id, err := o.WriteChunked(ctx, objects.KindBlob, data, "notes.txt")
	require.NoError(t, err)

	got, err := o.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestWriteChunkedParallelMatchesSequentialReconstruction(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()
	data := bytes.Repeat([]byte("parallel-chunk-content-"), 1<<16)

	id, err := o.WriteChunkedParallel(ctx, objects.KindBlob, data, "video.mov")
	require.NoError(t, err)

	got, err := o.Read(ctx, id)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestWriteChunkedFromFileStreamsAndReconstructs(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()
	data := bytes.Repeat([]byte("from-file-content-"), 1<<16)

	path := filepath.Join(t.TempDir(), "input.wav")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	id, err := o.WriteChunkedFromFile(ctx, objects.KindBlob, path, "input.wav")
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "output.wav")
	require.NoError(t, o.ReadToFile(ctx, id, outPath))

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestReadToFileNonChunkedObject(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()
	data := []byte("small object reconstructed whole")

	id, err := o.Write(ctx, objects.KindBlob, data)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, o.ReadToFile(ctx, id, path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestWriteWithDeltaEncodesSimilarContentAsDelta(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()

	base := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 250000) // ~11 MiB
	target := append([]byte{}, base...)
	// Perturb a small run in the middle, leaving most of the content identical
	// so the CDC chunker resynchronizes and most chunks still match.
	copy(target[len(target)/2:len(target)/2+200], bytes.Repeat([]byte("X"), 200))

	baseID, err := o.WriteWithDelta(ctx, objects.KindBlob, base, "a.txt")
	require.NoError(t, err)

	targetID, err := o.WriteWithDelta(ctx, objects.KindBlob, target, "b.txt")
	require.NoError(t, err)
	assert.NotEqual(t, baseID, targetID)

	exists, err := o.backend.Exists(ctx, deltaMetaKey(targetID))
	require.NoError(t, err)
	assert.True(t, exists, "expected target to be stored as a delta against base")

	got, err := o.Read(ctx, targetID)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(target, got))
}

func TestWriteWithDeltaFallsBackWhenNoSimilarBase(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()
	data := []byte("a completely unique first write with nothing to diff against")

	id, err := o.WriteWithDelta(ctx, objects.KindBlob, data, "unique.txt")
	require.NoError(t, err)

	exists, err := o.backend.Exists(ctx, deltaMetaKey(id))
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := o.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestVerifyDetectsGoodObject(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()
	data := []byte("verify me")

	id, err := o.Write(ctx, objects.KindBlob, data)
	require.NoError(t, err)

	ok, err := o.Verify(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetObjectSizeUsesCacheWhenAvailable(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()
	data := []byte("size me up")

	id, err := o.Write(ctx, objects.KindBlob, data)
	require.NoError(t, err)

	size, err := o.GetObjectSize(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(data)), size)
}

func TestRepackMovesLooseObjectsIntoAPackAndKeepsThemReadable(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()

	var ids []oid.Oid
	var payloads [][]byte
	for _, s := range []string{"repack payload one", "repack payload two", "repack payload three"} {
		data := []byte(s)
		id, err := o.Write(ctx, objects.KindBlob, data)
		require.NoError(t, err)
		ids = append(ids, id)
		payloads = append(payloads, data)
	}

	stats, err := o.Repack(ctx, 100, true)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ObjectsPacked)
	assert.Equal(t, 3, stats.LooseRemoved)

	for i, id := range ids {
		exists, err := o.backend.Exists(ctx, looseKey(id))
		require.NoError(t, err)
		assert.False(t, exists, "loose copy should have been removed")

		o.cache.Remove(id) // force resolution through the pack, not the buffer cache
		got, err := o.Read(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, payloads[i], got)
	}
}

func TestRepackWithoutRemoveLooseKeepsOriginals(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()
	data := []byte("kept loose after repack")
	id, err := o.Write(ctx, objects.KindBlob, data)
	require.NoError(t, err)

	stats, err := o.Repack(ctx, 100, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ObjectsPacked)
	assert.Equal(t, 0, stats.LooseRemoved)

	exists, err := o.backend.Exists(ctx, looseKey(id))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRepackWithNoLooseObjectsIsANoop(t *testing.T) {
	o := newTestOdb(t)
	stats, err := o.Repack(context.Background(), 100, true)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ObjectsPacked)
}

func TestRepackDeltaEncodesSimilarObjectsInTheSameBatch(t *testing.T) {
	o := newTestOdb(t)
	ctx := context.Background()

	base := bytes.Repeat([]byte("repack delta fixture payload, repeated for bulk "), 250000) // ~12 MiB
	target := append([]byte{}, base...)
	copy(target[len(target)/3:len(target)/3+200], bytes.Repeat([]byte("Z"), 200))

	baseID, err := o.Write(ctx, objects.KindBlob, base)
	require.NoError(t, err)
	targetID, err := o.Write(ctx, objects.KindBlob, target)
	require.NoError(t, err)

	stats, err := o.Repack(ctx, 100, true)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ObjectsPacked)
	assert.GreaterOrEqual(t, stats.ObjectsDelta, 1)

	o.cache.Remove(baseID)
	o.cache.Remove(targetID)

	gotBase, err := o.Read(ctx, baseID)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(base, gotBase))

	gotTarget, err := o.Read(ctx, targetID)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(target, gotTarget))
}
