package objects

import (
	"testing"

	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildManifest() *ChunkManifest {
	return &ChunkManifest{
		TotalSize: 24,
		Filename:  "movie.mp4",
		Chunks: []ChunkRef{
			{ID: oid.FromBytes([]byte("chunk-1")), Offset: 0, Size: 8, ChunkType: ChunkMediaBoundary},
			{ID: oid.FromBytes([]byte("chunk-2")), Offset: 8, Size: 8, ChunkType: ChunkGeneric},
			{ID: oid.FromBytes([]byte("chunk-3")), Offset: 16, Size: 8, ChunkType: ChunkGeneric},
		},
	}
}

func TestManifestEncodeDecodeRoundTrip(t *testing.T) {
	m := buildManifest()
	data, err := EncodeManifest(m)
	require.NoError(t, err)

	decoded, err := DecodeManifest(data)
	require.NoError(t, err)

	assert.Equal(t, m.TotalSize, decoded.TotalSize)
	assert.Equal(t, m.Filename, decoded.Filename)
	require.Len(t, decoded.Chunks, 3)
	assert.Equal(t, m.Chunks, decoded.Chunks)
}

func TestManifestDecodeRejectsBadVersion(t *testing.T) {
	m := buildManifest()
	data, err := EncodeManifest(m)
	require.NoError(t, err)

	// corrupt the leading version field
	corrupt := append([]byte(nil), data...)
	corrupt[0] = 0xFF
	_, err = DecodeManifest(corrupt)
	assert.Error(t, err)
}

func TestManifestDecodeRejectsOversizedTotalSize(t *testing.T) {
	m := &ChunkManifest{TotalSize: 10}
	data, err := EncodeManifest(m)
	require.NoError(t, err)

	// Overwrite the total_size field (bytes 4..12) with a value above the
	// ceiling, simulating corruption.
	corrupt := append([]byte(nil), data...)
	for i := 4; i < 12; i++ {
		corrupt[i] = 0xFF
	}
	_, err = DecodeManifest(corrupt)
	assert.Error(t, err)
}

func TestManifestDecodeRejectsTruncatedInput(t *testing.T) {
	m := buildManifest()
	data, err := EncodeManifest(m)
	require.NoError(t, err)

	_, err = DecodeManifest(data[:len(data)-5])
	assert.Error(t, err)
}

func TestManifestKeyDerivesFromBlobOid(t *testing.T) {
	blobOid := oid.FromBytes([]byte("the reconstructed blob"))
	key := ManifestKey(blobOid)
	assert.Equal(t, "manifests/"+blobOid.String(), key)
}
