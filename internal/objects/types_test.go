package objects

import (
	"testing"

	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/stretchr/testify/assert"
)

func TestSignatureString(t *testing.T) {
	sig := Signature{Name: "Grace Hopper", Email: "grace@example.com"}
	s := sig.String()
	assert.Contains(t, s, "Grace Hopper")
	assert.Contains(t, s, "<grace@example.com>")
}

func TestKindIsValid(t *testing.T) {
	assert.True(t, KindBlob.IsValid())
	assert.True(t, KindTree.IsValid())
	assert.True(t, KindCommit.IsValid())
	assert.True(t, KindTag.IsValid())
	assert.False(t, Kind("bogus").IsValid())
}

func TestChunkManifestValidateContiguous(t *testing.T) {
	m := &ChunkManifest{
		TotalSize: 30,
		Chunks: []ChunkRef{
			{ID: oid.FromBytes([]byte("c1")), Offset: 0, Size: 10},
			{ID: oid.FromBytes([]byte("c2")), Offset: 10, Size: 10},
			{ID: oid.FromBytes([]byte("c3")), Offset: 20, Size: 10},
		},
	}
	assert.NoError(t, m.Validate())
}

func TestChunkManifestValidateRejectsGap(t *testing.T) {
	m := &ChunkManifest{
		TotalSize: 30,
		Chunks: []ChunkRef{
			{ID: oid.FromBytes([]byte("c1")), Offset: 0, Size: 10},
			{ID: oid.FromBytes([]byte("c2")), Offset: 15, Size: 10}, // gap
		},
	}
	assert.Error(t, m.Validate())
}

func TestChunkManifestValidateRejectsOverlap(t *testing.T) {
	m := &ChunkManifest{
		TotalSize: 15,
		Chunks: []ChunkRef{
			{ID: oid.FromBytes([]byte("c1")), Offset: 0, Size: 10},
			{ID: oid.FromBytes([]byte("c2")), Offset: 5, Size: 10}, // overlap
		},
	}
	assert.Error(t, m.Validate())
}

func TestChunkManifestValidateRejectsSizeMismatch(t *testing.T) {
	m := &ChunkManifest{
		TotalSize: 100, // doesn't match sum of chunk sizes
		Chunks: []ChunkRef{
			{ID: oid.FromBytes([]byte("c1")), Offset: 0, Size: 10},
		},
	}
	assert.Error(t, m.Validate())
}

func TestChunkManifestValidateRejectsOverCeiling(t *testing.T) {
	m := &ChunkManifest{
		TotalSize: MaxObjectSize + 1,
	}
	assert.Error(t, m.Validate())
}

func TestChunkManifestValidateEmptyManifest(t *testing.T) {
	m := &ChunkManifest{TotalSize: 0}
	assert.NoError(t, m.Validate())
}
