package similarity

import (
	"bytes"
	"testing"

	"github.com/fenilsonani/mediagit/internal/compress"
	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexEvictsOldestOnCapacity(t *testing.T) {
	idx := NewIndex(2)
	idx.Insert(oid.FromBytes([]byte("a")), 10, compress.TypeText, []byte("aaaa"), false)
	idx.Insert(oid.FromBytes([]byte("b")), 10, compress.TypeText, []byte("bbbb"), false)
	require.Equal(t, 2, idx.Len())

	idx.Insert(oid.FromBytes([]byte("c")), 10, compress.TypeText, []byte("cccc"), false)
	assert.Equal(t, 2, idx.Len())

	_, found := idx.FindSimilar([]byte("aaaa"), 10, compress.TypeText, 0.5)
	assert.False(t, found, "oldest entry 'a' should have been evicted")
}

func TestFindSimilarIdenticalContentScoresOne(t *testing.T) {
	idx := NewIndex(10)
	content := bytes.Repeat([]byte("identical payload content "), 100)
	idx.Insert(oid.FromBytes(content), uint64(len(content)), compress.TypeText, content, false)

	entry, found := idx.FindSimilar(content, uint64(len(content)), compress.TypeText, 0.5)
	require.True(t, found)
	assert.InDelta(t, 1.0, entry.Score, 0.01)
}

func TestFindSimilarRejectsDeltaBases(t *testing.T) {
	idx := NewIndex(10)
	content := bytes.Repeat([]byte("x"), 2048)
	idx.Insert(oid.FromBytes(content), uint64(len(content)), compress.TypeText, content, true)

	_, found := idx.FindSimilar(content, uint64(len(content)), compress.TypeText, 0.5)
	assert.False(t, found, "a base that is itself a delta must be rejected")
}

func TestFindSimilarRejectsBelowThreshold(t *testing.T) {
	idx := NewIndex(10)
	base := bytes.Repeat([]byte{0x01}, 2048)
	target := bytes.Repeat([]byte{0x02}, 2048)
	idx.Insert(oid.FromBytes(base), uint64(len(base)), compress.TypeMp4, base, false)

	_, found := idx.FindSimilar(target, uint64(len(target)), compress.TypeMp4, 0.5)
	assert.False(t, found, "completely dissimilar content must not pass video's high threshold")
}

func TestFindSimilarRejectsSizeRatioMismatch(t *testing.T) {
	idx := NewIndex(10)
	small := bytes.Repeat([]byte("a"), 100)
	idx.Insert(oid.FromBytes(small), uint64(len(small)), compress.TypeText, small, false)

	large := bytes.Repeat([]byte("a"), 100*1000)
	_, found := idx.FindSimilar(large, uint64(len(large)), compress.TypeText, 0.5)
	assert.False(t, found, "a base wildly smaller than the target fails the size-ratio gate")
}

func TestTypeThresholdVariesByCategory(t *testing.T) {
	assert.Equal(t, 0.70, TypeThreshold(compress.TypeText))
	assert.Equal(t, 0.85, TypeThreshold(compress.TypeJpeg))
	assert.Equal(t, 0.90, TypeThreshold(compress.TypeWav))
	assert.Equal(t, 0.95, TypeThreshold(compress.TypeMp4))
	assert.Equal(t, 0.80, TypeThreshold(compress.TypeUnknown))
}

func TestSampleShorterThanSampleSizeCopiesAll(t *testing.T) {
	data := []byte("short")
	s := Sample(data)
	assert.Equal(t, data, s)
}

func TestSampleLongerThanSampleSizeIsBounded(t *testing.T) {
	data := bytes.Repeat([]byte("x"), sampleSize*4)
	s := Sample(data)
	assert.Len(t, s, sampleSize)
}
