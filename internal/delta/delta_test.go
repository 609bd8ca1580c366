package delta

import (
	"bytes"
	"testing"

	"github.com/fenilsonani/mediagit/internal/chunk"
	"github.com/fenilsonani/mediagit/internal/compress"
	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunksOf(t *testing.T, data []byte, sizes ...int) []chunk.Chunk {
	t.Helper()
	var chunks []chunk.Chunk
	var offset uint64
	i := 0
	for len(data) > 0 {
		size := sizes[i%len(sizes)]
		if size > len(data) {
			size = len(data)
		}
		chunks = append(chunks, chunk.Chunk{Data: append([]byte(nil), data[:size]...), Offset: offset})
		data = data[size:]
		offset += uint64(size)
		i++
	}
	return chunks
}

func TestComputeRejectsSelfReference(t *testing.T) {
	id := oid.FromBytes([]byte("same"))
	_, err := Compute(id, id, nil, nil)
	assert.Error(t, err)
}

func TestComputeAndApplyRoundTrip(t *testing.T) {
	base := bytes.Repeat([]byte("ABCDEFGH"), 1000)
	target := append(append([]byte{}, base...), []byte("-appended-tail-bytes")...)

	baseChunks := chunksOf(t, base, 2000)
	targetChunks := chunksOf(t, target, 2000)

	baseOid := oid.FromBytes(base)
	targetOid := oid.FromBytes(target)

	d, err := Compute(baseOid, targetOid, baseChunks, targetChunks)
	require.NoError(t, err)
	assert.Equal(t, int64(len(target)), d.TotalSize)

	insertData, err := ExtractInsertData(target, d)
	require.NoError(t, err)

	reconstructed, err := Apply(bytes.NewReader(base), insertData, d)
	require.NoError(t, err)
	assert.Equal(t, target, reconstructed)
}

func TestComputeIdenticalContentIsAllCopy(t *testing.T) {
	data := bytes.Repeat([]byte("same content block "), 500)
	chunks := chunksOf(t, data, 1500)

	baseOid := oid.FromBytes(data)
	targetOid := oid.FromBytes(append(append([]byte{}, data...), 0x00))

	d, err := Compute(baseOid, targetOid, chunks, chunks)
	require.NoError(t, err)
	assert.Equal(t, int64(0), d.DeltaSize)
	assert.InDelta(t, 1.0, d.SavingsRatio, 0.0001)
	assert.True(t, d.IsBeneficial())
}

func TestComputeCompletelyDifferentContentIsAllInsert(t *testing.T) {
	base := bytes.Repeat([]byte{0x01}, 4000)
	target := bytes.Repeat([]byte{0x02}, 4000)

	baseChunks := chunksOf(t, base, 2000)
	targetChunks := chunksOf(t, target, 2000)

	d, err := Compute(oid.FromBytes(base), oid.FromBytes(target), baseChunks, targetChunks)
	require.NoError(t, err)
	assert.Equal(t, d.TotalSize, d.DeltaSize)
	assert.False(t, d.IsBeneficial())
}

func TestExtractInsertDataRejectsOutOfRangeInstruction(t *testing.T) {
	d := &Delta{
		Instructions: []Instruction{{Type: InstructionInsert, TargetOffset: 0, Length: 100}},
		TotalSize:    100,
	}
	_, err := ExtractInsertData([]byte("too short"), d)
	assert.Error(t, err)
}

func TestApplyRejectsExhaustedInsertData(t *testing.T) {
	d := &Delta{
		Instructions: []Instruction{{Type: InstructionInsert, TargetOffset: 0, Length: 10}},
		TotalSize:    10,
	}
	_, err := Apply(bytes.NewReader(nil), []byte("short"), d)
	assert.Error(t, err)
}

func TestIsBeneficialThreshold(t *testing.T) {
	beneficial := &Delta{TotalSize: 1000, DeltaSize: 799}
	assert.True(t, beneficial.IsBeneficial())

	notBeneficial := &Delta{TotalSize: 1000, DeltaSize: 800}
	assert.False(t, notBeneficial.IsBeneficial())

	empty := &Delta{TotalSize: 0, DeltaSize: 0}
	assert.False(t, empty.IsBeneficial())
}

func TestConfigForTypeVariesByCategory(t *testing.T) {
	img := ConfigForType(compress.TypeJpeg)
	assert.Equal(t, 0.85, img.SimilarityThreshold)
	assert.Equal(t, 5, img.MaxChainDepth)

	video := ConfigForType(compress.TypeMp4)
	assert.Equal(t, 0.95, video.SimilarityThreshold)
	assert.Equal(t, 3, video.MaxChainDepth)

	text := ConfigForType(compress.TypeText)
	assert.Equal(t, 0.70, text.SimilarityThreshold)
	assert.Equal(t, MaxChainDepth, text.MaxChainDepth)

	unknown := ConfigForType(compress.TypeUnknown)
	assert.Equal(t, DefaultSimilarityThreshold, unknown.SimilarityThreshold)
}

func TestMetadataFullAndDelta(t *testing.T) {
	base := oid.FromBytes([]byte("base"))
	full := FullMetadata(base, 1000)
	assert.False(t, full.IsDelta)
	assert.Equal(t, 0, full.ChainDepth)
	assert.False(t, full.IsAtMaxDepth())

	d := DeltaMetadata(base, full.ChainDepth, 1000, 200, 0.9)
	assert.True(t, d.IsDelta)
	assert.Equal(t, 1, d.ChainDepth)
	assert.InDelta(t, 0.8, d.SpaceSavings, 0.0001)
	assert.InDelta(t, 0.2, d.CompressionRatio(), 0.0001)
}

func TestMetadataIsAtMaxDepth(t *testing.T) {
	m := Metadata{ChainDepth: MaxChainDepth}
	assert.True(t, m.IsAtMaxDepth())
}

func TestChainTrackerFindBestBasePrefersShallowest(t *testing.T) {
	tr := NewChainTracker()
	shallow := oid.FromBytes([]byte("shallow"))
	deep := oid.FromBytes([]byte("deep"))
	tr.Register(shallow, Metadata{ChainDepth: 2})
	tr.Register(deep, Metadata{ChainDepth: 7})

	best, ok := tr.FindBestBase([]oid.Oid{deep, shallow}, MaxChainDepth)
	require.True(t, ok)
	assert.Equal(t, shallow, best)
}

func TestChainTrackerFindBestBaseRejectsAllAtMaxDepth(t *testing.T) {
	tr := NewChainTracker()
	maxed := oid.FromBytes([]byte("maxed"))
	tr.Register(maxed, Metadata{ChainDepth: MaxChainDepth})

	_, ok := tr.FindBestBase([]oid.Oid{maxed}, MaxChainDepth)
	assert.False(t, ok)
}

func TestChainTrackerGetChainWalksToRoot(t *testing.T) {
	tr := NewChainTracker()
	root := oid.FromBytes([]byte("root"))
	mid := oid.FromBytes([]byte("mid"))
	leaf := oid.FromBytes([]byte("leaf"))

	tr.Register(root, Metadata{ChainDepth: 0})
	tr.Register(mid, Metadata{ChainDepth: 1, BaseHash: root})
	tr.Register(leaf, Metadata{ChainDepth: 2, BaseHash: mid})

	chain, err := tr.GetChain(leaf)
	require.NoError(t, err)
	assert.Equal(t, []oid.Oid{leaf, mid, root}, chain)
}

func TestChainTrackerGetChainDetectsCycle(t *testing.T) {
	tr := NewChainTracker()
	a := oid.FromBytes([]byte("a"))
	b := oid.FromBytes([]byte("b"))
	tr.Register(a, Metadata{ChainDepth: 1, BaseHash: b})
	tr.Register(b, Metadata{ChainDepth: 1, BaseHash: a})

	_, err := tr.GetChain(a)
	assert.Error(t, err)
}

func TestChainTrackerGetChainRejectsSelfReference(t *testing.T) {
	tr := NewChainTracker()
	a := oid.FromBytes([]byte("self"))
	tr.Register(a, Metadata{ChainDepth: 1, BaseHash: a})

	_, err := tr.GetChain(a)
	assert.Error(t, err)
}

func TestChainTrackerGetChainMissingMetadata(t *testing.T) {
	tr := NewChainTracker()
	_, err := tr.GetChain(oid.FromBytes([]byte("unknown")))
	assert.Error(t, err)
}
