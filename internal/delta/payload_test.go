package delta

import (
	"testing"

	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadRoundTrip(t *testing.T) {
	base := chunksOf(t, []byte("AAAABBBBCCCC"), 4, 4, 4)
	target := chunksOf(t, []byte("AAAAXXXXCCCC"), 4, 4, 4)

	d, err := Compute(oid.FromBytes([]byte("base")), oid.FromBytes([]byte("target")), base, target)
	require.NoError(t, err)

	insertData, err := ExtractInsertData([]byte("AAAAXXXXCCCC"), d)
	require.NoError(t, err)

	encoded, err := EncodePayload(d, insertData)
	require.NoError(t, err)

	decoded, decodedInsert, err := DecodePayload(encoded)
	require.NoError(t, err)
	assert.Equal(t, d.TotalSize, decoded.TotalSize)
	assert.Equal(t, d.Instructions, decoded.Instructions)
	assert.Equal(t, insertData, decodedInsert)
}
