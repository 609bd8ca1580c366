package oid

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBytesDeterministic(t *testing.T) {
	a := FromBytes([]byte("duplicate content"))
	b := FromBytes([]byte("duplicate content"))
	assert.Equal(t, a, b)

	c := FromBytes([]byte("different content"))
	assert.NotEqual(t, a, c)
}

func TestFromBytesEmpty(t *testing.T) {
	o := FromBytes(nil)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", o.String())
}

func TestFromReaderMatchesFromBytes(t *testing.T) {
	data := []byte("hello, streaming world")
	want := FromBytes(data)

	got, err := FromReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStringRoundTrip(t *testing.T) {
	o := FromBytes([]byte("round trip me"))
	parsed, err := Parse(o.String())
	require.NoError(t, err)
	assert.Equal(t, o, parsed)
}

func TestParseInvalidLength(t *testing.T) {
	_, err := Parse("deadbeef")
	assert.Error(t, err)
}

func TestParseInvalidHex(t *testing.T) {
	bad := make([]byte, HexSize)
	for i := range bad {
		bad[i] = 'z'
	}
	_, err := Parse(string(bad))
	assert.Error(t, err)
}

func TestShort(t *testing.T) {
	o := FromBytes([]byte("short me"))
	assert.Len(t, o.Short(7), 7)
	assert.Equal(t, o.String(), o.Short(1000))
}

func TestIsZero(t *testing.T) {
	var z Oid
	assert.True(t, z.IsZero())
	assert.False(t, FromBytes([]byte("x")).IsZero())
}

func TestHasherIncremental(t *testing.T) {
	h := NewHasher()
	_, _ = h.Write([]byte("hello, "))
	_, _ = h.Write([]byte("streaming world"))
	assert.Equal(t, FromBytes([]byte("hello, streaming world")), h.Sum())
}
