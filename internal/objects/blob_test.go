package objects

import (
	"testing"

	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/stretchr/testify/assert"
)

func TestBlobOidMatchesContentHash(t *testing.T) {
	content := []byte("large media payload")
	b := NewBlob(content)
	assert.Equal(t, oid.FromBytes(content), b.Oid())
	assert.Equal(t, len(content), b.Size())
	assert.Equal(t, content, b.Bytes())
}

func TestBlobOidIgnoresKindTag(t *testing.T) {
	// A blob's Oid must be identical regardless of how it's later
	// materialized (single loose object vs chunk manifest); it is purely a
	// function of the bytes, never of a type tag mixed into the hash.
	content := []byte("identical bytes either way")
	loose := NewBlob(content)
	chunked := NewBlob(append([]byte(nil), content...))
	assert.Equal(t, loose.Oid(), chunked.Oid())
}

func TestBlobEmptyContent(t *testing.T) {
	b := NewBlob(nil)
	assert.Equal(t, 0, b.Size())
	assert.Equal(t, oid.FromBytes(nil), b.Oid())
}
