package objects

import "github.com/fenilsonani/mediagit/internal/oid"

// Blob is opaque file content. Its Oid is the SHA-256 of the raw,
// uncompressed bytes regardless of how those bytes end up materialized in
// storage: as a single loose object, or as a ChunkManifest plus the N
// chunks it references (spec.md §3, §4.4). Blob itself carries no
// materialization decision; that choice is the object database's, driven
// by size and compressibility.
type Blob struct {
	data []byte
}

// NewBlob wraps raw content as a Blob.
func NewBlob(data []byte) *Blob {
	return &Blob{data: data}
}

// Bytes returns the blob's raw content.
func (b *Blob) Bytes() []byte {
	return b.data
}

// Size returns the length of the blob's content in bytes.
func (b *Blob) Size() int {
	return len(b.data)
}

// Oid computes the blob's content Oid directly from its bytes. Unlike
// the teacher's git-compatible scheme, the "blob" type tag is never
// mixed into the hash: a chunked and a non-chunked materialization of
// identical content always have the same Oid (spec.md §4.1).
func (b *Blob) Oid() oid.Oid {
	return oid.FromBytes(b.data)
}
