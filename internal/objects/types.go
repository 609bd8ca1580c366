// Package objects defines MediaGit's content-addressed object kinds: Blob,
// Tree, Commit, the chunk manifest that backs large chunked blobs, and
// their canonical serializations.
package objects

import (
	"fmt"
	"time"

	"github.com/fenilsonani/mediagit/internal/oid"
)

// Kind identifies the tagged variant of an object.
type Kind string

const (
	KindBlob   Kind = "blob"
	KindTree   Kind = "tree"
	KindCommit Kind = "commit"
	KindTag    Kind = "tag"
)

// IsValid reports whether k is one of the known object kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindBlob, KindTree, KindCommit, KindTag:
		return true
	default:
		return false
	}
}

// FileMode is the mode of a tree entry.
type FileMode uint32

// The four tree entry modes spec.md's data model names. ModeDirectory
// replaces the teacher's git-compatible ModeCommit (submodule) mode, which
// has no analogue in spec.md's data model and is out of scope.
const (
	ModeRegular    FileMode = 0o100644
	ModeExecutable FileMode = 0o100755
	ModeSymlink    FileMode = 0o120000
	ModeDirectory  FileMode = 0o040000
)

// Signature carries author/committer identity and an absolute timestamp.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// String renders the signature in the on-disk commit format:
// "Name <email> <unix-seconds> <+/-HHMM>".
func (s Signature) String() string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When.Unix(), s.When.Format("-0700"))
}

// ChunkType hints at how a chunk's boundary was chosen.
type ChunkType int

const (
	ChunkGeneric ChunkType = iota
	ChunkMediaBoundary
)

// ChunkRef is one entry in a ChunkManifest: the chunk's Oid, its logical
// offset within the reconstructed blob, its uncompressed size, and the
// kind of boundary that produced it.
type ChunkRef struct {
	ID        oid.Oid
	Offset    uint64
	Size      uint64
	ChunkType ChunkType
}

// ChunkManifest lists, in file order, the chunks that reconstruct a
// chunked blob. Its own storage key is derived from the blob's Oid (the
// hash of the reconstructed bytes), never from the manifest's own
// serialized form (spec.md §4.4).
type ChunkManifest struct {
	Chunks    []ChunkRef
	TotalSize uint64
	Filename  string // empty means "unknown / not set"
}

// MaxObjectSize is the hard ceiling on ChunkManifest.TotalSize (16 GiB).
// Manifests claiming a larger size are rejected as corrupt before any
// allocation is attempted (spec.md §3, §5).
const MaxObjectSize = 16 * 1024 * 1024 * 1024

// Validate checks the manifest's structural invariants: chunks cover
// [0, TotalSize) contiguously without gaps or overlap, and TotalSize does
// not exceed MaxObjectSize.
func (m *ChunkManifest) Validate() error {
	if m.TotalSize > MaxObjectSize {
		return fmt.Errorf("objects: manifest total_size %d exceeds ceiling %d", m.TotalSize, MaxObjectSize)
	}
	var want uint64
	for i, c := range m.Chunks {
		if c.Offset != want {
			return fmt.Errorf("objects: manifest chunk %d: expected offset %d, got %d", i, want, c.Offset)
		}
		want += c.Size
	}
	if want != m.TotalSize {
		return fmt.Errorf("objects: manifest chunks cover %d bytes, total_size is %d", want, m.TotalSize)
	}
	return nil
}
