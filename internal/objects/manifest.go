package objects

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fenilsonani/mediagit/internal/oid"
)

// manifestFormatVersion guards against decoding a manifest encoded by an
// incompatible future version of this binary scheme. Per spec.md §9, the
// exact bytes of this encoding are not a documented cross-implementation
// contract; only the reconstruction invariant is guaranteed.
const manifestFormatVersion = 1

// EncodeManifest serializes a ChunkManifest to a length-prefixed binary
// form. Byte-for-byte stability across MediaGit versions is not
// guaranteed (spec.md §9 open question); callers must not persist this
// format across incompatible versions without a migration path.
func EncodeManifest(m *ChunkManifest) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(manifestFormatVersion)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, m.TotalSize); err != nil {
		return nil, err
	}

	filename := []byte(m.Filename)
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(filename))); err != nil {
		return nil, err
	}
	buf.Write(filename)

	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(m.Chunks))); err != nil {
		return nil, err
	}
	for _, c := range m.Chunks {
		buf.Write(c.ID[:])
		if err := binary.Write(&buf, binary.LittleEndian, c.Offset); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, c.Size); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint8(c.ChunkType)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeManifest parses a manifest previously produced by EncodeManifest.
// It rejects a claimed TotalSize above MaxObjectSize before allocating
// anything proportional to it, so a corrupted manifest cannot trigger an
// out-of-memory allocation (spec.md §3, §5).
func DecodeManifest(data []byte) (*ChunkManifest, error) {
	r := bytes.NewReader(data)

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("objects: manifest: failed to read version: %w", err)
	}
	if version != manifestFormatVersion {
		return nil, fmt.Errorf("objects: manifest: unsupported format version %d", version)
	}

	m := &ChunkManifest{}
	if err := binary.Read(r, binary.LittleEndian, &m.TotalSize); err != nil {
		return nil, fmt.Errorf("objects: manifest: failed to read total_size: %w", err)
	}
	if m.TotalSize > MaxObjectSize {
		return nil, fmt.Errorf("objects: manifest: total_size %d exceeds ceiling %d (corrupt)", m.TotalSize, MaxObjectSize)
	}

	var filenameLen uint32
	if err := binary.Read(r, binary.LittleEndian, &filenameLen); err != nil {
		return nil, fmt.Errorf("objects: manifest: failed to read filename length: %w", err)
	}
	if filenameLen > 1<<20 {
		return nil, fmt.Errorf("objects: manifest: implausible filename length %d (corrupt)", filenameLen)
	}
	filename := make([]byte, filenameLen)
	if _, err := io.ReadFull(r, filename); err != nil {
		return nil, fmt.Errorf("objects: manifest: failed to read filename: %w", err)
	}
	m.Filename = string(filename)

	var chunkCount uint32
	if err := binary.Read(r, binary.LittleEndian, &chunkCount); err != nil {
		return nil, fmt.Errorf("objects: manifest: failed to read chunk count: %w", err)
	}
	// Reject an absurd chunk count before allocating the slice: one that
	// exceeds both TotalSize+1 and 1<<24.
	if uint64(chunkCount) > m.TotalSize+1 && chunkCount > 1<<24 {
		return nil, fmt.Errorf("objects: manifest: implausible chunk count %d (corrupt)", chunkCount)
	}

	m.Chunks = make([]ChunkRef, 0, chunkCount)
	for i := uint32(0); i < chunkCount; i++ {
		var c ChunkRef
		if _, err := io.ReadFull(r, c.ID[:]); err != nil {
			return nil, fmt.Errorf("objects: manifest: failed to read chunk %d oid: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &c.Offset); err != nil {
			return nil, fmt.Errorf("objects: manifest: failed to read chunk %d offset: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &c.Size); err != nil {
			return nil, fmt.Errorf("objects: manifest: failed to read chunk %d size: %w", i, err)
		}
		var ct uint8
		if err := binary.Read(r, binary.LittleEndian, &ct); err != nil {
			return nil, fmt.Errorf("objects: manifest: failed to read chunk %d type: %w", i, err)
		}
		c.ChunkType = ChunkType(ct)
		m.Chunks = append(m.Chunks, c)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("objects: manifest: %w", err)
	}
	return m, nil
}

// ManifestKey derives the storage key for a blob's manifest from the
// blob's own Oid, never from the manifest's serialized bytes (spec.md
// §4.4 — the manifest's storage key is a function of the blob it
// reconstructs, not a function of itself).
func ManifestKey(blobOid oid.Oid) string {
	return "manifests/" + blobOid.String()
}
