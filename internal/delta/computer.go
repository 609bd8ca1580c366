package delta

import (
	"fmt"
	"io"

	"github.com/fenilsonani/mediagit/internal/chunk"
	"github.com/fenilsonani/mediagit/internal/oid"
)

// chunkIndex maps a chunk's content hash to the base chunk itself (its
// offset within the base object, and its Data slice, shared with the
// caller's chunk list rather than copied), so Compute can emit a Copy
// instruction without re-scanning the base for every target chunk.
// Grounded on alexander-storage's MemoryIndex.
type chunkIndex struct {
	entries map[oid.Oid]chunk.Chunk
}

func newChunkIndex(chunks []chunk.Chunk) *chunkIndex {
	idx := &chunkIndex{entries: make(map[oid.Oid]chunk.Chunk, len(chunks))}
	for _, c := range chunks {
		idx.entries[oid.FromBytes(c.Data)] = c
	}
	return idx
}

// Compute builds a Delta that reconstructs target from baseChunks plus
// targetChunks, both already content-defined-chunked by the caller
// (internal/chunk). Each target chunk whose content hash matches a base
// chunk becomes a Copy instruction referencing the base's offset;
// everything else becomes an Insert instruction over the target's own
// bytes. Grounded on alexander-storage's Computer.ComputeFromChunks.
func Compute(baseOid, targetOid oid.Oid, baseChunks, targetChunks []chunk.Chunk) (*Delta, error) {
	if baseOid == targetOid {
		return nil, fmt.Errorf("delta: object %s cannot be its own delta base", targetOid)
	}
	idx := newChunkIndex(baseChunks)

	d := &Delta{SourceHash: targetOid, BaseHash: baseOid}

	var targetOffset int64
	for _, tc := range targetChunks {
		length := int64(len(tc.Data))
		if base, ok := idx.entries[oid.FromBytes(tc.Data)]; ok {
			d.Instructions = append(d.Instructions, Instruction{
				Type:         InstructionCopy,
				SourceOffset: int64(base.Offset),
				TargetOffset: targetOffset,
				Length:       length,
			})
		} else {
			d.Instructions = append(d.Instructions, Instruction{
				Type:         InstructionInsert,
				TargetOffset: targetOffset,
				Length:       length,
			})
			d.DeltaSize += length
		}
		d.TotalSize += length
		targetOffset += length
	}

	if d.TotalSize > 0 {
		d.SavingsRatio = 1 - float64(d.DeltaSize)/float64(d.TotalSize)
	}
	return d, nil
}

// ExtractInsertData concatenates, in instruction order, the literal bytes
// an Insert instruction names out of the full target buffer. This is what
// gets written to storage alongside the Delta itself; Copy instructions
// need no stored bytes of their own.
func ExtractInsertData(target []byte, d *Delta) ([]byte, error) {
	var out []byte
	for _, inst := range d.Instructions {
		if inst.Type != InstructionInsert {
			continue
		}
		end := inst.TargetOffset + inst.Length
		if end > int64(len(target)) {
			return nil, fmt.Errorf("delta: insert instruction [%d:%d) exceeds target length %d", inst.TargetOffset, end, len(target))
		}
		out = append(out, target[inst.TargetOffset:end]...)
	}
	return out, nil
}

// Apply reconstructs the target described by d, reading Copy ranges from
// base (which must support random access) and Insert ranges from
// insertData in instruction order. Grounded on alexander-storage's
// Applier.Apply.
func Apply(base io.ReaderAt, insertData []byte, d *Delta) ([]byte, error) {
	result := make([]byte, d.TotalSize)
	var insertOffset int64

	for _, inst := range d.Instructions {
		switch inst.Type {
		case InstructionCopy:
			n, err := base.ReadAt(result[inst.TargetOffset:inst.TargetOffset+inst.Length], inst.SourceOffset)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("delta: read base at %d: %w", inst.SourceOffset, err)
			}
			if int64(n) != inst.Length {
				return nil, fmt.Errorf("delta: short read from base at %d: got %d, want %d", inst.SourceOffset, n, inst.Length)
			}
		case InstructionInsert:
			end := insertOffset + inst.Length
			if end > int64(len(insertData)) {
				return nil, fmt.Errorf("delta: insert data exhausted at offset %d", insertOffset)
			}
			copy(result[inst.TargetOffset:], insertData[insertOffset:end])
			insertOffset = end
		default:
			return nil, fmt.Errorf("delta: unknown instruction type %d", inst.Type)
		}
	}
	return result, nil
}
