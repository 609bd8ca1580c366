package odb

import (
	"context"
	"fmt"

	"github.com/fenilsonani/mediagit/internal/compress"
	"github.com/fenilsonani/mediagit/internal/delta"
	"github.com/fenilsonani/mediagit/internal/oid"
)

const (
	chunkDeltaPrefix = "chunk-deltas/"

	// minChunkDeltaBytes is the smallest chunk worth attempting to
	// delta-encode; below it, the base lookup and instruction overhead
	// outweigh any savings. Grounded on the original's
	// `chunk.data.len() < 4096` gate in try_store_chunk_as_delta.
	minChunkDeltaBytes = 4096
)

func chunkDeltaKey(id oid.Oid) string     { return chunkDeltaPrefix + id.String() }
func chunkDeltaMetaKey(id oid.Oid) string { return chunkDeltaPrefix + id.String() + deltaMetaSuffix }

// tryStoreChunkAsDelta attempts to store a content-defined chunk as a
// delta against a similar chunk already seen by the similarity index,
// mirroring try_store_chunk_as_delta in
// original_source/crates/mediagit-versioning/src/odb.rs (spec.md §1's
// "cross-object delta encoding between similar blobs and similar
// chunks", §4.7's per-worker "dedup/similarity/delta-or-full/
// compress/store" pipeline). It reports whether a delta was stored;
// false means the caller must store data as a full chunk instead.
//
// Chunk deltas never chain: a chunk stored as a delta is registered in
// the similarity index with isDelta=true, so FindSimilar never offers
// it as a future base, giving every chunk delta a fixed depth of one
// exactly as the original does (unlike whole-object deltas, spec.md
// names no chain-depth budget for chunks).
func (o *Odb) tryStoreChunkAsDelta(ctx context.Context, id oid.Oid, data []byte, t compress.ObjectType) (bool, error) {
	if len(data) < minChunkDeltaBytes {
		return false, nil
	}

	base, ok := o.sim.FindSimilar(data, uint64(len(data)), t, minDeltaSizeRatio)
	if !ok || base.BaseOid == id {
		return false, nil
	}

	baseData, err := o.readChunk(ctx, base.BaseOid)
	if err != nil {
		return false, nil
	}

	baseChunks, err := chunksOf(baseData)
	if err != nil {
		return false, nil
	}
	targetChunks, err := chunksOf(data)
	if err != nil {
		return false, nil
	}
	d, err := delta.Compute(base.BaseOid, id, baseChunks, targetChunks)
	if err != nil {
		return false, nil
	}
	if !d.IsBeneficial() {
		return false, nil
	}

	insertData, err := delta.ExtractInsertData(data, d)
	if err != nil {
		return false, fmt.Errorf("odb: extract chunk delta insert data for %s: %w", id, err)
	}
	payload, err := delta.EncodePayload(d, insertData)
	if err != nil {
		return false, fmt.Errorf("odb: encode chunk delta payload for %s: %w", id, err)
	}

	if err := o.backend.Put(ctx, chunkDeltaKey(id), payload); err != nil {
		return false, fmt.Errorf("odb: store chunk delta payload for %s: %w", id, err)
	}
	// Chunk sidecars carry only the base reference (no depth marker):
	// the original never tracks a chain depth for chunk deltas, since
	// FindSimilar already rules out a delta chunk ever becoming a base.
	sidecar := fmt.Sprintf("base:%s", base.BaseOid.String())
	if err := o.backend.Put(ctx, chunkDeltaMetaKey(id), []byte(sidecar)); err != nil {
		return false, fmt.Errorf("odb: store chunk delta sidecar for %s: %w", id, err)
	}

	o.sim.Insert(id, uint64(len(data)), t, data, true)
	return true, nil
}
