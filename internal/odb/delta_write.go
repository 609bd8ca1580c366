package odb

import (
	"bytes"
	"context"
	"fmt"

	"github.com/fenilsonani/mediagit/internal/chunk"
	"github.com/fenilsonani/mediagit/internal/delta"
	"github.com/fenilsonani/mediagit/internal/objects"
	"github.com/fenilsonani/mediagit/internal/oid"
)

// chunksOf splits data with the production CDC chunker so that
// delta.Compute can find matching runs between two similar-but-distinct
// objects at sub-object granularity, rather than being forced to treat
// each whole buffer as a single all-or-nothing chunk.
func chunksOf(data []byte) ([]chunk.Chunk, error) {
	var chunks []chunk.Chunk
	err := chunk.New().Split(bytes.NewReader(data), func(d []byte, offset uint64) error {
		owned := make([]byte, len(d))
		copy(owned, d)
		chunks = append(chunks, chunk.Chunk{Data: owned, Offset: offset})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// WriteWithDelta attempts to store data as a whole-object delta against a
// similar prior write, enforcing the chain-depth and self-reference rules
// in internal/delta. It falls back to WriteWithPath whenever no
// sufficiently similar base exists, the base's chain is already at its
// type's max depth, or the resulting delta would not be beneficial
// (spec.md §4.7).
func (o *Odb) WriteWithDelta(ctx context.Context, kind objects.Kind, data []byte, filename string) (oid.Oid, error) {
	t := classifyTypeFor(filename, data)
	id := oid.FromBytes(data)
	cfg := delta.ConfigForType(t)

	base, ok := o.sim.FindSimilar(data, uint64(len(data)), t, minDeltaSizeRatio)
	if !ok || base.BaseOid == id {
		return o.writeLoose(ctx, data, t)
	}
	if base.Score < cfg.SimilarityThreshold {
		return o.writeLoose(ctx, data, t)
	}

	baseMeta, ok := o.chains.Get(base.BaseOid)
	if !ok {
		baseMeta = delta.FullMetadata(base.BaseOid, 0)
	}
	if baseMeta.ChainDepth >= cfg.MaxChainDepth {
		return o.writeLoose(ctx, data, t)
	}

	baseData, err := o.Read(ctx, base.BaseOid)
	if err != nil {
		return o.writeLoose(ctx, data, t)
	}

	baseChunks, err := chunksOf(baseData)
	if err != nil {
		return o.writeLoose(ctx, data, t)
	}
	targetChunks, err := chunksOf(data)
	if err != nil {
		return o.writeLoose(ctx, data, t)
	}
	d, err := delta.Compute(base.BaseOid, id, baseChunks, targetChunks)
	if err != nil {
		return o.writeLoose(ctx, data, t)
	}

	meta := delta.DeltaMetadata(base.BaseOid, baseMeta.ChainDepth, uint64(len(data)), uint64(d.DeltaSize), base.Score)
	savings := meta.SpaceSavings
	if !d.IsBeneficial() || savings < cfg.MinSpaceSavings {
		return o.writeLoose(ctx, data, t)
	}

	insertData, err := delta.ExtractInsertData(data, d)
	if err != nil {
		return oid.Zero, fmt.Errorf("odb: extract delta insert data for %s: %w", id, err)
	}
	payload, err := delta.EncodePayload(d, insertData)
	if err != nil {
		return oid.Zero, fmt.Errorf("odb: encode delta payload for %s: %w", id, err)
	}

	if err := o.backend.Put(ctx, deltaKey(id), payload); err != nil {
		return oid.Zero, fmt.Errorf("odb: store delta payload for %s: %w", id, err)
	}
	if err := o.backend.Put(ctx, deltaMetaKey(id), delta.EncodeSidecar(meta)); err != nil {
		return oid.Zero, fmt.Errorf("odb: store delta sidecar for %s: %w", id, err)
	}

	o.metrics.RecordWrite(uint64(len(data)), true)
	o.chains.Register(id, meta)
	o.sim.Insert(id, uint64(len(data)), t, data, true)
	o.cache.Add(id, data)
	return id, nil
}
