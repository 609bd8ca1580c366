package odb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fenilsonani/mediagit/internal/compress"
	"github.com/fenilsonani/mediagit/internal/delta"
	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/fenilsonani/mediagit/internal/pack"
)

// packPrefix is the flat (unsharded) key namespace pack files and their
// indexes live under.
const packPrefix = "packs/"

// RepackStats summarizes one repack run: how many loose objects were
// considered, how many were delta-encoded against another object in the
// same pack instead of stored in full, and how many bytes the resulting
// pack occupies relative to the loose objects it replaced.
type RepackStats struct {
	ObjectsPacked int
	ObjectsDelta  int
	BytesBefore   uint64
	BytesAfter    uint64
	LooseRemoved  int
}

// Repack migrates up to maxObjects loose objects into a single new pack
// file, delta-encoding each against another similar object in the same
// batch where beneficial, and optionally deletes the original loose keys
// (spec.md §4.8):
//  1. List loose Oids (exclude packs/, chunks/, manifests/, deltas/ keys).
//  2. For each, up to maxObjects: read it, try a delta against a similar
//     object also in this batch (reusing the similarity index; useful
//     iff the resulting delta is beneficial), else compress it whole.
//  3. Append to the pack writer.
//  4. Finalize to packs/pack-<unix-timestamp>.pack (+ .idx).
//  5. If removeLoose, delete the original loose keys.
func (o *Odb) Repack(ctx context.Context, maxObjects int, removeLoose bool) (RepackStats, error) {
	keys, err := o.backend.ListObjects(ctx, "")
	if err != nil {
		return RepackStats{}, fmt.Errorf("odb: list objects for repack: %w", err)
	}

	var looseIDs []oid.Oid
	for _, k := range keys {
		id, ok := parseLooseKey(k)
		if !ok {
			continue
		}
		looseIDs = append(looseIDs, id)
		if maxObjects > 0 && len(looseIDs) >= maxObjects {
			break
		}
	}

	looseSet := make(map[oid.Oid]bool, len(looseIDs))
	for _, id := range looseIDs {
		looseSet[id] = true
	}

	w := pack.NewWriter()
	var stats RepackStats
	packedIDs := make([]oid.Oid, 0, len(looseIDs))

	for _, id := range looseIDs {
		data, err := o.Read(ctx, id)
		if err != nil {
			return RepackStats{}, fmt.Errorf("odb: read %s for repack: %w", id, err)
		}
		stats.BytesBefore += uint64(len(data))

		entry, isDelta, err := o.packEntryFor(ctx, id, data, looseSet)
		if err != nil {
			return RepackStats{}, fmt.Errorf("odb: build pack entry for %s: %w", id, err)
		}
		if isDelta {
			stats.ObjectsDelta++
		}

		w.Add(entry)
		packedIDs = append(packedIDs, id)
		stats.BytesAfter += uint64(len(entry.Payload))
		stats.ObjectsPacked++
	}

	if stats.ObjectsPacked == 0 {
		return stats, nil
	}

	packData, idxData, err := w.Finalize()
	if err != nil {
		return RepackStats{}, fmt.Errorf("odb: finalize pack: %w", err)
	}

	packKey, idxKey := packKeysFor(time.Now().Unix())
	if err := o.backend.Put(ctx, packKey, packData); err != nil {
		return RepackStats{}, fmt.Errorf("odb: write %s: %w", packKey, err)
	}
	if err := o.backend.Put(ctx, idxKey, idxData); err != nil {
		return RepackStats{}, fmt.Errorf("odb: write %s: %w", idxKey, err)
	}

	if removeLoose {
		for _, id := range packedIDs {
			if err := o.backend.Delete(ctx, looseKey(id)); err != nil {
				return stats, fmt.Errorf("odb: remove loose %s after repack: %w", id, err)
			}
			stats.LooseRemoved++
		}
	}
	return stats, nil
}

// packEntryFor decides whether id should be packed as a delta against a
// similar object also in this batch (so the intra-pack reference is
// always resolvable from the pack alone) or as a full compressed entry.
func (o *Odb) packEntryFor(ctx context.Context, id oid.Oid, data []byte, looseSet map[oid.Oid]bool) (pack.Entry, bool, error) {
	t := compress.TypeFromMagicBytes(data)

	base, ok := o.sim.FindSimilar(data, uint64(len(data)), t, minDeltaSizeRatio)
	if ok && base.BaseOid != id && looseSet[base.BaseOid] {
		cfg := delta.ConfigForType(t)
		if base.Score >= cfg.SimilarityThreshold {
			if entry, ok, err := o.tryDeltaEntry(ctx, id, data, base.BaseOid, base.Score, cfg); err != nil {
				return pack.Entry{}, false, err
			} else if ok {
				return entry, true, nil
			}
		}
	}

	compressed, err := compress.CompressForType(data, t)
	if err != nil {
		return pack.Entry{}, false, fmt.Errorf("compress %s: %w", id, err)
	}
	return pack.Entry{Oid: id, Kind: pack.KindFull, Payload: compressed}, false, nil
}

func (o *Odb) tryDeltaEntry(ctx context.Context, id oid.Oid, data []byte, baseID oid.Oid, similarity float64, cfg delta.Config) (pack.Entry, bool, error) {
	baseData, err := o.Read(ctx, baseID)
	if err != nil {
		return pack.Entry{}, false, nil
	}
	baseChunks, err := chunksOf(baseData)
	if err != nil {
		return pack.Entry{}, false, nil
	}
	targetChunks, err := chunksOf(data)
	if err != nil {
		return pack.Entry{}, false, nil
	}
	d, err := delta.Compute(baseID, id, baseChunks, targetChunks)
	if err != nil {
		return pack.Entry{}, false, nil
	}

	meta := delta.DeltaMetadata(baseID, 0, uint64(len(data)), uint64(d.DeltaSize), similarity)
	if !d.IsBeneficial() || meta.SpaceSavings < cfg.MinSpaceSavings {
		return pack.Entry{}, false, nil
	}

	insertData, err := delta.ExtractInsertData(data, d)
	if err != nil {
		return pack.Entry{}, false, fmt.Errorf("extract delta insert data for %s: %w", id, err)
	}
	payload, err := delta.EncodePayload(d, insertData)
	if err != nil {
		return pack.Entry{}, false, fmt.Errorf("encode delta payload for %s: %w", id, err)
	}

	return pack.Entry{Oid: id, Kind: pack.KindDelta, BaseOid: baseID, Payload: payload}, true, nil
}

func parseLooseKey(key string) (oid.Oid, bool) {
	if strings.Contains(key, "/") {
		return oid.Oid{}, false
	}
	id, err := oid.Parse(key)
	if err != nil {
		return oid.Oid{}, false
	}
	return id, true
}

func packKeysFor(unixTimestamp int64) (packKey, idxKey string) {
	base := fmt.Sprintf("%spack-%d", packPrefix, unixTimestamp)
	return base + ".pack", base + ".idx"
}
