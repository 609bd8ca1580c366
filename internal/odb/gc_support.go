package odb

import (
	"context"
	"fmt"
	"strings"

	"github.com/fenilsonani/mediagit/internal/objects"
	"github.com/fenilsonani/mediagit/internal/oid"
)

const (
	manifestPrefix = "manifests/"
	chunkPrefix    = "chunks/"
)

// LooseObjects returns the Oid of every object currently stored loose
// (not manifested, delta-encoded, or packed), for use by internal/gc.
func (o *Odb) LooseObjects(ctx context.Context) ([]oid.Oid, error) {
	keys, err := o.backend.ListObjects(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("odb: list loose objects: %w", err)
	}
	var ids []oid.Oid
	for _, k := range keys {
		if id, ok := parseLooseKey(k); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ManifestObjects returns the blob Oid of every chunked object's
// manifest, for use by internal/gc.
func (o *Odb) ManifestObjects(ctx context.Context) ([]oid.Oid, error) {
	keys, err := o.backend.ListObjects(ctx, manifestPrefix)
	if err != nil {
		return nil, fmt.Errorf("odb: list manifests: %w", err)
	}
	var ids []oid.Oid
	for _, k := range keys {
		id, err := oid.Parse(strings.TrimPrefix(k, manifestPrefix))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ChunkObjects returns the Oid of every chunk currently stored under
// chunks/ or chunk-deltas/, for use by internal/gc. A chunk Oid never
// appears under both prefixes at once, but the two are still merged by
// Oid rather than concatenated in case that ever changes.
func (o *Odb) ChunkObjects(ctx context.Context) ([]oid.Oid, error) {
	seen := make(map[oid.Oid]struct{})
	var ids []oid.Oid

	keys, err := o.backend.ListObjects(ctx, chunkPrefix)
	if err != nil {
		return nil, fmt.Errorf("odb: list chunks: %w", err)
	}
	for _, k := range keys {
		id, err := oid.Parse(strings.TrimPrefix(k, chunkPrefix))
		if err != nil {
			continue
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	deltaKeys, err := o.backend.ListObjects(ctx, chunkDeltaPrefix)
	if err != nil {
		return nil, fmt.Errorf("odb: list chunk deltas: %w", err)
	}
	for _, k := range deltaKeys {
		if strings.HasSuffix(k, deltaMetaSuffix) {
			continue
		}
		id, err := oid.Parse(strings.TrimPrefix(k, chunkDeltaPrefix))
		if err != nil {
			continue
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ManifestChunkRefs returns the chunk Oids referenced by blobOid's
// manifest, and false if blobOid has no manifest (it is not a chunked
// object).
func (o *Odb) ManifestChunkRefs(ctx context.Context, blobOid oid.Oid) ([]oid.Oid, bool, error) {
	exists, err := o.backend.Exists(ctx, objects.ManifestKey(blobOid))
	if err != nil {
		return nil, false, fmt.Errorf("odb: check manifest for %s: %w", blobOid, err)
	}
	if !exists {
		return nil, false, nil
	}
	raw, err := o.backend.Get(ctx, objects.ManifestKey(blobOid))
	if err != nil {
		return nil, false, fmt.Errorf("odb: read manifest for %s: %w", blobOid, err)
	}
	manifest, err := objects.DecodeManifest(raw)
	if err != nil {
		return nil, false, fmt.Errorf("odb: decode manifest for %s: %w", blobOid, err)
	}
	ids := make([]oid.Oid, len(manifest.Chunks))
	for i, c := range manifest.Chunks {
		ids[i] = c.ID
	}
	return ids, true, nil
}

// DeleteLoose removes id's loose object copy, if any, and evicts it from
// the cache. Deleting a missing object is not an error (spec.md §4.12
// step 5: "Deletion is idempotent").
func (o *Odb) DeleteLoose(ctx context.Context, id oid.Oid) error {
	o.cache.Remove(id)
	if err := o.backend.Delete(ctx, looseKey(id)); err != nil {
		return fmt.Errorf("odb: delete loose object %s: %w", id, err)
	}
	return nil
}

// DeleteManifest removes blobOid's manifest. Deleting a missing manifest
// is not an error.
func (o *Odb) DeleteManifest(ctx context.Context, blobOid oid.Oid) error {
	o.cache.Remove(blobOid)
	if err := o.backend.Delete(ctx, objects.ManifestKey(blobOid)); err != nil {
		return fmt.Errorf("odb: delete manifest %s: %w", blobOid, err)
	}
	return nil
}

// DeleteChunk removes a chunk, whether stored whole under chunks/ or as a
// delta under chunk-deltas/. Deleting a missing key is not an error, so
// attempting all three possible keys for one Oid is safe.
func (o *Odb) DeleteChunk(ctx context.Context, id oid.Oid) error {
	if err := o.backend.Delete(ctx, chunkPrefix+id.String()); err != nil {
		return fmt.Errorf("odb: delete chunk %s: %w", id, err)
	}
	if err := o.backend.Delete(ctx, chunkDeltaKey(id)); err != nil {
		return fmt.Errorf("odb: delete chunk delta %s: %w", id, err)
	}
	if err := o.backend.Delete(ctx, chunkDeltaMetaKey(id)); err != nil {
		return fmt.Errorf("odb: delete chunk delta sidecar %s: %w", id, err)
	}
	return nil
}
