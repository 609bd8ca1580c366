// Package odb implements MediaGit's object database: the component that
// owns content hashing, compression, chunking, delta encoding and the
// storage backend, and glues them into write/read operations addressed
// purely by Oid.
package odb

import (
	"bytes"
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/fenilsonani/mediagit/internal/chunk"
	"github.com/fenilsonani/mediagit/internal/compress"
	"github.com/fenilsonani/mediagit/internal/delta"
	"github.com/fenilsonani/mediagit/internal/objects"
	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/fenilsonani/mediagit/internal/similarity"
	"github.com/fenilsonani/mediagit/internal/storage"
)

const (
	deltaPrefix     = "deltas/"
	deltaMetaSuffix = ".meta"

	// defaultSimilarityCapacity bounds the in-memory fingerprint index;
	// it is an optimization, not a correctness input, so a modest size
	// is enough to catch most near-duplicate writes in a session.
	defaultSimilarityCapacity = 4096

	// minDeltaSizeRatio mirrors similarity.FindSimilar's own gate: a
	// base candidate wildly smaller or larger than the new content is
	// not worth diffing against.
	minDeltaSizeRatio = 0.5
)

// Odb is MediaGit's object database: loose object storage, chunked
// storage, and whole-object delta encoding, all addressed by Oid and
// backed by a shared storage.Backend. An Odb owns its own similarity
// index, delta chain tracker, LRU cache and metrics (spec.md §4
// "Ownership"): multiple Odb handles may share a backend, but each
// maintains independent in-memory state.
type Odb struct {
	backend storage.Backend
	cache   *lru.Cache[oid.Oid, []byte]
	sim     *similarity.Index
	chains  *delta.ChainTracker
	metrics *Metrics
	logger  zerolog.Logger
}

// New returns an Odb backed by backend, with an LRU cache holding at most
// cacheCapacity reconstructed object bodies.
func New(backend storage.Backend, cacheCapacity int, logger zerolog.Logger) (*Odb, error) {
	cache, err := lru.New[oid.Oid, []byte](cacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("odb: create cache: %w", err)
	}
	return &Odb{
		backend: backend,
		cache:   cache,
		sim:     similarity.NewIndex(defaultSimilarityCapacity),
		chains:  delta.NewChainTracker(),
		metrics: &Metrics{},
		logger:  logger.With().Str("component", "odb").Logger(),
	}, nil
}

// Metrics returns a snapshot of the database's write/read/cache counters.
func (o *Odb) Metrics() Counts {
	return o.metrics.Snapshot()
}

func looseKey(id oid.Oid) string {
	return id.String()
}

func deltaKey(id oid.Oid) string {
	return deltaPrefix + id.String()
}

func deltaMetaKey(id oid.Oid) string {
	return deltaPrefix + id.String() + deltaMetaSuffix
}

// Write hashes, dedups, compresses and stores data as a loose object, and
// inserts it into the cache. It does no type-aware compression strategy
// selection; callers that know the content's type should prefer
// WriteWithPath.
func (o *Odb) Write(ctx context.Context, kind objects.Kind, data []byte) (oid.Oid, error) {
	return o.writeLoose(ctx, data, compress.TypeUnknown)
}

// WriteWithPath is like Write, but classifies data's compression strategy
// from filename's extension/content, giving media-aware compression
// ratios instead of a generic default.
func (o *Odb) WriteWithPath(ctx context.Context, kind objects.Kind, data []byte, filename string) (oid.Oid, error) {
	return o.writeLoose(ctx, data, classifyTypeFor(filename, data))
}

func (o *Odb) writeLoose(ctx context.Context, data []byte, t compress.ObjectType) (oid.Oid, error) {
	id := oid.FromBytes(data)
	key := looseKey(id)

	exists, err := o.backend.Exists(ctx, key)
	if err != nil {
		return oid.Zero, fmt.Errorf("odb: check existence of %s: %w", id, err)
	}
	if exists {
		o.metrics.RecordWrite(uint64(len(data)), false)
		o.cache.Add(id, data)
		return id, nil
	}

	compressed, err := compress.CompressForType(data, t)
	if err != nil {
		return oid.Zero, fmt.Errorf("odb: compress %s: %w", id, err)
	}
	if err := o.backend.Put(ctx, key, compressed); err != nil {
		// A concurrent writer may have raced us to the same key: if the
		// object now exists, this is dedup, not failure.
		if existsNow, checkErr := o.backend.Exists(ctx, key); checkErr == nil && existsNow {
			o.metrics.RecordWrite(uint64(len(data)), false)
			o.cache.Add(id, data)
			return id, nil
		}
		return oid.Zero, fmt.Errorf("odb: store %s: %w", id, err)
	}

	o.metrics.RecordWrite(uint64(len(data)), true)
	o.sim.Insert(id, uint64(len(data)), t, data, false)
	o.chains.Register(id, delta.FullMetadata(id, uint64(len(data))))
	o.cache.Add(id, data)
	return id, nil
}

// WriteChunked stores data as content-defined chunks under chunks/ and a
// reconstruction manifest under manifests/, keyed by the Oid of the full,
// reconstructed content. Small or already-compressed content that
// chunk.ShouldChunk rejects falls back to WriteWithPath.
func (o *Odb) WriteChunked(ctx context.Context, kind objects.Kind, data []byte, filename string) (oid.Oid, error) {
	t := classifyTypeFor(filename, data)
	if !chunk.ShouldChunk(int64(len(data)), t) {
		return o.writeLoose(ctx, data, t)
	}

	id := oid.FromBytes(data)
	mKey := objects.ManifestKey(id)
	if exists, err := o.backend.Exists(ctx, mKey); err == nil && exists {
		o.metrics.RecordWrite(uint64(len(data)), false)
		return id, nil
	}

	chunker := chunk.New()
	manifest, err := chunk.SplitToManifest(bytes.NewReader(data), filename, chunker, o.storeChunk(ctx, t))
	if err != nil {
		return oid.Zero, fmt.Errorf("odb: chunk %s: %w", id, err)
	}

	encoded, err := objects.EncodeManifest(manifest)
	if err != nil {
		return oid.Zero, fmt.Errorf("odb: encode manifest for %s: %w", id, err)
	}
	if err := o.backend.Put(ctx, mKey, encoded); err != nil {
		return oid.Zero, fmt.Errorf("odb: store manifest for %s: %w", id, err)
	}

	o.metrics.RecordWrite(uint64(len(data)), true)
	// Chunked objects are never cached as one reconstructed buffer on
	// write (spec.md §4.7): only a read-side reconstruction may do that.
	return id, nil
}

// storeChunk returns a chunk.SplitToManifest store callback that writes a
// chunk, tolerating a lost dedup race (if Put fails but the key now
// exists, another writer already stored the same bytes). Before falling
// back to a full compressed store under chunks/<hex>, it tries
// tryStoreChunkAsDelta so that a chunk similar to one already seen in
// this session is stored under chunk-deltas/<hex> instead (spec.md §1,
// §4.7).
func (o *Odb) storeChunk(ctx context.Context, t compress.ObjectType) func([]byte) (oid.Oid, error) {
	return func(data []byte) (oid.Oid, error) {
		id := oid.FromBytes(data)
		key := "chunks/" + id.String()

		exists, err := o.backend.Exists(ctx, key)
		if err != nil {
			return oid.Zero, err
		}
		if exists {
			return id, nil
		}
		deltaExists, err := o.backend.Exists(ctx, chunkDeltaMetaKey(id))
		if err != nil {
			return oid.Zero, err
		}
		if deltaExists {
			return id, nil
		}

		stored, err := o.tryStoreChunkAsDelta(ctx, id, data, t)
		if err != nil {
			return oid.Zero, err
		}
		if stored {
			return id, nil
		}

		compressed, err := compress.CompressForType(data, t)
		if err != nil {
			return oid.Zero, err
		}
		if err := o.backend.Put(ctx, key, compressed); err != nil {
			if existsNow, checkErr := o.backend.Exists(ctx, key); checkErr == nil && existsNow {
				return id, nil
			}
			return oid.Zero, err
		}
		o.sim.Insert(id, uint64(len(data)), t, data, false)
		return id, nil
	}
}

// GetObjectSize returns the size of the content stored under id, in O(1)
// if present in the cache, otherwise via a full read.
func (o *Odb) GetObjectSize(ctx context.Context, id oid.Oid) (uint64, error) {
	if data, ok := o.cache.Get(id); ok {
		o.metrics.RecordCacheHit()
		return uint64(len(data)), nil
	}
	o.metrics.RecordCacheMiss()
	data, err := o.Read(ctx, id)
	if err != nil {
		return 0, err
	}
	return uint64(len(data)), nil
}

// Exists reports whether id is present, checking the cache, then the
// loose key, then the manifest key (spec.md §4.7's key consistency
// invariant: Exists and Read must derive the loose key identically).
func (o *Odb) Exists(ctx context.Context, id oid.Oid) (bool, error) {
	if _, ok := o.cache.Get(id); ok {
		return true, nil
	}
	if ok, err := o.backend.Exists(ctx, looseKey(id)); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	if ok, err := o.backend.Exists(ctx, objects.ManifestKey(id)); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	return o.backend.Exists(ctx, deltaKey(id))
}

// Verify re-reads id and reports whether its content still hashes to id.
func (o *Odb) Verify(ctx context.Context, id oid.Oid) (bool, error) {
	data, err := o.Read(ctx, id)
	if err != nil {
		return false, err
	}
	return oid.FromBytes(data) == id, nil
}
