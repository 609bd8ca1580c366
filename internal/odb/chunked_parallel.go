package odb

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fenilsonani/mediagit/internal/chunk"
	"github.com/fenilsonani/mediagit/internal/compress"
	"github.com/fenilsonani/mediagit/internal/objects"
	"github.com/fenilsonani/mediagit/internal/oid"
)

const (
	// maxParallelWorkers caps WriteChunkedParallel/WriteChunkedFromFile's
	// worker pool; beyond this, contention on the storage backend
	// dominates any further parallelism gain.
	maxParallelWorkers = 16

	// sequentialFallbackChunks is the chunk count at or below which the
	// worker-pool pipeline is skipped: channel setup and goroutine
	// scheduling cost more than the parallelism saves for a handful of
	// chunks. Matches the original's own `num_chunks <= 4` shortcut.
	sequentialFallbackChunks = 4

	// jobsChannelCapacity bounds the chunker-to-worker channel, matching
	// the original's async_channel::bounded(64) between its producer and
	// worker tasks.
	jobsChannelCapacity = 64

	// resultsChannelCapacity bounds the worker-to-assembler channel,
	// matching the capacity the original gives its blocking-producer
	// bridge channel (tokio::sync::mpsc::channel(32)).
	resultsChannelCapacity = 32
)

type chunkJob struct {
	seq    int
	data   []byte
	offset uint64
}

type chunkResult struct {
	seq int
	ref objects.ChunkRef
}

// WriteChunkedParallel is the producer-consumer variant of WriteChunked:
// one goroutine runs the chunker and feeds chunks onto a bounded channel;
// up to maxParallelWorkers goroutines consume, dedup/compress/store each
// chunk concurrently, and an assembler reorders the results by sequence
// id to rebuild the manifest in file order (spec.md §4.7).
func (o *Odb) WriteChunkedParallel(ctx context.Context, kind objects.Kind, data []byte, filename string) (oid.Oid, error) {
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

	chunks, err := chunksOf(data)
	if err != nil {
		return oid.Zero, fmt.Errorf("odb: chunk %s: %w", id, err)
	}

	var refs []objects.ChunkRef
	if len(chunks) <= sequentialFallbackChunks {
		refs, err = o.storeChunksSequentially(ctx, chunks, t)
	} else {
		refs, err = o.chunkAndStoreParallel(ctx, chunkSliceProducer(chunks), t)
	}
	if err != nil {
		return oid.Zero, fmt.Errorf("odb: parallel chunk %s: %w", id, err)
	}
	if err := o.storeManifest(ctx, mKey, refs, uint64(len(data)), filename); err != nil {
		return oid.Zero, fmt.Errorf("odb: store manifest for %s: %w", id, err)
	}
	o.metrics.RecordWrite(uint64(len(data)), true)
	return id, nil
}

// WriteChunkedFromFile streams path through the chunker without ever
// holding more than one chunk of its content in memory: the file is
// hashed once (to obtain the final Oid), rewound, then chunked and fed
// through the same parallel pipeline WriteChunkedParallel uses. Grounded
// on spec.md §4.7's "streaming variant bounded by one chunk of memory"
// contract; the two-pass hash-then-chunk shape avoids ever materializing
// the whole file, at the cost of reading it from disk twice.
func (o *Odb) WriteChunkedFromFile(ctx context.Context, kind objects.Kind, path, filename string) (oid.Oid, error) {
	f, err := os.Open(path)
	if err != nil {
		return oid.Zero, fmt.Errorf("odb: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return oid.Zero, fmt.Errorf("odb: stat %s: %w", path, err)
	}
	t := classifyTypeFor(filename, nil)

	if !chunk.ShouldChunk(info.Size(), t) {
		data, err := os.ReadFile(path)
		if err != nil {
			return oid.Zero, fmt.Errorf("odb: read %s: %w", path, err)
		}
		return o.writeLoose(ctx, data, t)
	}

	id, err := oid.FromReader(f)
	if err != nil {
		return oid.Zero, fmt.Errorf("odb: hash %s: %w", path, err)
	}
	mKey := objects.ManifestKey(id)
	if exists, err := o.backend.Exists(ctx, mKey); err == nil && exists {
		o.metrics.RecordWrite(uint64(info.Size()), false)
		return id, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return oid.Zero, fmt.Errorf("odb: rewind %s: %w", path, err)
	}

	refs, err := o.chunkAndStoreParallel(ctx, readerProducer(f), t)
	if err != nil {
		return oid.Zero, fmt.Errorf("odb: parallel chunk %s: %w", path, err)
	}
	if err := o.storeManifest(ctx, mKey, refs, uint64(info.Size()), filename); err != nil {
		return oid.Zero, fmt.Errorf("odb: store manifest for %s: %w", path, err)
	}
	o.metrics.RecordWrite(uint64(info.Size()), true)
	return id, nil
}

// chunkProducer feeds jobs onto the worker channel and reports any error
// encountered while doing so (context cancellation, or a chunking
// failure for a reader-backed producer).
type chunkProducer func(ctx context.Context, emit func(chunkJob) error) error

// readerProducer streams r through the chunker one chunk at a time,
// never holding more than one chunk of its content in memory alongside
// whatever is already queued on the jobs channel.
func readerProducer(r io.Reader) chunkProducer {
	return func(ctx context.Context, emit func(chunkJob) error) error {
		seq := 0
		chunker := chunk.New()
		return chunker.Split(r, func(data []byte, offset uint64) error {
			owned := make([]byte, len(data))
			copy(owned, data)
			job := chunkJob{seq: seq, data: owned, offset: offset}
			seq++
			return emit(job)
		})
	}
}

// chunkSliceProducer feeds an already-split slice of chunks onto the
// jobs channel, for callers (WriteChunkedParallel) that chunked the
// input up front to decide between the sequential and parallel paths.
func chunkSliceProducer(chunks []chunk.Chunk) chunkProducer {
	return func(ctx context.Context, emit func(chunkJob) error) error {
		for seq, c := range chunks {
			if err := emit(chunkJob{seq: seq, data: c.Data, offset: c.Offset}); err != nil {
				return err
			}
		}
		return nil
	}
}

// chunkAndStoreParallel runs produce in one goroutine while a worker pool
// dedups/compresses/stores each chunk concurrently, returning the
// resulting ChunkRefs in file order. Grounded on the teacher's
// HyperPack.WriteObjects producer-consumer shape
// (internal/pack/hyperpack.go), adapted from a fixed-size byte-chunk
// pipeline to a content-defined-chunk one.
func (o *Odb) chunkAndStoreParallel(ctx context.Context, produce chunkProducer, t compress.ObjectType) ([]objects.ChunkRef, error) {
	workers := runtime.NumCPU()
	if workers > maxParallelWorkers {
		workers = maxParallelWorkers
	}
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan chunkJob, jobsChannelCapacity)
	results := make(chan chunkResult, resultsChannelCapacity)

	g.Go(func() error {
		defer close(jobs)
		return produce(gctx, func(job chunkJob) error {
			select {
			case jobs <- job:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	var workersWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		workersWG.Add(1)
		g.Go(func() error {
			defer workersWG.Done()
			store := o.storeChunk(gctx, t)
			for job := range jobs {
				id, err := store(job.data)
				if err != nil {
					return err
				}
				ref := objects.ChunkRef{ID: id, Offset: job.offset, Size: uint64(len(job.data))}
				select {
				case results <- chunkResult{seq: job.seq, ref: ref}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		workersWG.Wait()
		close(results)
	}()

	var collected []chunkResult
	g.Go(func() error {
		for res := range results {
			collected = append(collected, res)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].seq < collected[j].seq })
	refs := make([]objects.ChunkRef, len(collected))
	for i, c := range collected {
		refs[i] = c.ref
	}
	return refs, nil
}

// storeChunksSequentially stores an already-split slice of chunks one at
// a time, for the sequentialFallbackChunks case where spinning up the
// worker pool would cost more than it saves.
func (o *Odb) storeChunksSequentially(ctx context.Context, chunks []chunk.Chunk, t compress.ObjectType) ([]objects.ChunkRef, error) {
	store := o.storeChunk(ctx, t)
	refs := make([]objects.ChunkRef, len(chunks))
	for i, c := range chunks {
		id, err := store(c.Data)
		if err != nil {
			return nil, err
		}
		refs[i] = objects.ChunkRef{ID: id, Offset: c.Offset, Size: uint64(len(c.Data))}
	}
	return refs, nil
}

// storeManifest assembles a ChunkManifest from refs (already in file
// order) and writes it under key.
func (o *Odb) storeManifest(ctx context.Context, key string, refs []objects.ChunkRef, totalSize uint64, filename string) error {
	m := &objects.ChunkManifest{Chunks: refs, TotalSize: totalSize, Filename: filename}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("built an invalid manifest: %w", err)
	}
	encoded, err := objects.EncodeManifest(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return o.backend.Put(ctx, key, encoded)
}

func classifyTypeFor(filename string, data []byte) compress.ObjectType {
	t := compress.TypeFromPath(filename)
	if t == compress.TypeUnknown && data != nil {
		t = compress.TypeFromMagicBytes(data)
	}
	return t
}
