// Package chunk splits large blobs into content-defined chunks so that
// similar or partially-overlapping files can share storage, and so large
// files can be transferred and reconstructed incrementally.
package chunk

import (
	"bufio"
	"fmt"
	"io"

	"github.com/fenilsonani/mediagit/internal/objects"
	"github.com/fenilsonani/mediagit/internal/oid"
)

// Size bounds for FastCDC chunk boundaries, per spec.md §4.4: chunks
// target 1-8 MiB, never smaller than MinSize or larger than MaxSize.
const (
	MinSize = 1 * 1024 * 1024
	AvgSize = 4 * 1024 * 1024
	MaxSize = 8 * 1024 * 1024
)

// gear is the rolling-hash lookup table, grounded on the gear-table
// construction in the Ivaldi FastCDC reference (golden-ratio multiplier
// per byte value).
var gear [256]uint64

func init() {
	for i := 0; i < 256; i++ {
		gear[i] = uint64(i) * 0x9E3779B97F4A7C15
	}
}

// boundaryMask determines how often a boundary is declared; matched to
// AvgSize so that, on average, a boundary appears every AvgSize bytes.
var boundaryMask = uint64(AvgSize - 1)

// Chunk is one content-defined slice of a larger blob, prior to being
// written into the object database.
type Chunk struct {
	Data   []byte
	Offset uint64
	Type   objects.ChunkType
}

// FastCDC streams a reader's content into content-defined chunks without
// buffering more than MaxSize bytes at a time, unlike the reference
// implementation (which loads the whole input into memory).
type FastCDC struct {
	minSize, avgSize, maxSize int
	mask                      uint64
}

// New returns a FastCDC chunker using the package's default size bounds.
func New() *FastCDC {
	return &FastCDC{minSize: MinSize, avgSize: AvgSize, maxSize: MaxSize, mask: boundaryMask}
}

// NewWithSizes returns a FastCDC chunker with custom size bounds, mainly
// useful for tests that want smaller chunks than the production defaults.
func NewWithSizes(minSize, avgSize, maxSize int) *FastCDC {
	return &FastCDC{minSize: minSize, avgSize: avgSize, maxSize: maxSize, mask: uint64(avgSize - 1)}
}

// Split streams r and invokes emit once per chunk, in order, passing the
// chunk bytes and its logical offset within the stream. emit's []byte
// argument is only valid for the duration of the call; callers that need
// to retain it must copy.
func (f *FastCDC) Split(r io.Reader, emit func(data []byte, offset uint64) error) error {
	br := bufio.NewReaderSize(r, f.maxSize)
	buf := make([]byte, f.maxSize)
	var offset uint64

	for {
		n, err := io.ReadFull(br, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return fmt.Errorf("chunk: read: %w", err)
		}
		if n == 0 {
			break
		}
		window := buf[:n]

		for len(window) > 0 {
			cut := f.findCut(window)
			if err := emit(window[:cut], offset); err != nil {
				return err
			}
			offset += uint64(cut)
			window = window[cut:]
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
	}
	return nil
}

// findCut locates the next chunk boundary within window, which holds at
// most maxSize bytes (the final read of a stream may hold fewer). It
// always returns a cut point in (0, len(window)].
func (f *FastCDC) findCut(window []byte) int {
	if len(window) <= f.minSize {
		return len(window)
	}

	var hash uint64
	for i := 0; i < f.minSize; i++ {
		hash = rollHash(hash, window[i])
	}

	limit := f.maxSize
	if limit > len(window) {
		limit = len(window)
	}
	for pos := f.minSize; pos < limit; pos++ {
		hash = rollHash(hash, window[pos])
		if hash&f.mask == 0 {
			return pos + 1
		}
	}
	return limit
}

func rollHash(hash uint64, b byte) uint64 {
	return (hash << 1) + gear[b]
}

// SplitToManifest chunks r entirely, writing each chunk through store and
// assembling a ChunkManifest describing how to reconstruct the original
// bytes. store is expected to persist the chunk under its content Oid and
// return that Oid (typically a no-op if the chunk already exists, giving
// deduplication for free).
func SplitToManifest(r io.Reader, filename string, chunker *FastCDC, store func(data []byte) (oid.Oid, error)) (*objects.ChunkManifest, error) {
	m := &objects.ChunkManifest{Filename: filename}

	err := chunker.Split(r, func(data []byte, offset uint64) error {
		owned := make([]byte, len(data))
		copy(owned, data)

		id, err := store(owned)
		if err != nil {
			return fmt.Errorf("chunk: store chunk at offset %d: %w", offset, err)
		}

		m.Chunks = append(m.Chunks, objects.ChunkRef{
			ID:     id,
			Offset: offset,
			Size:   uint64(len(owned)),
		})
		m.TotalSize += uint64(len(owned))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("chunk: built an invalid manifest: %w", err)
	}
	return m, nil
}
