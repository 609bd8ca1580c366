// Package similarity keeps a bounded, in-memory fingerprint index of
// recently written blobs and chunks, and scores candidates for delta
// encoding against a new write using a fast sampling-based similarity
// metric.
package similarity

import (
	"container/list"
	"sync"

	"github.com/fenilsonani/mediagit/internal/compress"
	"github.com/fenilsonani/mediagit/internal/oid"
)

// sampleSize bounds how many byte positions are compared when scoring
// similarity, so the cost of a comparison never scales with file size.
const sampleSize = 1024

// fingerprint is a small content sample used to score similarity without
// holding the whole object in memory.
type fingerprint struct {
	id       oid.Oid
	size     uint64
	objType  compress.ObjectType
	samples  []byte // sampleSize bytes, or fewer for small objects
	isDelta  bool   // bases must not themselves be deltas
}

// Entry is a candidate returned by FindSimilar: the base object's Oid and the
// similarity score it achieved.
type Entry struct {
	BaseOid oid.Oid
	Score   float64
}

// Index is a capacity-bounded fingerprint store. It is safe for
// concurrent use.
type Index struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently inserted
	elements map[oid.Oid]*list.Element
}

// NewIndex returns an Index holding at most capacity fingerprints; the
// oldest entry is evicted whenever a new one would exceed it.
func NewIndex(capacity int) *Index {
	return &Index{
		capacity: capacity,
		order:    list.New(),
		elements: make(map[oid.Oid]*list.Element),
	}
}

// Sample extracts a fixed-size, evenly-spaced fingerprint from data,
// grounded on the original's regular-interval sampling scheme.
func Sample(data []byte) []byte {
	if len(data) <= sampleSize {
		return append([]byte(nil), data...)
	}
	out := make([]byte, sampleSize)
	step := len(data) / sampleSize
	for i := range out {
		out[i] = data[i*step]
	}
	return out
}

// Insert adds or replaces a fingerprint for id, evicting the oldest
// entry first if the index is at capacity.
func (idx *Index) Insert(id oid.Oid, size uint64, objType compress.ObjectType, data []byte, isDelta bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	fp := &fingerprint{id: id, size: size, objType: objType, samples: Sample(data), isDelta: isDelta}

	if el, ok := idx.elements[id]; ok {
		idx.order.MoveToFront(el)
		el.Value = fp
		return
	}

	if idx.order.Len() >= idx.capacity {
		oldest := idx.order.Back()
		if oldest != nil {
			idx.order.Remove(oldest)
			delete(idx.elements, oldest.Value.(*fingerprint).id)
		}
	}

	el := idx.order.PushFront(fp)
	idx.elements[id] = el
}

// Len reports how many fingerprints the index currently holds.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.order.Len()
}

// jaccardSimilarity scores two byte samples using the sampling-based
// metric grounded on the original implementation's approach: step
// through each sample at a stride proportional to its own length so both
// samples are covered regardless of relative size, and count equal bytes
// at corresponding sampled positions.
func jaccardSimilarity(base, target []byte) float64 {
	if len(base) == 0 && len(target) == 0 {
		return 1.0
	}
	if len(base) == 0 || len(target) == 0 {
		return 0.0
	}

	n := sampleSize
	if len(base) < n {
		n = len(base)
	}
	if len(target) < n {
		n = len(target)
	}

	baseStep := 1
	if len(base) > n {
		baseStep = len(base) / n
	}
	targetStep := 1
	if len(target) > n {
		targetStep = len(target) / n
	}

	matches := 0
	for i := 0; i < n; i++ {
		bi := i * baseStep
		if bi >= len(base) {
			bi = len(base) - 1
		}
		ti := i * targetStep
		if ti >= len(target) {
			ti = len(target) - 1
		}
		if base[bi] == target[ti] {
			matches++
		}
	}
	return float64(matches) / float64(n)
}

// TypeThreshold returns the minimum similarity score worth considering
// for delta encoding, varying by media category (spec.md §4.5: text is
// the most delta-friendly, video the least).
func TypeThreshold(t compress.ObjectType) float64 {
	switch t.Category() {
	case compress.CategoryText, compress.CategoryDocument:
		return 0.70
	case compress.CategoryImage:
		return 0.85
	case compress.CategoryAudio:
		return 0.90
	case compress.CategoryVideo:
		return 0.95
	default:
		return 0.80
	}
}

// sizeRatio returns the smaller-over-larger ratio of two sizes, in
// [0, 1]; a base much smaller or much larger than the target makes a
// poor delta base regardless of content similarity.
func sizeRatio(a, b uint64) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > b {
		a, b = b, a
	}
	return float64(a) / float64(b)
}

// FindSimilar returns the best-scoring candidate base for newData among
// the index's fingerprints, or ok=false if nothing clears both the
// type-aware similarity threshold and minSizeRatio, or if every
// similarity-qualifying candidate is itself a delta (bases must be full
// objects, so chain depth can be tracked from a known point).
func (idx *Index) FindSimilar(newData []byte, newSize uint64, objType compress.ObjectType, minSizeRatio float64) (Entry, bool) {
	threshold := TypeThreshold(objType)
	newSamples := Sample(newData)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var best Entry
	found := false

	for e := idx.order.Front(); e != nil; e = e.Next() {
		fp := e.Value.(*fingerprint)
		if fp.isDelta {
			continue
		}
		if sizeRatio(fp.size, newSize) < minSizeRatio {
			continue
		}
		score := jaccardSimilarity(fp.samples, newSamples)
		if score < threshold {
			continue
		}
		if !found || score > best.Score {
			best = Entry{BaseOid: fp.id, Score: score}
			found = true
		}
	}
	return best, found
}
