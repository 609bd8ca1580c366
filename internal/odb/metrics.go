package odb

import "sync"

// Counts is an immutable snapshot of Metrics' counters, safe to copy and
// read without any locking.
type Counts struct {
	TotalWrites   uint64
	UniqueObjects uint64
	BytesWritten  uint64
	BytesStored   uint64
	CacheHits     uint64
	CacheMisses   uint64
}

// DedupRatio is the fraction of written bytes that were never actually
// stored because an identical object already existed.
func (c Counts) DedupRatio() float64 {
	if c.BytesWritten == 0 {
		return 0
	}
	return 1 - float64(c.BytesStored)/float64(c.BytesWritten)
}

// HitRate is the fraction of reads satisfied from the LRU cache.
func (c Counts) HitRate() float64 {
	total := c.CacheHits + c.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(c.CacheHits) / float64(total)
}

// Metrics accumulates in-process write/read/cache counters for an
// ObjectDatabase. It is not an exporter: there is no Prometheus/JSON
// surface here, only the accessor methods scenario 1 of spec.md §8
// exercises directly. Grounded on
// original_source/crates/mediagit-versioning/src/odb.rs's metrics
// field usage (record_write/record_cache_hit/record_cache_miss,
// dedup_ratio, hit_rate), whose OdbMetrics struct definition itself
// lives outside the retrieved files — the field set below is inferred
// from every call site in odb.rs.
type Metrics struct {
	mu     sync.Mutex
	counts Counts
}

// RecordWrite tallies one write of size bytes. isNew distinguishes a
// freshly stored object from a deduplicated write of content already on
// disk: BytesStored only grows for new objects, BytesWritten grows for
// every write attempt.
func (m *Metrics) RecordWrite(size uint64, isNew bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts.TotalWrites++
	m.counts.BytesWritten += size
	if isNew {
		m.counts.UniqueObjects++
		m.counts.BytesStored += size
	}
}

// RecordCacheHit tallies a successful LRU cache lookup.
func (m *Metrics) RecordCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts.CacheHits++
}

// RecordCacheMiss tallies a failed LRU cache lookup.
func (m *Metrics) RecordCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts.CacheMisses++
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts
}
