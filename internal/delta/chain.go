package delta

import (
	"fmt"

	"github.com/fenilsonani/mediagit/internal/compress"
	"github.com/fenilsonani/mediagit/internal/oid"
)

// MaxChainDepth bounds how many deltas may be chained before reaching a
// full object, so reconstruction cost stays bounded regardless of how
// long a file's history grows.
const MaxChainDepth = 10

// DefaultSimilarityThreshold and DefaultMinSpaceSavings are the
// conservative fallback values Config uses for categories with no
// dedicated tuning.
const (
	DefaultSimilarityThreshold = 0.80
	DefaultMinSpaceSavings     = 0.10
)

// Config tunes delta-encoding decisions for one object category: how
// similar a base must be, how much space a delta must actually save to
// be worth keeping, and how deep its chain may run.
type Config struct {
	SimilarityThreshold float64
	MinSpaceSavings     float64
	MaxChainDepth       int
}

// ConfigForType returns the tuned Config for t's category, grounded on
// the original implementation's per-category table: image and video
// formats tolerate shallower chains and need higher similarity (fewer,
// more confident deltas), while text and git objects chain deeply since
// reconstruction is cheap and near-duplicate text is common.
func ConfigForType(t compress.ObjectType) Config {
	switch t.Category() {
	case compress.CategoryImage:
		return Config{SimilarityThreshold: 0.85, MinSpaceSavings: 0.15, MaxChainDepth: 5}
	case compress.CategoryVideo:
		return Config{SimilarityThreshold: 0.95, MinSpaceSavings: 0.05, MaxChainDepth: 3}
	case compress.CategoryAudio:
		return Config{SimilarityThreshold: 0.90, MinSpaceSavings: 0.10, MaxChainDepth: 5}
	case compress.CategoryText, compress.CategoryDocument:
		return Config{SimilarityThreshold: 0.70, MinSpaceSavings: 0.10, MaxChainDepth: MaxChainDepth}
	case compress.CategoryGitObject:
		return Config{SimilarityThreshold: 0.75, MinSpaceSavings: 0.10, MaxChainDepth: MaxChainDepth}
	default:
		return Config{SimilarityThreshold: DefaultSimilarityThreshold, MinSpaceSavings: DefaultMinSpaceSavings, MaxChainDepth: MaxChainDepth}
	}
}

// Metadata is the sidecar record MediaGit keeps alongside a chunked or
// delta-encoded object: whether it is a delta at all, what it's based on,
// and its position in that base's chain.
type Metadata struct {
	BaseHash     oid.Oid
	ChainDepth   int
	OriginalSize uint64
	DeltaSize    uint64
	IsDelta      bool
	Similarity   float64
	SpaceSavings float64
}

// FullMetadata returns the metadata for a version stored in full (no
// base, chain depth zero).
func FullMetadata(hash oid.Oid, size uint64) Metadata {
	return Metadata{
		BaseHash:     hash,
		ChainDepth:   0,
		OriginalSize: size,
		DeltaSize:    size,
		IsDelta:      false,
		Similarity:   1.0,
		SpaceSavings: 0,
	}
}

// DeltaMetadata returns the metadata for a version stored as a delta
// against baseHash, whose own chain depth is baseChainDepth.
func DeltaMetadata(baseHash oid.Oid, baseChainDepth int, originalSize, deltaSize uint64, similarity float64) Metadata {
	var savings float64
	if originalSize > 0 {
		savings = float64(originalSize-deltaSize) / float64(originalSize)
	}
	return Metadata{
		BaseHash:     baseHash,
		ChainDepth:   baseChainDepth + 1,
		OriginalSize: originalSize,
		DeltaSize:    deltaSize,
		IsDelta:      true,
		Similarity:   similarity,
		SpaceSavings: savings,
	}
}

// IsAtMaxDepth reports whether m's chain has reached MaxChainDepth, after
// which a new write must store a full object instead of another delta.
func (m Metadata) IsAtMaxDepth() bool {
	return m.ChainDepth >= MaxChainDepth
}

// CompressionRatio is m's stored size relative to its reconstructed size.
func (m Metadata) CompressionRatio() float64 {
	if m.OriginalSize == 0 {
		return 1.0
	}
	return float64(m.DeltaSize) / float64(m.OriginalSize)
}

// ChainTracker maps each stored object's Oid to its delta metadata, and
// answers chain-depth and best-base questions so writers never exceed
// MaxChainDepth and readers never loop on a corrupt cycle.
type ChainTracker struct {
	metadata map[oid.Oid]Metadata
}

// NewChainTracker returns an empty tracker.
func NewChainTracker() *ChainTracker {
	return &ChainTracker{metadata: make(map[oid.Oid]Metadata)}
}

// Register records metadata for hash, overwriting any prior entry.
func (t *ChainTracker) Register(hash oid.Oid, meta Metadata) {
	t.metadata[hash] = meta
}

// Get returns the metadata registered for hash, if any.
func (t *ChainTracker) Get(hash oid.Oid) (Metadata, bool) {
	meta, ok := t.metadata[hash]
	return meta, ok
}

// FindBestBase picks the shallowest-chained candidate that hasn't already
// reached maxDepth, since a shallower base leaves the most chain budget
// for the new write. It returns ok=false if no candidate has metadata, or
// every candidate with metadata is already at maxDepth.
func (t *ChainTracker) FindBestBase(candidates []oid.Oid, maxDepth int) (oid.Oid, bool) {
	var best oid.Oid
	bestDepth := -1
	for _, c := range candidates {
		meta, ok := t.metadata[c]
		if !ok {
			continue
		}
		if meta.ChainDepth >= maxDepth {
			continue
		}
		if bestDepth == -1 || meta.ChainDepth < bestDepth {
			best = c
			bestDepth = meta.ChainDepth
		}
	}
	return best, bestDepth != -1
}

// GetChain walks base links from hash back to its root full object,
// returning the chain in [hash, ..., root] order. It errors on missing
// metadata and on a cycle (a base link that revisits a hash already seen
// in this walk), which the depth field alone cannot rule out if metadata
// is ever corrupted on disk.
func (t *ChainTracker) GetChain(hash oid.Oid) ([]oid.Oid, error) {
	var chain []oid.Oid
	seen := make(map[oid.Oid]bool)
	current := hash

	for {
		if seen[current] {
			return nil, fmt.Errorf("delta: cycle detected in chain at %s", current)
		}
		seen[current] = true
		chain = append(chain, current)

		meta, ok := t.metadata[current]
		if !ok {
			return nil, fmt.Errorf("delta: missing metadata for %s", current)
		}
		if meta.ChainDepth == 0 {
			return chain, nil
		}
		if meta.BaseHash == current {
			return nil, fmt.Errorf("delta: %s references itself as its own base", current)
		}
		current = meta.BaseHash
	}
}
