package delta

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fenilsonani/mediagit/internal/oid"
)

// depthMarker separates the base hash from its chain depth in the
// current sidecar format. Splitting on this literal substring (rather
// than on every colon) is what lets a hex-encoded Oid and a depth share
// one line without either needing its own delimiter-escaping rules.
const depthMarker = ":depth:"

// EncodeSidecar renders m as the plain-text record stored alongside a
// delta-encoded object (key "deltas/<hex>.meta"): "base:<hex>:depth:<n>".
// Grounded on the original's own sidecar writer
// (mediagit-versioning/src/odb.rs: `format!("base:{}:depth:{}", ...)`),
// which persists nothing beyond the base hash and chain depth; the
// richer per-write metrics on Metadata (OriginalSize, DeltaSize,
// Similarity, SpaceSavings) live only in the in-process ChainTracker
// populated at write time and are not part of this on-disk record.
func EncodeSidecar(m Metadata) []byte {
	return []byte(fmt.Sprintf("base:%s:depth:%d", m.BaseHash.String(), m.ChainDepth))
}

// DecodeSidecar parses a metadata record. It accepts both the current
// "base:<hex>:depth:<n>" format and the legacy "base:<hex>" format
// (written before chain depth was tracked), treating a legacy record as
// chain depth 1 since a bare base reference only ever meant "one delta
// away from its base" — mirroring the original's own parser, which
// splits on the literal ":depth:" marker rather than rejecting the
// shorter legacy form.
func DecodeSidecar(data []byte) (Metadata, error) {
	line := strings.TrimSpace(string(data))

	rest, ok := strings.CutPrefix(line, "base:")
	if !ok {
		return Metadata{}, fmt.Errorf("delta: sidecar record missing \"base:\" prefix")
	}

	baseHex := rest
	depth := 1
	if idx := strings.Index(rest, depthMarker); idx >= 0 {
		baseHex = rest[:idx]
		depthStr := strings.TrimSpace(rest[idx+len(depthMarker):])
		parsed, err := strconv.Atoi(depthStr)
		if err != nil {
			return Metadata{}, fmt.Errorf("delta: sidecar chain depth: %w", err)
		}
		depth = parsed
	}

	base, err := oid.Parse(baseHex)
	if err != nil {
		return Metadata{}, fmt.Errorf("delta: sidecar base hash: %w", err)
	}

	return Metadata{BaseHash: base, ChainDepth: depth, IsDelta: true}, nil
}
