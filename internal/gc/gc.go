// Package gc implements MediaGit's garbage collector: a reachability
// sweep over the commit DAG that frees loose objects, chunk manifests,
// and chunks no longer referenced by any ref (spec.md §4.12).
//
// Grounded on the teacher's cmd/vcs/log.go (commit-parent-walk style: no
// dedicated GC exists anywhere in the retrieved corpus, so the walk
// itself follows log.go's idiom of reading a commit, following its
// parents, and reading its tree) and on internal/merge's multi-parent
// BFS (a GC reachability walk has exactly the same "don't stop at
// parents[0]" requirement a merge base search does).
package gc

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fenilsonani/mediagit/internal/objects"
	"github.com/fenilsonani/mediagit/internal/odb"
	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/fenilsonani/mediagit/internal/refs"
)

// branchNamespace and tagNamespace are the ref namespaces walked to seed
// reachability, alongside HEAD itself.
const (
	branchNamespace = "refs/heads"
	tagNamespace    = "refs/tags"
)

// Engine runs reachability sweeps against a repository's object database
// and reference store.
type Engine struct {
	odb    *odb.Odb
	refs   *refs.DB
	logger zerolog.Logger
}

// New returns a GC engine operating over o and r.
func New(o *odb.Odb, r *refs.DB, logger zerolog.Logger) *Engine {
	return &Engine{odb: o, refs: r, logger: logger.With().Str("component", "gc").Logger()}
}

// Result summarizes one Collect pass (spec.md §4.12: "The GC command
// wraps this with dry-run, confirmation, per-backend deletion, and
// optional repack").
type Result struct {
	DryRun bool

	LooseObjectsScanned int
	LooseObjectsDeleted int
	ManifestsScanned    int
	ManifestsDeleted    int
	ChunksScanned       int
	ChunksDeleted       int
}

// ObjectsToDelete is the total count of loose objects and manifests
// Collect found (or would find) unreachable. The CLI consults this
// against the confirmation threshold (100 objects without --yes).
func (r Result) ObjectsToDelete() int {
	if r.DryRun {
		return r.LooseObjectsScanned + r.ManifestsScanned
	}
	return r.LooseObjectsDeleted + r.ManifestsDeleted
}

// Collect walks every ref to build the live object and chunk sets, then
// deletes (or, if dryRun, merely counts) anything unreachable. Deletion
// is idempotent: running Collect twice in a row with no intervening
// writes deletes nothing the second time.
func (e *Engine) Collect(ctx context.Context, dryRun bool) (Result, error) {
	liveObjects, liveChunks, err := e.reachable(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("gc: build reachable set: %w", err)
	}

	result := Result{DryRun: dryRun}

	loose, err := e.odb.LooseObjects(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("gc: list loose objects: %w", err)
	}
	for _, id := range loose {
		if liveObjects[id] {
			continue
		}
		result.LooseObjectsScanned++
		if dryRun {
			continue
		}
		if err := e.odb.DeleteLoose(ctx, id); err != nil {
			return Result{}, fmt.Errorf("gc: delete loose object %s: %w", id, err)
		}
		result.LooseObjectsDeleted++
	}

	manifests, err := e.odb.ManifestObjects(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("gc: list manifests: %w", err)
	}
	for _, id := range manifests {
		if liveObjects[id] {
			continue
		}
		result.ManifestsScanned++
		if dryRun {
			continue
		}
		if err := e.odb.DeleteManifest(ctx, id); err != nil {
			return Result{}, fmt.Errorf("gc: delete manifest %s: %w", id, err)
		}
		result.ManifestsDeleted++
	}

	chunks, err := e.odb.ChunkObjects(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("gc: list chunks: %w", err)
	}
	for _, id := range chunks {
		if liveChunks[id] {
			continue
		}
		result.ChunksScanned++
		if dryRun {
			continue
		}
		if err := e.odb.DeleteChunk(ctx, id); err != nil {
			return Result{}, fmt.Errorf("gc: delete chunk %s: %w", id, err)
		}
		result.ChunksDeleted++
	}

	e.logger.Info().
		Bool("dry_run", dryRun).
		Int("loose_scanned", result.LooseObjectsScanned).
		Int("loose_deleted", result.LooseObjectsDeleted).
		Int("manifests_scanned", result.ManifestsScanned).
		Int("manifests_deleted", result.ManifestsDeleted).
		Int("chunks_scanned", result.ChunksScanned).
		Int("chunks_deleted", result.ChunksDeleted).
		Msg("gc collect complete")
	return result, nil
}

// reachable returns the set of live object Oids (commits, trees, blobs
// and manifests reachable from HEAD and every branch/tag) and the set
// of live chunk Oids (those referenced by a live blob's manifest).
func (e *Engine) reachable(ctx context.Context) (map[oid.Oid]bool, map[oid.Oid]bool, error) {
	liveObjects := make(map[oid.Oid]bool)
	liveChunks := make(map[oid.Oid]bool)

	tips, err := e.startingTips()
	if err != nil {
		return nil, nil, err
	}

	queue := append([]oid.Oid(nil), tips...)
	visitedCommits := make(map[oid.Oid]bool)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visitedCommits[id] {
			continue
		}
		visitedCommits[id] = true

		commit, err := e.readCommit(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		liveObjects[id] = true

		if err := e.walkTree(ctx, commit.Tree, liveObjects, liveChunks); err != nil {
			return nil, nil, err
		}
		for _, parent := range commit.Parents {
			if !visitedCommits[parent] {
				queue = append(queue, parent)
			}
		}
	}

	return liveObjects, liveChunks, nil
}

// startingTips resolves HEAD plus every branch and tag to their commit
// Oids. A ref that fails to resolve (dangling symbolic HEAD on an empty
// repository, for instance) is skipped rather than treated as an error,
// since an unborn repository legitimately has nothing to preserve yet.
func (e *Engine) startingTips() ([]oid.Oid, error) {
	var names []string

	if _, err := e.refs.Read("HEAD"); err == nil {
		names = append(names, "HEAD")
	} else if !errors.Is(err, refs.ErrNotFound) {
		return nil, err
	}

	for _, namespace := range []string{branchNamespace, tagNamespace} {
		found, err := e.refs.List(namespace)
		if err != nil {
			return nil, err
		}
		names = append(names, found...)
	}

	var tips []oid.Oid
	seen := make(map[oid.Oid]bool)
	for _, name := range names {
		id, err := e.refs.Resolve(name)
		if err != nil {
			if errors.Is(err, refs.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("gc: resolve %s: %w", name, err)
		}
		if !seen[id] {
			seen[id] = true
			tips = append(tips, id)
		}
	}
	return tips, nil
}

// walkTree marks treeOid and every entry it reaches (directly, or via
// nested subtrees) as live, and for every blob entry checks whether it
// is chunked, folding its chunk Oids into liveChunks.
func (e *Engine) walkTree(ctx context.Context, treeOid oid.Oid, liveObjects, liveChunks map[oid.Oid]bool) error {
	if liveObjects[treeOid] {
		return nil
	}
	liveObjects[treeOid] = true

	tree, err := e.readTree(ctx, treeOid)
	if err != nil {
		return err
	}
	for _, entry := range tree.Entries() {
		if entry.Mode == objects.ModeDirectory {
			if err := e.walkTree(ctx, entry.Oid, liveObjects, liveChunks); err != nil {
				return err
			}
			continue
		}
		if liveObjects[entry.Oid] {
			continue
		}
		liveObjects[entry.Oid] = true

		chunkIDs, chunked, err := e.odb.ManifestChunkRefs(ctx, entry.Oid)
		if err != nil {
			return fmt.Errorf("gc: read manifest for %s: %w", entry.Oid, err)
		}
		if chunked {
			for _, c := range chunkIDs {
				liveChunks[c] = true
			}
		}
	}
	return nil
}

func (e *Engine) readCommit(ctx context.Context, id oid.Oid) (*objects.Commit, error) {
	data, err := e.odb.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("gc: read commit %s: %w", id, err)
	}
	commit, err := objects.ParseCommit(data)
	if err != nil {
		return nil, fmt.Errorf("gc: parse commit %s: %w", id, err)
	}
	return commit, nil
}

func (e *Engine) readTree(ctx context.Context, id oid.Oid) (*objects.Tree, error) {
	data, err := e.odb.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("gc: read tree %s: %w", id, err)
	}
	tree, err := objects.ParseTree(data)
	if err != nil {
		return nil, fmt.Errorf("gc: parse tree %s: %w", id, err)
	}
	return tree, nil
}
