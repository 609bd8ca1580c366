// Package merge implements MediaGit's 3-way merge engine: trivial,
// already-up-to-date, fast-forward, and recursive/ours/theirs merge
// paths over the commit DAG (spec.md §4.11).
//
// Grounded on the teacher's cmd/vcs/merge.go (runMerge's trivial/
// fast-forward/3-way decision tree, isAncestor, findMergeBase — all
// generalized here from first-parent-only walks to full multi-parent
// BFS since a merge commit can have more than one parent) and on the
// strategy shape of original_source/crates/mediagit-versioning/src/
// merge.rs (MergeResult, per-path (base, ours, theirs) classification,
// build_merged_tree/_ours/_theirs).
package merge

import (
	"context"
	"fmt"

	"github.com/fenilsonani/mediagit/internal/objects"
	"github.com/fenilsonani/mediagit/internal/odb"
	"github.com/fenilsonani/mediagit/internal/oid"
)

// Strategy selects how conflicting paths are resolved.
type Strategy int

const (
	// StrategyRecursive automatically merges non-conflicting changes and
	// reports any path that genuinely conflicts, building no tree.
	StrategyRecursive Strategy = iota
	// StrategyOurs resolves every conflict in favor of ours.
	StrategyOurs
	// StrategyTheirs resolves every conflict in favor of theirs.
	StrategyTheirs
)

// Conflict describes one path where ours and theirs disagree in a way
// that can't be merged automatically: exactly the entries present on
// each side are non-nil.
type Conflict struct {
	Path   string
	Base   *objects.TreeEntry
	Ours   *objects.TreeEntry
	Theirs *objects.TreeEntry
}

// Result is the outcome of a merge operation (spec.md §4.11).
type Result struct {
	Tree          oid.Oid
	Conflicts     []Conflict
	Success       bool
	IsFastForward bool
}

// HasConflicts reports whether the merge left unresolved conflicts.
func (r Result) HasConflicts() bool { return len(r.Conflicts) > 0 }

// Engine runs merges against commits and trees stored in an Odb.
type Engine struct {
	odb *odb.Odb
}

// New returns a merge engine reading objects from o.
func New(o *odb.Odb) *Engine {
	return &Engine{odb: o}
}

// Merge merges theirs into ours using strategy (spec.md §4.11).
func (e *Engine) Merge(ctx context.Context, ours, theirs oid.Oid, strategy Strategy) (Result, error) {
	if ours == theirs {
		commit, err := e.readCommit(ctx, ours)
		if err != nil {
			return Result{}, err
		}
		return Result{Tree: commit.Tree, Success: true}, nil
	}

	theirsIsAncestor, err := e.IsAncestor(ctx, theirs, ours)
	if err != nil {
		return Result{}, err
	}
	if theirsIsAncestor {
		commit, err := e.readCommit(ctx, ours)
		if err != nil {
			return Result{}, err
		}
		return Result{Tree: commit.Tree, Success: true}, nil
	}

	oursIsAncestor, err := e.IsAncestor(ctx, ours, theirs)
	if err != nil {
		return Result{}, err
	}
	if oursIsAncestor {
		commit, err := e.readCommit(ctx, theirs)
		if err != nil {
			return Result{}, err
		}
		return Result{Tree: commit.Tree, Success: true, IsFastForward: true}, nil
	}

	base, found, err := e.FindMergeBase(ctx, ours, theirs)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Result{}, fmt.Errorf("merge: no common ancestor between %s and %s", ours, theirs)
	}

	baseCommit, err := e.readCommit(ctx, base)
	if err != nil {
		return Result{}, err
	}
	oursCommit, err := e.readCommit(ctx, ours)
	if err != nil {
		return Result{}, err
	}
	theirsCommit, err := e.readCommit(ctx, theirs)
	if err != nil {
		return Result{}, err
	}

	baseTree, err := e.readTree(ctx, baseCommit.Tree)
	if err != nil {
		return Result{}, err
	}
	oursTree, err := e.readTree(ctx, oursCommit.Tree)
	if err != nil {
		return Result{}, err
	}
	theirsTree, err := e.readTree(ctx, theirsCommit.Tree)
	if err != nil {
		return Result{}, err
	}

	switch strategy {
	case StrategyOurs:
		merged, err := e.mergeTreeOurs(ctx, baseTree, oursTree, theirsTree)
		if err != nil {
			return Result{}, err
		}
		treeID, err := e.writeTree(ctx, merged)
		if err != nil {
			return Result{}, err
		}
		return Result{Tree: treeID, Success: true}, nil
	case StrategyTheirs:
		merged, err := e.mergeTreeTheirs(ctx, baseTree, oursTree, theirsTree)
		if err != nil {
			return Result{}, err
		}
		treeID, err := e.writeTree(ctx, merged)
		if err != nil {
			return Result{}, err
		}
		return Result{Tree: treeID, Success: true}, nil
	default:
		merged, conflicts, err := e.mergeTreeRecursive(ctx, baseTree, oursTree, theirsTree, "")
		if err != nil {
			return Result{}, err
		}
		if len(conflicts) > 0 {
			return Result{Conflicts: conflicts, Success: false}, nil
		}
		treeID, err := e.writeTree(ctx, merged)
		if err != nil {
			return Result{}, err
		}
		return Result{Tree: treeID, Success: true}, nil
	}
}

// IsAncestor reports whether ancestor is reachable from descendant by
// walking parent edges (a commit is its own ancestor).
func (e *Engine) IsAncestor(ctx context.Context, ancestor, descendant oid.Oid) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	visited := map[oid.Oid]bool{descendant: true}
	queue := []oid.Oid{descendant}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		commit, err := e.readCommit(ctx, current)
		if err != nil {
			return false, err
		}
		for _, p := range commit.Parents {
			if p == ancestor {
				return true, nil
			}
			if !visited[p] {
				visited[p] = true
				queue = append(queue, p)
			}
		}
	}
	return false, nil
}

// FindMergeBase finds a lowest common ancestor of a and b via a
// synchronized breadth-first walk from both tips, returning the first
// commit found common to both frontiers (spec.md §4.11: "choose first
// if multiple"; DESIGN.md's multi-LCA Open Question decision: a
// first-found approximation, not the full set of merge bases).
func (e *Engine) FindMergeBase(ctx context.Context, a, b oid.Oid) (oid.Oid, bool, error) {
	if a == b {
		return a, true, nil
	}

	seenA := map[oid.Oid]bool{a: true}
	seenB := map[oid.Oid]bool{b: true}
	frontierA := []oid.Oid{a}
	frontierB := []oid.Oid{b}

	for len(frontierA) > 0 || len(frontierB) > 0 {
		next, err := e.expandFrontier(ctx, frontierA, seenA, seenB)
		if err != nil {
			return oid.Oid{}, false, err
		}
		if next.found {
			return next.common, true, nil
		}
		frontierA = next.frontier

		next, err = e.expandFrontier(ctx, frontierB, seenB, seenA)
		if err != nil {
			return oid.Oid{}, false, err
		}
		if next.found {
			return next.common, true, nil
		}
		frontierB = next.frontier
	}
	return oid.Oid{}, false, nil
}

type frontierStep struct {
	frontier []oid.Oid
	found    bool
	common   oid.Oid
}

func (e *Engine) expandFrontier(ctx context.Context, frontier []oid.Oid, seenOwn, seenOther map[oid.Oid]bool) (frontierStep, error) {
	var next []oid.Oid
	for _, id := range frontier {
		commit, err := e.readCommit(ctx, id)
		if err != nil {
			return frontierStep{}, err
		}
		for _, p := range commit.Parents {
			if seenOther[p] {
				return frontierStep{found: true, common: p}, nil
			}
			if !seenOwn[p] {
				seenOwn[p] = true
				next = append(next, p)
			}
		}
	}
	return frontierStep{frontier: next}, nil
}

func (e *Engine) readCommit(ctx context.Context, id oid.Oid) (*objects.Commit, error) {
	data, err := e.odb.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("merge: read commit %s: %w", id, err)
	}
	commit, err := objects.ParseCommit(data)
	if err != nil {
		return nil, fmt.Errorf("merge: parse commit %s: %w", id, err)
	}
	return commit, nil
}

func (e *Engine) readTree(ctx context.Context, id oid.Oid) (*objects.Tree, error) {
	data, err := e.odb.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("merge: read tree %s: %w", id, err)
	}
	tree, err := objects.ParseTree(data)
	if err != nil {
		return nil, fmt.Errorf("merge: parse tree %s: %w", id, err)
	}
	return tree, nil
}

func (e *Engine) writeTree(ctx context.Context, tree *objects.Tree) (oid.Oid, error) {
	id, err := e.odb.Write(ctx, objects.KindTree, tree.Serialize())
	if err != nil {
		return oid.Oid{}, fmt.Errorf("merge: write merged tree: %w", err)
	}
	return id, nil
}

func unionNames(trees ...*objects.Tree) []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range trees {
		if t == nil {
			continue
		}
		for _, entry := range t.Entries() {
			if !seen[entry.Name] {
				seen[entry.Name] = true
				names = append(names, entry.Name)
			}
		}
	}
	return names
}

func lookup(t *objects.Tree, name string) (objects.TreeEntry, bool) {
	if t == nil {
		return objects.TreeEntry{}, false
	}
	return t.Lookup(name)
}
