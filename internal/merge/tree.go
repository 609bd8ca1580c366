package merge

import (
	"context"

	"github.com/fenilsonani/mediagit/internal/objects"
	"github.com/fenilsonani/mediagit/internal/oid"
)

// mergeTreeRecursive classifies every path present in base, ours, or
// theirs via (base, ours, theirs) presence and Oid equality (spec.md
// §4.11 step 4, Recursive). Non-conflicting changes merge automatically;
// a directory entry that changed on both sides is recursed into rather
// than treated as an unconditional conflict (an enhancement over the
// original's flat single-level classification, since a real filesystem
// tree is multiple levels deep and a conflict confined to one file
// should not block the rest of a changed directory from merging).
func (e *Engine) mergeTreeRecursive(ctx context.Context, base, ours, theirs *objects.Tree, prefix string) (*objects.Tree, []Conflict, error) {
	merged := objects.NewTree()
	var conflicts []Conflict

	for _, name := range unionNames(base, ours, theirs) {
		baseEntry, hasBase := lookup(base, name)
		oursEntry, hasOurs := lookup(ours, name)
		theirsEntry, hasTheirs := lookup(theirs, name)
		path := joinPath(prefix, name)

		switch {
		case hasBase && hasOurs && hasTheirs:
			if oursEntry.Oid == theirsEntry.Oid {
				if err := merged.AddEntry(name, oursEntry.Mode, oursEntry.Oid); err != nil {
					return nil, nil, err
				}
				continue
			}
			if baseEntry.Oid == oursEntry.Oid {
				if err := merged.AddEntry(name, theirsEntry.Mode, theirsEntry.Oid); err != nil {
					return nil, nil, err
				}
				continue
			}
			if baseEntry.Oid == theirsEntry.Oid {
				if err := merged.AddEntry(name, oursEntry.Mode, oursEntry.Oid); err != nil {
					return nil, nil, err
				}
				continue
			}
			// Both sides changed. If both are still directories, recurse
			// instead of declaring the whole subtree a conflict.
			if oursEntry.Mode == objects.ModeDirectory && theirsEntry.Mode == objects.ModeDirectory {
				subMerged, subConflicts, err := e.recurseSubtree(ctx, baseEntry, oursEntry, theirsEntry, path)
				if err != nil {
					return nil, nil, err
				}
				if len(subConflicts) > 0 {
					conflicts = append(conflicts, subConflicts...)
					continue
				}
				if err := merged.AddEntry(name, objects.ModeDirectory, subMerged); err != nil {
					return nil, nil, err
				}
				continue
			}
			conflicts = append(conflicts, Conflict{Path: path, Base: &baseEntry, Ours: &oursEntry, Theirs: &theirsEntry})

		case hasBase && hasOurs && !hasTheirs:
			if baseEntry.Oid == oursEntry.Oid {
				continue // they deleted it, we didn't change it: accept deletion
			}
			conflicts = append(conflicts, Conflict{Path: path, Base: &baseEntry, Ours: &oursEntry})

		case hasBase && !hasOurs && hasTheirs:
			if baseEntry.Oid == theirsEntry.Oid {
				continue // we deleted it, they didn't change it: accept deletion
			}
			conflicts = append(conflicts, Conflict{Path: path, Base: &baseEntry, Theirs: &theirsEntry})

		case hasBase && !hasOurs && !hasTheirs:
			continue // both deleted it

		case !hasBase && hasOurs && hasTheirs:
			if oursEntry.Oid == theirsEntry.Oid {
				if err := merged.AddEntry(name, oursEntry.Mode, oursEntry.Oid); err != nil {
					return nil, nil, err
				}
				continue
			}
			conflicts = append(conflicts, Conflict{Path: path, Ours: &oursEntry, Theirs: &theirsEntry})

		case !hasBase && hasOurs && !hasTheirs:
			if err := merged.AddEntry(name, oursEntry.Mode, oursEntry.Oid); err != nil {
				return nil, nil, err
			}

		case !hasBase && !hasOurs && hasTheirs:
			if err := merged.AddEntry(name, theirsEntry.Mode, theirsEntry.Oid); err != nil {
				return nil, nil, err
			}
		}
	}

	return merged, conflicts, nil
}

func (e *Engine) recurseSubtree(ctx context.Context, base, ours, theirs objects.TreeEntry, path string) (oid.Oid, []Conflict, error) {
	baseTree, err := e.readTree(ctx, base.Oid)
	if err != nil {
		return oid.Oid{}, nil, err
	}
	oursTree, err := e.readTree(ctx, ours.Oid)
	if err != nil {
		return oid.Oid{}, nil, err
	}
	theirsTree, err := e.readTree(ctx, theirs.Oid)
	if err != nil {
		return oid.Oid{}, nil, err
	}

	merged, conflicts, err := e.mergeTreeRecursive(ctx, baseTree, oursTree, theirsTree, path)
	if err != nil {
		return oid.Oid{}, nil, err
	}
	if len(conflicts) > 0 {
		return oid.Oid{}, conflicts, nil
	}
	id, err := e.writeTree(ctx, merged)
	if err != nil {
		return oid.Oid{}, nil, err
	}
	return id, nil, nil
}

// mergeTreeOurs builds a tree preferring ours on every path, honoring
// our deletions and accepting their-only additions (spec.md §4.11,
// Ours).
func (e *Engine) mergeTreeOurs(ctx context.Context, base, ours, theirs *objects.Tree) (*objects.Tree, error) {
	merged := objects.NewTree()
	for _, name := range unionNames(base, ours, theirs) {
		_, hasBase := lookup(base, name)
		oursEntry, hasOurs := lookup(ours, name)
		theirsEntry, hasTheirs := lookup(theirs, name)

		switch {
		case hasOurs:
			if err := merged.AddEntry(name, oursEntry.Mode, oursEntry.Oid); err != nil {
				return nil, err
			}
		case hasBase && !hasOurs:
			continue // we deleted it: honor the deletion even if they kept it
		case !hasBase && hasTheirs:
			if err := merged.AddEntry(name, theirsEntry.Mode, theirsEntry.Oid); err != nil {
				return nil, err
			}
		}
	}
	return merged, nil
}

// mergeTreeTheirs is mergeTreeOurs with sides swapped (spec.md §4.11,
// Theirs).
func (e *Engine) mergeTreeTheirs(ctx context.Context, base, ours, theirs *objects.Tree) (*objects.Tree, error) {
	merged := objects.NewTree()
	for _, name := range unionNames(base, ours, theirs) {
		_, hasBase := lookup(base, name)
		oursEntry, hasOurs := lookup(ours, name)
		theirsEntry, hasTheirs := lookup(theirs, name)

		switch {
		case hasTheirs:
			if err := merged.AddEntry(name, theirsEntry.Mode, theirsEntry.Oid); err != nil {
				return nil, err
			}
		case hasBase && !hasTheirs:
			continue // they deleted it: honor the deletion even if we kept it
		case !hasBase && hasOurs:
			if err := merged.AddEntry(name, oursEntry.Mode, oursEntry.Oid); err != nil {
				return nil, err
			}
		}
	}
	return merged, nil
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
