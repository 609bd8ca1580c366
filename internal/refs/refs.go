// Package refs implements MediaGit's reference database: named pointers
// (direct Oids and symbolic targets) stored directly on the filesystem
// under a repository root, with atomic writes and depth-limited
// symbolic resolution.
//
// Grounded on the teacher's internal/core/refs/refs.go (RefManager):
// HEAD/ref-file layout, lock-file-then-rename atomic writes, and
// namespace-prefix expansion, generalized from Git's SHA-1 ObjectID to
// MediaGit's oid.Oid and from Git's ref-name grammar to spec.md §4.9's
// simpler direct/symbolic Reference type.
package refs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fenilsonani/mediagit/internal/oid"
)

// maxSymbolicDepth bounds symbolic ref resolution so a cycle (or an
// absurdly long chain) fails fast instead of looping forever.
const maxSymbolicDepth = 10

// Kind distinguishes a direct ref (points at an Oid) from a symbolic one
// (points at another ref by name).
type Kind int

const (
	KindDirect Kind = iota
	KindSymbolic
)

// Reference is one named pointer: exactly one of Oid or Target is
// meaningful, selected by Kind (spec.md §4.9).
type Reference struct {
	Name   string
	Kind   Kind
	Oid    oid.Oid
	Target string
}

// ErrNotFound is returned when a named reference does not exist.
var ErrNotFound = errors.New("refs: reference not found")

// ErrNonFastForward is returned by Update when force is false and the
// existing direct ref's Oid differs from newOid.
var ErrNonFastForward = errors.New("refs: update is not a fast-forward")

// ErrCycle is returned when symbolic resolution exceeds maxSymbolicDepth
// without reaching a direct ref.
var ErrCycle = errors.New("refs: symbolic reference cycle or chain too deep")

// DB is the reference database rooted at a repository directory. HEAD
// lives at <root>/HEAD; branches/tags/remotes live under
// <root>/refs/....
type DB struct {
	root string
}

// New returns a reference database rooted at root, which must be the
// repository's top-level directory (the same one the ODB's backend is
// rooted under for a Local backend).
func New(root string) *DB {
	return &DB{root: root}
}

// Normalize expands a short name to its canonical path: "HEAD" passes
// through unchanged, anything already prefixed with "refs/" passes
// through unchanged, and anything else is assumed to be a branch name
// and expanded to "refs/heads/<name>" (spec.md §4.9).
func Normalize(name string) string {
	if name == "HEAD" || strings.HasPrefix(name, "refs/") {
		return name
	}
	return "refs/heads/" + name
}

func (db *DB) path(name string) string {
	return filepath.Join(db.root, filepath.FromSlash(name))
}

// Read loads and parses the reference stored at name (after
// normalization), without following symbolic targets.
func (db *DB) Read(name string) (Reference, error) {
	name = Normalize(name)
	raw, err := os.ReadFile(db.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Reference{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Reference{}, fmt.Errorf("refs: read %s: %w", name, err)
	}
	return parse(name, raw)
}

func parse(name string, raw []byte) (Reference, error) {
	text := strings.TrimSpace(string(raw))
	if target, ok := strings.CutPrefix(text, "ref: "); ok {
		return Reference{Name: name, Kind: KindSymbolic, Target: strings.TrimSpace(target)}, nil
	}
	id, err := oid.Parse(text)
	if err != nil {
		return Reference{}, fmt.Errorf("refs: %s: invalid direct reference content %q: %w", name, text, err)
	}
	return Reference{Name: name, Kind: KindDirect, Oid: id}, nil
}

func serialize(r Reference) []byte {
	switch r.Kind {
	case KindSymbolic:
		return []byte(fmt.Sprintf("ref: %s\n", r.Target))
	default:
		return []byte(fmt.Sprintf("%s\n", r.Oid.String()))
	}
}

// Resolve follows name to its final Oid, transparently walking symbolic
// references up to maxSymbolicDepth hops.
func (db *DB) Resolve(name string) (oid.Oid, error) {
	current := Normalize(name)
	for depth := 0; depth <= maxSymbolicDepth; depth++ {
		ref, err := db.Read(current)
		if err != nil {
			return oid.Oid{}, err
		}
		if ref.Kind == KindDirect {
			return ref.Oid, nil
		}
		current = Normalize(ref.Target)
	}
	return oid.Oid{}, fmt.Errorf("%w: starting at %s", ErrCycle, Normalize(name))
}

// WriteSymbolic points name at target (e.g. HEAD -> refs/heads/main),
// atomically.
func (db *DB) WriteSymbolic(name, target string) error {
	return db.writeAtomic(Normalize(name), Reference{Kind: KindSymbolic, Target: Normalize(target)})
}

// Update sets name to point directly at newOid. Unless force is true,
// it refuses to move an existing direct ref away from its current Oid
// (spec.md §4.9's fast-forward safety contract: this function only
// guards "did the value change under us", not graph-reachability
// fast-forward-ness — callers layer a real ancestry check on top when
// they need one).
func (db *DB) Update(name string, newOid oid.Oid, force bool) error {
	name = Normalize(name)
	if !force {
		if existing, err := db.Read(name); err == nil {
			if existing.Kind == KindDirect && existing.Oid != newOid {
				return fmt.Errorf("%w: %s is at %s, refusing to move to %s without force",
					ErrNonFastForward, name, existing.Oid, newOid)
			}
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return db.writeAtomic(name, Reference{Kind: KindDirect, Oid: newOid})
}

// writeAtomic writes ref to its ref file via a lock file, fsync, and
// rename, grounded on the teacher's RefManager.WriteRef.
func (db *DB) writeAtomic(name string, ref Reference) error {
	refPath := db.path(name)
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("refs: create directory for %s: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("refs: acquire lock for %s: %w", name, err)
	}
	defer os.Remove(lockPath)

	ref.Name = name
	if _, err := lockFile.Write(serialize(ref)); err != nil {
		lockFile.Close()
		return fmt.Errorf("refs: write lock file for %s: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		lockFile.Close()
		return fmt.Errorf("refs: sync lock file for %s: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		return fmt.Errorf("refs: close lock file for %s: %w", name, err)
	}
	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("refs: rename lock file into place for %s: %w", name, err)
	}
	return nil
}

// Delete removes a reference. Deleting a missing reference is not an
// error (spec.md §4 lifecycle: "deletion removes the ref, not the
// objects it reached").
func (db *DB) Delete(name string) error {
	name = Normalize(name)
	err := os.Remove(db.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("refs: delete %s: %w", name, err)
	}
	return nil
}

// Exists reports whether name (after normalization) currently resolves
// to a stored ref file, without following symbolic targets.
func (db *DB) Exists(name string) bool {
	_, err := os.Stat(db.path(Normalize(name)))
	return err == nil
}

// List walks namespace (e.g. "refs/heads") recursively and returns every
// ref name found under it, sorted for deterministic output. A missing
// namespace directory yields an empty list, not an error.
func (db *DB) List(namespace string) ([]string, error) {
	dir := db.path(namespace)
	var names []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || strings.HasSuffix(path, ".lock") {
			return nil
		}
		rel, err := filepath.Rel(db.root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("refs: list %s: %w", namespace, err)
	}
	sort.Strings(names)
	return names, nil
}
