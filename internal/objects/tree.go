package objects

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/fenilsonani/mediagit/internal/oid"
)

// TreeEntry is one name -> (mode, oid) mapping within a Tree.
type TreeEntry struct {
	Name string
	Mode FileMode
	Oid  oid.Oid
}

// Tree is an ordered mapping from name to TreeEntry, representing a
// directory. Entries are kept sorted by name so that the serialized byte
// form is a deterministic function of the entry set (spec.md §3).
type Tree struct {
	entries []TreeEntry
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// AddEntry inserts a named entry, rejecting empty names and duplicates.
func (t *Tree) AddEntry(name string, mode FileMode, id oid.Oid) error {
	if name == "" {
		return fmt.Errorf("objects: tree entry name cannot be empty")
	}
	for _, e := range t.entries {
		if e.Name == name {
			return fmt.Errorf("objects: duplicate tree entry name: %s", name)
		}
	}
	t.entries = append(t.entries, TreeEntry{Name: name, Mode: mode, Oid: id})
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].Name < t.entries[j].Name })
	return nil
}

// Entries returns the tree's entries in canonical (name-sorted) order.
func (t *Tree) Entries() []TreeEntry {
	return t.entries
}

// Lookup returns the entry with the given name, if present.
func (t *Tree) Lookup(name string) (TreeEntry, bool) {
	for _, e := range t.entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}

// Serialize renders the tree's canonical byte form:
// "<mode-octal> <name>\0<32-byte oid>" per entry, entries name-sorted.
func (t *Tree) Serialize() []byte {
	var buf bytes.Buffer
	for _, e := range t.entries {
		fmt.Fprintf(&buf, "%o %s\x00", e.Mode, e.Name)
		buf.Write(e.Oid[:])
	}
	return buf.Bytes()
}

// Oid computes the tree's content Oid from its canonical serialization.
func (t *Tree) Oid() oid.Oid {
	return oid.FromBytes(t.Serialize())
}

// ParseTree decodes a tree from its canonical byte form.
func ParseTree(data []byte) (*Tree, error) {
	t := &Tree{}
	for len(data) > 0 {
		spaceIdx := bytes.IndexByte(data, ' ')
		if spaceIdx == -1 {
			return nil, fmt.Errorf("objects: invalid tree format: no space found")
		}
		mode, err := strconv.ParseUint(string(data[:spaceIdx]), 8, 32)
		if err != nil {
			return nil, fmt.Errorf("objects: invalid tree entry mode: %w", err)
		}
		data = data[spaceIdx+1:]

		nullIdx := bytes.IndexByte(data, 0)
		if nullIdx == -1 {
			return nil, fmt.Errorf("objects: invalid tree format: no null byte found")
		}
		name := string(data[:nullIdx])
		data = data[nullIdx+1:]

		if len(data) < oid.Size {
			return nil, fmt.Errorf("objects: invalid tree format: truncated oid")
		}
		var id oid.Oid
		copy(id[:], data[:oid.Size])
		data = data[oid.Size:]

		t.entries = append(t.entries, TreeEntry{Name: name, Mode: FileMode(mode), Oid: id})
	}
	// Entries are already name-sorted on disk (invariant of Serialize), but
	// re-sort defensively in case of a hand-edited or foreign tree.
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].Name < t.entries[j].Name })
	return t, nil
}
