package objects

import (
	"testing"

	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeAddEntryRejectsEmptyName(t *testing.T) {
	tr := NewTree()
	err := tr.AddEntry("", ModeRegular, oid.FromBytes([]byte("x")))
	assert.Error(t, err)
}

func TestTreeAddEntryRejectsDuplicateName(t *testing.T) {
	tr := NewTree()
	require.NoError(t, tr.AddEntry("readme.txt", ModeRegular, oid.FromBytes([]byte("a"))))
	err := tr.AddEntry("readme.txt", ModeRegular, oid.FromBytes([]byte("b")))
	assert.Error(t, err)
}

func TestTreeEntriesAreNameSorted(t *testing.T) {
	tr := NewTree()
	require.NoError(t, tr.AddEntry("zeta.mov", ModeRegular, oid.FromBytes([]byte("z"))))
	require.NoError(t, tr.AddEntry("alpha.png", ModeRegular, oid.FromBytes([]byte("a"))))
	require.NoError(t, tr.AddEntry("mid.wav", ModeRegular, oid.FromBytes([]byte("m"))))

	entries := tr.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "alpha.png", entries[0].Name)
	assert.Equal(t, "mid.wav", entries[1].Name)
	assert.Equal(t, "zeta.mov", entries[2].Name)
}

func TestTreeSerializeIsDeterministic(t *testing.T) {
	build := func() *Tree {
		tr := NewTree()
		require.NoError(t, tr.AddEntry("b.bin", ModeRegular, oid.FromBytes([]byte("b"))))
		require.NoError(t, tr.AddEntry("a.bin", ModeExecutable, oid.FromBytes([]byte("a"))))
		return tr
	}
	first := build()
	second := build()
	assert.Equal(t, first.Serialize(), second.Serialize())
	assert.Equal(t, first.Oid(), second.Oid())
}

func TestTreeRoundTrip(t *testing.T) {
	tr := NewTree()
	require.NoError(t, tr.AddEntry("clip.mp4", ModeRegular, oid.FromBytes([]byte("clip"))))
	require.NoError(t, tr.AddEntry("run.sh", ModeExecutable, oid.FromBytes([]byte("run"))))
	require.NoError(t, tr.AddEntry("link", ModeSymlink, oid.FromBytes([]byte("link"))))
	require.NoError(t, tr.AddEntry("subdir", ModeDirectory, oid.FromBytes([]byte("subdir"))))

	data := tr.Serialize()
	parsed, err := ParseTree(data)
	require.NoError(t, err)

	require.Equal(t, tr.Entries(), parsed.Entries())
	assert.Equal(t, tr.Oid(), parsed.Oid())
}

func TestTreeLookup(t *testing.T) {
	tr := NewTree()
	id := oid.FromBytes([]byte("found"))
	require.NoError(t, tr.AddEntry("found.txt", ModeRegular, id))

	entry, ok := tr.Lookup("found.txt")
	require.True(t, ok)
	assert.Equal(t, id, entry.Oid)

	_, ok = tr.Lookup("missing.txt")
	assert.False(t, ok)
}

func TestParseTreeRejectsTruncatedOid(t *testing.T) {
	data := []byte("100644 x\x00short")
	_, err := ParseTree(data)
	assert.Error(t, err)
}

func TestParseTreeRejectsMissingNullByte(t *testing.T) {
	data := []byte("100644 nonullbyte")
	_, err := ParseTree(data)
	assert.Error(t, err)
}
