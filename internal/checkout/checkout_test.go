package checkout

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/mediagit/internal/objects"
	"github.com/fenilsonani/mediagit/internal/odb"
	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/fenilsonani/mediagit/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, *odb.Odb, string, context.Context) {
	t.Helper()
	ctx := context.Background()
	storageDir := t.TempDir()
	backend, err := storage.NewLocal(storageDir, zerolog.Nop())
	require.NoError(t, err)
	o, err := odb.New(backend, 128, zerolog.Nop())
	require.NoError(t, err)

	root := t.TempDir()
	return New(o, root, zerolog.Nop()), o, root, ctx
}

func testSignature() objects.Signature {
	return objects.Signature{Name: "Ada Lovelace", Email: "ada@example.com", When: time.Unix(1700000000, 0)}
}

func writeBlob(t *testing.T, ctx context.Context, o *odb.Odb, content string) oid.Oid {
	t.Helper()
	id, err := o.Write(ctx, objects.KindBlob, []byte(content))
	require.NoError(t, err)
	return id
}

func writeTree(t *testing.T, ctx context.Context, o *odb.Odb, tree *objects.Tree) oid.Oid {
	t.Helper()
	id, err := o.Write(ctx, objects.KindTree, tree.Serialize())
	require.NoError(t, err)
	return id
}

func writeCommit(t *testing.T, ctx context.Context, o *odb.Odb, c *objects.Commit) oid.Oid {
	t.Helper()
	id, err := o.Write(ctx, objects.KindCommit, c.Serialize())
	require.NoError(t, err)
	return id
}

func TestCheckoutCommitWritesSingleFile(t *testing.T) {
	e, o, root, ctx := newTestEngine(t)

	blobID := writeBlob(t, ctx, o, "Hello, MediaGit!")
	tree := objects.NewTree()
	require.NoError(t, tree.AddEntry("README.md", objects.ModeRegular, blobID))
	treeID := writeTree(t, ctx, o, tree)

	commit := &objects.Commit{Tree: treeID, Author: testSignature(), Committer: testSignature(), Message: "initial"}
	commitID := writeCommit(t, ctx, o, commit)

	updated, err := e.CheckoutCommit(ctx, commitID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	got, err := os.ReadFile(filepath.Join(root, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "Hello, MediaGit!", string(got))
}

func TestCheckoutCommitRemovesFilesNotInTargetTree(t *testing.T) {
	e, o, root, ctx := newTestEngine(t)

	// First commit: a.txt
	blobA := writeBlob(t, ctx, o, "file A")
	tree1 := objects.NewTree()
	require.NoError(t, tree1.AddEntry("a.txt", objects.ModeRegular, blobA))
	tree1ID := writeTree(t, ctx, o, tree1)
	commit1 := &objects.Commit{Tree: tree1ID, Author: testSignature(), Committer: testSignature(), Message: "c1"}
	commit1ID := writeCommit(t, ctx, o, commit1)

	_, err := e.CheckoutCommit(ctx, commit1ID)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(root, "a.txt"))

	// Second commit: b.txt only, at the top level
	blobB := writeBlob(t, ctx, o, "file B")
	tree2 := objects.NewTree()
	require.NoError(t, tree2.AddEntry("b.txt", objects.ModeRegular, blobB))
	tree2ID := writeTree(t, ctx, o, tree2)
	commit2 := &objects.Commit{Tree: tree2ID, Parents: []oid.Oid{commit1ID}, Author: testSignature(), Committer: testSignature(), Message: "c2"}
	commit2ID := writeCommit(t, ctx, o, commit2)

	_, err = e.CheckoutCommit(ctx, commit2ID)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(root, "a.txt"))
	assert.FileExists(t, filepath.Join(root, "b.txt"))
}

func TestCheckoutCommitPrunesEmptyDirectories(t *testing.T) {
	e, o, root, ctx := newTestEngine(t)

	blobNested := writeBlob(t, ctx, o, "nested content")
	subtree := objects.NewTree()
	require.NoError(t, subtree.AddEntry("file.txt", objects.ModeRegular, blobNested))
	subtreeID := writeTree(t, ctx, o, subtree)

	tree1 := objects.NewTree()
	require.NoError(t, tree1.AddEntry("dir", objects.ModeDirectory, subtreeID))
	tree1ID := writeTree(t, ctx, o, tree1)
	commit1 := &objects.Commit{Tree: tree1ID, Author: testSignature(), Committer: testSignature(), Message: "c1"}
	commit1ID := writeCommit(t, ctx, o, commit1)

	_, err := e.CheckoutCommit(ctx, commit1ID)
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(root, "dir"))

	blobTop := writeBlob(t, ctx, o, "top level")
	tree2 := objects.NewTree()
	require.NoError(t, tree2.AddEntry("top.txt", objects.ModeRegular, blobTop))
	tree2ID := writeTree(t, ctx, o, tree2)
	commit2 := &objects.Commit{Tree: tree2ID, Parents: []oid.Oid{commit1ID}, Author: testSignature(), Committer: testSignature(), Message: "c2"}
	commit2ID := writeCommit(t, ctx, o, commit2)

	_, err = e.CheckoutCommit(ctx, commit2ID)
	require.NoError(t, err)

	assert.NoDirExists(t, filepath.Join(root, "dir"))
}

func TestCheckoutCommitSkipsUnchangedFileContent(t *testing.T) {
	e, o, root, ctx := newTestEngine(t)

	blobID := writeBlob(t, ctx, o, "stable content")
	tree := objects.NewTree()
	require.NoError(t, tree.AddEntry("stable.txt", objects.ModeRegular, blobID))
	treeID := writeTree(t, ctx, o, tree)
	commit := &objects.Commit{Tree: treeID, Author: testSignature(), Committer: testSignature(), Message: "c1"}
	commitID := writeCommit(t, ctx, o, commit)

	_, err := e.CheckoutCommit(ctx, commitID)
	require.NoError(t, err)

	path := filepath.Join(root, "stable.txt")
	before, err := os.Stat(path)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	// Checking out the same commit again should not rewrite the file.
	_, err = e.CheckoutCommit(ctx, commitID)
	require.NoError(t, err)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestCheckoutDiffSameCommitIsNoop(t *testing.T) {
	e, o, _, ctx := newTestEngine(t)

	blobID := writeBlob(t, ctx, o, "content")
	tree := objects.NewTree()
	require.NoError(t, tree.AddEntry("file.txt", objects.ModeRegular, blobID))
	treeID := writeTree(t, ctx, o, tree)
	commit := &objects.Commit{Tree: treeID, Author: testSignature(), Committer: testSignature(), Message: "c1"}
	commitID := writeCommit(t, ctx, o, commit)

	stats, err := e.CheckoutDiff(ctx, commitID, commitID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesChanged())
}

func TestCheckoutDiffClassifiesAddedModifiedDeletedUnchanged(t *testing.T) {
	e, o, root, ctx := newTestEngine(t)

	blobUnchanged := writeBlob(t, ctx, o, "unchanged content")
	blobChangeFrom := writeBlob(t, ctx, o, "will change")
	tree1 := objects.NewTree()
	require.NoError(t, tree1.AddEntry("unchanged.txt", objects.ModeRegular, blobUnchanged))
	require.NoError(t, tree1.AddEntry("changed.txt", objects.ModeRegular, blobChangeFrom))
	tree1ID := writeTree(t, ctx, o, tree1)
	commit1 := &objects.Commit{Tree: tree1ID, Author: testSignature(), Committer: testSignature(), Message: "c1"}
	commit1ID := writeCommit(t, ctx, o, commit1)

	_, err := e.CheckoutCommit(ctx, commit1ID)
	require.NoError(t, err)

	blobChangeTo := writeBlob(t, ctx, o, "new content")
	blobAdded := writeBlob(t, ctx, o, "brand new")
	tree2 := objects.NewTree()
	require.NoError(t, tree2.AddEntry("unchanged.txt", objects.ModeRegular, blobUnchanged))
	require.NoError(t, tree2.AddEntry("changed.txt", objects.ModeRegular, blobChangeTo))
	require.NoError(t, tree2.AddEntry("added.txt", objects.ModeRegular, blobAdded))
	tree2ID := writeTree(t, ctx, o, tree2)
	commit2 := &objects.Commit{Tree: tree2ID, Parents: []oid.Oid{commit1ID}, Author: testSignature(), Committer: testSignature(), Message: "c2"}
	commit2ID := writeCommit(t, ctx, o, commit2)

	stats, err := e.CheckoutDiff(ctx, commit1ID, commit2ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesAdded)
	assert.Equal(t, 1, stats.FilesModified)
	assert.Equal(t, 0, stats.FilesDeleted)
	assert.Equal(t, 1, stats.FilesUnchanged)

	got, err := os.ReadFile(filepath.Join(root, "changed.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new content", string(got))

	got, err = os.ReadFile(filepath.Join(root, "added.txt"))
	require.NoError(t, err)
	assert.Equal(t, "brand new", string(got))
}

func TestCheckoutDiffDeletesFilesAbsentFromTarget(t *testing.T) {
	e, o, root, ctx := newTestEngine(t)

	blobA := writeBlob(t, ctx, o, "file A")
	tree1 := objects.NewTree()
	require.NoError(t, tree1.AddEntry("a.txt", objects.ModeRegular, blobA))
	tree1ID := writeTree(t, ctx, o, tree1)
	commit1 := &objects.Commit{Tree: tree1ID, Author: testSignature(), Committer: testSignature(), Message: "c1"}
	commit1ID := writeCommit(t, ctx, o, commit1)

	_, err := e.CheckoutCommit(ctx, commit1ID)
	require.NoError(t, err)

	blobB := writeBlob(t, ctx, o, "file B")
	tree2 := objects.NewTree()
	require.NoError(t, tree2.AddEntry("b.txt", objects.ModeRegular, blobB))
	tree2ID := writeTree(t, ctx, o, tree2)
	commit2 := &objects.Commit{Tree: tree2ID, Parents: []oid.Oid{commit1ID}, Author: testSignature(), Committer: testSignature(), Message: "c2"}
	commit2ID := writeCommit(t, ctx, o, commit2)

	stats, err := e.CheckoutDiff(ctx, commit1ID, commit2ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesAdded)
	assert.Equal(t, 1, stats.FilesDeleted)

	assert.NoFileExists(t, filepath.Join(root, "a.txt"))
	assert.FileExists(t, filepath.Join(root, "b.txt"))
}

func TestApplyTreeOverlayDoesNotRemoveExistingFiles(t *testing.T) {
	e, o, root, ctx := newTestEngine(t)

	blobA := writeBlob(t, ctx, o, "base file")
	tree1 := objects.NewTree()
	require.NoError(t, tree1.AddEntry("base.txt", objects.ModeRegular, blobA))
	tree1ID := writeTree(t, ctx, o, tree1)
	commit1 := &objects.Commit{Tree: tree1ID, Author: testSignature(), Committer: testSignature(), Message: "c1"}
	commit1ID := writeCommit(t, ctx, o, commit1)
	_, err := e.CheckoutCommit(ctx, commit1ID)
	require.NoError(t, err)

	blobOverlay := writeBlob(t, ctx, o, "overlay file")
	tree2 := objects.NewTree()
	require.NoError(t, tree2.AddEntry("overlay.txt", objects.ModeRegular, blobOverlay))
	tree2ID := writeTree(t, ctx, o, tree2)
	commit2 := &objects.Commit{Tree: tree2ID, Author: testSignature(), Committer: testSignature(), Message: "overlay"}
	commit2ID := writeCommit(t, ctx, o, commit2)

	updated, err := e.ApplyTreeOverlay(ctx, commit2ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	assert.FileExists(t, filepath.Join(root, "base.txt"))
	assert.FileExists(t, filepath.Join(root, "overlay.txt"))
}

func TestStatsHelpers(t *testing.T) {
	s := Stats{FilesAdded: 2, FilesModified: 3, FilesDeleted: 1, FilesUnchanged: 10}
	assert.Equal(t, 6, s.FilesChanged())
	assert.Equal(t, 16, s.TotalFiles())
}
