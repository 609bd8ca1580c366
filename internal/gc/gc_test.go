package gc

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/mediagit/internal/objects"
	"github.com/fenilsonani/mediagit/internal/odb"
	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/fenilsonani/mediagit/internal/refs"
	"github.com/fenilsonani/mediagit/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, *odb.Odb, *refs.DB, context.Context) {
	t.Helper()
	ctx := context.Background()
	backend, err := storage.NewLocal(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	o, err := odb.New(backend, 128, zerolog.Nop())
	require.NoError(t, err)
	r := refs.New(t.TempDir())
	return New(o, r, zerolog.Nop()), o, r, ctx
}

func testSignature() objects.Signature {
	return objects.Signature{Name: "Ada Lovelace", Email: "ada@example.com", When: time.Unix(1700000000, 0)}
}

func blob(t *testing.T, ctx context.Context, o *odb.Odb, content string) oid.Oid {
	t.Helper()
	id, err := o.Write(ctx, objects.KindBlob, []byte(content))
	require.NoError(t, err)
	return id
}

func tree(t *testing.T, ctx context.Context, o *odb.Odb, entries map[string]oid.Oid) oid.Oid {
	t.Helper()
	tr := objects.NewTree()
	for name, id := range entries {
		require.NoError(t, tr.AddEntry(name, objects.ModeRegular, id))
	}
	id, err := o.Write(ctx, objects.KindTree, tr.Serialize())
	require.NoError(t, err)
	return id
}

func commit(t *testing.T, ctx context.Context, o *odb.Odb, treeID oid.Oid, parents ...oid.Oid) oid.Oid {
	t.Helper()
	c := &objects.Commit{Tree: treeID, Parents: parents, Author: testSignature(), Committer: testSignature(), Message: "m"}
	id, err := o.Write(ctx, objects.KindCommit, c.Serialize())
	require.NoError(t, err)
	return id
}

func TestCollectDryRunLeavesOrphansInPlace(t *testing.T) {
	e, o, r, ctx := newTestEngine(t)

	keepTree := tree(t, ctx, o, map[string]oid.Oid{"a.txt": blob(t, ctx, o, "a")})
	keepCommit := commit(t, ctx, o, keepTree)
	require.NoError(t, r.Update("refs/heads/main", keepCommit, false))
	require.NoError(t, r.WriteSymbolic("HEAD", "refs/heads/main"))

	orphanBlob := blob(t, ctx, o, "orphaned content")

	result, err := e.Collect(ctx, true)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.LooseObjectsScanned)
	assert.Equal(t, 0, result.LooseObjectsDeleted)

	exists, err := o.Exists(ctx, orphanBlob)
	require.NoError(t, err)
	assert.True(t, exists, "dry run must not delete anything")
}

func TestCollectDeletesUnreachableLooseObjects(t *testing.T) {
	e, o, r, ctx := newTestEngine(t)

	keepTree := tree(t, ctx, o, map[string]oid.Oid{"a.txt": blob(t, ctx, o, "a")})
	keepCommit := commit(t, ctx, o, keepTree)
	require.NoError(t, r.Update("refs/heads/main", keepCommit, false))
	require.NoError(t, r.WriteSymbolic("HEAD", "refs/heads/main"))

	orphanBlob := blob(t, ctx, o, "orphaned content")

	result, err := e.Collect(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.LooseObjectsDeleted)

	orphanExists, err := o.Exists(ctx, orphanBlob)
	require.NoError(t, err)
	assert.False(t, orphanExists)

	keptExists, err := o.Exists(ctx, keepCommit)
	require.NoError(t, err)
	assert.True(t, keptExists)
	keptTreeExists, err := o.Exists(ctx, keepTree)
	require.NoError(t, err)
	assert.True(t, keptTreeExists)
}

func TestCollectWalksAllParentsOfAMergeCommit(t *testing.T) {
	e, o, r, ctx := newTestEngine(t)

	rootTree := tree(t, ctx, o, map[string]oid.Oid{"root.txt": blob(t, ctx, o, "root")})
	root := commit(t, ctx, o, rootTree)

	branchTree := tree(t, ctx, o, map[string]oid.Oid{"root.txt": blob(t, ctx, o, "root"), "b.txt": blob(t, ctx, o, "b")})
	branch := commit(t, ctx, o, branchTree, root)

	otherTree := tree(t, ctx, o, map[string]oid.Oid{"root.txt": blob(t, ctx, o, "root"), "c.txt": blob(t, ctx, o, "c")})
	other := commit(t, ctx, o, otherTree, root)

	mergeTree := tree(t, ctx, o, map[string]oid.Oid{
		"root.txt": blob(t, ctx, o, "root"),
		"b.txt":    blob(t, ctx, o, "b"),
		"c.txt":    blob(t, ctx, o, "c"),
	})
	mergeCommit := commit(t, ctx, o, mergeTree, branch, other)

	require.NoError(t, r.Update("refs/heads/main", mergeCommit, false))
	require.NoError(t, r.WriteSymbolic("HEAD", "refs/heads/main"))

	result, err := e.Collect(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.LooseObjectsDeleted, "both merge parents' histories must stay reachable")

	for _, id := range []oid.Oid{root, branch, other, mergeCommit} {
		exists, err := o.Exists(ctx, id)
		require.NoError(t, err)
		assert.True(t, exists)
	}
}

func TestCollectPreservesTaggedCommitsNotOnAnyBranch(t *testing.T) {
	e, o, r, ctx := newTestEngine(t)

	mainTree := tree(t, ctx, o, map[string]oid.Oid{"a.txt": blob(t, ctx, o, "a")})
	mainCommit := commit(t, ctx, o, mainTree)
	require.NoError(t, r.Update("refs/heads/main", mainCommit, false))
	require.NoError(t, r.WriteSymbolic("HEAD", "refs/heads/main"))

	releaseTree := tree(t, ctx, o, map[string]oid.Oid{"release.txt": blob(t, ctx, o, "v1")})
	releaseCommit := commit(t, ctx, o, releaseTree, mainCommit)
	require.NoError(t, r.Update("refs/tags/v1.0.0", releaseCommit, false))

	result, err := e.Collect(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.LooseObjectsDeleted)

	exists, err := o.Exists(ctx, releaseCommit)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCollectIsIdempotent(t *testing.T) {
	e, o, r, ctx := newTestEngine(t)

	keepTree := tree(t, ctx, o, map[string]oid.Oid{"a.txt": blob(t, ctx, o, "a")})
	keepCommit := commit(t, ctx, o, keepTree)
	require.NoError(t, r.Update("refs/heads/main", keepCommit, false))
	require.NoError(t, r.WriteSymbolic("HEAD", "refs/heads/main"))
	_ = blob(t, ctx, o, "orphaned content")

	first, err := e.Collect(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.LooseObjectsDeleted)

	second, err := e.Collect(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.LooseObjectsDeleted)
}

func TestCollectOnEmptyRepositoryDeletesEverything(t *testing.T) {
	e, o, _, ctx := newTestEngine(t)

	_ = blob(t, ctx, o, "nothing points at this")

	result, err := e.Collect(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.LooseObjectsDeleted)
}

func TestResultObjectsToDelete(t *testing.T) {
	dry := Result{DryRun: true, LooseObjectsScanned: 3}
	assert.Equal(t, 3, dry.ObjectsToDelete())

	live := Result{DryRun: false, LooseObjectsDeleted: 2}
	assert.Equal(t, 2, live.ObjectsToDelete())
}
