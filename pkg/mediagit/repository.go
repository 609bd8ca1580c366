// Package mediagit is the top-level repository façade: it wires the
// object database, reference store, checkout engine, merge engine, and
// garbage collector behind a single `Repository` handle.
//
// Grounded on the teacher's pkg/vcs/repository.go (Init/Open, the
// gitDir/.git layout, object read/write helpers), generalized from a
// single `objects.Storage` to MediaGit's `storage.Backend` + `odb.Odb`
// pair and from `.git/` to `.mediagit/` (spec.md §6's on-disk layout).
package mediagit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/fenilsonani/mediagit/internal/checkout"
	"github.com/fenilsonani/mediagit/internal/gc"
	"github.com/fenilsonani/mediagit/internal/merge"
	"github.com/fenilsonani/mediagit/internal/objects"
	"github.com/fenilsonani/mediagit/internal/odb"
	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/fenilsonani/mediagit/internal/refs"
	"github.com/fenilsonani/mediagit/internal/storage"
)

// MetadataDir is the name of the repository's metadata directory,
// MediaGit's analogue of ".git".
const MetadataDir = ".mediagit"

// defaultObjectCacheCapacity bounds the ODB's in-memory decompressed
// object cache when a caller doesn't need to tune it (spec.md §4.7).
const defaultObjectCacheCapacity = 1024

// DefaultBranch is the branch HEAD points at in a freshly initialized
// repository.
const DefaultBranch = "main"

// Repository is a MediaGit working repository: a `.mediagit` metadata
// directory plus the engines that operate over it.
type Repository struct {
	path     string
	metaDir  string
	backend  storage.Backend
	odb      *odb.Odb
	refs     *refs.DB
	checkout *checkout.Engine
	merge    *merge.Engine
	gc       *gc.Engine
	logger   zerolog.Logger
}

// Init creates a new repository at path: the metadata directory, its
// ref namespaces, and a HEAD pointing at refs/heads/main (spec.md §6).
func Init(path string, logger zerolog.Logger) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("mediagit: resolve repository path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("mediagit: create repository directory: %w", err)
	}

	metaDir := filepath.Join(absPath, MetadataDir)
	if _, err := os.Stat(metaDir); err == nil {
		return nil, fmt.Errorf("mediagit: %s is already a repository", absPath)
	}

	repo, err := open(absPath, metaDir, logger)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{"refs/heads", "refs/tags", "refs/remotes"} {
		if err := os.MkdirAll(filepath.Join(metaDir, dir), 0o755); err != nil {
			return nil, fmt.Errorf("mediagit: create %s: %w", dir, err)
		}
	}
	if err := repo.refs.WriteSymbolic("HEAD", "refs/heads/"+DefaultBranch); err != nil {
		return nil, fmt.Errorf("mediagit: write HEAD: %w", err)
	}

	logger.Info().Str("path", absPath).Msg("initialized repository")
	return repo, nil
}

// Open opens an existing repository rooted at path.
func Open(path string, logger zerolog.Logger) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("mediagit: resolve repository path: %w", err)
	}
	metaDir := filepath.Join(absPath, MetadataDir)
	info, err := os.Stat(metaDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("mediagit: not a mediagit repository: %s", absPath)
	}
	if _, err := os.Stat(filepath.Join(metaDir, "HEAD")); err != nil {
		return nil, fmt.Errorf("mediagit: invalid repository: missing HEAD: %w", err)
	}
	return open(absPath, metaDir, logger)
}

func open(path, metaDir string, logger zerolog.Logger) (*Repository, error) {
	backend, err := storage.NewLocal(metaDir, logger)
	if err != nil {
		return nil, fmt.Errorf("mediagit: open object storage: %w", err)
	}
	database, err := odb.New(backend, defaultObjectCacheCapacity, logger)
	if err != nil {
		return nil, fmt.Errorf("mediagit: open object database: %w", err)
	}
	referenceDB := refs.New(metaDir)

	return &Repository{
		path:     path,
		metaDir:  metaDir,
		backend:  backend,
		odb:      database,
		refs:     referenceDB,
		checkout: checkout.New(database, path, logger),
		merge:    merge.New(database),
		gc:       gc.New(database, referenceDB, logger),
		logger:   logger.With().Str("component", "mediagit").Logger(),
	}, nil
}

// Path returns the repository's working directory root.
func (r *Repository) Path() string { return r.path }

// MetaDir returns the repository's ".mediagit" metadata directory.
func (r *Repository) MetaDir() string { return r.metaDir }

// Odb returns the repository's object database.
func (r *Repository) Odb() *odb.Odb { return r.odb }

// Refs returns the repository's reference database.
func (r *Repository) Refs() *refs.DB { return r.refs }

// Checkout returns the repository's checkout engine.
func (r *Repository) Checkout() *checkout.Engine { return r.checkout }

// Merge returns the repository's merge engine.
func (r *Repository) Merge() *merge.Engine { return r.merge }

// GC returns the repository's garbage collector.
func (r *Repository) GC() *gc.Engine { return r.gc }

// HashObject hashes data as a blob and, if write is true, stores it.
func (r *Repository) HashObject(ctx context.Context, data []byte, write bool) (oid.Oid, error) {
	if !write {
		return oid.FromBytes(data), nil
	}
	return r.odb.Write(ctx, objects.KindBlob, data)
}

// CreateBlob writes data as a blob object.
func (r *Repository) CreateBlob(ctx context.Context, data []byte) (oid.Oid, error) {
	return r.odb.Write(ctx, objects.KindBlob, data)
}

// CreateTree writes a tree built from entries.
func (r *Repository) CreateTree(ctx context.Context, entries []objects.TreeEntry) (oid.Oid, error) {
	tree := objects.NewTree()
	for _, e := range entries {
		if err := tree.AddEntry(e.Name, e.Mode, e.Oid); err != nil {
			return oid.Oid{}, fmt.Errorf("mediagit: add tree entry %s: %w", e.Name, err)
		}
	}
	return r.odb.Write(ctx, objects.KindTree, tree.Serialize())
}

// CreateCommit writes a commit object.
func (r *Repository) CreateCommit(ctx context.Context, tree oid.Oid, parents []oid.Oid, author, committer objects.Signature, message string) (oid.Oid, error) {
	commit := &objects.Commit{Tree: tree, Parents: parents, Author: author, Committer: committer, Message: message}
	return r.odb.Write(ctx, objects.KindCommit, commit.Serialize())
}

// ReadObject reads the raw bytes of a commit/tree/blob by Oid.
func (r *Repository) ReadObject(ctx context.Context, id oid.Oid) ([]byte, error) {
	return r.odb.Read(ctx, id)
}

// ReadCommit reads and parses a commit object.
func (r *Repository) ReadCommit(ctx context.Context, id oid.Oid) (*objects.Commit, error) {
	data, err := r.odb.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("mediagit: read commit %s: %w", id, err)
	}
	return objects.ParseCommit(data)
}

// ReadTree reads and parses a tree object.
func (r *Repository) ReadTree(ctx context.Context, id oid.Oid) (*objects.Tree, error) {
	data, err := r.odb.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("mediagit: read tree %s: %w", id, err)
	}
	return objects.ParseTree(data)
}

// Head resolves HEAD to its current commit Oid.
func (r *Repository) Head(ctx context.Context) (oid.Oid, error) {
	_ = ctx
	return r.refs.Resolve("HEAD")
}

// CheckoutHead realizes HEAD's commit onto the working directory.
func (r *Repository) CheckoutHead(ctx context.Context) (int, error) {
	head, err := r.Head(ctx)
	if err != nil {
		return 0, fmt.Errorf("mediagit: resolve HEAD: %w", err)
	}
	return r.checkout.CheckoutCommit(ctx, head)
}
