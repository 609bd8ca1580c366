package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// shardCount splits locking across the 256 possible values of a key's
// first two hex characters. Keys that do not start with two hex
// characters (every prefixed key, such as "chunks/..." or
// "manifests/...") all share lock 0. Grounded on alexander-storage's
// shardedLock.
const shardCount = 256

type shardedLock struct {
	locks [shardCount]sync.RWMutex
}

func (sl *shardedLock) index(key string) int {
	if len(key) < 2 {
		return 0
	}
	b, err := hex.DecodeString(key[:2])
	if err != nil || len(b) == 0 {
		return 0
	}
	return int(b[0])
}

func (sl *shardedLock) Lock(key string)    { sl.locks[sl.index(key)].Lock() }
func (sl *shardedLock) Unlock(key string)  { sl.locks[sl.index(key)].Unlock() }
func (sl *shardedLock) RLock(key string)   { sl.locks[sl.index(key)].RLock() }
func (sl *shardedLock) RUnlock(key string) { sl.locks[sl.index(key)].RUnlock() }

// mmapThreshold is the size above which Local.Get reads through a memory
// map instead of a single buffered read, avoiding a full user-space copy
// for large chunked-object payloads.
const mmapThreshold = 10 * 1024 * 1024

// Local is a filesystem-backed Backend. Keys are sharded into two-level
// hex-prefix directories the way the teacher's object store shards
// loose objects (hex[:2]/hex[2:]), except under the "packs/" prefix,
// which is kept flat since pack files are named by their creation
// timestamp and are few in number.
type Local struct {
	root   string
	tmpDir string
	shards shardedLock
	logger zerolog.Logger
}

// NewLocal returns a Local backend rooted at dir, creating dir and its
// tmp staging directory if necessary.
func NewLocal(dir string, logger zerolog.Logger) (*Local, error) {
	tmpDir := filepath.Join(dir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	return &Local{root: abs, tmpDir: tmpDir, logger: logger}, nil
}

// pathFor maps a key to its on-disk location. Pack keys (prefix
// "packs/") are stored flat; everything else is sharded by the first two
// characters of its last path element (e.g. "manifests/<hex>" shards on
// the hex suffix, not the "manifests/" literal), falling back to flat
// storage only if that element is shorter than two characters.
func (l *Local) pathFor(key string) string {
	if strings.HasPrefix(key, "packs/") {
		return filepath.Join(l.root, key)
	}
	dir, base := filepath.Split(key)
	if len(base) < 2 {
		return filepath.Join(l.root, key)
	}
	return filepath.Join(l.root, dir, base[:2], base[2:])
}

// Put writes data under key via a temp-file-then-rename sequence: the
// data is fsynced before the rename so a crash never leaves a partially
// written object visible under its final name.
func (l *Local) Put(ctx context.Context, key string, data []byte) error {
	l.shards.Lock(key)
	defer l.shards.Unlock(key)

	target := l.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(l.tmpDir, "obj-*")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("storage: rename into place: %w", err)
	}
	success = true

	l.logger.Debug().Str("key", key).Int("size", len(data)).Msg("storage: object written")
	return nil
}

// Get reads the content stored under key, reading through a memory map
// for objects at or above mmapThreshold.
func (l *Local) Get(ctx context.Context, key string) ([]byte, error) {
	l.shards.RLock(key)
	defer l.shards.RUnlock(key)

	path := l.pathFor(key)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: stat: %w", err)
	}

	if info.Size() >= mmapThreshold {
		data, err := readMmap(path, info.Size())
		if err == nil {
			return data, nil
		}
		l.logger.Debug().Err(err).Str("key", key).Msg("storage: mmap read failed, falling back to buffered read")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: read: %w", err)
	}
	return data, nil
}

// GetRange reads length bytes starting at offset from the object stored
// under key, without loading the whole object into memory first.
// Implements storage.RangeReader.
func (l *Local) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	l.shards.RLock(key)
	defer l.shards.RUnlock(key)

	f, err := os.Open(l.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("storage: read range: %w", err)
	}
	return buf[:n], nil
}

// HealthCheck verifies the backend root is still a writable directory.
// Implements storage.HealthChecker.
func (l *Local) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(l.root)
	if err != nil {
		return fmt.Errorf("storage: health check: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: health check: %s is not a directory", l.root)
	}
	probe := filepath.Join(l.tmpDir, ".health")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("storage: health check: root not writable: %w", err)
	}
	os.Remove(probe)
	return nil
}

var (
	_ RangeReader   = (*Local)(nil)
	_ HealthChecker = (*Local)(nil)
)

// Exists reports whether key has been stored.
func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	l.shards.RLock(key)
	defer l.shards.RUnlock(key)

	_, err := os.Stat(l.pathFor(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("storage: stat: %w", err)
}

// Delete removes key. Deleting a missing key is not an error, matching
// the teacher's idempotent-delete idiom.
func (l *Local) Delete(ctx context.Context, key string) error {
	l.shards.Lock(key)
	defer l.shards.Unlock(key)

	path := l.pathFor(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete: %w", err)
	}
	l.cleanupEmptyDirs(filepath.Dir(path))
	return nil
}

// cleanupEmptyDirs removes dir and its ancestors, up to (not including)
// the backend root, as long as each is empty. Best-effort: failures are
// ignored since an empty directory left behind is harmless.
func (l *Local) cleanupEmptyDirs(dir string) {
	for dir != l.root && strings.HasPrefix(dir, l.root) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// ListObjects returns every key stored under prefix. It walks the
// sharded directory layout and reverses pathFor's split, so the keys
// returned are exactly what Put/Get/Delete accept.
func (l *Local) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	searchRoot := filepath.Join(l.root, filepath.Dir(prefix))
	var keys []string

	err := filepath.Walk(searchRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		key := unshardKey(filepath.ToSlash(rel))
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return keys, nil
}

// unshardKey collapses a sharded on-disk relative path ("aa/bbcc...") back
// into its logical key ("aabbcc..."), undoing pathFor's split. Flat keys
// (e.g. under "packs/" or "tmp/") pass through unchanged.
func unshardKey(rel string) string {
	if strings.HasPrefix(rel, "packs/") || strings.HasPrefix(rel, "tmp/") {
		return rel
	}
	parts := strings.Split(rel, "/")
	if len(parts) < 2 {
		return rel
	}
	shard, rest := parts[len(parts)-2], parts[len(parts)-1]
	if len(shard) != 2 {
		return rel
	}
	dir := strings.Join(parts[:len(parts)-2], "/")
	key := shard + rest
	if dir != "" {
		key = dir + "/" + key
	}
	return key
}

var _ Backend = (*Local)(nil)
