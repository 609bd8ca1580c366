//go:build unix

package storage

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// readMmap memory-maps path read-only and copies it into a regular
// heap-allocated slice. The copy keeps the returned []byte safe to hold
// past the mapping's lifetime (callers cache these in an LRU) while still
// avoiding the page-at-a-time buffered-read path the kernel would
// otherwise take for a single large sequential read.
func readMmap(path string, size int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open for mmap: %w", err)
	}
	defer f.Close()

	if size == 0 {
		return []byte{}, nil
	}

	mapped, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("storage: mmap: %w", err)
	}
	defer unix.Munmap(mapped)

	out := make([]byte, len(mapped))
	copy(out, mapped)
	return out, nil
}
