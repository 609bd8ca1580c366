//go:build !unix

package storage

import "os"

// readMmap falls back to a plain buffered read on platforms without a
// POSIX mmap syscall (e.g. Windows); Get's caller already treats any
// error from this function as "fall back to os.ReadFile", so this just
// does that directly.
func readMmap(path string, size int64) ([]byte, error) {
	return os.ReadFile(path)
}
