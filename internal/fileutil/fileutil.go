// Package fileutil writes output files atomically and fingerprints their content.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// WriteAtomic writes data to a uniquely named temporary file next to path and
// renames it into place. An exclusive lock keyed by the absolute path is held
// for the duration, so concurrent writers of the same output do not interleave.
func WriteAtomic(path string, data []byte, mode os.FileMode) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	lock := flock.New(LockPath(abs))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	tmp := filepath.Join(filepath.Dir(abs), "."+filepath.Base(abs)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, mode); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, abs); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// LockPath returns the lock file guarding an absolute output path.
func LockPath(abs string) string {
	return filepath.Join(os.TempDir(), "tilesplit-"+strconv.FormatUint(xxhash.Sum64String(abs), 16)+".lock")
}

// ContentHash returns the xxhash64 digest of data.
func ContentHash(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// FormatHash renders a digest as 16 lowercase hex characters.
func FormatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}
