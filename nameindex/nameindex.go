// Package nameindex persists the ordered list of chunk digests a *name*
// reconstitutes into, as a flat binary file written once. Generalizes
// the teacher's JSON-backed manifest package down to the compact binary
// wire format the spec names: a sequence of 32-byte big-endian digest
// records, concatenated with no framing.
package nameindex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blockvault/sealvault/digest"
)

// Load reads the name index at path and returns its ordered digest
// list. The file size must be a multiple of digest.Size; any other size
// is a malformed name file.
func Load(path string) ([]digest.Digest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nameindex: read %s: %w", path, err)
	}
	if len(data)%digest.Size != 0 {
		return nil, fmt.Errorf("nameindex: %s size %d is not a multiple of %d", path, len(data), digest.Size)
	}

	n := len(data) / digest.Size
	digests := make([]digest.Digest, n)
	for i := 0; i < n; i++ {
		d, err := digest.FromBytes(data[i*digest.Size : (i+1)*digest.Size])
		if err != nil {
			return nil, fmt.Errorf("nameindex: decode record %d: %w", i, err)
		}
		digests[i] = d
	}
	return digests, nil
}

// Save writes digests to path atomically: a temp file in the same
// directory is written, fsynced, and renamed into place. The name does
// not come into existence until the rename completes, so a save aborted
// at any earlier point leaves no trace at path (name atomicity,
// invariant §3).
func Save(path string, digests []digest.Digest) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("nameindex: create dir %s: %w", dir, err)
	}

	buf := make([]byte, 0, len(digests)*digest.Size)
	for _, d := range digests {
		buf = append(buf, d[:]...)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-nameindex-*")
	if err != nil {
		return fmt.Errorf("nameindex: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("nameindex: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("nameindex: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("nameindex: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("nameindex: rename into place: %w", err)
	}

	df, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("nameindex: open dir %s for sync: %w", dir, err)
	}
	syncErr := df.Sync()
	closeErr := df.Close()
	if syncErr != nil {
		return fmt.Errorf("nameindex: sync dir %s: %w", dir, syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("nameindex: close dir %s: %w", dir, closeErr)
	}
	return nil
}

// Exists reports whether a name index file is already present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
